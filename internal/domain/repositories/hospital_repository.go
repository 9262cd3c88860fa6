package repositories

import (
	"context"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// HospitalRepository is the read-only directory of hospitals in the
// transfer network. Hospital onboarding lives in a different system.
type HospitalRepository interface {
	// GetByID retrieves a hospital by ID
	GetByID(ctx context.Context, id string) (*entities.Hospital, error)

	// GetByCode retrieves a hospital by its short code
	GetByCode(ctx context.Context, code string) (*entities.Hospital, error)

	// ListActive lists active hospitals in insertion order
	ListActive(ctx context.Context) ([]*entities.Hospital, error)
}
