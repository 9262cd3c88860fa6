package repositories

import (
	"context"
	"time"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// TransferDirection selects which side of a transfer a hospital is on.
type TransferDirection string

const (
	TransferDirectionFrom TransferDirection = "from"
	TransferDirectionTo   TransferDirection = "to"
)

// TransferFilter narrows transfer request listings. A zero Limit
// returns all matches.
type TransferFilter struct {
	Status    entities.TransferStatus
	Direction TransferDirection
	Limit     int
}

// TransferRepository persists transfer requests.
type TransferRepository interface {
	// Create persists a new transfer request
	Create(ctx context.Context, transfer *entities.TransferRequest) error

	// GetByID retrieves a transfer request by ID
	GetByID(ctx context.Context, id string) (*entities.TransferRequest, error)

	// UpdateStatus persists a status transition and its bookkeeping
	// fields, guarded on the expected current status so concurrent
	// transitions of the same request cannot both apply.
	UpdateStatus(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error

	// ListByHospital lists requests touching a hospital, newest first
	ListByHospital(ctx context.Context, hospitalID string, filter TransferFilter) ([]*entities.TransferRequest, error)

	// ListStale lists non-terminal requests in the given status
	// requested before the cutoff
	ListStale(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error)

	// Statistics groups a hospital's requests by status and bed type
	Statistics(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error)
}
