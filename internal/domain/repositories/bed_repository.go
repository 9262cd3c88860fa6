package repositories

import (
	"context"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// BedFilter narrows bed listings.
type BedFilter struct {
	BedType entities.BedType
	Status  entities.BedStatus
	Ward    string
}

// BedTypeCounts is the aggregation of one hospital's bed records for a
// single bed type, as fed into the ledger by resync.
type BedTypeCounts struct {
	BedType  entities.BedType
	Total    int
	Occupied int
	Blocked  int
}

// BedRepository manages individual bed records.
type BedRepository interface {
	// Create creates a new bed record
	Create(ctx context.Context, bed *entities.Bed) error

	// GetByID retrieves a bed by ID
	GetByID(ctx context.Context, id string) (*entities.Bed, error)

	// Update updates a bed record
	Update(ctx context.Context, bed *entities.Bed) error

	// Delete deletes a bed record
	Delete(ctx context.Context, id string) error

	// ListByHospital lists a hospital's beds, optionally filtered
	ListByHospital(ctx context.Context, hospitalID string, filter BedFilter) ([]*entities.Bed, error)

	// CountByType aggregates a hospital's bed records per bed type.
	// When bedType is non-empty only that type is aggregated; a type
	// with zero remaining records yields no row.
	CountByType(ctx context.Context, hospitalID string, bedType entities.BedType) ([]BedTypeCounts, error)
}
