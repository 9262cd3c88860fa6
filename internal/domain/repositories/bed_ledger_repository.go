package repositories

import (
	"context"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// BedLedgerRepository manages the per-(hospital, bed type) capacity
// counters. All counter mutations are single-statement conditional
// updates so that concurrent callers serialize on the row and a
// capacity check can never be separated from its decrement.
type BedLedgerRepository interface {
	// GetEntry retrieves one ledger row
	GetEntry(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error)

	// ListByHospital lists all ledger rows for a hospital
	ListByHospital(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error)

	// ListAvailableByType lists rows for one bed type with
	// available_beds > 0 across all hospitals
	ListAvailableByType(ctx context.Context, bedType entities.BedType) ([]*entities.BedLedgerEntry, error)

	// Upsert writes a full row. Used by the ops tooling surface which
	// bypasses the orchestrator; transfer_reserved is preserved.
	Upsert(ctx context.Context, entry *entities.BedLedgerEntry) error

	// SyncCounts upserts the record-derived counters (total, occupied,
	// blocked) for one row, recomputing available while preserving the
	// row's transfer_reserved hold count.
	SyncCounts(ctx context.Context, hospitalID string, counts BedTypeCounts) error

	// DeleteIfUnreserved removes a row that has no outstanding
	// transfer reservations. Returns false when the row was kept
	// because holds are still pending against it.
	DeleteIfUnreserved(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error)

	// Reserve atomically holds one bed: available_beds > 0 is checked
	// and decremented in the same statement. Fails with NoCapacity
	// when no bed is available and NotFound when the row is absent.
	Reserve(ctx context.Context, hospitalID string, bedType entities.BedType) error

	// ReleaseReservation returns one held bed to availability.
	ReleaseReservation(ctx context.Context, hospitalID string, bedType entities.BedType) error

	// ConfirmArrival converts one held bed into an occupied bed.
	ConfirmArrival(ctx context.Context, hospitalID string, bedType entities.BedType) error

	// ReleaseOccupied frees one occupied bed, used for the source
	// hospital on transfer completion. Returns false without error
	// when the hospital has no occupied bed of that type.
	ReleaseOccupied(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error)
}
