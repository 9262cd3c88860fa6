package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

func TestCapacityService_GetCapacity(t *testing.T) {
	hospitals := hospitalDirectory(testHospital("lagos", 6.5244, 3.3792))

	t.Run("aggregates all bed types", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
				return []*entities.BedLedgerEntry{
					{BedType: entities.BedTypeGeneral, TotalBeds: 10, OccupiedBeds: 6, BlockedBeds: 1, TransferReserved: 1, AvailableBeds: 2},
					{BedType: entities.BedTypeICU, TotalBeds: 4, OccupiedBeds: 4},
				}, nil
			},
		}
		svc := NewCapacityService(ledger, hospitals, nil)

		capacity, err := svc.GetCapacity(context.Background(), "lagos", "")
		require.NoError(t, err)

		require.Len(t, capacity.CapacityStatus, 2)
		assert.Equal(t, 2, capacity.CapacityStatus[0].ReservedBeds)
		assert.InDelta(t, 60.0, capacity.CapacityStatus[0].Utilization, 0.001)
		assert.Equal(t, 14, capacity.Summary.TotalBeds)
		assert.False(t, capacity.IsFull)
	})

	t.Run("unknown bed type with no row reports empty, not 404", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return nil, apperrors.NewNotFoundError("no ledger entry")
			},
		}
		svc := NewCapacityService(ledger, hospitals, nil)

		capacity, err := svc.GetCapacity(context.Background(), "lagos", entities.BedTypeVentilator)
		require.NoError(t, err)
		assert.Empty(t, capacity.CapacityStatus)
		assert.True(t, capacity.IsFull)
	})

	t.Run("unknown hospital is a 404", func(t *testing.T) {
		svc := NewCapacityService(nil, hospitals, nil)

		_, err := svc.GetCapacity(context.Background(), "nowhere", "")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("invalid bed type", func(t *testing.T) {
		svc := NewCapacityService(nil, hospitals, nil)

		_, err := svc.GetCapacity(context.Background(), "lagos", "water")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCapacityService_UpsertEntry(t *testing.T) {
	hospital := testHospital("lagos", 6.5244, 3.3792)
	hospitals := hospitalDirectory(hospital)

	t.Run("writes and rebroadcasts the row", func(t *testing.T) {
		var written *entities.BedLedgerEntry
		ledger := &mockLedgerRepo{
			UpsertFunc: func(ctx context.Context, entry *entities.BedLedgerEntry) error {
				written = entry
				return nil
			},
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{
					HospitalID: hospitalID, BedType: bedType,
					TotalBeds: 10, OccupiedBeds: 4, BlockedBeds: 1, TransferReserved: 2, AvailableBeds: 3,
				}, nil
			},
		}
		bus := newMemoryEventBus()
		svc := NewCapacityService(ledger, hospitals, NewNotificationService(bus))

		updated, err := svc.UpsertEntry(context.Background(), "lagos", UpsertEntryInput{
			BedType: entities.BedTypeGeneral, TotalBeds: 10, OccupiedBeds: 4, BlockedBeds: 1,
		})
		require.NoError(t, err)
		require.NotNil(t, written)
		assert.Equal(t, 10, written.TotalBeds)
		assert.Equal(t, 2, updated.TransferReserved, "holds survive the direct write")
		assert.NotEmpty(t, bus.published("hospital:lagos"))
	})

	t.Run("collects all invalid fields", func(t *testing.T) {
		svc := NewCapacityService(nil, hospitals, nil)

		_, err := svc.UpsertEntry(context.Background(), "lagos", UpsertEntryInput{
			BedType: "water", TotalBeds: 2, OccupiedBeds: 5, BlockedBeds: -1,
		})
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
		assert.Len(t, appErr.Fields, 3)
	})
}
