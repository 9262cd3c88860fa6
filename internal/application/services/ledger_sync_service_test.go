package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

func TestLedgerSyncService_Resync(t *testing.T) {
	hospital := testHospital("lagos", 6.5244, 3.3792)
	hospitals := hospitalDirectory(hospital)

	t.Run("syncs counts and broadcasts each entry", func(t *testing.T) {
		beds := &mockBedRepo{
			CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
				return []repositories.BedTypeCounts{
					{BedType: entities.BedTypeGeneral, Total: 10, Occupied: 6, Blocked: 1},
					{BedType: entities.BedTypeICU, Total: 4, Occupied: 4},
				}, nil
			},
		}

		var synced []repositories.BedTypeCounts
		ledger := &mockLedgerRepo{
			SyncCountsFunc: func(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error {
				synced = append(synced, counts)
				return nil
			},
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{HospitalID: hospitalID, BedType: bedType}, nil
			},
			ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
				return []*entities.BedLedgerEntry{
					{HospitalID: hospitalID, BedType: entities.BedTypeGeneral},
					{HospitalID: hospitalID, BedType: entities.BedTypeICU},
				}, nil
			},
		}

		bus := newMemoryEventBus()
		svc := NewLedgerSyncService(beds, ledger, hospitals, NewNotificationService(bus))

		err := svc.Resync(context.Background(), "lagos", "")
		require.NoError(t, err)
		require.Len(t, synced, 2)
		assert.Equal(t, entities.BedTypeGeneral, synced[0].BedType)
		assert.Len(t, bus.published("hospital:lagos"), 2)
	})

	t.Run("deletes rows whose bed type has no records left", func(t *testing.T) {
		beds := &mockBedRepo{
			CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
				return []repositories.BedTypeCounts{
					{BedType: entities.BedTypeGeneral, Total: 10, Occupied: 6},
				}, nil
			},
		}

		var deletedType entities.BedType
		ledger := &mockLedgerRepo{
			SyncCountsFunc: func(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error {
				return nil
			},
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{HospitalID: hospitalID, BedType: bedType}, nil
			},
			ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
				return []*entities.BedLedgerEntry{
					{HospitalID: hospitalID, BedType: entities.BedTypeGeneral},
					{HospitalID: hospitalID, BedType: entities.BedTypeICU},
				}, nil
			},
			DeleteIfUnreservedFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
				deletedType = bedType
				return true, nil
			},
		}

		svc := NewLedgerSyncService(beds, ledger, hospitals, nil)

		err := svc.Resync(context.Background(), "lagos", "")
		require.NoError(t, err)
		assert.Equal(t, entities.BedTypeICU, deletedType)
	})

	t.Run("keeps rows with outstanding transfer holds", func(t *testing.T) {
		beds := &mockBedRepo{
			CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
				return nil, nil
			},
		}
		ledger := &mockLedgerRepo{
			ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
				return []*entities.BedLedgerEntry{
					{HospitalID: hospitalID, BedType: entities.BedTypeICU, TransferReserved: 1},
				}, nil
			},
			DeleteIfUnreservedFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
				return false, nil
			},
		}

		bus := newMemoryEventBus()
		svc := NewLedgerSyncService(beds, ledger, hospitals, NewNotificationService(bus))

		err := svc.Resync(context.Background(), "lagos", "")
		require.NoError(t, err)
		assert.Empty(t, bus.published("hospital:lagos"), "kept rows are not rebroadcast as zero")
	})

	t.Run("scoped resync leaves other types alone", func(t *testing.T) {
		beds := &mockBedRepo{
			CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
				assert.Equal(t, entities.BedTypeICU, bedType)
				return []repositories.BedTypeCounts{
					{BedType: entities.BedTypeICU, Total: 4, Occupied: 1},
				}, nil
			},
		}
		ledger := &mockLedgerRepo{
			SyncCountsFunc: func(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error {
				return nil
			},
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{HospitalID: hospitalID, BedType: bedType}, nil
			},
			ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
				return []*entities.BedLedgerEntry{
					{HospitalID: hospitalID, BedType: entities.BedTypeGeneral},
					{HospitalID: hospitalID, BedType: entities.BedTypeICU},
				}, nil
			},
			DeleteIfUnreservedFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
				t.Fatalf("out-of-scope type %s must not be deleted", bedType)
				return false, nil
			},
		}

		svc := NewLedgerSyncService(beds, ledger, hospitals, nil)

		err := svc.Resync(context.Background(), "lagos", entities.BedTypeICU)
		require.NoError(t, err)
	})
}
