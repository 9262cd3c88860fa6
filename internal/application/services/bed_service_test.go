package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// syncServiceFor builds a LedgerSyncService whose resyncs succeed and
// records which bed types were recomputed.
func syncServiceFor(hospitals *mockHospitalRepo, resynced *[]entities.BedType) *LedgerSyncService {
	beds := &mockBedRepo{
		CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
			*resynced = append(*resynced, bedType)
			return nil, nil
		},
	}
	ledger := &mockLedgerRepo{
		ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
			return nil, nil
		},
	}
	return NewLedgerSyncService(beds, ledger, hospitals, nil)
}

func TestBedService_Create(t *testing.T) {
	hospitals := hospitalDirectory(testHospital("lagos", 6.5244, 3.3792))

	t.Run("creates with generated id and resyncs the type", func(t *testing.T) {
		var resynced []entities.BedType
		var created *entities.Bed
		beds := &mockBedRepo{
			CreateFunc: func(ctx context.Context, bed *entities.Bed) error {
				created = bed
				return nil
			},
		}
		svc := NewBedService(beds, hospitals, syncServiceFor(hospitals, &resynced))

		bed, err := svc.Create(context.Background(), CreateBedInput{
			HospitalID: "lagos",
			BedNumber:  "ICU-04",
			BedType:    entities.BedTypeICU,
			Ward:       "critical care",
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.NotEmpty(t, bed.ID)
		assert.Equal(t, entities.BedStatusAvailable, bed.Status, "status defaults to available")
		assert.Equal(t, []entities.BedType{entities.BedTypeICU}, resynced)
	})

	t.Run("rejects unknown bed type", func(t *testing.T) {
		svc := NewBedService(nil, hospitals, nil)

		_, err := svc.Create(context.Background(), CreateBedInput{
			HospitalID: "lagos",
			BedNumber:  "X-01",
			BedType:    "water",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestBedService_Update_TypeChange(t *testing.T) {
	hospitals := hospitalDirectory(testHospital("lagos", 6.5244, 3.3792))

	var resynced []entities.BedType
	beds := &mockBedRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*entities.Bed, error) {
			return &entities.Bed{
				ID:         id,
				HospitalID: "lagos",
				BedType:    entities.BedTypeGeneral,
				Status:     entities.BedStatusAvailable,
			}, nil
		},
		UpdateFunc: func(ctx context.Context, bed *entities.Bed) error {
			return nil
		},
		CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
			resynced = append(resynced, bedType)
			return nil, nil
		},
	}
	ledger := &mockLedgerRepo{
		ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
			return nil, nil
		},
	}
	sync := NewLedgerSyncService(beds, ledger, hospitals, nil)
	svc := NewBedService(beds, hospitals, sync)

	newType := entities.BedTypeICU
	bed, err := svc.Update(context.Background(), "bed-1", UpdateBedInput{BedType: &newType})
	require.NoError(t, err)

	assert.Equal(t, entities.BedTypeICU, bed.BedType)
	assert.Equal(t, []entities.BedType{entities.BedTypeICU, entities.BedTypeGeneral}, resynced,
		"both the new and the previous type are recomputed")
}

func TestBedService_Delete(t *testing.T) {
	hospitals := hospitalDirectory(testHospital("lagos", 6.5244, 3.3792))

	var resynced []entities.BedType
	beds := &mockBedRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*entities.Bed, error) {
			return &entities.Bed{ID: id, HospitalID: "lagos", BedType: entities.BedTypeGeneral}, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			return nil
		},
		CountByTypeFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
			resynced = append(resynced, bedType)
			return nil, nil
		},
	}
	ledger := &mockLedgerRepo{
		ListByHospitalFunc: func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
			return nil, nil
		},
		DeleteIfUnreservedFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
			return true, nil
		},
	}
	sync := NewLedgerSyncService(beds, ledger, hospitals, nil)
	svc := NewBedService(beds, hospitals, sync)

	err := svc.Delete(context.Background(), "bed-1")
	require.NoError(t, err)
	assert.Equal(t, []entities.BedType{entities.BedTypeGeneral}, resynced)
}
