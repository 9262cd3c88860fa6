package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

func testHospital(id string, lat, lon float64) *entities.Hospital {
	return &entities.Hospital{
		ID:       id,
		Code:     id,
		Name:     "Hospital " + id,
		Location: entities.Location{Latitude: lat, Longitude: lon},
		IsActive: true,
	}
}

func hospitalDirectory(hospitals ...*entities.Hospital) *mockHospitalRepo {
	byID := make(map[string]*entities.Hospital, len(hospitals))
	for _, h := range hospitals {
		byID[h.ID] = h
	}
	return &mockHospitalRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*entities.Hospital, error) {
			if h, ok := byID[id]; ok {
				return h, nil
			}
			return nil, apperrors.NewNotFoundError("hospital not found: " + id)
		},
		ListActiveFunc: func(ctx context.Context) ([]*entities.Hospital, error) {
			return hospitals, nil
		},
	}
}

func TestTransferService_FindCandidates(t *testing.T) {
	// Lagos as origin; Ibadan ~128km away, Abeokuta ~77km away
	origin := testHospital("lagos", 6.5244, 3.3792)
	near := testHospital("abeokuta", 7.1475, 3.3619)
	far := testHospital("ibadan", 7.3775, 3.9470)
	unlocated := testHospital("unknown", 0, 0)

	hospitals := hospitalDirectory(origin, near, far, unlocated)
	ledger := &mockLedgerRepo{
		ListAvailableByTypeFunc: func(ctx context.Context, bedType entities.BedType) ([]*entities.BedLedgerEntry, error) {
			return []*entities.BedLedgerEntry{
				{HospitalID: "ibadan", BedType: bedType, TotalBeds: 10, OccupiedBeds: 6, AvailableBeds: 4},
				{HospitalID: "abeokuta", BedType: bedType, TotalBeds: 8, OccupiedBeds: 5, AvailableBeds: 3},
				{HospitalID: "unknown", BedType: bedType, TotalBeds: 2, AvailableBeds: 2},
				{HospitalID: "lagos", BedType: bedType, TotalBeds: 5, AvailableBeds: 1},
			}, nil
		},
	}

	svc := NewTransferService(nil, ledger, hospitals, nil, nil)

	t.Run("ranks candidates by distance", func(t *testing.T) {
		candidates, err := svc.FindCandidates(context.Background(), "lagos", entities.BedTypeICU, 0)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, "abeokuta", candidates[0].HospitalID)
		assert.Equal(t, "ibadan", candidates[1].HospitalID)
		assert.Less(t, candidates[0].DistanceKm, candidates[1].DistanceKm)
		assert.Equal(t, 3, candidates[0].AvailableBeds)
		assert.Greater(t, candidates[0].EstimatedMinutes, 0)
	})

	t.Run("caps distance", func(t *testing.T) {
		candidates, err := svc.FindCandidates(context.Background(), "lagos", entities.BedTypeICU, 100)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "abeokuta", candidates[0].HospitalID)
	})

	t.Run("origin without coordinates", func(t *testing.T) {
		_, err := svc.FindCandidates(context.Background(), "unknown", entities.BedTypeICU, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsMissingLocation(err))
	})

	t.Run("unknown origin", func(t *testing.T) {
		_, err := svc.FindCandidates(context.Background(), "nowhere", entities.BedTypeICU, 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("rejects unknown bed type", func(t *testing.T) {
		_, err := svc.FindCandidates(context.Background(), "lagos", "water", 0)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestTransferService_Create(t *testing.T) {
	origin := testHospital("lagos", 6.5244, 3.3792)
	dest := testHospital("ibadan", 7.3775, 3.9470)
	hospitals := hospitalDirectory(origin, dest)

	input := CreateTransferInput{
		FromHospitalID: "lagos",
		ToHospitalID:   "ibadan",
		PatientName:    "Ade Bello",
		PatientAge:     54,
		BedType:        entities.BedTypeICU,
		Reason:         "requires ventilator support",
		RequestedBy:    "dr.okafor",
	}

	t.Run("creates pending request with travel estimate", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{HospitalID: hospitalID, BedType: bedType, TotalBeds: 4, AvailableBeds: 2}, nil
			},
		}
		var created *entities.TransferRequest
		transfers := &mockTransferRepo{
			CreateFunc: func(ctx context.Context, transfer *entities.TransferRequest) error {
				created = transfer
				return nil
			},
		}
		bus := newMemoryEventBus()
		svc := NewTransferService(transfers, ledger, hospitals, NewNotificationService(bus), nil)

		transfer, err := svc.Create(context.Background(), input)
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.NotEmpty(t, transfer.ID)
		assert.Equal(t, entities.TransferStatusPending, transfer.Status)
		assert.Equal(t, "dr.okafor", transfer.RequestedBy)
		require.NotNil(t, transfer.DistanceKm)
		assert.InDelta(t, 128.0, *transfer.DistanceKm, 10.0)
		require.NotNil(t, transfer.EstimatedMinutes)

		assert.NotEmpty(t, bus.published("hospital:ibadan"))
	})

	t.Run("no capacity at destination", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return &entities.BedLedgerEntry{HospitalID: hospitalID, BedType: bedType, TotalBeds: 4, OccupiedBeds: 4}, nil
			},
		}
		svc := NewTransferService(nil, ledger, hospitals, nil, nil)

		_, err := svc.Create(context.Background(), input)
		require.Error(t, err)
		assert.True(t, apperrors.IsNoCapacity(err))
	})

	t.Run("destination has never reported the bed type", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			GetEntryFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
				return nil, apperrors.NewNotFoundError("no ledger entry")
			},
		}
		svc := NewTransferService(nil, ledger, hospitals, nil, nil)

		_, err := svc.Create(context.Background(), input)
		require.Error(t, err)
		assert.True(t, apperrors.IsNoCapacity(err))
	})

	t.Run("same source and destination", func(t *testing.T) {
		svc := NewTransferService(nil, nil, hospitals, nil, nil)
		bad := input
		bad.ToHospitalID = "lagos"

		_, err := svc.Create(context.Background(), bad)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestTransferService_SetStatus_Approve(t *testing.T) {
	origin := testHospital("lagos", 6.5244, 3.3792)
	dest := testHospital("ibadan", 7.3775, 3.9470)
	hospitals := hospitalDirectory(origin, dest)

	pending := func() *entities.TransferRequest {
		return &entities.TransferRequest{
			ID:             "tr-1",
			FromHospitalID: "lagos",
			ToHospitalID:   "ibadan",
			BedType:        entities.BedTypeICU,
			Status:         entities.TransferStatusPending,
		}
	}

	t.Run("reserves then flips status", func(t *testing.T) {
		reserved := false
		ledger := &mockLedgerRepo{
			ReserveFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				assert.Equal(t, "ibadan", hospitalID)
				reserved = true
				return nil
			},
		}
		transfers := &mockTransferRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*entities.TransferRequest, error) {
				return pending(), nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				assert.True(t, reserved, "reservation must be held before the status flips")
				assert.Equal(t, entities.TransferStatusPending, expected)
				return nil
			},
		}
		svc := NewTransferService(transfers, ledger, hospitals, nil, nil)

		transfer, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusApproved,
			Actor:  "dr.ade",
		})
		require.NoError(t, err)
		assert.Equal(t, entities.TransferStatusApproved, transfer.Status)
		require.NotNil(t, transfer.ApprovedBy)
		assert.Equal(t, "dr.ade", *transfer.ApprovedBy)
		assert.NotNil(t, transfer.ApprovedAt)
	})

	t.Run("no capacity leaves request pending", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			ReserveFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				return apperrors.NewNoCapacityError("no icu beds available")
			},
		}
		statusUpdated := false
		transfers := &mockTransferRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*entities.TransferRequest, error) {
				return pending(), nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				statusUpdated = true
				return nil
			},
		}
		svc := NewTransferService(transfers, ledger, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusApproved,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsNoCapacity(err))
		assert.False(t, statusUpdated)
	})

	t.Run("lost status race releases the hold", func(t *testing.T) {
		released := false
		ledger := &mockLedgerRepo{
			ReserveFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				return nil
			},
			ReleaseReservationFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				released = true
				return nil
			},
		}
		transfers := &mockTransferRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*entities.TransferRequest, error) {
				return pending(), nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				return apperrors.NewConflictError("transfer request is no longer pending")
			},
		}
		svc := NewTransferService(transfers, ledger, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusApproved,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
		assert.True(t, released)
	})
}

func TestTransferService_SetStatus_Complete(t *testing.T) {
	origin := testHospital("lagos", 6.5244, 3.3792)
	dest := testHospital("ibadan", 7.3775, 3.9470)
	hospitals := hospitalDirectory(origin, dest)

	arrivalConfirmed := false
	sourceReleased := false
	ledger := &mockLedgerRepo{
		ConfirmArrivalFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
			assert.Equal(t, "ibadan", hospitalID)
			arrivalConfirmed = true
			return nil
		},
		ReleaseOccupiedFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
			assert.Equal(t, "lagos", hospitalID)
			sourceReleased = true
			return true, nil
		},
	}
	transfers := &mockTransferRepo{
		GetByIDFunc: func(ctx context.Context, id string) (*entities.TransferRequest, error) {
			return &entities.TransferRequest{
				ID:             id,
				FromHospitalID: "lagos",
				ToHospitalID:   "ibadan",
				BedType:        entities.BedTypeICU,
				Status:         entities.TransferStatusInTransit,
			}, nil
		},
		UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
			assert.Equal(t, entities.TransferStatusInTransit, expected)
			return nil
		},
	}
	svc := NewTransferService(transfers, ledger, hospitals, nil, nil)

	transfer, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
		Status: entities.TransferStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TransferStatusCompleted, transfer.Status)
	assert.NotNil(t, transfer.CompletedAt)
	assert.True(t, arrivalConfirmed)
	assert.True(t, sourceReleased)
}

func TestTransferService_SetStatus_Cancel(t *testing.T) {
	origin := testHospital("lagos", 6.5244, 3.3792)
	dest := testHospital("ibadan", 7.3775, 3.9470)
	hospitals := hospitalDirectory(origin, dest)

	requestIn := func(status entities.TransferStatus) *mockTransferRepo {
		return &mockTransferRepo{
			GetByIDFunc: func(ctx context.Context, id string) (*entities.TransferRequest, error) {
				return &entities.TransferRequest{
					ID:             id,
					FromHospitalID: "lagos",
					ToHospitalID:   "ibadan",
					BedType:        entities.BedTypeICU,
					Status:         status,
				}, nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				return nil
			},
		}
	}

	t.Run("cancelling an approved request releases the hold", func(t *testing.T) {
		released := false
		ledger := &mockLedgerRepo{
			ReleaseReservationFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				released = true
				return nil
			},
		}
		svc := NewTransferService(requestIn(entities.TransferStatusApproved), ledger, hospitals, nil, nil)

		transfer, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status:             entities.TransferStatusCancelled,
			CancellationReason: "patient stabilized",
		})
		require.NoError(t, err)
		assert.True(t, released)
		require.NotNil(t, transfer.CancellationReason)
		assert.Equal(t, "patient stabilized", *transfer.CancellationReason)
		assert.NotNil(t, transfer.CancelledAt)
	})

	t.Run("cancelling a pending request touches no ledger", func(t *testing.T) {
		ledger := &mockLedgerRepo{
			ReleaseReservationFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				t.Fatal("pending requests hold no reservation")
				return nil
			},
		}
		svc := NewTransferService(requestIn(entities.TransferStatusPending), ledger, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusCancelled,
		})
		require.NoError(t, err)
	})

	t.Run("terminal requests reject any transition", func(t *testing.T) {
		svc := NewTransferService(requestIn(entities.TransferStatusCompleted), nil, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusCancelled,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("disallowed transition", func(t *testing.T) {
		svc := NewTransferService(requestIn(entities.TransferStatusPending), nil, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: entities.TransferStatusCompleted,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run("unrecognized status", func(t *testing.T) {
		svc := NewTransferService(requestIn(entities.TransferStatusPending), nil, hospitals, nil, nil)

		_, err := svc.SetStatus(context.Background(), "tr-1", StatusUpdateInput{
			Status: "done",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidTransition(err))
	})
}

func TestTransferService_ExpireStale(t *testing.T) {
	origin := testHospital("lagos", 6.5244, 3.3792)
	dest := testHospital("ibadan", 7.3775, 3.9470)
	hospitals := hospitalDirectory(origin, dest)

	stale := func(id string, status entities.TransferStatus) *entities.TransferRequest {
		return &entities.TransferRequest{
			ID:             id,
			FromHospitalID: "lagos",
			ToHospitalID:   "ibadan",
			BedType:        entities.BedTypeICU,
			Status:         status,
			RequestedAt:    time.Now().Add(-2 * time.Hour),
		}
	}

	t.Run("sweeps both classes and releases approved holds", func(t *testing.T) {
		releases := 0
		ledger := &mockLedgerRepo{
			ReleaseReservationFunc: func(ctx context.Context, hospitalID string, bedType entities.BedType) error {
				releases++
				return nil
			},
		}
		transfers := &mockTransferRepo{
			ListStaleFunc: func(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error) {
				switch status {
				case entities.TransferStatusPending:
					return []*entities.TransferRequest{stale("tr-p", status)}, nil
				case entities.TransferStatusApproved:
					return []*entities.TransferRequest{stale("tr-a", status)}, nil
				}
				return nil, nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				assert.Equal(t, entities.TransferStatusCancelled, transfer.Status)
				require.NotNil(t, transfer.CancellationReason)
				return nil
			},
		}
		svc := NewTransferService(transfers, ledger, hospitals, nil, nil)

		expired, err := svc.ExpireStale(context.Background(), time.Hour, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2, expired)
		assert.Equal(t, 1, releases, "only the approved request held a bed")
	})

	t.Run("zero TTL disables expiry", func(t *testing.T) {
		transfers := &mockTransferRepo{
			ListStaleFunc: func(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error) {
				t.Fatal("nothing should be listed with TTLs disabled")
				return nil, nil
			},
		}
		svc := NewTransferService(transfers, nil, hospitals, nil, nil)

		expired, err := svc.ExpireStale(context.Background(), 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
	})

	t.Run("lost races are skipped, not fatal", func(t *testing.T) {
		transfers := &mockTransferRepo{
			ListStaleFunc: func(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error) {
				if status == entities.TransferStatusPending {
					return []*entities.TransferRequest{stale("tr-p", status)}, nil
				}
				return nil, nil
			},
			UpdateStatusFunc: func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
				return apperrors.NewConflictError("transfer request is no longer pending")
			},
		}
		svc := NewTransferService(transfers, nil, hospitals, nil, nil)

		expired, err := svc.ExpireStale(context.Background(), time.Hour, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, expired)
	})
}

func TestTransferService_List(t *testing.T) {
	hospitals := hospitalDirectory(testHospital("lagos", 6.5244, 3.3792))

	transfers := &mockTransferRepo{
		ListByHospitalFunc: func(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error) {
			assert.Equal(t, "lagos", hospitalID)
			assert.Equal(t, entities.TransferStatusPending, filter.Status)
			return []*entities.TransferRequest{{ID: "tr-1"}}, nil
		},
	}
	svc := NewTransferService(transfers, nil, hospitals, nil, nil)

	t.Run("passes filter through", func(t *testing.T) {
		list, err := svc.List(context.Background(), "lagos", repositories.TransferFilter{Status: entities.TransferStatusPending})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		_, err := svc.List(context.Background(), "lagos", repositories.TransferFilter{Status: "done"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}
