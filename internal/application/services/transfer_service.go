package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/observability"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
	"github.com/medgrid/bedbridge/backend/pkg/geo"
)

// TransferService orchestrates inter-hospital transfer requests:
// candidate discovery, request creation and the status state machine
// with its compensating ledger mutations.
//
// A pending request holds no capacity; the bed is reserved at approval
// time through a single conditional update, so the capacity check and
// the hold can never be split by a concurrent approval.
type TransferService struct {
	transferRepo repositories.TransferRepository
	ledgerRepo   repositories.BedLedgerRepository
	hospitalRepo repositories.HospitalRepository
	notifier     *NotificationService
	metrics      *observability.Metrics
}

// NewTransferService creates a new transfer service
func NewTransferService(
	transferRepo repositories.TransferRepository,
	ledgerRepo repositories.BedLedgerRepository,
	hospitalRepo repositories.HospitalRepository,
	notifier *NotificationService,
	metrics *observability.Metrics,
) *TransferService {
	return &TransferService{
		transferRepo: transferRepo,
		ledgerRepo:   ledgerRepo,
		hospitalRepo: hospitalRepo,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// FindCandidates returns destination hospitals with available capacity
// for the bed type, ranked by distance from the origin. maxDistanceKm
// of 0 means unbounded. Ties keep hospital insertion order.
func (s *TransferService) FindCandidates(ctx context.Context, originID string, bedType entities.BedType, maxDistanceKm float64) ([]*entities.CandidateHospital, error) {
	if !bedType.Valid() {
		return nil, apperrors.NewValidationError("unrecognized bed type: " + string(bedType))
	}

	origin, err := s.hospitalRepo.GetByID(ctx, originID)
	if err != nil {
		return nil, err
	}
	if !origin.HasLocation() {
		return nil, apperrors.NewMissingLocationError(
			fmt.Sprintf("hospital %s has no coordinates", originID))
	}

	entries, err := s.ledgerRepo.ListAvailableByType(ctx, bedType)
	if err != nil {
		return nil, err
	}
	entryByHospital := make(map[string]*entities.BedLedgerEntry, len(entries))
	for _, entry := range entries {
		entryByHospital[entry.HospitalID] = entry
	}

	hospitals, err := s.hospitalRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	originPoint := geo.Point(origin.Location)
	candidates := make([]*entities.CandidateHospital, 0, len(entries))
	for _, hospital := range hospitals {
		if hospital.ID == origin.ID {
			continue
		}
		entry, ok := entryByHospital[hospital.ID]
		if !ok {
			continue
		}

		estimate, ok := geo.TravelEstimate(originPoint, geo.Point(hospital.Location))
		if !ok {
			continue
		}
		if maxDistanceKm > 0 && estimate.DistanceKm > maxDistanceKm {
			continue
		}

		candidates = append(candidates, &entities.CandidateHospital{
			HospitalID:       hospital.ID,
			Name:             hospital.Name,
			DistanceKm:       estimate.DistanceKm,
			EstimatedMinutes: estimate.EstimatedMinutes,
			AvailableBeds:    entry.AvailableBeds,
			TotalBeds:        entry.TotalBeds,
			OccupiedBeds:     entry.OccupiedBeds,
			Location:         hospital.Location,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})
	return candidates, nil
}

// CreateTransferInput carries the fields for a new transfer request.
type CreateTransferInput struct {
	FromHospitalID string
	ToHospitalID   string
	PatientName    string
	PatientAge     int
	PatientGender  string
	BedType        entities.BedType
	Reason         string
	Notes          string
	RequestedBy    string
}

// Create validates capacity at the destination and persists a pending
// request. No bed is held yet; pending requests may race for the same
// bed and lose at approval time.
func (s *TransferService) Create(ctx context.Context, input CreateTransferInput) (*entities.TransferRequest, error) {
	if input.FromHospitalID == input.ToHospitalID {
		return nil, apperrors.NewValidationError("source and destination hospital are the same")
	}
	if !input.BedType.Valid() {
		return nil, apperrors.NewValidationError("unrecognized bed type: " + string(input.BedType))
	}

	from, err := s.hospitalRepo.GetByID(ctx, input.FromHospitalID)
	if err != nil {
		return nil, err
	}
	to, err := s.hospitalRepo.GetByID(ctx, input.ToHospitalID)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledgerRepo.GetEntry(ctx, to.ID, input.BedType)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNoCapacityError(
				fmt.Sprintf("hospital %s has no %s beds", to.ID, input.BedType))
		}
		return nil, err
	}
	if entry.AvailableBeds <= 0 {
		observability.RecordCapacityDenial(ctx, s.metrics, to.ID, string(input.BedType))
		return nil, apperrors.NewNoCapacityError(
			fmt.Sprintf("hospital %s has no available %s beds", to.ID, input.BedType))
	}

	now := time.Now()
	transfer := &entities.TransferRequest{
		ID:             uuid.New().String(),
		FromHospitalID: from.ID,
		ToHospitalID:   to.ID,
		PatientName:    input.PatientName,
		PatientAge:     input.PatientAge,
		PatientGender:  input.PatientGender,
		BedType:        input.BedType,
		Reason:         input.Reason,
		Notes:          input.Notes,
		Status:         entities.TransferStatusPending,
		RequestedBy:    input.RequestedBy,
		RequestedAt:    now,
		UpdatedAt:      now,
	}

	// Computed once from current coordinates, never recomputed
	if estimate, ok := geo.TravelEstimate(geo.Point(from.Location), geo.Point(to.Location)); ok {
		transfer.DistanceKm = &estimate.DistanceKm
		minutes := estimate.EstimatedMinutes
		transfer.EstimatedMinutes = &minutes
	}

	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	s.notifier.PublishTransferEvent(ctx, entities.LedgerEventTypeTransferCreated, from, to, transfer)
	return transfer, nil
}

// StatusUpdateInput carries a requested status transition.
type StatusUpdateInput struct {
	Status             entities.TransferStatus
	Actor              string
	CancellationReason string
	Notes              string
}

// SetStatus drives the transfer state machine. It is the only mutator
// of transfer state and the compensating mutator of the bed ledger:
// approval holds a destination bed, completion converts the hold into
// occupancy and frees a source bed, cancellation or rejection of an
// approved request releases the hold.
func (s *TransferService) SetStatus(ctx context.Context, transferID string, input StatusUpdateInput) (*entities.TransferRequest, error) {
	if !input.Status.Valid() {
		return nil, apperrors.NewInvalidTransitionError("unrecognized status: " + string(input.Status))
	}

	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	previous := transfer.Status
	if previous.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("transfer request is already %s", previous))
	}
	if !previous.CanTransitionTo(input.Status) {
		return nil, apperrors.NewInvalidTransitionError(
			fmt.Sprintf("cannot transition from %s to %s", previous, input.Status))
	}

	now := time.Now()
	transfer.Status = input.Status
	transfer.UpdatedAt = now
	if input.Notes != "" {
		transfer.Notes = input.Notes
	}

	switch input.Status {
	case entities.TransferStatusApproved:
		return s.approve(ctx, transfer, previous, input.Actor, now)

	case entities.TransferStatusCompleted:
		transfer.CompletedAt = &now
		if err := s.transferRepo.UpdateStatus(ctx, transfer, previous); err != nil {
			return nil, err
		}
		s.settleCompletion(ctx, transfer)

	case entities.TransferStatusCancelled, entities.TransferStatusRejected:
		transfer.CancelledAt = &now
		if input.CancellationReason != "" {
			transfer.CancellationReason = &input.CancellationReason
		}
		if err := s.transferRepo.UpdateStatus(ctx, transfer, previous); err != nil {
			return nil, err
		}
		// A request that was never approved holds no capacity
		if previous.HoldsReservation() {
			if err := s.ledgerRepo.ReleaseReservation(ctx, transfer.ToHospitalID, transfer.BedType); err != nil {
				log.Error().Err(err).Str("transfer_id", transfer.ID).
					Msg("failed to release reservation on cancellation")
			}
		}

	default:
		// in_transit: bookkeeping only, the hold is unchanged
		if err := s.transferRepo.UpdateStatus(ctx, transfer, previous); err != nil {
			return nil, err
		}
	}

	s.publishUpdate(ctx, transfer)
	return transfer, nil
}

// approve re-checks destination capacity at approval time. The ledger
// hold is taken first through the conditional update; only then is the
// status row flipped, and a lost status race gives the hold back.
func (s *TransferService) approve(ctx context.Context, transfer *entities.TransferRequest, previous entities.TransferStatus, actor string, now time.Time) (*entities.TransferRequest, error) {
	if err := s.ledgerRepo.Reserve(ctx, transfer.ToHospitalID, transfer.BedType); err != nil {
		if apperrors.IsNoCapacity(err) {
			observability.RecordCapacityDenial(ctx, s.metrics, transfer.ToHospitalID, string(transfer.BedType))
		}
		// Request stays pending
		return nil, err
	}

	transfer.ApprovedAt = &now
	if actor != "" {
		transfer.ApprovedBy = &actor
	}

	if err := s.transferRepo.UpdateStatus(ctx, transfer, previous); err != nil {
		if releaseErr := s.ledgerRepo.ReleaseReservation(ctx, transfer.ToHospitalID, transfer.BedType); releaseErr != nil {
			log.Error().Err(releaseErr).Str("transfer_id", transfer.ID).
				Msg("failed to release reservation after approval conflict")
		}
		return nil, err
	}

	observability.RecordReservation(ctx, s.metrics, transfer.ToHospitalID, string(transfer.BedType))
	s.publishUpdate(ctx, transfer)
	return transfer, nil
}

// settleCompletion converts the destination hold into occupancy and
// frees a source bed of the same type when one is occupied there.
func (s *TransferService) settleCompletion(ctx context.Context, transfer *entities.TransferRequest) {
	if err := s.ledgerRepo.ConfirmArrival(ctx, transfer.ToHospitalID, transfer.BedType); err != nil {
		log.Error().Err(err).Str("transfer_id", transfer.ID).
			Msg("failed to record arrival on destination ledger")
	}

	released, err := s.ledgerRepo.ReleaseOccupied(ctx, transfer.FromHospitalID, transfer.BedType)
	if err != nil {
		log.Error().Err(err).Str("transfer_id", transfer.ID).
			Msg("failed to release source bed on completion")
		return
	}
	if !released {
		log.Debug().Str("transfer_id", transfer.ID).
			Str("hospital_id", transfer.FromHospitalID).
			Msg("no occupied source bed to release")
	}
}

// GetByID retrieves a transfer request
func (s *TransferService) GetByID(ctx context.Context, transferID string) (*entities.TransferRequest, error) {
	return s.transferRepo.GetByID(ctx, transferID)
}

// List lists a hospital's transfer requests
func (s *TransferService) List(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("unrecognized status: " + string(filter.Status))
	}
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.transferRepo.ListByHospital(ctx, hospitalID, filter)
}

// Statistics groups a hospital's requests by status and bed type
func (s *TransferService) Statistics(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error) {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.transferRepo.Statistics(ctx, hospitalID)
}

// ExpireStale cancels pending requests older than pendingTTL and
// approved requests older than approvedTTL, releasing the ledger hold
// for the latter. A zero TTL disables that class of expiry. Returns
// the number of requests cancelled.
func (s *TransferService) ExpireStale(ctx context.Context, pendingTTL, approvedTTL time.Duration) (int, error) {
	expired := 0
	now := time.Now()

	expire := func(status entities.TransferStatus, ttl time.Duration, releaseHold bool) error {
		if ttl <= 0 {
			return nil
		}
		stale, err := s.transferRepo.ListStale(ctx, status, now.Add(-ttl))
		if err != nil {
			return err
		}
		for _, transfer := range stale {
			reason := fmt.Sprintf("expired after %s in %s", ttl, status)
			transfer.Status = entities.TransferStatusCancelled
			transfer.CancellationReason = &reason
			cancelledAt := now
			transfer.CancelledAt = &cancelledAt
			transfer.UpdatedAt = now
			if err := s.transferRepo.UpdateStatus(ctx, transfer, status); err != nil {
				// Lost a race with a concurrent transition, skip it
				if apperrors.IsConflict(err) || apperrors.IsNotFound(err) {
					continue
				}
				return err
			}
			if releaseHold {
				if err := s.ledgerRepo.ReleaseReservation(ctx, transfer.ToHospitalID, transfer.BedType); err != nil {
					log.Error().Err(err).Str("transfer_id", transfer.ID).
						Msg("failed to release reservation on expiry")
				}
			}
			expired++
			s.publishUpdate(ctx, transfer)
		}
		return nil
	}

	if err := expire(entities.TransferStatusPending, pendingTTL, false); err != nil {
		return expired, err
	}
	if err := expire(entities.TransferStatusApproved, approvedTTL, true); err != nil {
		return expired, err
	}
	return expired, nil
}

func (s *TransferService) publishUpdate(ctx context.Context, transfer *entities.TransferRequest) {
	from, err := s.hospitalRepo.GetByID(ctx, transfer.FromHospitalID)
	if err != nil {
		log.Warn().Err(err).Str("transfer_id", transfer.ID).Msg("failed to load source hospital for event")
		return
	}
	to, err := s.hospitalRepo.GetByID(ctx, transfer.ToHospitalID)
	if err != nil {
		log.Warn().Err(err).Str("transfer_id", transfer.ID).Msg("failed to load destination hospital for event")
		return
	}
	s.notifier.PublishTransferEvent(ctx, entities.LedgerEventTypeTransferUpdated, from, to, transfer)
}
