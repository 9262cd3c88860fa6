package services

import (
	"context"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// CapacityService is the read surface over the bed ledger plus the ops
// upsert path that bypasses the transfer orchestrator.
type CapacityService struct {
	ledgerRepo   repositories.BedLedgerRepository
	hospitalRepo repositories.HospitalRepository
	notifier     *NotificationService
}

// NewCapacityService creates a new capacity service
func NewCapacityService(
	ledgerRepo repositories.BedLedgerRepository,
	hospitalRepo repositories.HospitalRepository,
	notifier *NotificationService,
) *CapacityService {
	return &CapacityService{
		ledgerRepo:   ledgerRepo,
		hospitalRepo: hospitalRepo,
		notifier:     notifier,
	}
}

// CapacityStatus is one bed type's counters as exposed to callers.
type CapacityStatus struct {
	BedType       entities.BedType `json:"bed_type"`
	TotalBeds     int              `json:"total_beds"`
	OccupiedBeds  int              `json:"occupied_beds"`
	ReservedBeds  int              `json:"reserved_beds"`
	AvailableBeds int              `json:"available_beds"`
	Utilization   float64          `json:"utilization"`
}

// HospitalCapacity is the full capacity picture for one hospital.
type HospitalCapacity struct {
	HospitalID     string                    `json:"hospital_id"`
	IsFull         bool                      `json:"is_full"`
	CapacityStatus []CapacityStatus          `json:"capacity_status"`
	Summary        *entities.CapacitySummary `json:"summary"`
}

// GetCapacity returns a hospital's capacity, optionally scoped to one bed type
func (s *CapacityService) GetCapacity(ctx context.Context, hospitalID string, bedType entities.BedType) (*HospitalCapacity, error) {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}

	var entries []*entities.BedLedgerEntry
	if bedType != "" {
		if !bedType.Valid() {
			return nil, apperrors.NewValidationError("unrecognized bed type: " + string(bedType))
		}
		entry, err := s.ledgerRepo.GetEntry(ctx, hospitalID, bedType)
		if err != nil {
			if apperrors.IsNotFound(err) {
				// No beds of this type: report empty capacity, not 404
				entries = nil
			} else {
				return nil, err
			}
		} else {
			entries = []*entities.BedLedgerEntry{entry}
		}
	} else {
		var err error
		entries, err = s.ledgerRepo.ListByHospital(ctx, hospitalID)
		if err != nil {
			return nil, err
		}
	}

	capacity := &HospitalCapacity{
		HospitalID:     hospitalID,
		CapacityStatus: make([]CapacityStatus, 0, len(entries)),
		Summary:        entities.Summarize(hospitalID, entries),
	}
	for _, entry := range entries {
		capacity.CapacityStatus = append(capacity.CapacityStatus, CapacityStatus{
			BedType:       entry.BedType,
			TotalBeds:     entry.TotalBeds,
			OccupiedBeds:  entry.OccupiedBeds,
			ReservedBeds:  entry.ReservedBeds(),
			AvailableBeds: entry.AvailableBeds,
			Utilization:   entry.Utilization(),
		})
	}
	capacity.IsFull = capacity.Summary.IsFull
	return capacity, nil
}

// ListEntries returns the raw ledger rows for a hospital
func (s *CapacityService) ListEntries(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListByHospital(ctx, hospitalID)
}

// UpsertEntryInput carries the ops-tooling counters for one ledger row.
type UpsertEntryInput struct {
	BedType      entities.BedType
	TotalBeds    int
	OccupiedBeds int
	BlockedBeds  int
}

// UpsertEntry writes a ledger row directly. This is the ops escape
// hatch; the row's transfer holds are preserved and the updated entry
// is broadcast like any other ledger change.
func (s *CapacityService) UpsertEntry(ctx context.Context, hospitalID string, input UpsertEntryInput) (*entities.BedLedgerEntry, error) {
	hospital, err := s.hospitalRepo.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	var fields []string
	if !input.BedType.Valid() {
		fields = append(fields, "bed_type: unrecognized value "+string(input.BedType))
	}
	if input.TotalBeds < 0 {
		fields = append(fields, "total_beds: must be >= 0")
	}
	if input.OccupiedBeds < 0 {
		fields = append(fields, "occupied_beds: must be >= 0")
	}
	if input.BlockedBeds < 0 {
		fields = append(fields, "blocked_beds: must be >= 0")
	}
	if input.OccupiedBeds+input.BlockedBeds > input.TotalBeds {
		fields = append(fields, "total_beds: must cover occupied and blocked beds")
	}
	if len(fields) > 0 {
		return nil, apperrors.NewFieldValidationError("invalid ledger entry", fields)
	}

	entry := &entities.BedLedgerEntry{
		HospitalID:   hospitalID,
		BedType:      input.BedType,
		TotalBeds:    input.TotalBeds,
		OccupiedBeds: input.OccupiedBeds,
		BlockedBeds:  input.BlockedBeds,
	}
	if err := s.ledgerRepo.Upsert(ctx, entry); err != nil {
		return nil, err
	}

	updated, err := s.ledgerRepo.GetEntry(ctx, hospitalID, input.BedType)
	if err != nil {
		return nil, err
	}
	s.notifier.PublishLedgerUpdate(ctx, hospital, updated)
	return updated, nil
}
