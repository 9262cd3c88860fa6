package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// BedService handles ward-staff mutations of individual bed records.
// Every mutation resyncs the ledger for the affected bed type(s).
type BedService struct {
	bedRepo      repositories.BedRepository
	hospitalRepo repositories.HospitalRepository
	sync         *LedgerSyncService
}

// NewBedService creates a new bed service
func NewBedService(
	bedRepo repositories.BedRepository,
	hospitalRepo repositories.HospitalRepository,
	sync *LedgerSyncService,
) *BedService {
	return &BedService{
		bedRepo:      bedRepo,
		hospitalRepo: hospitalRepo,
		sync:         sync,
	}
}

// CreateBedInput carries the fields for a new bed record.
type CreateBedInput struct {
	HospitalID string
	BedNumber  string
	BedType    entities.BedType
	Status     entities.BedStatus
	Ward       string
	Floor      string
}

// Create creates a bed record and resyncs its ledger row
func (s *BedService) Create(ctx context.Context, input CreateBedInput) (*entities.Bed, error) {
	if _, err := s.hospitalRepo.GetByID(ctx, input.HospitalID); err != nil {
		return nil, err
	}
	if !input.BedType.Valid() {
		return nil, apperrors.NewValidationError("unrecognized bed type: " + string(input.BedType))
	}
	status := input.Status
	if status == "" {
		status = entities.BedStatusAvailable
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unrecognized bed status: " + string(status))
	}

	now := time.Now()
	bed := &entities.Bed{
		ID:         uuid.New().String(),
		HospitalID: input.HospitalID,
		BedNumber:  input.BedNumber,
		BedType:    input.BedType,
		Status:     status,
		Ward:       input.Ward,
		Floor:      input.Floor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.bedRepo.Create(ctx, bed); err != nil {
		return nil, err
	}

	if err := s.sync.Resync(ctx, bed.HospitalID, bed.BedType); err != nil {
		return nil, err
	}
	return bed, nil
}

// UpdateBedInput carries the mutable fields of a bed record. Nil
// pointers leave the field unchanged.
type UpdateBedInput struct {
	BedType           *entities.BedType
	Status            *entities.BedStatus
	Ward              *string
	Floor             *string
	AssignedPatientID *string
	AssignedNurseID   *string
}

// Update applies a partial update to a bed record. When the bed type
// changes, both the old and the new type are resynced so no stale
// ledger row survives.
func (s *BedService) Update(ctx context.Context, bedID string, input UpdateBedInput) (*entities.Bed, error) {
	bed, err := s.bedRepo.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}

	previousType := bed.BedType

	if input.BedType != nil {
		if !input.BedType.Valid() {
			return nil, apperrors.NewValidationError("unrecognized bed type: " + string(*input.BedType))
		}
		bed.BedType = *input.BedType
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("unrecognized bed status: " + string(*input.Status))
		}
		bed.Status = *input.Status
	}
	if input.Ward != nil {
		bed.Ward = *input.Ward
	}
	if input.Floor != nil {
		bed.Floor = *input.Floor
	}
	if input.AssignedPatientID != nil {
		bed.AssignedPatientID = input.AssignedPatientID
	}
	if input.AssignedNurseID != nil {
		bed.AssignedNurseID = input.AssignedNurseID
	}

	if err := s.bedRepo.Update(ctx, bed); err != nil {
		return nil, err
	}

	if err := s.sync.Resync(ctx, bed.HospitalID, bed.BedType); err != nil {
		return nil, err
	}
	if bed.BedType != previousType {
		if err := s.sync.Resync(ctx, bed.HospitalID, previousType); err != nil {
			return nil, err
		}
	}
	return bed, nil
}

// Delete removes a bed record and resyncs its ledger row
func (s *BedService) Delete(ctx context.Context, bedID string) error {
	bed, err := s.bedRepo.GetByID(ctx, bedID)
	if err != nil {
		return err
	}

	if err := s.bedRepo.Delete(ctx, bedID); err != nil {
		return err
	}

	return s.sync.Resync(ctx, bed.HospitalID, bed.BedType)
}

// List lists a hospital's beds
func (s *BedService) List(ctx context.Context, hospitalID string, filter repositories.BedFilter) ([]*entities.Bed, error) {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.bedRepo.ListByHospital(ctx, hospitalID, filter)
}
