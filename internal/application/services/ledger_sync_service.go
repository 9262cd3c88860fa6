package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

// LedgerSyncService recomputes bed ledger rows from the authoritative
// set of bed records. Beds in occupied status roll into occupied,
// reserved/maintenance into blocked, everything else into available.
// Transfer holds are not derived from bed records and are preserved
// across a resync.
type LedgerSyncService struct {
	bedRepo      repositories.BedRepository
	ledgerRepo   repositories.BedLedgerRepository
	hospitalRepo repositories.HospitalRepository
	notifier     *NotificationService
}

// NewLedgerSyncService creates a new ledger sync service
func NewLedgerSyncService(
	bedRepo repositories.BedRepository,
	ledgerRepo repositories.BedLedgerRepository,
	hospitalRepo repositories.HospitalRepository,
	notifier *NotificationService,
) *LedgerSyncService {
	return &LedgerSyncService{
		bedRepo:      bedRepo,
		ledgerRepo:   ledgerRepo,
		hospitalRepo: hospitalRepo,
		notifier:     notifier,
	}
}

// Resync recomputes the ledger rows for a hospital. When bedType is
// non-empty only that type is recomputed. Rows whose bed type no
// longer has bed records are deleted unless transfer holds are still
// pending against them.
func (s *LedgerSyncService) Resync(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	hospital, err := s.hospitalRepo.GetByID(ctx, hospitalID)
	if err != nil {
		return err
	}

	counts, err := s.bedRepo.CountByType(ctx, hospitalID, bedType)
	if err != nil {
		return err
	}

	synced := make(map[entities.BedType]bool, len(counts))
	for _, c := range counts {
		if err := s.ledgerRepo.SyncCounts(ctx, hospitalID, c); err != nil {
			return err
		}
		synced[c.BedType] = true

		entry, err := s.ledgerRepo.GetEntry(ctx, hospitalID, c.BedType)
		if err != nil {
			return err
		}
		s.notifier.PublishLedgerUpdate(ctx, hospital, entry)
	}

	return s.dropStaleEntries(ctx, hospital, bedType, synced)
}

// dropStaleEntries removes ledger rows whose bed type has no remaining
// bed records within the resync scope.
func (s *LedgerSyncService) dropStaleEntries(ctx context.Context, hospital *entities.Hospital, scope entities.BedType, synced map[entities.BedType]bool) error {
	existing, err := s.ledgerRepo.ListByHospital(ctx, hospital.ID)
	if err != nil {
		return err
	}

	for _, entry := range existing {
		if synced[entry.BedType] {
			continue
		}
		if scope != "" && entry.BedType != scope {
			continue
		}

		deleted, err := s.ledgerRepo.DeleteIfUnreserved(ctx, hospital.ID, entry.BedType)
		if err != nil {
			return err
		}
		if !deleted {
			// Transfer holds still pending against a bed type with no
			// beds left. Keep the row so the holds can drain, but this
			// needs ward attention.
			log.Warn().
				Str("hospital_id", hospital.ID).
				Str("bed_type", string(entry.BedType)).
				Int("transfer_reserved", entry.TransferReserved).
				Msg("ledger entry has transfer holds but no bed records")
			continue
		}

		gone := &entities.BedLedgerEntry{
			HospitalID: hospital.ID,
			BedType:    entry.BedType,
		}
		s.notifier.PublishLedgerUpdate(ctx, hospital, gone)
	}

	return nil
}
