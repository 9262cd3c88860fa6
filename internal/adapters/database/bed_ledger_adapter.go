package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

var ledgerColumns = []interface{}{
	"hospital_id", "bed_type", "total_beds", "occupied_beds",
	"blocked_beds", "transfer_reserved", "available_beds", "last_updated",
}

// BedLedgerAdapter implements the BedLedgerRepository interface.
//
// Every counter mutation is a single conditional UPDATE so the
// capacity check and the decrement happen in one statement; two
// concurrent approvals racing for the last bed serialize on the row
// and exactly one sees available_beds > 0.
type BedLedgerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBedLedgerAdapter creates a new bed ledger adapter
func NewBedLedgerAdapter(client *postgres.Client) repositories.BedLedgerRepository {
	return &BedLedgerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetEntry retrieves one ledger row
func (a *BedLedgerAdapter) GetEntry(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
	query, args, err := a.db.Select(ledgerColumns...).
		From("bed_ledger").
		Where(goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	entry, err := a.scanEntry(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("no %s ledger entry for hospital %s", bedType, hospitalID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get ledger entry", err)
	}
	return entry, nil
}

// ListByHospital lists all ledger rows for a hospital
func (a *BedLedgerAdapter) ListByHospital(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
	query, args, err := a.db.Select(ledgerColumns...).
		From("bed_ledger").
		Where(goqu.Ex{"hospital_id": hospitalID}).
		Order(goqu.I("bed_type").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.queryEntries(ctx, query, args)
}

// ListAvailableByType lists rows for one bed type with available capacity
func (a *BedLedgerAdapter) ListAvailableByType(ctx context.Context, bedType entities.BedType) ([]*entities.BedLedgerEntry, error) {
	query, args, err := a.db.Select(ledgerColumns...).
		From("bed_ledger").
		Where(
			goqu.Ex{"bed_type": string(bedType)},
			goqu.C("available_beds").Gt(0),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.queryEntries(ctx, query, args)
}

// Upsert writes a full row from the ops tooling surface. The row's
// transfer_reserved hold count is preserved on conflict; available is
// recomputed against it.
func (a *BedLedgerAdapter) Upsert(ctx context.Context, entry *entities.BedLedgerEntry) error {
	entry.LastUpdated = time.Now()
	available := entry.TotalBeds - entry.OccupiedBeds - entry.BlockedBeds
	if available < 0 {
		available = 0
	}

	record := goqu.Record{
		"hospital_id":       entry.HospitalID,
		"bed_type":          string(entry.BedType),
		"total_beds":        entry.TotalBeds,
		"occupied_beds":     entry.OccupiedBeds,
		"blocked_beds":      entry.BlockedBeds,
		"transfer_reserved": 0,
		"available_beds":    available,
		"last_updated":      entry.LastUpdated,
	}

	query, args, err := a.db.Insert("bed_ledger").
		Rows(record).
		OnConflict(goqu.DoUpdate("hospital_id, bed_type", goqu.Record{
			"total_beds":    entry.TotalBeds,
			"occupied_beds": entry.OccupiedBeds,
			"blocked_beds":  entry.BlockedBeds,
			"available_beds": goqu.L(
				"GREATEST(EXCLUDED.total_beds - EXCLUDED.occupied_beds - EXCLUDED.blocked_beds - bed_ledger.transfer_reserved, 0)"),
			"last_updated": entry.LastUpdated,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to upsert ledger entry", err)
	}
	return nil
}

// SyncCounts upserts the record-derived counters for one row while
// preserving its transfer_reserved hold count.
func (a *BedLedgerAdapter) SyncCounts(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error {
	now := time.Now()
	available := counts.Total - counts.Occupied - counts.Blocked
	if available < 0 {
		available = 0
	}

	record := goqu.Record{
		"hospital_id":       hospitalID,
		"bed_type":          string(counts.BedType),
		"total_beds":        counts.Total,
		"occupied_beds":     counts.Occupied,
		"blocked_beds":      counts.Blocked,
		"transfer_reserved": 0,
		"available_beds":    available,
		"last_updated":      now,
	}

	query, args, err := a.db.Insert("bed_ledger").
		Rows(record).
		OnConflict(goqu.DoUpdate("hospital_id, bed_type", goqu.Record{
			"total_beds":    counts.Total,
			"occupied_beds": counts.Occupied,
			"blocked_beds":  counts.Blocked,
			"available_beds": goqu.L(
				"GREATEST(EXCLUDED.total_beds - EXCLUDED.occupied_beds - EXCLUDED.blocked_beds - bed_ledger.transfer_reserved, 0)"),
			"last_updated": now,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build sync query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to sync ledger entry", err)
	}
	return nil
}

// DeleteIfUnreserved removes a row only when no transfer holds remain
func (a *BedLedgerAdapter) DeleteIfUnreserved(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
	query, args, err := a.db.Delete("bed_ledger").
		Where(
			goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)},
			goqu.C("transfer_reserved").Eq(0),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to delete ledger entry", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// Reserve atomically holds one available bed for a transfer
func (a *BedLedgerAdapter) Reserve(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	query, args, err := a.db.Update("bed_ledger").
		Set(goqu.Record{
			"transfer_reserved": goqu.L("transfer_reserved + 1"),
			"available_beds":    goqu.L("available_beds - 1"),
			"last_updated":      time.Now(),
		}).
		Where(
			goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)},
			goqu.C("available_beds").Gt(0),
		).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reserve query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to reserve bed", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		// Row absent and row exhausted look the same here
		if _, err := a.GetEntry(ctx, hospitalID, bedType); err != nil {
			return err
		}
		return apperrors.NewNoCapacityError(
			fmt.Sprintf("no available %s beds at hospital %s", bedType, hospitalID))
	}
	return nil
}

// ReleaseReservation returns one held bed to availability. The hold
// count floors at zero; available is recomputed from the row.
func (a *BedLedgerAdapter) ReleaseReservation(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	query, args, err := a.db.Update("bed_ledger").
		Set(goqu.Record{
			"transfer_reserved": goqu.L("GREATEST(transfer_reserved - 1, 0)"),
			"available_beds": goqu.L(
				"GREATEST(total_beds - occupied_beds - blocked_beds - GREATEST(transfer_reserved - 1, 0), 0)"),
			"last_updated": time.Now(),
		}).
		Where(goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to release reservation", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(
			fmt.Sprintf("no %s ledger entry for hospital %s", bedType, hospitalID))
	}
	return nil
}

// ConfirmArrival converts one held bed into an occupied bed
func (a *BedLedgerAdapter) ConfirmArrival(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	query, args, err := a.db.Update("bed_ledger").
		Set(goqu.Record{
			"occupied_beds":     goqu.L("occupied_beds + 1"),
			"transfer_reserved": goqu.L("GREATEST(transfer_reserved - 1, 0)"),
			"available_beds": goqu.L(
				"GREATEST(total_beds - (occupied_beds + 1) - blocked_beds - GREATEST(transfer_reserved - 1, 0), 0)"),
			"last_updated": time.Now(),
		}).
		Where(goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build arrival query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to confirm arrival", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(
			fmt.Sprintf("no %s ledger entry for hospital %s", bedType, hospitalID))
	}
	return nil
}

// ReleaseOccupied frees one occupied bed at the source hospital on
// transfer completion. A hospital without an occupied bed of the type
// is not an error.
func (a *BedLedgerAdapter) ReleaseOccupied(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
	query, args, err := a.db.Update("bed_ledger").
		Set(goqu.Record{
			"occupied_beds": goqu.L("occupied_beds - 1"),
			"available_beds": goqu.L(
				"GREATEST(total_beds - (occupied_beds - 1) - blocked_beds - transfer_reserved, 0)"),
			"last_updated": time.Now(),
		}).
		Where(
			goqu.Ex{"hospital_id": hospitalID, "bed_type": string(bedType)},
			goqu.C("occupied_beds").Gt(0),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build discharge query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to release occupied bed", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

func (a *BedLedgerAdapter) queryEntries(ctx context.Context, query string, args []interface{}) ([]*entities.BedLedgerEntry, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query ledger entries", err)
	}
	defer rows.Close()

	var entries []*entities.BedLedgerEntry
	for rows.Next() {
		entry, err := a.scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan ledger entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate ledger entries", err)
	}

	return entries, nil
}

func (a *BedLedgerAdapter) scanEntry(row rowScanner) (*entities.BedLedgerEntry, error) {
	entry := &entities.BedLedgerEntry{}
	var bedType string

	err := row.Scan(
		&entry.HospitalID,
		&bedType,
		&entry.TotalBeds,
		&entry.OccupiedBeds,
		&entry.BlockedBeds,
		&entry.TransferReserved,
		&entry.AvailableBeds,
		&entry.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	entry.BedType = entities.BedType(bedType)
	return entry, nil
}
