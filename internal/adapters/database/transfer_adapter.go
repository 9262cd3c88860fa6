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

var transferColumns = []interface{}{
	"id", "from_hospital_id", "to_hospital_id",
	"patient_name", "patient_age", "patient_gender",
	"bed_type", "reason", "status", "requested_by", "approved_by",
	"distance_km", "estimated_minutes", "notes", "cancellation_reason",
	"requested_at", "approved_at", "completed_at", "cancelled_at", "updated_at",
}

// TransferAdapter implements the TransferRepository interface
type TransferAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTransferAdapter creates a new transfer adapter
func NewTransferAdapter(client *postgres.Client) repositories.TransferRepository {
	return &TransferAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create persists a new transfer request
func (a *TransferAdapter) Create(ctx context.Context, transfer *entities.TransferRequest) error {
	record := goqu.Record{
		"id":                  transfer.ID,
		"from_hospital_id":    transfer.FromHospitalID,
		"to_hospital_id":      transfer.ToHospitalID,
		"patient_name":        transfer.PatientName,
		"patient_age":         transfer.PatientAge,
		"patient_gender":      transfer.PatientGender,
		"bed_type":            string(transfer.BedType),
		"reason":              transfer.Reason,
		"status":              string(transfer.Status),
		"requested_by":        transfer.RequestedBy,
		"approved_by":         nullString(transfer.ApprovedBy),
		"distance_km":         nullFloat64(transfer.DistanceKm),
		"estimated_minutes":   nullInt(transfer.EstimatedMinutes),
		"notes":               transfer.Notes,
		"cancellation_reason": nullString(transfer.CancellationReason),
		"requested_at":        transfer.RequestedAt,
		"approved_at":         nullTime(transfer.ApprovedAt),
		"completed_at":        nullTime(transfer.CompletedAt),
		"cancelled_at":        nullTime(transfer.CancelledAt),
		"updated_at":          transfer.UpdatedAt,
	}

	query, args, err := a.db.Insert("transfer_requests").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create transfer request", err)
	}
	return nil
}

// GetByID retrieves a transfer request by ID
func (a *TransferAdapter) GetByID(ctx context.Context, id string) (*entities.TransferRequest, error) {
	query, args, err := a.db.Select(transferColumns...).
		From("transfer_requests").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	transfer, err := a.scanTransfer(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("transfer request %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get transfer request", err)
	}
	return transfer, nil
}

// UpdateStatus persists a status transition guarded on the expected
// current status. A concurrent transition that got there first leaves
// zero rows affected, surfaced as a conflict.
func (a *TransferAdapter) UpdateStatus(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
	record := goqu.Record{
		"status":              string(transfer.Status),
		"approved_by":         nullString(transfer.ApprovedBy),
		"notes":               transfer.Notes,
		"cancellation_reason": nullString(transfer.CancellationReason),
		"approved_at":         nullTime(transfer.ApprovedAt),
		"completed_at":        nullTime(transfer.CompletedAt),
		"cancelled_at":        nullTime(transfer.CancelledAt),
		"updated_at":          transfer.UpdatedAt,
	}

	query, args, err := a.db.Update("transfer_requests").
		Set(record).
		Where(goqu.Ex{"id": transfer.ID, "status": string(expected)}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update transfer request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		if _, err := a.GetByID(ctx, transfer.ID); err != nil {
			return err
		}
		return apperrors.NewConflictError(
			fmt.Sprintf("transfer request %s is no longer %s", transfer.ID, expected))
	}
	return nil
}

// ListByHospital lists requests touching a hospital, newest first
func (a *TransferAdapter) ListByHospital(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error) {
	ds := a.db.Select(transferColumns...).From("transfer_requests")

	switch filter.Direction {
	case repositories.TransferDirectionFrom:
		ds = ds.Where(goqu.Ex{"from_hospital_id": hospitalID})
	case repositories.TransferDirectionTo:
		ds = ds.Where(goqu.Ex{"to_hospital_id": hospitalID})
	default:
		ds = ds.Where(goqu.Or(
			goqu.Ex{"from_hospital_id": hospitalID},
			goqu.Ex{"to_hospital_id": hospitalID},
		))
	}

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}

	ds = ds.Order(goqu.I("requested_at").Desc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list transfer requests", err)
	}
	defer rows.Close()

	var transfers []*entities.TransferRequest
	for rows.Next() {
		transfer, err := a.scanTransfer(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan transfer request", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate transfer requests", err)
	}

	return transfers, nil
}

// ListStale lists requests in the given status requested before the cutoff
func (a *TransferAdapter) ListStale(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error) {
	query, args, err := a.db.Select(transferColumns...).
		From("transfer_requests").
		Where(
			goqu.Ex{"status": string(status)},
			goqu.C("requested_at").Lt(before),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list stale transfer requests", err)
	}
	defer rows.Close()

	var transfers []*entities.TransferRequest
	for rows.Next() {
		transfer, err := a.scanTransfer(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan transfer request", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate transfer requests", err)
	}

	return transfers, nil
}

// Statistics groups a hospital's requests by status and bed type
func (a *TransferAdapter) Statistics(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error) {
	query, args, err := a.db.Select(
		goqu.C("status"),
		goqu.C("bed_type"),
		goqu.COUNT("*").As("count"),
	).
		From("transfer_requests").
		Where(goqu.Or(
			goqu.Ex{"from_hospital_id": hospitalID},
			goqu.Ex{"to_hospital_id": hospitalID},
		)).
		GroupBy("status", "bed_type").
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query transfer statistics", err)
	}
	defer rows.Close()

	stats := &entities.TransferStatistics{
		HospitalID: hospitalID,
		ByStatus:   make(map[string]int),
		ByBedType:  make(map[string]int),
	}
	for rows.Next() {
		var status, bedType string
		var count int
		if err := rows.Scan(&status, &bedType, &count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan transfer statistics", err)
		}
		stats.ByStatus[status] += count
		stats.ByBedType[bedType] += count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate transfer statistics", err)
	}

	return stats, nil
}

func (a *TransferAdapter) scanTransfer(row rowScanner) (*entities.TransferRequest, error) {
	transfer := &entities.TransferRequest{}
	var bedType, status string
	var approvedBy, cancellationReason sql.NullString
	var distanceKm sql.NullFloat64
	var estimatedMinutes sql.NullInt64
	var approvedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&transfer.ID,
		&transfer.FromHospitalID,
		&transfer.ToHospitalID,
		&transfer.PatientName,
		&transfer.PatientAge,
		&transfer.PatientGender,
		&bedType,
		&transfer.Reason,
		&status,
		&transfer.RequestedBy,
		&approvedBy,
		&distanceKm,
		&estimatedMinutes,
		&transfer.Notes,
		&cancellationReason,
		&transfer.RequestedAt,
		&approvedAt,
		&completedAt,
		&cancelledAt,
		&transfer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	transfer.BedType = entities.BedType(bedType)
	transfer.Status = entities.TransferStatus(status)
	if approvedBy.Valid {
		value := approvedBy.String
		transfer.ApprovedBy = &value
	}
	if cancellationReason.Valid {
		value := cancellationReason.String
		transfer.CancellationReason = &value
	}
	if distanceKm.Valid {
		value := distanceKm.Float64
		transfer.DistanceKm = &value
	}
	if estimatedMinutes.Valid {
		value := int(estimatedMinutes.Int64)
		transfer.EstimatedMinutes = &value
	}
	if approvedAt.Valid {
		value := approvedAt.Time
		transfer.ApprovedAt = &value
	}
	if completedAt.Valid {
		value := completedAt.Time
		transfer.CompletedAt = &value
	}
	if cancelledAt.Valid {
		value := cancelledAt.Time
		transfer.CancelledAt = &value
	}

	return transfer, nil
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
