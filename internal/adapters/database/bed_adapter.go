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

var bedColumns = []interface{}{
	"id", "hospital_id", "bed_number", "bed_type", "status",
	"ward", "floor", "assigned_patient_id", "assigned_nurse_id",
	"created_at", "updated_at",
}

// BedAdapter implements the BedRepository interface
type BedAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBedAdapter creates a new bed adapter
func NewBedAdapter(client *postgres.Client) repositories.BedRepository {
	return &BedAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new bed record
func (a *BedAdapter) Create(ctx context.Context, bed *entities.Bed) error {
	record := goqu.Record{
		"id":                  bed.ID,
		"hospital_id":         bed.HospitalID,
		"bed_number":          bed.BedNumber,
		"bed_type":            string(bed.BedType),
		"status":              string(bed.Status),
		"ward":                bed.Ward,
		"floor":               bed.Floor,
		"assigned_patient_id": nullString(bed.AssignedPatientID),
		"assigned_nurse_id":   nullString(bed.AssignedNurseID),
		"created_at":          bed.CreatedAt,
		"updated_at":          bed.UpdatedAt,
	}

	query, args, err := a.db.Insert("beds").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err = a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(
				fmt.Sprintf("bed number %s already exists in hospital %s", bed.BedNumber, bed.HospitalID))
		}
		return apperrors.NewInternalError("failed to create bed", err)
	}
	return nil
}

// GetByID retrieves a bed by ID
func (a *BedAdapter) GetByID(ctx context.Context, id string) (*entities.Bed, error) {
	query, args, err := a.db.Select(bedColumns...).
		From("beds").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	bed, err := a.scanBed(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("bed with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get bed", err)
	}
	return bed, nil
}

// Update updates a bed record
func (a *BedAdapter) Update(ctx context.Context, bed *entities.Bed) error {
	bed.UpdatedAt = time.Now()

	record := goqu.Record{
		"bed_number":          bed.BedNumber,
		"bed_type":            string(bed.BedType),
		"status":              string(bed.Status),
		"ward":                bed.Ward,
		"floor":               bed.Floor,
		"assigned_patient_id": nullString(bed.AssignedPatientID),
		"assigned_nurse_id":   nullString(bed.AssignedNurseID),
		"updated_at":          bed.UpdatedAt,
	}

	query, args, err := a.db.Update("beds").
		Set(record).
		Where(goqu.Ex{"id": bed.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update bed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("bed with id %s not found", bed.ID))
	}
	return nil
}

// Delete deletes a bed record
func (a *BedAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("beds").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete bed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("bed with id %s not found", id))
	}
	return nil
}

// ListByHospital lists a hospital's beds, optionally filtered
func (a *BedAdapter) ListByHospital(ctx context.Context, hospitalID string, filter repositories.BedFilter) ([]*entities.Bed, error) {
	ds := a.db.Select(bedColumns...).
		From("beds").
		Where(goqu.Ex{"hospital_id": hospitalID})

	if filter.BedType != "" {
		ds = ds.Where(goqu.Ex{"bed_type": string(filter.BedType)})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.Ward != "" {
		ds = ds.Where(goqu.Ex{"ward": filter.Ward})
	}

	query, args, err := ds.Order(goqu.I("bed_number").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list beds", err)
	}
	defer rows.Close()

	var beds []*entities.Bed
	for rows.Next() {
		bed, err := a.scanBed(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan bed", err)
		}
		beds = append(beds, bed)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate beds", err)
	}

	return beds, nil
}

// CountByType aggregates a hospital's bed records per bed type
func (a *BedAdapter) CountByType(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
	ds := a.db.Select(
		goqu.C("bed_type"),
		goqu.COUNT("*").As("total"),
		goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(entities.BedStatusOccupied)).As("occupied"),
		goqu.L("COUNT(*) FILTER (WHERE status IN (?, ?))",
			string(entities.BedStatusReserved), string(entities.BedStatusMaintenance)).As("blocked"),
	).
		From("beds").
		Where(goqu.Ex{"hospital_id": hospitalID})

	if bedType != "" {
		ds = ds.Where(goqu.Ex{"bed_type": string(bedType)})
	}

	query, args, err := ds.GroupBy("bed_type").ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to aggregate beds", err)
	}
	defer rows.Close()

	var counts []repositories.BedTypeCounts
	for rows.Next() {
		var c repositories.BedTypeCounts
		var bt string
		if err := rows.Scan(&bt, &c.Total, &c.Occupied, &c.Blocked); err != nil {
			return nil, apperrors.NewInternalError("failed to scan bed counts", err)
		}
		c.BedType = entities.BedType(bt)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bed counts", err)
	}

	return counts, nil
}

func (a *BedAdapter) scanBed(row rowScanner) (*entities.Bed, error) {
	bed := &entities.Bed{}
	var bedType, status string
	var patientID, nurseID sql.NullString

	err := row.Scan(
		&bed.ID,
		&bed.HospitalID,
		&bed.BedNumber,
		&bedType,
		&status,
		&bed.Ward,
		&bed.Floor,
		&patientID,
		&nurseID,
		&bed.CreatedAt,
		&bed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bed.BedType = entities.BedType(bedType)
	bed.Status = entities.BedStatus(status)
	if patientID.Valid {
		value := patientID.String
		bed.AssignedPatientID = &value
	}
	if nurseID.Valid {
		value := nurseID.String
		bed.AssignedNurseID = &value
	}

	return bed, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
