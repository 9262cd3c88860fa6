package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

var hospitalColumns = []interface{}{
	"id", "code", "name",
	"street", "city", "state", "zip_code", "country",
	"latitude", "longitude",
	"phone_number", "email", "is_active",
	"created_at", "updated_at",
}

// HospitalAdapter implements the read-only HospitalRepository interface
type HospitalAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewHospitalAdapter creates a new hospital adapter
func NewHospitalAdapter(client *postgres.Client) repositories.HospitalRepository {
	return &HospitalAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a hospital by ID
func (a *HospitalAdapter) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	query, args, err := a.db.Select(hospitalColumns...).
		From("hospitals").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	hospital, err := a.scanHospital(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hospital", err)
	}
	return hospital, nil
}

// GetByCode retrieves a hospital by its short code
func (a *HospitalAdapter) GetByCode(ctx context.Context, code string) (*entities.Hospital, error) {
	query, args, err := a.db.Select(hospitalColumns...).
		From("hospitals").
		Where(goqu.Ex{"code": code}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	hospital, err := a.scanHospital(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hospital with code %s not found", code))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hospital", err)
	}
	return hospital, nil
}

// ListActive lists active hospitals in insertion order
func (a *HospitalAdapter) ListActive(ctx context.Context) ([]*entities.Hospital, error) {
	query, args, err := a.db.Select(hospitalColumns...).
		From("hospitals").
		Where(goqu.Ex{"is_active": true}).
		Order(goqu.I("created_at").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list hospitals", err)
	}
	defer rows.Close()

	var hospitals []*entities.Hospital
	for rows.Next() {
		hospital, err := a.scanHospital(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan hospital", err)
		}
		hospitals = append(hospitals, hospital)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate hospitals", err)
	}

	return hospitals, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (a *HospitalAdapter) scanHospital(row rowScanner) (*entities.Hospital, error) {
	hospital := &entities.Hospital{}
	var latitude, longitude sql.NullFloat64

	err := row.Scan(
		&hospital.ID,
		&hospital.Code,
		&hospital.Name,
		&hospital.Address.Street,
		&hospital.Address.City,
		&hospital.Address.State,
		&hospital.Address.ZipCode,
		&hospital.Address.Country,
		&latitude,
		&longitude,
		&hospital.PhoneNumber,
		&hospital.Email,
		&hospital.IsActive,
		&hospital.CreatedAt,
		&hospital.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if latitude.Valid {
		hospital.Location.Latitude = latitude.Float64
	}
	if longitude.Valid {
		hospital.Location.Longitude = longitude.Float64
	}

	return hospital, nil
}
