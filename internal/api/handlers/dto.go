package handlers

import (
	"strings"

	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// createTransferRequest is the POST /api/transfers/request payload.
type createTransferRequest struct {
	FromHospitalID string `json:"from_hospital_id"`
	ToHospitalID   string `json:"to_hospital_id"`
	PatientName    string `json:"patient_name"`
	PatientAge     int    `json:"patient_age"`
	PatientGender  string `json:"patient_gender"`
	BedType        string `json:"bed_type"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
}

// Validate collects every invalid field so the caller gets the full
// list in one round trip.
func (req *createTransferRequest) Validate() error {
	var fields []string
	if strings.TrimSpace(req.ToHospitalID) == "" {
		fields = append(fields, "to_hospital_id: required")
	}
	if strings.TrimSpace(req.PatientName) == "" {
		fields = append(fields, "patient_name: required")
	}
	if req.PatientAge < 0 || req.PatientAge > 150 {
		fields = append(fields, "patient_age: must be between 0 and 150")
	}
	if !entities.BedType(req.BedType).Valid() {
		fields = append(fields, "bed_type: unrecognized value "+req.BedType)
	}
	if strings.TrimSpace(req.Reason) == "" {
		fields = append(fields, "reason: required")
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("invalid transfer request", fields)
	}
	return nil
}

func (req *createTransferRequest) toInput(requestedBy string) services.CreateTransferInput {
	return services.CreateTransferInput{
		FromHospitalID: req.FromHospitalID,
		ToHospitalID:   req.ToHospitalID,
		PatientName:    strings.TrimSpace(req.PatientName),
		PatientAge:     req.PatientAge,
		PatientGender:  req.PatientGender,
		BedType:        entities.BedType(req.BedType),
		Reason:         strings.TrimSpace(req.Reason),
		Notes:          req.Notes,
		RequestedBy:    requestedBy,
	}
}

// updateTransferRequest is the PUT /api/transfers/{transferId} payload.
type updateTransferRequest struct {
	Status             string `json:"status"`
	CancellationReason string `json:"cancellation_reason"`
	Notes              string `json:"notes"`
}

func (req *updateTransferRequest) Validate() error {
	var fields []string
	if strings.TrimSpace(req.Status) == "" {
		fields = append(fields, "status: required")
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("invalid status update", fields)
	}
	return nil
}

// upsertLedgerRequest is the PUT /api/ledger/{hospitalId}/{bedType}
// payload. Counts are validated in the service where the bed type from
// the path is also known.
type upsertLedgerRequest struct {
	TotalBeds    int `json:"total_beds"`
	OccupiedBeds int `json:"occupied_beds"`
	BlockedBeds  int `json:"blocked_beds"`
}

// createLedgerRequest is the POST /api/ledger/{hospitalId} payload. The
// bed type rides in the body instead of the path.
type createLedgerRequest struct {
	BedType      string `json:"bed_type"`
	TotalBeds    int    `json:"total_beds"`
	OccupiedBeds int    `json:"occupied_beds"`
	BlockedBeds  int    `json:"blocked_beds"`
}

// createBedRequest is the POST /api/hospitals/{hospitalId}/beds payload.
type createBedRequest struct {
	BedNumber string `json:"bed_number"`
	BedType   string `json:"bed_type"`
	Status    string `json:"status"`
	Ward      string `json:"ward"`
	Floor     string `json:"floor"`
}

func (req *createBedRequest) Validate() error {
	var fields []string
	if strings.TrimSpace(req.BedNumber) == "" {
		fields = append(fields, "bed_number: required")
	}
	if !entities.BedType(req.BedType).Valid() {
		fields = append(fields, "bed_type: unrecognized value "+req.BedType)
	}
	if req.Status != "" && !entities.BedStatus(req.Status).Valid() {
		fields = append(fields, "status: unrecognized value "+req.Status)
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("invalid bed", fields)
	}
	return nil
}

// updateBedRequest is the PATCH /api/beds/{id} payload. Absent fields
// leave the bed unchanged.
type updateBedRequest struct {
	BedType           *string `json:"bed_type"`
	Status            *string `json:"status"`
	Ward              *string `json:"ward"`
	Floor             *string `json:"floor"`
	AssignedPatientID *string `json:"assigned_patient_id"`
	AssignedNurseID   *string `json:"assigned_nurse_id"`
}

func (req *updateBedRequest) Validate() error {
	var fields []string
	if req.BedType != nil && !entities.BedType(*req.BedType).Valid() {
		fields = append(fields, "bed_type: unrecognized value "+*req.BedType)
	}
	if req.Status != nil && !entities.BedStatus(*req.Status).Valid() {
		fields = append(fields, "status: unrecognized value "+*req.Status)
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError("invalid bed update", fields)
	}
	return nil
}

func (req *updateBedRequest) toInput() services.UpdateBedInput {
	input := services.UpdateBedInput{
		Ward:              req.Ward,
		Floor:             req.Floor,
		AssignedPatientID: req.AssignedPatientID,
		AssignedNurseID:   req.AssignedNurseID,
	}
	if req.BedType != nil {
		bedType := entities.BedType(*req.BedType)
		input.BedType = &bedType
	}
	if req.Status != nil {
		status := entities.BedStatus(*req.Status)
		input.Status = &status
	}
	return input
}
