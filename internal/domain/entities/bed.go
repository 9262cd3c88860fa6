package entities

import "time"

// BedType categorizes bed capacity tracked independently per hospital.
type BedType string

const (
	BedTypeGeneral     BedType = "general"
	BedTypeICU         BedType = "icu"
	BedTypeVentilator  BedType = "ventilator"
	BedTypeIsolation   BedType = "isolation"
	BedTypePrivate     BedType = "private"
	BedTypeSemiPrivate BedType = "semi-private"
)

// BedTypes lists all recognized bed types.
var BedTypes = []BedType{
	BedTypeGeneral,
	BedTypeICU,
	BedTypeVentilator,
	BedTypeIsolation,
	BedTypePrivate,
	BedTypeSemiPrivate,
}

// Valid reports whether t is a recognized bed type.
func (t BedType) Valid() bool {
	for _, known := range BedTypes {
		if t == known {
			return true
		}
	}
	return false
}

// BedStatus is the operational status of an individual bed.
type BedStatus string

const (
	BedStatusAvailable   BedStatus = "available"
	BedStatusOccupied    BedStatus = "occupied"
	BedStatusReserved    BedStatus = "reserved"
	BedStatusMaintenance BedStatus = "maintenance"
	BedStatusCleaning    BedStatus = "cleaning"
)

// BedStatuses lists all recognized bed statuses.
var BedStatuses = []BedStatus{
	BedStatusAvailable,
	BedStatusOccupied,
	BedStatusReserved,
	BedStatusMaintenance,
	BedStatusCleaning,
}

// Valid reports whether s is a recognized bed status.
func (s BedStatus) Valid() bool {
	for _, known := range BedStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CountsAsBlocked reports whether this status withholds the bed from
// availability without a patient in it. Blocked beds roll up into the
// ledger's reserved count.
func (s BedStatus) CountsAsBlocked() bool {
	return s == BedStatusReserved || s == BedStatusMaintenance
}

// Bed represents a single physical bed owned by a hospital. The set of
// bed records per (hospital, type) is the source of truth the ledger
// aggregates are recomputed from.
type Bed struct {
	ID                string    `json:"id" db:"id"`
	HospitalID        string    `json:"hospital_id" db:"hospital_id"`
	BedNumber         string    `json:"bed_number" db:"bed_number"`
	BedType           BedType   `json:"bed_type" db:"bed_type"`
	Status            BedStatus `json:"status" db:"status"`
	Ward              string    `json:"ward" db:"ward"`
	Floor             string    `json:"floor" db:"floor"`
	AssignedPatientID *string   `json:"assigned_patient_id,omitempty" db:"assigned_patient_id"`
	AssignedNurseID   *string   `json:"assigned_nurse_id,omitempty" db:"assigned_nurse_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
