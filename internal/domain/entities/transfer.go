package entities

import "time"

// TransferStatus is the lifecycle state of a transfer request.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusApproved  TransferStatus = "approved"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusRejected  TransferStatus = "rejected"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// transferTransitions encodes the allowed state machine. Terminal
// states have no outgoing edges; any attempt to leave one is rejected.
var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferStatusPending:   {TransferStatusApproved, TransferStatusRejected, TransferStatusCancelled},
	TransferStatusApproved:  {TransferStatusInTransit, TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected},
	TransferStatusInTransit: {TransferStatusCompleted, TransferStatusCancelled},
	TransferStatusCompleted: {},
	TransferStatusRejected:  {},
	TransferStatusCancelled: {},
}

// Valid reports whether s is a recognized transfer status.
func (s TransferStatus) Valid() bool {
	_, ok := transferTransitions[s]
	return ok
}

// Terminal reports whether s is a terminal status.
func (s TransferStatus) Terminal() bool {
	edges, ok := transferTransitions[s]
	return ok && len(edges) == 0
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	for _, allowed := range transferTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether a request in this status holds a bed
// reservation at the destination. The hold is created at approval and
// either converted to occupancy on completion or released on
// cancellation/rejection.
func (s TransferStatus) HoldsReservation() bool {
	return s == TransferStatusApproved || s == TransferStatusInTransit
}

// TransferRequest represents one inter-hospital patient transfer.
// Distance and travel time are computed once at creation from the two
// hospitals' coordinates and never recomputed; they are nil when either
// hospital lacks coordinates.
type TransferRequest struct {
	ID                 string         `json:"id" db:"id"`
	FromHospitalID     string         `json:"from_hospital_id" db:"from_hospital_id"`
	ToHospitalID       string         `json:"to_hospital_id" db:"to_hospital_id"`
	PatientName        string         `json:"patient_name" db:"patient_name"`
	PatientAge         int            `json:"patient_age" db:"patient_age"`
	PatientGender      string         `json:"patient_gender" db:"patient_gender"`
	BedType            BedType        `json:"bed_type" db:"bed_type"`
	Reason             string         `json:"reason" db:"reason"`
	Status             TransferStatus `json:"status" db:"status"`
	RequestedBy        string         `json:"requested_by" db:"requested_by"`
	ApprovedBy         *string        `json:"approved_by,omitempty" db:"approved_by"`
	DistanceKm         *float64       `json:"distance_km,omitempty" db:"distance_km"`
	EstimatedMinutes   *int           `json:"estimated_minutes,omitempty" db:"estimated_minutes"`
	Notes              string         `json:"notes" db:"notes"`
	CancellationReason *string        `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	RequestedAt        time.Time      `json:"requested_at" db:"requested_at"`
	ApprovedAt         *time.Time     `json:"approved_at,omitempty" db:"approved_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty" db:"cancelled_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// CandidateHospital is a destination ranked by distance that currently
// reports available capacity for the requested bed type.
type CandidateHospital struct {
	HospitalID       string   `json:"hospital_id"`
	Name             string   `json:"name"`
	DistanceKm       float64  `json:"distance_km"`
	EstimatedMinutes int      `json:"estimated_minutes"`
	AvailableBeds    int      `json:"available_beds"`
	TotalBeds        int      `json:"total_beds"`
	OccupiedBeds     int      `json:"occupied_beds"`
	Location         Location `json:"location"`
}

// TransferStatistics groups a hospital's transfer requests by status
// and by bed type.
type TransferStatistics struct {
	HospitalID string         `json:"hospital_id"`
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByBedType  map[string]int `json:"by_bed_type"`
}
