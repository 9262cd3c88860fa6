package entities

import "time"

// BedLedgerEntry holds the aggregated bed counters for one
// (hospital, bed type) pair.
//
// The reserved count has two components that are persisted separately:
// BlockedBeds is derived from bed records sitting in reserved or
// maintenance status, while TransferReserved counts holds created by
// transfer approvals. Resync recomputes the former and never touches
// the latter, so a recompute running next to an approval cannot
// clobber a just-reserved bed.
type BedLedgerEntry struct {
	HospitalID       string    `json:"hospital_id" db:"hospital_id"`
	BedType          BedType   `json:"bed_type" db:"bed_type"`
	TotalBeds        int       `json:"total_beds" db:"total_beds"`
	OccupiedBeds     int       `json:"occupied_beds" db:"occupied_beds"`
	BlockedBeds      int       `json:"blocked_beds" db:"blocked_beds"`
	TransferReserved int       `json:"transfer_reserved" db:"transfer_reserved"`
	AvailableBeds    int       `json:"available_beds" db:"available_beds"`
	LastUpdated      time.Time `json:"last_updated" db:"last_updated"`
}

// ReservedBeds is the externally visible reserved counter: beds blocked
// by ward staff plus beds held for inbound transfers.
func (e *BedLedgerEntry) ReservedBeds() int {
	return e.BlockedBeds + e.TransferReserved
}

// Balanced reports whether the counters satisfy
// total == occupied + reserved + available.
func (e *BedLedgerEntry) Balanced() bool {
	return e.TotalBeds == e.OccupiedBeds+e.ReservedBeds()+e.AvailableBeds
}

// Utilization returns occupied/total as a percentage, 0 for an empty type.
func (e *BedLedgerEntry) Utilization() float64 {
	if e.TotalBeds == 0 {
		return 0
	}
	return float64(e.OccupiedBeds) / float64(e.TotalBeds) * 100
}

// CapacitySummary aggregates a hospital's ledger across bed types.
type CapacitySummary struct {
	HospitalID    string    `json:"hospital_id"`
	TotalBeds     int       `json:"total_beds"`
	OccupiedBeds  int       `json:"occupied_beds"`
	ReservedBeds  int       `json:"reserved_beds"`
	AvailableBeds int       `json:"available_beds"`
	IsFull        bool      `json:"is_full"`
	LastUpdated   time.Time `json:"last_updated"`
}

// Summarize rolls a set of ledger entries up into a hospital-wide summary.
func Summarize(hospitalID string, entries []*BedLedgerEntry) *CapacitySummary {
	summary := &CapacitySummary{HospitalID: hospitalID}
	for _, entry := range entries {
		summary.TotalBeds += entry.TotalBeds
		summary.OccupiedBeds += entry.OccupiedBeds
		summary.ReservedBeds += entry.ReservedBeds()
		summary.AvailableBeds += entry.AvailableBeds
		if entry.LastUpdated.After(summary.LastUpdated) {
			summary.LastUpdated = entry.LastUpdated
		}
	}
	summary.IsFull = summary.AvailableBeds == 0
	return summary
}
