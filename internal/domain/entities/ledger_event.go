package entities

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEventType represents the type of real-time capacity event
type LedgerEventType string

const (
	LedgerEventTypeCapacityUpdate   LedgerEventType = "capacity_update"
	LedgerEventTypeTransferCreated  LedgerEventType = "transfer_created"
	LedgerEventTypeTransferUpdated  LedgerEventType = "transfer_updated"
)

// LedgerEvent is a real-time update broadcast to capacity dashboards.
// Capacity events carry the full updated ledger entry; transfer events
// carry the request after the transition.
type LedgerEvent struct {
	ID         string           `json:"id"`
	HospitalID string           `json:"hospital_id"`
	EventType  LedgerEventType  `json:"event_type"`
	Timestamp  time.Time        `json:"timestamp"`
	Location   Location         `json:"location"`
	Entry      *BedLedgerEntry  `json:"entry,omitempty"`
	Transfer   *TransferRequest `json:"transfer,omitempty"`
}

// NewCapacityEvent creates an event carrying the full updated ledger entry.
func NewCapacityEvent(hospitalID string, location Location, entry *BedLedgerEntry) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.New().String(),
		HospitalID: hospitalID,
		EventType:  LedgerEventTypeCapacityUpdate,
		Timestamp:  time.Now(),
		Location:   location,
		Entry:      entry,
	}
}

// NewTransferEvent creates an event for a transfer lifecycle change.
func NewTransferEvent(eventType LedgerEventType, hospitalID string, location Location, transfer *TransferRequest) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.New().String(),
		HospitalID: hospitalID,
		EventType:  eventType,
		Timestamp:  time.Now(),
		Location:   location,
		Transfer:   transfer,
	}
}
