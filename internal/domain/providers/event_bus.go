package providers

import (
	"context"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to
// real-time capacity and transfer events. Consumers (dashboards, the
// alerting UI) never mutate state through it.
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.LedgerEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.LedgerEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event scopes
const (
	// EventChannelLedgerUpdates is the channel carrying every ledger update
	EventChannelLedgerUpdates = "ledger:updates"

	// EventChannelHospitalPrefix is the prefix for hospital-specific channels
	EventChannelHospitalPrefix = "hospital:"
)

// GetHospitalChannel returns the channel name for a specific hospital
func GetHospitalChannel(hospitalID string) string {
	return EventChannelHospitalPrefix + hospitalID
}
