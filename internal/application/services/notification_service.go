package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/providers"
)

// NotificationService pushes ledger and transfer events onto the event
// bus for downstream broadcast. Delivery is best-effort: a publish
// failure is logged and never fails the operation that produced it.
type NotificationService struct {
	eventBus providers.EventBus
}

// NewNotificationService creates a new notification service
func NewNotificationService(eventBus providers.EventBus) *NotificationService {
	return &NotificationService{eventBus: eventBus}
}

// PublishLedgerUpdate broadcasts the full updated ledger entry for a hospital
func (n *NotificationService) PublishLedgerUpdate(ctx context.Context, hospital *entities.Hospital, entry *entities.BedLedgerEntry) {
	if n == nil || n.eventBus == nil {
		return
	}

	event := entities.NewCapacityEvent(hospital.ID, hospital.Location, entry)
	n.publish(ctx, providers.GetHospitalChannel(hospital.ID), event)
	n.publish(ctx, providers.EventChannelLedgerUpdates, event)
}

// PublishTransferEvent broadcasts a transfer lifecycle change to both
// hospitals' channels
func (n *NotificationService) PublishTransferEvent(ctx context.Context, eventType entities.LedgerEventType, from, to *entities.Hospital, transfer *entities.TransferRequest) {
	if n == nil || n.eventBus == nil {
		return
	}

	fromEvent := entities.NewTransferEvent(eventType, from.ID, from.Location, transfer)
	n.publish(ctx, providers.GetHospitalChannel(from.ID), fromEvent)

	toEvent := entities.NewTransferEvent(eventType, to.ID, to.Location, transfer)
	n.publish(ctx, providers.GetHospitalChannel(to.ID), toEvent)

	n.publish(ctx, providers.EventChannelLedgerUpdates, toEvent)
}

func (n *NotificationService) publish(ctx context.Context, channel string, event *entities.LedgerEvent) {
	if err := n.eventBus.Publish(ctx, channel, event); err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("event_id", event.ID).
			Msg("failed to publish event")
	}
}
