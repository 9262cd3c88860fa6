package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/providers"
	redisclient "github.com/medgrid/bedbridge/backend/internal/infrastructure/clients/redis"
)

func setupEventBus(t *testing.T) providers.EventBus {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	bus := NewRedisEventBus(redisclient.NewClientFromExisting(client))
	t.Cleanup(func() { bus.Close() })
	return bus
}

// publishUntilReceived retries the publish because the pub/sub
// subscription is established asynchronously.
func publishUntilReceived(t *testing.T, bus providers.EventBus, channel string,
	source *entities.LedgerEvent, events <-chan *entities.LedgerEvent) *entities.LedgerEvent {
	t.Helper()

	var received *entities.LedgerEvent
	require.Eventually(t, func() bool {
		require.NoError(t, bus.Publish(context.Background(), channel, source))
		select {
		case received = <-events:
			return true
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)
	return received
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus := setupEventBus(t)
	channel := providers.GetHospitalChannel("lagos")

	events, err := bus.Subscribe(context.Background(), channel)
	require.NoError(t, err)

	source := entities.NewCapacityEvent("lagos",
		entities.Location{Latitude: 6.5244, Longitude: 3.3792},
		&entities.BedLedgerEntry{
			HospitalID:    "lagos",
			BedType:       entities.BedTypeICU,
			TotalBeds:     10,
			OccupiedBeds:  6,
			AvailableBeds: 4,
		})

	received := publishUntilReceived(t, bus, channel, source, events)
	assert.Equal(t, source.ID, received.ID)
	assert.Equal(t, entities.LedgerEventTypeCapacityUpdate, received.EventType)
	assert.InDelta(t, 6.5244, received.Location.Latitude, 0.0001)
	require.NotNil(t, received.Entry)
	assert.Equal(t, 4, received.Entry.AvailableBeds)
}

func TestRedisEventBus_ChannelsAreIsolated(t *testing.T) {
	bus := setupEventBus(t)

	lagosEvents, err := bus.Subscribe(context.Background(), providers.GetHospitalChannel("lagos"))
	require.NoError(t, err)
	ibadanEvents, err := bus.Subscribe(context.Background(), providers.GetHospitalChannel("ibadan"))
	require.NoError(t, err)

	source := entities.NewCapacityEvent("ibadan", entities.Location{}, nil)
	publishUntilReceived(t, bus, providers.GetHospitalChannel("ibadan"), source, ibadanEvents)

	select {
	case event := <-lagosEvents:
		t.Fatalf("unexpected event on lagos channel: %s", event.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisEventBus_SubscriberContextCancelClosesChannel(t *testing.T) {
	bus := setupEventBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := bus.Subscribe(ctx, providers.EventChannelLedgerUpdates)
	require.NoError(t, err)

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)
}

func TestRedisEventBus_CloseDrainsSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	bus := NewRedisEventBus(redisclient.NewClientFromExisting(client))

	events, err := bus.Subscribe(context.Background(), providers.EventChannelLedgerUpdates)
	require.NoError(t, err)

	require.NoError(t, bus.Close())

	require.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)
}
