package pubsub

import (
	"context"
	"testing"
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPubSub_DeliversMatchingEvents(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenantID := uuid.New()
	ch := ps.Subscribe(ctx, &EventFilter{TenantID: tenantID})

	ps.Publish(&domain.IngestionEvent{Type: domain.EventSyncFinished, TenantID: uuid.New()})
	ps.Publish(&domain.IngestionEvent{Type: domain.EventWebhookIngested, TenantID: tenantID, ShopID: 7})

	select {
	case ev := <-ch.Events:
		assert.Equal(t, tenantID, ev.TenantID)
		assert.EqualValues(t, 7, ev.ShopID)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
	assert.Empty(t, ch.Events)
}

func TestEventPubSub_TypeFilter(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := ps.Subscribe(ctx, &EventFilter{Types: []domain.IngestionEventType{domain.EventSyncFailed}})

	ps.Publish(&domain.IngestionEvent{Type: domain.EventSyncFinished})
	ps.Publish(&domain.IngestionEvent{Type: domain.EventSyncFailed, Error: "boom"})

	ev := <-ch.Events
	assert.Equal(t, domain.EventSyncFailed, ev.Type)
	assert.Empty(t, ch.Events)
}

func TestEventPubSub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := ps.Subscribe(ctx, nil)
	for i := 0; i < channelBuffer+5; i++ {
		ps.Publish(&domain.IngestionEvent{Type: domain.EventWebhookIngested})
	}
	assert.Len(t, ch.Events, channelBuffer)
}

func TestEventPubSub_CancelUnsubscribes(t *testing.T) {
	ps := NewEventPubSub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	ch := ps.Subscribe(ctx, nil)
	require.Equal(t, 1, ps.Subscribers())

	cancel()
	select {
	case <-ch.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription was not removed")
	}
	assert.Equal(t, 0, ps.Subscribers())

	// Publishing after removal must not panic on the closed channel.
	ps.Publish(&domain.IngestionEvent{Type: domain.EventSyncFinished})
}
