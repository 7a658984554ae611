package pubsub

import (
	"context"
	"fmt"
	"sync"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const channelBuffer = 16

// EventChannel represents a subscription channel
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.IngestionEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter filters ingestion events
type EventFilter struct {
	TenantID uuid.UUID                   // uuid.Nil matches every tenant
	Types    []domain.IngestionEventType // empty matches every type
}

// EventPubSub fans ingestion events out to live subscribers
type EventPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

var _ ports.EventPublisher = (*EventPubSub)(nil)

// NewEventPubSub creates a new event pub/sub system
func NewEventPubSub(logger zerolog.Logger) *EventPubSub {
	return &EventPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription that lives until ctx is cancelled
func (ps *EventPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &EventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.IngestionEvent, channelBuffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Event subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *EventPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Event subscription removed")
}

// Publish broadcasts an event to all matching subscribers. A slow
// subscriber loses events rather than blocking ingestion.
func (ps *EventPubSub) Publish(event *domain.IngestionEvent) {
	if event == nil {
		return
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			publishedCount++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Str("type", string(event.Type)).
				Msg("Channel buffer full, dropping event")
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("type", string(event.Type)).
			Str("tenantId", event.TenantID.String()).
			Int("subscribers", publishedCount).
			Msg("Published ingestion event to subscribers")
	}
}

func matchesFilter(event *domain.IngestionEvent, filter *EventFilter) bool {
	if filter == nil {
		return true
	}

	if filter.TenantID != uuid.Nil && event.TenantID != filter.TenantID {
		return false
	}

	if len(filter.Types) > 0 {
		for _, t := range filter.Types {
			if event.Type == t {
				return true
			}
		}
		return false
	}

	return true
}

func (ps *EventPubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}

// Subscribers returns the number of active subscriptions
func (ps *EventPubSub) Subscribers() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}
