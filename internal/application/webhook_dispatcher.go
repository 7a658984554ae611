package application

import (
	"context"

	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// WebhookHandler processes the webhook topics it claims
type WebhookHandler interface {
	CanHandle(topic string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.IngestResult, error)
}

// WebhookDispatcher routes webhook events to the first handler that claims
// their topic
type WebhookDispatcher struct {
	handlers []WebhookHandler
	logger   zerolog.Logger
}

// NewWebhookDispatcher creates a new webhook dispatcher
func NewWebhookDispatcher(logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{logger: logger}
}

// RegisterHandler adds a handler. Registration happens at startup only.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch hands event to its handler. handled is false when no handler
// claims the topic.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) (result *domain.IngestResult, handled bool, err error) {
	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Topic) {
			continue
		}
		result, err := handler.Handle(ctx, event)
		return result, true, err
	}

	d.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Msg("Unhandled Shopify topic")
	return nil, false, nil
}
