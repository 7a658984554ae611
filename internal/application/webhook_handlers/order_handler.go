package webhook_handlers

import (
	"context"
	"strings"

	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// OrderIngester reconciles order webhook bodies
type OrderIngester interface {
	OnOrderEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error)
}

// OrderHandler handles order-related webhook events
type OrderHandler struct {
	ingester OrderIngester
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(ingester OrderIngester, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		ingester: ingester,
		logger:   logger,
	}
}

// CanHandle claims every orders* topic
func (h *OrderHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "orders")
}

// Handle processes an order webhook event
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.IngestResult, error) {
	result, err := h.ingester.OnOrderEvent(ctx, event.Tenant, event.Payload)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("orderId", result.ShopID).
		Bool("created", result.Created).
		Msg("Processed order webhook event")
	return result, nil
}
