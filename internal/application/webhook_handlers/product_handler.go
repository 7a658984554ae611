package webhook_handlers

import (
	"context"
	"strings"

	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// ProductIngester reconciles product webhook bodies
type ProductIngester interface {
	OnProductEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error)
}

// ProductHandler handles product-related webhook events
type ProductHandler struct {
	ingester ProductIngester
	logger   zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(ingester ProductIngester, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		ingester: ingester,
		logger:   logger,
	}
}

// CanHandle claims every products* topic
func (h *ProductHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "products")
}

// Handle processes a product webhook event
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.IngestResult, error) {
	result, err := h.ingester.OnProductEvent(ctx, event.Tenant, event.Payload)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("productId", result.ShopID).
		Bool("created", result.Created).
		Msg("Processed product webhook event")
	return result, nil
}
