package webhook_handlers

import (
	"context"
	"strings"

	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerIngester reconciles customer webhook bodies
type CustomerIngester interface {
	OnCustomerEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error)
}

// CustomerHandler handles customer-related webhook events
type CustomerHandler struct {
	ingester CustomerIngester
	logger   zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(ingester CustomerIngester, logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{
		ingester: ingester,
		logger:   logger,
	}
}

// CanHandle claims every customers* topic
func (h *CustomerHandler) CanHandle(topic string) bool {
	return strings.HasPrefix(topic, "customers")
}

// Handle processes a customer webhook event
func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) (*domain.IngestResult, error) {
	result, err := h.ingester.OnCustomerEvent(ctx, event.Tenant, event.Payload)
	if err != nil {
		return nil, err
	}

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Int64("customerId", result.ShopID).
		Bool("created", result.Created).
		Msg("Processed customer webhook event")
	return result, nil
}
