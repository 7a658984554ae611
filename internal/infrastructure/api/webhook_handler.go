package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"shopify-catalog-mirror/internal/application"
	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// Shopify webhook headers.
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

const maxWebhookBody = 5 << 20

// WebhookReceiver ingests one authenticated delivery
type WebhookReceiver interface {
	Receive(ctx context.Context, d application.WebhookDelivery) (application.WebhookOutcome, error)
}

// WebhookHandler handles POST /webhooks/shopify. The raw body is read once
// and used both for the signature and for decoding.
func WebhookHandler(receiver WebhookReceiver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read webhook body")
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}

		delivery := application.WebhookDelivery{
			ID:         r.Header.Get(HeaderWebhookID),
			Topic:      r.Header.Get(HeaderTopic),
			ShopDomain: r.Header.Get(HeaderShopDomain),
			Signature:  r.Header.Get(HeaderHmac),
			Payload:    payload,
		}

		outcome, err := receiver.Receive(r.Context(), delivery)
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			writeError(w, http.StatusUnauthorized, "invalid signature")
			return
		case errors.Is(err, domain.ErrTenantNotFound):
			writeError(w, http.StatusNotFound, "unknown shop")
			return
		case err != nil:
			logger.Error().
				Err(err).
				Str("topic", delivery.Topic).
				Str("shop", delivery.ShopDomain).
				Msg("Failed to receive webhook")
			// 500 makes Shopify redeliver once the store is back.
			writeError(w, http.StatusInternalServerError, "failed to process webhook")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
	}
}
