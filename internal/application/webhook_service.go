package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/rs/zerolog"
)

// SignatureVerifier authenticates a raw webhook body.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

// WebhookDelivery is one inbound webhook request as received.
type WebhookDelivery struct {
	ID         string
	Topic      string
	ShopDomain string
	Signature  string
	Payload    []byte
}

// WebhookOutcome is how an authenticated delivery was handled.
type WebhookOutcome string

const (
	OutcomeProcessed WebhookOutcome = "processed"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeDropped   WebhookOutcome = "dropped"
)

// WebhookService authenticates deliveries and feeds them to the dispatcher.
// Once the signature is accepted nothing but a storage outage while
// resolving the tenant is reported back as a failure: a malformed body is
// dropped so the sender does not redeliver it forever.
type WebhookService struct {
	tenants    ports.TenantRepository
	verifier   SignatureVerifier
	deliveries ports.DeliveryLog
	dispatcher *WebhookDispatcher
	telemetry  ports.SyncTelemetry
	events     ports.EventPublisher
	now        func() time.Time
	logger     zerolog.Logger
}

// NewWebhookService creates a new webhook service. deliveries may be nil to
// disable redelivery detection.
func NewWebhookService(
	tenants ports.TenantRepository,
	verifier SignatureVerifier,
	deliveries ports.DeliveryLog,
	dispatcher *WebhookDispatcher,
	telemetry ports.SyncTelemetry,
	events ports.EventPublisher,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		tenants:    tenants,
		verifier:   verifier,
		deliveries: deliveries,
		dispatcher: dispatcher,
		telemetry:  telemetry,
		events:     events,
		now:        time.Now,
		logger:     logger,
	}
}

// Receive handles one delivery. It returns domain.ErrInvalidSignature for an
// unauthenticated body and domain.ErrTenantNotFound for an unknown shop.
func (s *WebhookService) Receive(ctx context.Context, d WebhookDelivery) (WebhookOutcome, error) {
	if err := s.verifier.Verify(d.Payload, d.Signature); err != nil {
		s.logger.Warn().
			Str("shop", d.ShopDomain).
			Str("topic", d.Topic).
			Msg("Webhook signature verification failed")
		return "", domain.ErrInvalidSignature
	}

	tenant, err := s.tenants.GetByShopDomain(ctx, d.ShopDomain)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			s.logger.Warn().Str("shop", d.ShopDomain).Msg("Webhook for unknown shop")
			return "", fmt.Errorf("shop %q: %w", d.ShopDomain, domain.ErrTenantNotFound)
		}
		return "", fmt.Errorf("failed to resolve tenant: %w", err)
	}

	if d.Topic == "" {
		s.logger.Warn().Str("shop", tenant.ShopDomain).Msg("Webhook topic missing")
		return OutcomeIgnored, nil
	}

	if s.deliveries != nil && d.ID != "" {
		first, err := s.deliveries.FirstDelivery(ctx, d.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("webhookId", d.ID).Msg("Failed to check webhook redelivery")
		} else if !first {
			s.logger.Info().
				Str("webhookId", d.ID).
				Str("topic", d.Topic).
				Str("shop", tenant.ShopDomain).
				Msg("Skipping redelivered webhook")
			return OutcomeDuplicate, nil
		}
	}

	event := &domain.WebhookEvent{
		ID:       d.ID,
		Topic:    d.Topic,
		Shop:     tenant.ShopDomain,
		Tenant:   tenant,
		Payload:  d.Payload,
		Received: s.now().UTC(),
	}

	result, handled, err := s.dispatcher.Dispatch(ctx, event)
	if !handled {
		return OutcomeIgnored, nil
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("topic", d.Topic).
			Str("tenantId", tenant.ID.String()).
			Msg("Failed to process webhook event, dropping it")
		s.telemetry.RecordWebhookEvent(d.Topic, false)
		s.publish(&domain.IngestionEvent{
			Type:       domain.EventWebhookDropped,
			TenantID:   tenant.ID,
			Topic:      d.Topic,
			Error:      err.Error(),
			OccurredAt: event.Received,
		})
		return OutcomeDropped, nil
	}

	if result == nil {
		result = &domain.IngestResult{}
	}
	s.telemetry.RecordWebhookEvent(d.Topic, true)
	s.publish(&domain.IngestionEvent{
		Type:       domain.EventWebhookIngested,
		TenantID:   tenant.ID,
		Kind:       result.Kind,
		Topic:      d.Topic,
		ShopID:     result.ShopID,
		OccurredAt: event.Received,
	})
	return OutcomeProcessed, nil
}

func (s *WebhookService) publish(event *domain.IngestionEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}
