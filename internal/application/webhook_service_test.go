package application

import (
	"context"
	"testing"
	"time"

	"shopify-catalog-mirror/internal/application/webhook_handlers"
	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/infrastructure/cache"
	"shopify-catalog-mirror/internal/infrastructure/repository"
	"shopify-catalog-mirror/internal/infrastructure/shopify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "hush"

type webhookHarness struct {
	store     *repository.Store
	telemetry *recordingTelemetry
	events    *recordingPublisher
	service   *WebhookService
	tenant    *domain.Tenant
}

func newWebhookHarness(t *testing.T) *webhookHarness {
	t.Helper()
	store := repository.NewMemoryStore()
	adapter := NewIngestionAdapter(newTestReconciler(store), zerolog.Nop())

	dispatcher := NewWebhookDispatcher(zerolog.Nop())
	dispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(adapter, zerolog.Nop()))
	dispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(adapter, zerolog.Nop()))
	dispatcher.RegisterHandler(webhook_handlers.NewProductHandler(adapter, zerolog.Nop()))

	h := &webhookHarness{
		store:     store,
		telemetry: newRecordingTelemetry(),
		events:    &recordingPublisher{},
	}
	h.service = NewWebhookService(
		store.Tenants,
		shopify.NewWebhookVerifier(testSecret),
		cache.NewLocalDeliveryLog(time.Hour),
		dispatcher,
		h.telemetry,
		h.events,
		zerolog.Nop(),
	)

	h.tenant = &domain.Tenant{ShopDomain: "demo.myshopify.com"}
	require.NoError(t, store.Tenants.Create(context.Background(), h.tenant))
	return h
}

func signed(topic, shop, body string) WebhookDelivery {
	return WebhookDelivery{
		Topic:      topic,
		ShopDomain: shop,
		Signature:  shopify.Sign([]byte(body), testSecret),
		Payload:    []byte(body),
	}
}

func TestWebhookService_ProcessesAuthenticDelivery(t *testing.T) {
	ctx := context.Background()
	h := newWebhookHarness(t)

	outcome, err := h.service.Receive(ctx, signed("products/update", "Demo.myshopify.com", `{"product":{"id":5,"title":"Lamp","variants":[{"price":"12.00"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	got, err := h.store.Products.Get(ctx, domain.NaturalKey{TenantID: h.tenant.ID, ShopID: 5})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lamp", got.Title)

	assert.Equal(t, []webhookCall{{topic: "products/update", success: true}}, h.telemetry.webhooks)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, domain.EventWebhookIngested, h.events.events[0].Type)
	assert.Equal(t, domain.KindProduct, h.events.events[0].Kind)
	assert.EqualValues(t, 5, h.events.events[0].ShopID)
}

func TestWebhookService_RejectsBadSignature(t *testing.T) {
	h := newWebhookHarness(t)
	d := signed("orders/create", "demo.myshopify.com", `{"id":1}`)
	d.Payload = []byte(`{"id":2}`)

	_, err := h.service.Receive(context.Background(), d)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Empty(t, h.telemetry.webhooks)
}

func TestWebhookService_UnknownShop(t *testing.T) {
	h := newWebhookHarness(t)

	_, err := h.service.Receive(context.Background(), signed("orders/create", "stranger.myshopify.com", `{"id":1}`))
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestWebhookService_IgnoresMissingOrUnknownTopic(t *testing.T) {
	h := newWebhookHarness(t)

	outcome, err := h.service.Receive(context.Background(), signed("", "demo.myshopify.com", `{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = h.service.Receive(context.Background(), signed("app/uninstalled", "demo.myshopify.com", `{"id":1}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, h.telemetry.webhooks)
}

func TestWebhookService_DropsMalformedBody(t *testing.T) {
	h := newWebhookHarness(t)

	for _, body := range []string{`not json`, `[1,2,3]`, `{"customer":{"email":"no-id@example.com"}}`} {
		outcome, err := h.service.Receive(context.Background(), signed("customers/create", "demo.myshopify.com", body))
		require.NoError(t, err, body)
		assert.Equal(t, OutcomeDropped, outcome, body)
	}

	require.Len(t, h.telemetry.webhooks, 3)
	assert.False(t, h.telemetry.webhooks[0].success)
	assert.Equal(t, domain.EventWebhookDropped, h.events.events[0].Type)
}

func TestWebhookService_SkipsRedelivery(t *testing.T) {
	ctx := context.Background()
	h := newWebhookHarness(t)

	d := signed("customers/update", "demo.myshopify.com", `{"id":8,"email":"a@example.com"}`)
	d.ID = "b54557e4-bdd9-4b37-8a5f-bf7d70bcd043"

	outcome, err := h.service.Receive(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	outcome, err = h.service.Receive(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Len(t, h.telemetry.webhooks, 1)
}
