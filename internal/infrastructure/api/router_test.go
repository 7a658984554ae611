package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shopify-catalog-mirror/internal/application"
	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/infrastructure/metrics"
	"shopify-catalog-mirror/internal/infrastructure/pubsub"
	"shopify-catalog-mirror/internal/infrastructure/repository"
	"shopify-catalog-mirror/internal/infrastructure/shopify"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type stubReceiver struct {
	outcome application.WebhookOutcome
	err     error
	got     application.WebhookDelivery
}

func (s *stubReceiver) Receive(_ context.Context, d application.WebhookDelivery) (application.WebhookOutcome, error) {
	s.got = d
	return s.outcome, s.err
}

type stubSyncer struct {
	result *domain.SyncResult
	err    error
}

func (s *stubSyncer) SyncTenantByID(_ context.Context, id uuid.UUID) (*domain.SyncResult, error) {
	if s.result != nil {
		s.result.TenantID = id
	}
	return s.result, s.err
}

func newTestRouter(deps RouterDeps) http.Handler {
	if deps.Tenants == nil {
		deps.Tenants = repository.NewMemoryTenantRepository()
	}
	if deps.Syncer == nil {
		deps.Syncer = &stubSyncer{}
	}
	if deps.Webhooks == nil {
		deps.Webhooks = &stubReceiver{outcome: application.OutcomeProcessed}
	}
	return NewRouter(deps, zerolog.Nop())
}

func TestWebhookHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"processed", nil, http.StatusOK, `{"status":"processed"}`},
		{"bad signature", domain.ErrInvalidSignature, http.StatusUnauthorized, `{"error":"invalid signature"}`},
		{"unknown shop", fmt.Errorf("shop %q: %w", "x", domain.ErrTenantNotFound), http.StatusNotFound, `{"error":"unknown shop"}`},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError, `{"error":"failed to process webhook"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receiver := &stubReceiver{outcome: application.OutcomeProcessed, err: tt.err}
			router := newTestRouter(RouterDeps{Webhooks: receiver})

			req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(`{"id":1}`))
			req.Header.Set(HeaderHmac, "c2ln")
			req.Header.Set(HeaderTopic, "orders/create")
			req.Header.Set(HeaderShopDomain, "demo.myshopify.com")
			req.Header.Set(HeaderWebhookID, "delivery-1")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
			assert.Equal(t, application.WebhookDelivery{
				ID:         "delivery-1",
				Topic:      "orders/create",
				ShopDomain: "demo.myshopify.com",
				Signature:  "c2ln",
				Payload:    []byte(`{"id":1}`),
			}, receiver.got)
		})
	}
}

func TestWebhookHandler_RejectsOversizedBody(t *testing.T) {
	router := newTestRouter(RouterDeps{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(strings.Repeat("x", maxWebhookBody+1)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// End to end through the real webhook service and memory store.
func TestWebhookHandler_WithWebhookService(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	tenant := &domain.Tenant{ShopDomain: "demo.myshopify.com"}
	require.NoError(t, store.Tenants.Create(ctx, tenant))

	dispatcher := application.NewWebhookDispatcher(zerolog.Nop())
	service := application.NewWebhookService(
		store.Tenants,
		shopify.NewWebhookVerifier("secret"),
		nil,
		dispatcher,
		metrics.NewSyncMetrics(prometheus.NewRegistry()),
		nil,
		zerolog.Nop(),
	)
	router := newTestRouter(RouterDeps{Webhooks: service, Tenants: store.Tenants})

	body := `{"id":1}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(body))
	req.Header.Set(HeaderHmac, shopify.Sign([]byte(body), "secret"))
	req.Header.Set(HeaderTopic, "app/uninstalled")
	req.Header.Set(HeaderShopDomain, "demo.myshopify.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(body))
	req.Header.Set(HeaderHmac, shopify.Sign([]byte(body), "wrong"))
	req.Header.Set(HeaderShopDomain, "demo.myshopify.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSyncHandler(t *testing.T) {
	started := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)

	t.Run("success", func(t *testing.T) {
		syncer := &stubSyncer{result: &domain.SyncResult{
			State:      domain.SyncFinalized,
			StartedAt:  started,
			FinishedAt: finished,
			Counts:     domain.SyncCounts{Customers: 3, Orders: 2, Products: 1},
		}}
		router := newTestRouter(RouterDeps{Syncer: syncer})
		id := uuid.New()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/"+id.String()+"/sync", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var summary SyncSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, id, summary.TenantID)
		assert.Equal(t, domain.SyncFinalized, summary.State)
		assert.EqualValues(t, 3, summary.CustomersSynced)
		assert.EqualValues(t, 2, summary.OrdersSynced)
		assert.EqualValues(t, 1, summary.ProductsSynced)
		assert.True(t, summary.FinishedAt.Equal(finished))
		assert.Empty(t, summary.Error)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestRouter(RouterDeps{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/nope/sync", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		router := newTestRouter(RouterDeps{Syncer: &stubSyncer{err: domain.ErrTenantNotFound}})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/"+uuid.NewString()+"/sync", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("upstream failure keeps partial summary", func(t *testing.T) {
		syncer := &stubSyncer{
			result: &domain.SyncResult{
				State:     domain.SyncFailed,
				StartedAt: started,
				Counts:    domain.SyncCounts{Customers: 3},
			},
			err: fmt.Errorf("failed to sync orders: %w", &shopify.APIError{Kind: shopify.ErrServer, StatusCode: 503}),
		}
		router := newTestRouter(RouterDeps{Syncer: syncer})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/"+uuid.NewString()+"/sync", nil))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var summary SyncSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, domain.SyncFailed, summary.State)
		assert.EqualValues(t, 3, summary.CustomersSynced)
		assert.NotEmpty(t, summary.Error)
	})

	t.Run("store failure", func(t *testing.T) {
		syncer := &stubSyncer{
			result: &domain.SyncResult{State: domain.SyncFailed},
			err:    errors.New("failed to stamp last sync: disk full"),
		}
		router := newTestRouter(RouterDeps{Syncer: syncer})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tenants/"+uuid.NewString()+"/sync", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	telemetry := metrics.NewSyncMetrics(reg)
	telemetry.RecordWebhookEvent("orders/create", true)
	router := newTestRouter(RouterDeps{Gatherer: reg})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shopify_webhook_events_total")
}

func TestEventsHandler_StreamsTenantEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tenants := repository.NewMemoryTenantRepository()
	tenant := &domain.Tenant{ShopDomain: "demo.myshopify.com"}
	require.NoError(t, tenants.Create(ctx, tenant))

	bus := pubsub.NewEventPubSub(zerolog.Nop())
	server := httptest.NewServer(newTestRouter(RouterDeps{Tenants: tenants, Events: bus}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/tenants/" + tenant.ID.String() + "/events?types=webhook.ingested"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(&domain.IngestionEvent{Type: domain.EventSyncFinished, TenantID: tenant.ID})
	bus.Publish(&domain.IngestionEvent{Type: domain.EventWebhookIngested, TenantID: uuid.New(), ShopID: 1})
	bus.Publish(&domain.IngestionEvent{Type: domain.EventWebhookIngested, TenantID: tenant.ID, Kind: domain.KindOrder, ShopID: 91001})

	var got domain.IngestionEvent
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, domain.EventWebhookIngested, got.Type)
	assert.Equal(t, tenant.ID, got.TenantID)
	assert.EqualValues(t, 91001, got.ShopID)
}

func TestEventsHandler_UnknownTenant(t *testing.T) {
	router := newTestRouter(RouterDeps{Events: pubsub.NewEventPubSub(zerolog.Nop())})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenants/"+uuid.NewString()+"/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseEventTypes(t *testing.T) {
	assert.Nil(t, parseEventTypes(""))
	assert.Equal(t,
		[]domain.IngestionEventType{domain.EventSyncFailed, domain.EventWebhookDropped},
		parseEventTypes(" sync.failed, ,webhook.dropped"),
	)
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t,
		[]string{"*", "app.example.com", "*.example.com", "localhost:3000"},
		originHosts([]string{"*", "https://app.example.com", "https://*.example.com/", " http://localhost:3000 ", ""}),
	)
}

func TestEventsHandler_AcceptsConfiguredOrigin(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tenants := repository.NewMemoryTenantRepository()
	tenant := &domain.Tenant{ShopDomain: "demo.myshopify.com"}
	require.NoError(t, tenants.Create(ctx, tenant))

	server := httptest.NewServer(newTestRouter(RouterDeps{
		Tenants:        tenants,
		Events:         pubsub.NewEventPubSub(zerolog.Nop()),
		AllowedOrigins: []string{"https://app.example.com"},
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/tenants/" + tenant.ID.String() + "/events"
	dial := func(origin string) error {
		header := http.Header{}
		header.Set("Origin", origin)
		conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
		if err == nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
		return err
	}

	assert.NoError(t, dial("https://app.example.com"))
	assert.Error(t, dial("https://evil.example.org"))
}
