package application

import (
	"context"
	"sync"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/infrastructure/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newTestReconciler(store *repository.Store) *Reconciler {
	return NewReconciler(store.Customers, store.Orders, store.Products, zerolog.Nop(), WithClock(fixedClock))
}

// mockUpstream is a testify mock of the platform client.
type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) FetchCustomers(ctx context.Context, shopDomain, accessToken string) ([]domain.CustomerPayload, error) {
	args := m.Called(ctx, shopDomain, accessToken)
	payloads, _ := args.Get(0).([]domain.CustomerPayload)
	return payloads, args.Error(1)
}

func (m *mockUpstream) FetchOrders(ctx context.Context, shopDomain, accessToken string) ([]domain.OrderPayload, error) {
	args := m.Called(ctx, shopDomain, accessToken)
	payloads, _ := args.Get(0).([]domain.OrderPayload)
	return payloads, args.Error(1)
}

func (m *mockUpstream) FetchProducts(ctx context.Context, shopDomain, accessToken string) ([]domain.ProductPayload, error) {
	args := m.Called(ctx, shopDomain, accessToken)
	payloads, _ := args.Get(0).([]domain.ProductPayload)
	return payloads, args.Error(1)
}

// recordingTelemetry keeps every telemetry call for assertions.
type recordingTelemetry struct {
	mu        sync.Mutex
	successes map[uuid.UUID]domain.SyncCounts
	failures  map[uuid.UUID]string
	webhooks  []webhookCall
}

type webhookCall struct {
	topic   string
	success bool
}

func newRecordingTelemetry() *recordingTelemetry {
	return &recordingTelemetry{
		successes: make(map[uuid.UUID]domain.SyncCounts),
		failures:  make(map[uuid.UUID]string),
	}
}

func (r *recordingTelemetry) RecordSyncSuccess(tenantID uuid.UUID, counts domain.SyncCounts, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes[tenantID] = counts
}

func (r *recordingTelemetry) RecordSyncFailure(tenantID uuid.UUID, class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[tenantID] = class
}

func (r *recordingTelemetry) RecordWebhookEvent(topic string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webhooks = append(r.webhooks, webhookCall{topic: topic, success: success})
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*domain.IngestionEvent
}

func (p *recordingPublisher) Publish(event *domain.IngestionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []domain.IngestionEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.IngestionEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// noFixtures never substitutes a dataset.
type noFixtures struct{}

func (noFixtures) CustomersFor(string) ([]domain.CustomerPayload, bool) { return nil, false }
func (noFixtures) OrdersFor(string) ([]domain.OrderPayload, bool)       { return nil, false }
func (noFixtures) ProductsFor(string) ([]domain.ProductPayload, bool)   { return nil, false }
