// Package metrics records sync and webhook outcomes in Prometheus.
package metrics

import (
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics holds the ingestion engine's Prometheus collectors
type SyncMetrics struct {
	SyncSuccess   *prometheus.CounterVec
	SyncFailure   *prometheus.CounterVec
	SyncRecords   *prometheus.SummaryVec
	SyncDuration  *prometheus.HistogramVec
	WebhookEvents *prometheus.CounterVec
}

var _ ports.SyncTelemetry = (*SyncMetrics)(nil)

// NewSyncMetrics creates the collectors and registers them with reg
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)
	return &SyncMetrics{
		SyncSuccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopify_sync_success_total",
				Help: "Total number of tenant syncs that finalized",
			},
			[]string{"tenant_id"},
		),

		SyncFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopify_sync_failure_total",
				Help: "Total number of tenant syncs that failed, by failure class",
			},
			[]string{"tenant_id", "exception"},
		),

		SyncRecords: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Name: "shopify_sync_records",
				Help: "Records reconciled per successful sync",
			},
			[]string{"tenant_id", "kind"},
		),

		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shopify_sync_duration_seconds",
				Help:    "Wall time of successful tenant syncs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant_id"},
		),

		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopify_webhook_events_total",
				Help: "Total number of authenticated webhook deliveries by topic and outcome",
			},
			[]string{"topic", "status"},
		),
	}
}

func (m *SyncMetrics) RecordSyncSuccess(tenantID uuid.UUID, counts domain.SyncCounts, duration time.Duration) {
	tenant := tenantID.String()
	m.SyncSuccess.WithLabelValues(tenant).Inc()
	m.SyncRecords.WithLabelValues(tenant, string(domain.KindCustomer)).Observe(float64(counts.Customers))
	m.SyncRecords.WithLabelValues(tenant, string(domain.KindOrder)).Observe(float64(counts.Orders))
	m.SyncRecords.WithLabelValues(tenant, string(domain.KindProduct)).Observe(float64(counts.Products))
	m.SyncDuration.WithLabelValues(tenant).Observe(duration.Seconds())
}

func (m *SyncMetrics) RecordSyncFailure(tenantID uuid.UUID, class string) {
	if class == "" {
		class = "unknown"
	}
	m.SyncFailure.WithLabelValues(tenantID.String(), class).Inc()
}

func (m *SyncMetrics) RecordWebhookEvent(topic string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	m.WebhookEvents.WithLabelValues(topic, status).Inc()
}
