package ports

import (
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/google/uuid"
)

// SyncTelemetry receives sync and webhook outcomes.
type SyncTelemetry interface {
	RecordSyncSuccess(tenantID uuid.UUID, counts domain.SyncCounts, duration time.Duration)
	RecordSyncFailure(tenantID uuid.UUID, class string)
	RecordWebhookEvent(topic string, success bool)
}

// EventPublisher fans ingestion events out to live subscribers.
type EventPublisher interface {
	Publish(event *domain.IngestionEvent)
}
