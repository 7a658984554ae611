package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is an authenticated webhook delivery resolved to its tenant.
type WebhookEvent struct {
	ID       string
	Topic    string
	Shop     string
	Tenant   *Tenant
	Payload  []byte
	Received time.Time
}

// IngestionEventType names what happened in the ingestion engine.
type IngestionEventType string

const (
	EventSyncFinished    IngestionEventType = "sync.finished"
	EventSyncFailed      IngestionEventType = "sync.failed"
	EventWebhookIngested IngestionEventType = "webhook.ingested"
	EventWebhookDropped  IngestionEventType = "webhook.dropped"
)

// IngestionEvent is published for live subscribers of a tenant's activity.
type IngestionEvent struct {
	Type       IngestionEventType `json:"type"`
	TenantID   uuid.UUID          `json:"tenant_id"`
	Kind       ResourceKind       `json:"kind,omitempty"`
	Topic      string             `json:"topic,omitempty"`
	ShopID     int64              `json:"shop_id,omitempty"`
	Sync       *SyncResult        `json:"sync,omitempty"`
	Error      string             `json:"error,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// IngestResult describes the record a webhook delivery was reconciled into.
type IngestResult struct {
	Kind    ResourceKind
	ShopID  int64
	Created bool
}
