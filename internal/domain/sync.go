package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncState tracks how far one tenant sync got. It lives only for the
// duration of a SyncTenant call.
type SyncState string

const (
	SyncStarted         SyncState = "STARTED"
	SyncCustomersSynced SyncState = "CUSTOMERS_SYNCED"
	SyncOrdersSynced    SyncState = "ORDERS_SYNCED"
	SyncProductsSynced  SyncState = "PRODUCTS_SYNCED"
	SyncFinalized       SyncState = "FINALIZED"
	SyncFailed          SyncState = "FAILED"
)

// SyncedState returns the state reached once kind has been reconciled.
func SyncedState(kind ResourceKind) SyncState {
	switch kind {
	case KindCustomer:
		return SyncCustomersSynced
	case KindOrder:
		return SyncOrdersSynced
	case KindProduct:
		return SyncProductsSynced
	}
	return SyncStarted
}

// SyncCounts holds the number of records reconciled per kind.
type SyncCounts struct {
	Customers int64 `json:"customers_synced"`
	Orders    int64 `json:"orders_synced"`
	Products  int64 `json:"products_synced"`
}

// Add increments the counter for kind.
func (c *SyncCounts) Add(kind ResourceKind, n int64) {
	switch kind {
	case KindCustomer:
		c.Customers += n
	case KindOrder:
		c.Orders += n
	case KindProduct:
		c.Products += n
	}
}

// SyncResult summarizes one tenant sync.
type SyncResult struct {
	TenantID   uuid.UUID  `json:"tenant_id"`
	State      SyncState  `json:"state"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Counts     SyncCounts `json:"counts"`
	Skipped    int64      `json:"skipped"`
}

// Duration is the wall time the sync took.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
