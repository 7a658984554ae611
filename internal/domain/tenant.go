package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is one onboarded shop. Every mirrored record is scoped by its ID.
type Tenant struct {
	ID           uuid.UUID  `json:"id"`
	ShopDomain   string     `json:"shop_domain"`
	AccessToken  string     `json:"-"`
	ContactEmail string     `json:"contact_email"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

// NormalizeShopDomain trims and lowercases a shop domain for lookups.
func NormalizeShopDomain(shopDomain string) string {
	return strings.ToLower(strings.TrimSpace(shopDomain))
}
