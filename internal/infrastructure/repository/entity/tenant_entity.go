package entity

import (
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/google/uuid"
)

// MongoTenantDoc represents a tenant in MongoDB
type MongoTenantDoc struct {
	ID           string     `bson:"_id"`
	ShopDomain   string     `bson:"shopDomain"`
	AccessToken  string     `bson:"accessToken"`
	ContactEmail string     `bson:"contactEmail"`
	CreatedAt    time.Time  `bson:"createdAt"`
	LastSyncAt   *time.Time `bson:"lastSyncAt,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoTenantDoc) ToDomain() (*domain.Tenant, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Tenant{
		ID:           id,
		ShopDomain:   d.ShopDomain,
		AccessToken:  d.AccessToken,
		ContactEmail: d.ContactEmail,
		CreatedAt:    d.CreatedAt,
		LastSyncAt:   d.LastSyncAt,
	}, nil
}

// MongoTenantDocFromDomain converts a domain entity to a MongoDB document
func MongoTenantDocFromDomain(t *domain.Tenant) *MongoTenantDoc {
	return &MongoTenantDoc{
		ID:           t.ID.String(),
		ShopDomain:   domain.NormalizeShopDomain(t.ShopDomain),
		AccessToken:  t.AccessToken,
		ContactEmail: t.ContactEmail,
		CreatedAt:    t.CreatedAt,
		LastSyncAt:   t.LastSyncAt,
	}
}
