package ports

import (
	"context"
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/google/uuid"
)

// TenantRepository is the slice of tenant persistence the ingestion engine
// consults. Tenant onboarding and administration live elsewhere.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)

	// MarkSynced advances last_sync_at to at. It never moves it backwards.
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RecordRepository persists one kind of mirrored record keyed by
// (tenant_id, shop id).
type RecordRepository[T domain.Record[T]] interface {
	// Upsert inserts rec when its natural key is absent, otherwise refreshes
	// the stored row's mutable fields and stamps updated_at with at. The
	// lookup and the write are one atomic unit: concurrent callers with the
	// same key converge on a single row.
	Upsert(ctx context.Context, rec T, at time.Time) (created bool, err error)

	Get(ctx context.Context, key domain.NaturalKey) (*T, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]T, error)
}
