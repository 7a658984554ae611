package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
)

// MemoryTenantRepository keeps tenants in process memory. Used for local
// runs and tests.
type MemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]domain.Tenant
}

func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{tenants: make(map[uuid.UUID]domain.Tenant)}
}

var _ ports.TenantRepository = (*MemoryTenantRepository)(nil)

func (r *MemoryTenantRepository) Create(_ context.Context, tenant *domain.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *tenant
	stored.ShopDomain = domain.NormalizeShopDomain(tenant.ShopDomain)
	r.tenants[tenant.ID] = stored
	return nil
}

func (r *MemoryTenantRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return copyTenant(t), nil
}

func (r *MemoryTenantRepository) GetByShopDomain(_ context.Context, shopDomain string) (*domain.Tenant, error) {
	key := domain.NormalizeShopDomain(shopDomain)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.ShopDomain == key {
			return copyTenant(t), nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (r *MemoryTenantRepository) List(_ context.Context) ([]*domain.Tenant, error) {
	r.mu.RLock()
	tenants := make([]*domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		tenants = append(tenants, copyTenant(t))
	}
	r.mu.RUnlock()

	sort.Slice(tenants, func(i, j int) bool {
		if tenants[i].CreatedAt.Equal(tenants[j].CreatedAt) {
			return tenants[i].ID.String() < tenants[j].ID.String()
		}
		return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
	})
	return tenants, nil
}

func (r *MemoryTenantRepository) MarkSynced(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	if t.LastSyncAt == nil || at.After(*t.LastSyncAt) {
		at := at.UTC()
		t.LastSyncAt = &at
		r.tenants[id] = t
	}
	return nil
}

func copyTenant(t domain.Tenant) *domain.Tenant {
	if t.LastSyncAt != nil {
		at := *t.LastSyncAt
		t.LastSyncAt = &at
	}
	return &t
}

// MemoryRecordRepository keeps one record kind in process memory. The
// mutex makes lookup plus write a single step.
type MemoryRecordRepository[T domain.Record[T]] struct {
	mu      sync.RWMutex
	records map[domain.NaturalKey]T
}

func NewMemoryRecordRepository[T domain.Record[T]]() *MemoryRecordRepository[T] {
	return &MemoryRecordRepository[T]{records: make(map[domain.NaturalKey]T)}
}

var (
	_ ports.RecordRepository[domain.Customer] = (*MemoryRecordRepository[domain.Customer])(nil)
	_ ports.RecordRepository[domain.Order]    = (*MemoryRecordRepository[domain.Order])(nil)
	_ ports.RecordRepository[domain.Product]  = (*MemoryRecordRepository[domain.Product])(nil)
)

func (r *MemoryRecordRepository[T]) Upsert(_ context.Context, rec T, at time.Time) (bool, error) {
	key := rec.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[key]; ok {
		r.records[key] = existing.Refresh(rec, at)
		return false, nil
	}
	r.records[key] = rec
	return true, nil
}

func (r *MemoryRecordRepository[T]) Get(_ context.Context, key domain.NaturalKey) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *MemoryRecordRepository[T]) ListByTenant(_ context.Context, tenantID uuid.UUID) ([]T, error) {
	r.mu.RLock()
	var out []T
	for key, rec := range r.records {
		if key.TenantID == tenantID {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key().ShopID < out[j].Key().ShopID })
	return out, nil
}

// Len reports how many records are stored across all tenants.
func (r *MemoryRecordRepository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
