package repository

import (
	"context"
	"fmt"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles the repositories one storage backend provides.
type Store struct {
	Tenants   ports.TenantRepository
	Customers ports.RecordRepository[domain.Customer]
	Orders    ports.RecordRepository[domain.Order]
	Products  ports.RecordRepository[domain.Product]
}

// NewMemoryStore returns an empty in-process store
func NewMemoryStore() *Store {
	return &Store{
		Tenants:   NewMemoryTenantRepository(),
		Customers: NewMemoryRecordRepository[domain.Customer](),
		Orders:    NewMemoryRecordRepository[domain.Order](),
		Products:  NewMemoryRecordRepository[domain.Product](),
	}
}

// NewMongoStore wires the MongoDB repositories and creates their indexes
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	tenants := NewMongoTenantRepository(db)
	customers := NewMongoCustomerRepository(db)
	orders := NewMongoOrderRepository(db)
	products := NewMongoProductRepository(db)

	if err := tenants.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	for _, ensure := range []func(context.Context) error{
		customers.EnsureIndexes,
		orders.EnsureIndexes,
		products.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
	}

	return &Store{
		Tenants:   tenants,
		Customers: customers,
		Orders:    orders,
		Products:  products,
	}, nil
}

// NewPostgresStore wires the PostgreSQL repositories and applies the schema
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if err := EnsureSchema(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to prepare postgres store: %w", err)
	}
	return &Store{
		Tenants:   NewPostgresTenantRepository(pool),
		Customers: NewPostgresCustomerRepository(pool),
		Orders:    NewPostgresOrderRepository(pool),
		Products:  NewPostgresProductRepository(pool),
	}, nil
}
