package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the mirror tables. Money is numeric, never float.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id            UUID PRIMARY KEY,
		shop_domain   TEXT NOT NULL UNIQUE,
		access_token  TEXT NOT NULL DEFAULT '',
		contact_email TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		last_sync_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id               UUID PRIMARY KEY,
		tenant_id        UUID NOT NULL REFERENCES tenants(id),
		shop_customer_id BIGINT NOT NULL,
		email            TEXT NOT NULL DEFAULT '',
		first_name       TEXT NOT NULL DEFAULT '',
		last_name        TEXT NOT NULL DEFAULT '',
		total_spent      NUMERIC(19, 4) NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, shop_customer_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id            UUID PRIMARY KEY,
		tenant_id     UUID NOT NULL REFERENCES tenants(id),
		shop_order_id BIGINT NOT NULL,
		order_number  TEXT NOT NULL DEFAULT '',
		total_price   NUMERIC(19, 4) NOT NULL DEFAULT 0,
		currency      TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, shop_order_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id              UUID PRIMARY KEY,
		tenant_id       UUID NOT NULL REFERENCES tenants(id),
		shop_product_id BIGINT NOT NULL,
		title           TEXT NOT NULL DEFAULT '',
		price           NUMERIC(19, 4) NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (tenant_id, shop_product_id)
	)`,
}

// NewPostgresPool creates a pgx connection pool and checks it answers
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the tables when missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// PostgresTenantRepository implements TenantRepository for PostgreSQL
type PostgresTenantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTenantRepository creates a new PostgreSQL tenant repository
func NewPostgresTenantRepository(pool *pgxpool.Pool) *PostgresTenantRepository {
	return &PostgresTenantRepository{pool: pool}
}

var _ ports.TenantRepository = (*PostgresTenantRepository)(nil)

const tenantColumns = `id, shop_domain, access_token, contact_email, created_at, last_sync_at`

// Create inserts a new tenant
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tenants (` + tenantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		tenant.ID,
		domain.NormalizeShopDomain(tenant.ShopDomain),
		tenant.AccessToken,
		tenant.ContactEmail,
		tenant.CreatedAt,
		tenant.LastSyncAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.pool.QueryRow(ctx, query, id))
}

// GetByShopDomain retrieves a tenant by its normalized shop domain
func (r *PostgresTenantRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE shop_domain = $1`
	return scanTenant(r.pool.QueryRow(ctx, query, domain.NormalizeShopDomain(shopDomain)))
}

// List retrieves all tenants ordered by creation time
func (r *PostgresTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}
	return tenants, nil
}

// MarkSynced advances last_sync_at; GREATEST ignores the NULL of a first sync
func (r *PostgresTenantRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE tenants SET last_sync_at = GREATEST(last_sync_at, $2) WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark tenant synced: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	err := row.Scan(&t.ID, &t.ShopDomain, &t.AccessToken, &t.ContactEmail, &t.CreatedAt, &t.LastSyncAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}
	return &t, nil
}
