package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// pgColumn describes one stored column. Money columns travel as text so
// no precision is lost on either side of the wire.
type pgColumn struct {
	name    string
	money   bool
	mutable bool
}

// pgTable maps one record kind onto its table.
type pgTable[T any] struct {
	name    string
	shopKey string
	columns []pgColumn
	values  func(rec T) []any
	scan    func(row pgx.Row) (T, error)
}

func (t pgTable[T]) selectList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
		if c.money {
			names[i] = c.name + "::text"
		}
	}
	return strings.Join(names, ", ")
}

// upsertSQL inserts a row or refreshes the mutable columns of the existing
// one. The final parameter is the reconciliation time. xmax is zero only
// for a row this statement inserted.
func (t pgTable[T]) upsertSQL() string {
	names := make([]string, len(t.columns))
	params := make([]string, len(t.columns))
	var sets []string
	for i, c := range t.columns {
		names[i] = c.name
		params[i] = fmt.Sprintf("$%d", i+1)
		if c.money {
			params[i] += "::text::numeric"
		}
		if c.mutable {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c.name, c.name))
		}
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(t.columns)+1))

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (tenant_id, %s) DO UPDATE SET %s RETURNING (xmax = 0)",
		t.name,
		strings.Join(names, ", "),
		strings.Join(params, ", "),
		t.shopKey,
		strings.Join(sets, ", "),
	)
}

// PostgresRecordRepository implements RecordRepository for one record kind
type PostgresRecordRepository[T domain.Record[T]] struct {
	pool      *pgxpool.Pool
	table     pgTable[T]
	upsertSQL string
}

func newPostgresRecordRepository[T domain.Record[T]](pool *pgxpool.Pool, table pgTable[T]) *PostgresRecordRepository[T] {
	return &PostgresRecordRepository[T]{
		pool:      pool,
		table:     table,
		upsertSQL: table.upsertSQL(),
	}
}

var customersTable = pgTable[domain.Customer]{
	name:    "customers",
	shopKey: "shop_customer_id",
	columns: []pgColumn{
		{name: "id"},
		{name: "tenant_id"},
		{name: "shop_customer_id"},
		{name: "email", mutable: true},
		{name: "first_name", mutable: true},
		{name: "last_name", mutable: true},
		{name: "total_spent", money: true, mutable: true},
		{name: "created_at"},
		{name: "updated_at"},
	},
	values: func(c domain.Customer) []any {
		return []any{c.ID, c.TenantID, c.ShopCustomerID, c.Email, c.FirstName, c.LastName,
			c.TotalSpent.String(), c.CreatedAt, c.UpdatedAt}
	},
	scan: func(row pgx.Row) (domain.Customer, error) {
		var c domain.Customer
		var spent string
		if err := row.Scan(&c.ID, &c.TenantID, &c.ShopCustomerID, &c.Email, &c.FirstName, &c.LastName,
			&spent, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return c, err
		}
		var err error
		c.TotalSpent, err = decimal.NewFromString(spent)
		return c, err
	},
}

var ordersTable = pgTable[domain.Order]{
	name:    "orders",
	shopKey: "shop_order_id",
	columns: []pgColumn{
		{name: "id"},
		{name: "tenant_id"},
		{name: "shop_order_id"},
		{name: "order_number", mutable: true},
		{name: "total_price", money: true, mutable: true},
		{name: "currency", mutable: true},
		{name: "created_at"},
		{name: "updated_at"},
	},
	values: func(o domain.Order) []any {
		return []any{o.ID, o.TenantID, o.ShopOrderID, o.OrderNumber, o.TotalPrice.String(),
			o.Currency, o.CreatedAt, o.UpdatedAt}
	},
	scan: func(row pgx.Row) (domain.Order, error) {
		var o domain.Order
		var total string
		if err := row.Scan(&o.ID, &o.TenantID, &o.ShopOrderID, &o.OrderNumber, &total,
			&o.Currency, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return o, err
		}
		var err error
		o.TotalPrice, err = decimal.NewFromString(total)
		return o, err
	},
}

var productsTable = pgTable[domain.Product]{
	name:    "products",
	shopKey: "shop_product_id",
	columns: []pgColumn{
		{name: "id"},
		{name: "tenant_id"},
		{name: "shop_product_id"},
		{name: "title", mutable: true},
		{name: "price", money: true, mutable: true},
		{name: "created_at"},
		{name: "updated_at"},
	},
	values: func(p domain.Product) []any {
		return []any{p.ID, p.TenantID, p.ShopProductID, p.Title, p.Price.String(), p.CreatedAt, p.UpdatedAt}
	},
	scan: func(row pgx.Row) (domain.Product, error) {
		var p domain.Product
		var price string
		if err := row.Scan(&p.ID, &p.TenantID, &p.ShopProductID, &p.Title, &price,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return p, err
		}
		var err error
		p.Price, err = decimal.NewFromString(price)
		return p, err
	},
}

// NewPostgresCustomerRepository creates the customers repository
func NewPostgresCustomerRepository(pool *pgxpool.Pool) *PostgresRecordRepository[domain.Customer] {
	return newPostgresRecordRepository(pool, customersTable)
}

// NewPostgresOrderRepository creates the orders repository
func NewPostgresOrderRepository(pool *pgxpool.Pool) *PostgresRecordRepository[domain.Order] {
	return newPostgresRecordRepository(pool, ordersTable)
}

// NewPostgresProductRepository creates the products repository
func NewPostgresProductRepository(pool *pgxpool.Pool) *PostgresRecordRepository[domain.Product] {
	return newPostgresRecordRepository(pool, productsTable)
}

var (
	_ ports.RecordRepository[domain.Customer] = (*PostgresRecordRepository[domain.Customer])(nil)
	_ ports.RecordRepository[domain.Order]    = (*PostgresRecordRepository[domain.Order])(nil)
	_ ports.RecordRepository[domain.Product]  = (*PostgresRecordRepository[domain.Product])(nil)
)

// Upsert relies on ON CONFLICT, so concurrent callers converge on one row
func (r *PostgresRecordRepository[T]) Upsert(ctx context.Context, rec T, at time.Time) (bool, error) {
	args := append(r.table.values(rec), at.UTC())

	var created bool
	if err := r.pool.QueryRow(ctx, r.upsertSQL, args...).Scan(&created); err != nil {
		return false, fmt.Errorf("failed to upsert %s: %w", r.table.name, err)
	}
	return created, nil
}

// Get retrieves a record by natural key, or nil when absent
func (r *PostgresRecordRepository[T]) Get(ctx context.Context, key domain.NaturalKey) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE tenant_id = $1 AND %s = $2",
		r.table.selectList(), r.table.name, r.table.shopKey)

	rec, err := r.table.scan(r.pool.QueryRow(ctx, query, key.TenantID, key.ShopID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.table.name, err)
	}
	return &rec, nil
}

// ListByTenant retrieves every record of the tenant ordered by shop id
func (r *PostgresRecordRepository[T]) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE tenant_id = $1 ORDER BY %s",
		r.table.selectList(), r.table.name, r.table.shopKey)

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table.name, err)
	}
	defer rows.Close()

	var records []T
	for rows.Next() {
		rec, err := r.table.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.table.name, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.table.name, err)
	}
	return records, nil
}
