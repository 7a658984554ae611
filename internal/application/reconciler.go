package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Reconciler merges normalized platform payloads into the mirror. Bulk sync
// and webhooks both go through it, so they converge on the same rows.
type Reconciler struct {
	customers ports.RecordRepository[domain.Customer]
	orders    ports.RecordRepository[domain.Order]
	products  ports.RecordRepository[domain.Product]
	now       func() time.Time
	logger    zerolog.Logger
}

// ReconcilerOption customizes a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithClock replaces the clock used for defaulted timestamps.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) { r.now = now }
}

// NewReconciler creates a new reconciler
func NewReconciler(
	customers ports.RecordRepository[domain.Customer],
	orders ports.RecordRepository[domain.Order],
	products ports.RecordRepository[domain.Product],
	logger zerolog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	r := &Reconciler{
		customers: customers,
		orders:    orders,
		products:  products,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// UpsertCustomer reconciles one customer payload for tenantID
func (r *Reconciler) UpsertCustomer(ctx context.Context, tenantID uuid.UUID, p domain.CustomerPayload) (bool, error) {
	now := r.clock()
	return upsert(ctx, r.customers, domain.Customer{
		ID:             uuid.New(),
		TenantID:       tenantID,
		ShopCustomerID: int64(p.ID),
		Email:          string(p.Email),
		FirstName:      string(p.FirstName),
		LastName:       string(p.LastName),
		TotalSpent:     parseMoney(p.TotalSpent),
		CreatedAt:      parseInstant(p.CreatedAt, now),
		UpdatedAt:      parseInstant(p.UpdatedAt, now),
	}, now)
}

// UpsertOrder reconciles one order payload for tenantID
func (r *Reconciler) UpsertOrder(ctx context.Context, tenantID uuid.UUID, p domain.OrderPayload) (bool, error) {
	now := r.clock()
	return upsert(ctx, r.orders, domain.Order{
		ID:          uuid.New(),
		TenantID:    tenantID,
		ShopOrderID: int64(p.ID),
		OrderNumber: string(p.Name),
		TotalPrice:  parseMoney(p.TotalPrice),
		Currency:    string(p.Currency),
		CreatedAt:   parseInstant(p.CreatedAt, now),
		UpdatedAt:   parseInstant(p.UpdatedAt, now),
	}, now)
}

// UpsertProduct reconciles one product payload for tenantID. The price is
// the first variant's, or zero without variants.
func (r *Reconciler) UpsertProduct(ctx context.Context, tenantID uuid.UUID, p domain.ProductPayload) (bool, error) {
	now := r.clock()
	price := decimal.Zero
	if len(p.Variants) > 0 {
		price = parseMoney(p.Variants[0].Price)
	}
	return upsert(ctx, r.products, domain.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		ShopProductID: int64(p.ID),
		Title:         string(p.Title),
		Price:         price,
		CreatedAt:     parseInstant(p.CreatedAt, now),
		UpdatedAt:     parseInstant(p.UpdatedAt, now),
	}, now)
}

func (r *Reconciler) clock() time.Time {
	return r.now().UTC()
}

// upsert is the one write path for every record kind. A new row keeps the
// payload's updated_at; an existing row is stamped with at, the write time.
func upsert[T domain.Record[T]](ctx context.Context, repo ports.RecordRepository[T], rec T, at time.Time) (bool, error) {
	key := rec.Key()
	if key.ShopID == 0 {
		return false, fmt.Errorf("failed to upsert %s: %w", rec.Kind().Singular(), domain.ErrMissingNaturalKey)
	}

	created, err := repo.Upsert(ctx, rec, at)
	if err != nil {
		return false, fmt.Errorf("failed to upsert %s %d: %w", rec.Kind().Singular(), key.ShopID, err)
	}
	return created, nil
}

// reconcileAll upserts every payload of one collection. Payloads without a
// platform id are skipped and counted; any other failure aborts.
func reconcileAll[P any](
	ctx context.Context,
	payloads []P,
	apply func(context.Context, P) (bool, error),
) (applied, skipped int64, err error) {
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return applied, skipped, err
		}
		if _, err := apply(ctx, p); err != nil {
			if errors.Is(err, domain.ErrMissingNaturalKey) {
				skipped++
				continue
			}
			return applied, skipped, err
		}
		applied++
	}
	return applied, skipped, nil
}

// Amounts must fit a decimal128 column: 34 significant digits and a bounded
// exponent.
const (
	moneyDigits      = 34
	maxMoneyExponent = 6111
	minMoneyExponent = -6176
)

// parseMoney reads a decimal amount. Missing or malformed input is zero, as
// is an amount too large to store; excess fractional digits are rounded.
func parseMoney(s domain.FlexString) decimal.Decimal {
	text := strings.TrimSpace(string(s))
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	if n := d.NumDigits(); n > moneyDigits {
		places := -d.Exponent() - int32(n-moneyDigits)
		if places < 0 {
			return decimal.Zero
		}
		d = d.Round(places)
	}
	if d.NumDigits() > moneyDigits || d.Exponent() > maxMoneyExponent || d.Exponent() < minMoneyExponent {
		return decimal.Zero
	}
	return d
}

// parseInstant reads an RFC 3339 timestamp. Missing or malformed input is
// the arrival time.
func parseInstant(s domain.FlexString, now time.Time) time.Time {
	text := strings.TrimSpace(string(s))
	if text == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return now
	}
	return t.UTC()
}
