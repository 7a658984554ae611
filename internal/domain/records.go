package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResourceKind is the closed set of collections mirrored from the platform.
type ResourceKind string

const (
	KindCustomer ResourceKind = "customers"
	KindOrder    ResourceKind = "orders"
	KindProduct  ResourceKind = "products"
)

// ResourceKinds lists the kinds in the order a full sync visits them.
var ResourceKinds = []ResourceKind{KindCustomer, KindOrder, KindProduct}

// Singular returns the key a webhook body may wrap its record under.
func (k ResourceKind) Singular() string {
	switch k {
	case KindCustomer:
		return "customer"
	case KindOrder:
		return "order"
	case KindProduct:
		return "product"
	}
	return string(k)
}

// NaturalKey identifies a mirrored record: tenant plus the platform's own id.
type NaturalKey struct {
	TenantID uuid.UUID
	ShopID   int64
}

// Record is implemented by every mirrored entity. Refresh returns the receiver
// with its mutable fields overwritten from incoming and UpdatedAt set to at;
// identity fields and CreatedAt are kept.
type Record[T any] interface {
	Kind() ResourceKind
	Key() NaturalKey
	Refresh(incoming T, at time.Time) T
}

// Customer mirrors a platform customer.
type Customer struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	ShopCustomerID int64           `json:"shop_customer_id"`
	Email          string          `json:"email"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (c Customer) Kind() ResourceKind { return KindCustomer }

func (c Customer) Key() NaturalKey {
	return NaturalKey{TenantID: c.TenantID, ShopID: c.ShopCustomerID}
}

func (c Customer) Refresh(in Customer, at time.Time) Customer {
	c.Email = in.Email
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.TotalSpent = in.TotalSpent
	c.UpdatedAt = at
	return c
}

// Order mirrors a platform order.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	ShopOrderID int64           `json:"shop_order_id"`
	OrderNumber string          `json:"order_number"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (o Order) Kind() ResourceKind { return KindOrder }

func (o Order) Key() NaturalKey {
	return NaturalKey{TenantID: o.TenantID, ShopID: o.ShopOrderID}
}

func (o Order) Refresh(in Order, at time.Time) Order {
	o.OrderNumber = in.OrderNumber
	o.TotalPrice = in.TotalPrice
	o.Currency = in.Currency
	o.UpdatedAt = at
	return o
}

// Product mirrors a platform product. Price comes from the first variant.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	ShopProductID int64           `json:"shop_product_id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p Product) Kind() ResourceKind { return KindProduct }

func (p Product) Key() NaturalKey {
	return NaturalKey{TenantID: p.TenantID, ShopID: p.ShopProductID}
}

func (p Product) Refresh(in Product, at time.Time) Product {
	p.Title = in.Title
	p.Price = in.Price
	p.UpdatedAt = at
	return p
}
