package entity

import (
	"fmt"
	"time"

	"shopify-catalog-mirror/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names shared by every record collection.
const (
	FieldTenantID  = "tenantId"
	FieldShopID    = "shopId"
	FieldUpdatedAt = "updatedAt"
)

// MongoCustomerDoc represents a mirrored customer in MongoDB
type MongoCustomerDoc struct {
	ID         string               `bson:"_id"`
	TenantID   string               `bson:"tenantId"`
	ShopID     int64                `bson:"shopId"`
	Email      string               `bson:"email"`
	FirstName  string               `bson:"firstName"`
	LastName   string               `bson:"lastName"`
	TotalSpent primitive.Decimal128 `bson:"totalSpent"`
	CreatedAt  time.Time            `bson:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt"`
}

func (d *MongoCustomerDoc) ToDomain() (domain.Customer, error) {
	id, tenantID, err := parseIDs(d.ID, d.TenantID)
	if err != nil {
		return domain.Customer{}, err
	}
	spent, err := fromDecimal128(d.TotalSpent)
	if err != nil {
		return domain.Customer{}, err
	}
	return domain.Customer{
		ID:             id,
		TenantID:       tenantID,
		ShopCustomerID: d.ShopID,
		Email:          d.Email,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		TotalSpent:     spent,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

func MongoCustomerDocFromDomain(c domain.Customer) (*MongoCustomerDoc, error) {
	spent, err := toDecimal128(c.TotalSpent)
	if err != nil {
		return nil, err
	}
	return &MongoCustomerDoc{
		ID:         c.ID.String(),
		TenantID:   c.TenantID.String(),
		ShopID:     c.ShopCustomerID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		TotalSpent: spent,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}, nil
}

// CustomerRefresh is the $set applied when a customer already exists.
func CustomerRefresh(c domain.Customer, at time.Time) (bson.M, error) {
	spent, err := toDecimal128(c.TotalSpent)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"email":         c.Email,
		"firstName":     c.FirstName,
		"lastName":      c.LastName,
		"totalSpent":    spent,
		FieldUpdatedAt: at,
	}, nil
}

// MongoOrderDoc represents a mirrored order in MongoDB
type MongoOrderDoc struct {
	ID          string               `bson:"_id"`
	TenantID    string               `bson:"tenantId"`
	ShopID      int64                `bson:"shopId"`
	OrderNumber string               `bson:"orderNumber"`
	TotalPrice  primitive.Decimal128 `bson:"totalPrice"`
	Currency    string               `bson:"currency"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func (d *MongoOrderDoc) ToDomain() (domain.Order, error) {
	id, tenantID, err := parseIDs(d.ID, d.TenantID)
	if err != nil {
		return domain.Order{}, err
	}
	total, err := fromDecimal128(d.TotalPrice)
	if err != nil {
		return domain.Order{}, err
	}
	return domain.Order{
		ID:          id,
		TenantID:    tenantID,
		ShopOrderID: d.ShopID,
		OrderNumber: d.OrderNumber,
		TotalPrice:  total,
		Currency:    d.Currency,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func MongoOrderDocFromDomain(o domain.Order) (*MongoOrderDoc, error) {
	total, err := toDecimal128(o.TotalPrice)
	if err != nil {
		return nil, err
	}
	return &MongoOrderDoc{
		ID:          o.ID.String(),
		TenantID:    o.TenantID.String(),
		ShopID:      o.ShopOrderID,
		OrderNumber: o.OrderNumber,
		TotalPrice:  total,
		Currency:    o.Currency,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}, nil
}

func OrderRefresh(o domain.Order, at time.Time) (bson.M, error) {
	total, err := toDecimal128(o.TotalPrice)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"orderNumber":  o.OrderNumber,
		"totalPrice":   total,
		"currency":     o.Currency,
		FieldUpdatedAt: at,
	}, nil
}

// MongoProductDoc represents a mirrored product in MongoDB
type MongoProductDoc struct {
	ID        string               `bson:"_id"`
	TenantID  string               `bson:"tenantId"`
	ShopID    int64                `bson:"shopId"`
	Title     string               `bson:"title"`
	Price     primitive.Decimal128 `bson:"price"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d *MongoProductDoc) ToDomain() (domain.Product, error) {
	id, tenantID, err := parseIDs(d.ID, d.TenantID)
	if err != nil {
		return domain.Product{}, err
	}
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:            id,
		TenantID:      tenantID,
		ShopProductID: d.ShopID,
		Title:         d.Title,
		Price:         price,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func MongoProductDocFromDomain(p domain.Product) (*MongoProductDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	return &MongoProductDoc{
		ID:        p.ID.String(),
		TenantID:  p.TenantID.String(),
		ShopID:    p.ShopProductID,
		Title:     p.Title,
		Price:     price,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func ProductRefresh(p domain.Product, at time.Time) (bson.M, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	return bson.M{
		"title":        p.Title,
		"price":        price,
		FieldUpdatedAt: at,
	}, nil
}

func parseIDs(id, tenantID string) (uuid.UUID, uuid.UUID, error) {
	rid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid tenant id %q: %w", tenantID, err)
	}
	return rid, tid, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode amount with %d digits and exponent %d: %w", d.NumDigits(), d.Exponent(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode amount %s: %w", v.String(), err)
	}
	return d, nil
}
