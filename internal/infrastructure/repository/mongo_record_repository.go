package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/infrastructure/repository/entity"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// upsertAttempts bounds the update/insert race: a losing insert sees a
// duplicate key and the retried update then matches the winner's document.
const upsertAttempts = 3

// mongoCodec maps one record kind onto its collection documents.
type mongoCodec[T any] struct {
	collection string
	document   func(rec T) (any, error)
	refresh    func(rec T, at time.Time) (bson.M, error)
	decode     func(cur interface{ Decode(any) error }) (T, error)
}

// MongoRecordRepository implements RecordRepository for one record kind
type MongoRecordRepository[T domain.Record[T]] struct {
	collection *mongo.Collection
	codec      mongoCodec[T]
}

func newMongoRecordRepository[T domain.Record[T]](db *mongo.Database, codec mongoCodec[T]) *MongoRecordRepository[T] {
	return &MongoRecordRepository[T]{
		collection: db.Collection(codec.collection),
		codec:      codec,
	}
}

// NewMongoCustomerRepository creates the customers repository
func NewMongoCustomerRepository(db *mongo.Database) *MongoRecordRepository[domain.Customer] {
	return newMongoRecordRepository(db, mongoCodec[domain.Customer]{
		collection: "customers",
		document: func(c domain.Customer) (any, error) {
			return entity.MongoCustomerDocFromDomain(c)
		},
		refresh: entity.CustomerRefresh,
		decode: func(cur interface{ Decode(any) error }) (domain.Customer, error) {
			var doc entity.MongoCustomerDoc
			if err := cur.Decode(&doc); err != nil {
				return domain.Customer{}, err
			}
			return doc.ToDomain()
		},
	})
}

// NewMongoOrderRepository creates the orders repository
func NewMongoOrderRepository(db *mongo.Database) *MongoRecordRepository[domain.Order] {
	return newMongoRecordRepository(db, mongoCodec[domain.Order]{
		collection: "orders",
		document: func(o domain.Order) (any, error) {
			return entity.MongoOrderDocFromDomain(o)
		},
		refresh: entity.OrderRefresh,
		decode: func(cur interface{ Decode(any) error }) (domain.Order, error) {
			var doc entity.MongoOrderDoc
			if err := cur.Decode(&doc); err != nil {
				return domain.Order{}, err
			}
			return doc.ToDomain()
		},
	})
}

// NewMongoProductRepository creates the products repository
func NewMongoProductRepository(db *mongo.Database) *MongoRecordRepository[domain.Product] {
	return newMongoRecordRepository(db, mongoCodec[domain.Product]{
		collection: "products",
		document: func(p domain.Product) (any, error) {
			return entity.MongoProductDocFromDomain(p)
		},
		refresh: entity.ProductRefresh,
		decode: func(cur interface{ Decode(any) error }) (domain.Product, error) {
			var doc entity.MongoProductDoc
			if err := cur.Decode(&doc); err != nil {
				return domain.Product{}, err
			}
			return doc.ToDomain()
		},
	})
}

var (
	_ ports.RecordRepository[domain.Customer] = (*MongoRecordRepository[domain.Customer])(nil)
	_ ports.RecordRepository[domain.Order]    = (*MongoRecordRepository[domain.Order])(nil)
	_ ports.RecordRepository[domain.Product]  = (*MongoRecordRepository[domain.Product])(nil)
)

// EnsureIndexes creates the unique natural key index the upsert relies on
func (r *MongoRecordRepository[T]) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: entity.FieldTenantID, Value: 1},
			{Key: entity.FieldShopID, Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create %s index: %w", r.codec.collection, err)
	}
	return nil
}

// Upsert refreshes the stored document for rec's natural key or inserts rec
func (r *MongoRecordRepository[T]) Upsert(ctx context.Context, rec T, at time.Time) (bool, error) {
	refresh, err := r.codec.refresh(rec, at.UTC())
	if err != nil {
		return false, err
	}
	doc, err := r.codec.document(rec)
	if err != nil {
		return false, err
	}
	filter := keyFilter(rec.Key())

	for attempt := 0; attempt < upsertAttempts; attempt++ {
		result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": refresh})
		if err != nil {
			return false, fmt.Errorf("failed to update %s: %w", r.codec.collection, err)
		}
		if result.MatchedCount > 0 {
			return false, nil
		}

		_, err = r.collection.InsertOne(ctx, doc)
		if err == nil {
			return true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return false, fmt.Errorf("failed to insert %s: %w", r.codec.collection, err)
		}
	}
	return false, fmt.Errorf("failed to upsert %s: natural key kept conflicting", r.codec.collection)
}

// Get retrieves a record by natural key, or nil when absent
func (r *MongoRecordRepository[T]) Get(ctx context.Context, key domain.NaturalKey) (*T, error) {
	res := r.collection.FindOne(ctx, keyFilter(key))
	if errors.Is(res.Err(), mongo.ErrNoDocuments) {
		return nil, nil
	}
	if res.Err() != nil {
		return nil, fmt.Errorf("failed to get %s: %w", r.codec.collection, res.Err())
	}

	rec, err := r.codec.decode(res)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.codec.collection, err)
	}
	return &rec, nil
}

// ListByTenant retrieves every record of the tenant ordered by shop id
func (r *MongoRecordRepository[T]) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: entity.FieldShopID, Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{entity.FieldTenantID: tenantID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.codec.collection, err)
	}
	defer cursor.Close(ctx)

	var records []T
	for cursor.Next(ctx) {
		rec, err := r.codec.decode(cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", r.codec.collection, err)
		}
		records = append(records, rec)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return records, nil
}

func keyFilter(key domain.NaturalKey) bson.M {
	return bson.M{
		entity.FieldTenantID: key.TenantID.String(),
		entity.FieldShopID:   key.ShopID,
	}
}
