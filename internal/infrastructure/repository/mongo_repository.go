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

// MongoTenantRepository implements TenantRepository using MongoDB
type MongoTenantRepository struct {
	collection *mongo.Collection
}

// NewMongoTenantRepository creates a new MongoDB tenant repository
func NewMongoTenantRepository(db *mongo.Database) *MongoTenantRepository {
	return &MongoTenantRepository{
		collection: db.Collection("tenants"),
	}
}

var _ ports.TenantRepository = (*MongoTenantRepository)(nil)

// EnsureIndexes creates the unique shop domain index
func (r *MongoTenantRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "shopDomain", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create tenant index: %w", err)
	}
	return nil
}

// Create inserts a new tenant
func (r *MongoTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, entity.MongoTenantDocFromDomain(tenant))
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by id
func (r *MongoTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByShopDomain retrieves a tenant by its normalized shop domain
func (r *MongoTenantRepository) GetByShopDomain(ctx context.Context, shopDomain string) (*domain.Tenant, error) {
	return r.findOne(ctx, bson.M{"shopDomain": domain.NormalizeShopDomain(shopDomain)})
}

func (r *MongoTenantRepository) findOne(ctx context.Context, filter bson.M) (*domain.Tenant, error) {
	var doc entity.MongoTenantDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	tenant, err := doc.ToDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode tenant: %w", err)
	}
	return tenant, nil
}

// List retrieves all tenants ordered by creation time
func (r *MongoTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer cursor.Close(ctx)

	var tenants []*domain.Tenant
	for cursor.Next(ctx) {
		var doc entity.MongoTenantDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode tenant: %w", err)
		}
		tenant, err := doc.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return tenants, nil
}

// MarkSynced advances lastSyncAt; $max keeps it monotonic under concurrent syncs
func (r *MongoTenantRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$max": bson.M{"lastSyncAt": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark tenant synced: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
