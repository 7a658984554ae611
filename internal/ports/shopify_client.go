package ports

import (
	"context"

	"shopify-catalog-mirror/internal/domain"
)

// UpstreamClient fetches whole collections from the platform's admin API.
type UpstreamClient interface {
	FetchCustomers(ctx context.Context, shopDomain, accessToken string) ([]domain.CustomerPayload, error)
	FetchOrders(ctx context.Context, shopDomain, accessToken string) ([]domain.OrderPayload, error)
	FetchProducts(ctx context.Context, shopDomain, accessToken string) ([]domain.ProductPayload, error)
}

// FixtureProvider substitutes canned collections for live calls. A false
// second return means no fixture applies and the live client should be used.
type FixtureProvider interface {
	CustomersFor(shopDomain string) ([]domain.CustomerPayload, bool)
	OrdersFor(shopDomain string) ([]domain.OrderPayload, bool)
	ProductsFor(shopDomain string) ([]domain.ProductPayload, bool)
}

// WebhookRegistrar makes sure the platform delivers the mirrored topics.
type WebhookRegistrar interface {
	EnsureSubscriptions(ctx context.Context, shopDomain, accessToken string) (created int, err error)
}
