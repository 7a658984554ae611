package application

import (
	"context"
	"fmt"

	"shopify-catalog-mirror/internal/ports"

	"github.com/rs/zerolog"
)

// SubscriptionService makes sure every live tenant has the webhook topics
// the mirror consumes. Tenants served by fixtures never reach the platform
// and are skipped.
type SubscriptionService struct {
	tenants   ports.TenantRepository
	registrar ports.WebhookRegistrar
	fixtures  ports.FixtureProvider
	logger    zerolog.Logger
}

// NewSubscriptionService creates a new subscription service. fixtures may be nil.
func NewSubscriptionService(
	tenants ports.TenantRepository,
	registrar ports.WebhookRegistrar,
	fixtures ports.FixtureProvider,
	logger zerolog.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		tenants:   tenants,
		registrar: registrar,
		fixtures:  fixtures,
		logger:    logger,
	}
}

// EnsureAll registers missing subscriptions tenant by tenant. A tenant
// failing is logged and does not stop the rest.
func (s *SubscriptionService) EnsureAll(ctx context.Context) (int, error) {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants: %w", err)
	}

	total := 0
	for _, tenant := range tenants {
		if s.servedByFixtures(tenant.ShopDomain) {
			continue
		}
		if tenant.AccessToken == "" {
			s.logger.Warn().Str("shop", tenant.ShopDomain).Msg("Tenant has no access token, skipping webhook subscriptions")
			continue
		}

		created, err := s.registrar.EnsureSubscriptions(ctx, tenant.ShopDomain, tenant.AccessToken)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("tenantId", tenant.ID.String()).
				Str("shop", tenant.ShopDomain).
				Msg("Failed to ensure webhook subscriptions")
			continue
		}
		total += created
	}
	return total, nil
}

// servedByFixtures reports whether any collection of shop comes from a fixture
// dataset; such shops never receive live webhooks.
func (s *SubscriptionService) servedByFixtures(shop string) bool {
	if s.fixtures == nil {
		return false
	}
	if _, ok := s.fixtures.CustomersFor(shop); ok {
		return true
	}
	if _, ok := s.fixtures.OrdersFor(shop); ok {
		return true
	}
	_, ok := s.fixtures.ProductsFor(shop)
	return ok
}
