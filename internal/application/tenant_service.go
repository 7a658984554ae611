package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/rs/zerolog"
)

// TenantService registers shops the mirror should follow
type TenantService struct {
	tenants ports.TenantRepository
	logger  zerolog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(tenants ports.TenantRepository, logger zerolog.Logger) *TenantService {
	return &TenantService{
		tenants: tenants,
		logger:  logger,
	}
}

// RegisterTenantInput represents input for registering a tenant
type RegisterTenantInput struct {
	ShopDomain   string
	AccessToken  string
	ContactEmail string
}

// RegisterTenant creates the tenant, or returns the existing one for the
// same shop domain
func (s *TenantService) RegisterTenant(ctx context.Context, input RegisterTenantInput) (*domain.Tenant, bool, error) {
	shopDomain := domain.NormalizeShopDomain(input.ShopDomain)
	if shopDomain == "" || strings.ContainsAny(shopDomain, " /") {
		return nil, false, fmt.Errorf("invalid shop domain %q", input.ShopDomain)
	}

	existing, err := s.tenants.GetByShopDomain(ctx, shopDomain)
	if err == nil {
		s.logger.Debug().
			Str("shop", shopDomain).
			Str("tenantId", existing.ID.String()).
			Msg("Tenant already registered")
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrTenantNotFound) {
		return nil, false, fmt.Errorf("failed to check existing tenant: %w", err)
	}

	tenant := &domain.Tenant{
		ShopDomain:   shopDomain,
		AccessToken:  input.AccessToken,
		ContactEmail: input.ContactEmail,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, false, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.logger.Info().
		Str("shop", shopDomain).
		Str("tenantId", tenant.ID.String()).
		Msg("Registered tenant")
	return tenant, true, nil
}

// SeedTenants registers one tenant per shop domain, typically the fixture
// datasets' domains for a demo run. It returns how many were new.
func (s *TenantService) SeedTenants(ctx context.Context, shopDomains []string) (int, error) {
	created := 0
	for _, shopDomain := range shopDomains {
		_, isNew, err := s.RegisterTenant(ctx, RegisterTenantInput{ShopDomain: shopDomain})
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
