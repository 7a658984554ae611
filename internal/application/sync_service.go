package application

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SweepLockKey is the lease a replica must hold to run the all-tenants sweep.
const SweepLockKey = "catalog-mirror:sweep"

// SyncOptions tune the sweep. Zero values fall back to one tenant at a time
// and no cross-replica lease.
type SyncOptions struct {
	Concurrency int
	Locker      ports.Locker
	LockTTL     time.Duration
	Clock       func() time.Time
}

// SweepResult summarizes one all-tenants sweep for logging.
type SweepResult struct {
	Tenants   int
	Succeeded int
	Failed    int
	Skipped   bool
}

// SyncService pulls whole collections for tenants and reconciles them.
type SyncService struct {
	tenants    ports.TenantRepository
	upstream   ports.UpstreamClient
	fixtures   ports.FixtureProvider
	reconciler *Reconciler
	telemetry  ports.SyncTelemetry
	events     ports.EventPublisher
	opts       SyncOptions
	logger     zerolog.Logger
}

// NewSyncService creates a new sync service. fixtures and events may be nil.
func NewSyncService(
	tenants ports.TenantRepository,
	upstream ports.UpstreamClient,
	fixtures ports.FixtureProvider,
	reconciler *Reconciler,
	telemetry ports.SyncTelemetry,
	events ports.EventPublisher,
	opts SyncOptions,
	logger zerolog.Logger,
) *SyncService {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &SyncService{
		tenants:    tenants,
		upstream:   upstream,
		fixtures:   fixtures,
		reconciler: reconciler,
		telemetry:  telemetry,
		events:     events,
		opts:       opts,
		logger:     logger,
	}
}

// SyncTenantByID looks the tenant up and syncs it.
func (s *SyncService) SyncTenantByID(ctx context.Context, id uuid.UUID) (*domain.SyncResult, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SyncTenant(ctx, tenant)
}

// SyncTenant reconciles customers, orders and products in that order. Only
// a run that gets through all three advances the tenant's last sync time;
// a failure leaves it as it was and is returned with the partial result.
func (s *SyncService) SyncTenant(ctx context.Context, tenant *domain.Tenant) (*domain.SyncResult, error) {
	result := &domain.SyncResult{
		TenantID:  tenant.ID,
		State:     domain.SyncStarted,
		StartedAt: s.now(),
	}
	log := s.logger.With().
		Str("tenantId", tenant.ID.String()).
		Str("shop", tenant.ShopDomain).
		Logger()
	log.Info().Msg("Starting tenant sync")

	for _, kind := range domain.ResourceKinds {
		applied, skipped, err := s.syncKind(ctx, tenant, kind)
		if err != nil {
			return s.fail(result, fmt.Errorf("failed to sync %s: %w", kind, err))
		}
		if skipped > 0 {
			log.Warn().
				Str("kind", string(kind)).
				Int64("skipped", skipped).
				Msg("Skipped records without a platform id")
		}
		result.Counts.Add(kind, applied)
		result.Skipped += skipped
		result.State = domain.SyncedState(kind)
	}

	finishedAt := s.now()
	if err := s.tenants.MarkSynced(ctx, tenant.ID, finishedAt); err != nil {
		return s.fail(result, fmt.Errorf("failed to stamp last sync: %w", err))
	}
	tenant.LastSyncAt = &finishedAt
	result.FinishedAt = finishedAt
	result.State = domain.SyncFinalized

	s.telemetry.RecordSyncSuccess(tenant.ID, result.Counts, result.Duration())
	s.publish(&domain.IngestionEvent{
		Type:       domain.EventSyncFinished,
		TenantID:   tenant.ID,
		Sync:       result,
		OccurredAt: finishedAt,
	})

	log.Info().
		Int64("customers", result.Counts.Customers).
		Int64("orders", result.Counts.Orders).
		Int64("products", result.Counts.Products).
		Dur("duration", result.Duration()).
		Msg("Tenant sync finished")
	return result, nil
}

func (s *SyncService) fail(result *domain.SyncResult, err error) (*domain.SyncResult, error) {
	result.State = domain.SyncFailed
	result.FinishedAt = s.now()

	s.telemetry.RecordSyncFailure(result.TenantID, FailureClass(err))
	s.publish(&domain.IngestionEvent{
		Type:       domain.EventSyncFailed,
		TenantID:   result.TenantID,
		Sync:       result,
		Error:      err.Error(),
		OccurredAt: result.FinishedAt,
	})
	return result, err
}

func (s *SyncService) syncKind(ctx context.Context, tenant *domain.Tenant, kind domain.ResourceKind) (int64, int64, error) {
	switch kind {
	case domain.KindCustomer:
		payloads, err := fetch(ctx, s, tenant, s.fixtureCustomers, s.upstream.FetchCustomers)
		if err != nil {
			return 0, 0, err
		}
		return reconcileAll(ctx, payloads, func(ctx context.Context, p domain.CustomerPayload) (bool, error) {
			return s.reconciler.UpsertCustomer(ctx, tenant.ID, p)
		})
	case domain.KindOrder:
		payloads, err := fetch(ctx, s, tenant, s.fixtureOrders, s.upstream.FetchOrders)
		if err != nil {
			return 0, 0, err
		}
		return reconcileAll(ctx, payloads, func(ctx context.Context, p domain.OrderPayload) (bool, error) {
			return s.reconciler.UpsertOrder(ctx, tenant.ID, p)
		})
	case domain.KindProduct:
		payloads, err := fetch(ctx, s, tenant, s.fixtureProducts, s.upstream.FetchProducts)
		if err != nil {
			return 0, 0, err
		}
		return reconcileAll(ctx, payloads, func(ctx context.Context, p domain.ProductPayload) (bool, error) {
			return s.reconciler.UpsertProduct(ctx, tenant.ID, p)
		})
	}
	return 0, 0, fmt.Errorf("unknown resource kind %q", kind)
}

// fetch prefers a fixture for the tenant's domain and only then calls the
// platform.
func fetch[P any](
	ctx context.Context,
	s *SyncService,
	tenant *domain.Tenant,
	fixture func(string) ([]P, bool),
	live func(ctx context.Context, shopDomain, accessToken string) ([]P, error),
) ([]P, error) {
	if payloads, ok := fixture(tenant.ShopDomain); ok {
		s.logger.Debug().
			Str("tenantId", tenant.ID.String()).
			Int("records", len(payloads)).
			Msg("Using fixture dataset")
		return payloads, nil
	}
	return live(ctx, tenant.ShopDomain, tenant.AccessToken)
}

func (s *SyncService) fixtureCustomers(shop string) ([]domain.CustomerPayload, bool) {
	if s.fixtures == nil {
		return nil, false
	}
	return s.fixtures.CustomersFor(shop)
}

func (s *SyncService) fixtureOrders(shop string) ([]domain.OrderPayload, bool) {
	if s.fixtures == nil {
		return nil, false
	}
	return s.fixtures.OrdersFor(shop)
}

func (s *SyncService) fixtureProducts(shop string) ([]domain.ProductPayload, bool) {
	if s.fixtures == nil {
		return nil, false
	}
	return s.fixtures.ProductsFor(shop)
}

// SyncAllTenants syncs every tenant, at most opts.Concurrency at a time.
// One tenant failing never stops the others; failures are logged only.
func (s *SyncService) SyncAllTenants(ctx context.Context) (*SweepResult, error) {
	if s.opts.Locker != nil {
		release, ok, err := s.opts.Locker.Acquire(ctx, SweepLockKey, s.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire sweep lease: %w", err)
		}
		if !ok {
			s.logger.Info().Msg("Another replica holds the sweep lease, skipping sweep")
			return &SweepResult{Skipped: true}, nil
		}
		defer release()
	}

	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	var succeeded, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, tenant := range tenants {
		g.Go(func() error {
			if _, err := s.SyncTenant(ctx, tenant); err != nil {
				failed.Add(1)
				s.logger.Error().
					Err(err).
					Str("tenantId", tenant.ID.String()).
					Str("shop", tenant.ShopDomain).
					Msg("Failed to sync tenant")
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return &SweepResult{
		Tenants:   len(tenants),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

func (s *SyncService) now() time.Time {
	return s.opts.Clock().UTC()
}

func (s *SyncService) publish(event *domain.IngestionEvent) {
	if s.events != nil {
		s.events.Publish(event)
	}
}

// FailureClass labels err for telemetry. Upstream errors carry their own
// class; everything else is grouped coarsely.
func FailureClass(err error) string {
	var classified interface{ FailureClass() string }
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &classified):
		return classified.FailureClass()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrTenantNotFound):
		return "tenant_not_found"
	}
	return "internal"
}
