package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-catalog-mirror/internal/application"
	"shopify-catalog-mirror/internal/application/webhook_handlers"
	"shopify-catalog-mirror/internal/config"
	"shopify-catalog-mirror/internal/infrastructure/api"
	"shopify-catalog-mirror/internal/infrastructure/cache"
	"shopify-catalog-mirror/internal/infrastructure/fixtures"
	"shopify-catalog-mirror/internal/infrastructure/metrics"
	"shopify-catalog-mirror/internal/infrastructure/pubsub"
	"shopify-catalog-mirror/internal/infrastructure/repository"
	shopifyinfra "shopify-catalog-mirror/internal/infrastructure/shopify"
	"shopify-catalog-mirror/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open store")
	}
	defer closeStore()

	// Cross-replica coordination falls back to in-process state without Redis
	var (
		locker     ports.Locker
		deliveries ports.DeliveryLog
	)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, logger)
		deliveries = cache.NewRedisDeliveryLog(redisClient, cfg.DeliveryLogTTL)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis for sweep lease and webhook dedupe")
	} else {
		locker = cache.NewLocalLocker()
		deliveries = cache.NewLocalDeliveryLog(cfg.DeliveryLogTTL)
	}

	fixtureProvider := fixtures.Empty()
	if cfg.FixturesEnabled {
		fixtureProvider, err = fixtures.Load(cfg.FixturesPath, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to load fixture datasets")
		}
	}

	tenantService := application.NewTenantService(store.Tenants, logger)
	if cfg.SeedFixtures {
		created, err := tenantService.SeedTenants(ctx, fixtureProvider.ShopDomains())
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed fixture tenants")
		}
		logger.Info().Int("created", created).Msg("Seeded fixture tenants")
	}

	// Telemetry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	telemetry := metrics.NewSyncMetrics(registry)

	eventPubSub := pubsub.NewEventPubSub(logger)

	upstream := shopifyinfra.NewClient(shopifyinfra.ClientConfig{
		APIVersion:       cfg.Shopify.APIVersion,
		RequestTimeout:   cfg.Shopify.RequestTimeout,
		MaxRetries:       cfg.Shopify.MaxRetries,
		RateLimitBackoff: cfg.Shopify.RateLimitBackoff,
		PageLimit:        cfg.Shopify.PageLimit,
	}, logger)

	reconciler := application.NewReconciler(store.Customers, store.Orders, store.Products, logger)

	syncService := application.NewSyncService(
		store.Tenants,
		upstream,
		fixtureProvider,
		reconciler,
		telemetry,
		eventPubSub,
		application.SyncOptions{
			Concurrency: cfg.Sync.Concurrency,
			Locker:      locker,
			LockTTL:     cfg.Sync.LockTTL,
		},
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	ingestion := application.NewIngestionAdapter(reconciler, logger)
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(ingestion, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(ingestion, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(ingestion, logger))

	if cfg.Shopify.WebhookSecret == "" {
		logger.Warn().Msg("SHOPIFY_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}
	webhookService := application.NewWebhookService(
		store.Tenants,
		shopifyinfra.NewWebhookVerifier(cfg.Shopify.WebhookSecret),
		deliveries,
		webhookDispatcher,
		telemetry,
		eventPubSub,
		logger,
	)

	if cfg.Shopify.WebhookCallbackURL != "" {
		registrar := shopifyinfra.NewWebhookRegistrar(
			cfg.Shopify.APIKey,
			cfg.Shopify.APISecret,
			cfg.Shopify.APIVersion,
			cfg.Shopify.WebhookCallbackURL,
			logger,
		)
		subscriptions := application.NewSubscriptionService(store.Tenants, registrar, fixtureProvider, logger)
		go func() {
			created, err := subscriptions.EnsureAll(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to ensure webhook subscriptions")
				return
			}
			logger.Info().Int("created", created).Msg("Webhook subscriptions ensured")
		}()
	}

	var scheduler *application.Scheduler
	if cfg.Sync.Enabled {
		scheduler = application.NewScheduler(syncService, cfg.Sync.Interval, logger)
		scheduler.Start(ctx)
	}

	router := api.NewRouter(api.RouterDeps{
		Webhooks: webhookService,
		Syncer:   syncService,
		Tenants:  store.Tenants,
		Events:   eventPubSub,
		Gatherer: registry,
	}, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
}

// openStore connects the configured backend and returns its repositories
// with a function releasing the connection.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		store, err := repository.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("Using MongoDB store")
		return store, closeFn, nil

	case config.DriverPostgres:
		pool, err := repository.NewPostgresPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("Using PostgreSQL store")
		return store, pool.Close, nil

	case config.DriverMemory:
		logger.Warn().Msg("Using in-memory store, mirrored records are lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
