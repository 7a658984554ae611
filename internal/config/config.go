// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	minRequestTimeout   = time.Second
	minRateLimitBackoff = time.Second
)

// Config is everything main needs to wire the service.
type Config struct {
	Port     string
	LogLevel zerolog.Level

	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DeliveryLogTTL time.Duration

	Shopify ShopifyConfig
	Sync    SyncConfig

	FixturesEnabled bool
	FixturesPath    string
	SeedFixtures    bool
}

// ShopifyConfig holds the upstream and webhook settings.
type ShopifyConfig struct {
	APIVersion         string
	WebhookSecret      string
	RequestTimeout     time.Duration
	MaxRetries         int
	RateLimitBackoff   time.Duration
	PageLimit          int
	APIKey             string
	APISecret          string
	WebhookCallbackURL string
}

// SyncConfig holds the scheduled sweep settings.
type SyncConfig struct {
	Enabled     bool
	Interval    time.Duration
	Concurrency int
	LockTTL     time.Duration
}

// Load reads .env when present and then the process environment.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var errs []error
	p := &parser{errs: &errs}

	cfg := &Config{
		Port:           p.str("PORT", "8080"),
		StoreDriver:    strings.ToLower(p.str("STORE_DRIVER", DriverMongo)),
		MongoURI:       p.str("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  p.str("MONGODB_DATABASE", "catalog_mirror"),
		PostgresDSN:    p.str("POSTGRES_DSN", ""),
		RedisAddr:      p.str("REDIS_ADDR", ""),
		RedisPassword:  p.str("REDIS_PASSWORD", ""),
		RedisDB:        p.integer("REDIS_DB", 0),
		DeliveryLogTTL: p.duration("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		Shopify: ShopifyConfig{
			APIVersion:         p.str("SHOPIFY_API_VERSION", "2024-01"),
			WebhookSecret:      p.str("SHOPIFY_WEBHOOK_SECRET", ""),
			RequestTimeout:     time.Duration(p.integer("SHOPIFY_REQUEST_TIMEOUT_MS", 10000)) * time.Millisecond,
			MaxRetries:         p.integer("SHOPIFY_MAX_RETRIES", 3),
			RateLimitBackoff:   time.Duration(p.integer("SHOPIFY_RATE_LIMIT_BACKOFF_SECONDS", 2)) * time.Second,
			PageLimit:          p.integer("SHOPIFY_PAGE_LIMIT", 250),
			APIKey:             p.str("SHOPIFY_API_KEY", ""),
			APISecret:          p.str("SHOPIFY_API_SECRET", ""),
			WebhookCallbackURL: p.str("WEBHOOK_CALLBACK_URL", ""),
		},
		Sync: SyncConfig{
			Enabled:     p.boolean("SYNC_ENABLED", true),
			Interval:    p.duration("SYNC_INTERVAL", 5*time.Minute),
			Concurrency: p.integer("SYNC_CONCURRENCY", 1),
			LockTTL:     p.duration("SYNC_LOCK_TTL", 10*time.Minute),
		},
		FixturesEnabled: p.boolean("FIXTURES_ENABLED", true),
		FixturesPath:    p.str("FIXTURES_PATH", ""),
		SeedFixtures:    p.boolean("SEED_FIXTURE_TENANTS", false),
	}

	level, err := zerolog.ParseLevel(strings.ToLower(p.str("LOG_LEVEL", "info")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	cfg.LogLevel = level

	if cfg.Shopify.RequestTimeout < minRequestTimeout {
		cfg.Shopify.RequestTimeout = minRequestTimeout
	}
	if cfg.Shopify.RateLimitBackoff < minRateLimitBackoff {
		cfg.Shopify.RateLimitBackoff = minRateLimitBackoff
	}
	if cfg.Shopify.MaxRetries < 0 {
		cfg.Shopify.MaxRetries = 0
	}
	if cfg.Sync.Concurrency < 1 {
		cfg.Sync.Concurrency = 1
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return errors.New("MONGODB_URI and MONGODB_DATABASE are required for the mongo store")
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.Sync.Enabled && c.Sync.Interval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive")
	}
	if c.Shopify.PageLimit < 1 || c.Shopify.PageLimit > 250 {
		return fmt.Errorf("SHOPIFY_PAGE_LIMIT must be between 1 and 250, got %d", c.Shopify.PageLimit)
	}
	if c.Shopify.WebhookCallbackURL != "" && (c.Shopify.APIKey == "" || c.Shopify.APISecret == "") {
		return errors.New("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required when WEBHOOK_CALLBACK_URL is set")
	}
	return nil
}

// parser collects every malformed variable instead of stopping at the first.
type parser struct {
	errs *[]error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
