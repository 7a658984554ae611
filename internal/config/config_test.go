package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, "2024-01", cfg.Shopify.APIVersion)
	assert.Equal(t, 10*time.Second, cfg.Shopify.RequestTimeout)
	assert.Equal(t, 3, cfg.Shopify.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Shopify.RateLimitBackoff)
	assert.Equal(t, 250, cfg.Shopify.PageLimit)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
	assert.True(t, cfg.FixturesEnabled)
	assert.False(t, cfg.SeedFixtures)
	assert.Equal(t, zerolog.InfoLevel, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/mirror")
	t.Setenv("SHOPIFY_MAX_RETRIES", "5")
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("SYNC_CONCURRENCY", "4")
	t.Setenv("FIXTURES_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.Shopify.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.False(t, cfg.FixturesEnabled)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_Floors(t *testing.T) {
	t.Setenv("SHOPIFY_REQUEST_TIMEOUT_MS", "10")
	t.Setenv("SHOPIFY_RATE_LIMIT_BACKOFF_SECONDS", "0")
	t.Setenv("SHOPIFY_MAX_RETRIES", "-2")
	t.Setenv("SYNC_CONCURRENCY", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Shopify.RequestTimeout)
	assert.Equal(t, time.Second, cfg.Shopify.RateLimitBackoff)
	assert.Equal(t, 0, cfg.Shopify.MaxRetries)
	assert.Equal(t, 1, cfg.Sync.Concurrency)
}

func TestFromEnv_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("SHOPIFY_MAX_RETRIES", "three")
	t.Setenv("SYNC_INTERVAL", "often")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPIFY_MAX_RETRIES")
	assert.Contains(t, err.Error(), "SYNC_INTERVAL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: "unknown STORE_DRIVER"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreDriver = DriverPostgres }, wantErr: "POSTGRES_DSN"},
		{name: "page limit too large", mutate: func(c *Config) { c.Shopify.PageLimit = 500 }, wantErr: "SHOPIFY_PAGE_LIMIT"},
		{name: "callback without app credentials", mutate: func(c *Config) { c.Shopify.WebhookCallbackURL = "https://x/webhooks" }, wantErr: "SHOPIFY_API_KEY"},
		{name: "memory driver", mutate: func(c *Config) { c.StoreDriver = DriverMemory }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromEnv()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
