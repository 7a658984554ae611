// Package cache holds the short-lived shared state replicas coordinate on:
// sweep leases and seen webhook deliveries.
package cache

import (
	"context"
	"fmt"
	"time"

	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const deliveryKeyPrefix = "catalog-mirror:webhook:"

// releaseScript deletes the lease only while it still carries our token, so
// an expired lease re-acquired by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient connects to Redis and checks it answers
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisLocker implements Locker with SET NX leases
type RedisLocker struct {
	client redis.Cmdable
	logger zerolog.Logger
}

var _ ports.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(client redis.Cmdable, logger zerolog.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger}
}

// Acquire takes the lease for ttl. The returned release is safe to call
// after the lease expired.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release lease")
		}
	}
	return release, true, nil
}

// RedisDeliveryLog implements DeliveryLog with expiring SET NX markers
type RedisDeliveryLog struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.DeliveryLog = (*RedisDeliveryLog)(nil)

// NewRedisDeliveryLog creates a delivery log that forgets ids after ttl
func NewRedisDeliveryLog(client redis.Cmdable, ttl time.Duration) *RedisDeliveryLog {
	return &RedisDeliveryLog{client: client, ttl: ttl}
}

func (d *RedisDeliveryLog) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, deliveryKeyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return ok, nil
}
