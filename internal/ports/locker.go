package ports

import (
	"context"
	"time"
)

// Locker hands out short-lived exclusive leases shared across replicas.
// ok is false when another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// DeliveryLog remembers webhook delivery ids so redeliveries can be skipped.
type DeliveryLog interface {
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)
}
