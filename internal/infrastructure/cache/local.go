package cache

import (
	"context"
	"sync"
	"time"

	"shopify-catalog-mirror/internal/ports"

	"github.com/google/uuid"
)

// LocalLocker is a single-process Locker for runs without Redis.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token   string
	expires time.Time
}

var _ ports.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]lease), now: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expires) {
		return nil, false, nil
	}

	token := uuid.NewString()
	l.leases[key] = lease{token: token, expires: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
	}
	return release, true, nil
}

// LocalDeliveryLog is a single-process DeliveryLog for runs without Redis.
type LocalDeliveryLog struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

var _ ports.DeliveryLog = (*LocalDeliveryLog)(nil)

func NewLocalDeliveryLog(ttl time.Duration) *LocalDeliveryLog {
	return &LocalDeliveryLog{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *LocalDeliveryLog) FirstDelivery(_ context.Context, deliveryID string) (bool, error) {
	if deliveryID == "" {
		return true, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, id)
		}
	}
	if _, ok := d.seen[deliveryID]; ok {
		return false, nil
	}
	d.seen[deliveryID] = now.Add(d.ttl)
	return true, nil
}
