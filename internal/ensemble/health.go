package ensemble

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultHealthTTL    = 5 * time.Minute
	DefaultCheckTimeout = 2 * time.Second
)

type healthEntry struct {
	healthy   bool
	checkedAt time.Time
}

// HealthCache remembers source health results for a TTL. Concurrent checks
// for the same source share one check. Checks run detached from the caller's
// context so a cancelled request never records a source as unhealthy.
type HealthCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]healthEntry
	group   singleflight.Group
}

func NewHealthCache(ttl time.Duration, now func() time.Time) *HealthCache {
	if ttl <= 0 {
		ttl = DefaultHealthTTL
	}
	if now == nil {
		now = time.Now
	}
	return &HealthCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]healthEntry),
	}
}

func (h *HealthCache) Healthy(ctx context.Context, src Source) bool {
	name := src.Name()

	h.mu.RLock()
	entry, ok := h.entries[name]
	h.mu.RUnlock()
	if ok && h.now().Sub(entry.checkedAt) < h.ttl {
		return entry.healthy
	}

	checkCtx := context.WithoutCancel(ctx)
	ch := h.group.DoChan(name, func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(checkCtx, DefaultCheckTimeout)
		defer cancel()
		healthy := src.HealthCheck(pctx)
		h.mu.Lock()
		h.entries[name] = healthEntry{healthy: healthy, checkedAt: h.now()}
		h.mu.Unlock()
		return healthy, nil
	})
	select {
	case r := <-ch:
		return r.Val.(bool)
	case <-ctx.Done():
		return false
	}
}

// Forget drops the cached result so the next call checks again.
func (h *HealthCache) Forget(name string) {
	h.mu.Lock()
	delete(h.entries, name)
	h.mu.Unlock()
}
