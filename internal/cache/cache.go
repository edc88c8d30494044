package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "venue-signals/internal/common/errors"
	"venue-signals/internal/common/logger"
	"venue-signals/internal/common/metrics"
	"venue-signals/internal/models"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL       = 30 * time.Minute
	DefaultKeyPrefix = "reco"
)

type Config struct {
	TTL       time.Duration
	KeyPrefix string
}

type Option func(*RecommendationCache)

// WithClock fixes the clock entry ages are measured against.
func WithClock(now func() time.Time) Option {
	return func(c *RecommendationCache) { c.now = now }
}

// RecommendationCache stores scorer output per user and context fingerprint.
// An entry older than its TTL is never served; it is deleted on read.
type RecommendationCache struct {
	store  Store
	ttl    time.Duration
	prefix string
	now    func() time.Time
	logger logger.Logger

	// mu serialises the get-check-delete-set sequence of this instance.
	mu sync.Mutex
	// generations counts invalidations per user; guarded by mu.
	generations map[string]uint64
	group       singleflight.Group
}

func New(store Store, cfg Config, log logger.Logger, opts ...Option) *RecommendationCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	c := &RecommendationCache{
		store:  store,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
		now:    time.Now,
		logger: logger.ForComponent(log, "recommendation-cache"),

		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RecommendationCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached candidates for the user and context, if fresh.
func (c *RecommendationCache) Get(ctx context.Context, userID string, rc models.RequestContext) ([]models.RecommendationCandidate, bool, error) {
	if userID == "" {
		return nil, false, apperrors.NewValidationError("userId", "is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok, err := c.load(ctx, Key(c.prefix, userID, rc))
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Candidates, true, nil
}

func (c *RecommendationCache) load(ctx context.Context, key string) (*models.CacheEntry, bool, error) {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, apperrors.NewCacheUnavailableError("get", err)
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping unreadable cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		c.purge(ctx, key)
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}

	ttl := time.Duration(entry.TTLMinutes) * time.Minute
	if age := c.now().Sub(entry.GeneratedAt); age > ttl {
		c.logger.Debug("cache entry expired", map[string]interface{}{
			"key":        key,
			"ageSeconds": int64(age.Seconds()),
		})
		c.purge(ctx, key)
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false, nil
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &entry, true, nil
}

func (c *RecommendationCache) purge(ctx context.Context, key string) {
	if _, err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("failed to delete cache entry", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Set replaces the entry for the user and context.
func (c *RecommendationCache) Set(ctx context.Context, userID string, rc models.RequestContext, candidates []models.RecommendationCandidate) error {
	if userID == "" {
		return apperrors.NewValidationError("userId", "is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, userID, rc, candidates)
}

func (c *RecommendationCache) write(ctx context.Context, userID string, rc models.RequestContext, candidates []models.RecommendationCandidate) error {
	if candidates == nil {
		candidates = []models.RecommendationCandidate{}
	}
	entry := models.CacheEntry{
		UserID:             userID,
		Candidates:         candidates,
		GeneratedAt:        c.now().UTC(),
		ContextFingerprint: Fingerprint(rc),
		TTLMinutes:         int(c.ttl / time.Minute),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewCacheUnavailableError("encode", err)
	}
	if err := c.store.Set(ctx, Key(c.prefix, userID, rc), data, c.ttl); err != nil {
		return apperrors.NewCacheUnavailableError("set", err)
	}
	return nil
}

// ComputeFunc produces fresh candidates on a cache miss.
type ComputeFunc func(ctx context.Context) ([]models.RecommendationCandidate, error)

// GetOrCompute serves a fresh entry or computes, stores and returns a new
// one. Concurrent misses on the same key share one computation. A broken
// store degrades to computing without caching. A result whose user was
// invalidated while it was computed is returned but not stored.
func (c *RecommendationCache) GetOrCompute(ctx context.Context, userID string, rc models.RequestContext, compute ComputeFunc) ([]models.RecommendationCandidate, bool, error) {
	cands, hit, err := c.Get(ctx, userID, rc)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeValidation) {
			return nil, false, err
		}
		c.logger.Warn("cache read failed, computing", map[string]interface{}{"userId": userID, "error": err.Error()})
	}
	if hit {
		return cands, true, nil
	}

	c.mu.Lock()
	gen := c.generations[userID]
	c.mu.Unlock()

	key := fmt.Sprintf("%s#%d", Key(c.prefix, userID, rc), gen)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		fresh, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.storeIfCurrent(ctx, userID, rc, gen, fresh); err != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{"userId": userID, "error": err.Error()})
		}
		return fresh, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]models.RecommendationCandidate), false, nil
}

func (c *RecommendationCache) storeIfCurrent(ctx context.Context, userID string, rc models.RequestContext, gen uint64, candidates []models.RecommendationCandidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != gen {
		c.logger.Debug("discarding result computed before invalidation", map[string]interface{}{"userId": userID})
		return nil
	}
	return c.write(ctx, userID, rc, candidates)
}

// InvalidateUser deletes every entry of the user and returns how many went.
func (c *RecommendationCache) InvalidateUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apperrors.NewValidationError("userId", "is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[userID]++

	keys, err := c.store.Keys(ctx, userPrefix(c.prefix, userID))
	if err != nil {
		return 0, apperrors.NewCacheUnavailableError("keys", err)
	}

	owned := keys[:0]
	for _, k := range keys {
		if ownsKey(c.prefix, userID, k) {
			owned = append(owned, k)
		}
	}

	n, err := c.store.Delete(ctx, owned...)
	if err != nil {
		return 0, apperrors.NewCacheUnavailableError("delete", err)
	}

	c.logger.Info("user cache invalidated", map[string]interface{}{"userId": userID, "entries": n})
	return n, nil
}
