// Package cache memoizes recommendation results per user and request context.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Store is the key-value backend under the recommendation cache.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) (int, error)
	// Keys lists keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
