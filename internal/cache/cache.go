package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrMiss is returned by backends when a key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is a key-value store with absolute TTLs. Implementations: Redis
// for deployments, an in-process map for tests and cache-less setups.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Cache is the read-through cache in front of profile reads. Backend
// unavailability never fails a request: a failed Get degrades to a miss and
// a failed Set or Invalidate is logged and ignored, so the service stays
// correct (if slower) without a cache.
//
// Writes never populate entries; they invalidate, and the next read
// repopulates from the store. A read racing an invalidate may serve a stale
// value for up to one TTL window, which is accepted.
type Cache struct {
	backend    Backend
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger
}

// New builds a Cache. ttl<=0 passed to Set falls back to defaultTTL
// (or an hour when that is unset too).
func New(backend Backend, prefix string, defaultTTL time.Duration, logger *zap.Logger) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Cache{
		backend:    backend,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Key derives the namespaced cache key for a resource identifier.
func (c *Cache) Key(resourceID string) string {
	return fmt.Sprintf("%s:%s", c.prefix, resourceID)
}

// Get returns the cached value, or ok=false on a miss or backend failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return value, true
}

// Set stores value under key for ttl; ttl<=0 uses the default.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.backend.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", key), zap.Error(err))
	}
}

// Invalidate removes key so the next read repopulates from the store.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.logger.Warn("cache invalidate failed",
			zap.String("key", key), zap.Error(err))
	}
}
