// Package urlcache caches resolved object URLs in memory or in Redis.
//
// Only stable URLs belong here: public/CDN URLs and provider-reported object
// URLs. Signed URLs carry their own expiry and are never cached.
//
//	c := urlcache.NewMemory(urlcache.WithCleanupInterval(time.Minute))
//	defer c.Close()
//
//	u, err := urlcache.GetOrSet(ctx, c, key, func(ctx context.Context) (string, time.Duration, error) {
//		return resolve(ctx)
//	})
package urlcache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("urlcache: entry not found")

	// ErrClosed is returned by writes on a closed cache.
	ErrClosed = errors.New("urlcache: closed")
)

// Cache stores URLs by key.
//
// TTL semantics for Set: positive expires after the duration, zero uses the
// cache default, negative never expires.
type Cache interface {
	// Get returns the URL stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores url under key.
	Set(ctx context.Context, key, url string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases background resources.
	Close() error
}

// DefaultTTL applies when Set is called with a zero TTL.
const DefaultTTL = 5 * time.Minute

// fallbackGroup serves Cache implementations from outside this package.
var fallbackGroup singleflight.Group

// grouped is implemented by caches that deduplicate misses per instance.
type grouped interface {
	group() *singleflight.Group
}

func groupFor(c Cache) *singleflight.Group {
	if g, ok := c.(grouped); ok {
		return g.group()
	}
	return &fallbackGroup
}

// GetOrSet returns the cached URL for key or computes it with fn on a miss.
// Concurrent misses for the same key on the same cache share one fn call.
// Errors from fn are returned as-is and nothing is cached; a failed Set is
// ignored.
func GetOrSet(ctx context.Context, c Cache, key string, fn func(ctx context.Context) (string, time.Duration, error)) (string, error) {
	if u, err := c.Get(ctx, key); err == nil {
		return u, nil
	}

	type result struct {
		url string
		ttl time.Duration
	}

	v, err, _ := groupFor(c).Do(key, func() (any, error) {
		u, ttl, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return result{url: u, ttl: ttl}, nil
	})
	if err != nil {
		return "", err
	}

	r := v.(result)
	_ = c.Set(ctx, key, r.url, r.ttl)
	return r.url, nil
}
