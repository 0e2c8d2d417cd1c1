package urlcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Redis is a URL cache shared between processes through Redis.
type Redis struct {
	client     redis.UniversalClient
	flight     singleflight.Group
	prefix     string
	defaultTTL time.Duration
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithPrefix namespaces keys as "{prefix}:{key}". Default: "cloudstorage:url".
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisDefaultTTL sets the TTL used when Set receives zero. Default: DefaultTTL.
func WithRedisDefaultTTL(d time.Duration) RedisOption {
	return func(r *Redis) {
		r.defaultTTL = d
	}
}

// NewRedis creates a Redis-backed URL cache.
// The client lifecycle stays with the caller (see pkg/redis).
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:     client,
		prefix:     "cloudstorage:url",
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the URL stored under key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	u, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return u, err
}

// Set stores url under key.
func (r *Redis) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.defaultTTL
	}
	// Redis treats 0 as no expiry, our negative TTL.
	return r.client.Set(ctx, r.key(key), url, max(ttl, 0)).Err()
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}

func (r *Redis) group() *singleflight.Group {
	return &r.flight
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

var _ Cache = (*Redis)(nil)
