package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Cache backed by a single go-redis client, used when the engine
// is configured with a Redis address. Misses (including redis.Nil) are
// reported as an ordinary cache miss, never an error.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
}

// NewRedis dials addr (no round-trip performed here; the first Get/Set call
// surfaces connection failures) and returns a Redis cache.
func NewRedis(addr string, defaultTTL time.Duration) *Redis {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Second
	}
	return &Redis{
		client:     redis.NewClient(&redis.Options{Addr: addr}),
		defaultTTL: defaultTTL,
	}
}

// Ping verifies connectivity; callers use this at startup to decide whether
// to fall back to a Memory cache instead.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
