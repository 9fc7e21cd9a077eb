package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// NewPool builds a redigo connection pool for the given redis:// URL.
// The pool is shared between the answer cache and the blocklist lookup.
func NewPool(rawURL string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, rawURL)
		},
	}
}

// Redis is the KV implementation backed by a shared Redis.
type Redis struct {
	pool *redis.Pool
}

// NewRedis returns a Redis-backed KV on the given pool.
func NewRedis(pool *redis.Pool) *Redis {
	return &Redis{pool: pool}
}

var _ KV = (*Redis)(nil)

// Get implements the KV interface. A missing key is reported as a miss,
// not an error; expiry is enforced by Redis itself.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("redis: getting connection: %w", err)
	}
	defer c.Close()

	val, err := redis.Bytes(c.Do("GET", key))
	switch {
	case err == nil:
		return val, true, nil
	case errors.Is(err, redis.ErrNil):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("redis: get %q: %w", key, err)
	}
}

// SetEx implements the KV interface with SET PX.
func (r *Redis) SetEx(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	c, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis: getting connection: %w", err)
	}
	defer c.Close()

	if _, err := c.Do("SET", key, val, "PX", ttl.Milliseconds()); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}
