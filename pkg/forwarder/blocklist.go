package forwarder

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomodule/redigo/redis"
)

// blocklistKey is the Redis hash the blacklist importer populates,
// mapping hostname to sinkhole IP.
const blocklistKey = "dnsdigd-blacklist"

// Blocklist answers whether a queried name is ad-blocked.
type Blocklist interface {
	Blocked(ctx context.Context, name string) (bool, error)
}

// RedisBlocklist checks names against the imported blacklist hash.
type RedisBlocklist struct {
	pool *redis.Pool
}

// NewRedisBlocklist returns a blocklist over the shared Redis pool.
func NewRedisBlocklist(pool *redis.Pool) *RedisBlocklist {
	return &RedisBlocklist{pool: pool}
}

var _ Blocklist = (*RedisBlocklist)(nil)

// Blocked implements the Blocklist interface. The importer stores names
// without the trailing dot.
func (b *RedisBlocklist) Blocked(ctx context.Context, name string) (bool, error) {
	c, err := b.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("blocklist: getting connection: %w", err)
	}
	defer c.Close()

	blocked, err := redis.Bool(c.Do("HEXISTS", blocklistKey, strings.TrimSuffix(name, ".")))
	if err != nil {
		return false, fmt.Errorf("blocklist: hexists: %w", err)
	}
	return blocked, nil
}
