// Package cache implements the TTL-bounded answer cache keyed by
// (qname, qtype), with single-flight coalescing of upstream fetches.
package cache

import (
	"context"
	"fmt"
	"time"

	"dnsdig/pkg/logging"

	"golang.org/x/sync/singleflight"
)

// keyPrefix namespaces all cache entries in the shared KV store.
const keyPrefix = "dnsdigd-cache"

// Key derives the cache key for a question. qname keeps its trailing dot
// and qtype is the numeric RR type.
func Key(qname string, qtype uint16) string {
	return fmt.Sprintf("%s#%s#%d", keyPrefix, qname, qtype)
}

// KV is the backing store contract: millisecond-latency reads, set with
// expiry. Reads of expired entries report a miss.
type KV interface {
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	SetEx(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// FetchFunc produces the value for a key on a cache miss. A zero ttl
// means the value must not be stored (e.g. a response with no answers).
type FetchFunc func(ctx context.Context) (val []byte, ttl time.Duration, err error)

// Cache couples a KV store with per-key single-flight coalescing: for any
// key, at most one fetch is in flight at a time, and concurrent callers
// share its result.
type Cache struct {
	kv     KV
	group  singleflight.Group
	maxTTL time.Duration
	logger *logging.Logger
}

// New creates a cache on top of the given KV store. maxTTL caps the
// expiry of every stored entry.
func New(kv KV, maxTTL time.Duration, logger *logging.Logger) *Cache {
	return &Cache{
		kv:     kv,
		maxTTL: maxTTL,
		logger: logger,
	}
}

// GetOrFetch returns the cached value for key, or runs fetch and stores
// its result. The returned hit flag reports whether the value came from
// the cache without invoking fetch on this call. A KV read failure
// degrades to a miss; a write failure is logged and the value is still
// returned.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) (val []byte, hit bool, err error) {
	val, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss", "key", key, "error", err)
	} else if ok {
		return val, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have completed the fetch and stored the
		// value between our read and joining the flight.
		if val, ok, err := c.kv.Get(ctx, key); err == nil && ok {
			return val, nil
		}

		val, ttl, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		if ttl > 0 {
			if ttl > c.maxTTL {
				ttl = c.maxTTL
			}
			if err := c.kv.SetEx(ctx, key, val, ttl); err != nil {
				c.logger.Warn("Cache write failed", "key", key, "error", err)
			}
		}
		return val, nil
	})
	if err != nil {
		return nil, false, err
	}

	return v.([]byte), false, nil
}
