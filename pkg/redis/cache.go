package redis

import (
	"context"
	"encoding/json"
	"time"
)

// QueryCache stores JSON-encoded query results under a fixed key prefix.
// A nil client turns every call into a miss so callers can run without Redis.
type QueryCache struct {
	prefix string
	ttl    time.Duration
}

var (
	getCacheValue = Get
	setCacheValue = Set
	delCacheValue = Del
)

// NewQueryCache creates a cache whose entries expire after ttl.
func NewQueryCache(prefix string, ttl time.Duration) *QueryCache {
	return &QueryCache{prefix: prefix, ttl: ttl}
}

func (c *QueryCache) key(queryKey string) string {
	return c.prefix + ":" + queryKey
}

// Load decodes the cached value for queryKey into dst. It returns false on a
// miss, a decode failure, or when Redis is unreachable.
func (c *QueryCache) Load(ctx context.Context, queryKey string, dst interface{}) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := getCacheValue(ctx, c.key(queryKey))
	if err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

// Store encodes value and writes it with the cache TTL.
func (c *QueryCache) Store(ctx context.Context, queryKey string, value interface{}) error {
	if client == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return setCacheValue(ctx, c.key(queryKey), payload, c.ttl)
}

// Invalidate drops the cached entry so the next Load misses.
func (c *QueryCache) Invalidate(ctx context.Context, queryKey string) error {
	if client == nil {
		return nil
	}
	return delCacheValue(ctx, c.key(queryKey))
}
