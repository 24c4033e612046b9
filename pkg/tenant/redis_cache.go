package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces tenant cache keys.
const DefaultRedisPrefix = "tenant:"

// redisCache shares resolved tenants between API replicas.
type redisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache returns a Cache backed by Redis.
func NewRedisCache(client redis.UniversalClient, prefix string) Cache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisCache{client: client, prefix: prefix}
}

// Get treats any Redis failure as a cache miss.
func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (c *redisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) error {
	if tenant == nil {
		return nil
	}

	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("marshal tenant %d: %w", tenant.ID, err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache tenant %d: %w", tenant.ID, err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.prefix + k
	}

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("evict tenant keys: %w", err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (c *redisCache) Close() error {
	return nil
}
