package limits

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultUsagePrefix namespaces usage counter keys.
const DefaultUsagePrefix = "usage:"

// incrementScript adds one unless the counter already reached ARGV[1].
// A negative limit disables the check. Returns -1 when denied.
var incrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
local limit = tonumber(ARGV[1])
if limit >= 0 and current >= limit then
	return -1
end
return redis.call("INCR", KEYS[1])
`)

// decrementScript subtracts one unless the counter is already zero.
// Returns -1 on underflow.
var decrementScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current <= 0 then
	return -1
end
return redis.call("DECR", KEYS[1])
`)

// RedisUsageStore keeps counters in Redis so every replica sees the same usage.
type RedisUsageStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisUsageStore returns a UsageStore backed by Redis.
func NewRedisUsageStore(client redis.UniversalClient, prefix string) *RedisUsageStore {
	if prefix == "" {
		prefix = DefaultUsagePrefix
	}
	return &RedisUsageStore{client: client, prefix: prefix}
}

func (s *RedisUsageStore) key(tenantID int64, res Resource) string {
	return s.prefix + strconv.FormatInt(tenantID, 10) + ":" + string(res)
}

func (s *RedisUsageStore) Current(ctx context.Context, tenantID int64, res Resource) (int64, error) {
	n, err := s.client.Get(ctx, s.key(tenantID, res)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrUsageStore, err)
	}
	return n, nil
}

func (s *RedisUsageStore) Increment(ctx context.Context, tenantID int64, res Resource, limit int64) (int64, error) {
	n, err := incrementScript.Run(ctx, s.client, []string{s.key(tenantID, res)}, limit).Int64()
	if err != nil {
		return 0, errors.Join(ErrUsageStore, err)
	}
	if n < 0 {
		current, err := s.Current(ctx, tenantID, res)
		if err != nil {
			return 0, err
		}
		return current, ErrLimitExceeded
	}
	return n, nil
}

func (s *RedisUsageStore) Decrement(ctx context.Context, tenantID int64, res Resource) (int64, error) {
	n, err := decrementScript.Run(ctx, s.client, []string{s.key(tenantID, res)}).Int64()
	if err != nil {
		return 0, errors.Join(ErrUsageStore, err)
	}
	if n < 0 {
		return 0, ErrUsageUnderflow
	}
	return n, nil
}

func (s *RedisUsageStore) Set(ctx context.Context, tenantID int64, res Resource, value int64) error {
	if err := s.client.Set(ctx, s.key(tenantID, res), max(value, 0), 0).Err(); err != nil {
		return errors.Join(ErrUsageStore, fmt.Errorf("set usage %s for tenant %d: %w", res, tenantID, err))
	}
	return nil
}
