// Package redis connects to Redis with go-redis. The client backs the shared
// tenant cache and the usage counters of the limits gate.
//
//	client, err := redis.Connect(ctx, cfg)
//
// Connect returns ErrEmptyConnectionURL when REDIS_URL is unset so callers can
// fall back to in-process implementations.
package redis
