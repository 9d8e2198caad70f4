package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written by Redis stores.
const KeyPrefix = "beacon:"

// Redis stores identities in Redis. A non-zero TTL makes entries expire
// after TTL of inactivity, which is how the session scope ends.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to redisURL and returns a store for scope.
func NewRedis(ctx context.Context, redisURL string, scope Scope, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 4
	opt.MinIdleConns = 1
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewRedisFromClient(client, scope, ttl), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, scope Scope, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: KeyPrefix + string(scope) + ":",
		ttl:    ttl,
	}
}

// Get returns the value for key, sliding its expiry when a TTL is set.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		val string
		err error
	)
	if r.ttl > 0 {
		val, err = r.client.GetEx(ctx, r.prefix+key, r.ttl).Result()
	} else {
		val, err = r.client.Get(ctx, r.prefix+key).Result()
	}
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key with the store TTL.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// SetNX sets value with the store TTL unless key exists, then returns the
// stored value.
func (r *Redis) SetNX(ctx context.Context, key, value string) (string, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, value, r.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if ok {
		return value, nil
	}
	stored, found, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		// Expired between SETNX and GET; claim the slot again.
		return r.SetNX(ctx, key, value)
	}
	return stored, nil
}

// Close closes the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}
