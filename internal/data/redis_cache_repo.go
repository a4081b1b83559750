package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mediafetch/internal/core"
)

// RedisCacheRepo implements core.CacheRepository using Redis. All keys are
// stored under a namespace so several deployments can share one database.
type RedisCacheRepo struct {
	client    redis.UniversalClient
	namespace string
}

var _ core.CacheRepository = (*RedisCacheRepo)(nil)

const defaultCacheNamespace = "mediafetch"

// NewRedisCacheRepo creates a new RedisCacheRepo. An empty namespace uses "mediafetch".
func NewRedisCacheRepo(client redis.UniversalClient, namespace string) *RedisCacheRepo {
	if namespace == "" {
		namespace = defaultCacheNamespace
	}
	return &RedisCacheRepo{client: client, namespace: namespace}
}

func (r *RedisCacheRepo) key(k string) (string, error) {
	if k == "" {
		return "", errors.New("key cannot be empty")
	}
	return r.namespace + ":" + k, nil
}

// Set stores a value with the given TTL. A TTL of 0 keeps the key forever.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := r.key(key)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, k, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns the stored value, or nil when the key does not exist.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := r.key(key)
	if err != nil {
		return nil, err
	}

	result, err := r.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return result, nil
}

// Delete removes a key, reporting whether it existed.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	k, err := r.key(key)
	if err != nil {
		return false, err
	}

	n, err := r.client.Del(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// Health pings the Redis connection.
func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
