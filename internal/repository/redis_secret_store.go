package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FilipeAphrody/cartify/internal/domain"
)

// RedisSecretStore implements domain.SecretStore on Redis. Expiry is
// entirely Redis's responsibility: a key past its TTL is simply absent.
type RedisSecretStore struct {
	client *redis.Client
}

// NewRedisSecretStore creates a new store instance.
func NewRedisSecretStore(client *redis.Client) *RedisSecretStore {
	return &RedisSecretStore{client: client}
}

// Set writes value under key with the given TTL, replacing any prior value.
func (s *RedisSecretStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrDependency, err)
	}
	return nil
}

// Get returns the value under key. A missing key is reported through ok,
// never as an error: expired and never-existed are indistinguishable here.
func (s *RedisSecretStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: redis get: %v", domain.ErrDependency, err)
	}
	return value, true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisSecretStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", domain.ErrDependency, err)
	}
	return nil
}

// Increment atomically increments the counter at key, creating it at 1.
// Atomicity matters: the rate limiter's correctness depends on concurrent
// failures from the same identity never under-counting.
func (s *RedisSecretStore) Increment(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: redis incr: %v", domain.ErrDependency, err)
	}
	return count, nil
}

// Expire sets the TTL on an existing key.
func (s *RedisSecretStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis expire: %v", domain.ErrDependency, err)
	}
	return nil
}
