package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore caches mail access tokens by subscription id.
type RedisTokenStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTokenStore(rdb *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, prefix: "mail:token:"}
}

// Get returns ErrNotFound when no token is cached for key or it expired.
func (s *RedisTokenStore) Get(ctx context.Context, key string) (string, error) {
	token, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("token for %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get token for %s: %w", key, err)
	}
	return token, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.prefix+key, token, ttl).Err(); err != nil {
		return fmt.Errorf("set token for %s: %w", key, err)
	}
	return nil
}
