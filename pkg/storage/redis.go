package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKeyPrefix namespaces breeze keys in a shared Redis database.
const DefaultRedisKeyPrefix = "breeze:"

// RedisSlot stores each key as a Redis string under prefix+key.
type RedisSlot struct {
	client *redis.Client
	prefix string
}

// NewRedisSlot wraps an existing client. The slot owns the client and closes
// it on Close.
func NewRedisSlot(client *redis.Client, prefix string) *RedisSlot {
	return &RedisSlot{client: client, prefix: prefix}
}

// Client returns the underlying client so that event publishing can share
// the connection.
func (s *RedisSlot) Client() *redis.Client {
	return s.client
}

func (s *RedisSlot) redisKey(key string) string {
	return s.prefix + key
}

func (s *RedisSlot) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s: %w", s.redisKey(key), err)
	}
	return v, true, nil
}

func (s *RedisSlot) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", s.redisKey(key), err)
	}
	return nil
}

func (s *RedisSlot) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSlot) Close() error {
	return s.client.Close()
}

func (s *RedisSlot) Name() string { return BackendRedis }
