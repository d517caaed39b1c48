package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisSlot：以 Redis 字符串键承载槽位，不设置过期
type RedisSlot struct {
	rc *redis.Client
}

func NewRedisSlot(rc *redis.Client) *RedisSlot { return &RedisSlot{rc: rc} }

func (s *RedisSlot) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSlotEmpty
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisSlot) Put(ctx context.Context, key, value string) error {
	return s.rc.Set(ctx, key, value, 0).Err()
}
