package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultUpdateRetries = 5

type RedisStorage struct {
	Redis      *redis.Client
	maxRetries int
}

func NewRedisStorage(redisClient *redis.Client) *RedisStorage {
	return &RedisStorage{
		Redis:      redisClient,
		maxRetries: defaultUpdateRetries,
	}
}

func (s *RedisStorage) Read(ctx context.Context, key string) (string, bool, error) {
	value, err := s.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStorage) Write(ctx context.Context, key, value string) error {
	return s.Redis.Set(ctx, key, value, 0).Err()
}

// Update runs fn inside a WATCH/MULTI transaction and retries when another
// writer touched the key in between.
func (s *RedisStorage) Update(ctx context.Context, key string, fn UpdateFunc) (string, error) {
	var stored string

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		found := true
		if err == redis.Nil {
			current, found = "", false
		} else if err != nil {
			return err
		}

		next, err := fn(current, found)
		if errors.Is(err, ErrUnchanged) {
			stored = current
			return nil
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}

		stored = next
		return nil
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.Redis.Watch(ctx, txf, key)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return "", err
	}

	return "", fmt.Errorf("update of %s kept conflicting after %d attempts: %w", key, s.maxRetries, redis.TxFailedErr)
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.Redis.Ping(ctx).Err()
}
