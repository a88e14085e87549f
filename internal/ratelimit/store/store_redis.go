package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"smartgate/internal/ratelimit/models"
	"smartgate/pkg/platform/sentinel"
)

const (
	keyPrefix = "login_lockout:"

	maxUpdateAttempts = 10
)

// RedisStore keeps each counter under login_lockout:<key> and lets Redis
// expire it once neither the window nor the lock applies.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a store whose keys live for ttl after the last write.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*models.Lockout, error) {
	return decode(s.client.Get(ctx, keyPrefix+key))
}

// Update applies mutate inside a WATCH/MULTI transaction and retries when a
// concurrent writer touched the key first.
func (s *RedisStore) Update(ctx context.Context, key string, mutate func(*models.Lockout) *models.Lockout) (*models.Lockout, error) {
	redisKey := keyPrefix + key
	var updated *models.Lockout
	txf := func(tx *redis.Tx) error {
		current, err := decode(tx.Get(ctx, redisKey))
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		next := mutate(current)
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal lockout: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, payload, s.ttl)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for range maxUpdateAttempts {
		err := s.client.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update lockout: %w", err)
		}
		return updated, nil
	}
	return nil, fmt.Errorf("update lockout: %w", redis.TxFailedErr)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete lockout: %w", err)
	}
	return nil
}

func decode(cmd *redis.StringCmd) (*models.Lockout, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load lockout: %w", err)
	}
	var record models.Lockout
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode lockout: %w", err)
	}
	return &record, nil
}
