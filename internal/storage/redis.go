package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/dicee-room-backend/internal/engine"
)

const roomKeyPrefix = "room:"

// Config holds configuration for the redis snapshot store.
type Config struct {
	RedisClient *redis.Client
}

type redisSnapshotStore struct {
	client *redis.Client
}

// NewRedisSnapshotStore builds a snapshot store over an existing redis
// client, verifying connectivity once.
func NewRedisSnapshotStore(cfg *Config) (SnapshotStore, error) {
	if cfg == nil || cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &redisSnapshotStore{client: cfg.RedisClient}, nil
}

func (r *redisSnapshotStore) Save(ctx context.Context, code string, state engine.State) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal room state: %w", err)
	}
	if err := r.client.Set(ctx, roomKeyPrefix+code, blob, 0).Err(); err != nil {
		return fmt.Errorf("failed to save room snapshot: %w", err)
	}
	return nil
}

func (r *redisSnapshotStore) Load(ctx context.Context, code string) (engine.State, error) {
	blob, err := r.client.Get(ctx, roomKeyPrefix+code).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return engine.State{}, ErrNotFound
		}
		return engine.State{}, fmt.Errorf("failed to load room snapshot: %w", err)
	}

	var state engine.State
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return engine.State{}, fmt.Errorf("failed to unmarshal room state: %w", err)
	}
	return state, nil
}

func (r *redisSnapshotStore) Delete(ctx context.Context, code string) error {
	if err := r.client.Del(ctx, roomKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to delete room snapshot: %w", err)
	}
	return nil
}
