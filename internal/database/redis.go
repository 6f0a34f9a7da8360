package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const progressKeyPrefix = "research:task:"

// RedisProgressStore mirrors task snapshots into Redis so status polls can be
// answered by any instance
type RedisProgressStore struct {
	redis  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisProgressStore connects to Redis and verifies the connection
func NewRedisProgressStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisProgressStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("connected to redis progress mirror", zap.String("addr", cfg.Addr))
	return NewRedisProgressStoreWithClient(client, logger), nil
}

// NewRedisProgressStoreWithClient wraps an existing client
func NewRedisProgressStoreWithClient(client *redis.Client, logger *zap.Logger) *RedisProgressStore {
	return &RedisProgressStore{
		redis:  client,
		logger: logger,
		ttl:    7 * 24 * time.Hour,
	}
}

// Close closes the redis client
func (s *RedisProgressStore) Close() error {
	return s.redis.Close()
}

// SaveSnapshot stores the latest snapshot of a task
func (s *RedisProgressStore) SaveSnapshot(ctx context.Context, task *models.ResearchTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, progressKeyPrefix+task.TaskID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the mirrored snapshot of a task, or nil when absent
func (s *RedisProgressStore) GetSnapshot(ctx context.Context, taskID string) (*models.ResearchTask, error) {
	data, err := s.redis.Get(ctx, progressKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load task snapshot: %w", err)
	}

	var task models.ResearchTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task snapshot: %w", err)
	}
	return &task, nil
}

// DeleteSnapshot removes the mirrored snapshot of a task
func (s *RedisProgressStore) DeleteSnapshot(ctx context.Context, taskID string) error {
	if err := s.redis.Del(ctx, progressKeyPrefix+taskID).Err(); err != nil {
		return fmt.Errorf("failed to delete task snapshot: %w", err)
	}
	return nil
}
