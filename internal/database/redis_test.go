package database

import (
	"context"
	"testing"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisProgressStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	store, err := NewRedisProgressStore(ctx, config.RedisConfig{Addr: mr.Addr()}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	t.Run("missing snapshot", func(t *testing.T) {
		got, err := store.GetSnapshot(ctx, "unknown")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save and load", func(t *testing.T) {
		started := time.Now().UTC().Truncate(time.Second)
		task := &models.ResearchTask{
			TaskID:       "task-1",
			Query:        "drone delivery for rural pharmacies",
			ResearchType: models.ResearchTypeComprehensive,
			Status:       models.TaskStatusRunning,
			Progress:     "Running validation, market, and financial analysis in parallel...",
			StartedAt:    &started,
		}
		require.NoError(t, store.SaveSnapshot(ctx, task))

		got, err := store.GetSnapshot(ctx, "task-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.TaskStatusRunning, got.Status)
		assert.Equal(t, task.Progress, got.Progress)
		require.NotNil(t, got.StartedAt)
		assert.True(t, started.Equal(*got.StartedAt))

		assert.True(t, mr.Exists(progressKeyPrefix+"task-1"))
		assert.Equal(t, 7*24*time.Hour, mr.TTL(progressKeyPrefix+"task-1"))
	})

	t.Run("snapshots expire", func(t *testing.T) {
		require.NoError(t, store.SaveSnapshot(ctx, &models.ResearchTask{TaskID: "task-2"}))
		mr.FastForward(8 * 24 * time.Hour)

		got, err := store.GetSnapshot(ctx, "task-2")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.SaveSnapshot(ctx, &models.ResearchTask{TaskID: "task-3"}))
		require.NoError(t, store.DeleteSnapshot(ctx, "task-3"))

		got, err := store.GetSnapshot(ctx, "task-3")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestNewRedisProgressStoreUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisProgressStore(context.Background(), config.RedisConfig{Addr: addr}, zap.NewNop())
	assert.Error(t, err)
}
