package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RESEARCH_DEFAULT_CITATIONS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 20, cfg.Research.DefaultCitations)
	assert.Equal(t, 1800*time.Second, cfg.Research.FastModelTimeout)
	assert.Equal(t, 3600*time.Second, cfg.Research.SlowModelTimeout)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.PollInterval)

	timeouts := cfg.Research.ModelTimeouts()
	assert.Equal(t, 1800*time.Second, timeouts["o4-mini-deep-research"])
	assert.Equal(t, 3600*time.Second, timeouts["o3-deep-research"])
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/research?sslmode=disable")
	t.Setenv("RESEARCH_FAST_MODEL_TIMEOUT", "90")
	t.Setenv("RESEARCH_SLOW_MODEL_TIMEOUT", "2h")
	t.Setenv("RESEARCH_EVICT_AFTER_PERSIST", "true")
	t.Setenv("OPENAI_POLL_INTERVAL", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 90*time.Second, cfg.Research.FastModelTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Research.SlowModelTimeout)
	assert.True(t, cfg.Research.EvictAfterPersist)
	assert.Equal(t, 250*time.Millisecond, cfg.OpenAI.PollInterval)
}

func TestValidateConfig(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("RESEARCH_DEFAULT_CITATIONS", "200")
	_, err = LoadConfig()
	assert.Error(t, err)
}
