package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-research-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validConfig() PhaseConfig {
	return PhaseConfig{Model: "o4-mini-deep-research", MaxCitations: 20, EnrichPrompt: true}
}

func TestPhaseRunnerRejectsBeforeBackend(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
		field string
	}{
		{"below minimum", "valid query", 4, "max_citations"},
		{"above maximum", "valid query", 101, "max_citations"},
		{"zero", "valid query", 0, "max_citations"},
		{"empty query", "", 20, "query"},
		{"blank query", "   \t", 20, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(respond(nil, nil))
			runner := NewPhaseRunner(backend, nil, zap.NewNop())

			cfg := validConfig()
			cfg.MaxCitations = tt.limit
			_, err := runner.Run(context.Background(), models.ResearchTypeMarket, tt.query, cfg)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.Zero(t, backend.callCount())
		})
	}
}

func TestPhaseRunnerAcceptsBoundaryLimits(t *testing.T) {
	for _, limit := range []int{MinCitations, MaxCitations} {
		backend := newFakeBackend(respond(nil, nil))
		runner := NewPhaseRunner(backend, nil, zap.NewNop())

		cfg := validConfig()
		cfg.MaxCitations = limit
		result, err := runner.Run(context.Background(), models.ResearchTypeMarket, "q", cfg)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, limit, backend.requests()[0].MaxCitations)
	}
}

func TestPhaseRunnerRejectsComprehensiveType(t *testing.T) {
	backend := newFakeBackend(respond(nil, nil))
	runner := NewPhaseRunner(backend, nil, zap.NewNop())

	_, err := runner.Run(context.Background(), models.ResearchTypeComprehensive, "q", validConfig())
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "research_type", vErr.Field)
	assert.Zero(t, backend.callCount())
}

func TestPhaseRunnerSuccess(t *testing.T) {
	backend := newFakeBackend(func(_ context.Context, req BackendRequest) (*BackendResponse, error) {
		return &BackendResponse{Text: "one two three four", Citations: 9}, nil
	})
	runner := NewPhaseRunner(backend, nil, zap.NewNop())

	result, err := runner.Run(context.Background(), models.ResearchTypeFinancial, "q", validConfig())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.ResearchTypeFinancial, result.ResearchType)
	assert.Equal(t, 9, result.Citations)
	assert.Equal(t, 4, result.WordCount)
	assert.Empty(t, result.Error)

	req := backend.requests()[0]
	assert.Equal(t, "o4-mini-deep-research", req.Model)
	assert.True(t, req.EnrichPrompt)
}

func TestPhaseRunnerConvertsFaults(t *testing.T) {
	tests := []struct {
		name    string
		backend backendFunc
		want    string
	}{
		{
			name: "error",
			backend: func(context.Context, BackendRequest) (*BackendResponse, error) {
				return nil, errors.New("upstream returned 502")
			},
			want: "upstream returned 502",
		},
		{
			name: "panic",
			backend: func(context.Context, BackendRequest) (*BackendResponse, error) {
				panic("nil map write")
			},
			want: "research backend panicked: nil map write",
		},
		{
			name: "nil response",
			backend: func(context.Context, BackendRequest) (*BackendResponse, error) {
				return nil, nil
			},
			want: "research backend returned an empty response",
		},
		{
			name: "blank text",
			backend: func(context.Context, BackendRequest) (*BackendResponse, error) {
				return &BackendResponse{Text: "  \n"}, nil
			},
			want: "research backend returned an empty response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewPhaseRunner(newFakeBackend(tt.backend), nil, zap.NewNop())

			result, err := runner.Run(context.Background(), models.ResearchTypeValidation, "q", validConfig())
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Error)
			assert.Zero(t, result.Citations)
		})
	}
}

func TestPhaseRunnerTimeout(t *testing.T) {
	backend := newFakeBackend(func(ctx context.Context, _ BackendRequest) (*BackendResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	runner := NewPhaseRunner(backend, map[string]time.Duration{"fast": 20 * time.Millisecond}, zap.NewNop())

	cfg := validConfig()
	cfg.Model = "fast"
	result, err := runner.Run(context.Background(), models.ResearchTypeMarket, "q", cfg)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out after 20ms")
}

func TestPhaseRunnerModelTimeouts(t *testing.T) {
	runner := NewPhaseRunner(nil, map[string]time.Duration{
		"o4-mini-deep-research": 1800 * time.Second,
		"o3-deep-research":      3600 * time.Second,
		"broken":                0,
	}, zap.NewNop())

	assert.Equal(t, 1800*time.Second, runner.Timeout("o4-mini-deep-research"))
	assert.Equal(t, 3600*time.Second, runner.Timeout("o3-deep-research"))
	assert.Equal(t, defaultPhaseTimeout, runner.Timeout("broken"))
	assert.Equal(t, defaultPhaseTimeout, runner.Timeout("unknown"))
}
