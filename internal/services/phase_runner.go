package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-research-platform/internal/metrics"
	"ai-research-platform/internal/models"
	"ai-research-platform/internal/utils"

	"go.uber.org/zap"
)

const (
	MinCitations = 5
	MaxCitations = 100

	defaultPhaseTimeout = 3600 * time.Second
)

// PhaseConfig is the run configuration shared by every phase of a task
type PhaseConfig struct {
	Model        string
	MaxCitations int
	EnrichPrompt bool
}

// PhaseRunner wraps one backend invocation for a single research type
type PhaseRunner struct {
	backend  ResearchBackend
	timeouts map[string]time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewPhaseRunner creates a phase runner; timeouts maps model ids to per-call limits
func NewPhaseRunner(backend ResearchBackend, timeouts map[string]time.Duration, logger *zap.Logger) *PhaseRunner {
	return &PhaseRunner{
		backend:  backend,
		timeouts: timeouts,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidatePhase checks a query and run configuration before any backend call
func ValidatePhase(query string, cfg PhaseConfig) error {
	if strings.TrimSpace(query) == "" {
		return &ValidationError{Field: "query", Message: "must not be empty"}
	}
	if cfg.MaxCitations < MinCitations || cfg.MaxCitations > MaxCitations {
		return &ValidationError{
			Field:   "max_citations",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinCitations, MaxCitations, cfg.MaxCitations),
		}
	}
	return nil
}

// Timeout returns the backend timeout for a model
func (r *PhaseRunner) Timeout(model string) time.Duration {
	if d, ok := r.timeouts[model]; ok && d > 0 {
		return d
	}
	return defaultPhaseTimeout
}

// Run invokes the backend once for researchType. Backend faults never escape:
// they come back as a failed PhaseResult. The error return is only a *ValidationError.
func (r *PhaseRunner) Run(ctx context.Context, researchType models.ResearchType, query string, cfg PhaseConfig) (models.PhaseResult, error) {
	if !researchType.Valid() || researchType == models.ResearchTypeComprehensive {
		return models.PhaseResult{}, &ValidationError{Field: "research_type", Message: fmt.Sprintf("%q is not a single research phase", researchType)}
	}
	if err := ValidatePhase(query, cfg); err != nil {
		return models.PhaseResult{}, err
	}

	start := r.now()
	resp, err := r.invoke(ctx, researchType, query, cfg)
	elapsed := r.now().Sub(start)

	result := models.PhaseResult{
		ResearchType: researchType,
		Elapsed:      elapsed,
	}

	if err != nil {
		result.Error = err.Error()
		metrics.PhaseDuration.WithLabelValues(string(researchType), cfg.Model, metrics.OutcomeFailure).Observe(elapsed.Seconds())
		r.logger.Warn("research phase failed",
			zap.String("phase", string(researchType)),
			zap.String("model", cfg.Model),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return result, nil
	}

	result.Success = true
	result.Text = resp.Text
	result.Citations = resp.Citations
	result.WordCount = utils.CountWords(resp.Text)

	metrics.PhaseDuration.WithLabelValues(string(researchType), cfg.Model, metrics.OutcomeSuccess).Observe(elapsed.Seconds())
	metrics.PhaseCitations.WithLabelValues(string(researchType)).Observe(float64(result.Citations))
	r.logger.Info("research phase completed",
		zap.String("phase", string(researchType)),
		zap.String("model", cfg.Model),
		zap.Duration("elapsed", elapsed),
		zap.Int("citations", result.Citations),
		zap.Int("words", result.WordCount),
	)
	return result, nil
}

// invoke calls the backend under the model timeout, converting panics and
// empty responses to errors
func (r *PhaseRunner) invoke(ctx context.Context, researchType models.ResearchType, query string, cfg PhaseConfig) (resp *BackendResponse, err error) {
	timeout := r.Timeout(cfg.Model)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			resp = nil
			err = fmt.Errorf("research backend panicked: %v", p)
		}
	}()

	resp, err = r.backend.Research(callCtx, BackendRequest{
		ResearchType: researchType,
		Query:        query,
		Model:        cfg.Model,
		MaxCitations: cfg.MaxCitations,
		EnrichPrompt: cfg.EnrichPrompt,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", timeout, err)
		}
		return nil, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("research backend returned an empty response")
	}
	return resp, nil
}
