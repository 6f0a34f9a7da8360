package services

import (
	"context"
	"fmt"

	"ai-research-platform/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	progressParallelStart   = "Starting parallel comprehensive research (3 phases simultaneously)..."
	progressParallelRunning = "Running validation, market, and financial analysis in parallel..."
)

// ComprehensiveOutcome is the merged result of a comprehensive run
type ComprehensiveOutcome struct {
	Document string
	Metrics  models.MergeMetrics
	Phases   []models.PhaseResult
	// Err is a *TaskFailure when every phase failed; partial success leaves it nil
	Err error
}

// Orchestrator fans a comprehensive request out to three phase runners
type Orchestrator struct {
	runner   *PhaseRunner
	progress ProgressReporter
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over runner, reporting to progress
func NewOrchestrator(runner *PhaseRunner, progress ProgressReporter, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		runner:   runner,
		progress: progress,
		logger:   logger,
	}
}

// RunComprehensive runs validation, market and financial research concurrently
// and merges them in that order. Phases never cancel each other; only a
// *ValidationError is returned as an error.
func (o *Orchestrator) RunComprehensive(ctx context.Context, taskID, query string, cfg PhaseConfig) (*ComprehensiveOutcome, error) {
	if err := ValidatePhase(query, cfg); err != nil {
		return nil, err
	}

	o.report(taskID, progressParallelStart)

	phases := models.ComprehensivePhases
	results := make([]models.PhaseResult, len(phases))

	// No derived context: a failing phase must not cancel its siblings
	var g errgroup.Group
	g.SetLimit(len(phases))
	for i, researchType := range phases {
		g.Go(func() error {
			result, err := o.runner.Run(ctx, researchType, query, cfg)
			if err != nil {
				// Already validated above; keep the slot populated regardless
				result = models.PhaseResult{ResearchType: researchType, Error: err.Error()}
			}
			results[i] = result
			o.record(taskID, result)
			return nil
		})
	}

	o.report(taskID, progressParallelRunning)
	_ = g.Wait()

	document, m := MergeDocuments(query, results)
	o.report(taskID, fmt.Sprintf("Parallel execution completed! %d/%d phases successful. Generating unified document...",
		m.SuccessfulPhases, m.TotalPhases))

	outcome := &ComprehensiveOutcome{
		Document: document,
		Metrics:  m,
		Phases:   results,
	}

	if m.SuccessfulPhases == 0 {
		failure := &TaskFailure{}
		for _, r := range results {
			failure.Causes = append(failure.Causes, PhaseError{ResearchType: r.ResearchType, Message: r.Error})
		}
		outcome.Err = failure
	}

	o.logger.Info("comprehensive research finished",
		zap.String("task_id", taskID),
		zap.Int("successful_phases", m.SuccessfulPhases),
		zap.Int("total_citations", m.TotalCitations),
		zap.Int("total_words", m.TotalWords),
	)
	return outcome, nil
}

func (o *Orchestrator) report(taskID, message string) {
	if o.progress == nil {
		return
	}
	if err := o.progress.SetProgress(taskID, message); err != nil {
		o.logger.Debug("progress update skipped", zap.String("task_id", taskID), zap.Error(err))
	}
}

// record publishes a resolved phase when the progress sink keeps partial results
func (o *Orchestrator) record(taskID string, result models.PhaseResult) {
	recorder, ok := o.progress.(PhaseRecorder)
	if !ok {
		return
	}
	if err := recorder.RecordPhase(taskID, result); err != nil {
		o.logger.Debug("phase result not recorded", zap.String("task_id", taskID), zap.Error(err))
	}
}
