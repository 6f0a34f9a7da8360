package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/database"
	"ai-research-platform/internal/metrics"
	"ai-research-platform/internal/models"
	"ai-research-platform/internal/utils"

	"go.uber.org/zap"
)

const (
	progressCreated      = "Task created, waiting to start..."
	progressInitializing = "Initializing AI research..."
)

// previousResultsLimit is the length of the completed task history
const previousResultsLimit = 10

var singlePhaseProgress = map[models.ResearchType]string{
	models.ResearchTypeValidation: "Conducting idea validation analysis...",
	models.ResearchTypeMarket:     "Performing market research analysis...",
	models.ResearchTypeFinancial:  "Executing financial analysis...",
	models.ResearchTypeCustom:     "Processing custom research query...",
}

// TaskStore is the relational persistence used by the research service
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.ResearchTask) (string, error)
	UpdateTask(ctx context.Context, taskID string, update models.TaskUpdate) error
	CreateResult(ctx context.Context, result *models.ResearchResult) error
	GetTask(ctx context.Context, taskID string) (*models.ResearchTask, error)
	GetResult(ctx context.Context, taskID string) (*models.ResearchResult, error)
	ListResults(ctx context.Context, limit int) ([]models.ResearchResult, error)
	ListCompletedTasks(ctx context.Context, limit int) ([]models.ResearchTask, error)
	DeleteTask(ctx context.Context, taskID string) error
	Overview(ctx context.Context) (*models.DashboardOverview, error)
	ListIdeas(ctx context.Context, limit int) ([]models.IdeaSummary, error)
	Ping(ctx context.Context) error
}

// DocumentArchive stores rendered research documents.
// GetDocument returns nil, nil when no document exists.
type DocumentArchive interface {
	SaveDocument(ctx context.Context, doc *models.ResearchDocument) error
	GetDocument(ctx context.Context, taskID string) (*models.ResearchDocument, error)
	ListDocuments(ctx context.Context, researchType models.ResearchType) ([]models.ResearchDocument, error)
	DeleteDocument(ctx context.Context, taskID string) error
}

// ResearchService accepts research requests and runs them in the background
type ResearchService struct {
	registry     *TaskRegistry
	runner       *PhaseRunner
	orchestrator *Orchestrator
	store        TaskStore
	archive      DocumentArchive
	cfg          config.ResearchConfig
	logger       *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	deletedMu sync.Mutex
	deleted   map[string]struct{}

	now func() time.Time
}

// NewResearchService wires the registry, runner and persistence together.
// archive may be nil.
func NewResearchService(
	registry *TaskRegistry,
	runner *PhaseRunner,
	store TaskStore,
	archive DocumentArchive,
	cfg config.ResearchConfig,
	logger *zap.Logger,
) *ResearchService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ResearchService{
		registry:     registry,
		runner:       runner,
		orchestrator: NewOrchestrator(runner, registry, logger),
		store:        store,
		archive:      archive,
		cfg:          cfg,
		logger:       logger,
		baseCtx:      ctx,
		cancel:       cancel,
		deleted:      make(map[string]struct{}),
		now:          time.Now,
	}
}

// Registry returns the task registry
func (s *ResearchService) Registry() *TaskRegistry {
	return s.registry
}

// Start validates a request, records the task and launches it in the background.
// It returns as soon as the task is persisted.
func (s *ResearchService) Start(ctx context.Context, req models.ResearchRequest) (*models.ResearchTask, error) {
	task, err := s.newTask(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	if err := s.registry.Create(*task); err != nil {
		return nil, err
	}

	metrics.TasksStarted.WithLabelValues(string(task.ResearchType)).Inc()
	s.logger.Info("research task accepted",
		zap.String("task_id", task.TaskID),
		zap.String("research_type", string(task.ResearchType)),
		zap.String("model", task.Model),
		zap.Int("max_citations", task.MaxCitations),
	)

	s.wg.Add(1)
	go s.run(*task)

	return task, nil
}

// newTask applies request defaults and validates the result
func (s *ResearchService) newTask(req models.ResearchRequest) (*models.ResearchTask, error) {
	task := &models.ResearchTask{
		TaskID:       utils.GenerateUUID(),
		Query:        strings.TrimSpace(req.Query),
		Model:        req.Model,
		ResearchType: req.ResearchType,
		Status:       models.TaskStatusPending,
		Progress:     progressCreated,
		EnrichPrompt: true,
		MaxCitations: s.cfg.DefaultCitations,
		CreatedAt:    s.now(),
	}
	if task.Model == "" {
		task.Model = s.cfg.DefaultModel
	}
	if task.ResearchType == "" {
		task.ResearchType = models.ResearchTypeCustom
	}
	if req.EnrichPrompt != nil {
		task.EnrichPrompt = *req.EnrichPrompt
	}
	if req.MaxCitations != nil {
		task.MaxCitations = *req.MaxCitations
	}

	if !task.ResearchType.Valid() {
		return nil, &ValidationError{Field: "research_type", Message: fmt.Sprintf("unknown research type %q", task.ResearchType)}
	}
	if err := ValidatePhase(task.Query, phaseConfig(task)); err != nil {
		return nil, err
	}
	return task, nil
}

func phaseConfig(task *models.ResearchTask) PhaseConfig {
	return PhaseConfig{
		Model:        task.Model,
		MaxCitations: task.MaxCitations,
		EnrichPrompt: task.EnrichPrompt,
	}
}

// run is the background unit of work for one task
func (s *ResearchService) run(task models.ResearchTask) {
	defer s.wg.Done()

	start := s.now()
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("research task panicked", zap.String("task_id", task.TaskID), zap.Any("panic", p))
			s.fail(task, fmt.Errorf("internal error: %v", p), start)
		}
	}()

	if err := s.registry.Transition(task.TaskID, models.TaskStatusRunning, progressInitializing); err != nil {
		s.logger.Error("failed to start task", zap.String("task_id", task.TaskID), zap.Error(err))
		return
	}
	running := models.TaskStatusRunning
	progress := progressInitializing
	startedAt := start
	s.persist(task.TaskID, models.TaskUpdate{Status: &running, Progress: &progress, StartedAt: &startedAt})

	ctx := s.baseCtx
	cfg := phaseConfig(&task)

	if task.ResearchType == models.ResearchTypeComprehensive {
		outcome, err := s.orchestrator.RunComprehensive(ctx, task.TaskID, task.Query, cfg)
		switch {
		case err != nil:
			s.fail(task, err, start)
		case outcome.Err != nil:
			s.fail(task, outcome.Err, start)
		default:
			s.complete(task, outcome.Document, outcome.Metrics, "parallel", start)
		}
		return
	}

	if msg, ok := singlePhaseProgress[task.ResearchType]; ok {
		_ = s.registry.SetProgress(task.TaskID, msg)
		s.persist(task.TaskID, models.TaskUpdate{Progress: &msg})
	}

	result, err := s.runner.Run(ctx, task.ResearchType, task.Query, cfg)
	if err != nil {
		s.fail(task, err, start)
		return
	}
	if !result.Success {
		// Single-phase failure is terminal; there is no retry
		s.fail(task, &TaskFailure{Causes: []PhaseError{{ResearchType: result.ResearchType, Message: result.Error}}}, start)
		return
	}

	document, m := FormatSingleDocument(task.Query, result)
	s.complete(task, document, m, "single", start)
}

func (s *ResearchService) complete(task models.ResearchTask, document string, m models.MergeMetrics, mode string, start time.Time) {
	elapsed := s.now().Sub(start)
	formatted := utils.FormatProcessingTime(elapsed)
	progress := "Research completed successfully in " + formatted
	completedAt := s.now()

	resultData := models.JSONMap{
		"type":                      string(task.ResearchType),
		"document":                  document,
		"metrics":                   m,
		"total_citations":           m.TotalCitations,
		"total_words":               m.TotalWords,
		"execution_mode":            mode,
		"processing_time":           utils.RoundSeconds(elapsed),
		"processing_time_formatted": formatted,
	}

	persisted := true
	if !s.isDeleted(task.TaskID) {
		var docPath *string
		if filename, err := s.archiveDocument(task, document, m, completedAt); err != nil {
			s.logger.Warn("failed to archive research document", zap.String("task_id", task.TaskID), zap.Error(err))
		} else if filename != "" {
			docPath = &filename
		}

		completed := models.TaskStatusCompleted
		persisted = s.persist(task.TaskID, models.TaskUpdate{
			Status:       &completed,
			Progress:     &progress,
			ResultData:   resultData,
			DocumentPath: docPath,
			CompletedAt:  &completedAt,
		})

		scores := ScoreResearch(document)
		result := &models.ResearchResult{
			TaskID:                    task.TaskID,
			ResearchType:              task.ResearchType,
			IdeaName:                  ExtractIdeaName(task.Query),
			Industry:                  DetectIndustry(task.Query, document),
			TotalCitations:            m.TotalCitations,
			WordCount:                 m.TotalWords,
			ProcessingTimeSeconds:     utils.RoundSeconds(elapsed),
			SuccessRate:               m.SuccessRate,
			SuccessfulPhases:          m.SuccessfulPhases,
			TotalPhases:               m.TotalPhases,
			MarketOpportunityScore:    scores.MarketOpportunity,
			TechnicalFeasibilityScore: scores.TechnicalFeasibility,
			CompetitiveAdvantageScore: scores.CompetitiveAdvantage,
			CreatedAt:                 completedAt,
		}
		if err := s.store.CreateResult(s.baseCtx, result); err != nil {
			persisted = false
			s.logger.Error("failed to save research result", zap.String("task_id", task.TaskID), zap.Error(err))
		}
	}

	if err := s.registry.Complete(task.TaskID, document, m, progress); err != nil {
		s.logger.Error("failed to complete task", zap.String("task_id", task.TaskID), zap.Error(err))
	}

	metrics.TasksFinished.WithLabelValues(string(task.ResearchType), string(models.TaskStatusCompleted)).Inc()
	metrics.TaskDuration.WithLabelValues(string(task.ResearchType)).Observe(elapsed.Seconds())
	s.logger.Info("research task completed",
		zap.String("task_id", task.TaskID),
		zap.String("processing_time", formatted),
		zap.Int("successful_phases", m.SuccessfulPhases),
		zap.Int("total_citations", m.TotalCitations),
	)

	s.finish(task.TaskID, persisted)
}

func (s *ResearchService) fail(task models.ResearchTask, cause error, start time.Time) {
	elapsed := s.now().Sub(start)
	message := cause.Error()
	progress := "Research failed: " + message
	completedAt := s.now()

	persisted := true
	if !s.isDeleted(task.TaskID) {
		failed := models.TaskStatusFailed
		persisted = s.persist(task.TaskID, models.TaskUpdate{
			Status:       &failed,
			Progress:     &progress,
			ErrorMessage: &message,
			CompletedAt:  &completedAt,
		})
	}

	if err := s.registry.Fail(task.TaskID, cause, progress); err != nil {
		s.logger.Error("failed to mark task failed", zap.String("task_id", task.TaskID), zap.Error(err))
	}

	metrics.TasksFinished.WithLabelValues(string(task.ResearchType), string(models.TaskStatusFailed)).Inc()
	metrics.TaskDuration.WithLabelValues(string(task.ResearchType)).Observe(elapsed.Seconds())
	s.logger.Warn("research task failed", zap.String("task_id", task.TaskID), zap.Error(cause))

	s.finish(task.TaskID, persisted)
}

// persist writes an update and reports whether it succeeded
func (s *ResearchService) persist(taskID string, update models.TaskUpdate) bool {
	if s.isDeleted(taskID) {
		return false
	}
	if err := s.store.UpdateTask(s.baseCtx, taskID, update); err != nil {
		s.logger.Error("failed to persist task update", zap.String("task_id", taskID), zap.Error(err))
		return false
	}
	return true
}

func (s *ResearchService) archiveDocument(task models.ResearchTask, document string, m models.MergeMetrics, createdAt time.Time) (string, error) {
	if s.archive == nil {
		return "", nil
	}
	doc := &models.ResearchDocument{
		TaskID:       task.TaskID,
		Query:        task.Query,
		ResearchType: task.ResearchType,
		Model:        task.Model,
		Filename:     DocumentFilename(task, createdAt),
		Content:      document,
		Citations:    m.TotalCitations,
		WordCount:    m.TotalWords,
		CreatedAt:    createdAt,
	}
	if err := s.archive.SaveDocument(s.baseCtx, doc); err != nil {
		return "", err
	}
	return doc.Filename, nil
}

// finish releases a task that reached a terminal state. A task deleted while
// running leaves nothing behind in memory or in the mirror.
func (s *ResearchService) finish(taskID string, persisted bool) {
	if !s.forget(taskID) {
		s.evict(taskID, persisted)
		return
	}

	s.registry.Evict(taskID)
	if mirror := s.registry.Mirror(); mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A progress publish may have landed after Delete cleared the snapshot
		if err := mirror.DeleteSnapshot(ctx, taskID); err != nil {
			s.logger.Warn("failed to delete mirrored progress", zap.String("task_id", taskID), zap.Error(err))
		}
	}
}

func (s *ResearchService) evict(taskID string, persisted bool) {
	if s.cfg.EvictAfterPersist && persisted {
		s.registry.Evict(taskID)
	}
}

// Status returns the current snapshot of a task
func (s *ResearchService) Status(ctx context.Context, taskID string) (*models.ResearchTask, error) {
	if entry, err := s.registry.Get(taskID); err == nil {
		return &entry.Task, nil
	}

	if mirror := s.registry.Mirror(); mirror != nil {
		snapshot, err := mirror.GetSnapshot(ctx, taskID)
		if err != nil {
			s.logger.Warn("progress mirror lookup failed", zap.String("task_id", taskID), zap.Error(err))
		} else if snapshot != nil {
			return snapshot, nil
		}
	}

	task, err := s.store.GetTask(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Result returns the merged document and metrics of a finished task
func (s *ResearchService) Result(ctx context.Context, taskID string) (*models.ResultResponse, error) {
	var (
		task     models.ResearchTask
		document string
		m        *models.MergeMetrics
	)

	if entry, err := s.registry.Get(taskID); err == nil {
		task, document, m = entry.Task, entry.Document, entry.Metrics
	} else {
		stored, err := s.store.GetTask(ctx, taskID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		if err != nil {
			return nil, err
		}
		task = *stored
		document, m = decodeResultData(task.ResultData)
	}

	if !task.Status.IsTerminal() {
		return nil, ErrNotReady
	}

	resp := &models.ResultResponse{
		TaskID:       task.TaskID,
		Status:       task.Status,
		Query:        task.Query,
		Model:        task.Model,
		ResearchType: task.ResearchType,
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
		Error:        task.ErrorMessage,
	}
	if task.Status == models.TaskStatusCompleted {
		resp.Document = document
		resp.Metrics = m
		if result, err := s.store.GetResult(ctx, taskID); err == nil {
			resp.Result = result
		} else if !errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("failed to load research result", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	return resp, nil
}

// decodeResultData recovers the document and metrics from a stored payload
func decodeResultData(data models.JSONMap) (string, *models.MergeMetrics) {
	if data == nil {
		return "", nil
	}
	document, _ := data["document"].(string)

	raw, ok := data["metrics"]
	if !ok {
		return document, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return document, nil
	}
	var m models.MergeMetrics
	if err := json.Unmarshal(b, &m); err != nil {
		return document, nil
	}
	return document, &m
}

// Document returns the archived markdown document of a task, or nil
func (s *ResearchService) Document(ctx context.Context, taskID string) (*models.ResearchDocument, error) {
	if s.archive != nil {
		doc, err := s.archive.GetDocument(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			return doc, nil
		}
	}

	// Fall back to the stored payload when no archive holds it
	result, err := s.Result(ctx, taskID)
	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrNotReady) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result.Document == "" {
		return nil, nil
	}

	createdAt := result.CreatedAt
	if result.CompletedAt != nil {
		createdAt = *result.CompletedAt
	}
	doc := &models.ResearchDocument{
		TaskID:       result.TaskID,
		Query:        result.Query,
		ResearchType: result.ResearchType,
		Model:        result.Model,
		Content:      result.Document,
		CreatedAt:    createdAt,
	}
	doc.Filename = DocumentFilename(models.ResearchTask{TaskID: result.TaskID, Query: result.Query}, createdAt)
	if result.Metrics != nil {
		doc.Citations = result.Metrics.TotalCitations
		doc.WordCount = result.Metrics.TotalWords
	}
	return doc, nil
}

// Documents lists archived documents, optionally filtered by research type
func (s *ResearchService) Documents(ctx context.Context, researchType models.ResearchType) ([]models.ResearchDocument, error) {
	if s.archive == nil {
		return []models.ResearchDocument{}, nil
	}
	return s.archive.ListDocuments(ctx, researchType)
}

// Results lists stored research results, newest first
func (s *ResearchService) Results(ctx context.Context, limit int) ([]models.ResearchResult, error) {
	return s.store.ListResults(ctx, limit)
}

// Progressive returns the status of a task with the phases resolved so far.
// Tasks no longer held in memory report a nil partial result.
func (s *ResearchService) Progressive(ctx context.Context, taskID string) (*models.ProgressiveResponse, error) {
	var (
		task   *models.ResearchTask
		phases []models.PhaseResult
	)
	if entry, err := s.registry.Get(taskID); err == nil {
		task, phases = &entry.Task, entry.Phases
	} else {
		stored, err := s.Status(ctx, taskID)
		if err != nil {
			return nil, err
		}
		task = stored
	}

	return &models.ProgressiveResponse{
		TaskID:        task.TaskID,
		Status:        task.Status,
		Progress:      task.Progress,
		ResearchType:  task.ResearchType,
		PartialResult: partialResult(phases),
	}, nil
}

// partialResult merges resolved phases, or returns nil when none resolved
func partialResult(phases []models.PhaseResult) *models.PartialResult {
	if len(phases) == 0 {
		return nil
	}
	partial := &models.PartialResult{
		Type:     models.ResearchTypeComprehensive,
		Sections: make(map[models.ResearchType]models.PhaseResult, len(phases)),
		Progress: make(map[models.ResearchType]string, len(phases)),
	}
	for _, phase := range phases {
		partial.Sections[phase.ResearchType] = phase
		if !phase.Success {
			partial.Progress[phase.ResearchType] = string(models.TaskStatusFailed)
			continue
		}
		partial.Progress[phase.ResearchType] = string(models.TaskStatusCompleted)
		partial.TotalCitations += phase.Citations
		partial.TotalWords += phase.WordCount
	}
	return partial
}

// PreviousResults lists the most recently completed tasks
func (s *ResearchService) PreviousResults(ctx context.Context) ([]models.PreviousResult, error) {
	tasks, err := s.store.ListCompletedTasks(ctx, previousResultsLimit)
	if err != nil {
		return nil, err
	}

	results := make([]models.PreviousResult, 0, len(tasks))
	for _, task := range tasks {
		processing := "0s"
		if task.StartedAt != nil && task.CompletedAt != nil {
			processing = utils.FormatProcessingTime(task.CompletedAt.Sub(*task.StartedAt))
		}
		results = append(results, models.PreviousResult{
			ID:             task.TaskID,
			Query:          task.Query,
			Model:          task.Model,
			ResearchType:   task.ResearchType,
			CompletedAt:    task.CompletedAt,
			ProcessingTime: processing,
			WordCount:      resultInt(task.ResultData, "total_words"),
			Citations:      resultInt(task.ResultData, "total_citations"),
			DocumentPath:   task.DocumentPath,
		})
	}
	return results, nil
}

// resultInt reads a numeric field of a stored result payload
func resultInt(data models.JSONMap, key string) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// Ping checks the relational store
func (s *ResearchService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Overview returns the dashboard overview
func (s *ResearchService) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	return s.store.Overview(ctx)
}

// Ideas returns the dashboard idea list
func (s *ResearchService) Ideas(ctx context.Context, limit int) ([]models.IdeaSummary, error) {
	return s.store.ListIdeas(ctx, limit)
}

// Delete removes the persisted record and archived document of a task.
// A running computation is not interrupted, but its outcome is no longer stored.
func (s *ResearchService) Delete(ctx context.Context, taskID string) error {
	entry, regErr := s.registry.Get(taskID)
	inFlight := regErr == nil && !entry.Task.Status.IsTerminal()
	if inFlight {
		s.deletedMu.Lock()
		s.deleted[taskID] = struct{}{}
		s.deletedMu.Unlock()
		s.registry.StopMirroring(taskID)
	}

	err := s.store.DeleteTask(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) && regErr != nil {
		return ErrTaskNotFound
	}
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.DeleteDocument(ctx, taskID); err != nil {
			s.logger.Warn("failed to delete research document", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	if mirror := s.registry.Mirror(); mirror != nil {
		if err := mirror.DeleteSnapshot(ctx, taskID); err != nil {
			s.logger.Warn("failed to delete mirrored progress", zap.String("task_id", taskID), zap.Error(err))
		}
	}
	if !inFlight {
		s.registry.Evict(taskID)
	}
	return nil
}

func (s *ResearchService) isDeleted(taskID string) bool {
	s.deletedMu.Lock()
	defer s.deletedMu.Unlock()
	_, ok := s.deleted[taskID]
	return ok
}

// forget clears the deleted mark of a task and reports whether it was set
func (s *ResearchService) forget(taskID string) bool {
	s.deletedMu.Lock()
	defer s.deletedMu.Unlock()
	_, ok := s.deleted[taskID]
	delete(s.deleted, taskID)
	return ok
}

// Shutdown waits for in-flight tasks. When ctx expires first, running backend
// calls are cancelled and their phases resolve as failed.
func (s *ResearchService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Wait blocks until every background task has finished
func (s *ResearchService) Wait() {
	s.wg.Wait()
}

// DocumentFilename builds the archive filename of a task document
func DocumentFilename(task models.ResearchTask, createdAt time.Time) string {
	id := task.TaskID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s_%s_%s.md", createdAt.UTC().Format("20060102_150405"), sanitizeFilename(task.Query), id)
}

// sanitizeFilename keeps letters, digits and dashes, joined by underscores
func sanitizeFilename(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
		if b.Len() >= 50 {
			break
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "research"
	}
	return out
}
