package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/database"
	"ai-research-platform/internal/documents"
	"ai-research-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serviceFixture struct {
	service *ResearchService
	backend *fakeBackend
	store   *database.SQLStore
	archive *documents.FileArchive
	log     *transitionLog
}

func testResearchConfig() config.ResearchConfig {
	return config.ResearchConfig{
		DefaultModel:     "o3-deep-research",
		DefaultCitations: 20,
		FastModel:        "o4-mini-deep-research",
		FastModelTimeout: 1800 * time.Second,
		SlowModel:        "o3-deep-research",
		SlowModelTimeout: 3600 * time.Second,
	}
}

func newServiceFixture(t *testing.T, fn backendFunc, mutate ...func(*config.ResearchConfig)) *serviceFixture {
	t.Helper()
	return newMirroredFixture(t, fn, nil, mutate...)
}

// newMirroredFixture is newServiceFixture with progress published to mirror
func newMirroredFixture(t *testing.T, fn backendFunc, mirror ProgressMirror, mutate ...func(*config.ResearchConfig)) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := database.OpenSQLStore(ctx, config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    "file::memory:?_foreign_keys=on",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	archive, err := documents.NewFileArchive(t.TempDir(), logger)
	require.NoError(t, err)

	cfg := testResearchConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	log := newTransitionLog()
	opts := []RegistryOption{WithTransitionHook(log.record)}
	if mirror != nil {
		opts = append(opts, WithProgressMirror(mirror))
	}
	registry := NewTaskRegistry(logger, opts...)
	backend := newFakeBackend(fn)
	runner := NewPhaseRunner(backend, cfg.ModelTimeouts(), logger)

	svc := NewResearchService(registry, runner, store, archive, cfg, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &serviceFixture{service: svc, backend: backend, store: store, archive: archive, log: log}
}

func comprehensiveRequest(query string) models.ResearchRequest {
	return models.ResearchRequest{Query: query, ResearchType: models.ResearchTypeComprehensive}
}

func TestStartAppliesDefaults(t *testing.T) {
	f := newServiceFixture(t, respond(map[models.ResearchType]int{models.ResearchTypeCustom: 3}, nil))

	task, err := f.service.Start(context.Background(), models.ResearchRequest{Query: "  pet insurance marketplace  "})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "pet insurance marketplace", task.Query)
	assert.Equal(t, models.ResearchTypeCustom, task.ResearchType)
	assert.Equal(t, "o3-deep-research", task.Model)
	assert.Equal(t, 20, task.MaxCitations)
	assert.True(t, task.EnrichPrompt)

	f.service.Wait()

	reqs := f.backend.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 20, reqs[0].MaxCitations)
	assert.Equal(t, models.ResearchTypeCustom, reqs[0].ResearchType)
}

func TestStartRejectsInvalidRequests(t *testing.T) {
	f := newServiceFixture(t, respond(nil, nil))
	ctx := context.Background()

	tests := []struct {
		name  string
		req   models.ResearchRequest
		field string
	}{
		{"empty query", models.ResearchRequest{Query: "  "}, "query"},
		{"too few citations", models.ResearchRequest{Query: "q", MaxCitations: intPtr(4)}, "max_citations"},
		{"too many citations", models.ResearchRequest{Query: "q", MaxCitations: intPtr(101)}, "max_citations"},
		{"unknown type", models.ResearchRequest{Query: "q", ResearchType: "legal"}, "research_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Start(ctx, tt.req)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	f.service.Wait()
	assert.Zero(t, f.backend.callCount())
	results, err := f.store.ListTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestComprehensivePartialSuccess(t *testing.T) {
	f := newServiceFixture(t, respond(
		map[models.ResearchType]int{models.ResearchTypeValidation: 5, models.ResearchTypeMarket: 8},
		map[models.ResearchType]error{models.ResearchTypeFinancial: errors.New("upstream timeout")},
	))
	ctx := context.Background()

	task, err := f.service.Start(ctx, comprehensiveRequest("AI bookkeeping for food trucks"))
	require.NoError(t, err)
	f.service.Wait()

	status, err := f.service.Status(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, status.Status)
	assert.True(t, strings.HasPrefix(status.Progress, "Research completed successfully in "))

	result, err := f.service.Result(ctx, task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, result.Metrics)
	assert.Equal(t, 13, result.Metrics.TotalCitations)
	assert.Equal(t, 2, result.Metrics.SuccessfulPhases)
	assert.Contains(t, result.Document, "> Reason: upstream timeout")
	require.NotNil(t, result.Result)
	assert.Equal(t, 13, result.Result.TotalCitations)
	assert.Equal(t, 3, result.Result.TotalPhases)

	stored, err := f.store.GetTask(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)
	assert.Equal(t, "parallel", stored.ResultData["execution_mode"])
	assert.NotEmpty(t, stored.DocumentPath)
	require.NotNil(t, stored.StartedAt)
	require.NotNil(t, stored.CompletedAt)

	doc, err := f.archive.GetDocument(ctx, task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, result.Document, doc.Content)

	assert.Equal(t, []transition{
		{models.TaskStatusPending, models.TaskStatusRunning},
		{models.TaskStatusRunning, models.TaskStatusCompleted},
	}, f.log.get(task.TaskID))
}

func TestComprehensiveAllPhasesFail(t *testing.T) {
	f := newServiceFixture(t, respond(nil, map[models.ResearchType]error{
		models.ResearchTypeValidation: errors.New("quota exceeded"),
		models.ResearchTypeMarket:     errors.New("connection reset"),
		models.ResearchTypeFinancial:  errors.New("bad gateway"),
	}))
	ctx := context.Background()

	task, err := f.service.Start(ctx, comprehensiveRequest("drone window cleaning"))
	require.NoError(t, err)
	f.service.Wait()

	status, err := f.service.Status(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, status.Status)
	for _, cause := range []string{"validation: quota exceeded", "market: connection reset", "financial: bad gateway"} {
		assert.Contains(t, status.ErrorMessage, cause)
	}

	result, err := f.service.Result(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, result.Status)
	assert.Empty(t, result.Document)
	assert.Contains(t, result.Error, "all research phases failed")

	_, err = f.store.GetResult(ctx, task.TaskID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Equal(t, []transition{
		{models.TaskStatusPending, models.TaskStatusRunning},
		{models.TaskStatusRunning, models.TaskStatusFailed},
	}, f.log.get(task.TaskID))
}

func TestSingleTypeFailureIsTerminal(t *testing.T) {
	f := newServiceFixture(t, respond(nil, map[models.ResearchType]error{
		models.ResearchTypeMarket: errors.New("model overloaded"),
	}))
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{Query: "q", ResearchType: models.ResearchTypeMarket})
	require.NoError(t, err)
	f.service.Wait()

	status, err := f.service.Status(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, status.Status)
	assert.Equal(t, "market research failed: model overloaded", status.ErrorMessage)
	assert.Equal(t, 1, f.backend.callCount())
}

func TestSingleTypeSuccess(t *testing.T) {
	f := newServiceFixture(t, respond(map[models.ResearchType]int{models.ResearchTypeFinancial: 7}, nil))
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{
		Query:        "modular tiny homes",
		ResearchType: models.ResearchTypeFinancial,
		Model:        "o4-mini-deep-research",
		MaxCitations: intPtr(10),
	})
	require.NoError(t, err)
	f.service.Wait()

	result, err := f.service.Result(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Status)
	assert.True(t, strings.HasPrefix(result.Document, "# Financial Analysis Report: modular tiny homes"))
	assert.Equal(t, 7, result.Metrics.TotalCitations)

	req := f.backend.requests()[0]
	assert.Equal(t, "o4-mini-deep-research", req.Model)
	assert.Equal(t, 10, req.MaxCitations)
}

func TestResultBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	f := newServiceFixture(t, func(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
		<-release
		return &BackendResponse{Text: "done", Citations: 1}, nil
	})
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{Query: "q"})
	require.NoError(t, err)

	_, err = f.service.Result(ctx, task.TaskID)
	assert.ErrorIs(t, err, ErrNotReady)

	require.Eventually(t, func() bool {
		s, err := f.service.Status(ctx, task.TaskID)
		return err == nil && s.Status == models.TaskStatusRunning
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	f.service.Wait()

	result, err := f.service.Result(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Status)
}

func TestStatusUnknownTask(t *testing.T) {
	f := newServiceFixture(t, respond(nil, nil))

	_, err := f.service.Status(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = f.service.Result(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestEvictedTaskIsServedFromStore(t *testing.T) {
	f := newServiceFixture(t,
		respond(map[models.ResearchType]int{models.ResearchTypeValidation: 5, models.ResearchTypeMarket: 8, models.ResearchTypeFinancial: 2}, nil),
		func(cfg *config.ResearchConfig) { cfg.EvictAfterPersist = true },
	)
	ctx := context.Background()

	task, err := f.service.Start(ctx, comprehensiveRequest("q"))
	require.NoError(t, err)
	f.service.Wait()

	_, err = f.service.Registry().Get(task.TaskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	status, err := f.service.Status(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, status.Status)

	result, err := f.service.Result(ctx, task.TaskID)
	require.NoError(t, err)
	require.NotNil(t, result.Metrics)
	assert.Equal(t, 15, result.Metrics.TotalCitations)
	assert.Equal(t, 3, result.Metrics.SuccessfulPhases)
	assert.Contains(t, result.Document, "## Business Idea Validation")
}

func TestDeleteTask(t *testing.T) {
	f := newServiceFixture(t, respond(map[models.ResearchType]int{models.ResearchTypeCustom: 2}, nil))
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{Query: "q"})
	require.NoError(t, err)
	f.service.Wait()

	require.NoError(t, f.service.Delete(ctx, task.TaskID))

	_, err = f.service.Status(ctx, task.TaskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
	doc, err := f.archive.GetDocument(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	assert.ErrorIs(t, f.service.Delete(ctx, task.TaskID), ErrTaskNotFound)
}

// gatedBackend answers like respond, but holds the listed phases until release closes
func gatedBackend(citations map[models.ResearchType]int, gated map[models.ResearchType]bool, entered, release chan struct{}) backendFunc {
	answer := respond(citations, nil)
	return func(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
		if gated[req.ResearchType] {
			entered <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return answer(ctx, req)
	}
}

func TestDeleteDuringRunLeavesNoTrace(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	mirror := newMemoryMirror()
	f := newMirroredFixture(t,
		gatedBackend(map[models.ResearchType]int{models.ResearchTypeCustom: 4},
			map[models.ResearchType]bool{models.ResearchTypeCustom: true}, entered, release),
		mirror,
		func(cfg *config.ResearchConfig) { cfg.EvictAfterPersist = true },
	)
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{Query: "vertical farming kits"})
	require.NoError(t, err)
	<-entered

	require.NoError(t, f.service.Delete(ctx, task.TaskID))
	snapshot, err := mirror.GetSnapshot(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	close(release)
	f.service.Wait()

	_, err = f.service.Status(ctx, task.TaskID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	snapshot, err = mirror.GetSnapshot(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, snapshot, "terminal state must not be republished")

	_, err = f.store.GetTask(ctx, task.TaskID)
	assert.ErrorIs(t, err, database.ErrNotFound)
	doc, err := f.archive.GetDocument(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Nil(t, doc)

	assert.False(t, f.service.isDeleted(task.TaskID))
	f.service.deletedMu.Lock()
	assert.Empty(t, f.service.deleted)
	f.service.deletedMu.Unlock()
}

func TestProgressiveReportsResolvedPhases(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f := newServiceFixture(t, gatedBackend(
		map[models.ResearchType]int{models.ResearchTypeValidation: 5, models.ResearchTypeMarket: 8, models.ResearchTypeFinancial: 2},
		map[models.ResearchType]bool{models.ResearchTypeFinancial: true}, entered, release,
	))
	ctx := context.Background()

	task, err := f.service.Start(ctx, comprehensiveRequest("modular tiny homes"))
	require.NoError(t, err)
	<-entered

	require.Eventually(t, func() bool {
		entry, err := f.service.Registry().Get(task.TaskID)
		return err == nil && len(entry.Phases) == 2
	}, 5*time.Second, 5*time.Millisecond)

	progressive, err := f.service.Progressive(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, progressive.Status)
	assert.Equal(t, models.ResearchTypeComprehensive, progressive.ResearchType)
	require.NotNil(t, progressive.PartialResult)
	assert.Len(t, progressive.PartialResult.Sections, 2)
	assert.Equal(t, "completed", progressive.PartialResult.Progress[models.ResearchTypeValidation])
	assert.Equal(t, 13, progressive.PartialResult.TotalCitations)
	assert.NotContains(t, progressive.PartialResult.Sections, models.ResearchTypeFinancial)

	close(release)
	f.service.Wait()

	progressive, err = f.service.Progressive(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, progressive.Status)
	require.NotNil(t, progressive.PartialResult)
	assert.Len(t, progressive.PartialResult.Sections, 3)
	assert.Equal(t, 15, progressive.PartialResult.TotalCitations)
}

func TestProgressiveWithoutResolvedPhases(t *testing.T) {
	f := newServiceFixture(t,
		respond(map[models.ResearchType]int{models.ResearchTypeMarket: 3}, nil),
		func(cfg *config.ResearchConfig) { cfg.EvictAfterPersist = true },
	)
	ctx := context.Background()

	task, err := f.service.Start(ctx, models.ResearchRequest{Query: "q", ResearchType: models.ResearchTypeMarket})
	require.NoError(t, err)
	f.service.Wait()

	progressive, err := f.service.Progressive(ctx, task.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, progressive.Status)
	assert.Equal(t, models.ResearchTypeMarket, progressive.ResearchType)
	assert.Nil(t, progressive.PartialResult)

	_, err = f.service.Progressive(ctx, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestPreviousResults(t *testing.T) {
	f := newServiceFixture(t, respond(map[models.ResearchType]int{models.ResearchTypeCustom: 6}, map[models.ResearchType]error{
		models.ResearchTypeMarket: errors.New("quota exceeded"),
	}))
	ctx := context.Background()

	done, err := f.service.Start(ctx, models.ResearchRequest{Query: "robotic lawn care"})
	require.NoError(t, err)
	_, err = f.service.Start(ctx, models.ResearchRequest{Query: "q", ResearchType: models.ResearchTypeMarket})
	require.NoError(t, err)
	f.service.Wait()

	previous, err := f.service.PreviousResults(ctx)
	require.NoError(t, err)
	require.Len(t, previous, 1, "failed tasks are not listed")

	entry := previous[0]
	assert.Equal(t, done.TaskID, entry.ID)
	assert.Equal(t, "robotic lawn care", entry.Query)
	assert.Equal(t, models.ResearchTypeCustom, entry.ResearchType)
	assert.Equal(t, 6, entry.Citations)
	assert.Equal(t, 4, entry.WordCount)
	assert.Equal(t, "0s", entry.ProcessingTime)
	assert.NotEmpty(t, entry.DocumentPath)
	require.NotNil(t, entry.CompletedAt)
}

func TestDocumentFilename(t *testing.T) {
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	name := DocumentFilename(models.ResearchTask{
		TaskID: "0123456789abcdef",
		Query:  "AI-powered  Meal Planning / for busy parents!",
	}, created)
	assert.Equal(t, "20260304_050607_ai-powered_meal_planning_for_busy_parents_01234567.md", name)

	name = DocumentFilename(models.ResearchTask{TaskID: "abc", Query: "???"}, created)
	assert.Equal(t, "20260304_050607_research_abc.md", name)
}

func intPtr(v int) *int { return &v }
