package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-research-platform/internal/config"
	"ai-research-platform/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a task or result does not exist
var ErrNotFound = errors.New("record not found")

const taskColumns = `task_id, query, model, research_type, status, progress, enrich_prompt, max_citations,
	created_at, started_at, completed_at, result_data, error_message, document_path`

const resultColumns = `task_id, research_type, idea_name, industry, total_citations, word_count,
	processing_time_seconds, success_rate, successful_phases, total_phases,
	market_opportunity_score, technical_feasibility_score, competitive_advantage_score, created_at`

// SQLStore persists research tasks and results in postgres or sqlite
type SQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// OpenSQLStore connects to the configured relational database
func OpenSQLStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// One connection keeps in-memory databases and foreign key pragmas consistent
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", cfg.Driver, err)
	}

	logger.Info("connected to relational store", zap.String("driver", cfg.Driver))
	return NewSQLStore(db, logger), nil
}

// NewSQLStore wraps an existing connection
func NewSQLStore(db *sqlx.DB, logger *zap.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping verifies the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	timestamp := "TIMESTAMPTZ"
	if s.db.DriverName() == "sqlite3" {
		timestamp = "TIMESTAMP"
		if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	for _, stmt := range schemaStatements(timestamp) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(timestamp string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS research_tasks (
			task_id VARCHAR(64) PRIMARY KEY,
			query TEXT NOT NULL DEFAULT '',
			model VARCHAR(128) NOT NULL DEFAULT '',
			research_type VARCHAR(32) NOT NULL DEFAULT 'custom',
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			progress TEXT NOT NULL DEFAULT '',
			enrich_prompt BOOLEAN NOT NULL DEFAULT TRUE,
			max_citations INTEGER NOT NULL DEFAULT 20,
			created_at %[1]s NOT NULL,
			started_at %[1]s,
			completed_at %[1]s,
			result_data TEXT,
			error_message TEXT NOT NULL DEFAULT '',
			document_path TEXT NOT NULL DEFAULT ''
		)`, timestamp),
		`CREATE INDEX IF NOT EXISTS idx_research_tasks_status ON research_tasks (status)`,
		`CREATE INDEX IF NOT EXISTS idx_research_tasks_created_at ON research_tasks (created_at)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS research_results (
			task_id VARCHAR(64) PRIMARY KEY REFERENCES research_tasks (task_id) ON DELETE CASCADE,
			research_type VARCHAR(32) NOT NULL,
			idea_name TEXT NOT NULL DEFAULT '',
			industry VARCHAR(64) NOT NULL DEFAULT '',
			total_citations INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			processing_time_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			success_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			successful_phases INTEGER NOT NULL DEFAULT 0,
			total_phases INTEGER NOT NULL DEFAULT 0,
			market_opportunity_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			technical_feasibility_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			competitive_advantage_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at %[1]s NOT NULL
		)`, timestamp),
	}
}

// CreateTask inserts a new task and returns its id
func (s *SQLStore) CreateTask(ctx context.Context, task *models.ResearchTask) (string, error) {
	if task.TaskID == "" {
		task.TaskID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	query := s.db.Rebind(`INSERT INTO research_tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		task.TaskID,
		task.Query,
		task.Model,
		task.ResearchType,
		task.Status,
		task.Progress,
		task.EnrichPrompt,
		task.MaxCitations,
		task.CreatedAt.UTC(),
		utcPtr(task.StartedAt),
		utcPtr(task.CompletedAt),
		task.ResultData,
		task.ErrorMessage,
		task.DocumentPath,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert task %s: %w", task.TaskID, err)
	}
	return task.TaskID, nil
}

// UpdateTask applies the non-nil fields of update, inserting the row if it
// does not exist yet. started_at and completed_at are only set once.
func (s *SQLStore) UpdateTask(ctx context.Context, taskID string, update models.TaskUpdate) error {
	cols, vals := updateFields(update)
	if len(cols) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sets := make([]string, len(cols))
	for i, col := range cols {
		switch col {
		case "started_at", "completed_at":
			sets[i] = fmt.Sprintf("%s = COALESCE(%s, ?)", col, col)
		default:
			sets[i] = col + " = ?"
		}
	}
	query := tx.Rebind(`UPDATE research_tasks SET ` + strings.Join(sets, ", ") + ` WHERE task_id = ?`)
	res, err := tx.ExecContext(ctx, query, append(vals, taskID)...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		insertCols := append([]string{"task_id", "created_at"}, cols...)
		insertVals := append([]interface{}{taskID, time.Now().UTC()}, vals...)
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")
		insert := tx.Rebind(`INSERT INTO research_tasks (` + strings.Join(insertCols, ", ") + `) VALUES (` + placeholders + `)`)
		if _, err := tx.ExecContext(ctx, insert, insertVals...); err != nil {
			return fmt.Errorf("failed to upsert task %s: %w", taskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task update: %w", err)
	}
	return nil
}

func updateFields(u models.TaskUpdate) ([]string, []interface{}) {
	var cols []string
	var vals []interface{}
	add := func(col string, val interface{}) {
		cols = append(cols, col)
		vals = append(vals, val)
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Progress != nil {
		add("progress", *u.Progress)
	}
	if u.ResultData != nil {
		add("result_data", u.ResultData)
	}
	if u.ErrorMessage != nil {
		add("error_message", *u.ErrorMessage)
	}
	if u.DocumentPath != nil {
		add("document_path", *u.DocumentPath)
	}
	if u.StartedAt != nil {
		add("started_at", u.StartedAt.UTC())
	}
	if u.CompletedAt != nil {
		add("completed_at", u.CompletedAt.UTC())
	}
	return cols, vals
}

// GetTask returns the current snapshot of a task
func (s *SQLStore) GetTask(ctx context.Context, taskID string) (*models.ResearchTask, error) {
	var task models.ResearchTask
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM research_tasks WHERE task_id = ?`)
	if err := s.db.GetContext(ctx, &task, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}
	return &task, nil
}

// ListTasks returns the most recent tasks
func (s *SQLStore) ListTasks(ctx context.Context, limit int) ([]models.ResearchTask, error) {
	tasks := []models.ResearchTask{}
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM research_tasks ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &tasks, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListCompletedTasks returns completed tasks, most recently finished first
func (s *SQLStore) ListCompletedTasks(ctx context.Context, limit int) ([]models.ResearchTask, error) {
	tasks := []models.ResearchTask{}
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM research_tasks
		WHERE status = ? ORDER BY completed_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &tasks, query, string(models.TaskStatusCompleted), normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list completed tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task; its result is removed by cascade
func (s *SQLStore) DeleteTask(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM research_tasks WHERE task_id = ?`), taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateResult records the metrics of a finished task. Results are immutable:
// a second insert for the same task is ignored.
func (s *SQLStore) CreateResult(ctx context.Context, result *models.ResearchResult) error {
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	query := s.db.Rebind(`INSERT INTO research_results (` + resultColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_id) DO NOTHING`)
	_, err := s.db.ExecContext(ctx, query,
		result.TaskID,
		result.ResearchType,
		result.IdeaName,
		result.Industry,
		result.TotalCitations,
		result.WordCount,
		result.ProcessingTimeSeconds,
		result.SuccessRate,
		result.SuccessfulPhases,
		result.TotalPhases,
		result.MarketOpportunityScore,
		result.TechnicalFeasibilityScore,
		result.CompetitiveAdvantageScore,
		result.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result for task %s: %w", result.TaskID, err)
	}
	return nil
}

// GetResult returns the result of a task
func (s *SQLStore) GetResult(ctx context.Context, taskID string) (*models.ResearchResult, error) {
	var result models.ResearchResult
	query := s.db.Rebind(`SELECT ` + resultColumns + ` FROM research_results WHERE task_id = ?`)
	if err := s.db.GetContext(ctx, &result, query, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load result %s: %w", taskID, err)
	}
	return &result, nil
}

// ListResults returns the most recent results
func (s *SQLStore) ListResults(ctx context.Context, limit int) ([]models.ResearchResult, error) {
	results := []models.ResearchResult{}
	query := s.db.Rebind(`SELECT ` + resultColumns + ` FROM research_results ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &results, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

// ListIdeas joins results with their tasks for the dashboard
func (s *SQLStore) ListIdeas(ctx context.Context, limit int) ([]models.IdeaSummary, error) {
	ideas := []models.IdeaSummary{}
	query := s.db.Rebind(`SELECT r.task_id, r.idea_name, t.query, r.industry, t.model, r.research_type,
			r.total_citations, r.market_opportunity_score, r.technical_feasibility_score,
			r.competitive_advantage_score, r.created_at
		FROM research_results r
		JOIN research_tasks t ON t.task_id = r.task_id
		ORDER BY r.created_at DESC
		LIMIT ?`)
	if err := s.db.SelectContext(ctx, &ideas, query, normalizeLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	return ideas, nil
}

// Overview computes the dashboard figures
func (s *SQLStore) Overview(ctx context.Context) (*models.DashboardOverview, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var counts struct {
		TotalIdeas        int `db:"total_ideas"`
		CompletedIdeas    int `db:"completed_ideas"`
		FailedIdeas       int `db:"failed_ideas"`
		NewIdeasThisMonth int `db:"new_ideas_this_month"`
	}
	countQuery := s.db.Rebind(`SELECT
			COUNT(*) AS total_ideas,
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed_ideas,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) AS failed_ideas,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS new_ideas_this_month
		FROM research_tasks`)
	if err := s.db.GetContext(ctx, &counts, countQuery, monthStart); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var averages struct {
		AvgMarketScore   float64 `db:"avg_market_score"`
		AvgResearchDepth float64 `db:"avg_research_depth"`
	}
	avgQuery := `SELECT
			COALESCE(AVG(market_opportunity_score), 0) AS avg_market_score,
			COALESCE(AVG(total_citations), 0) AS avg_research_depth
		FROM research_results`
	if err := s.db.GetContext(ctx, &averages, avgQuery); err != nil {
		return nil, fmt.Errorf("failed to average results: %w", err)
	}

	overview := &models.DashboardOverview{
		TotalIdeas:        counts.TotalIdeas,
		CompletedIdeas:    counts.CompletedIdeas,
		FailedIdeas:       counts.FailedIdeas,
		NewIdeasThisMonth: counts.NewIdeasThisMonth,
		AvgMarketScore:    round1(averages.AvgMarketScore),
		AvgResearchDepth:  round1(averages.AvgResearchDepth),
	}
	if counts.TotalIdeas > 0 {
		overview.ValidationSuccessRate = round1(float64(counts.CompletedIdeas) / float64(counts.TotalIdeas) * 100)
	}
	return overview, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
