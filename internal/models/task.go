package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus represents the status of a research task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transition is possible
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal forward step:
// pending -> running -> completed|failed
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusRunning
	case TaskStatusRunning:
		return next == TaskStatusCompleted || next == TaskStatusFailed
	default:
		return false
	}
}

// ResearchType selects which research workflow runs for a task
type ResearchType string

const (
	ResearchTypeCustom        ResearchType = "custom"
	ResearchTypeValidation    ResearchType = "validation"
	ResearchTypeMarket        ResearchType = "market"
	ResearchTypeFinancial     ResearchType = "financial"
	ResearchTypeComprehensive ResearchType = "comprehensive"
)

// ComprehensivePhases is the canonical merge order of a comprehensive task
var ComprehensivePhases = []ResearchType{
	ResearchTypeValidation,
	ResearchTypeMarket,
	ResearchTypeFinancial,
}

// Valid reports whether t is a known research type
func (t ResearchType) Valid() bool {
	switch t {
	case ResearchTypeCustom, ResearchTypeValidation, ResearchTypeMarket,
		ResearchTypeFinancial, ResearchTypeComprehensive:
		return true
	}
	return false
}

// JSONMap is an opaque JSON object stored in a text column
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
	if len(data) == 0 {
		*j = nil
		return nil
	}
	return json.Unmarshal(data, j)
}

// ResearchTask is the persisted record of one research request
type ResearchTask struct {
	TaskID       string       `db:"task_id" json:"task_id"`
	Query        string       `db:"query" json:"query"`
	Model        string       `db:"model" json:"model"`
	ResearchType ResearchType `db:"research_type" json:"research_type"`
	Status       TaskStatus   `db:"status" json:"status"`
	Progress     string       `db:"progress" json:"progress"`
	EnrichPrompt bool         `db:"enrich_prompt" json:"enrich_prompt"`
	MaxCitations int          `db:"max_citations" json:"max_citations"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	StartedAt    *time.Time   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt  *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	ResultData   JSONMap      `db:"result_data" json:"result_data,omitempty"`
	ErrorMessage string       `db:"error_message" json:"error,omitempty"`
	DocumentPath string       `db:"document_path" json:"document_path,omitempty"`
}

// TaskUpdate carries the fields to change on a task; nil fields are left untouched
type TaskUpdate struct {
	Status       *TaskStatus
	Progress     *string
	ResultData   JSONMap
	ErrorMessage *string
	DocumentPath *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// ResearchResult holds the aggregated metrics of a finished task
type ResearchResult struct {
	TaskID                    string       `db:"task_id" json:"task_id"`
	ResearchType              ResearchType `db:"research_type" json:"research_type"`
	IdeaName                  string       `db:"idea_name" json:"idea_name"`
	Industry                  string       `db:"industry" json:"industry"`
	TotalCitations            int          `db:"total_citations" json:"total_citations"`
	WordCount                 int          `db:"word_count" json:"word_count"`
	ProcessingTimeSeconds     float64      `db:"processing_time_seconds" json:"processing_time_seconds"`
	SuccessRate               float64      `db:"success_rate" json:"success_rate"`
	SuccessfulPhases          int          `db:"successful_phases" json:"successful_phases"`
	TotalPhases               int          `db:"total_phases" json:"total_phases"`
	MarketOpportunityScore    float64      `db:"market_opportunity_score" json:"market_opportunity_score"`
	TechnicalFeasibilityScore float64      `db:"technical_feasibility_score" json:"technical_feasibility_score"`
	CompetitiveAdvantageScore float64      `db:"competitive_advantage_score" json:"competitive_advantage_score"`
	CreatedAt                 time.Time    `db:"created_at" json:"created_at"`
}

// PhaseResult is the transient outcome of one research phase
type PhaseResult struct {
	ResearchType ResearchType  `json:"research_type"`
	Text         string        `json:"text,omitempty"`
	Citations    int           `json:"citations"`
	WordCount    int           `json:"word_count"`
	Elapsed      time.Duration `json:"elapsed"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
}

// PhaseMetrics is the per-phase slice of MergeMetrics
type PhaseMetrics struct {
	ResearchType   ResearchType `json:"research_type"`
	Success        bool         `json:"success"`
	Citations      int          `json:"citations"`
	WordCount      int          `json:"word_count"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Error          string       `json:"error,omitempty"`
}

// MergeMetrics aggregates the phases of a merged document
type MergeMetrics struct {
	TotalCitations   int            `json:"total_citations"`
	TotalWords       int            `json:"total_words"`
	SuccessfulPhases int            `json:"successful_phases"`
	TotalPhases      int            `json:"total_phases"`
	SuccessRate      float64        `json:"success_rate"`
	Phases           []PhaseMetrics `json:"phases"`
}

// ResearchDocument is an archived markdown report
type ResearchDocument struct {
	TaskID       string       `bson:"_id" json:"task_id"`
	Query        string       `bson:"query" json:"query"`
	ResearchType ResearchType `bson:"researchType" json:"research_type"`
	Model        string       `bson:"model" json:"model"`
	Filename     string       `bson:"filename" json:"filename"`
	Content      string       `bson:"content" json:"-"`
	Citations    int          `bson:"citations" json:"citations"`
	WordCount    int          `bson:"wordCount" json:"word_count"`
	CreatedAt    time.Time    `bson:"createdAt" json:"created_at"`
}
