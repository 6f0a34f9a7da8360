package models

import "time"

// ResearchRequest represents the request to start a research task
type ResearchRequest struct {
	Query        string       `json:"query"`
	Model        string       `json:"model,omitempty"`         // Optional, defaults to the configured research model
	ResearchType ResearchType `json:"research_type,omitempty"` // Optional, defaults to custom
	EnrichPrompt *bool        `json:"enrich_prompt,omitempty"` // Optional, defaults to true
	MaxCitations *int         `json:"max_citations,omitempty"` // Optional, 5-100
}

// TaskResponse represents the response when creating a task
type TaskResponse struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Progress  string     `json:"progress"`
	CreatedAt time.Time  `json:"created_at"`
}

// StatusResponse represents the response when checking task status
type StatusResponse struct {
	TaskID       string       `json:"task_id"`
	Status       TaskStatus   `json:"status"`
	Progress     string       `json:"progress"`
	Query        string       `json:"query"`
	Model        string       `json:"model"`
	ResearchType ResearchType `json:"research_type"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ResultResponse carries the merged document and metrics of a finished task
type ResultResponse struct {
	TaskID       string          `json:"task_id"`
	Status       TaskStatus      `json:"status"`
	Query        string          `json:"query"`
	Model        string          `json:"model"`
	ResearchType ResearchType    `json:"research_type"`
	Document     string          `json:"document,omitempty"`
	Metrics      *MergeMetrics   `json:"metrics,omitempty"`
	Result       *ResearchResult `json:"result,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// ModelInfo describes a research model offered by the backend
type ModelInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BestFor     string  `json:"best_for"`
	Speed       string  `json:"speed"`
	TimeoutSecs float64 `json:"timeout_seconds"`
}

// DashboardOverview holds the aggregate figures shown on the dashboard
type DashboardOverview struct {
	TotalIdeas            int     `db:"total_ideas" json:"total_ideas"`
	CompletedIdeas        int     `db:"completed_ideas" json:"ideas_ready_for_development"`
	FailedIdeas           int     `db:"failed_ideas" json:"failed_ideas"`
	AvgMarketScore        float64 `db:"avg_market_score" json:"avg_market_score"`
	AvgResearchDepth      float64 `db:"avg_research_depth" json:"avg_research_depth"`
	NewIdeasThisMonth     int     `db:"new_ideas_this_month" json:"new_ideas_this_month"`
	ValidationSuccessRate float64 `json:"validation_success_rate"`
}

// IdeaSummary is one row of the dashboard idea list
type IdeaSummary struct {
	TaskID                    string       `db:"task_id" json:"idea_id"`
	IdeaName                  string       `db:"idea_name" json:"idea_name"`
	Description               string       `db:"query" json:"description"`
	Industry                  string       `db:"industry" json:"industry"`
	Model                     string       `db:"model" json:"research_model"`
	ResearchType              ResearchType `db:"research_type" json:"research_type"`
	TotalCitations            int          `db:"total_citations" json:"total_citations"`
	MarketOpportunityScore    float64      `db:"market_opportunity_score" json:"market_opportunity"`
	TechnicalFeasibilityScore float64      `db:"technical_feasibility_score" json:"technical_feasibility"`
	CompetitiveAdvantageScore float64      `db:"competitive_advantage_score" json:"competitive_advantage"`
	CreatedAt                 time.Time    `db:"created_at" json:"created_at"`
}

// PartialResult is the merged view of the phases a comprehensive task has
// resolved so far
type PartialResult struct {
	Type           ResearchType                 `json:"type"`
	Sections       map[ResearchType]PhaseResult `json:"sections"`
	Progress       map[ResearchType]string      `json:"progress"`
	TotalCitations int                          `json:"total_citations"`
	TotalWords     int                          `json:"total_words"`
}

// ProgressiveResponse is a status poll that includes partial phase output
type ProgressiveResponse struct {
	TaskID        string         `json:"task_id"`
	Status        TaskStatus     `json:"status"`
	Progress      string         `json:"progress"`
	ResearchType  ResearchType   `json:"research_type"`
	PartialResult *PartialResult `json:"partial_result"`
}

// PreviousResult summarises one completed task for the history list
type PreviousResult struct {
	ID             string       `json:"id"`
	Query          string       `json:"query"`
	Model          string       `json:"model"`
	ResearchType   ResearchType `json:"research_type"`
	CompletedAt    *time.Time   `json:"completed_at"`
	ProcessingTime string       `json:"processing_time"`
	WordCount      int          `json:"word_count"`
	Citations      int          `json:"citations"`
	DocumentPath   string       `json:"document_path,omitempty"`
}
