package services

import (
	"context"

	"ai-research-platform/internal/models"
)

// BackendRequest is one call into the external research backend
type BackendRequest struct {
	ResearchType models.ResearchType
	Query        string
	Model        string
	MaxCitations int
	EnrichPrompt bool
}

// BackendResponse is the generated text of a research call
type BackendResponse struct {
	Text      string
	Citations int
}

// ResearchBackend performs a single blocking research call
type ResearchBackend interface {
	Research(ctx context.Context, req BackendRequest) (*BackendResponse, error)
}
