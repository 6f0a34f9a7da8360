package services

import (
	"errors"
	"fmt"
	"strings"

	"ai-research-platform/internal/models"
)

var (
	// ErrTaskNotFound is returned when no task exists for an id
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotReady is returned when a result is requested before the task is terminal
	ErrNotReady = errors.New("task has not finished")
	// ErrInvalidTransition is returned when a status change would move backward or out of a terminal state
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// ValidationError rejects a request before any research phase runs
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PhaseError records the failure cause of one phase
type PhaseError struct {
	ResearchType models.ResearchType
	Message      string
}

// TaskFailure is a terminal task failure carrying every phase cause
type TaskFailure struct {
	Causes []PhaseError
}

func (e *TaskFailure) Error() string {
	if len(e.Causes) == 1 {
		return fmt.Sprintf("%s research failed: %s", e.Causes[0].ResearchType, e.Causes[0].Message)
	}
	parts := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		parts = append(parts, fmt.Sprintf("%s: %s", c.ResearchType, c.Message))
	}
	return "all research phases failed: " + strings.Join(parts, "; ")
}
