package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ai-research-platform/internal/metrics"
	"ai-research-platform/internal/models"

	"go.uber.org/zap"
)

// ProgressReporter receives human-readable progress for a running task
type ProgressReporter interface {
	SetProgress(taskID, message string) error
}

// ProgressMirror publishes task snapshots to a shared store so other
// processes can answer status polls
type ProgressMirror interface {
	SaveSnapshot(ctx context.Context, task *models.ResearchTask) error
	GetSnapshot(ctx context.Context, taskID string) (*models.ResearchTask, error)
	DeleteSnapshot(ctx context.Context, taskID string) error
}

// TransitionFunc observes every accepted status change. It runs while the
// registry lock is held and must not call back into the registry.
type TransitionFunc func(taskID string, from, to models.TaskStatus)

// PhaseRecorder receives each phase result of a comprehensive run as it resolves
type PhaseRecorder interface {
	RecordPhase(taskID string, result models.PhaseResult) error
}

// TaskEntry is a registry record: the task snapshot plus the in-memory result
type TaskEntry struct {
	Task     models.ResearchTask
	Document string
	Metrics  *models.MergeMetrics
	// Phases holds resolved phases in completion order
	Phases []models.PhaseResult

	unmirrored bool
}

// TaskRegistry tracks in-flight research tasks
type TaskRegistry struct {
	tasks        map[string]*TaskEntry
	mutex        sync.RWMutex
	mirror       ProgressMirror
	onTransition TransitionFunc
	logger       *zap.Logger
}

// RegistryOption configures a TaskRegistry
type RegistryOption func(*TaskRegistry)

// WithProgressMirror publishes every change to mirror
func WithProgressMirror(mirror ProgressMirror) RegistryOption {
	return func(r *TaskRegistry) { r.mirror = mirror }
}

// WithTransitionHook calls fn after every accepted status change
func WithTransitionHook(fn TransitionFunc) RegistryOption {
	return func(r *TaskRegistry) { r.onTransition = fn }
}

// NewTaskRegistry creates an empty task registry
func NewTaskRegistry(logger *zap.Logger, opts ...RegistryOption) *TaskRegistry {
	r := &TaskRegistry{
		tasks:  make(map[string]*TaskEntry),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a new pending task
func (r *TaskRegistry) Create(task models.ResearchTask) error {
	r.mutex.Lock()
	if _, exists := r.tasks[task.TaskID]; exists {
		r.mutex.Unlock()
		return fmt.Errorf("task already registered: %s", task.TaskID)
	}
	task.Status = models.TaskStatusPending
	r.tasks[task.TaskID] = &TaskEntry{Task: task}
	r.mutex.Unlock()

	metrics.ActiveTasks.Inc()
	r.publish(task)
	return nil
}

// Get returns a copy of a task entry
func (r *TaskRegistry) Get(taskID string) (*TaskEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entry, exists := r.tasks[taskID]
	if !exists {
		return nil, ErrTaskNotFound
	}

	cp := *entry
	cp.Phases = append([]models.PhaseResult(nil), entry.Phases...)
	return &cp, nil
}

// RecordPhase appends a resolved phase to a running task
func (r *TaskRegistry) RecordPhase(taskID string, result models.PhaseResult) error {
	return r.update(taskID, func(e *TaskEntry) error {
		if e.Task.Status.IsTerminal() {
			return fmt.Errorf("%w: task %s is %s", ErrInvalidTransition, taskID, e.Task.Status)
		}
		e.Phases = append(e.Phases, result)
		return nil
	})
}

// StopMirroring stops publishing snapshots of a task to the progress mirror
func (r *TaskRegistry) StopMirroring(taskID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if entry, exists := r.tasks[taskID]; exists {
		entry.unmirrored = true
	}
}

// SetProgress updates the progress message of a task
func (r *TaskRegistry) SetProgress(taskID, message string) error {
	return r.update(taskID, func(e *TaskEntry) error {
		e.Task.Progress = message
		return nil
	})
}

// Transition moves a task to status, rejecting backward or repeated moves
func (r *TaskRegistry) Transition(taskID string, status models.TaskStatus, progress string) error {
	return r.transition(taskID, status, progress, nil)
}

// Complete marks a running task completed and stores its document
func (r *TaskRegistry) Complete(taskID, document string, m models.MergeMetrics, progress string) error {
	return r.transition(taskID, models.TaskStatusCompleted, progress, func(e *TaskEntry) {
		e.Document = document
		e.Metrics = &m
	})
}

// Fail marks a task failed with an error message
func (r *TaskRegistry) Fail(taskID string, cause error, progress string) error {
	return r.transition(taskID, models.TaskStatusFailed, progress, func(e *TaskEntry) {
		e.Task.ErrorMessage = cause.Error()
	})
}

func (r *TaskRegistry) transition(taskID string, status models.TaskStatus, progress string, mutate func(*TaskEntry)) error {
	var from models.TaskStatus
	err := r.update(taskID, func(e *TaskEntry) error {
		from = e.Task.Status
		if !from.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, status)
		}
		applyStatus(&e.Task, status, time.Now())
		if progress != "" {
			e.Task.Progress = progress
		}
		if mutate != nil {
			mutate(e)
		}
		// Called under the lock so hooks observe transitions in commit order
		if r.onTransition != nil {
			r.onTransition(taskID, from, status)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if status.IsTerminal() {
		metrics.ActiveTasks.Dec()
	}
	return nil
}

// Evict removes a task from memory once it is persisted
func (r *TaskRegistry) Evict(taskID string) {
	r.mutex.Lock()
	entry, exists := r.tasks[taskID]
	delete(r.tasks, taskID)
	r.mutex.Unlock()

	if exists && !entry.Task.Status.IsTerminal() {
		metrics.ActiveTasks.Dec()
	}
}

// ActiveCount returns the number of pending or running tasks
func (r *TaskRegistry) ActiveCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	count := 0
	for _, e := range r.tasks {
		if !e.Task.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// Mirror returns the configured progress mirror, if any
func (r *TaskRegistry) Mirror() ProgressMirror {
	return r.mirror
}

func (r *TaskRegistry) update(taskID string, fn func(*TaskEntry) error) error {
	r.mutex.Lock()
	entry, exists := r.tasks[taskID]
	if !exists {
		r.mutex.Unlock()
		return ErrTaskNotFound
	}
	if err := fn(entry); err != nil {
		r.mutex.Unlock()
		return err
	}
	snapshot := entry.Task
	mirrored := !entry.unmirrored
	r.mutex.Unlock()

	if mirrored {
		r.publish(snapshot)
	}
	return nil
}

func (r *TaskRegistry) publish(task models.ResearchTask) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.mirror.SaveSnapshot(ctx, &task); err != nil {
		r.logger.Warn("failed to mirror task progress", zap.String("task_id", task.TaskID), zap.Error(err))
	}
}

// applyStatus sets status and the matching lifecycle timestamp
func applyStatus(task *models.ResearchTask, status models.TaskStatus, now time.Time) {
	task.Status = status
	switch {
	case status == models.TaskStatusRunning && task.StartedAt == nil:
		task.StartedAt = &now
	case status.IsTerminal() && task.CompletedAt == nil:
		task.CompletedAt = &now
	}
}
