package services

import (
	"context"
	"sync"

	"ai-research-platform/internal/models"
)

type backendFunc func(ctx context.Context, req BackendRequest) (*BackendResponse, error)

// fakeBackend records every call and delegates to fn
type fakeBackend struct {
	mu    sync.Mutex
	calls []BackendRequest
	fn    backendFunc
}

func newFakeBackend(fn backendFunc) *fakeBackend {
	return &fakeBackend{fn: fn}
}

func (f *fakeBackend) Research(ctx context.Context, req BackendRequest) (*BackendResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(ctx, req)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) requests() []BackendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BackendRequest(nil), f.calls...)
}

// respond returns a backend that answers every phase with citations[type]
// links, failing the phases listed in failures
func respond(citations map[models.ResearchType]int, failures map[models.ResearchType]error) backendFunc {
	return func(_ context.Context, req BackendRequest) (*BackendResponse, error) {
		if err, ok := failures[req.ResearchType]; ok {
			return nil, err
		}
		return &BackendResponse{
			Text:      "Findings for " + string(req.ResearchType) + " research.",
			Citations: citations[req.ResearchType],
		}, nil
	}
}

// progressRecorder collects progress messages
type progressRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (p *progressRecorder) SetProgress(_, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}

func (p *progressRecorder) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}

// memoryMirror is an in-memory ProgressMirror
type memoryMirror struct {
	mu        sync.Mutex
	snapshots map[string]models.ResearchTask
	saves     int
}

func newMemoryMirror() *memoryMirror {
	return &memoryMirror{snapshots: make(map[string]models.ResearchTask)}
}

func (m *memoryMirror) SaveSnapshot(_ context.Context, task *models.ResearchTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[task.TaskID] = *task
	m.saves++
	return nil
}

func (m *memoryMirror) GetSnapshot(_ context.Context, taskID string) (*models.ResearchTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.snapshots[taskID]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (m *memoryMirror) DeleteSnapshot(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, taskID)
	return nil
}
