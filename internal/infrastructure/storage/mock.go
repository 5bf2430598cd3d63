package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps, making tests fast and isolated.
type MockRepository struct {
	mu    sync.Mutex
	runs  map[string]*Run
	order []string

	// Hooks for test assertions
	StartRunCalled    bool
	CompleteRunCalled bool
	FailRunCalled     bool
	LastFailCode      string

	// Error injection for testing error paths
	StartRunErr    error
	CompleteRunErr error
	FailRunErr     error
	GetRunErr      error
	ListRunsErr    error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs: make(map[string]*Run),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// StartRun stores a running run
func (m *MockRepository) StartRun(_ context.Context, filename string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartRunCalled = true
	if m.StartRunErr != nil {
		return "", m.StartRunErr
	}

	id := uuid.NewString()
	m.runs[id] = &Run{
		ID:        id,
		Filename:  filename,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	m.order = append(m.order, id)
	return id, nil
}

// CompleteRun applies the summary to the stored run
func (m *MockRepository) CompleteRun(_ context.Context, runID string, summary matcher.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalled = true
	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	now := time.Now().UTC()
	run.Status = RunStatusCompleted
	run.CompletedAt = &now
	run.applySummary(summary)
	return nil
}

// FailRun marks the stored run as failed
func (m *MockRepository) FailRun(_ context.Context, runID, code, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailRunCalled = true
	m.LastFailCode = code
	if m.FailRunErr != nil {
		return m.FailRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	now := time.Now().UTC()
	run.Status = RunStatusFailed
	run.CompletedAt = &now
	run.ErrorCode = code
	run.ErrorMessage = message
	return nil
}

// GetRun returns a copy of the stored run
func (m *MockRepository) GetRun(_ context.Context, runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns stored runs newest first
func (m *MockRepository) ListRuns(_ context.Context, filters RunFilters) (*RunListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}
	filters = filters.normalized()

	matched := make([]*Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		run := m.runs[m.order[i]]
		if filters.Status != "" && run.Status != filters.Status {
			continue
		}
		copied := *run
		matched = append(matched, &copied)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	total := len(matched)
	start := min(filters.Offset, total)
	end := min(start+filters.Limit, total)

	return &RunListResult{
		Runs:       matched[start:end],
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}
