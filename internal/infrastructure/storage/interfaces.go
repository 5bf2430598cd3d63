package storage

import (
	"context"
	"errors"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("run not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations and makes testing with
// mocks straightforward.
type Repository interface {
	RunRepository
	Close() error
}

// RunRepository records the history of processed uploads
type RunRepository interface {
	// StartRun records the start of a run and returns its id
	StartRun(ctx context.Context, filename string) (string, error)

	// CompleteRun stores the summary of a successful run
	CompleteRun(ctx context.Context, runID string, summary matcher.Summary) error

	// FailRun marks a run as failed with the error that stopped it
	FailRun(ctx context.Context, runID, code, message string) error

	// GetRun retrieves a run by id, or ErrRunNotFound
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns runs newest first
	ListRuns(ctx context.Context, filters RunFilters) (*RunListResult, error)
}

// RunFilters defines filters for listing runs
type RunFilters struct {
	Status RunStatus // Filter by status (empty = all)
	Limit  int       // Max results (0 = default 50)
	Offset int       // Pagination offset
}

// RunListResult contains paginated run results
type RunListResult struct {
	Runs       []*Run `json:"runs"`
	TotalCount int    `json:"total_count"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f RunFilters) normalized() RunFilters {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
