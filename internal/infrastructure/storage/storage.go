// Package storage keeps the run history of processed uploads in SQLite.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Storage provides SQLite database access for run history.
// It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// runMigrations applies the embedded goose migrations
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun records the start of a run and returns its id
func (s *Storage) StartRun(ctx context.Context, filename string) (string, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO match_runs (id, filename, status, started_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query, id, filename, RunStatusRunning, s.now()); err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the summary of a successful run
func (s *Storage) CompleteRun(ctx context.Context, runID string, summary matcher.Summary) error {
	query := `
		UPDATE match_runs
		SET status = ?,
		    completed_at = ?,
		    duration_ms = ?,
		    invoices = ?,
		    payments = ?,
		    matched_invoices = ?,
		    single_matches = ?,
		    combination_matches = ?,
		    full_coverage = ?,
		    discounted_coverage = ?,
		    unmatched_invoices = ?,
		    consumed_payments = ?,
		    unmatched_json = ?
		WHERE id = ?
	`

	now, elapsed, err := s.finish(ctx, runID)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query,
		RunStatusCompleted, now, elapsed,
		summary.Invoices,
		summary.Payments,
		summary.MatchedInvoices,
		summary.SingleMatches,
		summary.CombinationMatches,
		summary.FullCoverage,
		summary.DiscountedCoverage,
		summary.UnmatchedInvoices,
		summary.ConsumedPayments,
		encodeIDs(summary.UnmatchedInvoiceIDs),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", runID, err)
	}
	return requireRow(result, runID)
}

// FailRun marks a run as failed with the error that stopped it
func (s *Storage) FailRun(ctx context.Context, runID, code, message string) error {
	query := `
		UPDATE match_runs
		SET status = ?,
		    completed_at = ?,
		    duration_ms = ?,
		    error_code = ?,
		    error_message = ?
		WHERE id = ?
	`

	now, elapsed, err := s.finish(ctx, runID)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, query,
		RunStatusFailed, now, elapsed, code, message, runID)
	if err != nil {
		return fmt.Errorf("failed to fail run %s: %w", runID, err)
	}
	return requireRow(result, runID)
}

// GetRun retrieves a run by id
func (s *Storage) GetRun(ctx context.Context, runID string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM match_runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first
func (s *Storage) ListRuns(ctx context.Context, filters RunFilters) (*RunListResult, error) {
	filters = filters.normalized()

	where := ""
	var args []any
	if filters.Status != "" {
		where = " WHERE status = ?"
		args = append(args, filters.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_runs`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM match_runs` + where +
		` ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &RunListResult{
		Runs:       runs,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

const runColumns = `id, filename, status, started_at, completed_at, duration_ms,
	invoices, payments, matched_invoices, single_matches, combination_matches,
	full_coverage, discounted_coverage, unmatched_invoices, consumed_payments,
	unmatched_json, error_code, error_message`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.Filename,
		&run.Status,
		&run.StartedAt,
		&completedAt,
		&run.DurationMs,
		&run.Invoices,
		&run.Payments,
		&run.MatchedInvoices,
		&run.SingleMatches,
		&run.CombinationMatches,
		&run.FullCoverage,
		&run.DiscountedCoverage,
		&run.UnmatchedInvoices,
		&run.ConsumedPayments,
		&run.UnmatchedJSON,
		&run.ErrorCode,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	run.UnmatchedInvoiceIDs = decodeIDs(run.UnmatchedJSON)
	return run, nil
}

// finish returns the completion time and the run's elapsed milliseconds
func (s *Storage) finish(ctx context.Context, runID string) (time.Time, int64, error) {
	var startedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT started_at FROM match_runs WHERE id = ?`, runID).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, 0, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return time.Time{}, 0, err
	}

	now := s.now()
	elapsed := now.Sub(startedAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return now, elapsed, nil
}

func requireRow(result sql.Result, runID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
