// Package service wires ingestion, matching, export and run history into the
// single operation the transports call.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/eshaffer321/invoice-matcher/internal/domain/matcher"
	"github.com/eshaffer321/invoice-matcher/internal/export"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
	"github.com/eshaffer321/invoice-matcher/internal/ingest"
)

// Error codes shared by run history and the HTTP error body
const (
	CodeBadRequest      = "bad_request"
	CodeValidationError = "validation_error"
	CodeInternalError   = "internal_error"
)

// ErrTooManyPayments is matched by TooManyPaymentsError
var ErrTooManyPayments = errors.New("too many payments for one customer")

// TooManyPaymentsError rejects uploads whose combination search would be too
// expensive. The search space grows with C(n, 5) per customer.
type TooManyPaymentsError struct {
	Customer string
	Count    int
	Limit    int
}

func (e *TooManyPaymentsError) Error() string {
	return fmt.Sprintf("customer %q has %d payments, the limit is %d", e.Customer, e.Count, e.Limit)
}

func (e *TooManyPaymentsError) Unwrap() error {
	return ErrTooManyPayments
}

// Options tune the service
type Options struct {
	// MaxPaymentsPerCustomer rejects uploads above this size. 0 disables it.
	MaxPaymentsPerCustomer int
}

// Outcome is the result of one processed upload
type Outcome struct {
	RunID    string // Empty when run history is disabled or failed to record
	Filename string
	Result   *matcher.Result
	Workbook []byte
}

// ReconcileService runs one upload through ingestion, matching and export.
// It is safe for concurrent use; every call builds its own pool.
type ReconcileService struct {
	matcher *matcher.Matcher
	storage storage.Repository
	logger  *slog.Logger
	opts    Options
}

// NewReconcileService creates a new service. store may be nil to disable run
// history; logger may be nil to discard logs.
func NewReconcileService(m *matcher.Matcher, store storage.Repository, logger *slog.Logger, opts Options) *ReconcileService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReconcileService{
		matcher: m,
		storage: store,
		logger:  logger,
		opts:    opts,
	}
}

// Process reads the spreadsheet in r, matches it and renders the result
// workbook. Errors from ingestion and the payment guard are client errors;
// see ErrorCode.
func (s *ReconcileService) Process(ctx context.Context, filename string, r io.Reader) (*Outcome, error) {
	start := time.Now()
	runID := s.startRun(ctx, filename)
	logger := s.logger.With(slog.String("file", filename))
	if runID != "" {
		logger = logger.With(slog.String("run_id", runID))
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("processing panicked", slog.Any("panic", p))
			s.failRun(ctx, runID, CodeInternalError, fmt.Sprintf("panic: %v", p))
			panic(p)
		}
	}()

	outcome, err := s.process(ctx, filename, r)
	if err != nil {
		code := ErrorCode(err)
		if code == CodeInternalError {
			logger.Error("processing failed", slog.Any("error", err))
		} else {
			logger.Warn("upload rejected", slog.String("code", code), slog.Any("error", err))
		}
		s.failRun(ctx, runID, code, err.Error())
		return nil, err
	}

	outcome.RunID = runID
	s.completeRun(ctx, runID, outcome.Result.Summary)

	summary := outcome.Result.Summary
	logger.Info("processing complete",
		slog.Int("invoices", summary.Invoices),
		slog.Int("payments", summary.Payments),
		slog.Int("matched", summary.MatchedInvoices),
		slog.Int("unmatched", summary.UnmatchedInvoices),
		slog.Int("rows", len(outcome.Result.Matches)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return outcome, nil
}

func (s *ReconcileService) process(ctx context.Context, filename string, r io.Reader) (*Outcome, error) {
	records, err := ingest.Read(r, filename)
	if err != nil {
		return nil, err
	}

	part, err := matcher.PartitionRecords(records)
	if err != nil {
		return nil, err
	}
	if err := s.checkPaymentLimit(part); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := s.matcher.Match(part)

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, result.Matches); err != nil {
		return nil, fmt.Errorf("failed to write result workbook: %w", err)
	}

	return &Outcome{
		Filename: filename,
		Result:   result,
		Workbook: buf.Bytes(),
	}, nil
}

// checkPaymentLimit reports the largest customer above the limit
func (s *ReconcileService) checkPaymentLimit(part *matcher.Partition) error {
	limit := s.opts.MaxPaymentsPerCustomer
	if limit <= 0 {
		return nil
	}

	counts := lo.CountValuesBy(part.Payments, func(p matcher.Payment) string {
		return p.Customer
	})
	over := lo.PickBy(counts, func(_ string, n int) bool {
		return n > limit
	})
	if len(over) == 0 {
		return nil
	}

	customers := lo.Keys(over)
	sort.Slice(customers, func(i, j int) bool {
		if over[customers[i]] != over[customers[j]] {
			return over[customers[i]] > over[customers[j]]
		}
		return customers[i] < customers[j]
	})
	worst := customers[0]
	return &TooManyPaymentsError{Customer: worst, Count: over[worst], Limit: limit}
}

// History returns the run repository, or nil when run history is disabled
func (s *ReconcileService) History() storage.Repository {
	return s.storage
}

func (s *ReconcileService) startRun(ctx context.Context, filename string) string {
	if s.storage == nil {
		return ""
	}
	id, err := s.storage.StartRun(ctx, filename)
	if err != nil {
		s.logger.Warn("failed to record run start", slog.String("file", filename), slog.Any("error", err))
		return ""
	}
	return id
}

func (s *ReconcileService) completeRun(ctx context.Context, runID string, summary matcher.Summary) {
	if s.storage == nil || runID == "" {
		return
	}
	if err := s.storage.CompleteRun(context.WithoutCancel(ctx), runID, summary); err != nil {
		s.logger.Warn("failed to record run completion", slog.String("run_id", runID), slog.Any("error", err))
	}
}

func (s *ReconcileService) failRun(ctx context.Context, runID, code, message string) {
	if s.storage == nil || runID == "" {
		return
	}
	if err := s.storage.FailRun(context.WithoutCancel(ctx), runID, code, message); err != nil {
		s.logger.Warn("failed to record run failure", slog.String("run_id", runID), slog.Any("error", err))
	}
}

// ErrorCode classifies an error returned by Process
func ErrorCode(err error) string {
	var schemaErr *ingest.SchemaError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &schemaErr), errors.Is(err, ErrTooManyPayments):
		return CodeValidationError
	case errors.Is(err, ingest.ErrEmptyInput), errors.Is(err, ingest.ErrUnsupportedFormat):
		return CodeBadRequest
	default:
		return CodeInternalError
	}
}

// IsClientError reports whether err was caused by the upload itself
func IsClientError(err error) bool {
	code := ErrorCode(err)
	return code == CodeBadRequest || code == CodeValidationError
}
