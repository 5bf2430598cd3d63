package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/eshaffer321/invoice-matcher/internal/api/dto"
	"github.com/eshaffer321/invoice-matcher/internal/infrastructure/storage"
)

// RunsHandler handles run history HTTP requests.
type RunsHandler struct {
	*Base
	repo storage.RunRepository
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.RunRepository) *RunsHandler {
	return &RunsHandler{
		Base: &Base{},
		repo: repo,
	}
}

// List handles GET /api/runs - returns processed uploads, newest first.
func (h *RunsHandler) List(c *gin.Context) {
	status := storage.RunStatus(c.Query("status"))
	switch status {
	case "", storage.RunStatusRunning, storage.RunStatusCompleted, storage.RunStatusFailed:
	default:
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid status filter"))
		return
	}

	result, err := h.repo.ListRuns(c.Request.Context(), storage.RunFilters{
		Status: status,
		Limit:  ParseIntParam(c, "limit", 20),
		Offset: ParseIntParam(c, "offset", 0),
	})
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(c, http.StatusOK, dto.RunListResponse{
		Runs: lo.Map(result.Runs, func(run *storage.Run, _ int) dto.RunResponse {
			return toRunResponse(run)
		}),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /api/runs/:id - returns a single run by ID.
func (h *RunsHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return
	}

	run, err := h.repo.GetRun(c.Request.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.WriteError(c, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(c, http.StatusOK, toRunResponse(run))
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run *storage.Run) dto.RunResponse {
	resp := dto.RunResponse{
		ID:           run.ID,
		Filename:     run.Filename,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt.Format(time.RFC3339),
		DurationMs:   run.DurationMs,
		ErrorCode:    run.ErrorCode,
		ErrorMessage: run.ErrorMessage,
		Summary: dto.RunSummaryResponse{
			Invoices:            run.Invoices,
			Payments:            run.Payments,
			MatchedInvoices:     run.MatchedInvoices,
			SingleMatches:       run.SingleMatches,
			CombinationMatches:  run.CombinationMatches,
			FullCoverage:        run.FullCoverage,
			DiscountedCoverage:  run.DiscountedCoverage,
			UnmatchedInvoices:   run.UnmatchedInvoices,
			ConsumedPayments:    run.ConsumedPayments,
			UnmatchedInvoiceIDs: run.UnmatchedInvoiceIDs,
		},
	}
	if resp.Summary.UnmatchedInvoiceIDs == nil {
		resp.Summary.UnmatchedInvoiceIDs = []string{}
	}
	if run.CompletedAt != nil {
		resp.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
