package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/labstack/gommon/bytes"

	"github.com/eshaffer321/invoice-matcher/internal/api/dto"
	"github.com/eshaffer321/invoice-matcher/internal/application/service"
	"github.com/eshaffer321/invoice-matcher/internal/export"
	"github.com/eshaffer321/invoice-matcher/internal/ingest"
)

// FileField is the multipart field carrying the upload
const FileField = "file"

// RunIDHeader carries the run history id of a processed upload
const RunIDHeader = "X-Run-ID"

// Processor is the part of the reconcile service the handler needs
type Processor interface {
	Process(ctx context.Context, filename string, r io.Reader) (*service.Outcome, error)
}

// ProcessHandler handles spreadsheet uploads.
type ProcessHandler struct {
	*Base
	processor   Processor
	uploadLimit int64
}

// NewProcessHandler creates a new process handler. uploadLimit <= 0 disables
// the size check.
func NewProcessHandler(processor Processor, uploadLimit int64) *ProcessHandler {
	return &ProcessHandler{
		Base:        &Base{},
		processor:   processor,
		uploadLimit: uploadLimit,
	}
}

// Process handles POST /process - returns the matched workbook as an attachment.
func (h *ProcessHandler) Process(c *gin.Context) {
	if h.uploadLimit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadLimit)
	}

	header, err := c.FormFile(FileField)
	if err != nil {
		if isTooLarge(err) {
			h.WriteError(c, http.StatusRequestEntityTooLarge, dto.PayloadTooLargeError(bytes.Format(h.uploadLimit)))
			return
		}
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("no file part in the request"))
		return
	}
	if header.Filename == "" {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError("no file selected"))
		return
	}
	if !ingest.IsSupported(header.Filename) {
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError(ingest.ErrUnsupportedFormat.Error()))
		return
	}

	file, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
		return
	}
	defer func() { _ = file.Close() }()

	outcome, err := h.processor.Process(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.writeProcessError(c, err)
		return
	}

	if outcome.RunID != "" {
		c.Header(RunIDHeader, outcome.RunID)
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	c.Data(http.StatusOK, export.ContentType, outcome.Workbook)
}

// writeProcessError maps service errors onto API errors. Only client errors
// echo their message.
func (h *ProcessHandler) writeProcessError(c *gin.Context, err error) {
	switch service.ErrorCode(err) {
	case service.CodeValidationError:
		var schemaErr *ingest.SchemaError
		if errors.As(err, &schemaErr) {
			h.WriteError(c, http.StatusBadRequest, dto.MissingColumnsError(schemaErr.Missing, schemaErr.Found))
			return
		}
		h.WriteError(c, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case service.CodeBadRequest:
		h.WriteError(c, http.StatusBadRequest, dto.BadRequestError(err.Error()))
	default:
		_ = c.Error(err)
		h.WriteError(c, http.StatusInternalServerError, dto.InternalError())
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
