package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"basegraph.app/intake/internal/http/dto"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/service"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

const defaultSource = "form"

type SubmissionHandler struct {
	service     service.SubmissionIngestService
	traceHeader string
	now         func() time.Time
}

func NewSubmissionHandler(service service.SubmissionIngestService, traceHeader string) *SubmissionHandler {
	return &SubmissionHandler{
		service:     service,
		traceHeader: traceHeader,
		now:         time.Now,
	}
}

// Submit accepts a form-submit event and queues it for the pipeline. The
// response only acknowledges intake; the run itself happens in the worker.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid submission request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event := model.FormEvent{
		Answers:  req.Answers,
		Source:   req.Source,
		RowIndex: req.RowIndex,
	}
	if event.Source == "" {
		event.Source = defaultSource
	}
	if req.SubmittedAt != nil {
		event.SubmittedAt = req.SubmittedAt.UTC()
	} else {
		event.SubmittedAt = h.now().UTC()
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	result, err := h.service.Ingest(ctx, service.SubmissionIngestParams{
		Event:   event,
		TraceID: traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmptySubmission) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest submission", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest submission"})
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitResponse{
		SubmissionID: strconv.FormatInt(result.SubmissionID, 10),
		MessageID:    result.MessageID,
		Enqueued:     result.Enqueued,
		Duplicated:   result.Duplicated,
	})
}
