package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/store"
)

type SubmissionIngestParams struct {
	Event   model.FormEvent
	TraceID string
}

type SubmissionIngestResult struct {
	SubmissionID int64
	MessageID    string
	DedupeKey    string
	Enqueued     bool
	Duplicated   bool
}

type SubmissionIngestService interface {
	Ingest(ctx context.Context, params SubmissionIngestParams) (*SubmissionIngestResult, error)
}

var ErrEmptySubmission = errors.New("submission has no answers")

type submissionIngestService struct {
	dedupe store.DedupeStore
	queue  queue.Producer
	logger *slog.Logger
}

// NewSubmissionIngestService returns the intake service. A nil dedupe store
// disables duplicate detection.
func NewSubmissionIngestService(dedupe store.DedupeStore, queue queue.Producer, logger *slog.Logger) SubmissionIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &submissionIngestService{
		dedupe: dedupe,
		queue:  queue,
		logger: logger,
	}
}

func (s *submissionIngestService) Ingest(ctx context.Context, params SubmissionIngestParams) (*SubmissionIngestResult, error) {
	event := params.Event
	if len(event.Answers) == 0 {
		return nil, ErrEmptySubmission
	}

	event.SubmissionID = id.New()
	result := &SubmissionIngestResult{
		SubmissionID: event.SubmissionID,
		DedupeKey:    store.SubmissionKey(event.Source, event.RowIndex),
	}

	if s.dedupe != nil && result.DedupeKey != "" {
		first, err := s.dedupe.Claim(ctx, result.DedupeKey, event.SubmissionID)
		if err != nil {
			return nil, fmt.Errorf("checking duplicate submission: %w", err)
		}
		if !first {
			s.logger.InfoContext(ctx, "duplicate submission deduped", "dedupe_key", result.DedupeKey)
			result.Duplicated = true
			return result, nil
		}
	}

	messageID, err := s.queue.Enqueue(ctx, queue.SubmissionMessage{Event: event, TraceID: params.TraceID})
	if err != nil {
		if s.dedupe != nil && result.DedupeKey != "" {
			if relErr := s.dedupe.Release(ctx, result.DedupeKey); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release dedupe key", "error", relErr, "dedupe_key", result.DedupeKey)
			}
		}
		return nil, fmt.Errorf("enqueueing submission: %w", err)
	}

	result.MessageID = messageID
	result.Enqueued = true
	return result, nil
}
