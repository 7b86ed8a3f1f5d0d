package summarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/model"
)

// ErrDisabled is the cause when no completion client is configured.
var ErrDisabled = errors.New("ai summarization disabled")

// ErrMissingSummary is the cause when the reply has no summary field.
var ErrMissingSummary = errors.New("response has no summary field")

// SummarizationError means no usable AI summary was produced. Callers recover
// by substituting Fallback.
type SummarizationError struct {
	Attempts int
	Cause    error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarization failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *SummarizationError) Unwrap() error {
	return e.Cause
}

type Config struct {
	Options
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Summarizer struct {
	client llm.Client
	cfg    Config
}

// New returns a Summarizer. A nil client makes every call fail with ErrDisabled.
func New(client llm.Client, cfg Config) *Summarizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Summarizer{client: client, cfg: cfg}
}

// Summarize asks the completion service for a Summary. Any error is a
// *SummarizationError.
func (s *Summarizer) Summarize(ctx context.Context, rec *model.SubmissionRecord, attachments []model.AttachmentMeta) (model.Summary, error) {
	if s.client == nil {
		return model.Summary{}, &SummarizationError{Cause: ErrDisabled}
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "intake.summarize"})
	req := BuildRequest(rec, attachments, s.cfg.Options)

	var lastErr error
	attempt := 0
	for attempt < s.cfg.MaxAttempts {
		attempt++

		summary, err := s.attempt(ctx, req)
		if err == nil {
			slog.InfoContext(ctx, "summary generated",
				"attempt", attempt,
				"severity", summary.Severity,
				"requires_immediate_attention", summary.RequiresImmediateAttention)
			return summary, nil
		}
		lastErr = err

		if attempt >= s.cfg.MaxAttempts || !llm.IsRetryable(ctx, err) {
			break
		}

		slog.WarnContext(ctx, "summary attempt failed, retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return model.Summary{}, &SummarizationError{Attempts: attempt, Cause: ctx.Err()}
		case <-time.After(s.cfg.RetryDelay * time.Duration(attempt)):
		}
	}

	return model.Summary{}, &SummarizationError{Attempts: attempt, Cause: lastErr}
}

func (s *Summarizer) attempt(ctx context.Context, req llm.Request) (model.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var raw summaryResponse
	resp, err := s.client.Chat(ctx, req, &raw)
	if err != nil {
		if resp != nil {
			slog.DebugContext(ctx, "unparsable summary response", "content", logger.Truncate(resp.Content, 500))
		}
		return model.Summary{}, err
	}

	return raw.toSummary()
}

// toSummary accepts the reply only when summary is present. Other fields are
// defaulted or clipped to their limits.
func (r summaryResponse) toSummary() (model.Summary, error) {
	if r.Summary == nil || strings.TrimSpace(*r.Summary) == "" {
		return model.Summary{}, fmt.Errorf("%w: %w", llm.ErrMalformedResponse, ErrMissingSummary)
	}

	severity := model.Severity(strings.ToLower(strings.TrimSpace(r.Severity)))
	if !severity.Valid() {
		severity = model.SeverityMedium
	}
	complexity := model.Complexity(strings.ToLower(strings.TrimSpace(r.EstimatedComplexity)))
	if !complexity.Valid() {
		complexity = model.ComplexityModerate
	}

	return model.Summary{
		Summary:                    clip(strings.TrimSpace(*r.Summary), model.MaxSummaryLength),
		KeyPoints:                  nonEmpty(r.KeyPoints, model.MaxKeyPoints),
		Severity:                   severity,
		Category:                   strings.TrimSpace(r.Category),
		SuggestedActions:           nonEmpty(r.SuggestedActions, model.MaxSuggestActions),
		Complexity:                 complexity,
		RequiresImmediateAttention: r.RequiresImmediateAttention,
		Notes:                      clip(strings.TrimSpace(r.Notes), model.MaxSummaryNotes),
	}, nil
}

func nonEmpty(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
