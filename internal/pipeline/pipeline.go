package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/alert"
	"basegraph.app/intake/internal/attachment"
	"basegraph.app/intake/internal/issuetracker"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/notify"
	"basegraph.app/intake/internal/summarize"
	"basegraph.app/intake/internal/validate"
)

type Mapper interface {
	Map(event model.FormEvent) *model.SubmissionRecord
	UnknownLabels(event model.FormEvent) []string
}

type Validator interface {
	Validate(rec *model.SubmissionRecord) error
}

type Normalizer interface {
	Normalize(rec *model.SubmissionRecord)
}

type AttachmentResolver interface {
	Resolve(ctx context.Context, refs []string) attachment.Result
}

type Summarizer interface {
	Summarize(ctx context.Context, rec *model.SubmissionRecord, attachments []model.AttachmentMeta) (model.Summary, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notify.PayloadInput) error
}

type Config struct {
	AlertRecipient string
	RunTimeout     time.Duration
	AlertTimeout   time.Duration
}

// Deps are the stages. Attachments may be nil when no file store is configured,
// Issues may be nil when no issue system is configured.
type Deps struct {
	Mapper      Mapper
	Validator   Validator
	Normalizer  Normalizer
	Attachments AttachmentResolver
	Summarizer  Summarizer
	Issues      issuetracker.Filer
	Notifier    Notifier
	Alerts      alert.Sender
}

type Result struct {
	Record           *model.SubmissionRecord
	Summary          model.Summary
	AttachmentErrors []string
	UsedFallback     bool
	IssueURL         string
	Notified         bool
}

type Pipeline struct {
	deps Deps
	cfg  Config
}

func New(cfg Config, deps Deps) *Pipeline {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 2 * time.Minute
	}
	if cfg.AlertTimeout <= 0 {
		cfg.AlertTimeout = 15 * time.Second
	}
	if deps.Issues == nil {
		deps.Issues = issuetracker.Disabled{}
	}
	if deps.Alerts == nil {
		deps.Alerts = alert.LogSender{}
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Run processes one submission to completion or failure. Errors are
// *validate.Errors, *DeliveryError or *UnexpectedError. The operator is
// alerted for the last two before Run returns.
func (p *Pipeline) Run(ctx context.Context, event model.FormEvent) (res *Result, err error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(event.SubmissionID),
		Source:       logger.Ptr(event.Source),
		RowIndex:     logger.Ptr(event.RowIndex),
		Component:    "intake.pipeline",
	})

	runCtx, cancel := context.WithTimeout(ctx, p.cfg.RunTimeout)
	defer cancel()

	span := logger.StartSpan(runCtx, "pipeline.run")
	defer span.End()
	runCtx = span.Context()

	start := time.Now()
	st := &runState{}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &UnexpectedError{Stage: st.stage, Cause: fmt.Errorf("panic: %v", r), Stack: debug.Stack()}
		}
		if err == nil {
			slog.InfoContext(st.ctx(runCtx), "submission processed",
				"duration_ms", time.Since(start).Milliseconds(),
				"used_fallback", res.UsedFallback,
				"attachment_errors", len(res.AttachmentErrors))
			return
		}

		span.RecordError(err)

		var verr *validate.Errors
		if errors.As(err, &verr) {
			return
		}

		var unexpected *UnexpectedError
		if errors.As(err, &unexpected) {
			slog.ErrorContext(st.ctx(runCtx), "submission failed unexpectedly",
				"stage", unexpected.Stage,
				"error", unexpected.Cause,
				"stack", string(unexpected.Stack))
		} else {
			slog.ErrorContext(st.ctx(runCtx), "submission delivery failed", "error", err)
		}
		p.sendAlert(st.ctx(ctx), st.record, err)
	}()

	return p.run(runCtx, event, st)
}

// runState is what the deferred handler in Run needs to see after a panic.
type runState struct {
	stage  string
	record *model.SubmissionRecord
	logCtx context.Context
}

func (s *runState) ctx(fallback context.Context) context.Context {
	if s.logCtx != nil {
		return s.logCtx
	}
	return fallback
}

func (p *Pipeline) run(ctx context.Context, event model.FormEvent, st *runState) (*Result, error) {
	st.stage = "map"
	rec := p.deps.Mapper.Map(event)
	st.record = rec
	if unknown := p.deps.Mapper.UnknownLabels(event); len(unknown) > 0 {
		slog.DebugContext(ctx, "ignoring unknown form labels", "labels", unknown)
	}

	st.stage = "validate"
	if err := p.deps.Validator.Validate(rec); err != nil {
		var verr *validate.Errors
		if errors.As(err, &verr) {
			slog.WarnContext(ctx, "submission rejected", "errors", verr.Messages)
			return nil, err
		}
		return nil, &UnexpectedError{Stage: st.stage, Cause: err}
	}

	st.stage = "normalize"
	p.deps.Normalizer.Normalize(rec)
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(rec.TicketID)})
	st.logCtx = ctx

	res := &Result{Record: rec}

	st.stage = "attachments"
	res.AttachmentErrors = p.resolveAttachments(ctx, rec)

	st.stage = "summarize"
	res.Summary, res.UsedFallback = p.summarize(ctx, rec)

	st.stage = "issue"
	res.IssueURL = p.fileIssue(ctx, rec, res.Summary)

	st.stage = "notify"
	if err := p.notify(ctx, res); err != nil {
		var delivery *notify.DeliveryError
		if errors.As(err, &delivery) {
			return res, &DeliveryError{Cause: err}
		}
		return res, &UnexpectedError{Stage: st.stage, Cause: err}
	}
	res.Notified = true

	return res, nil
}

func (p *Pipeline) resolveAttachments(ctx context.Context, rec *model.SubmissionRecord) []string {
	if len(rec.FileRefs) == 0 {
		return nil
	}

	span := logger.StartSpan(ctx, "pipeline.attachments")
	defer span.End()

	if p.deps.Attachments == nil {
		errs := make([]string, len(rec.FileRefs))
		for i, ref := range rec.FileRefs {
			errs[i] = fmt.Sprintf("%s: file storage is not configured", ref)
		}
		slog.WarnContext(ctx, "attachments skipped, no file store configured", "count", len(errs))
		return errs
	}

	result := p.deps.Attachments.Resolve(span.Context(), rec.FileRefs)
	rec.Attachments = result.Accepted

	span.SetAttributes(
		attribute.Int("attachments.accepted", len(result.Accepted)),
		attribute.Int("attachments.rejected", len(result.Errors)),
		attribute.Int64("attachments.total_bytes", result.TotalBytes),
	)
	return result.Errors
}

func (p *Pipeline) summarize(ctx context.Context, rec *model.SubmissionRecord) (model.Summary, bool) {
	span := logger.StartSpan(ctx, "pipeline.summarize")
	defer span.End()

	summary, err := p.deps.Summarizer.Summarize(span.Context(), rec, rec.Attachments)
	if err != nil {
		slog.WarnContext(ctx, "ai summary unavailable, using fallback", "error", err)
		span.SetAttributes(attribute.Bool("summary.fallback", true))
		return summarize.Fallback(rec), true
	}

	span.SetAttributes(attribute.String("summary.severity", string(summary.Severity)))
	return summary, false
}

// fileIssue never fails the run. An empty URL means nothing was filed.
func (p *Pipeline) fileIssue(ctx context.Context, rec *model.SubmissionRecord, summary model.Summary) string {
	span := logger.StartSpan(ctx, "pipeline.issue")
	defer span.End()

	issue, err := p.deps.Issues.File(span.Context(), rec, summary)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "issue filing failed, continuing", "error", err)
		return ""
	}
	if issue == nil {
		return ""
	}
	return issue.URL
}

func (p *Pipeline) notify(ctx context.Context, res *Result) error {
	span := logger.StartSpan(ctx, "pipeline.notify")
	defer span.End()

	err := p.deps.Notifier.Notify(span.Context(), notify.PayloadInput{
		Record:           res.Record,
		Summary:          res.Summary,
		AttachmentErrors: res.AttachmentErrors,
		IssueURL:         res.IssueURL,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Bool("notify.urgent", notify.IsUrgent(res.Summary)))
	return nil
}

// sendAlert runs on its own deadline so an expired run still reaches the operator.
func (p *Pipeline) sendAlert(ctx context.Context, rec *model.SubmissionRecord, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.AlertTimeout)
	defer cancel()

	a := alert.Build(p.cfg.AlertRecipient, rec, cause)
	if err := p.deps.Alerts.Send(ctx, a); err != nil {
		slog.ErrorContext(ctx, "operator alert failed", "error", err, "cause", cause)
	}
}
