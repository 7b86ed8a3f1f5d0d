package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/common/id"
	"basegraph.app/intake/internal/alert"
	"basegraph.app/intake/internal/attachment"
	"basegraph.app/intake/internal/issuetracker"
	"basegraph.app/intake/internal/mapper"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/normalize"
	"basegraph.app/intake/internal/notify"
	"basegraph.app/intake/internal/pipeline"
	"basegraph.app/intake/internal/summarize"
	"basegraph.app/intake/internal/validate"
)

type fakeResolver struct {
	calls  int
	result attachment.Result
}

func (f *fakeResolver) Resolve(_ context.Context, refs []string) attachment.Result {
	f.calls++
	return f.result
}

type fakeSummarizer struct {
	calls   int
	summary model.Summary
	err     error
	panics  bool
}

func (f *fakeSummarizer) Summarize(context.Context, *model.SubmissionRecord, []model.AttachmentMeta) (model.Summary, error) {
	f.calls++
	if f.panics {
		panic("summarizer exploded")
	}
	return f.summary, f.err
}

type fakeNotifier struct {
	calls int
	last  notify.PayloadInput
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, in notify.PayloadInput) error {
	f.calls++
	f.last = in
	return f.err
}

type fakeFiler struct {
	calls int
	issue *issuetracker.Issue
	err   error
}

func (f *fakeFiler) File(context.Context, *model.SubmissionRecord, model.Summary) (*issuetracker.Issue, error) {
	f.calls++
	return f.issue, f.err
}

type fakeAlerts struct {
	sent []alert.Alert
}

func (f *fakeAlerts) Send(_ context.Context, a alert.Alert) error {
	f.sent = append(f.sent, a)
	return nil
}

func validEvent() model.FormEvent {
	return model.FormEvent{
		SubmissionID: 1001,
		SubmittedAt:  time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Source:       "customer-form",
		RowIndex:     12,
		Answers: map[string]model.AnswerValue{
			"姓名":     {"王小明"},
			"電子郵件":   {"Ming@Example.com "},
			"偏好聯絡方式": {"📧 Email"},
			"回報類型":   {"🐛 Bug 回報"},
			"優先程度":   {"🔥 緊急 (影響營運)"},
			"影響範圍":   {"🌐 影響全公司"},
			"問題標題":   {"Cannot log in"},
			"問題描述":   {"Error after password reset"},
		},
	}
}

var _ = Describe("Pipeline", func() {
	var (
		ctx        context.Context
		resolver   *fakeResolver
		summarizer *fakeSummarizer
		notifier   *fakeNotifier
		filer      *fakeFiler
		alerts     *fakeAlerts
		deps       pipeline.Deps
	)

	BeforeEach(func() {
		ctx = context.Background()
		resolver = &fakeResolver{}
		summarizer = &fakeSummarizer{err: &summarize.SummarizationError{Attempts: 1, Cause: errors.New("no summary field")}}
		notifier = &fakeNotifier{}
		filer = &fakeFiler{}
		alerts = &fakeAlerts{}
		deps = pipeline.Deps{
			Mapper:      mapper.NewFormMapper(),
			Validator:   validate.New(100),
			Normalizer:  normalize.New(id.NewTicketGenerator()),
			Attachments: resolver,
			Summarizer:  summarizer,
			Issues:      filer,
			Notifier:    notifier,
			Alerts:      alerts,
		}
	})

	newPipeline := func() *pipeline.Pipeline {
		return pipeline.New(pipeline.Config{AlertRecipient: "ops@example.com", RunTimeout: 5 * time.Second}, deps)
	}

	It("rejects invalid submissions without any external call", func() {
		event := validEvent()
		delete(event.Answers, "姓名")
		delete(event.Answers, "問題標題")
		event.Answers["電子郵件"] = model.AnswerValue{"not-an-email"}
		event.Answers["上傳截圖"] = model.AnswerValue{"uploads/a.png"}

		res, err := newPipeline().Run(ctx, event)

		var verr *validate.Errors
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(len(verr.Messages)).To(BeNumerically(">=", 3))
		Expect(res).To(BeNil())
		Expect(resolver.calls).To(BeZero())
		Expect(summarizer.calls).To(BeZero())
		Expect(filer.calls).To(BeZero())
		Expect(notifier.calls).To(BeZero())
		Expect(alerts.sent).To(BeEmpty())
	})

	It("notifies the urgent scenario through the fallback summary", func() {
		res, err := newPipeline().Run(ctx, validEvent())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Record.Priority.Code).To(Equal(model.PriorityCritical))
		Expect(res.Record.ReportType.Code).To(Equal(model.ReportTypeBug))
		Expect(res.Record.Email).To(Equal("ming@example.com"))
		Expect(res.Record.TicketID).To(MatchRegexp(`^TICKET-\d+-\d{3}$`))
		Expect(res.UsedFallback).To(BeTrue())
		Expect(res.Summary.Severity).To(Equal(model.SeverityCritical))
		Expect(res.Notified).To(BeTrue())

		Expect(notifier.calls).To(Equal(1))
		Expect(notify.BuildPayload(notifier.last).Content).To(HavePrefix("@everyone 🚨"))
		Expect(alerts.sent).To(BeEmpty())
	})

	It("uses the AI summary when available", func() {
		summarizer.err = nil
		summarizer.summary = model.Summary{Summary: "Login broken", Severity: model.SeverityHigh}

		res, err := newPipeline().Run(ctx, validEvent())

		Expect(err).NotTo(HaveOccurred())
		Expect(res.UsedFallback).To(BeFalse())
		Expect(notifier.last.Summary.Summary).To(Equal("Login broken"))
	})

	It("resolves attachments and surfaces per-file errors", func() {
		event := validEvent()
		event.Answers["上傳截圖"] = model.AnswerValue{"uploads/a.png", "uploads/huge.png"}
		resolver.result = attachment.Result{
			Accepted:   []model.AttachmentMeta{{ID: "uploads/a.png", Name: "a.png", Size: 10}},
			TotalBytes: 10,
			Errors:     []string{"huge.png: file too large (12.0 MB > 10.0 MB)"},
		}

		res, err := newPipeline().Run(ctx, event)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Record.Attachments).To(HaveLen(1))
		Expect(res.AttachmentErrors).To(ConsistOf(ContainSubstring("huge.png")))
		Expect(notifier.last.AttachmentErrors).To(Equal(res.AttachmentErrors))
	})

	It("reports every file as an error when no file store is configured", func() {
		deps.Attachments = nil
		event := validEvent()
		event.Answers["上傳截圖"] = model.AnswerValue{"uploads/a.png"}

		res, err := newPipeline().Run(ctx, event)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.AttachmentErrors).To(ConsistOf("uploads/a.png: file storage is not configured"))
	})

	It("links the filed issue and tolerates filing failures", func() {
		filer.issue = &issuetracker.Issue{IID: 7, URL: "https://gitlab.example.com/support/-/issues/7"}
		res, err := newPipeline().Run(ctx, validEvent())
		Expect(err).NotTo(HaveOccurred())
		Expect(notifier.last.IssueURL).To(Equal(res.IssueURL))
		Expect(res.IssueURL).NotTo(BeEmpty())

		filer.issue, filer.err = nil, errors.New("gitlab down")
		res, err = newPipeline().Run(ctx, validEvent())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.IssueURL).To(BeEmpty())
		Expect(res.Notified).To(BeTrue())
	})

	It("alerts the operator exactly once when the webhook returns 500", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "internal error")
		}))
		defer server.Close()

		deps.Notifier = notify.NewNotifier(
			notify.NewWebhookClientWithHTTP(server.Client(), time.Second),
			notify.Config{WebhookURL: server.URL},
		)

		res, err := newPipeline().Run(ctx, validEvent())

		var delivery *pipeline.DeliveryError
		Expect(errors.As(err, &delivery)).To(BeTrue())
		var webhookErr *notify.DeliveryError
		Expect(errors.As(err, &webhookErr)).To(BeTrue())
		Expect(webhookErr.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(res.Notified).To(BeFalse())

		Expect(alerts.sent).To(HaveLen(1))
		a := alerts.sent[0]
		Expect(a.Recipient).To(Equal("ops@example.com"))
		Expect(a.Body).To(ContainSubstring("王小明"))
		Expect(a.Body).To(ContainSubstring("ming@example.com"))
		Expect(a.Body).To(ContainSubstring("Cannot log in"))
		Expect(a.Body).To(ContainSubstring("internal error"))
	})

	It("turns panics into an unexpected error and alerts", func() {
		summarizer.panics = true

		res, err := newPipeline().Run(ctx, validEvent())

		var unexpected *pipeline.UnexpectedError
		Expect(errors.As(err, &unexpected)).To(BeTrue())
		Expect(unexpected.Stage).To(Equal("summarize"))
		Expect(res).To(BeNil())
		Expect(notifier.calls).To(BeZero())
		Expect(alerts.sent).To(HaveLen(1))
		Expect(alerts.sent[0].Subject).To(ContainSubstring("unexpected"))
		Expect(alerts.sent[0].Body).To(ContainSubstring("Cannot log in"))
	})

	It("treats non-delivery notifier errors as unexpected", func() {
		notifier.err = errors.New("marshal failure")

		_, err := newPipeline().Run(ctx, validEvent())

		var unexpected *pipeline.UnexpectedError
		Expect(errors.As(err, &unexpected)).To(BeTrue())
		Expect(alerts.sent).To(HaveLen(1))
	})
})
