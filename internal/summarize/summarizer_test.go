package summarize_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/summarize"
)

type fakeClient struct {
	replies  []string
	errs     []error
	calls    int
	requests []llm.Request
}

func (f *fakeClient) Chat(_ context.Context, req llm.Request, result any) (*llm.Response, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, req)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	content := f.replies[min(i, len(f.replies)-1)]
	if err := json.Unmarshal([]byte(content), result); err != nil {
		return &llm.Response{Content: content}, fmt.Errorf("%w: %w", llm.ErrMalformedResponse, err)
	}
	return &llm.Response{Content: content}, nil
}

func (f *fakeClient) Model() string { return "fake" }

func urgentRecord() *model.SubmissionRecord {
	return &model.SubmissionRecord{
		TicketID:    "TICKET-1700000000000-042",
		Name:        "王小明",
		Email:       "ming@example.com",
		Title:       "Cannot log in",
		Description: "Error after password reset",
		ReportType:  model.Classified[model.ReportType]{Label: "🐛 Bug 回報", Code: model.ReportTypeBug},
		Priority:    model.Classified[model.Priority]{Label: "🔥 緊急 (影響營運)", Code: model.PriorityCritical},
		ImpactScope: model.Classified[model.ImpactScope]{Label: "整個公司", Code: model.ImpactScopeCompany},
	}
}

var _ = Describe("BuildRequest", func() {
	It("embeds the record and the output contract", func() {
		rec := urgentRecord()
		rec.VideoURL = "https://example.com/video"
		attachments := []model.AttachmentMeta{{ID: "a"}, {ID: "b"}}

		req := summarize.BuildRequest(rec, attachments, summarize.Options{Model: "gpt-4o-mini", MaxTokens: 1000, Temperature: 0.3})

		Expect(req.Model).To(Equal("gpt-4o-mini"))
		Expect(req.MaxTokens).To(Equal(1000))
		Expect(*req.Temperature).To(BeNumerically("~", 0.3, 0.0001))
		Expect(req.Schema).NotTo(BeNil())
		Expect(req.SchemaName).To(Equal("ticket_summary"))
		Expect(req.SystemPrompt).To(ContainSubstring("JSON"))

		Expect(req.UserPrompt).To(ContainSubstring("Title: Cannot log in"))
		Expect(req.UserPrompt).To(ContainSubstring("Priority: 🔥 緊急 (影響營運)"))
		Expect(req.UserPrompt).To(ContainSubstring("Attached files: 2"))
		Expect(req.UserPrompt).To(ContainSubstring("Video link provided: true"))
		Expect(req.UserPrompt).To(ContainSubstring("Phone: (not provided)"))
		Expect(req.UserPrompt).To(ContainSubstring(`"requiresImmediateAttention"`))
	})
})

var _ = Describe("Summarizer", func() {
	var (
		ctx    context.Context
		client *fakeClient
		rec    *model.SubmissionRecord
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeClient{}
		rec = urgentRecord()
	})

	newSummarizer := func(attempts int) *summarize.Summarizer {
		return summarize.New(client, summarize.Config{
			Timeout:     time.Second,
			MaxAttempts: attempts,
			RetryDelay:  time.Millisecond,
		})
	}

	It("returns the AI summary with defaults applied", func() {
		client.replies = []string{`{
			"summary": "  Login fails after password reset  ",
			"keyPoints": ["a", " ", "b", "c", "d", "e", "f"],
			"severity": "CRITICAL",
			"category": "Authentication",
			"suggestedActions": ["x", "y", "z", "w"],
			"estimatedComplexity": "unknown",
			"requiresImmediateAttention": true,
			"notes": "` + strings.Repeat("n", 250) + `"
		}`}

		summary, err := newSummarizer(1).Summarize(ctx, rec, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Summary).To(Equal("Login fails after password reset"))
		Expect(summary.KeyPoints).To(Equal([]string{"a", "b", "c", "d", "e"}))
		Expect(summary.Severity).To(Equal(model.SeverityCritical))
		Expect(summary.SuggestedActions).To(HaveLen(3))
		Expect(summary.Complexity).To(Equal(model.ComplexityModerate))
		Expect(summary.RequiresImmediateAttention).To(BeTrue())
		Expect([]rune(summary.Notes)).To(HaveLen(model.MaxSummaryNotes))
		Expect(summary.Fallback).To(BeFalse())
	})

	It("fails cleanly when the summary field is missing", func() {
		client.replies = []string{`{"keyPoints": ["a"], "severity": "high"}`}

		_, err := newSummarizer(3).Summarize(ctx, rec, nil)

		var sumErr *summarize.SummarizationError
		Expect(errors.As(err, &sumErr)).To(BeTrue())
		Expect(errors.Is(err, summarize.ErrMissingSummary)).To(BeTrue())
		Expect(client.calls).To(Equal(1))
	})

	It("fails cleanly on unparsable replies", func() {
		client.replies = []string{"not json"}

		_, err := newSummarizer(1).Summarize(ctx, rec, nil)

		Expect(errors.Is(err, llm.ErrMalformedResponse)).To(BeTrue())
	})

	It("retries retryable errors up to the attempt limit", func() {
		client.errs = []error{errors.New("connection reset"), errors.New("connection reset")}
		client.replies = []string{`{"summary": "ok"}`}

		summary, err := newSummarizer(3).Summarize(ctx, rec, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Summary).To(Equal("ok"))
		Expect(client.calls).To(Equal(3))
	})

	It("does not retry by default", func() {
		client.errs = []error{errors.New("connection reset")}
		client.replies = []string{`{"summary": "ok"}`}

		_, err := newSummarizer(0).Summarize(ctx, rec, nil)

		var sumErr *summarize.SummarizationError
		Expect(errors.As(err, &sumErr)).To(BeTrue())
		Expect(sumErr.Attempts).To(Equal(1))
		Expect(client.calls).To(Equal(1))
	})

	It("reports a disabled summarizer", func() {
		_, err := summarize.New(nil, summarize.Config{}).Summarize(ctx, rec, nil)

		Expect(errors.Is(err, summarize.ErrDisabled)).To(BeTrue())
	})
})

var _ = Describe("Fallback", func() {
	It("flags the urgent scenario", func() {
		summary := summarize.Fallback(urgentRecord())

		Expect(summary.Summary).To(Equal("[🐛 Bug 回報] Cannot log in"))
		Expect(summary.Severity).To(Equal(model.SeverityCritical))
		Expect(summary.RequiresImmediateAttention).To(BeTrue())
		Expect(summary.Category).To(Equal("🐛 Bug 回報"))
		Expect(summary.KeyPoints).To(ConsistOf("Priority: 🔥 緊急 (影響營運)", "Impact: 整個公司"))
		Expect(summary.SuggestedActions).To(HaveLen(2))
		Expect(summary.Complexity).To(Equal(model.ComplexityModerate))
		Expect(summary.Notes).To(ContainSubstring("AI analysis unavailable"))
		Expect(summary.Fallback).To(BeTrue())
	})

	It("is deterministic", func() {
		Expect(summarize.Fallback(urgentRecord())).To(Equal(summarize.Fallback(urgentRecord())))
	})

	DescribeTable("immediate attention follows the priority label",
		func(label string, code model.Priority, want bool) {
			rec := urgentRecord()
			rec.Priority = model.Classified[model.Priority]{Label: label, Code: code}
			Expect(summarize.Fallback(rec).RequiresImmediateAttention).To(Equal(want))
		},
		Entry("chinese urgent", "緊急", model.PriorityCritical, true),
		Entry("english urgent", "Urgent - blocking", model.PriorityCritical, true),
		Entry("critical in caps", "CRITICAL", model.PriorityCritical, true),
		Entry("high", "⚠️ 高 (影響工作)", model.PriorityHigh, false),
		Entry("empty", "", model.PriorityMedium, false),
	)

	It("clips long synopses", func() {
		rec := urgentRecord()
		rec.Title = strings.Repeat("字", 150)

		Expect([]rune(summarize.Fallback(rec).Summary)).To(HaveLen(model.MaxSummaryLength))
	})
})
