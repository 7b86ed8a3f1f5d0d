package notify_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/notify"
)

func sampleRecord() *model.SubmissionRecord {
	return &model.SubmissionRecord{
		TicketID:    "TICKET-1700000000000-042",
		SubmittedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Name:        "王小明",
		Email:       "ming@example.com",
		Phone:       "+886212345678",
		Company:     "Acme",
		Title:       "Cannot log in",
		Description: "Error after password reset",
		ReportType:  model.Classified[model.ReportType]{Label: "🐛 Bug 回報", Code: model.ReportTypeBug},
		Priority:    model.Classified[model.Priority]{Label: "🔥 緊急 (影響營運)", Code: model.PriorityCritical},
		ImpactScope: model.Classified[model.ImpactScope]{Label: "整個公司", Code: model.ImpactScopeCompany},
	}
}

func sampleSummary() model.Summary {
	return model.Summary{
		Summary:                    "Login fails after password reset",
		KeyPoints:                  []string{"Started after reset", "All users affected"},
		Severity:                   model.SeverityCritical,
		Category:                   "Authentication",
		SuggestedActions:           []string{"Check auth service logs"},
		Complexity:                 model.ComplexityModerate,
		RequiresImmediateAttention: true,
	}
}

func fieldNames(e notify.Embed) []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

var _ = Describe("BuildPayload", func() {
	var in notify.PayloadInput

	BeforeEach(func() {
		in = notify.PayloadInput{
			Record:    sampleRecord(),
			Summary:   sampleSummary(),
			Username:  "客戶回報系統",
			AvatarURL: "https://example.com/avatar.png",
		}
	})

	It("prefixes critical reports needing immediate attention with the urgent marker", func() {
		payload := notify.BuildPayload(in)

		Expect(payload.Content).To(HavePrefix("@everyone 🚨"))
		Expect(payload.Content).To(ContainSubstring("TICKET-1700000000000-042"))
		Expect(payload.AllowedMentions.Parse).To(ConsistOf("everyone"))
		Expect(payload.Username).To(Equal("客戶回報系統"))
		Expect(payload.AvatarURL).To(Equal("https://example.com/avatar.png"))
	})

	DescribeTable("urgent marker needs both critical severity and immediate attention",
		func(severity model.Severity, immediate bool, urgent bool) {
			in.Summary.Severity = severity
			in.Summary.RequiresImmediateAttention = immediate
			payload := notify.BuildPayload(in)
			Expect(payload.Content != "").To(Equal(urgent))
			Expect(notify.IsUrgent(in.Summary)).To(Equal(urgent))
		},
		Entry("critical and immediate", model.SeverityCritical, true, true),
		Entry("critical only", model.SeverityCritical, false, false),
		Entry("high and immediate", model.SeverityHigh, true, false),
	)

	DescribeTable("colors the primary embed by severity",
		func(severity model.Severity, color int) {
			in.Summary.Severity = severity
			Expect(notify.BuildPayload(in).Embeds[0].Color).To(Equal(color))
		},
		Entry("critical", model.SeverityCritical, 0xFF0000),
		Entry("high", model.SeverityHigh, 0xFF8C00),
		Entry("medium", model.SeverityMedium, 0xFFD700),
		Entry("low", model.SeverityLow, 0x32CD32),
		Entry("unknown", model.Severity("bogus"), 0xFFD700),
	)

	It("renders the primary block", func() {
		primary := notify.BuildPayload(in).Embeds[0]

		Expect(primary.Title).To(ContainSubstring("Cannot log in"))
		Expect(primary.Description).To(Equal("Login fails after password reset"))
		Expect(primary.Footer.Text).To(Equal("Ticket TICKET-1700000000000-042"))
		Expect(primary.Timestamp).NotTo(BeNil())
		Expect(fieldNames(primary)).To(ContainElements(
			"📌 Key points", "👤 Reporter", "🏷️ Classification", "✅ Suggested actions", "📄 Description"))
		Expect(fieldNames(primary)).NotTo(ContainElement("⚠️ AI analysis unavailable"))
	})

	It("includes only the narrative fields that were provided", func() {
		in.Record.ErrorMessage = "HTTP 500"
		names := fieldNames(notify.BuildPayload(in).Embeds[0])

		Expect(names).To(ContainElement("❌ Error message"))
		Expect(names).NotTo(ContainElement("🔁 Steps to reproduce"))
		Expect(names).NotTo(ContainElement("💻 Environment"))
	})

	It("marks fallback summaries", func() {
		in.Summary.Fallback = true
		in.Summary.Notes = "AI analysis unavailable"

		primary := notify.BuildPayload(in).Embeds[0]

		Expect(primary.Fields[0].Name).To(Equal("⚠️ AI analysis unavailable"))
		Expect(fieldNames(primary)).NotTo(ContainElement("🤖 AI notes"))
	})

	It("omits the attachment and notes blocks when there is nothing to show", func() {
		Expect(notify.BuildPayload(in).Embeds).To(HaveLen(1))
	})

	It("lists files with sizes and links", func() {
		in.Record.Attachments = []model.AttachmentMeta{{
			ID: "f1", Name: "shot.png", Size: 2048, MimeType: "image/png",
			ViewURL: "https://files/f1", DownloadURL: "https://files/f1?dl", ThumbnailURL: "https://thumbs/f1",
		}}
		in.AttachmentErrors = []string{"huge.png: file too large (12.0 MB > 10.0 MB)"}

		embeds := notify.BuildPayload(in).Embeds
		Expect(embeds).To(HaveLen(2))

		files := embeds[1]
		Expect(files.Title).To(Equal("📎 Attachments (1)"))
		Expect(files.Thumbnail.URL).To(Equal("https://thumbs/f1"))
		Expect(files.Fields[0].Value).To(ContainSubstring("[shot.png](https://files/f1) (2.0 KB)"))
		Expect(files.Fields[len(files.Fields)-1].Name).To(Equal("⚠️ Processing errors"))
		Expect(files.Fields[len(files.Fields)-1].Value).To(ContainSubstring("huge.png"))
	})

	It("renders a links-only block when there are no files", func() {
		in.Record.VideoURL = "https://video.example.com/1"

		embeds := notify.BuildPayload(in).Embeds
		Expect(embeds).To(HaveLen(2))
		Expect(embeds[1].Title).To(Equal("🔗 Reference links"))
		Expect(embeds[1].Fields[0].Value).To(ContainSubstring("https://video.example.com/1"))
	})

	It("adds a notes block for submitter notes", func() {
		in.Record.Notes = "Happens only on Safari"

		embeds := notify.BuildPayload(in).Embeds
		Expect(embeds[len(embeds)-1].Description).To(Equal("Happens only on Safari"))
	})

	It("adds the ticket button and issue link when components are enabled", func() {
		in.Components = true
		in.IssueURL = "https://gitlab.example.com/support/-/issues/7"

		payload := notify.BuildPayload(in)

		Expect(payload.Components).To(HaveLen(1))
		buttons := payload.Components[0].Components
		Expect(buttons).To(HaveLen(2))
		Expect(buttons[0].CustomID).To(Equal("ticket:TICKET-1700000000000-042"))
		Expect(buttons[1].URL).To(Equal(in.IssueURL))
		Expect(payload.Embeds[0].URL).To(Equal(in.IssueURL))
	})

	It("enforces webhook length limits", func() {
		in.Record.Title = strings.Repeat("t", 300)
		in.Record.Description = strings.Repeat("d", 2000)
		in.Summary.Summary = strings.Repeat("s", 5000)

		primary := notify.BuildPayload(in).Embeds[0]

		Expect(len([]rune(primary.Title))).To(BeNumerically("<=", 256))
		Expect(len([]rune(primary.Description))).To(BeNumerically("<=", 4096))
		for _, f := range primary.Fields {
			Expect(len([]rune(f.Value))).To(BeNumerically("<=", 1024), f.Name)
			Expect(f.Value).NotTo(BeEmpty())
		}
	})

	Describe("combined embed size", func() {
		embedChars := func(embeds []notify.Embed) int {
			n := 0
			for _, e := range embeds {
				n += len([]rune(e.Title)) + len([]rune(e.Description))
				if e.Footer != nil {
					n += len([]rune(e.Footer.Text))
				}
				for _, f := range e.Fields {
					n += len([]rune(f.Name)) + len([]rune(f.Value))
				}
			}
			return n
		}

		fieldValue := func(e notify.Embed, name string) string {
			for _, f := range e.Fields {
				if f.Name == name {
					return f.Value
				}
			}
			return ""
		}

		It("shrinks long reports to fit the webhook total", func() {
			rec := in.Record
			rec.Description = strings.Repeat("描", 3000)
			rec.StepsToReproduce = strings.Repeat("s", 3000)
			rec.Environment = strings.Repeat("e", 3000)
			rec.ErrorMessage = strings.Repeat("x", 3000)
			rec.Notes = strings.Repeat("n", 3000)
			rec.VideoURL = "https://video.example.com/" + strings.Repeat("v", 900)
			for i := range 12 {
				rec.Attachments = append(rec.Attachments, model.AttachmentMeta{
					ID:          strings.Repeat("i", 40),
					Name:        strings.Repeat("f", 60),
					Size:        int64(1024 * (i + 1)),
					ViewURL:     "https://files.example.com/" + strings.Repeat("k", 60),
					DownloadURL: "https://files.example.com/" + strings.Repeat("k", 60) + "?dl=1",
				})
			}
			in.AttachmentErrors = []string{strings.Repeat("r", 600), strings.Repeat("q", 600)}
			in.Summary.KeyPoints = []string{strings.Repeat("k", 1500)}
			in.Summary.SuggestedActions = []string{strings.Repeat("a", 1500)}
			in.Summary.Notes = strings.Repeat("m", 200)
			in.IssueURL = "https://gitlab.example.com/support/intake/-/issues/7"

			payload := notify.BuildPayload(in)

			Expect(embedChars(payload.Embeds)).To(BeNumerically("<=", 6000))
			Expect(payload.Embeds).To(HaveLen(3))

			primary := payload.Embeds[0]
			Expect(primary.Title).To(ContainSubstring("Cannot log in"))
			Expect(primary.Description).To(Equal("Login fails after password reset"))
			Expect(primary.Footer.Text).To(Equal("Ticket TICKET-1700000000000-042"))
			Expect(fieldValue(primary, "📋 Issue")).To(Equal(in.IssueURL))

			errBlock := fieldValue(primary, "❌ Error message")
			Expect(errBlock).To(HavePrefix("```\n"))
			Expect(errBlock).To(HaveSuffix("\n```"))
			Expect(fieldValue(primary, "📄 Description")).To(HavePrefix("描描描"))
		})

		It("cuts submitter notes before the narrative fields", func() {
			in.Record.Description = strings.Repeat("d", 1000)
			in.Record.StepsToReproduce = strings.Repeat("s", 1000)
			in.Record.Environment = strings.Repeat("e", 1000)
			in.Record.ErrorMessage = strings.Repeat("x", 1000)
			in.Record.Notes = strings.Repeat("n", 3000)

			payload := notify.BuildPayload(in)

			Expect(embedChars(payload.Embeds)).To(BeNumerically("<=", 6000))
			notes := payload.Embeds[len(payload.Embeds)-1]
			Expect(notes.Title).To(Equal("📝 Additional notes"))
			Expect(len([]rune(notes.Description))).To(BeNumerically("<", 3000))
			Expect(fieldValue(payload.Embeds[0], "📄 Description")).To(Equal(strings.Repeat("d", 1000)))
		})

		It("leaves reports within the limit untouched", func() {
			in.Record.Notes = "Happens on Chrome only"

			payload := notify.BuildPayload(in)

			Expect(payload.Embeds[len(payload.Embeds)-1].Description).To(Equal("Happens on Chrome only"))
			Expect(fieldValue(payload.Embeds[0], "📄 Description")).To(Equal("Error after password reset"))
		})
	})
})
