package normalize_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/normalize"
)

type fixedTickets struct{ id string }

func (f fixedTickets) Next() string { return f.id }

var _ = Describe("Normalizer", func() {
	var n *normalize.Normalizer

	BeforeEach(func() {
		n = normalize.New(fixedTickets{id: "TICKET-1700000000000-042"})
	})

	It("maps the urgent bug scenario to critical/bug", func() {
		rec := &model.SubmissionRecord{
			Title:       "Cannot log in",
			Description: "Error after password reset",
			Priority:    model.Classified[model.Priority]{Label: "🔥 緊急 (影響營運)"},
			ReportType:  model.Classified[model.ReportType]{Label: "🐛 Bug 回報"},
		}

		n.Normalize(rec)

		Expect(rec.Priority.Code).To(Equal(model.PriorityCritical))
		Expect(rec.ReportType.Code).To(Equal(model.ReportTypeBug))
		Expect(rec.Priority.Label).To(Equal("🔥 緊急 (影響營運)"))
	})

	It("trims narrative fields and cleans identity fields", func() {
		rec := &model.SubmissionRecord{
			Name:             "  Ada  ",
			Email:            "  Ada@Example.COM ",
			Phone:            " +886 2 1234 5678 ",
			Title:            "  Crash on save \n",
			Description:      "\tstack trace below ",
			StepsToReproduce: " 1. open ",
			Notes:            "  ",
		}

		n.Normalize(rec)

		Expect(rec.Name).To(Equal("Ada"))
		Expect(rec.Email).To(Equal("ada@example.com"))
		Expect(rec.Phone).To(Equal("+886212345678"))
		Expect(rec.Title).To(Equal("Crash on save"))
		Expect(rec.Description).To(Equal("stack trace below"))
		Expect(rec.StepsToReproduce).To(Equal("1. open"))
		Expect(rec.Notes).To(BeEmpty())
	})

	It("mints a ticket id only once", func() {
		rec := &model.SubmissionRecord{}
		n.Normalize(rec)
		Expect(rec.TicketID).To(Equal("TICKET-1700000000000-042"))

		other := normalize.New(fixedTickets{id: "TICKET-2-000"})
		other.Normalize(rec)
		Expect(rec.TicketID).To(Equal("TICKET-1700000000000-042"))
	})

	DescribeTable("unknown priority labels fall back to medium",
		func(label string) {
			Expect(normalize.MapPriority(label)).To(Equal(model.PriorityMedium))
		},
		Entry("empty", ""),
		Entry("free text", "ASAP please"),
		Entry("label without emoji", "緊急 (影響營運)"),
		Entry("different case", "🔥 critical"),
	)

	DescribeTable("unknown report type labels fall back to bug",
		func(label string) {
			Expect(normalize.MapReportType(label)).To(Equal(model.ReportTypeBug))
		},
		Entry("empty", ""),
		Entry("free text", "something broke"),
		Entry("partial", "功能建議"),
	)

	DescribeTable("known labels map to their codes",
		func(got, want string) {
			Expect(got).To(Equal(want))
		},
		Entry("high", string(normalize.MapPriority("⚠️ 高 (影響工作)")), "high"),
		Entry("low", string(normalize.MapPriority("💡 Low")), "low"),
		Entry("feature request", string(normalize.MapReportType("✨ 功能建議")), "feature_request"),
		Entry("technical support", string(normalize.MapReportType("🔧 Technical Support")), "technical_support"),
		Entry("company impact", string(normalize.MapImpactScope("🌐 影響全公司")), "company"),
		Entry("unknown impact", string(normalize.MapImpactScope("?")), "individual"),
		Entry("phone contact", string(normalize.MapContactMethod("📞 電話")), "phone"),
		Entry("unknown contact", string(normalize.MapContactMethod("carrier pigeon")), "email"),
	)

	It("every table value is a defined code", func() {
		for _, code := range normalize.PriorityLabels {
			Expect(code).To(BeElementOf(model.PriorityCritical, model.PriorityHigh, model.PriorityMedium, model.PriorityLow))
		}
		for _, code := range normalize.ReportTypeLabels {
			Expect(code).To(BeElementOf(model.ReportTypeBug, model.ReportTypeFeatureRequest, model.ReportTypeUsageQuestion, model.ReportTypeTechnicalSupport))
		}
	})
})
