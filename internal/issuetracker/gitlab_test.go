package issuetracker_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/intake/internal/issuetracker"
	"basegraph.app/intake/internal/model"
)

func record() *model.SubmissionRecord {
	return &model.SubmissionRecord{
		TicketID:     "TICKET-1700000000000-042",
		Name:         "王小明",
		Email:        "ming@example.com",
		Title:        "Cannot log in",
		Description:  "Error after password reset",
		ErrorMessage: "HTTP 500",
		ReportType:   model.Classified[model.ReportType]{Label: "🐛 Bug 回報", Code: model.ReportTypeBug},
		Priority:     model.Classified[model.Priority]{Label: "🔥 緊急 (影響營運)", Code: model.PriorityCritical},
		Attachments: []model.AttachmentMeta{
			{Name: "shot.png", Size: 2048, ViewURL: "https://files/f1"},
		},
	}
}

func summary() model.Summary {
	return model.Summary{
		Summary:          "Login fails after password reset",
		Severity:         model.SeverityCritical,
		Category:         "Login / SSO",
		KeyPoints:        []string{"All users affected"},
		SuggestedActions: []string{"Check auth logs"},
		Complexity:       model.ComplexityModerate,
	}
}

var _ = Describe("Labels", func() {
	It("scopes severity, type and category", func() {
		Expect(issuetracker.Labels(record(), summary())).To(Equal([]string{
			"severity::critical", "type::bug", "category::login-sso",
		}))
	})

	It("skips the category label when the category has no usable characters", func() {
		s := summary()
		s.Category = "🔥"
		Expect(issuetracker.Labels(record(), s)).To(HaveLen(2))
	})
})

var _ = Describe("Description", func() {
	It("renders the summary and the filled-in report fields", func() {
		body := issuetracker.Description(record(), summary())

		Expect(body).To(ContainSubstring("Login fails after password reset"))
		Expect(body).To(ContainSubstring("| Ticket | TICKET-1700000000000-042 |"))
		Expect(body).To(ContainSubstring("```\nHTTP 500\n```"))
		Expect(body).To(ContainSubstring("[shot.png](https://files/f1) (2.0 KB)"))
		Expect(body).NotTo(ContainSubstring("Steps to reproduce"))
		Expect(body).NotTo(ContainSubstring("AI analysis was unavailable"))
	})

	It("notes fallback summaries", func() {
		s := summary()
		s.Fallback = true
		Expect(issuetracker.Description(record(), s)).To(ContainSubstring("AI analysis was unavailable"))
	})
})

var _ = Describe("GitLabFiler", func() {
	var (
		server *httptest.Server
		status int
		body   string
		path   string
	)

	BeforeEach(func() {
		status = http.StatusCreated
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.EscapedPath()
			raw, _ := io.ReadAll(r.Body)
			body = string(raw)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			if status == http.StatusCreated {
				_, _ = io.WriteString(w, `{"id": 100, "iid": 7, "web_url": "https://gitlab.example.com/support/-/issues/7"}`)
			} else {
				_, _ = io.WriteString(w, `{"message": "403 Forbidden"}`)
			}
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	newFiler := func() *issuetracker.GitLabFiler {
		f, err := issuetracker.NewGitLabFiler(issuetracker.GitLabConfig{
			BaseURL:   server.URL,
			Token:     "glpat-test",
			ProjectID: "42",
			Timeout:   time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
		return f
	}

	It("creates an issue and returns its url", func() {
		issue, err := newFiler().File(context.Background(), record(), summary())

		Expect(err).NotTo(HaveOccurred())
		Expect(issue.IID).To(Equal(int64(7)))
		Expect(issue.URL).To(Equal("https://gitlab.example.com/support/-/issues/7"))
		Expect(path).To(Equal("/api/v4/projects/42/issues"))
		Expect(body).To(ContainSubstring("[TICKET-1700000000000-042] Cannot log in"))
		Expect(body).To(ContainSubstring("severity::critical"))
	})

	It("returns an error when gitlab rejects the request", func() {
		status = http.StatusForbidden

		issue, err := newFiler().File(context.Background(), record(), summary())

		Expect(err).To(HaveOccurred())
		Expect(issue).To(BeNil())
	})
})

var _ = Describe("Disabled", func() {
	It("files nothing", func() {
		issue, err := issuetracker.Disabled{}.File(context.Background(), record(), summary())
		Expect(err).NotTo(HaveOccurred())
		Expect(issue).To(BeNil())
	})
})
