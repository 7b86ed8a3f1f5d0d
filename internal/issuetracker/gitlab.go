package issuetracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"basegraph.app/intake/common"
	"basegraph.app/intake/internal/attachment"
	"basegraph.app/intake/internal/model"
)

type GitLabConfig struct {
	BaseURL   string
	Token     string
	ProjectID string
	Timeout   time.Duration
}

type GitLabFiler struct {
	client    *gitlab.Client
	projectID string
	timeout   time.Duration
}

func NewGitLabFiler(cfg GitLabConfig) (*GitLabFiler, error) {
	client, err := newClient(cfg.BaseURL, cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &GitLabFiler{client: client, projectID: cfg.ProjectID, timeout: timeout}, nil
}

func newClient(baseURL, token string) (*gitlab.Client, error) {
	if baseURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(baseURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

func (f *GitLabFiler) File(ctx context.Context, rec *model.SubmissionRecord, summary model.Summary) (*Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	labels := gitlab.LabelOptions(Labels(rec, summary))
	created, _, err := f.client.Issues.CreateIssue(f.projectID, &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(fmt.Sprintf("[%s] %s", rec.TicketID, rec.Title)),
		Description: gitlab.Ptr(Description(rec, summary)),
		Labels:      &labels,
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("creating gitlab issue: %w", err)
	}

	slog.InfoContext(ctx, "issue filed", "issue_iid", created.IID, "issue_url", created.WebURL)
	return &Issue{IID: int64(created.IID), URL: created.WebURL}, nil
}

// Labels uses GitLab scoped labels so each dimension holds one value.
func Labels(rec *model.SubmissionRecord, summary model.Summary) []string {
	labels := []string{
		"severity::" + string(summary.Severity),
		"type::" + string(rec.ReportType.Code),
	}
	if category, err := common.Slugify(summary.Category, ""); err == nil {
		labels = append(labels, "category::"+category)
	}
	return labels
}

// Description renders the issue body in Markdown.
func Description(rec *model.SubmissionRecord, summary model.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", summary.Summary)
	if summary.Fallback {
		b.WriteString("> AI analysis was unavailable; this summary was derived from the form.\n\n")
	}

	if len(summary.KeyPoints) > 0 {
		b.WriteString("### Key points\n\n")
		for _, p := range summary.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	if len(summary.SuggestedActions) > 0 {
		b.WriteString("### Suggested actions\n\n")
		for i, a := range summary.SuggestedActions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, a)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Report\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	tableRow(&b, "Ticket", rec.TicketID)
	tableRow(&b, "Type", rec.ReportType.Label)
	tableRow(&b, "Priority", rec.Priority.Label)
	tableRow(&b, "Impact", rec.ImpactScope.Label)
	tableRow(&b, "Severity", string(summary.Severity))
	tableRow(&b, "Complexity", string(summary.Complexity))
	tableRow(&b, "Reporter", rec.Name)
	tableRow(&b, "Email", rec.Email)
	tableRow(&b, "Company", rec.Company)
	b.WriteString("\n")

	section(&b, "Description", rec.Description)
	section(&b, "Steps to reproduce", rec.StepsToReproduce)
	section(&b, "Environment", rec.Environment)
	if rec.ErrorMessage != "" {
		fmt.Fprintf(&b, "### Error message\n\n```\n%s\n```\n\n", rec.ErrorMessage)
	}
	section(&b, "Notes", rec.Notes)

	if len(rec.Attachments) > 0 || rec.HasLinks() {
		b.WriteString("### Attachments\n\n")
		for _, a := range rec.Attachments {
			fmt.Fprintf(&b, "- [%s](%s) (%s)\n", a.Name, a.ViewURL, attachment.FormatSize(a.Size))
		}
		if rec.VideoURL != "" {
			fmt.Fprintf(&b, "- Video: %s\n", rec.VideoURL)
		}
		if rec.DocumentURL != "" {
			fmt.Fprintf(&b, "- Document: %s\n", rec.DocumentURL)
		}
	}

	return b.String()
}

func tableRow(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "| %s | %s |\n", name, strings.ReplaceAll(value, "|", `\|`))
}

func section(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	fmt.Fprintf(b, "### %s\n\n%s\n\n", title, body)
}
