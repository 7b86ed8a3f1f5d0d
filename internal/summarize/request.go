package summarize

import (
	"fmt"
	"strings"

	"basegraph.app/intake/common/llm"
	"basegraph.app/intake/internal/model"
)

const schemaName = "ticket_summary"

const systemPrompt = `You are a customer-support triage assistant. You read one customer report and
return a short structured judgment that helps the support team decide what to do first.
Always reply with a single JSON object and nothing else. Write the summary, key points,
suggested actions and notes in the same language the customer used.`

// summaryResponse mirrors model.Summary as the model returns it. Summary is a
// pointer so a missing field can be told apart from an empty one.
type summaryResponse struct {
	Summary                    *string  `json:"summary" jsonschema:"description=One line synopsis of the report, at most 100 characters"`
	KeyPoints                  []string `json:"keyPoints" jsonschema:"description=Up to five key facts"`
	Severity                   string   `json:"severity" jsonschema:"enum=critical,enum=high,enum=medium,enum=low"`
	Category                   string   `json:"category" jsonschema:"description=Short problem category"`
	SuggestedActions           []string `json:"suggestedActions" jsonschema:"description=Up to three next steps for the support team"`
	EstimatedComplexity        string   `json:"estimatedComplexity" jsonschema:"enum=simple,enum=moderate,enum=complex"`
	RequiresImmediateAttention bool     `json:"requiresImmediateAttention"`
	Notes                      string   `json:"notes" jsonschema:"description=Anything else worth knowing, at most 200 characters"`
}

var responseSchema = llm.GenerateSchema[summaryResponse]()

// Options are the completion settings carried by every request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// BuildRequest renders the completion request for one normalized record.
func BuildRequest(rec *model.SubmissionRecord, attachments []model.AttachmentMeta, opts Options) llm.Request {
	return llm.Request{
		Model:        opts.Model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt(rec, attachments),
		SchemaName:   schemaName,
		Schema:       responseSchema,
		MaxTokens:    opts.MaxTokens,
		Temperature:  llm.Temp(opts.Temperature),
	}
}

func userPrompt(rec *model.SubmissionRecord, attachments []model.AttachmentMeta) string {
	var b strings.Builder

	b.WriteString("Analyze the following customer report.\n\n")

	b.WriteString("## Reporter\n")
	line(&b, "Name", rec.Name)
	line(&b, "Email", rec.Email)
	line(&b, "Phone", rec.Phone)
	line(&b, "Company", rec.Company)
	line(&b, "Preferred contact", rec.ContactMethod.Label)

	b.WriteString("\n## Classification\n")
	line(&b, "Report type", rec.ReportType.Label)
	line(&b, "Priority", rec.Priority.Label)
	line(&b, "Impact scope", rec.ImpactScope.Label)

	b.WriteString("\n## Report\n")
	line(&b, "Title", rec.Title)
	line(&b, "Description", rec.Description)
	line(&b, "Steps to reproduce", rec.StepsToReproduce)
	line(&b, "Environment", rec.Environment)
	line(&b, "Error message", rec.ErrorMessage)
	line(&b, "Additional notes", rec.Notes)

	b.WriteString("\n## References\n")
	fmt.Fprintf(&b, "Attached files: %d\n", len(attachments))
	fmt.Fprintf(&b, "Video link provided: %t\n", rec.VideoURL != "")
	fmt.Fprintf(&b, "Document link provided: %t\n", rec.DocumentURL != "")

	b.WriteString(`
## Output
Return a JSON object with exactly these fields:
{
  "summary": "one line synopsis, at most 100 characters",
  "keyPoints": ["at most 5 key facts"],
  "severity": "critical | high | medium | low",
  "category": "short problem category",
  "suggestedActions": ["at most 3 next steps"],
  "estimatedComplexity": "simple | moderate | complex",
  "requiresImmediateAttention": true or false,
  "notes": "anything else worth knowing, at most 200 characters"
}`)

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if value == "" {
		value = "(not provided)"
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
