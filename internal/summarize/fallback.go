package summarize

import (
	"fmt"
	"strings"

	"basegraph.app/intake/internal/model"
)

var urgencyTokens = []string{"緊急", "urgent", "critical", "🔥"}

// Fallback derives a Summary from the record alone. It is deterministic.
func Fallback(rec *model.SubmissionRecord) model.Summary {
	typeLabel := labelOr(rec.ReportType.Label, string(rec.ReportType.Code))
	priorityLabel := labelOr(rec.Priority.Label, string(rec.Priority.Code))
	impactLabel := labelOr(rec.ImpactScope.Label, string(rec.ImpactScope.Code))

	severity := model.Severity(rec.Priority.Code)
	if !severity.Valid() {
		severity = model.SeverityMedium
	}

	return model.Summary{
		Summary:   clip(fmt.Sprintf("[%s] %s", typeLabel, rec.Title), model.MaxSummaryLength),
		KeyPoints: []string{"Priority: " + priorityLabel, "Impact: " + impactLabel},
		Severity:  severity,
		Category:  typeLabel,
		SuggestedActions: []string{
			"Review the report details",
			"Contact the reporter to confirm the problem",
		},
		Complexity:                 model.ComplexityModerate,
		RequiresImmediateAttention: isUrgentLabel(rec.Priority.Label),
		Notes:                      "AI analysis unavailable; summary derived from the submitted form.",
		Fallback:                   true,
	}
}

func isUrgentLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, token := range urgencyTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}
