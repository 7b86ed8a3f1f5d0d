package model

// Summary is the structured judgment of a submission.
type Summary struct {
	Summary                    string     `json:"summary"`
	KeyPoints                  []string   `json:"keyPoints"`
	Severity                   Severity   `json:"severity"`
	Category                   string     `json:"category"`
	SuggestedActions           []string   `json:"suggestedActions"`
	Complexity                 Complexity `json:"estimatedComplexity"`
	RequiresImmediateAttention bool       `json:"requiresImmediateAttention"`
	Notes                      string     `json:"notes"`

	// Fallback is set when the summary was derived from the record instead of the AI.
	Fallback bool `json:"-"`
}

const (
	MaxSummaryLength  = 100
	MaxKeyPoints      = 5
	MaxSuggestActions = 3
	MaxSummaryNotes   = 200
)
