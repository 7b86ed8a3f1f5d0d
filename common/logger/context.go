package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so every stage of a submission run
// logs its submission_id and ticket_id without passing them around.
type LogFields struct {
	SubmissionID *int64  // Snowflake id assigned at intake
	TicketID     *string // TICKET-... identifier minted by the normalizer
	MessageID    *string // Redis stream message ID
	Source       *string // Form / trigger source identifier
	RowIndex     *int64  // Row of the response in the source sheet
	Component    string  // Component name (OTel semantic convention style, e.g., "intake.pipeline")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.SubmissionID != nil {
		result.SubmissionID = new.SubmissionID
	}
	if new.TicketID != nil {
		result.TicketID = new.TicketID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Source != nil {
		result.Source = new.Source
	}
	if new.RowIndex != nil {
		result.RowIndex = new.RowIndex
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TicketID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like AI responses or webhook bodies.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
