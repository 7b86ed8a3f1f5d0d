package dto

import (
	"time"

	"basegraph.app/intake/internal/model"
)

// SubmitRequest is the form-submit event posted by the form trigger. Answers
// are keyed by question label; file-upload answers carry file ids.
type SubmitRequest struct {
	Answers     map[string]model.AnswerValue `json:"answers" binding:"required"`
	SubmittedAt *time.Time                   `json:"submitted_at,omitempty"`
	Source      string                       `json:"source" binding:"omitempty,max=200"`
	RowIndex    int64                        `json:"row_index" binding:"gte=0"`
}

type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	MessageID    string `json:"message_id,omitempty"`
	Enqueued     bool   `json:"enqueued"`
	Duplicated   bool   `json:"duplicated"`
}
