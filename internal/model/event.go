package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// FormEvent is the already-parsed form-submit event handed to the pipeline.
type FormEvent struct {
	SubmissionID int64                  `json:"submission_id,omitempty"`
	Answers      map[string]AnswerValue `json:"answers"`
	SubmittedAt  time.Time              `json:"submitted_at"`
	Source       string                 `json:"source"`
	RowIndex     int64                  `json:"row_index"`
}

// AnswerValue holds one answer. Text questions produce a single value,
// checkbox and file-upload questions produce several.
type AnswerValue []string

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AnswerValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("answer must be a string or a list of strings: %w", err)
	}
	*a = many
	return nil
}

// First returns the first value or "".
func (a AnswerValue) First() string {
	if len(a) == 0 {
		return ""
	}
	return a[0]
}
