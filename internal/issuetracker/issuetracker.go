package issuetracker

import (
	"context"

	"basegraph.app/intake/internal/model"
)

// Issue is a ticket filed in the internal issue system.
type Issue struct {
	IID int64
	URL string
}

type Filer interface {
	// File creates an issue for the submission. A nil Issue with a nil error
	// means filing is disabled.
	File(ctx context.Context, rec *model.SubmissionRecord, summary model.Summary) (*Issue, error)
}

// Disabled is the Filer used when no issue system is configured.
type Disabled struct{}

func (Disabled) File(context.Context, *model.SubmissionRecord, model.Summary) (*Issue, error) {
	return nil, nil
}
