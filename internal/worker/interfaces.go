package worker

import (
	"context"

	"basegraph.app/intake/internal/model"
	"basegraph.app/intake/internal/pipeline"
	"basegraph.app/intake/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// SubmissionRunner abstracts the pipeline for testability.
type SubmissionRunner interface {
	Run(ctx context.Context, event model.FormEvent) (*pipeline.Result, error)
}
