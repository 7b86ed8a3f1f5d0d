package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/intake/common/logger"
	"basegraph.app/intake/internal/pipeline"
	"basegraph.app/intake/internal/queue"
	"basegraph.app/intake/internal/validate"
)

type Worker struct {
	consumer Consumer
	runner   SubmissionRunner

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, runner SubmissionRunner) *Worker {
	return &Worker{
		consumer:  consumer,
		runner:    runner,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "intake.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.ProcessMessage(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID)
		}
	}

	return nil
}

// ProcessMessage runs the pipeline for one message and acks it whatever the
// outcome. The pipeline owns failure handling, so submissions are never retried.
// Exported so it can be reused by the reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:    logger.Ptr(msg.ID),
		SubmissionID: logger.Ptr(msg.Event.SubmissionID),
	})

	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_submission")
	defer span.End()
	ctx = span.Context()

	slog.InfoContext(ctx, "processing submission", "attempt", msg.Attempt)

	start := time.Now()
	_, runErr := w.runSafe(ctx, msg)

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// The reclaimer will see it again; the pipeline result is already final.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}

	if runErr != nil {
		span.RecordError(runErr)
		var verr *validate.Errors
		if errors.As(runErr, &verr) {
			slog.InfoContext(ctx, "submission rejected by validation",
				"errors", verr.Messages,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		}
		return runErr
	}

	slog.InfoContext(ctx, "submission completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// runSafe guards against a runner that panics outside its own recovery.
func (w *Worker) runSafe(ctx context.Context, msg queue.Message) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.runner.Run(ctx, msg.Event)
}
