package queue

import (
	"context"
	"fmt"
	"log/slog"

	"basegraph.app/intake/internal/model"
	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, msg SubmissionMessage) (string, error)
	Close() error
}

type SubmissionMessage struct {
	Event   model.FormEvent
	TraceID string
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Enqueue appends the submission to the stream and returns the message ID.
func (p *redisProducer) Enqueue(ctx context.Context, msg SubmissionMessage) (string, error) {
	values, err := messageValues(msg.Event, 1, msg.TraceID)
	if err != nil {
		return "", err
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue submission: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued submission", "submission_id", msg.Event.SubmissionID, "message_id", id)
	return id, nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
