package queue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"basegraph.app/intake/internal/model"
	"github.com/redis/go-redis/v9"
)

// Message is one submission event read from the stream.
type Message struct {
	ID      string
	Event   model.FormEvent
	Attempt int
	TraceID string
	Raw     redis.XMessage
}

// ParseMessage decodes stream fields written by Producer.Enqueue.
func ParseMessage(msg redis.XMessage) (Message, error) {
	payload, err := parseString(msg.Values, "payload")
	if err != nil {
		return Message{}, err
	}

	var event model.FormEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Message{}, fmt.Errorf("decoding payload: %w", err)
	}

	submissionID, err := parseOptionalInt64(msg.Values, "submission_id")
	if err != nil {
		return Message{}, err
	}
	if submissionID != nil {
		event.SubmissionID = *submissionID
	}
	if event.SubmissionID == 0 {
		return Message{}, fmt.Errorf("missing submission_id")
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	traceID, err := parseOptionalString(msg.Values, "trace_id")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:      msg.ID,
		Event:   event,
		Attempt: attempt,
		TraceID: traceID,
		Raw:     msg,
	}, nil
}

func messageValues(event model.FormEvent, attempt int, traceID string) (map[string]any, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	values := map[string]any{
		"submission_id": event.SubmissionID,
		"payload":       string(payload),
		"attempt":       attempt,
	}
	if traceID != "" {
		values["trace_id"] = traceID
	}
	return values, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt64(values map[string]any, key string) (*int64, error) {
	raw, ok := values[key]
	if !ok {
		return nil, nil
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return &num, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", nil
	}
	return fmt.Sprint(raw), nil
}
