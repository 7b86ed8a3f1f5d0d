package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupeStore remembers trigger deliveries so a re-fired form trigger does
// not produce a second notification.
type DedupeStore interface {
	// Claim records key and reports whether this is its first delivery.
	Claim(ctx context.Context, key string, submissionID int64) (bool, error)
	// Release forgets key so the delivery can be retried.
	Release(ctx context.Context, key string) error
}

type redisDedupeStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDedupeStore(client *redis.Client, ttl time.Duration) DedupeStore {
	return &redisDedupeStore{client: client, prefix: "intake:dedupe:", ttl: ttl}
}

func (s *redisDedupeStore) Claim(ctx context.Context, key string, submissionID int64) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, submissionID, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claiming dedupe key: %w", err)
	}
	return ok, nil
}

func (s *redisDedupeStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("releasing dedupe key: %w", err)
	}
	return nil
}

// SubmissionKey identifies a form response by its source and row. Responses
// without a row index have no stable identity and get an empty key.
func SubmissionKey(source string, rowIndex int64) string {
	if rowIndex <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/%d", source, rowIndex)
}
