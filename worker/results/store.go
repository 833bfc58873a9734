package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const refPrefix = "result:"

type Result struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store writes completed job output to Redis under a fixed TTL. The key
// doubles as the result ref recorded on the job row. Writes are idempotent:
// a redelivered job that recomputes overwrites the same key with equivalent
// bytes before its terminal transition gets rejected.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Put(ctx context.Context, jobID, filename, contentType string, data []byte) (string, error) {
	res := Result{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now().UTC(),
	}

	encoded, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	ref := refPrefix + jobID
	if err := s.client.Set(ctx, ref, encoded, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store result %s: %w", ref, err)
	}

	return ref, nil
}
