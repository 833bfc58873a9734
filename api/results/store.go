package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"imageUpscaler/api/database"
)

const refPrefix = "result:"

// ErrNotFound covers both a result that was never written and one whose TTL
// has elapsed; the store cannot tell them apart, the job record can.
var ErrNotFound = errors.New("result not found")

type Result struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store reads completed job output from Redis. The ref is the Redis key,
// written by the worker with an expiry; callers treat it as opaque.
type Store struct {
	cache *database.Cache
}

func NewStore(cache *database.Cache) *Store {
	return &Store{cache: cache}
}

func RefFor(jobID string) string {
	return refPrefix + jobID
}

func (s *Store) Get(ctx context.Context, ref string) (*Result, error) {
	data, err := s.cache.Get(ctx, ref)
	if err != nil {
		if database.IsMiss(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read result %s: %w", ref, err)
	}

	var res Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode result %s: %w", ref, err)
	}

	return &res, nil
}
