package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"imageUpscaler/api/database"
	"imageUpscaler/api/models"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// JobStatus is the cached slice of a job record needed to answer a status
// poll without touching Postgres. The worker refreshes it on every change.
type JobStatus struct {
	State    models.JobState `json:"state"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (*JobStatus, error) {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var status JobStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func (sc *StatusCache) Set(ctx context.Context, jobID string, status JobStatus) error {
	key := fmt.Sprintf("%s%s", statusKeyPrefix, jobID)

	data, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, statusTTL)
}
