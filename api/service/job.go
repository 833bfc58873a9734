package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageUpscaler/api/cache"
	"imageUpscaler/api/dto"
	"imageUpscaler/api/kafka"
	"imageUpscaler/api/models"
	"imageUpscaler/api/repository"
	"imageUpscaler/api/results"
)

var (
	// ErrQueueUnavailable means the job record was created but the broker
	// rejected the descriptor; the job has been marked failed.
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrNotReady means the job exists but has not reached a terminal state.
	ErrNotReady = errors.New("result not ready")

	// ErrResultExpired means the job succeeded but its result passed the
	// retention TTL and is gone.
	ErrResultExpired = errors.New("result expired")
)

// StatusCache is the slice of cache.StatusCache the service needs.
type StatusCache interface {
	Get(ctx context.Context, jobID string) (*cache.JobStatus, error)
	Set(ctx context.Context, jobID string, status cache.JobStatus) error
}

// ResultReader is the slice of results.Store the service needs.
type ResultReader interface {
	Get(ctx context.Context, ref string) (*results.Result, error)
}

type JobService struct {
	repo     repository.Repository
	cache    StatusCache
	results  ResultReader
	producer kafka.Producer
	topic    string
	logger   *zap.Logger
}

func NewJobService(repo repository.Repository, cache StatusCache, res ResultReader, producer kafka.Producer, topic string, logger *zap.Logger) *JobService {
	return &JobService{
		repo:     repo,
		cache:    cache,
		results:  res,
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Submit creates the job record first, then enqueues the descriptor. The
// order matters: a descriptor must never reference a missing record, and a
// record whose enqueue failed must not stay pending forever, so that path
// transitions the job straight to failed.
func (s *JobService) Submit(ctx context.Context, traceID, filename string, payload []byte) (*models.Job, error) {
	job := &models.Job{
		ID:               uuid.New().String(),
		TraceID:          traceID,
		OriginalFilename: filename,
		State:            models.StatePending,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, job.ID, cache.JobStatus{State: models.StatePending}); err != nil {
		s.logger.Warn("status cache set failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
	}

	msg := &kafka.JobMessage{
		JobID:    job.ID,
		TraceID:  traceID,
		Filename: filename,
		Payload:  payload,
	}
	if err := s.producer.SendJobMessage(ctx, s.topic, msg); err != nil {
		s.logger.Error("enqueue failed, failing job",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)

		fields := repository.TransitionFields{ErrorMessage: "queue unavailable: " + err.Error()}
		if terr := s.repo.TransitionJob(ctx, job.ID, models.StateFailed, fields); terr != nil {
			s.logger.Error("could not fail job after enqueue error",
				zap.String("job_id", job.ID),
				zap.Error(terr),
			)
		}
		s.cache.Set(ctx, job.ID, cache.JobStatus{State: models.StateFailed, Error: fields.ErrorMessage})

		return nil, ErrQueueUnavailable
	}

	return job, nil
}

func (s *JobService) Status(ctx context.Context, jobID string) (*dto.StatusResponse, error) {
	if status, err := s.cache.Get(ctx, jobID); err == nil {
		return &dto.StatusResponse{
			JobID:    jobID,
			State:    string(status.State),
			Progress: status.Progress,
			Error:    status.Error,
		}, nil
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, job.ID, cache.JobStatus{
		State:    job.State,
		Progress: job.Progress,
		Error:    job.ErrorMessage,
	})

	return &dto.StatusResponse{
		JobID:    job.ID,
		State:    string(job.State),
		Progress: job.Progress,
		Error:    job.ErrorMessage,
	}, nil
}

// Fetch returns the stored result bytes for a succeeded job. A failed job
// reads as not found, an unfinished job as not ready, and a succeeded job
// whose result key has expired as expired.
func (s *JobService) Fetch(ctx context.Context, jobID string) (*results.Result, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	switch job.State {
	case models.StatePending, models.StateRunning:
		return nil, ErrNotReady
	case models.StateFailed:
		return nil, repository.ErrJobNotFound
	}

	res, err := s.results.Get(ctx, job.ResultRef)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			return nil, ErrResultExpired
		}
		return nil, err
	}

	return res, nil
}
