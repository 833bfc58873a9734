package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"imageUpscaler/worker/cache"
	"imageUpscaler/worker/engine"
	"imageUpscaler/worker/kafka"
	"imageUpscaler/worker/repository"
)

// ResultWriter is the slice of results.Store the processor needs.
type ResultWriter interface {
	Put(ctx context.Context, jobID, filename, contentType string, data []byte) (string, error)
}

// StatusSetter is the slice of cache.StatusCache the processor needs.
type StatusSetter interface {
	Set(ctx context.Context, jobID string, status cache.JobStatus) error
}

type Processor struct {
	repo    repository.Repository
	results ResultWriter
	cache   StatusSetter
	engine  engine.Engine
	timeout time.Duration
	logger  *zap.Logger
}

func NewProcessor(repo repository.Repository, results ResultWriter, statusCache StatusSetter, eng engine.Engine, timeout time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		repo:    repo,
		results: results,
		cache:   statusCache,
		engine:  eng,
		timeout: timeout,
		logger:  logger,
	}
}

// Process drives one job descriptor to a terminal state. A nil return means
// the descriptor is settled and its offset may be committed; an error means
// an infrastructure failure and the descriptor should be redelivered.
func (p *Processor) Process(ctx context.Context, msg *kafka.JobMessage) error {
	if err := p.repo.TransitionJob(ctx, msg.JobID, repository.StateRunning, "", ""); err != nil {
		if errors.Is(err, repository.ErrJobNotFound) || errors.Is(err, repository.ErrIllegalTransition) {
			// Duplicate delivery of a finished job, or a record that never
			// existed. Settled either way.
			p.logger.Info("Dropping descriptor for missing or terminal job",
				zap.String("trace_id", msg.TraceID),
				zap.String("job_id", msg.JobID),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("transition to running: %w", err)
	}

	p.setStatus(ctx, msg.JobID, cache.JobStatus{State: repository.StateRunning, Progress: 25})
	p.setProgress(ctx, msg.JobID, 25)

	if !p.engine.Ready() {
		return p.fail(ctx, msg, engine.ErrNotReady.Error())
	}

	p.setProgress(ctx, msg.JobID, 50)

	output, contentType, err := p.compute(ctx, msg.Payload)
	if err != nil {
		return p.fail(ctx, msg, err.Error())
	}

	filename := fmt.Sprintf("upscaled_%s.png", msg.JobID)
	ref, err := p.results.Put(ctx, msg.JobID, filename, contentType, output)
	if err != nil {
		return p.fail(ctx, msg, fmt.Sprintf("store result: %v", err))
	}

	if err := p.repo.TransitionJob(ctx, msg.JobID, repository.StateSucceeded, "", ref); err != nil {
		if errors.Is(err, repository.ErrIllegalTransition) {
			// Another delivery finished first; the result it wrote is
			// byte-equivalent, so this one simply yields.
			p.logger.Info("Terminal transition lost to concurrent delivery",
				zap.String("job_id", msg.JobID),
			)
			return nil
		}
		return fmt.Errorf("transition to succeeded: %w", err)
	}

	p.setStatus(ctx, msg.JobID, cache.JobStatus{State: repository.StateSucceeded, Progress: 100})

	p.logger.Info("Job succeeded",
		zap.String("trace_id", msg.TraceID),
		zap.String("job_id", msg.JobID),
		zap.Int("output_size", len(output)),
	)

	return nil
}

// compute runs the engine under the configured deadline. The engine call
// itself cannot be interrupted, so expiry abandons the goroutine and reports
// a compute failure; the buffered channel lets the stray call finish.
func (p *Processor) compute(ctx context.Context, payload []byte) ([]byte, string, error) {
	computeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type computed struct {
		data        []byte
		contentType string
		err         error
	}

	done := make(chan computed, 1)
	go func() {
		data, contentType, err := p.engine.Process(computeCtx, payload)
		done <- computed{data: data, contentType: contentType, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, "", fmt.Errorf("compute timed out after %s", p.timeout)
		}
		return res.data, res.contentType, res.err
	case <-computeCtx.Done():
		return nil, "", fmt.Errorf("compute timed out after %s", p.timeout)
	}
}

// fail records a terminal failure. Losing the transition race to another
// delivery is fine; anything else bubbles up for redelivery.
func (p *Processor) fail(ctx context.Context, msg *kafka.JobMessage, cause string) error {
	p.logger.Warn("Job failed",
		zap.String("trace_id", msg.TraceID),
		zap.String("job_id", msg.JobID),
		zap.String("cause", cause),
	)

	if err := p.repo.TransitionJob(ctx, msg.JobID, repository.StateFailed, cause, ""); err != nil {
		if errors.Is(err, repository.ErrIllegalTransition) || errors.Is(err, repository.ErrJobNotFound) {
			return nil
		}
		return fmt.Errorf("transition to failed: %w", err)
	}

	p.setStatus(ctx, msg.JobID, cache.JobStatus{State: repository.StateFailed, Error: cause})
	return nil
}

func (p *Processor) setStatus(ctx context.Context, jobID string, status cache.JobStatus) {
	if err := p.cache.Set(ctx, jobID, status); err != nil {
		p.logger.Warn("Status cache set failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

func (p *Processor) setProgress(ctx context.Context, jobID string, progress int) {
	if err := p.repo.UpdateProgress(ctx, jobID, progress); err != nil {
		p.logger.Warn("Progress update failed",
			zap.String("job_id", jobID),
			zap.Int("progress", progress),
			zap.Error(err),
		)
	}
}
