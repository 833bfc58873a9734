package pool

import (
	"context"
	"sync"

	"imageUpscaler/worker/kafka"
)

// WorkerPool bounds the number of concurrent compute invocations across all
// consumer claims. Do blocks until the handler finishes so the caller can
// commit the message offset only after the job reached a terminal state.
type WorkerPool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	return &WorkerPool{
		sem: make(chan struct{}, maxWorkers),
	}
}

func (p *WorkerPool) Do(ctx context.Context, msg *kafka.JobMessage, handler kafka.MessageHandler) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.wg.Add(1)
	defer func() {
		<-p.sem
		p.wg.Done()
	}()

	return handler(ctx, msg)
}

// Wait blocks until all in-flight handlers have returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
