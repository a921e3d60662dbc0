// Package worker runs profile compaction jobs off the queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/p2r3/epochtal/internal/adapters/mq/queue"
	"github.com/p2r3/epochtal/internal/domain/errs"
	"github.com/p2r3/epochtal/internal/domain/profile"
	"github.com/p2r3/epochtal/pkg/logger"
	"github.com/p2r3/epochtal/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Compactor rebuilds one competitor's profile.
type Compactor interface {
	Build(ctx context.Context, steamID uint64) (profile.Profile, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or it is shut down.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker runs the compactor for each dequeued job.
type InMemoryWorker struct {
	queue     Queue
	compactor Compactor
	name      string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, compactor Compactor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		compactor: compactor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			w.process(ctx, job)
		}
	}
}

// Wait blocks until Run has returned, which happens once the job channel is
// closed and drained.
func (w *InMemoryWorker) Wait(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the worker after its current job. Jobs still queued are
// left undelivered.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process builds the profile and reports the outcome on job.Result.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	_, err := w.compactor.Build(ctx, job.SteamID)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "compaction failed",
			logger.Uint64("steamid", job.SteamID),
			logger.String("kind", errs.Code(err)),
			logger.Error(err),
		)
	}
	if job.Result != nil {
		job.Result <- err
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one
// defaults to the number of CPUs.
func NewPool(workerCount int, q Queue, compactor Compactor) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, compactor, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue when it supports closing and waits for the
// workers to finish every queued job. Workers still busy when the timeout
// expires, or any worker when the queue cannot be closed, are stopped after
// their current job.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
		for i, w := range p.workers {
			if err := w.Wait(shutdownCtx); err != nil {
				p.logger.Warn(ctx, "queue drain timed out", logger.Int("worker_id", i))
				break
			}
		}
	}

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
