// Package worker runs settlement jobs from the queue on a pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/prizeboard/internal/adapters/mq/queue"
	"github.com/okian/prizeboard/internal/domain/settlement"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	defaultJobTimeout   = 2 * time.Minute
	poolShutdownTimeout = 30 * time.Second
)

// Settler settles one contest by id.
type Settler interface {
	SettleContest(ctx context.Context, contestID string) (settlement.Report, error)
}

// Releaser frees the in-flight marker of a contest.
type Releaser interface {
	Unrecord(ctx context.Context, id string)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// counters is shared by the workers of a pool.
type counters struct {
	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	issued    atomic.Int64
}

// InMemoryWorker settles jobs from a Queue.
type InMemoryWorker struct {
	queue      Queue
	settler    Settler
	releaser   Releaser
	name       string
	jobTimeout time.Duration
	stats      *counters

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, settler Settler, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		settler:    settler,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		stats:      &counters{},
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
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
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "settlement job failed",
					logger.String("contest_id", job.ContestID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	w.stats.active.Add(1)
	defer func() {
		w.stats.active.Add(-1)
		w.stats.processed.Add(1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		if w.releaser != nil {
			w.releaser.Unrecord(context.WithoutCancel(ctx), job.ContestID)
		}
	}()

	jctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	rep, err := w.settler.SettleContest(jctx, job.ContestID)
	w.stats.issued.Add(int64(rep.Issued))
	if err != nil {
		w.stats.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "settlement_error")
		return fmt.Errorf("settle %s: %w", job.ContestID, err)
	}

	w.logger.Debug(ctx, "settlement job done",
		logger.String("contest_id", job.ContestID),
		logger.String("trigger", job.Trigger),
		logger.Int("issued", rep.Issued),
		logger.Duration("waited", start.Sub(job.EnqueuedAt)),
	)
	return nil
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Issued    int64 `json:"credits_issued"`
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	stats   *counters

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers sharing opts.
func NewPool(workerCount int, q Queue, settler Settler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		stats:   &counters{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, settler, wopts...)
		w.stats = p.stats
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stats returns current pool counters and refreshes the worker gauges.
func (p *Pool) Stats() Stats {
	active := p.stats.active.Load()
	metrics.UpdateWorkerActiveCount(int(active))
	metrics.UpdateWorkerIdleCount(len(p.workers) - int(active))
	return Stats{
		Workers:   len(p.workers),
		Active:    active,
		Processed: p.stats.processed.Load(),
		Failed:    p.stats.failed.Load(),
		Issued:    p.stats.issued.Load(),
	}
}

// Shutdown closes the queue and waits for workers to finish their jobs.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
