// Package service wires the store, settlement distributor, queue and worker
// pool into the operations the HTTP API and CLI need.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	jobqueue "github.com/okian/prizeboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/prizeboard/internal/adapters/mq/worker"
	"github.com/okian/prizeboard/internal/adapters/repository"
	"github.com/okian/prizeboard/internal/domain/dedupe"
	"github.com/okian/prizeboard/internal/domain/settlement"
	"github.com/okian/prizeboard/pkg/logger"
	"github.com/okian/prizeboard/pkg/metrics"
)

// Service implements the API dependencies for contest prizes.
type Service struct {
	mu sync.RWMutex

	store       repository.Store
	deduper     dedupe.Deduper
	queue       *jobqueue.InMemoryQueue
	pool        *workerpool.Pool
	distributor *settlement.Distributor

	workerCount         int
	queueSize           int
	dedupeSize          int
	settlementInterval  time.Duration
	jobTimeout          time.Duration
	maxLeaderboardLimit int
	now                 func() time.Time

	started       bool
	stopping      bool
	stopCh        chan struct{}
	schedulerDone chan struct{}

	logger logger.Logger
}

// New constructs a Service. Without WithStore it keeps data in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU(),
		queueSize:           1024,
		dedupeSize:          10000,
		settlementInterval:  0,
		maxLeaderboardLimit: 1000,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start builds the settlement pipeline and starts workers and the scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting prize service")

	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.distributor = settlement.NewDistributor(s.store, s.store,
		settlement.WithClock(s.now),
		settlement.WithLogger(s.logger.Named("settlement")),
	)
	wopts := []workerpool.Option{workerpool.WithReleaser(s.deduper)}
	if s.jobTimeout > 0 {
		wopts = append(wopts, workerpool.WithJobTimeout(s.jobTimeout))
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, wopts...)
	s.pool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.schedulerDone = make(chan struct{})
	if s.settlementInterval > 0 {
		go s.runScheduler(context.WithoutCancel(ctx))
	} else {
		close(s.schedulerDone)
	}

	s.started = true
	s.logger.Info(ctx, "prize service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("settlementInterval", s.settlementInterval),
	)
	return nil
}

// Stop drains pending settlements and closes the store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	stopCh, schedulerDone, pool := s.stopCh, s.schedulerDone, s.pool
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping prize service")

	// Workers and the scheduler call back into the service, so the lock
	// must not be held while they drain.
	close(stopCh)
	<-schedulerDone

	var errs []error
	if err := pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.mu.Lock()
	s.started = false
	s.stopping = false
	s.mu.Unlock()

	s.logger.Info(ctx, "prize service stopped")
	return errors.Join(errs...)
}

func (s *Service) runScheduler(ctx context.Context) {
	defer close(s.schedulerDone)

	ticker := time.NewTicker(s.settlementInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			n, err := s.EnqueueEnded(ctx, "schedule")
			if err != nil {
				s.logger.Warn(ctx, "scheduled settlement incomplete", logger.Int("queued", n), logger.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "scheduled settlement queued", logger.Int("queued", n))
			}
		}
	}
}

// pipeline returns the settlement components, or ErrNotStarted.
func (s *Service) pipeline() (*settlement.Distributor, *jobqueue.InMemoryQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.distributor, s.queue, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"workerCount":        s.workerCount,
		"queueSize":          s.queueSize,
		"settlementInterval": s.settlementInterval.String(),
		"jobTimeout":         s.jobTimeout.String(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["inFlight"] = s.deduper.Size()
		stats["workers"] = s.pool.Stats()
	}
	metrics.UpdateWorkerCount(s.workerCount)
	return stats
}
