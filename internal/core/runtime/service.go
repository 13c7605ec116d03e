// Package runtime implements BackgroundService: the bounded queue,
// concurrency semaphore, producer goroutine, and consumer pool that turn
// claimed jobs into handler executions, plus the graceful shutdown that
// drains in-flight work before returning.
package runtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

// Config bundles the tunables from the Jobs configuration section that
// shape BackgroundService's concurrency.
type Config struct {
	MaximumConcurrency int
	MaximumQueueSize   int
	PollingInterval    time.Duration
	ErrorBackoff       time.Duration
	BatchSize          int
	JobTimeout         time.Duration
	ShutdownGrace      time.Duration
}

// Service owns the bounded queue + semaphore + producer + consumer pool.
// It is the BackgroundService component: one per process, started once
// and stopped once.
type Service struct {
	cfg      Config
	producer *Producer
	consumer *Consumer
	metrics  Metrics
	log      *logger.Logger

	queue chan job.Job
	sem   chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

func New(m *manager.Manager, registry *handler.Registry, metrics Metrics, tracer Tracer, log *logger.Logger, cfg Config) *Service {
	queue := make(chan job.Job, cfg.MaximumQueueSize)
	return &Service{
		cfg:      cfg,
		producer: NewProducer(m, queue, cfg.PollingInterval, cfg.ErrorBackoff, cfg.BatchSize, log),
		consumer: NewConsumer(m, registry, cfg.JobTimeout, log, metrics, tracer),
		metrics:  metrics,
		log:      log,
		queue:    queue,
		sem:      make(chan struct{}, cfg.MaximumConcurrency),
	}
}

// Start launches the producer and the dispatch loop that hands queued
// jobs to consumer goroutines, bounded by the concurrency semaphore.
// Start returns once both are running; it does not block.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("background service already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})
	s.running = true

	go func() {
		defer close(s.stopped)

		group, groupCtx := errgroup.WithContext(runCtx)
		group.Go(func() error {
			return s.producer.Run(groupCtx)
		})
		group.Go(func() error {
			return s.dispatch(groupCtx)
		})
		if s.metrics != nil {
			group.Go(func() error {
				return s.sampleQueueDepth(groupCtx)
			})
		}

		if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("background service stopped with error", zapErr(err)...)
		}
	}()

	return nil
}

func (s *Service) dispatch(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-s.queue:
			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

			wg.Add(1)
			go func(j job.Job) {
				defer wg.Done()
				defer func() { <-s.sem }()
				s.consumer.Process(ctx, j)
			}(j)
		}
	}
}

// sampleQueueDepth periodically reports the bounded queue's current
// occupancy, so the gauge reflects backlog even between claims.
func (s *Service) sampleQueueDepth(ctx context.Context) error {
	interval := s.cfg.PollingInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.metrics.SetQueueDepth(len(s.queue))
		}
	}
}

// Stop cancels the run context and waits up to ShutdownGrace for
// in-flight handler executions to finish before returning.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	stopped := s.stopped
	running := s.running
	s.running = false
	s.mu.Unlock()

	if !running {
		return nil
	}

	cancel()

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 30 * time.Second
	}

	select {
	case <-stopped:
		return nil
	case <-time.After(grace):
		s.log.Warn("background service shutdown grace period elapsed with work still in flight")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
