// Package recovery implements RecoveryService: a periodic scan that
// reclaims jobs left InProgress by a worker that crashed or was killed
// before it could report success or failure, so they become claimable
// again instead of being stuck forever.
package recovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/core/store"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// atomicRecoverer is implemented by stores (the distributed/Redis store)
// that can reclaim abandoned jobs in a single atomic operation rather
// than a read-then-write the recovery loop would have to do itself.
type atomicRecoverer interface {
	Recover(ctx context.Context, cutoff, now time.Time, retryDelayBase time.Duration) ([]uuid.UUID, error)
}

// Service periodically reclaims InProgress jobs whose LastUpdatedAt is
// older than the configured job timeout, running each one through the
// same retry-vs-exhausted decision a handler failure gets.
type Service struct {
	store          store.JobStore
	clock          clock.Clock
	interval       time.Duration
	timeout        time.Duration
	retryDelayBase time.Duration
	log            *logger.Logger
	limiter        *rate.Limiter
}

func New(s store.JobStore, c clock.Clock, interval, timeout time.Duration, log *logger.Logger, retryDelayBase time.Duration) *Service {
	return &Service{
		store:          s,
		clock:          c,
		interval:       interval,
		timeout:        timeout,
		retryDelayBase: retryDelayBase,
		log:            log,
		// Limits the in-memory path's per-job reclaim writes to 50 per
		// second (burst 50), so a large stuck backlog is not written to
		// the store all at once.
		limiter: rate.NewLimiter(rate.Limit(50), 50),
	}
}

// backoff implements delay = base * 2^retryCount, the same formula the
// job manager applies to a normal handler failure.
func (s *Service) backoff(retryCount int) time.Duration {
	return s.retryDelayBase * time.Duration(1<<uint(retryCount))
}

// Run ticks every interval until ctx is canceled, reclaiming stuck jobs
// on each tick. It returns only ctx's error, once ctx is canceled: a
// failed scan is logged and retried on the next tick, the same tolerance the teacher's ticker-based
// background loops apply to a single bad iteration.
func (s *Service) Run(ctx context.Context) error {
	if !s.store.SupportsRecovery() {
		s.log.Warn("recovery service started against a store that does not support recovery; no-op")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	now := s.clock.Now()
	cutoff := now.Add(-s.timeout)

	if recoverer, ok := s.store.(atomicRecoverer); ok {
		ids, err := recoverer.Recover(ctx, cutoff, now, s.retryDelayBase)
		if err != nil {
			s.log.Error("recovery scan failed", zapErr(err)...)
			return
		}
		if len(ids) > 0 {
			s.log.Info("recovered abandoned jobs", zapIds(ids)...)
		}
		return
	}

	s.recoverNonAtomic(ctx, cutoff, now)
}

// recoverNonAtomic is the in-memory store's path: list stuck jobs, then
// reschedule each one individually through the same retry-vs-exhausted
// decision a handler failure gets. Each per-job write waits on the rate
// limiter, so a large backlog is written at a bounded rate within the
// tick instead of as hundreds of store writes in one instant.
func (s *Service) recoverNonAtomic(ctx context.Context, cutoff, now time.Time) {
	stuck, err := s.store.ListStuckInProgress(ctx, cutoff)
	if err != nil {
		s.log.Error("recovery scan failed", zapErr(err)...)
		return
	}

	for _, j := range stuck {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		next := j
		next.WorkerId = nil

		if j.CanRetry() {
			next.RetryCount++
			retryAt := now.Add(s.backoff(next.RetryCount))
			next.RetryDelayUntil = &retryAt
			next = next.WithStatus(job.StatusScheduled, now)
		} else {
			next.Error = &job.Error{
				Code:    string(apperrors.CodeJobTimeout),
				Message: "job was abandoned by its worker and exhausted its retry budget",
			}
			next = next.WithStatus(job.StatusFailed, now)
			next.CompletedAt = &now
		}

		if err := s.store.Update(ctx, next); err != nil {
			s.log.Error("failed to recover job", zapErr(err)...)
			continue
		}
		s.log.Info("recovered abandoned job", zapIds([]uuid.UUID{j.Id})...)
	}
}
