// Package manager implements JobManager: the single entry point that
// Submit, claim, success, failure, and lookup all go through, so every
// store implementation sees the same state machine and retry policy
// regardless of which one is configured.
package manager

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/core/store"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// Manager is the JobManager: Submit, ClaimNextAvailableJob,
// ProcessJobSuccess, ProcessJobFailure, and GetJobById.
type Manager struct {
	store           store.JobStore
	clock           clock.Clock
	validator       *job.Validator
	log             *logger.Logger
	retryDelayBase  time.Duration
	defaultRetries  int
}

type Option func(*Manager)

func WithRetryDelayBase(d time.Duration) Option {
	return func(m *Manager) { m.retryDelayBase = d }
}

func WithDefaultMaxRetries(n int) Option {
	return func(m *Manager) { m.defaultRetries = n }
}

func New(s store.JobStore, c clock.Clock, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:          s,
		clock:          c,
		validator:      job.NewValidator(),
		log:            log,
		retryDelayBase: 2 * time.Second,
		defaultRetries: 3,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit creates and persists a new job. When idempotencyId is non-nil,
// an existing job with that id is returned as-is instead of being
// recreated, making repeated submissions with the same Async-Job-Id safe.
func (m *Manager) Submit(ctx context.Context, p job.Params, idempotencyId *uuid.UUID) (job.Job, error) {
	if p.Name == "" {
		return job.Job{}, apperrors.InvalidJob("job name is required")
	}

	id := uuid.New()
	if idempotencyId != nil {
		id = *idempotencyId
		if existing, err := m.store.GetById(ctx, id); err == nil {
			return existing, nil
		}
	}

	if p.MaxRetries == 0 {
		p.MaxRetries = m.defaultRetries
	}

	now := m.clock.Now()
	j := job.New(id, p, now)

	if err := m.validator.Validate(j); err != nil {
		return job.Job{}, apperrors.InvalidJob(err.Error())
	}

	if err := m.store.Create(ctx, j); err != nil {
		if appErr, ok := apperrors.As(err); ok {
			return job.Job{}, appErr
		}
		return job.Job{}, apperrors.SubmissionError("failed to submit job", err)
	}

	m.log.Info("job submitted", zapFields(j)...)
	return j, nil
}

// ClaimNextAvailableJob atomically claims one ready job for workerId, or
// returns apperrors.CodeJobNotFound when nothing is ready — an expected,
// frequent outcome, not a failure.
func (m *Manager) ClaimNextAvailableJob(ctx context.Context, workerId uuid.UUID) (job.Job, error) {
	j, err := m.store.ClaimNextJobForWorker(ctx, workerId, m.clock.Now())
	if err != nil {
		return job.Job{}, err
	}
	return j, nil
}

// ProcessJobSuccess records a successful handler execution. The caller
// must be the worker that currently holds the job's claim.
func (m *Manager) ProcessJobSuccess(ctx context.Context, jobId, workerId uuid.UUID, result []byte) (job.Job, error) {
	current, err := m.fetchClaimed(ctx, jobId, workerId)
	if err != nil {
		return job.Job{}, err
	}

	if err := job.ValidateTransition(current.Status, job.StatusCompleted); err != nil {
		return job.Job{}, apperrors.InvalidStateTransition(err.Error())
	}

	now := m.clock.Now()
	next := current.WithStatus(job.StatusCompleted, now)
	next.Result = result
	next.CompletedAt = &now
	next.WorkerId = nil

	if err := m.store.Update(ctx, next); err != nil {
		return job.Job{}, storeErr(err)
	}

	m.log.Info("job completed", zapFields(next)...)
	return next, nil
}

// ProcessJobFailure records a failed handler execution. If the job still
// has retry budget, it moves to Scheduled with RetryDelayUntil computed
// from the exponential backoff base*2^retryCount; otherwise it moves to
// the terminal Failed state with jobErr recorded.
func (m *Manager) ProcessJobFailure(ctx context.Context, jobId, workerId uuid.UUID, jobErr *job.Error) (job.Job, error) {
	current, err := m.fetchClaimed(ctx, jobId, workerId)
	if err != nil {
		return job.Job{}, err
	}

	now := m.clock.Now()
	next := current
	next.Error = jobErr
	next.WorkerId = nil

	if current.CanRetry() {
		if err := job.ValidateTransition(current.Status, job.StatusScheduled); err != nil {
			return job.Job{}, apperrors.InvalidStateTransition(err.Error())
		}
		next.RetryCount++
		delay := m.backoff(next.RetryCount)
		retryAt := now.Add(delay)
		next.RetryDelayUntil = &retryAt
		next = next.WithStatus(job.StatusScheduled, now)
	} else {
		if err := job.ValidateTransition(current.Status, job.StatusFailed); err != nil {
			return job.Job{}, apperrors.InvalidStateTransition(err.Error())
		}
		next = next.WithStatus(job.StatusFailed, now)
		next.CompletedAt = &now
	}

	if err := m.store.Update(ctx, next); err != nil {
		return job.Job{}, storeErr(err)
	}

	m.log.Warn("job failed", zapFields(next)...)
	return next, nil
}

// GetJobById returns the current snapshot of a job.
func (m *Manager) GetJobById(ctx context.Context, id uuid.UUID) (job.Job, error) {
	j, err := m.store.GetById(ctx, id)
	if err != nil {
		return job.Job{}, err
	}
	return j, nil
}

// backoff implements delay = base * 2^retryCount.
func (m *Manager) backoff(retryCount int) time.Duration {
	return m.retryDelayBase * time.Duration(1<<uint(retryCount))
}

func (m *Manager) fetchClaimed(ctx context.Context, jobId, workerId uuid.UUID) (job.Job, error) {
	current, err := m.store.GetById(ctx, jobId)
	if err != nil {
		return job.Job{}, err
	}

	if current.Status != job.StatusInProgress || current.WorkerId == nil || *current.WorkerId != workerId {
		return job.Job{}, apperrors.JobNotClaimed("job " + jobId.String() + " is not claimed by worker " + workerId.String())
	}

	return current, nil
}

func storeErr(err error) error {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.StoreError("store operation failed", err)
}
