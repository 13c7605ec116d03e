// Package store defines the JobStore contract every persistence backend
// (in-memory, distributed/Redis) implements, and the tagged result types
// every operation returns instead of raising.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// JobStore is the persistence boundary the manager, producer, and
// recovery loop operate through. No operation panics or returns a bare
// Go error for an expected outcome (not found, already claimed, already
// exists) — those are represented as an *apperrors.Error with a stable
// Code so callers can branch on it without string matching.
type JobStore interface {
	// Create persists a brand-new job. Returns apperrors.CodeJobExists
	// if a job with this Id is already stored.
	Create(ctx context.Context, j job.Job) error

	// GetById returns the current snapshot of a job, or
	// apperrors.CodeJobNotFound.
	GetById(ctx context.Context, id uuid.UUID) (job.Job, error)

	// Update replaces the stored snapshot for j.Id with j. Returns
	// apperrors.CodeJobNotFound if the job is not stored.
	Update(ctx context.Context, j job.Job) error

	// ClaimNextJobForWorker atomically selects one ready job (Queued, or
	// Scheduled with RetryDelayUntil due), transitions it to InProgress
	// with WorkerId set, and returns it. Returns apperrors.CodeJobNotFound
	// (not an error condition — an empty queue) if nothing is ready.
	ClaimNextJobForWorker(ctx context.Context, workerId uuid.UUID, now time.Time) (job.Job, error)

	// SupportsRecovery reports whether this store can enumerate abandoned
	// InProgress jobs for the recovery loop. The in-memory store does;
	// callers should not schedule a RecoveryService against a store that
	// returns false.
	SupportsRecovery() bool

	// ListStuckInProgress returns InProgress jobs whose LastUpdatedAt is
	// older than olderThan, for the recovery loop to reclaim. Only
	// meaningful when SupportsRecovery is true.
	ListStuckInProgress(ctx context.Context, olderThan time.Time) ([]job.Job, error)
}

// NotFound is a convenience constructor so store implementations don't
// each hand-roll the same message.
func NotFound(id uuid.UUID) error {
	return apperrors.JobNotFound("job " + id.String() + " not found")
}
