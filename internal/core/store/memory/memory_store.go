// Package memory implements the JobStore contract against a
// mutex-guarded in-process map. It is the single-process default and the
// store every store-contract test runs against first.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/core/store"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// Store is an in-memory JobStore. All mutation happens under mu so the
// claim operation's select-check-swap is atomic with respect to other
// claims, satisfying the at-most-one-worker-per-job guarantee without a
// distributed lock.
type Store struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]job.Job
}

func New() *Store {
	return &Store{jobs: make(map[uuid.UUID]job.Job)}
}

func (s *Store) Create(ctx context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.Id]; exists {
		return apperrors.JobExists("job " + j.Id.String() + " already exists")
	}

	s.jobs[j.Id] = j
	return nil
}

func (s *Store) GetById(ctx context.Context, id uuid.UUID) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, exists := s.jobs[id]
	if !exists {
		return job.Job{}, store.NotFound(id)
	}
	return j, nil
}

func (s *Store) Update(ctx context.Context, j job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.Id]; !exists {
		return store.NotFound(j.Id)
	}

	s.jobs[j.Id] = j
	return nil
}

// ClaimNextJobForWorker picks the oldest ready job by CreatedAt (FIFO,
// the only ordering this pipeline supports), transitions it to
// InProgress, and persists the transition before returning — the
// select-check-swap happens entirely under mu so two concurrent callers
// can never claim the same job.
func (s *Store) ClaimNextJobForWorker(ctx context.Context, workerId uuid.UUID, now time.Time) (job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []job.Job
	for _, j := range s.jobs {
		if s.ready(j, now) {
			candidates = append(candidates, j)
		}
	}

	if len(candidates) == 0 {
		return job.Job{}, apperrors.JobNotFound("no ready job available")
	}

	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].CreatedAt.Before(candidates[k].CreatedAt)
	})

	claimed := candidates[0]
	worker := workerId
	claimed.WorkerId = &worker
	claimed.Status = job.StatusInProgress
	claimed.LastUpdatedAt = now
	if claimed.StartedAt == nil {
		claimed.StartedAt = &now
	}

	s.jobs[claimed.Id] = claimed
	return claimed, nil
}

func (s *Store) ready(j job.Job, now time.Time) bool {
	switch j.Status {
	case job.StatusQueued:
		return true
	case job.StatusScheduled:
		return j.RetryDelayUntil == nil || !j.RetryDelayUntil.After(now)
	default:
		return false
	}
}

func (s *Store) SupportsRecovery() bool { return true }

func (s *Store) ListStuckInProgress(ctx context.Context, olderThan time.Time) ([]job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stuck []job.Job
	for _, j := range s.jobs {
		if j.Status == job.StatusInProgress && j.LastUpdatedAt.Before(olderThan) {
			stuck = append(stuck, j)
		}
	}
	return stuck, nil
}

var _ store.JobStore = (*Store)(nil)
