package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

func newJob(name string, createdAt time.Time) job.Job {
	return job.New(uuid.New(), job.Params{Name: name, MaxRetries: 3}, createdAt)
}

func TestCreateAndGetById(t *testing.T) {
	s := New()
	j := newJob("email", time.Now().UTC())

	require.NoError(t, s.Create(context.Background(), j))

	got, err := s.GetById(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, j, got)
}

func TestCreateRejectsDuplicateId(t *testing.T) {
	s := New()
	j := newJob("email", time.Now().UTC())
	require.NoError(t, s.Create(context.Background(), j))

	err := s.Create(context.Background(), j)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobExists, appErr.Code)
}

func TestGetByIdNotFound(t *testing.T) {
	s := New()
	_, err := s.GetById(context.Background(), uuid.New())
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestUpdateNotFound(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), newJob("email", time.Now().UTC()))
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestClaimNextJobForWorkerFIFOOrdering(t *testing.T) {
	s := New()
	base := time.Now().UTC()

	first := newJob("first", base)
	second := newJob("second", base.Add(time.Second))
	require.NoError(t, s.Create(context.Background(), second))
	require.NoError(t, s.Create(context.Background(), first))

	workerId := uuid.New()
	claimed, err := s.ClaimNextJobForWorker(context.Background(), workerId, base.Add(2*time.Second))
	require.NoError(t, err)

	assert.Equal(t, first.Id, claimed.Id, "oldest created job should be claimed first")
	assert.Equal(t, job.StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.WorkerId)
	assert.Equal(t, workerId, *claimed.WorkerId)
	require.NotNil(t, claimed.StartedAt)
}

func TestClaimNextJobForWorkerReturnsNotFoundWhenNoneReady(t *testing.T) {
	s := New()
	_, err := s.ClaimNextJobForWorker(context.Background(), uuid.New(), time.Now().UTC())
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestClaimNextJobForWorkerSkipsScheduledNotYetDue(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	j := newJob("email", now)
	future := now.Add(time.Hour)
	j.Status = job.StatusScheduled
	j.RetryDelayUntil = &future
	require.NoError(t, s.Create(context.Background(), j))

	_, err := s.ClaimNextJobForWorker(context.Background(), uuid.New(), now)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestClaimNextJobForWorkerClaimsDueScheduledJob(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	j := newJob("email", now)
	due := now.Add(-time.Second)
	j.Status = job.StatusScheduled
	j.RetryDelayUntil = &due
	require.NoError(t, s.Create(context.Background(), j))

	claimed, err := s.ClaimNextJobForWorker(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, j.Id, claimed.Id)
}

func TestClaimNextJobForWorkerConcurrentSafety(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, s.Create(context.Background(), newJob("email", base.Add(time.Duration(i)*time.Millisecond))))
	}

	var wg sync.WaitGroup
	claimedIds := make(chan uuid.UUID, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := s.ClaimNextJobForWorker(context.Background(), uuid.New(), base.Add(time.Hour))
			if err == nil {
				claimedIds <- claimed.Id
			}
		}()
	}
	wg.Wait()
	close(claimedIds)

	seen := make(map[uuid.UUID]bool)
	for id := range claimedIds {
		assert.False(t, seen[id], "no job should be claimed twice")
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestListStuckInProgress(t *testing.T) {
	s := New()
	now := time.Now().UTC()

	stuckWorker := uuid.New()
	stuck := newJob("email", now.Add(-time.Hour))
	stuck.Status = job.StatusInProgress
	stuck.WorkerId = &stuckWorker
	stuck.LastUpdatedAt = now.Add(-time.Hour)
	require.NoError(t, s.Create(context.Background(), stuck))

	fresh := newJob("email", now)
	fresh.Status = job.StatusInProgress
	freshWorker := uuid.New()
	fresh.WorkerId = &freshWorker
	fresh.LastUpdatedAt = now
	require.NoError(t, s.Create(context.Background(), fresh))

	results, err := s.ListStuckInProgress(context.Background(), now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stuck.Id, results[0].Id)
}

func TestSupportsRecovery(t *testing.T) {
	s := New()
	assert.True(t, s.SupportsRecovery())
}
