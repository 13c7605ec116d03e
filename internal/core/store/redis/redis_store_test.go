package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func truncSecond(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0).UTC()
}

func TestRedisCreateAndGetById(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)

	require.NoError(t, s.Create(context.Background(), j))

	got, err := s.GetById(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, j.Id, got.Id)
	assert.Equal(t, j.Name, got.Name)
	assert.Equal(t, job.StatusQueued, got.Status)
	assert.Equal(t, now, got.CreatedAt)
}

func TestRedisCreateRejectsDuplicate(t *testing.T) {
	s := newTestStore(t)
	j := job.New(uuid.New(), job.Params{Name: "email"}, truncSecond(time.Now().UTC()))
	require.NoError(t, s.Create(context.Background(), j))

	err := s.Create(context.Background(), j)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobExists, appErr.Code)
}

func TestRedisGetByIdNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetById(context.Background(), uuid.New())
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestRedisClaimNextJobForWorker(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)
	require.NoError(t, s.Create(context.Background(), j))

	workerId := uuid.New()
	claimed, err := s.ClaimNextJobForWorker(context.Background(), workerId, now.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, j.Id, claimed.Id)
	assert.Equal(t, job.StatusInProgress, claimed.Status)
	require.NotNil(t, claimed.WorkerId)
	assert.Equal(t, workerId, *claimed.WorkerId)
	require.NotNil(t, claimed.StartedAt)
}

func TestRedisClaimNextJobForWorkerEmptyReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ClaimNextJobForWorker(context.Background(), uuid.New(), time.Now().UTC())
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeJobNotFound, appErr.Code)
}

func TestRedisUpdateToTerminalRemovesFromProcessing(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)
	require.NoError(t, s.Create(context.Background(), j))

	workerId := uuid.New()
	claimed, err := s.ClaimNextJobForWorker(context.Background(), workerId, now)
	require.NoError(t, err)

	completedAt := now.Add(time.Second)
	next := claimed.WithStatus(job.StatusCompleted, completedAt)
	next.CompletedAt = &completedAt
	next.WorkerId = nil

	require.NoError(t, s.Update(context.Background(), next))

	stuck, err := s.ListStuckInProgress(context.Background(), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stuck, "completed job should no longer be in the processing set")

	got, err := s.GetById(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, got.Status)
}

func TestRedisUpdateToScheduledRejoinsReadySet(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)
	require.NoError(t, s.Create(context.Background(), j))

	workerId := uuid.New()
	claimed, err := s.ClaimNextJobForWorker(context.Background(), workerId, now)
	require.NoError(t, err)

	retryAt := now.Add(-time.Second) // already due
	next := claimed.WithStatus(job.StatusScheduled, now.Add(time.Second))
	next.RetryDelayUntil = &retryAt
	next.RetryCount = 1
	next.WorkerId = nil

	require.NoError(t, s.Update(context.Background(), next))

	workerId2 := uuid.New()
	reclaimed, err := s.ClaimNextJobForWorker(context.Background(), workerId2, now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, j.Id, reclaimed.Id, "rescheduled job should rejoin the ready set and be claimable again")
}

func TestRedisRecoverReclaimsAbandonedJobWithRetryBudget(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)
	require.NoError(t, s.Create(context.Background(), j))

	workerId := uuid.New()
	_, err := s.ClaimNextJobForWorker(context.Background(), workerId, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	ids, err := s.Recover(context.Background(), now.Add(time.Minute), later, time.Second)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, j.Id, ids[0])

	got, err := s.GetById(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusScheduled, got.Status)
	assert.Nil(t, got.WorkerId)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.RetryDelayUntil)
	assert.True(t, got.RetryDelayUntil.After(later) || got.RetryDelayUntil.Equal(later))
}

func TestRedisRecoverFailsAbandonedJobThatExhaustedRetryBudget(t *testing.T) {
	s := newTestStore(t)
	now := truncSecond(time.Now().UTC())
	j := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 1}, now)
	j.RetryCount = 1
	require.NoError(t, s.Create(context.Background(), j))

	workerId := uuid.New()
	_, err := s.ClaimNextJobForWorker(context.Background(), workerId, now)
	require.NoError(t, err)

	later := now.Add(time.Hour)
	ids, err := s.Recover(context.Background(), now.Add(time.Minute), later, time.Second)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err := s.GetById(context.Background(), j.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Nil(t, got.WorkerId)
	assert.Nil(t, got.RetryDelayUntil)
	require.NotNil(t, got.Error)
	assert.Equal(t, "JOB_TIMEOUT", got.Error.Code)
	require.NotNil(t, got.CompletedAt)

	stuck, err := s.ListStuckInProgress(context.Background(), later.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stuck, "a job failed out of recovery must not remain claimable")
}

func TestRedisSupportsRecovery(t *testing.T) {
	s := newTestStore(t)
	assert.True(t, s.SupportsRecovery())
}
