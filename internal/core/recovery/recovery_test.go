package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	memorystore "github.com/tranvuongduy2003/jobrunner/internal/core/store/memory"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

func TestTickReclaimsStuckInProgressJobWithRetryBudget(t *testing.T) {
	now := time.Now().UTC()
	s := memorystore.New()
	c := clock.NewFake(now)

	stuckWorker := uuid.New()
	stuck := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now.Add(-time.Hour))
	stuck.Status = job.StatusInProgress
	stuck.WorkerId = &stuckWorker
	stuck.LastUpdatedAt = now.Add(-time.Hour)
	require.NoError(t, s.Create(context.Background(), stuck))

	svc := New(s, c, time.Second, 10*time.Minute, logger.NewNop(), time.Second)
	svc.tick(context.Background())

	got, err := s.GetById(context.Background(), stuck.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusScheduled, got.Status)
	assert.Nil(t, got.WorkerId)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.RetryDelayUntil)
	assert.True(t, got.RetryDelayUntil.After(now))
}

func TestTickFailsStuckInProgressJobThatExhaustedRetryBudget(t *testing.T) {
	now := time.Now().UTC()
	s := memorystore.New()
	c := clock.NewFake(now)

	stuckWorker := uuid.New()
	stuck := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 1}, now.Add(-time.Hour))
	stuck.Status = job.StatusInProgress
	stuck.WorkerId = &stuckWorker
	stuck.RetryCount = 1
	stuck.LastUpdatedAt = now.Add(-time.Hour)
	require.NoError(t, s.Create(context.Background(), stuck))

	svc := New(s, c, time.Second, 10*time.Minute, logger.NewNop(), time.Second)
	svc.tick(context.Background())

	got, err := s.GetById(context.Background(), stuck.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusFailed, got.Status)
	assert.Nil(t, got.WorkerId)
	assert.Nil(t, got.RetryDelayUntil)
	require.NotNil(t, got.Error)
	assert.Equal(t, "JOB_TIMEOUT", got.Error.Code)
	require.NotNil(t, got.CompletedAt)
}

func TestTickLeavesRecentInProgressJobAlone(t *testing.T) {
	now := time.Now().UTC()
	s := memorystore.New()
	c := clock.NewFake(now)

	recentWorker := uuid.New()
	recent := job.New(uuid.New(), job.Params{Name: "email", MaxRetries: 3}, now)
	recent.Status = job.StatusInProgress
	recent.WorkerId = &recentWorker
	recent.LastUpdatedAt = now
	require.NoError(t, s.Create(context.Background(), recent))

	svc := New(s, c, time.Second, 10*time.Minute, logger.NewNop(), time.Second)
	svc.tick(context.Background())

	got, err := s.GetById(context.Background(), recent.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusInProgress, got.Status)
	require.NotNil(t, got.WorkerId)
}

func TestRunNoopsWhenStoreDoesNotSupportRecovery(t *testing.T) {
	svc := New(noRecoveryStore{}, clock.NewFake(time.Now().UTC()), time.Millisecond, time.Minute, logger.NewNop(), time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type noRecoveryStore struct{}

func (noRecoveryStore) Create(ctx context.Context, j job.Job) error       { return nil }
func (noRecoveryStore) GetById(ctx context.Context, id uuid.UUID) (job.Job, error) {
	return job.Job{}, nil
}
func (noRecoveryStore) Update(ctx context.Context, j job.Job) error { return nil }
func (noRecoveryStore) ClaimNextJobForWorker(ctx context.Context, workerId uuid.UUID, now time.Time) (job.Job, error) {
	return job.Job{}, nil
}
func (noRecoveryStore) SupportsRecovery() bool { return false }
func (noRecoveryStore) ListStuckInProgress(ctx context.Context, olderThan time.Time) ([]job.Job, error) {
	return nil, nil
}
