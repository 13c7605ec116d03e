package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	memorystore "github.com/tranvuongduy2003/jobrunner/internal/core/store/memory"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

type fakeMetrics struct {
	claimed    []string
	succeeded  []string
	failed     []string
	willRetry  []bool
	queueDepth []int
}

func (f *fakeMetrics) JobClaimed(name string) { f.claimed = append(f.claimed, name) }
func (f *fakeMetrics) JobSucceeded(name string, d time.Duration) {
	f.succeeded = append(f.succeeded, name)
}
func (f *fakeMetrics) JobFailed(name string, d time.Duration, willRetry bool) {
	f.failed = append(f.failed, name)
	f.willRetry = append(f.willRetry, willRetry)
}
func (f *fakeMetrics) SetQueueDepth(size int) { f.queueDepth = append(f.queueDepth, size) }

func setup(t *testing.T) (*manager.Manager, *handler.Registry, uuid.UUID) {
	t.Helper()
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop(), manager.WithDefaultMaxRetries(2))
	r := handler.NewRegistry()
	return m, r, uuid.New()
}

func claimJob(t *testing.T, m *manager.Manager, workerId uuid.UUID, name string) job.Job {
	t.Helper()
	_, err := m.Submit(context.Background(), job.Params{Name: name}, nil)
	require.NoError(t, err)
	claimed, err := m.ClaimNextAvailableJob(context.Background(), workerId)
	require.NoError(t, err)
	return claimed
}

func TestConsumerProcessSuccess(t *testing.T) {
	m, r, _ := setup(t)
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		return []byte("ok"), nil
	}))

	workerId := uuid.New()
	claimed := claimJob(t, m, workerId, "email")

	metrics := &fakeMetrics{}
	consumer := NewConsumer(m, r, 0, logger.NewNop(), metrics, nil)
	consumer.Process(context.Background(), claimed)

	got, err := m.GetJobById(context.Background(), claimed.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, got.Status)
	assert.Equal(t, []byte("ok"), got.Result)
	assert.Equal(t, []string{"email"}, metrics.claimed)
	assert.Equal(t, []string{"email"}, metrics.succeeded)
}

func TestConsumerProcessHandlerErrorSchedulesRetry(t *testing.T) {
	m, r, _ := setup(t)
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		return nil, errors.New("smtp unavailable")
	}))

	workerId := uuid.New()
	claimed := claimJob(t, m, workerId, "email")

	metrics := &fakeMetrics{}
	consumer := NewConsumer(m, r, 0, logger.NewNop(), metrics, nil)
	consumer.Process(context.Background(), claimed)

	got, err := m.GetJobById(context.Background(), claimed.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusScheduled, got.Status)
	require.NotNil(t, got.Error)
	assert.Contains(t, got.Error.Exception.Message, "smtp unavailable")
	assert.Equal(t, []bool{true}, metrics.willRetry)
}

func TestConsumerProcessUnregisteredHandlerFails(t *testing.T) {
	m, r, _ := setup(t)

	workerId := uuid.New()
	claimed := claimJob(t, m, workerId, "unknown")

	consumer := NewConsumer(m, r, 0, logger.NewNop(), nil, nil)
	consumer.Process(context.Background(), claimed)

	got, err := m.GetJobById(context.Background(), claimed.Id)
	require.NoError(t, err)
	assert.Equal(t, job.StatusScheduled, got.Status, "unregistered handler should still go through the normal failure/retry path")
}

func TestConsumerProcessHandlerTimeout(t *testing.T) {
	m, r, _ := setup(t)
	r.Register(job.NewHandlerFunc("slow", func(ctx job.HandlerContext) ([]byte, error) {
		time.Sleep(50 * time.Millisecond)
		return []byte("too late"), nil
	}))

	workerId := uuid.New()
	claimed := claimJob(t, m, workerId, "slow")

	consumer := NewConsumer(m, r, 5*time.Millisecond, logger.NewNop(), nil, nil)
	consumer.Process(context.Background(), claimed)

	got, err := m.GetJobById(context.Background(), claimed.Id)
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, job.StatusScheduled.String(), got.Status.String())
}
