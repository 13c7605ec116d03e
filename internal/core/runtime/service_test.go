package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	memorystore "github.com/tranvuongduy2003/jobrunner/internal/core/store/memory"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

func TestServiceStartProcessesSubmittedJobs(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())

	r := handler.NewRegistry()
	done := make(chan struct{})
	r.Register(job.NewHandlerFunc("email", func(ctx job.HandlerContext) ([]byte, error) {
		close(done)
		return []byte("ok"), nil
	}))

	metrics := &fakeMetrics{}
	svc := New(m, r, metrics, nil, logger.NewNop(), Config{
		MaximumConcurrency: 2,
		MaximumQueueSize:   4,
		PollingInterval:    time.Millisecond,
		ErrorBackoff:       time.Millisecond,
	})

	require.NoError(t, svc.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}()

	_, err := m.Submit(context.Background(), job.Params{Name: "email"}, nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected submitted job to be processed")
	}
}

func TestServiceStartTwiceReturnsError(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())
	r := handler.NewRegistry()

	svc := New(m, r, nil, nil, logger.NewNop(), Config{
		MaximumConcurrency: 1,
		MaximumQueueSize:   1,
		PollingInterval:    time.Millisecond,
		ErrorBackoff:       time.Millisecond,
	})

	require.NoError(t, svc.Start(context.Background()))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}()

	err := svc.Start(context.Background())
	assert.Error(t, err)
}

func TestServiceStopIsIdempotentWhenNotRunning(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())
	r := handler.NewRegistry()

	svc := New(m, r, nil, nil, logger.NewNop(), Config{MaximumConcurrency: 1, MaximumQueueSize: 1})

	err := svc.Stop(context.Background())
	assert.NoError(t, err)
}
