package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	memorystore "github.com/tranvuongduy2003/jobrunner/internal/core/store/memory"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/clock"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
)

func TestProducerClaimsAndEnqueuesReadyJob(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())

	_, err := m.Submit(context.Background(), job.Params{Name: "email"}, nil)
	require.NoError(t, err)

	queue := make(chan job.Job, 1)
	p := NewProducer(m, queue, time.Millisecond, time.Millisecond, 1, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go p.Run(ctx)

	select {
	case j := <-queue:
		assert.Equal(t, "email", j.Name)
		assert.Equal(t, job.StatusInProgress, j.Status)
	case <-time.After(40 * time.Millisecond):
		t.Fatal("expected producer to enqueue the ready job")
	}
}

func TestProducerClaimsUpToBatchSizePerPoll(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())

	for i := 0; i < 3; i++ {
		_, err := m.Submit(context.Background(), job.Params{Name: "email"}, nil)
		require.NoError(t, err)
	}

	queue := make(chan job.Job, 3)
	p := NewProducer(m, queue, time.Hour, time.Millisecond, 3, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return len(queue) == 3
	}, 40*time.Millisecond, time.Millisecond, "expected producer to claim all 3 ready jobs within one batch")
}

func TestProducerStopsOnContextCancel(t *testing.T) {
	s := memorystore.New()
	c := clock.NewFake(time.Now().UTC())
	m := manager.New(s, c, logger.NewNop())

	queue := make(chan job.Job, 1)
	p := NewProducer(m, queue, time.Millisecond, time.Millisecond, 1, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
