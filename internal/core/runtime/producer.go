package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// Producer repeatedly claims ready jobs, up to batchSize per poll, and
// hands each to the bounded queue. It never processes a job itself;
// BackgroundService's consumers do that, so a slow handler never blocks
// the claim loop for longer than it takes the queue to drain one slot.
type Producer struct {
	workerId        uuid.UUID
	manager         *manager.Manager
	queue           chan<- job.Job
	pollingInterval time.Duration
	errorBackoff    time.Duration
	batchSize       int
	log             *logger.Logger
}

func NewProducer(m *manager.Manager, queue chan<- job.Job, pollingInterval, errorBackoff time.Duration, batchSize int, log *logger.Logger) *Producer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Producer{
		workerId:        uuid.New(),
		manager:         m,
		queue:           queue,
		pollingInterval: pollingInterval,
		errorBackoff:    errorBackoff,
		batchSize:       batchSize,
		log:             log,
	}
}

// Run blocks until ctx is canceled. Each iteration claims up to
// batchSize ready jobs. An iteration that claims nothing sleeps for
// pollingInterval and one that hits a transient store error sleeps for
// errorBackoff; an iteration that claimed at least one job polls again
// immediately.
func (p *Producer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		claimed, err := p.claimBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			p.log.Error("claim failed", zapErr(err)...)
			if !p.sleep(ctx, p.errorBackoff) {
				return ctx.Err()
			}
			continue
		}

		if claimed == 0 {
			if !p.sleep(ctx, p.pollingInterval) {
				return ctx.Err()
			}
		}
	}
}

// claimBatch claims up to batchSize ready jobs, enqueuing each as it's
// claimed, and returns the number successfully enqueued. Running out of
// ready jobs before the batch is full is not an error; a transient store
// error is, and stops the batch early.
func (p *Producer) claimBatch(ctx context.Context) (int, error) {
	claimed := 0
	for i := 0; i < p.batchSize; i++ {
		j, err := p.manager.ClaimNextAvailableJob(ctx, p.workerId)
		if err != nil {
			if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.CodeJobNotFound {
				return claimed, nil
			}
			return claimed, err
		}

		select {
		case p.queue <- j:
			claimed++
		case <-ctx.Done():
			return claimed, ctx.Err()
		}
	}
	return claimed, nil
}

func (p *Producer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
