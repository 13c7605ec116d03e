package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/core/handler"
	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/internal/infrastructure/logger"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
)

// Metrics is the observability collaborator a Consumer reports through.
// A nil Metrics is valid; every call is a no-op guarded at the call site.
type Metrics interface {
	JobClaimed(name string)
	JobSucceeded(name string, duration time.Duration)
	JobFailed(name string, duration time.Duration, willRetry bool)
	SetQueueDepth(size int)
}

// Tracer starts a span around one handler execution and returns the
// derived context plus a function that ends the span.
type Tracer interface {
	StartHandlerSpan(ctx context.Context, jobId uuid.UUID, name string) (context.Context, func())
}

// Consumer pulls claimed jobs off the bounded queue and runs them through
// the registered Handler, the 8-step sequence §4.5 names: resolve
// handler, build the handler's view of the job, derive a bounded
// execution context, start a trace span, invoke the handler, report the
// outcome to the manager, record metrics, and release the slot.
type Consumer struct {
	manager    *manager.Manager
	registry   *handler.Registry
	jobTimeout time.Duration
	log        *logger.Logger
	metrics    Metrics
	tracer     Tracer
}

func NewConsumer(m *manager.Manager, r *handler.Registry, jobTimeout time.Duration, log *logger.Logger, metrics Metrics, tracer Tracer) *Consumer {
	return &Consumer{
		manager:    m,
		registry:   r,
		jobTimeout: jobTimeout,
		log:        log,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Process runs the full handler-invocation sequence for one claimed job.
// ctx should be the consumer pool's shutdown-derived context; Process
// layers its own per-job timeout underneath it.
func (c *Consumer) Process(ctx context.Context, j job.Job) {
	start := time.Now()

	// 1. resolve the handler registered for this job's name.
	h, err := c.registry.Resolve(j.Name)
	if err != nil {
		c.fail(ctx, j, start, apperrors.CodeHandlerNotRegistered, err.Error(), nil)
		return
	}

	// 2. build the handler's view of the job.
	hctx := job.HandlerContext{
		JobId:       j.Id.String(),
		Payload:     j.Payload,
		Headers:     j.Headers,
		RouteParams: j.RouteParams,
		QueryParams: j.QueryParams,
		RetryCount:  j.RetryCount,
	}

	// 3. derive a bounded execution context, nested under shutdown.
	execCtx := ctx
	var cancel context.CancelFunc
	if c.jobTimeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, c.jobTimeout)
		defer cancel()
	}

	// 4. start a trace span for the handler execution.
	if c.tracer != nil {
		var end func()
		execCtx, end = c.tracer.StartHandlerSpan(execCtx, j.Id, j.Name)
		defer end()
	}

	if c.metrics != nil {
		c.metrics.JobClaimed(j.Name)
	}

	// 5. invoke the handler.
	result, execErr := c.runHandler(execCtx, h, hctx)

	// 6/7. report the outcome to the manager.
	if execErr != nil {
		code := string(apperrors.CodeHandlerExecutionError)
		message := execErr.Error()
		if execCtx.Err() == context.DeadlineExceeded {
			code = string(apperrors.CodeJobTimeout)
			message = "handler execution exceeded its timeout"
		}
		c.fail(ctx, j, start, apperrors.Code(code), message, execErr)
		return
	}

	c.succeed(ctx, j, start, result)
}

func (c *Consumer) runHandler(ctx context.Context, h job.Handler, hctx job.HandlerContext) ([]byte, error) {
	type outcome struct {
		result []byte
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := h.Execute(hctx)
		done <- outcome{result, err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Consumer) succeed(ctx context.Context, j job.Job, start time.Time, result []byte) {
	if _, err := c.manager.ProcessJobSuccess(ctx, j.Id, *j.WorkerId, result); err != nil {
		c.log.Error("failed to record job success", zapErr(err)...)
	}
	// 8. record metrics.
	if c.metrics != nil {
		c.metrics.JobSucceeded(j.Name, time.Since(start))
	}
}

func (c *Consumer) fail(ctx context.Context, j job.Job, start time.Time, code apperrors.Code, message string, cause error) {
	jobErr := &job.Error{Code: string(code), Message: message}
	if cause != nil {
		jobErr.Exception = &job.Exception{Type: "error", Message: cause.Error()}
	}

	updated, err := c.manager.ProcessJobFailure(ctx, j.Id, *j.WorkerId, jobErr)
	if err != nil {
		c.log.Error("failed to record job failure", zapErr(err)...)
	}

	// 8. record metrics.
	if c.metrics != nil {
		willRetry := updated.Status == job.StatusScheduled
		c.metrics.JobFailed(j.Name, time.Since(start), willRetry)
	}
}
