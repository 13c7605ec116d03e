// Package job defines the core Job record and its lifecycle state machine.
// A Job is the unit the rest of the pipeline (store, manager, producer,
// consumer, recovery loop) operates on; nothing here talks to Redis, HTTP,
// or any transport concern.
package job

import (
	"time"

	"github.com/google/uuid"
)

// Status is the job's position in its lifecycle. Numeric values leave room
// between each state for future insertion without renumbering, the same
// convention HTTP status codes use.
type Status int

const (
	StatusQueued     Status = 100
	StatusScheduled  Status = 200
	StatusInProgress Status = 300
	StatusCompleted  Status = 400
	StatusFailed     Status = 500
	StatusCanceled   Status = 600
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "Queued"
	case StatusScheduled:
		return "Scheduled"
	case StatusInProgress:
		return "InProgress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transition out of this status is
// ever valid.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// QueryParam preserves order and repeated keys; map[string][]string would
// lose the former for interleaved repeated keys.
type QueryParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Exception is a serializable snapshot of a handler failure's cause chain.
// It is data carried on the Job, not a Go error value, so it survives a
// round trip through the store and across a process boundary unchanged.
type Exception struct {
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	StackTrace string     `json:"stackTrace,omitempty"`
	Inner      *Exception `json:"inner,omitempty"`
}

// Error is the terminal failure recorded on a Job. Code is one of the
// stable apperrors taxonomy values; Exception, when present, is the
// handler's own failure detail.
type Error struct {
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Exception *Exception `json:"exception,omitempty"`
}

// Job is the unit of work tracked through its lifecycle. Mutation is
// copy-on-write: every transition returns a new Job value rather than
// mutating one in place, so a caller holding an older snapshot never
// observes a later update out from under it.
type Job struct {
	Id     uuid.UUID
	Name   string
	Status Status

	Payload     []byte
	Headers     map[string][]string
	RouteParams map[string]any
	QueryParams []QueryParam

	Result []byte
	Error  *Error

	RetryCount      int
	MaxRetries      int
	RetryDelayUntil *time.Time

	WorkerId *uuid.UUID

	CreatedAt     time.Time
	LastUpdatedAt time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// Params bundles what a caller supplies when submitting a job; everything
// else on Job is computed by the manager.
type Params struct {
	Name        string
	Payload     []byte
	Headers     map[string][]string
	RouteParams map[string]any
	QueryParams []QueryParam
	MaxRetries  int
}

// New constructs a freshly Queued job. id is supplied by the caller so the
// manager can honor an idempotency key (Async-Job-Id) instead of always
// minting a new one.
func New(id uuid.UUID, p Params, now time.Time) Job {
	return Job{
		Id:            id,
		Name:          p.Name,
		Status:        StatusQueued,
		Payload:       p.Payload,
		Headers:       p.Headers,
		RouteParams:   p.RouteParams,
		QueryParams:   p.QueryParams,
		MaxRetries:    p.MaxRetries,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// CanRetry reports whether this job, having just failed, still has a
// retry budget left.
func (j Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// WithStatus returns a copy of j transitioned to status with LastUpdatedAt
// advanced to now. It does not validate the transition; callers check
// CanTransition first.
func (j Job) WithStatus(status Status, now time.Time) Job {
	next := j
	next.Status = status
	next.LastUpdatedAt = now
	return next
}
