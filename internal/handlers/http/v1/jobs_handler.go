// Package v1 implements the HTTP surface over the core job pipeline:
// Submit accepts a POST, PUT, PATCH, or DELETE on a job name, and Get
// returns a job's current snapshot. Neither talks to a store
// directly; both go through manager.Manager.
package v1

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/core/manager"
	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
	"github.com/tranvuongduy2003/jobrunner/pkg/apperrors"
	"github.com/tranvuongduy2003/jobrunner/pkg/response"
)

// AsyncJobIDHeader is the request/response header carrying the
// idempotency key and the submitted job's id.
const AsyncJobIDHeader = response.AsyncJobIDHeader

// JobsHandler adapts JobManager.Submit/GetJobById to gin, preserving the
// caller's HTTP context (headers, route params, query params) on the Job
// so a handler sees exactly what the original request carried.
type JobsHandler struct {
	manager *manager.Manager
	factory response.Factory
}

func NewJobsHandler(m *manager.Manager, factory response.Factory) *JobsHandler {
	return &JobsHandler{manager: m, factory: factory}
}

// Submit handles POST/PUT/PATCH/DELETE on /jobs/:name, turning the
// request into a Queued job and returning 202 Accepted with the
// Async-Job-Id header.
func (h *JobsHandler) Submit(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		h.factory.Error(c, apperrors.InvalidJob("job name is required"))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.factory.Error(c, apperrors.InvalidJob("failed to read request body"))
		return
	}

	routeParams := make(map[string]any, len(c.Params))
	for _, p := range c.Params {
		if p.Key == "name" {
			continue
		}
		routeParams[p.Key] = p.Value
	}

	queryParams := make([]job.QueryParam, 0, len(c.Request.URL.Query()))
	for key, values := range c.Request.URL.Query() {
		for _, v := range values {
			queryParams = append(queryParams, job.QueryParam{Key: key, Value: v})
		}
	}

	params := job.Params{
		Name:        name,
		Payload:     body,
		Headers:     map[string][]string(c.Request.Header),
		RouteParams: routeParams,
		QueryParams: queryParams,
	}

	var idempotencyId *uuid.UUID
	if raw := c.GetHeader(AsyncJobIDHeader); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			idempotencyId = &id
		}
	}

	j, err := h.manager.Submit(c.Request.Context(), params, idempotencyId)
	if err != nil {
		h.factory.Error(c, err)
		return
	}

	c.Header(AsyncJobIDHeader, j.Id.String())
	c.JSON(http.StatusAccepted, snapshotOf(j))
}

// Get handles GET /jobs/:id, returning the job's current snapshot.
func (h *JobsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.factory.Error(c, apperrors.InvalidJobID("job id must be a UUID"))
		return
	}

	j, err := h.manager.GetJobById(c.Request.Context(), id)
	if err != nil {
		h.factory.Error(c, err)
		return
	}

	h.factory.OK(c, snapshotOf(j))
}

// snapshot is the wire shape for a Job: Status rendered as its string
// form and timestamps in ISO-8601, per the external HTTP surface.
type snapshot struct {
	Id              string          `json:"id"`
	Name            string          `json:"name"`
	Status          string          `json:"status"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *job.Error      `json:"error,omitempty"`
	RetryCount      int             `json:"retryCount"`
	MaxRetries      int             `json:"maxRetries"`
	RetryDelayUntil *time.Time      `json:"retryDelayUntil,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastUpdatedAt   time.Time       `json:"lastUpdatedAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

func snapshotOf(j job.Job) snapshot {
	return snapshot{
		Id:              j.Id.String(),
		Name:            j.Name,
		Status:          j.Status.String(),
		Payload:         rawOrNil(j.Payload),
		Result:          rawOrNil(j.Result),
		Error:           j.Error,
		RetryCount:      j.RetryCount,
		MaxRetries:      j.MaxRetries,
		RetryDelayUntil: j.RetryDelayUntil,
		CreatedAt:       j.CreatedAt,
		LastUpdatedAt:   j.LastUpdatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
	}
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
