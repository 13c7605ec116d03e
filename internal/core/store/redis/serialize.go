package redis

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
)

// toHash flattens a Job into the field set stored in its `ae:job:{id}`
// hash. Payload and Result are stored as raw bytes; Redis hash values are
// binary-safe so no base64 round trip is needed.
func toHash(j job.Job) (map[string]interface{}, error) {
	headers, err := json.Marshal(j.Headers)
	if err != nil {
		return nil, err
	}
	routeParams, err := json.Marshal(j.RouteParams)
	if err != nil {
		return nil, err
	}
	queryParams, err := json.Marshal(j.QueryParams)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"id":            j.Id.String(),
		"name":          j.Name,
		"status":        strconv.Itoa(int(j.Status)),
		"payload":       string(j.Payload),
		"headers":       string(headers),
		"routeParams":   string(routeParams),
		"queryParams":   string(queryParams),
		"result":        string(j.Result),
		"retryCount":    strconv.Itoa(j.RetryCount),
		"maxRetries":    strconv.Itoa(j.MaxRetries),
		"createdAt":     strconv.FormatInt(j.CreatedAt.Unix(), 10),
		"lastUpdatedAt": strconv.FormatInt(j.LastUpdatedAt.Unix(), 10),
	}

	if j.Error != nil {
		errJSON, err := json.Marshal(j.Error)
		if err != nil {
			return nil, err
		}
		fields["error"] = string(errJSON)
	} else {
		fields["error"] = ""
	}

	if j.RetryDelayUntil != nil {
		fields["retryDelayUntil"] = strconv.FormatInt(j.RetryDelayUntil.Unix(), 10)
	} else {
		fields["retryDelayUntil"] = ""
	}

	if j.WorkerId != nil {
		fields["workerId"] = j.WorkerId.String()
	} else {
		fields["workerId"] = ""
	}

	if j.StartedAt != nil {
		fields["startedAt"] = strconv.FormatInt(j.StartedAt.Unix(), 10)
	} else {
		fields["startedAt"] = ""
	}

	if j.CompletedAt != nil {
		fields["completedAt"] = strconv.FormatInt(j.CompletedAt.Unix(), 10)
	} else {
		fields["completedAt"] = ""
	}

	return fields, nil
}

// fromHash reconstructs a Job from its hash. Fields the claim script
// doesn't rewrite (payload, headers, ...) are only present when the whole
// hash was read (GetById, ClaimNextJobForWorker); release's partial HSET
// never needs to decode its own write back.
func fromHash(data map[string]string) (job.Job, error) {
	var j job.Job

	id, err := uuid.Parse(data["id"])
	if err != nil {
		return job.Job{}, err
	}
	j.Id = id
	j.Name = data["name"]

	status, err := strconv.Atoi(data["status"])
	if err != nil {
		return job.Job{}, err
	}
	j.Status = job.Status(status)

	j.Payload = []byte(data["payload"])
	j.Result = []byte(data["result"])

	if headers, ok := data["headers"]; ok && headers != "" {
		if err := json.Unmarshal([]byte(headers), &j.Headers); err != nil {
			return job.Job{}, err
		}
	}
	if routeParams, ok := data["routeParams"]; ok && routeParams != "" {
		if err := json.Unmarshal([]byte(routeParams), &j.RouteParams); err != nil {
			return job.Job{}, err
		}
	}
	if queryParams, ok := data["queryParams"]; ok && queryParams != "" {
		if err := json.Unmarshal([]byte(queryParams), &j.QueryParams); err != nil {
			return job.Job{}, err
		}
	}

	if errStr, ok := data["error"]; ok && errStr != "" {
		var jobErr job.Error
		if err := json.Unmarshal([]byte(errStr), &jobErr); err != nil {
			return job.Job{}, err
		}
		j.Error = &jobErr
	}

	if retryCount, ok := data["retryCount"]; ok && retryCount != "" {
		j.RetryCount, _ = strconv.Atoi(retryCount)
	}
	if maxRetries, ok := data["maxRetries"]; ok && maxRetries != "" {
		j.MaxRetries, _ = strconv.Atoi(maxRetries)
	}

	if retryDelayUntil, ok := data["retryDelayUntil"]; ok && retryDelayUntil != "" {
		t := unixTime(retryDelayUntil)
		j.RetryDelayUntil = &t
	}

	if workerId, ok := data["workerId"]; ok && workerId != "" {
		w, err := uuid.Parse(workerId)
		if err == nil {
			j.WorkerId = &w
		}
	}

	if createdAt, ok := data["createdAt"]; ok && createdAt != "" {
		j.CreatedAt = unixTime(createdAt)
	}
	if lastUpdatedAt, ok := data["lastUpdatedAt"]; ok && lastUpdatedAt != "" {
		j.LastUpdatedAt = unixTime(lastUpdatedAt)
	}
	if startedAt, ok := data["startedAt"]; ok && startedAt != "" {
		t := unixTime(startedAt)
		j.StartedAt = &t
	}
	if completedAt, ok := data["completedAt"]; ok && completedAt != "" {
		t := unixTime(completedAt)
		j.CompletedAt = &t
	}

	return j, nil
}

func unixTime(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0).UTC()
}
