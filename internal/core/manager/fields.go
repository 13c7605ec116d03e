package manager

import (
	"go.uber.org/zap"

	"github.com/tranvuongduy2003/jobrunner/internal/domain/job"
)

func zapFields(j job.Job) []zap.Field {
	fields := []zap.Field{
		zap.String(logJobIdKey, j.Id.String()),
		zap.String(logJobNameKey, j.Name),
		zap.String(logJobStatusKey, j.Status.String()),
		zap.Int(logJobRetryCountKey, j.RetryCount),
	}
	if j.WorkerId != nil {
		fields = append(fields, zap.String(logWorkerIdKey, j.WorkerId.String()))
	}
	return fields
}

const (
	logJobIdKey         = "job_id"
	logJobNameKey        = "job_name"
	logJobStatusKey      = "job_status"
	logJobRetryCountKey  = "job_retry_count"
	logWorkerIdKey       = "worker_id"
)
