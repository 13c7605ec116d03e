package recovery

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func zapErr(err error) []zap.Field {
	return []zap.Field{zap.Error(err)}
}

func zapIds(ids []uuid.UUID) []zap.Field {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return []zap.Field{zap.Strings("job_ids", strs)}
}
