package runtime

import "go.uber.org/zap"

func zapErr(err error) []zap.Field {
	return []zap.Field{zap.Error(err)}
}
