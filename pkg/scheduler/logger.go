package scheduler

import (
	"context"
	"fmt"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

// cronLogger routes cron's own logging to an observability.Logger.
type cronLogger struct {
	logger observability.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(context.Background(), msg, append(fields(keysAndValues), observability.Error(err))...)
}

func fields(keysAndValues []any) []observability.Field {
	out := make([]observability.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case string:
			out = append(out, observability.String(key, v))
		case int:
			out = append(out, observability.Int(key, v))
		case error:
			out = append(out, observability.String(key, v.Error()))
		default:
			out = append(out, observability.String(key, fmt.Sprint(v)))
		}
	}
	return out
}
