package point

import (
	"context"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

const (
	metricCalls         = "point.calls"
	metricOwnErrors     = "point.own_errors"
	metricCallErrors    = "point.call_errors"
	metricStageDuration = "point.stage.duration"
)

type selfMetrics struct {
	calls         observability.Counter
	ownErrors     observability.Counter
	callErrors    observability.Counter
	stageDuration observability.Histogram
}

func newSelfMetrics(m observability.Metrics) *selfMetrics {
	return &selfMetrics{
		calls:         m.Counter(metricCalls, "Instrumented calls", "1"),
		ownErrors:     m.Counter(metricOwnErrors, "Instrumentation failures isolated from callers", "1"),
		callErrors:    m.Counter(metricCallErrors, "Errors returned by instrumented callables", "1"),
		stageDuration: m.Histogram(metricStageDuration, "Time spent in one instrumentation stage", "ms"),
	}
}

func (m *selfMetrics) observeStage(ctx context.Context, point string, stage Stage, started time.Time) {
	m.stageDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000,
		observability.String("point", point),
		observability.String("stage", stage.String()),
	)
}
