// Package noop provides an observability.Observability that discards everything.
package noop

import (
	"context"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

// Provider has zero runtime overhead and is the default client when
// tracing is configured off.
type Provider struct {
	tracer  noopTracer
	logger  noopLogger
	metrics noopMetrics
}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Tracer() observability.Tracer {
	return p.tracer
}

func (p *Provider) Logger() observability.Logger {
	return p.logger
}

func (p *Provider) Metrics() observability.Metrics {
	return p.metrics
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...observability.SpanOption) (context.Context, observability.Span) {
	return ctx, noopSpan{}
}

func (noopTracer) SpanFromContext(context.Context) observability.Span {
	return noopSpan{}
}

func (noopTracer) Inject(context.Context, map[string]string) {}

func (noopTracer) Extract(ctx context.Context, _ map[string]string) context.Context {
	return ctx
}

type noopSpan struct{}

func (noopSpan) End() {}

func (noopSpan) SetAttributes(...observability.Field) {}

func (noopSpan) SetStatus(observability.StatusCode, string) {}

func (noopSpan) RecordError(error, ...observability.Field) {}

func (noopSpan) AddEvent(string, ...observability.Field) {}

func (noopSpan) Context() observability.SpanContext {
	return noopSpanContext{}
}

type noopSpanContext struct{}

func (noopSpanContext) TraceID() string { return "" }

func (noopSpanContext) SpanID() string { return "" }

func (noopSpanContext) IsSampled() bool { return false }

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...observability.Field) {}

func (noopLogger) Info(context.Context, string, ...observability.Field) {}

func (noopLogger) Warn(context.Context, string, ...observability.Field) {}

func (noopLogger) Error(context.Context, string, ...observability.Field) {}

func (l noopLogger) With(...observability.Field) observability.Logger {
	return l
}

type noopMetrics struct{}

func (noopMetrics) Counter(string, string, string) observability.Counter {
	return noopCounter{}
}

func (noopMetrics) Histogram(string, string, string) observability.Histogram {
	return noopHistogram{}
}

type noopCounter struct{}

func (noopCounter) Add(context.Context, int64, ...observability.Field) {}

func (noopCounter) Increment(context.Context, ...observability.Field) {}

type noopHistogram struct{}

func (noopHistogram) Record(context.Context, float64, ...observability.Field) {}
