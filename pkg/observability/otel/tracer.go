package otel

import (
	"context"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// otelTracer implements observability.Tracer using OpenTelemetry.
type otelTracer struct {
	tracer     oteltrace.Tracer
	propagator propagation.TextMapPropagator
}

func newOtelTracer(tracer oteltrace.Tracer, propagator propagation.TextMapPropagator) *otelTracer {
	return &otelTracer{tracer: tracer, propagator: propagator}
}

// Start creates a new span and returns a context containing the span.
func (t *otelTracer) Start(ctx context.Context, spanName string, opts ...observability.SpanOption) (context.Context, observability.Span) {
	cfg := observability.NewSpanConfig(opts)

	otelOpts := []oteltrace.SpanStartOption{oteltrace.WithSpanKind(convertSpanKind(cfg.Kind()))}
	if attrs := convertFieldsToAttributes(cfg.Attributes()); attrs != nil {
		otelOpts = append(otelOpts, oteltrace.WithAttributes(attrs...))
	}

	ctx, span := t.tracer.Start(ctx, spanName, otelOpts...)
	return ctx, &otelSpan{span: span}
}

// SpanFromContext returns the current span from the context.
// Without an active span it returns a non-recording span.
func (t *otelTracer) SpanFromContext(ctx context.Context) observability.Span {
	return &otelSpan{span: oteltrace.SpanFromContext(ctx)}
}

// Inject writes traceparent/tracestate/baggage into headers.
func (t *otelTracer) Inject(ctx context.Context, headers map[string]string) {
	if headers == nil {
		return
	}
	t.propagator.Inject(ctx, propagation.MapCarrier(headers))
}

// Extract reads traceparent/tracestate/baggage from headers.
func (t *otelTracer) Extract(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return t.propagator.Extract(ctx, propagation.MapCarrier(headers))
}

type otelSpan struct {
	span oteltrace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttributes(fields ...observability.Field) {
	if attrs := convertFieldsToAttributes(fields); attrs != nil {
		s.span.SetAttributes(attrs...)
	}
}

func (s *otelSpan) SetStatus(code observability.StatusCode, description string) {
	s.span.SetStatus(convertStatusCode(code), description)
}

func (s *otelSpan) RecordError(err error, fields ...observability.Field) {
	attrs := convertFieldsToAttributes(fields)
	if attrs == nil {
		s.span.RecordError(err)
		return
	}
	s.span.RecordError(err, oteltrace.WithAttributes(attrs...))
}

func (s *otelSpan) AddEvent(name string, fields ...observability.Field) {
	attrs := convertFieldsToAttributes(fields)
	if attrs == nil {
		s.span.AddEvent(name)
		return
	}
	s.span.AddEvent(name, oteltrace.WithAttributes(attrs...))
}

func (s *otelSpan) Context() observability.SpanContext {
	return &otelSpanContext{ctx: s.span.SpanContext()}
}

type otelSpanContext struct {
	ctx oteltrace.SpanContext
}

func (c *otelSpanContext) TraceID() string {
	return c.ctx.TraceID().String()
}

func (c *otelSpanContext) SpanID() string {
	return c.ctx.SpanID().String()
}

func (c *otelSpanContext) IsSampled() bool {
	return c.ctx.IsSampled()
}

func convertSpanKind(kind observability.SpanKind) oteltrace.SpanKind {
	switch kind {
	case observability.SpanKindServer:
		return oteltrace.SpanKindServer
	case observability.SpanKindClient:
		return oteltrace.SpanKindClient
	case observability.SpanKindProducer:
		return oteltrace.SpanKindProducer
	case observability.SpanKindConsumer:
		return oteltrace.SpanKindConsumer
	default:
		return oteltrace.SpanKindInternal
	}
}

func convertStatusCode(code observability.StatusCode) codes.Code {
	switch code {
	case observability.StatusCodeOK:
		return codes.Ok
	case observability.StatusCodeError:
		return codes.Error
	default:
		return codes.Unset
	}
}
