package observability

import "context"

// Tracer opens spans and moves trace context in and out of header carriers.
type Tracer interface {
	// Start creates a new span and returns a context containing the span.
	// The span should be ended by calling span.End() when the operation completes.
	Start(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, Span)

	// SpanFromContext returns the current span from the context, if any.
	SpanFromContext(ctx context.Context) Span

	// Inject writes the trace context carried by ctx into headers.
	Inject(ctx context.Context, headers map[string]string)

	// Extract returns a copy of ctx carrying the trace context found in headers.
	Extract(ctx context.Context, headers map[string]string) context.Context
}
