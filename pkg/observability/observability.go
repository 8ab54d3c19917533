package observability

import "time"

// Observability is the transport client handed to instrumented points.
// It bundles the tracer used to open spans, the logger used for diagnostics
// and the metrics recorder used for self-measurement.
type Observability interface {
	Tracer() Tracer
	Logger() Logger
	Metrics() Metrics
}

// Field represents a key-value pair for structured logging and span attributes.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a string slice field.
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field.
func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value type.
func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// SpanContext identifies a span for propagation.
type SpanContext interface {
	TraceID() string
	SpanID() string
	IsSampled() bool
}

// Span represents an active trace span.
type Span interface {
	// End finishes the span. No further operations should be performed on the span after calling End.
	End()

	// SetAttributes sets additional attributes on the span.
	SetAttributes(fields ...Field)

	// SetStatus sets the status of the span.
	SetStatus(code StatusCode, description string)

	// RecordError records an error as an event on the span.
	RecordError(err error, fields ...Field)

	// AddEvent adds an event to the span.
	AddEvent(name string, fields ...Field)

	// Context returns the span context.
	Context() SpanContext
}

// StatusCode represents the canonical status code of a span.
type StatusCode int

const (
	StatusCodeUnset StatusCode = iota
	StatusCodeOK
	StatusCodeError
)

// SpanKind represents the role of a span in a trace.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

// String returns the lower-case name of the kind.
func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// ParseSpanKind maps a lower-case kind name back to a SpanKind.
// Unknown names map to SpanKindInternal.
func ParseSpanKind(name string) SpanKind {
	switch name {
	case "server":
		return SpanKindServer
	case "client":
		return SpanKindClient
	case "producer":
		return SpanKindProducer
	case "consumer":
		return SpanKindConsumer
	default:
		return SpanKindInternal
	}
}

// SpanOption configures span creation.
type SpanOption interface {
	apply(*spanConfig)
}

type spanConfig struct {
	kind       SpanKind
	attributes []Field
}

type spanOptionFunc func(*spanConfig)

func (f spanOptionFunc) apply(c *spanConfig) {
	f(c)
}

// WithSpanKind sets the span kind.
func WithSpanKind(kind SpanKind) SpanOption {
	return spanOptionFunc(func(c *spanConfig) {
		c.kind = kind
	})
}

// WithAttributes sets initial attributes on the span.
func WithAttributes(fields ...Field) SpanOption {
	return spanOptionFunc(func(c *spanConfig) {
		c.attributes = append(c.attributes, fields...)
	})
}

// NewSpanConfig creates a span configuration from options (exported for provider implementations).
func NewSpanConfig(opts []SpanOption) SpanConfig {
	cfg := &spanConfig{
		kind:       SpanKindInternal,
		attributes: make([]Field, 0),
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return cfg
}

// SpanConfig provides access to span configuration (for provider implementations).
type SpanConfig interface {
	Kind() SpanKind
	Attributes() []Field
}

func (c *spanConfig) Kind() SpanKind {
	return c.kind
}

func (c *spanConfig) Attributes() []Field {
	return c.attributes
}
