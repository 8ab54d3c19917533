package otel

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}

type providerSuite struct {
	provider *Provider
	spans    *tracetest.InMemoryExporter
	reader   *sdkmetric.ManualReader
	logs     *memoryLogExporter
}

func newProviderSuite(t *testing.T) *providerSuite {
	t.Helper()

	s := &providerSuite{
		spans:  tracetest.NewInMemoryExporter(),
		reader: sdkmetric.NewManualReader(),
		logs:   &memoryLogExporter{},
	}

	cfg := DefaultConfig("provider-test")
	cfg.LogLevel = observability.LogLevelError

	provider, err := NewProvider(t.Context(), cfg,
		WithSpanExporter(s.spans),
		WithMetricReader(s.reader),
		WithLogExporter(s.logs),
	)
	require.NoError(t, err)
	s.provider = provider

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})
	return s
}

func TestProvider_Spans(t *testing.T) {
	s := newProviderSuite(t)
	tracer := s.provider.Tracer()

	ctx, span := tracer.Start(context.Background(), "add",
		observability.WithSpanKind(observability.SpanKindClient),
		observability.WithAttributes(observability.String("point", "add")),
	)
	span.SetAttributes(observability.Int("a", 1))
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusCodeError, "boom")
	span.End()

	assert.True(t, span.Context().IsSampled())
	assert.Equal(t, span.Context().TraceID(), tracer.SpanFromContext(ctx).Context().TraceID())

	stubs := s.spans.GetSpans()
	require.Len(t, stubs, 1)
	assert.Equal(t, "add", stubs[0].Name)
	assert.Equal(t, codes.Error, stubs[0].Status.Code)
	assert.Len(t, stubs[0].Events, 1)
}

func TestProvider_InjectExtract(t *testing.T) {
	s := newProviderSuite(t)
	tracer := s.provider.Tracer()

	ctx, span := tracer.Start(context.Background(), "producer")
	defer span.End()

	headers := map[string]string{}
	tracer.Inject(ctx, headers)
	require.Contains(t, headers, "traceparent")

	remote := tracer.Extract(context.Background(), headers)
	_, child := tracer.Start(remote, "consumer")
	defer child.End()

	assert.Equal(t, span.Context().TraceID(), child.Context().TraceID())
}

func TestProvider_InjectNilHeaders(t *testing.T) {
	s := newProviderSuite(t)

	assert.NotPanics(t, func() {
		s.provider.Tracer().Inject(context.Background(), nil)
	})
}

func TestProvider_Metrics(t *testing.T) {
	s := newProviderSuite(t)
	metrics := s.provider.Metrics()

	counter := metrics.Counter("point.calls", "calls", "1")
	assert.Same(t, counter, metrics.Counter("point.calls", "calls", "1"))
	counter.Increment(context.Background(), observability.String("point", "add"))
	counter.Add(context.Background(), 2)
	metrics.Histogram("point.stage.duration", "stage latency", "ms").Record(context.Background(), 1.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, s.reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["point.calls"])
	assert.True(t, names["point.stage.duration"])
}

func TestProvider_LogsAreExported(t *testing.T) {
	s := newProviderSuite(t)

	s.provider.Logger().Error(context.Background(), "own error", observability.String("point", "add"))
	require.NoError(t, s.provider.Shutdown(context.Background()))

	assert.Equal(t, 1, s.logs.count())
}

func TestProvider_RejectsInsecureProduction(t *testing.T) {
	cfg := DefaultConfig("svc")
	cfg.Environment = "production"
	cfg.Insecure = true

	_, err := NewProvider(t.Context(), cfg)
	assert.ErrorIs(t, err, ErrInsecureInProduction)
}
