// Package fake provides an in-memory observability.Observability whose
// spans, log entries and metric values can be inspected by tests.
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/oklog/ulid/v2"
)

const traceParentHeader = "traceparent"

type spanKey struct{}

type remoteKey struct{}

// Provider implements a fake observability provider for testing purposes.
type Provider struct {
	tracer  *FakeTracer
	logger  *FakeLogger
	metrics *FakeMetrics
}

// NewProvider creates a new fake observability provider for testing.
func NewProvider() *Provider {
	return &Provider{
		tracer:  NewFakeTracer(),
		logger:  NewFakeLogger(),
		metrics: NewFakeMetrics(),
	}
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

// FakeTracer exposes the concrete tracer for assertions.
func (p *Provider) FakeTracer() *FakeTracer {
	return p.tracer
}

// FakeLogger exposes the concrete logger for assertions.
func (p *Provider) FakeLogger() *FakeLogger {
	return p.logger
}

// FakeMetrics exposes the concrete metrics recorder for assertions.
func (p *Provider) FakeMetrics() *FakeMetrics {
	return p.metrics
}

// FakeTracer captures all tracing operations for test assertions.
type FakeTracer struct {
	mu    sync.RWMutex
	spans []*FakeSpan
}

func NewFakeTracer() *FakeTracer {
	return &FakeTracer{spans: make([]*FakeSpan, 0)}
}

// Start creates a span, stores it in ctx and captures it. The trace id is
// inherited from a parent span or from a context returned by Extract.
func (t *FakeTracer) Start(ctx context.Context, spanName string, opts ...observability.SpanOption) (context.Context, observability.Span) {
	config := observability.NewSpanConfig(opts)

	span := &FakeSpan{
		Name:       spanName,
		Kind:       config.Kind(),
		StartTime:  time.Now(),
		Attributes: append([]observability.Field(nil), config.Attributes()...),
		Events:     make([]FakeEvent, 0),
		traceID:    ulid.Make().String(),
		spanID:     ulid.Make().String(),
	}

	switch {
	case spanFrom(ctx) != nil:
		parent := spanFrom(ctx)
		span.traceID = parent.traceID
		span.ParentID = parent.spanID
	case remoteFrom(ctx) != nil:
		remote := remoteFrom(ctx)
		span.traceID = remote.traceID
		span.ParentID = remote.spanID
	}

	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()

	return context.WithValue(ctx, spanKey{}, span), span
}

// SpanFromContext returns the span stored by Start, or an unrecorded span.
func (t *FakeTracer) SpanFromContext(ctx context.Context) observability.Span {
	if span := spanFrom(ctx); span != nil {
		return span
	}
	return &FakeSpan{}
}

// Inject writes a traceparent of the form 00-<trace>-<span>-01.
func (t *FakeTracer) Inject(ctx context.Context, headers map[string]string) {
	span := spanFrom(ctx)
	if span == nil || headers == nil {
		return
	}
	headers[traceParentHeader] = "00-" + span.traceID + "-" + span.spanID + "-01"
}

// Extract parses a traceparent written by Inject.
func (t *FakeTracer) Extract(ctx context.Context, headers map[string]string) context.Context {
	parts := strings.Split(headers[traceParentHeader], "-")
	if len(parts) != 4 {
		return ctx
	}
	return context.WithValue(ctx, remoteKey{}, &FakeSpanContext{traceID: parts[1], spanID: parts[2], sampled: true})
}

// GetSpans returns all captured spans.
func (t *FakeTracer) GetSpans() []*FakeSpan {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]*FakeSpan, len(t.spans))
	copy(result, t.spans)
	return result
}

// SpanByName returns the first captured span with the given name.
func (t *FakeTracer) SpanByName(name string) *FakeSpan {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.spans {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (t *FakeTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make([]*FakeSpan, 0)
}

func spanFrom(ctx context.Context) *FakeSpan {
	span, _ := ctx.Value(spanKey{}).(*FakeSpan)
	return span
}

func remoteFrom(ctx context.Context) *FakeSpanContext {
	sc, _ := ctx.Value(remoteKey{}).(*FakeSpanContext)
	return sc
}

// FakeSpan captures span operations for test assertions.
type FakeSpan struct {
	mu         sync.RWMutex
	Name       string
	Kind       observability.SpanKind
	ParentID   string
	StartTime  time.Time
	EndTime    *time.Time
	Attributes []observability.Field
	Events     []FakeEvent
	Status     observability.StatusCode
	StatusDesc string
	Errors     []error
	traceID    string
	spanID     string
}

func (s *FakeSpan) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
}

func (s *FakeSpan) SetAttributes(fields ...observability.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attributes = append(s.Attributes, fields...)
}

func (s *FakeSpan) SetStatus(code observability.StatusCode, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = code
	s.StatusDesc = description
}

func (s *FakeSpan) RecordError(err error, fields ...observability.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, err)
	s.Attributes = append(s.Attributes, fields...)
}

func (s *FakeSpan) AddEvent(name string, fields ...observability.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, FakeEvent{Name: name, Timestamp: time.Now(), Fields: fields})
}

func (s *FakeSpan) Context() observability.SpanContext {
	return &FakeSpanContext{traceID: s.traceID, spanID: s.spanID, sampled: s.traceID != ""}
}

// Ended reports whether End was called.
func (s *FakeSpan) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.EndTime != nil
}

// Attribute returns the last value recorded under key.
func (s *FakeSpan) Attribute(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.Attributes) - 1; i >= 0; i-- {
		if s.Attributes[i].Key == key {
			return s.Attributes[i].Value, true
		}
	}
	return nil, false
}

// RecordedErrors returns a copy of the errors passed to RecordError.
func (s *FakeSpan) RecordedErrors() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]error(nil), s.Errors...)
}

// StatusCode returns the last status set on the span.
func (s *FakeSpan) StatusCode() observability.StatusCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// FakeEvent represents a recorded span event.
type FakeEvent struct {
	Name      string
	Timestamp time.Time
	Fields    []observability.Field
}

// FakeSpanContext implements observability.SpanContext.
type FakeSpanContext struct {
	traceID string
	spanID  string
	sampled bool
}

func (c *FakeSpanContext) TraceID() string {
	return c.traceID
}

func (c *FakeSpanContext) SpanID() string {
	return c.spanID
}

func (c *FakeSpanContext) IsSampled() bool {
	return c.sampled
}

// FakeLogger captures all log operations for test assertions. Child
// loggers returned by With share the parent's entry list.
type FakeLogger struct {
	mu      *sync.RWMutex
	entries *[]LogEntry
	fields  []observability.Field
}

func NewFakeLogger() *FakeLogger {
	entries := make([]LogEntry, 0)
	return &FakeLogger{
		mu:      &sync.RWMutex{},
		entries: &entries,
		fields:  make([]observability.Field, 0),
	}
}

func (l *FakeLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	l.append(observability.LogLevelDebug, msg, fields)
}

func (l *FakeLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	l.append(observability.LogLevelInfo, msg, fields)
}

func (l *FakeLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	l.append(observability.LogLevelWarn, msg, fields)
}

func (l *FakeLogger) Error(ctx context.Context, msg string, fields ...observability.Field) {
	l.append(observability.LogLevelError, msg, fields)
}

func (l *FakeLogger) With(fields ...observability.Field) observability.Logger {
	merged := make([]observability.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &FakeLogger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *FakeLogger) append(level observability.LogLevel, msg string, fields []observability.Field) {
	all := make([]observability.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    all,
		Timestamp: time.Now(),
	})
}

// GetEntries returns all captured log entries.
func (l *FakeLogger) GetEntries() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]LogEntry, len(*l.entries))
	copy(result, *l.entries)
	return result
}

// EntriesAt returns the captured entries with the given level.
func (l *FakeLogger) EntriesAt(level observability.LogLevel) []LogEntry {
	var out []LogEntry
	for _, e := range l.GetEntries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (l *FakeLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = make([]LogEntry, 0)
}

// LogEntry represents a captured log entry.
type LogEntry struct {
	Level     observability.LogLevel
	Message   string
	Fields    []observability.Field
	Timestamp time.Time
}

// Field returns the value of the named field, if present.
func (e LogEntry) Field(key string) (any, bool) {
	for i := len(e.Fields) - 1; i >= 0; i-- {
		if e.Fields[i].Key == key {
			return e.Fields[i].Value, true
		}
	}
	return nil, false
}

// FakeMetrics captures all metrics operations for test assertions.
type FakeMetrics struct {
	mu         sync.RWMutex
	counters   map[string]*FakeCounter
	histograms map[string]*FakeHistogram
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{
		counters:   make(map[string]*FakeCounter),
		histograms: make(map[string]*FakeHistogram),
	}
}

func (m *FakeMetrics) Counter(name, description, unit string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, exists := m.counters[name]; exists {
		return c
	}

	c := &FakeCounter{Name: name, Description: description, Unit: unit}
	m.counters[name] = c
	return c
}

func (m *FakeMetrics) Histogram(name, description, unit string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, exists := m.histograms[name]; exists {
		return h
	}

	h := &FakeHistogram{Name: name, Description: description, Unit: unit}
	m.histograms[name] = h
	return h
}

// GetCounter returns a counter by name, or nil if it was never created.
func (m *FakeMetrics) GetCounter(name string) *FakeCounter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[name]
}

// GetHistogram returns a histogram by name, or nil if it was never created.
func (m *FakeMetrics) GetHistogram(name string) *FakeHistogram {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histograms[name]
}

// CounterTotal sums every value added to the named counter.
func (m *FakeMetrics) CounterTotal(name string) int64 {
	c := m.GetCounter(name)
	if c == nil {
		return 0
	}
	var total int64
	for _, v := range c.GetValues() {
		total += v.Value
	}
	return total
}

// FakeCounter captures counter operations.
type FakeCounter struct {
	mu          sync.RWMutex
	Name        string
	Description string
	Unit        string
	values      []CounterValue
}

func (c *FakeCounter) Add(ctx context.Context, value int64, fields ...observability.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, CounterValue{Value: value, Fields: fields, Timestamp: time.Now()})
}

func (c *FakeCounter) Increment(ctx context.Context, fields ...observability.Field) {
	c.Add(ctx, 1, fields...)
}

func (c *FakeCounter) GetValues() []CounterValue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]CounterValue, len(c.values))
	copy(result, c.values)
	return result
}

// CounterValue represents a captured counter value.
type CounterValue struct {
	Value     int64
	Fields    []observability.Field
	Timestamp time.Time
}

// FakeHistogram captures histogram operations.
type FakeHistogram struct {
	mu          sync.RWMutex
	Name        string
	Description string
	Unit        string
	values      []HistogramValue
}

func (h *FakeHistogram) Record(ctx context.Context, value float64, fields ...observability.Field) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, HistogramValue{Value: value, Fields: fields, Timestamp: time.Now()})
}

func (h *FakeHistogram) GetValues() []HistogramValue {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]HistogramValue, len(h.values))
	copy(result, h.values)
	return result
}

// HistogramValue represents a captured histogram value.
type HistogramValue struct {
	Value     float64
	Fields    []observability.Field
	Timestamp time.Time
}
