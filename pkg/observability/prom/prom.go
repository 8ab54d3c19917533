// Package prom implements observability.Metrics on a Prometheus registry
// so self-metrics can be scraped from /metrics.
package prom

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultLabels are the field keys the point core attaches to its self-metrics.
var DefaultLabels = []string{"point", "stage", "variant"}

// Metrics creates Prometheus collectors on demand. Every collector carries the
// same fixed label set; fields outside it are ignored and missing ones are empty.
type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	labels     []string
	buckets    []float64
	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

// Option configures Metrics.
type Option func(*Metrics)

// WithNamespace prefixes every metric name.
func WithNamespace(namespace string) Option {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithLabels replaces DefaultLabels.
func WithLabels(labels ...string) Option {
	return func(m *Metrics) {
		m.labels = labels
	}
}

// WithBuckets sets histogram buckets.
func WithBuckets(buckets ...float64) Option {
	return func(m *Metrics) {
		m.buckets = buckets
	}
}

// WithRegistry uses an existing registry instead of a private one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Metrics) {
		m.registry = registry
	}
}

func New(opts ...Option) *Metrics {
	m := &Metrics{
		registry:   prometheus.NewRegistry(),
		labels:     DefaultLabels,
		buckets:    []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000},
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Counter(name, description, unit string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      metricName(name, unit) + "_total",
		Help:      help(description, name),
	}, m.labels)

	c := &counter{vec: register(m.registry, vec), labels: m.labels}
	m.counters[name] = c
	return c
}

func (m *Metrics) Histogram(name, description, unit string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      metricName(name, unit),
		Help:      help(description, name),
		Buckets:   m.buckets,
	}, m.labels)

	h := &histogram{vec: register(m.registry, vec), labels: m.labels}
	m.histograms[name] = h
	return h
}

// register returns the already registered collector when the name is taken.
func register[C prometheus.Collector](registry *prometheus.Registry, c C) C {
	if err := registry.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

func (c *counter) Add(_ context.Context, value int64, fields ...observability.Field) {
	if value < 0 {
		return
	}
	c.vec.With(labelValues(c.labels, fields)).Add(float64(value))
}

func (c *counter) Increment(ctx context.Context, fields ...observability.Field) {
	c.Add(ctx, 1, fields...)
}

type histogram struct {
	vec    *prometheus.HistogramVec
	labels []string
}

func (h *histogram) Record(_ context.Context, value float64, fields ...observability.Field) {
	h.vec.With(labelValues(h.labels, fields)).Observe(value)
}

func labelValues(labels []string, fields []observability.Field) prometheus.Labels {
	values := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		values[l] = ""
	}
	for _, f := range fields {
		if _, ok := values[f.Key]; ok {
			values[f.Key] = fmt.Sprint(f.Value)
		}
	}
	return values
}

func metricName(name, unit string) string {
	out := strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
	switch unit {
	case "ms":
		out += "_milliseconds"
	case "s":
		out += "_seconds"
	}
	return out
}

func help(description, name string) string {
	if description == "" {
		return name
	}
	return description
}
