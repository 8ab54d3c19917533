package otel

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc/credentials"
)

// Provider implements observability.Observability on the OpenTelemetry SDK.
// It does not touch the otel globals; every point receives it explicitly.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	tracer         *otelTracer
	logger         *otelLogger
	metrics        *otelMetrics
	shutdownFuncs  []func(context.Context) error
}

// ProviderOption overrides the exporters built from Config.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	spanExporter sdktrace.SpanExporter
	syncSpans    bool
	metricReader sdkmetric.Reader
	logExporter  sdklog.Exporter
}

// WithSpanExporter replaces the OTLP trace exporter. Spans are exported
// synchronously, which is what tests using tracetest.InMemoryExporter need.
func WithSpanExporter(exporter sdktrace.SpanExporter) ProviderOption {
	return func(o *providerOptions) {
		o.spanExporter = exporter
		o.syncSpans = true
	}
}

// WithMetricReader replaces the periodic OTLP metric reader.
func WithMetricReader(reader sdkmetric.Reader) ProviderOption {
	return func(o *providerOptions) {
		o.metricReader = reader
	}
}

// WithLogExporter replaces the OTLP log exporter.
func WithLogExporter(exporter sdklog.Exporter) ProviderOption {
	return func(o *providerOptions) {
		o.logExporter = exporter
	}
}

// NewProvider creates and initializes a new OpenTelemetry provider.
func NewProvider(ctx context.Context, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	if err := validateSecurityConfig(config); err != nil {
		return nil, err
	}

	config.OTLPProtocol = normalizeProtocol(string(config.OTLPProtocol))

	options := &providerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	provider := &Provider{
		config:        config,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	res, err := provider.createResource(ctx)
	if err != nil {
		return nil, fmt.Errorf("otel: create resource: %w", err)
	}

	if err := provider.initTracerProvider(ctx, res, options); err != nil {
		return nil, fmt.Errorf("otel: init tracer provider: %w", err)
	}

	if err := provider.initMeterProvider(ctx, res, options); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("otel: init meter provider: %w", err)
	}

	if err := provider.initLoggerProvider(ctx, res, options); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("otel: init logger provider: %w", err)
	}

	propagator := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)

	provider.tracer = newOtelTracer(provider.tracerProvider.Tracer(config.ServiceName), propagator)
	provider.logger = newOtelLogger(
		config.LogLevel,
		config.LogFormat,
		config.ServiceName,
		os.Stdout,
		provider.loggerProvider.Logger(config.ServiceName),
	)
	provider.metrics = newOtelMetrics(provider.meterProvider.Meter(config.ServiceName))

	return provider, nil
}

func (p *Provider) createResource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(p.config.ServiceName),
		semconv.ServiceVersion(p.config.ServiceVersion),
		semconv.DeploymentEnvironmentName(p.config.Environment),
	}

	for k, v := range p.config.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.New(ctx, resource.WithAttributes(attrs...))
}

func (p *Provider) initTracerProvider(ctx context.Context, res *resource.Resource, options *providerOptions) error {
	exporter := options.spanExporter
	if exporter == nil {
		var err error
		exporter, err = p.createTraceExporter(ctx)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
	}

	processor := sdktrace.WithBatcher(exporter)
	if options.syncSpans {
		processor = sdktrace.WithSyncer(exporter)
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(p.createTraceSampler()),
		processor,
	)

	p.shutdownFuncs = append(p.shutdownFuncs, p.tracerProvider.Shutdown)
	return nil
}

func (p *Provider) createTraceExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if p.config.OTLPProtocol == ProtocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		} else if p.config.TLSConfig != nil {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(p.config.TLSConfig))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else if p.config.TLSConfig != nil {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(p.config.TLSConfig)))
	}
	return otlptracegrpc.New(ctx, opts...)
}

func (p *Provider) createTraceSampler() sdktrace.Sampler {
	switch {
	case p.config.TraceSampleRate >= 1.0:
		return sdktrace.AlwaysSample()
	case p.config.TraceSampleRate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(p.config.TraceSampleRate))
	}
}

func (p *Provider) initMeterProvider(ctx context.Context, res *resource.Resource, options *providerOptions) error {
	reader := options.metricReader
	if reader == nil {
		exporter, err := p.createMetricExporter(ctx)
		if err != nil {
			return fmt.Errorf("create metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	p.shutdownFuncs = append(p.shutdownFuncs, p.meterProvider.Shutdown)
	return nil
}

func (p *Provider) createMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	if p.config.OTLPProtocol == ProtocolHTTP {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		} else if p.config.TLSConfig != nil {
			opts = append(opts, otlpmetrichttp.WithTLSClientConfig(p.config.TLSConfig))
		}
		return otlpmetrichttp.New(ctx, opts...)
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	} else if p.config.TLSConfig != nil {
		opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(p.config.TLSConfig)))
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initLoggerProvider(ctx context.Context, res *resource.Resource, options *providerOptions) error {
	exporter := options.logExporter
	if exporter == nil {
		var err error
		exporter, err = p.createLogExporter(ctx)
		if err != nil {
			return fmt.Errorf("create log exporter: %w", err)
		}
	}

	p.loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	p.shutdownFuncs = append(p.shutdownFuncs, p.loggerProvider.Shutdown)
	return nil
}

func (p *Provider) createLogExporter(ctx context.Context) (sdklog.Exporter, error) {
	if p.config.OTLPProtocol == ProtocolHTTP {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(p.config.OTLPEndpoint)}
		if p.config.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		} else if p.config.TLSConfig != nil {
			opts = append(opts, otlploghttp.WithTLSClientConfig(p.config.TLSConfig))
		}
		return otlploghttp.New(ctx, opts...)
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	} else if p.config.TLSConfig != nil {
		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(p.config.TLSConfig)))
	}
	return otlploggrpc.New(ctx, opts...)
}

// Tracer returns the OpenTelemetry tracer.
func (p *Provider) Tracer() observability.Tracer {
	return p.tracer
}

// Logger returns the OpenTelemetry logger.
func (p *Provider) Logger() observability.Logger {
	return p.logger
}

// Metrics returns the OpenTelemetry metrics recorder.
func (p *Provider) Metrics() observability.Metrics {
	return p.metrics
}

// ForceFlush exports every span that has ended so far.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tracerProvider.ForceFlush(ctx)
}

// Shutdown flushes pending telemetry and releases exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdownFuncs) - 1; i >= 0; i-- {
		if err := p.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdownFuncs = nil

	if p.logger != nil {
		_ = p.logger.Sync()
	}

	return errors.Join(errs...)
}
