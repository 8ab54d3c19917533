package otel

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
)

// OTLPProtocol defines the protocol to use for OTLP export.
type OTLPProtocol string

const (
	// ProtocolGRPC uses gRPC protocol for OTLP export (default: port 4317).
	ProtocolGRPC OTLPProtocol = "grpc"
	// ProtocolHTTP uses HTTP/protobuf protocol for OTLP export (default: port 4318).
	ProtocolHTTP OTLPProtocol = "http"
)

var (
	// ErrNilConfig is returned by NewProvider when no configuration is given.
	ErrNilConfig = errors.New("otel: config cannot be nil")

	// ErrInsecureInProduction is returned when an insecure exporter is requested in production.
	ErrInsecureInProduction = errors.New("otel: insecure connections are not allowed in production environment")

	// ErrWeakTLS is returned when the TLS configuration allows versions below 1.2.
	ErrWeakTLS = errors.New("otel: minimum TLS version must be 1.2 or higher")
)

// Config holds the configuration for the OpenTelemetry provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	OTLPProtocol   OTLPProtocol

	// Insecure allows plaintext export; rejected in production environments.
	Insecure  bool
	TLSConfig *tls.Config

	// TraceSampleRate is between 0.0 and 1.0.
	TraceSampleRate float64

	LogLevel  observability.LogLevel
	LogFormat observability.LogFormat

	ResourceAttributes map[string]string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName:     serviceName,
		ServiceVersion:  "unknown",
		Environment:     "development",
		OTLPEndpoint:    "localhost:4317",
		OTLPProtocol:    ProtocolGRPC,
		TraceSampleRate: 1.0,
		LogLevel:        observability.LogLevelInfo,
		LogFormat:       observability.LogFormatJSON,
	}
}

func normalizeProtocol(protocol string) OTLPProtocol {
	switch strings.ToLower(protocol) {
	case "http", "http/protobuf":
		return ProtocolHTTP
	default:
		return ProtocolGRPC
	}
}

func isProduction(environment string) bool {
	env := strings.ToLower(environment)
	return env == "production" || env == "prod"
}

func validateSecurityConfig(config *Config) error {
	if config.Insecure && isProduction(config.Environment) {
		return ErrInsecureInProduction
	}

	if config.TLSConfig != nil && config.TLSConfig.MinVersion > 0 && config.TLSConfig.MinVersion < tls.VersionTLS12 {
		return fmt.Errorf("%w: got 0x%04x", ErrWeakTLS, config.TLSConfig.MinVersion)
	}

	return nil
}
