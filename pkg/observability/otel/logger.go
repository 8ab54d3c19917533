package otel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/zaplog"
	otellog "go.opentelemetry.io/otel/log"
)

const (
	redactedValue       = "[REDACTED]"
	maxFieldValueLength = 4096
	maxFields           = 64
)

var sensitiveKeyParts = []string{
	"password", "api_key", "apikey", "token", "authorization", "bearer",
	"credit_card", "creditcard", "ssn", "secret", "credential", "private_key",
	"session", "cookie",
}

// otelLogger writes every entry to the console through zap and emits it as an OTLP log record.
type otelLogger struct {
	otelLog     otellog.Logger
	console     *zaplog.Logger
	serviceName string
	fields      []observability.Field
}

func newOtelLogger(
	level observability.LogLevel,
	format observability.LogFormat,
	serviceName string,
	output io.Writer,
	otelLog otellog.Logger,
) *otelLogger {
	return &otelLogger{
		otelLog:     otelLog,
		console:     zaplog.NewWithWriter(level, format, output),
		serviceName: serviceName,
	}
}

func (l *otelLogger) Debug(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, otellog.SeverityDebug, msg, fields)
}

func (l *otelLogger) Info(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, otellog.SeverityInfo, msg, fields)
}

func (l *otelLogger) Warn(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, otellog.SeverityWarn, msg, fields)
}

func (l *otelLogger) Error(ctx context.Context, msg string, fields ...observability.Field) {
	l.log(ctx, otellog.SeverityError, msg, fields)
}

func (l *otelLogger) With(fields ...observability.Field) observability.Logger {
	merged := make([]observability.Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	return &otelLogger{
		otelLog:     l.otelLog,
		console:     l.console,
		serviceName: l.serviceName,
		fields:      merged,
	}
}

func (l *otelLogger) Sync() error {
	return l.console.Sync()
}

func (l *otelLogger) log(ctx context.Context, severity otellog.Severity, msg string, fields []observability.Field) {
	all := make([]observability.Field, 0, len(l.fields)+len(fields)+1)
	all = append(all, l.fields...)
	all = append(all, fields...)
	all = sanitizeFields(all)
	all = append(all, observability.String("service", l.serviceName))

	switch severity {
	case otellog.SeverityDebug:
		l.console.Debug(ctx, msg, all...)
	case otellog.SeverityWarn:
		l.console.Warn(ctx, msg, all...)
	case otellog.SeverityError:
		l.console.Error(ctx, msg, all...)
	default:
		l.console.Info(ctx, msg, all...)
	}

	if l.otelLog == nil {
		return
	}

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetBody(otellog.StringValue(msg))
	record.SetSeverity(severity)
	record.SetSeverityText(severity.String())
	for _, f := range all {
		record.AddAttributes(convertFieldToLogAttr(f))
	}
	l.otelLog.Emit(ctx, record)
}

func convertFieldToLogAttr(field observability.Field) otellog.KeyValue {
	switch v := field.Value.(type) {
	case string:
		return otellog.String(field.Key, v)
	case int:
		return otellog.Int(field.Key, v)
	case int64:
		return otellog.Int64(field.Key, v)
	case float64:
		return otellog.Float64(field.Key, v)
	case bool:
		return otellog.Bool(field.Key, v)
	case error:
		return otellog.String(field.Key, v.Error())
	default:
		return otellog.String(field.Key, fmt.Sprint(v))
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// sanitizeFields redacts secrets, truncates long strings and caps the field count.
func sanitizeFields(fields []observability.Field) []observability.Field {
	if len(fields) > maxFields {
		fields = fields[:maxFields]
	}

	out := make([]observability.Field, len(fields))
	for i, f := range fields {
		switch {
		case isSensitiveKey(f.Key):
			out[i] = observability.String(f.Key, redactedValue)
		default:
			if s, ok := f.Value.(string); ok && len(s) > maxFieldValueLength {
				out[i] = observability.String(f.Key, s[:maxFieldValueLength]+"...[truncated]")
				continue
			}
			out[i] = f
		}
	}
	return out
}
