package otel

import (
	"errors"
	"testing"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestConvertFieldToAttribute(t *testing.T) {
	tests := []struct {
		name  string
		field observability.Field
		want  attribute.KeyValue
	}{
		{"string value", observability.String("key", "value"), attribute.String("key", "value")},
		{"string slice", observability.Strings("rest", []string{"a", "b"}), attribute.StringSlice("rest", []string{"a", "b"})},
		{"int value", observability.Int("count", 42), attribute.Int("count", 42)},
		{"int64 value", observability.Int64("big", 1<<40), attribute.Int64("big", 1<<40)},
		{"float64 value", observability.Float64("ratio", 0.5), attribute.Float64("ratio", 0.5)},
		{"bool value", observability.Bool("ok", true), attribute.Bool("ok", true)},
		{"duration as ms", observability.Duration("elapsed", 1500*time.Millisecond), attribute.Int64("elapsed", 1500)},
		{"error value", observability.Error(errors.New("boom")), attribute.String("error", "boom")},
		{"struct falls back to fmt", observability.Any("pair", struct{ A int }{A: 1}), attribute.String("pair", "{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convertFieldToAttribute(tt.field))
		})
	}
}

func TestConvertFieldsToAttributes_Empty(t *testing.T) {
	assert.Nil(t, convertFieldsToAttributes(nil))
}

func TestConvertSpanKind(t *testing.T) {
	assert.Equal(t, "server", convertSpanKind(observability.SpanKindServer).String())
	assert.Equal(t, "producer", convertSpanKind(observability.SpanKindProducer).String())
	assert.Equal(t, "internal", convertSpanKind(observability.SpanKindInternal).String())
}
