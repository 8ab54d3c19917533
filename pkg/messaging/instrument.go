package messaging

import (
	"context"
	"errors"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
)

// ErrNilPublisher is returned by Instrument without a publisher.
var ErrNilPublisher = errors.New("messaging: publisher cannot be nil")

type instrumented struct {
	publisher Publisher
	publish   func(ctx context.Context, topicOrQueue, key string, headers map[string]string, messages ...*Message) error
}

// Instrument returns a Publisher whose Publish runs as a messaging.producer
// point. The trace context is injected into a copy of headers, so the
// caller's map is never written.
func Instrument(d *point.Decorator, publisher Publisher, opts ...point.PointOption) (Publisher, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}

	base := []point.PointOption{
		point.WithName("messaging.publish"),
		point.WithParams("topic", "key", "headers"),
		point.WithVariant(schema.VariantMessagingProducer),
	}

	publish, err := point.Decorate(d, publisher.Publish, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &instrumented{publisher: publisher, publish: publish}, nil
}

func (i *instrumented) Publish(ctx context.Context, topicOrQueue, key string, headers map[string]string, messages ...*Message) error {
	return i.publish(ctx, topicOrQueue, key, headers, messages...)
}

func (i *instrumented) Close() error {
	return i.publisher.Close()
}

// InstrumentHandler runs handler as a messaging.consumer point that
// continues the producer's trace from params.
func InstrumentHandler(d *point.Decorator, topic string, handler ConsumeHandler, opts ...point.PointOption) (ConsumeHandler, error) {
	base := []point.PointOption{
		point.WithName("messaging.consume"),
		point.WithParams("topic", "headers", "body"),
		point.WithVariant(schema.VariantMessagingConsumer),
	}

	consume, err := point.Decorate(d, func(ctx context.Context, _ string, params map[string]string, body []byte) error {
		return handler(ctx, params, body)
	}, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, params map[string]string, body []byte) error {
		return consume(ctx, topic, params, body)
	}, nil
}
