package rabbitmq

import (
	"context"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
)

const headerContentType = "content_type"

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type rabbitMQ struct {
	channel Channel
	mu      sync.Mutex
}

// Dial opens a connection and a channel on it.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func NewPublisher(channel Channel) messaging.Publisher {
	return &rabbitMQ{channel: channel}
}

// Publish sends each message to exchange with routing key. headers become
// AMQP table entries; a content_type header sets the content type.
func (r *rabbitMQ) Publish(ctx context.Context, exchange, key string, headers map[string]string, messages ...*messaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, message := range messages {
		merged := messaging.MergeHeaders(headers, message)
		msg := amqp.Publishing{
			Body:        message.Body,
			ContentType: merged[headerContentType],
			Headers:     amqp.Table{},
		}
		for k, v := range merged {
			msg.Headers[k] = v
		}

		if err := r.channel.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *rabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.Close()
}

// HeadersOf flattens a delivery's string headers for messaging.ConsumeHandler.
func HeadersOf(d amqp.Delivery) map[string]string {
	out := make(map[string]string, len(d.Headers))
	for k, v := range d.Headers {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
