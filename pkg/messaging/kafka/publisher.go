package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("kafka: publisher is closed")

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type publisher struct {
	writer MessageWriter
	mu     sync.RWMutex
	closed bool
}

// NewWriter builds a writer for brokers that routes by key. It carries no
// default topic, so every message names its own.
func NewWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func NewPublisher(writer MessageWriter) messaging.Publisher {
	return &publisher{writer: writer}
}

// Publish writes all messages in one batch. headers are copied onto every
// message before its own headers.
func (p *publisher) Publish(ctx context.Context, topic, key string, headers map[string]string, messages ...*messaging.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if len(messages) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(messages))
	for _, message := range messages {
		msg := kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: message.Body,
		}
		for k, v := range messaging.MergeHeaders(headers, message) {
			msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		msgs = append(msgs, msg)
	}

	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// HeadersOf returns a consumed message's headers as a map, for
// messaging.ConsumeHandler params.
func HeadersOf(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
