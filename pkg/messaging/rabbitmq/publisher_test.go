package rabbitmq

import (
	"context"
	"errors"
	"testing"

	"github.com/JailtonJunior94/pointkit/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type memoryChannel struct {
	published []published
	failAt    int
	closed    bool
}

func (c *memoryChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.failAt > 0 && len(c.published)+1 == c.failAt {
		return errors.New("channel closed")
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *memoryChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &memoryChannel{}
	p := NewPublisher(ch)

	err := p.Publish(context.Background(), "billing", "invoice.paid",
		map[string]string{"traceparent": "00-a-b-01", headerContentType: "application/json"},
		&messaging.Message{Body: []byte(`{"id":1}`)},
		&messaging.Message{Body: []byte(`{"id":2}`), Headers: []messaging.Header{{Key: "retry", Value: []byte("1")}}},
	)
	require.NoError(t, err)
	require.Len(t, ch.published, 2)

	first := ch.published[0]
	assert.Equal(t, "billing", first.exchange)
	assert.Equal(t, "invoice.paid", first.key)
	assert.Equal(t, "application/json", first.msg.ContentType)
	assert.Equal(t, "00-a-b-01", first.msg.Headers["traceparent"])
	assert.NotContains(t, first.msg.Headers, "retry")

	assert.Equal(t, "1", ch.published[1].msg.Headers["retry"])
}

func TestPublisher_StopsAtFirstError(t *testing.T) {
	ch := &memoryChannel{failAt: 2}
	err := NewPublisher(ch).Publish(context.Background(), "billing", "", nil,
		&messaging.Message{}, &messaging.Message{}, &messaging.Message{})

	assert.EqualError(t, err, "channel closed")
	assert.Len(t, ch.published, 1)
}

func TestPublisher_Close(t *testing.T) {
	ch := &memoryChannel{}
	require.NoError(t, NewPublisher(ch).Close())
	assert.True(t, ch.closed)
}

func TestHeadersOf(t *testing.T) {
	d := amqp.Delivery{Headers: amqp.Table{"traceparent": "tp", "attempt": int32(2)}}
	assert.Equal(t, map[string]string{"traceparent": "tp"}, HeadersOf(d))
}
