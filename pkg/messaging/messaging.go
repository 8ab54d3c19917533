package messaging

import "context"

type (
	// Publisher sends messages to a topic (Kafka) or exchange (RabbitMQ).
	// headers apply to every message; per-message headers are added on top.
	Publisher interface {
		Publish(ctx context.Context, topicOrQueue, key string, headers map[string]string, messages ...*Message) error
		Close() error
	}

	Message struct {
		Body    []byte
		Headers []Header
	}

	Header struct {
		Key   string
		Value []byte
	}

	// ConsumeHandler handles one delivered message. params carries the
	// transport headers.
	ConsumeHandler func(ctx context.Context, params map[string]string, body []byte) error
)

// MergeHeaders returns the common headers overlaid with the message's own.
func MergeHeaders(common map[string]string, message *Message) map[string]string {
	out := make(map[string]string, len(common)+len(message.Headers))
	for k, v := range common {
		out[k] = v
	}
	for _, h := range message.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
