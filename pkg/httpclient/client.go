package httpclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/point"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodySize  = 1 << 20
	DefaultMaxDrainSize = 64 << 10
)

// ErrRequestBodyTooLarge is returned when a retried request body exceeds
// the buffer limit.
var ErrRequestBodyTooLarge = errors.New("httpclient: request body too large to retry")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type settings struct {
	timeout      time.Duration
	base         http.RoundTripper
	retry        *retryTransport
	decorator    *point.Decorator
	pointOptions []point.PointOption
}

type Option func(s *settings)

// WithTimeout sets the overall client timeout.
// Default: 30 seconds
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		s.timeout = timeout
	}
}

// WithTransport replaces http.DefaultTransport as the innermost transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.base = rt
	}
}

// WithRetry retries a request up to maxAttempts times in total while
// policy says so, backing off exponentially from initial.
func WithRetry(maxAttempts int, initial time.Duration, policy RetryPolicy) Option {
	return func(s *settings) {
		s.retry = &retryTransport{
			maxAttempts: maxAttempts,
			initial:     initial,
			policy:      policy,
			maxBodySize: DefaultMaxBodySize,
		}
	}
}

// WithDecorator runs every request as an http.client point. Retries
// happen inside the point, so one span covers all attempts.
func WithDecorator(d *point.Decorator, opts ...point.PointOption) Option {
	return func(s *settings) {
		s.decorator = d
		s.pointOptions = opts
	}
}

// New builds an *http.Client whose transport chain is point, retry, base.
func New(opts ...Option) (*http.Client, error) {
	s := &settings{timeout: DefaultTimeout, base: http.DefaultTransport}
	for _, opt := range opts {
		opt(s)
	}

	transport := s.base
	if s.retry != nil {
		s.retry.base = transport
		transport = s.retry
	}
	if s.decorator != nil {
		pt, err := newPointTransport(s.decorator, transport, s.pointOptions...)
		if err != nil {
			return nil, err
		}
		transport = pt
	}

	return &http.Client{Timeout: s.timeout, Transport: transport}, nil
}
