package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy reports whether a request should be retried given the
// outcome of the last attempt.
type RetryPolicy func(err error, resp *http.Response) bool

// DefaultRetryPolicy retries network errors and 5xx responses, never
// context errors.
var DefaultRetryPolicy RetryPolicy = func(err error, resp *http.Response) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return resp != nil && resp.StatusCode >= http.StatusInternalServerError
}

// IdempotentRetryPolicy also retries 429.
var IdempotentRetryPolicy RetryPolicy = func(err error, resp *http.Response) bool {
	if DefaultRetryPolicy(err, resp) {
		return true
	}
	return err == nil && resp != nil && resp.StatusCode == http.StatusTooManyRequests
}

type retryTransport struct {
	base        http.RoundTripper
	maxAttempts int
	initial     time.Duration
	policy      RetryPolicy
	maxBodySize int64
}

// errRetry marks an attempt the policy wants repeated.
var errRetry = errors.New("retry")

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	body, err := t.bufferBody(req)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.initial
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if t.maxAttempts > 1 {
		policy = backoff.WithMaxRetries(b, uint64(t.maxAttempts-1))
	}

	var (
		resp    *http.Response
		lastErr error
	)
	_ = backoff.Retry(func() error {
		drainBody(resp)

		attempt := req
		if body != nil {
			attempt = cloneRequest(req, body)
		}

		resp, lastErr = t.base.RoundTrip(attempt)
		if !t.shouldRetry(lastErr, resp) {
			return nil
		}
		return errRetry
	}, backoff.WithContext(policy, ctx))

	return resp, lastErr
}

func (t *retryTransport) shouldRetry(err error, resp *http.Response) bool {
	if t.policy == nil {
		return DefaultRetryPolicy(err, resp)
	}
	return t.policy(err, resp)
}

func cloneRequest(req *http.Request, body []byte) *http.Request {
	cloned := *req
	cloned.Body = io.NopCloser(bytes.NewReader(body))
	cloned.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return &cloned
}

// bufferBody reads and closes the request body so every attempt can
// replay it.
func (t *retryTransport) bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()

	body, err := io.ReadAll(io.LimitReader(req.Body, t.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > t.maxBodySize {
		return nil, ErrRequestBodyTooLarge
	}
	return body, nil
}

func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, DefaultMaxDrainSize)
	_ = resp.Body.Close()
}
