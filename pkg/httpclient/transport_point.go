package httpclient

import (
	"context"
	"net/http"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
)

type response struct {
	resp *http.Response
}

type roundTrip func(ctx context.Context, request *http.Request, out *response) (int, error)

// pointTransport sends each request through an http.client point. The
// point injects the trace context into the request headers, so the
// request is cloned first and the caller's copy is left alone.
type pointTransport struct {
	roundTrip roundTrip
}

func newPointTransport(d *point.Decorator, base http.RoundTripper, opts ...point.PointOption) (*pointTransport, error) {
	defaults := []point.PointOption{
		point.WithName("http.client"),
		point.WithParams("request", "response"),
		point.WithVariant(schema.VariantHTTPClient),
	}

	rt, err := point.Decorate(d, roundTrip(func(ctx context.Context, req *http.Request, out *response) (int, error) {
		resp, err := base.RoundTrip(req.WithContext(ctx))
		out.resp = resp
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	}), append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &pointTransport{roundTrip: rt}, nil
}

func (t *pointTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := &response{}
	_, err := t.roundTrip(req.Context(), req.Clone(req.Context()), out)
	return out.resp, err
}
