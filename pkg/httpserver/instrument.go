package httpserver

import (
	"context"
	"net/http"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
)

// routeHandler is the shape of a route once it runs as a point: the
// parameter names match the http.server rule set.
type routeHandler func(ctx context.Context, w http.ResponseWriter, request *http.Request, headers http.Header, requestID string) (int, error)

func instrumentRoute(d *point.Decorator, route Route, errorHandler ErrorHandler, opts ...point.PointOption) (http.Handler, error) {
	base := []point.PointOption{
		point.WithName(route.Method + " " + route.Path),
		point.WithParams("writer", "request", "headers", "request_id"),
		point.WithVariant(schema.VariantHTTPServer),
		point.WithRemoteName(route.Path),
	}

	handle, err := point.Decorate(d, routeHandler(func(ctx context.Context, w http.ResponseWriter, req *http.Request, _ http.Header, _ string) (int, error) {
		rw := newStatusRecorder(w)
		err := route.Handler(rw, req.WithContext(ctx))
		if err != nil {
			errorHandler(ctx, rw, err)
		}
		return rw.Status(), err
	}), append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = handle(r.Context(), w, r, r.Header, GetRequestID(r.Context()))
	}), nil
}

// statusRecorder remembers the status written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w}
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Status returns the written status, 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
