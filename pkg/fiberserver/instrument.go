package fiberserver

import (
	"context"
	"net/url"

	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/schema"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

const localsHandled = "pointkit.handled"

// Request is the part of a Fiber request the http.server rule set reads.
// Its fields are copies, so they stay valid after Fiber recycles the Ctx.
type Request struct {
	Method string
	URL    *url.URL
	Host   string
}

func newRequest(c *fiber.Ctx) *Request {
	return &Request{
		Method: utils.CopyString(c.Method()),
		URL: &url.URL{
			Path:     utils.CopyString(c.Path()),
			RawQuery: string(c.Request().URI().QueryString()),
		},
		Host: utils.CopyString(c.Hostname()),
	}
}

type handled struct{ err error }

type routeHandler func(ctx context.Context, c *fiber.Ctx, request *Request, headers map[string][]string, requestID string) (int, error)

// instrumentRoute runs the handler and the error handler inside one point,
// so the span carries the final status. The handler's own error is the
// call error; what the error handler returns goes back to Fiber.
func instrumentRoute(d *point.Decorator, route Route, errorHandler ErrorHandler, opts ...point.PointOption) (fiber.Handler, error) {
	base := []point.PointOption{
		point.WithName(route.Method + " " + route.Path),
		point.WithParams("fiber", "request", "headers", "request_id"),
		point.WithVariant(schema.VariantHTTPServer),
		point.WithRemoteName(route.Path),
	}

	handle, err := point.Decorate(d, routeHandler(func(ctx context.Context, c *fiber.Ctx, _ *Request, _ map[string][]string, _ string) (int, error) {
		c.SetUserContext(ctx)
		err := route.Handler(c)
		if err != nil {
			c.Locals(localsHandled, handled{err: errorHandler(c, err)})
		}
		return c.Response().StatusCode(), err
	}), append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return func(c *fiber.Ctx) error {
		_, err := handle(c.UserContext(), c, newRequest(c), c.GetReqHeaders(), GetRequestID(c))
		if h, ok := c.Locals(localsHandled).(handled); ok {
			return h.err
		}
		return err
	}, nil
}
