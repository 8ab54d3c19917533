package httpserver

import (
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/noop"
	"github.com/JailtonJunior94/pointkit/pkg/point"
)

const (
	defaultHTTPPort       = "8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultReadHeaderTime = 5 * time.Second
)

var defaultSettings = settings{
	port:              defaultHTTPPort,
	readTimeout:       defaultReadTimeout,
	writeTimeout:      defaultWriteTimeout,
	idleTimeout:       defaultIdleTimeout,
	readHeaderTimeout: defaultReadHeaderTime,
	errorHandler:      defaultHandleError,
	logger:            noop.NewProvider().Logger(),
}

type (
	Option   func(s settings) settings
	settings struct {
		port              string
		readTimeout       time.Duration
		writeTimeout      time.Duration
		idleTimeout       time.Duration
		readHeaderTimeout time.Duration
		routes            []Route
		globalMiddlewares []Middleware
		errorHandler      ErrorHandler
		logger            observability.Logger
		decorator         *point.Decorator
		pointOptions      []point.PointOption
	}
)

// WithPort sets the server port.
// Default: "8080"
func WithPort(port string) Option {
	return func(s settings) settings {
		s.port = port
		return s
	}
}

// WithReadTimeout sets the maximum duration for reading the entire request.
// Default: 15 seconds
func WithReadTimeout(timeout time.Duration) Option {
	return func(s settings) settings {
		s.readTimeout = timeout
		return s
	}
}

// WithWriteTimeout sets the maximum duration before timing out writes of the response.
// Default: 15 seconds
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s settings) settings {
		s.writeTimeout = timeout
		return s
	}
}

// WithIdleTimeout sets the keep-alive idle timeout.
// Default: 60 seconds
func WithIdleTimeout(timeout time.Duration) Option {
	return func(s settings) settings {
		s.idleTimeout = timeout
		return s
	}
}

// WithRoutes adds routes to the server.
func WithRoutes(routes ...Route) Option {
	return func(s settings) settings {
		s.routes = append(s.routes, routes...)
		return s
	}
}

// WithMiddlewares adds global middlewares, run after RequestID and Recovery.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(s settings) settings {
		s.globalMiddlewares = append(s.globalMiddlewares, middlewares...)
		return s
	}
}

// WithErrorHandler sets a custom error handler for route errors.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(s settings) settings {
		s.errorHandler = handler
		return s
	}
}

// WithLogger logs panics and, unless WithErrorHandler is also given,
// handler errors through logger.
func WithLogger(logger observability.Logger) Option {
	return func(s settings) settings {
		s.logger = logger
		s.errorHandler = logError(logger)
		return s
	}
}

// WithDecorator instruments every route through d. opts apply to each
// route point, e.g. point.WithRuleSet.
func WithDecorator(d *point.Decorator, opts ...point.PointOption) Option {
	return func(s settings) settings {
		s.decorator = d
		s.pointOptions = opts
		return s
	}
}
