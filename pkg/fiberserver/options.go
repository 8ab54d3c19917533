package fiberserver

import (
	"time"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/observability/noop"
	"github.com/JailtonJunior94/pointkit/pkg/point"
)

const (
	defaultHTTPPort     = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultBodyLimit    = 4 * 1024 * 1024
)

var defaultSettings = settings{
	port:         defaultHTTPPort,
	readTimeout:  defaultReadTimeout,
	writeTimeout: defaultWriteTimeout,
	idleTimeout:  defaultIdleTimeout,
	bodyLimit:    defaultBodyLimit,
	errorHandler: defaultHandleError,
	logger:       noop.NewProvider().Logger(),
}

type (
	Option   func(s settings) settings
	settings struct {
		port              string
		readTimeout       time.Duration
		writeTimeout      time.Duration
		idleTimeout       time.Duration
		bodyLimit         int
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

// WithBodyLimit sets the maximum request body size in bytes.
// Default: 4MB
func WithBodyLimit(size int) Option {
	return func(s settings) settings {
		s.bodyLimit = size
		return s
	}
}

func WithRoutes(routes ...Route) Option {
	return func(s settings) settings {
		s.routes = append(s.routes, routes...)
		return s
	}
}

// WithMiddlewares adds global middlewares, run after Recovery and RequestID.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(s settings) settings {
		s.globalMiddlewares = append(s.globalMiddlewares, middlewares...)
		return s
	}
}

func WithErrorHandler(handler ErrorHandler) Option {
	return func(s settings) settings {
		s.errorHandler = handler
		return s
	}
}

// WithLogger logs panics and handler errors through logger.
func WithLogger(logger observability.Logger) Option {
	return func(s settings) settings {
		s.logger = logger
		s.errorHandler = logError(logger)
		return s
	}
}

// WithDecorator instruments every route through d.
func WithDecorator(d *point.Decorator, opts ...point.PointOption) Option {
	return func(s settings) settings {
		s.decorator = d
		s.pointOptions = opts
		return s
	}
}
