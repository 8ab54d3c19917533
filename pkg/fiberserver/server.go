package fiberserver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/gofiber/fiber/v2"
)

// ErrNilHandler is returned when a route has no handler.
var ErrNilHandler = errors.New("fiberserver: route handler cannot be nil")

type (
	// Server defines the HTTP server interface.
	Server interface {
		// Run starts the server and returns a shutdown function.
		Run() Shutdown
		// RegisterRoute adds a route to the server.
		RegisterRoute(route Route) error
		// ShutdownListener returns a channel that receives the server's
		// termination error (or nil if shutdown was clean).
		ShutdownListener() chan error
		// App returns the underlying Fiber app for testing purposes.
		App() *fiber.App
	}

	server struct {
		app              *fiber.App
		port             string
		shutdownListener chan error
		errorHandler     ErrorHandler
		decorator        *point.Decorator
		pointOptions     []point.PointOption
		mu               sync.Mutex
	}

	// Shutdown is a function that gracefully shuts down the server.
	Shutdown func(ctx context.Context) error
	// Middleware is a Fiber middleware handler.
	Middleware func(c *fiber.Ctx) error
	// Handler handles a request and may return an error, which is passed
	// to the ErrorHandler.
	Handler func(c *fiber.Ctx) error
	// ErrorHandler handles errors returned by route Handlers.
	ErrorHandler func(c *fiber.Ctx, err error) error

	// Route defines an HTTP route with its handler and middlewares.
	Route struct {
		Path        string
		Method      string
		Handler     Handler
		Middlewares []Middleware
	}
)

// New creates a Fiber server. With WithDecorator every route handler
// becomes an http.server point named after the route pattern.
func New(options ...Option) (Server, error) {
	settings := defaultSettings
	for _, option := range options {
		settings = option(settings)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           settings.readTimeout,
		WriteTimeout:          settings.writeTimeout,
		IdleTimeout:           settings.idleTimeout,
		BodyLimit:             settings.bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	srv := &server{
		app:              app,
		port:             settings.port,
		shutdownListener: make(chan error, 1),
		errorHandler:     settings.errorHandler,
		decorator:        settings.decorator,
		pointOptions:     settings.pointOptions,
	}

	app.Use(fiber.Handler(Recovery(settings.logger)), fiber.Handler(RequestID))
	for _, middleware := range settings.globalMiddlewares {
		app.Use(fiber.Handler(middleware))
	}

	for _, route := range settings.routes {
		if err := srv.registerRoute(route); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func (s *server) ShutdownListener() chan error {
	return s.shutdownListener
}

func (s *server) App() *fiber.App {
	return s.app
}

// Run starts the HTTP server in a goroutine and returns a shutdown function.
func (s *server) Run() Shutdown {
	go func() {
		s.shutdownListener <- s.app.Listen(fmt.Sprintf(":%s", s.port))
	}()

	return func(ctx context.Context) error {
		return s.app.ShutdownWithContext(ctx)
	}
}

func NewRoute(method, path string, handler Handler, middlewares ...Middleware) Route {
	return Route{
		Path:        path,
		Method:      method,
		Handler:     handler,
		Middlewares: middlewares,
	}
}

func (s *server) RegisterRoute(route Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerRoute(route)
}

func (s *server) registerRoute(route Route) error {
	if route.Handler == nil {
		return fmt.Errorf("%w: %s %s", ErrNilHandler, route.Method, route.Path)
	}

	handlers := make([]fiber.Handler, 0, len(route.Middlewares)+1)
	for _, middleware := range route.Middlewares {
		handlers = append(handlers, fiber.Handler(middleware))
	}

	handler := s.wrapHandler(route.Handler)
	if s.decorator != nil {
		instrumented, err := instrumentRoute(s.decorator, route, s.errorHandler, s.pointOptions...)
		if err != nil {
			return err
		}
		handler = instrumented
	}
	handlers = append(handlers, handler)

	s.app.Add(route.Method, route.Path, handlers...)
	return nil
}

func (s *server) wrapHandler(handler Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c); err != nil {
			return s.errorHandler(c, err)
		}
		return nil
	}
}

func defaultHandleError(c *fiber.Ctx, _ error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func logError(logger observability.Logger) ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		logger.Error(c.UserContext(), "http handler error",
			observability.String("request_id", GetRequestID(c)),
			observability.Error(err),
		)
		return defaultHandleError(c, err)
	}
}
