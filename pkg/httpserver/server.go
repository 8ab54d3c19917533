package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/point"
	"github.com/JailtonJunior94/pointkit/pkg/responses"
	"github.com/go-chi/chi/v5"
)

type (
	// Server defines the HTTP server interface.
	Server interface {
		// Run starts the server and returns a shutdown function.
		Run() Shutdown
		// RegisterRoute adds a route to the server. Routes registered after
		// Run are available immediately.
		RegisterRoute(route Route) error
		// ShutdownListener returns a channel that receives the server's
		// termination error (or nil if shutdown was clean).
		ShutdownListener() chan error
		// ServeHTTP implements http.Handler for testing purposes.
		ServeHTTP(http.ResponseWriter, *http.Request)
	}

	server struct {
		http.Server
		router           *chi.Mux
		shutdownListener chan error
		errorHandler     ErrorHandler
		decorator        *point.Decorator
		pointOptions     []point.PointOption
		mu               sync.Mutex
	}

	// Shutdown is a function that gracefully shuts down the server.
	Shutdown func(ctx context.Context) error
	// Middleware is a function that wraps an http.Handler.
	Middleware func(handler http.Handler) http.Handler
	// Handler handles a request and may return an error, which is passed
	// to the ErrorHandler.
	Handler func(w http.ResponseWriter, req *http.Request) error
	// ErrorHandler handles errors returned by route Handlers.
	ErrorHandler func(ctx context.Context, w http.ResponseWriter, err error)

	// Route defines an HTTP route with its handler and middlewares.
	Route struct {
		Path        string
		Method      string
		Handler     Handler
		Middlewares []Middleware
	}
)

// New creates a chi based server. With WithDecorator every route handler
// becomes an http.server point named after the chi route pattern.
func New(options ...Option) (Server, error) {
	settings := defaultSettings
	for _, option := range options {
		settings = option(settings)
	}

	router := chi.NewRouter()
	middlewares := append([]Middleware{RequestID, Recovery(settings.logger)}, settings.globalMiddlewares...)

	srv := &server{
		Server: http.Server{
			Addr:              fmt.Sprintf(":%s", settings.port),
			Handler:           Middlewares(router, middlewares...),
			ReadTimeout:       settings.readTimeout,
			WriteTimeout:      settings.writeTimeout,
			IdleTimeout:       settings.idleTimeout,
			ReadHeaderTimeout: settings.readHeaderTimeout,
		},
		router:           router,
		shutdownListener: make(chan error, 1),
		errorHandler:     settings.errorHandler,
		decorator:        settings.decorator,
		pointOptions:     settings.pointOptions,
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

// Run starts the HTTP server in a goroutine and returns a shutdown function.
func (s *server) Run() Shutdown {
	go func() {
		err := s.Server.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			s.shutdownListener <- nil
			return
		}
		s.shutdownListener <- err
	}()
	return s.Server.Shutdown
}

func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.Server.Handler.ServeHTTP(w, req)
}

func NewRoute(method, path string, handler Handler, middlewares ...Middleware) Route {
	return Route{
		Path:        path,
		Method:      method,
		Handler:     handler,
		Middlewares: middlewares,
	}
}

// Middlewares wraps a handler so that the first middleware in the list is
// the outermost wrapper.
func Middlewares(main http.Handler, middlewares ...Middleware) http.Handler {
	handler := main
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
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

	handler := newErrorHandler(s.errorHandler, route.Handler)
	if s.decorator != nil {
		instrumented, err := instrumentRoute(s.decorator, route, s.errorHandler, s.pointOptions...)
		if err != nil {
			return err
		}
		handler = instrumented
	}

	s.router.Method(route.Method, route.Path, Middlewares(handler, route.Middlewares...))
	return nil
}

func defaultHandleError(ctx context.Context, w http.ResponseWriter, err error) {
	_ = responses.Error(w, http.StatusInternalServerError, GetRequestID(ctx))
}

func newErrorHandler(errorHandler ErrorHandler, handler Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := handler(w, req); err != nil {
			errorHandler(req.Context(), w, err)
		}
	})
}

// logError is an ErrorHandler that logs through logger and answers 500.
func logError(logger observability.Logger) ErrorHandler {
	return func(ctx context.Context, w http.ResponseWriter, err error) {
		logger.Error(ctx, "http handler error",
			observability.String("request_id", GetRequestID(ctx)),
			observability.Error(err),
		)
		_ = responses.Error(w, http.StatusInternalServerError, GetRequestID(ctx))
	}
}
