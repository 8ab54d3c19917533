package httpserver

import "errors"

// ErrNilHandler is returned when a route has no handler.
var ErrNilHandler = errors.New("httpserver: route handler cannot be nil")
