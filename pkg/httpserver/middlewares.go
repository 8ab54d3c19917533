package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/JailtonJunior94/pointkit/pkg/responses"
	"github.com/google/uuid"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// ContextKeyRequestID is the context key for request ID.
	ContextKeyRequestID ContextKey = "request-id"

	HeaderRequestID = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestID propagates the incoming X-Request-ID or generates one, stores
// it in the request context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := sanitizeHeaderValue(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, requestID)
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(ContextKeyRequestID).(string)
	return requestID
}

// Recovery turns a handler panic into a 500 and logs it with the stack.
// Panics pass through route points untouched, so this is where they stop.
func Recovery(logger observability.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				logger.Error(r.Context(), "panic recovered",
					observability.String("request_id", GetRequestID(r.Context())),
					observability.String("method", r.Method),
					observability.String("path", r.URL.Path),
					observability.String("panic", fmt.Sprint(recovered)),
					observability.String("stack", string(debug.Stack())),
				)
				_ = responses.Error(w, http.StatusInternalServerError, GetRequestID(r.Context()))
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// sanitizeHeaderValue removes CR and LF characters to prevent header injection.
func sanitizeHeaderValue(value string) string {
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return strings.TrimSpace(value)
}
