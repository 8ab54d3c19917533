package fiberserver

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/JailtonJunior94/pointkit/pkg/observability"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-ID"
	LocalsRequestID = "request-id"

	maxRequestIDLength = 128
)

// RequestID propagates the incoming X-Request-ID or generates one and
// stores it in Fiber locals.
func RequestID(c *fiber.Ctx) error {
	requestID := sanitizeHeaderValue(utils.CopyString(c.Get(HeaderRequestID)))
	if requestID == "" || len(requestID) > maxRequestIDLength {
		requestID = uuid.NewString()
	}

	c.Set(HeaderRequestID, requestID)
	c.Locals(LocalsRequestID, requestID)
	return c.Next()
}

// GetRequestID retrieves the request ID from Fiber locals.
func GetRequestID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	requestID, _ := c.Locals(LocalsRequestID).(string)
	return requestID
}

// Recovery turns a handler panic into a 500 and logs it with the stack.
func Recovery(logger observability.Logger) Middleware {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			logger.Error(c.UserContext(), "panic recovered",
				observability.String("request_id", GetRequestID(c)),
				observability.String("method", c.Method()),
				observability.String("path", c.Path()),
				observability.String("panic", fmt.Sprint(recovered)),
				observability.String("stack", string(debug.Stack())),
			)
			err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}()

		return c.Next()
	}
}

func sanitizeHeaderValue(value string) string {
	value = strings.ReplaceAll(value, "\r", "")
	value = strings.ReplaceAll(value, "\n", "")
	return strings.TrimSpace(value)
}
