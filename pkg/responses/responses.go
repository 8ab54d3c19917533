// Package responses writes JSON bodies for HTTP handlers.
package responses

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error answer.
type ErrorBody struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// JSON writes data with statusCode. The status is already sent when
// encoding fails, so the error is only returned to the caller.
func JSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// Error answers with the status text of statusCode as the message.
func Error(w http.ResponseWriter, statusCode int, requestID string) error {
	return JSON(w, statusCode, ErrorBody{
		Message:   http.StatusText(statusCode),
		RequestID: requestID,
	})
}

// ErrorWithDetails answers with a custom message and details, typically
// input validation failures.
func ErrorWithDetails(w http.ResponseWriter, statusCode int, message, requestID string, details any) error {
	return JSON(w, statusCode, ErrorBody{
		Message:   message,
		RequestID: requestID,
		Details:   details,
	})
}
