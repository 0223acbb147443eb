// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here.
//
// Consistent response shapes also make life easier for API consumers —
// the console shows the message of an error response to the user as-is.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a student, a list, a count).
// Error responses always look like:
//
//	{ "status": "error", "message": "field Name is required" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status  string `json:"status"`  // "ok" or "error"
	Message string `json:"message"` // human-readable detail, shown to users
}

// Status string constants — use these instead of raw string literals so
// a typo is caught by the compiler rather than silently sending "eroor".
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Error writes an error envelope carrying msg.
func Error(w http.ResponseWriter, status int, msg string) error {
	return WriteJSON(w, status, Message(msg))
}

// Message builds an error envelope from a ready-made user-facing string.
func Message(msg string) Response {
	return Response{
		Status:  StatusError,
		Message: msg,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GeneralError wraps any Go error into our standard Response shape.
// Use this for unexpected errors (DB failures, decode errors, etc.)
// ─────────────────────────────────────────────────────────────────────────────
func GeneralError(err error) Response {
	return Message(err.Error())
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts a slice of validator.FieldError values into
// a single human-readable Response.
//
// Example output:
//
//	{ "status": "error", "message": "field Name is required, field Age must be at least 1" }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must not exceed %s", e.Field(), e.Param()))
		case "number", "numeric":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a number", e.Field()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Message(strings.Join(errMessages, ", "))
}
