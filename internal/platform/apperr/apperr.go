// Package apperr defines the error codes that cross the HTTP boundary and maps them to status codes.
// Errors are built with samber/oops; anything without one of these codes is an internal error.
package apperr

import (
	"errors"
	"net/http"

	"github.com/samber/oops"
)

// Error codes understood by the HTTP boundary.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConflict           = "CONFLICT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
)

// InternalMessage is the only message clients see for uncoded failures.
const InternalMessage = "Internal server error"

var statusByCode = map[string]int{
	CodeValidation:         http.StatusUnprocessableEntity,
	CodeInvalidInput:       http.StatusBadRequest,
	CodeConflict:           http.StatusConflict,
	CodeInvalidCredentials: http.StatusUnauthorized,
	CodeUnauthorized:       http.StatusUnauthorized,
	CodeForbidden:          http.StatusForbidden,
	CodeNotFound:           http.StatusNotFound,
}

// New returns a coded error whose message is safe to show to clients. field may be empty.
func New(code, field, message string) error {
	b := oops.Code(code).Public(message)
	if field != "" {
		b = b.With("field", field)
	}
	return b.Errorf("%s", message)
}

// Wrap attaches a code and client-safe message to cause, keeping errors.Is(err, cause) true.
func Wrap(cause error, code, field, message string) error {
	b := oops.Code(code).Public(message)
	if field != "" {
		b = b.With("field", field)
	}
	return b.Wrap(cause)
}

// Validation reports a schema-level input failure on field (422).
func Validation(field, message string) error {
	return New(CodeValidation, field, message)
}

// InvalidInput reports a business-rule input failure on field (400).
func InvalidInput(field, message string) error {
	return New(CodeInvalidInput, field, message)
}

// NotFound reports a missing resource, e.g. NotFound("Marker") -> "Marker not found" (404).
func NotFound(resource string) error {
	return New(CodeNotFound, "", resource+" not found")
}

// Unauthorized reports a missing or rejected credential (401).
func Unauthorized(message string) error {
	return New(CodeUnauthorized, "", message)
}

// Forbidden reports an authenticated caller acting on someone else's resource (403).
func Forbidden(message string) error {
	return New(CodeForbidden, "", message)
}

// Code returns the oops code carried by err, or "" when there is none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// Is reports whether err carries code.
func Is(err error, code string) bool {
	return Code(err) == code
}

// Status maps err to an HTTP status. Unknown codes and plain errors are 500.
func Status(err error) int {
	if status, ok := statusByCode[Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message for err. Internal errors never leak their text.
func Message(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return InternalMessage
	}
	var oopsErr oops.OopsError
	if errors.As(err, &oopsErr) {
		if msg := oopsErr.Public(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// Field returns the offending input field recorded on err, if any.
func Field(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	field, _ := oopsErr.Context()["field"].(string)
	return field
}
