// Package httpjson writes the JSON response envelope and decodes request bodies strictly.
//
// Success bodies are {"success":true,"data":...}; lists add total/page/limit/totalPages.
// Failures are {"success":false,"message":...,"field":...}.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"markers-api/internal/logging"
	"markers-api/internal/platform/apperr"
	"markers-api/internal/platform/pagination"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

type dataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	pagination.Meta
}

type messageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("httpjson: encode response failed", "error", err)
	}
}

// Data writes {"success":true,"data":data}.
func Data(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, dataEnvelope{Success: true, Data: data})
}

// List writes a page of items with its pagination metadata.
func List(w http.ResponseWriter, items any, meta pagination.Meta) {
	WriteJSON(w, http.StatusOK, listEnvelope{Success: true, Data: items, Meta: meta})
}

// Message writes {"success":true,"message":msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, messageEnvelope{Success: true, Message: msg})
}

// Error maps err to its status and writes the failure envelope. Internal errors are
// logged with their oops context and reported to the client as a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		logging.LogError(r.Context(), nil, "http: request failed", err, "method", r.Method, "path", r.URL.Path)
	}
	WriteJSON(w, status, errorEnvelope{
		Success: false,
		Message: apperr.Message(err),
		Field:   apperr.Field(err),
	})
}

// Decode reads a single JSON object from r into dst. Unknown fields, trailing data,
// oversize and malformed bodies are validation failures.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.Validation("", "Request body is required")
		case errors.As(err, &maxErr):
			return apperr.Validation("", "Request body is too large")
		default:
			return apperr.Wrap(err, apperr.CodeValidation, "", "Invalid request body")
		}
	}
	if dec.More() {
		return apperr.Validation("", "Request body must contain a single JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperr.Validation("", "Request body must contain a single JSON object")
	}
	return nil
}
