package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNilResponse  = errors.New("handler returned nil response")
	ErrHandlerPanic = errors.New("handler panicked")
)

// HTTPError is an error with an HTTP status and a stable machine-readable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// NewHTTPError creates an HTTPError; an empty message falls back to the status text.
func NewHTTPError(code int, key, message string) HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	return HTTPError{Code: code, Key: key, Message: message}
}

var (
	ErrBadRequest          = NewHTTPError(http.StatusBadRequest, "bad_request", "")
	ErrUnauthorized        = NewHTTPError(http.StatusUnauthorized, "unauthorized", "")
	ErrForbidden           = NewHTTPError(http.StatusForbidden, "forbidden", "")
	ErrNotFound            = NewHTTPError(http.StatusNotFound, "not_found", "")
	ErrConflict            = NewHTTPError(http.StatusConflict, "conflict", "")
	ErrGone                = NewHTTPError(http.StatusGone, "gone", "")
	ErrLocked              = NewHTTPError(http.StatusLocked, "locked", "")
	ErrTooManyRequests     = NewHTTPError(http.StatusTooManyRequests, "too_many_requests", "")
	ErrInternalServerError = NewHTTPError(http.StatusInternalServerError, "internal_error", "")
)

// ValidationError maps field names to their violations.
type ValidationError map[string][]string

func NewValidationError() ValidationError { return ValidationError{} }

// Add records a violation for field.
func (v ValidationError) Add(field, message string) ValidationError {
	v[field] = append(v[field], message)
	return v
}

// Empty reports whether no violations were recorded.
func (v ValidationError) Empty() bool { return len(v) == 0 }

// Err returns v as an error, or nil when empty.
func (v ValidationError) Err() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
