// Package errors provides unified, structured error handling for the SLO
// recommendation engine core.
package errors

import (
	"fmt"
	"net/http"
)

// Code identifies the taxonomy of failures the core can surface, per the
// error handling design: invalid_input, service_not_found, insufficient_data,
// telemetry_unavailable, storage_failure, cycle_detected.
type Code string

const (
	CodeInvalidInput         Code = "invalid_input"
	CodeServiceNotFound      Code = "service_not_found"
	CodeInsufficientData     Code = "insufficient_data"
	CodeTelemetryUnavailable Code = "telemetry_unavailable"
	CodeStorageFailure       Code = "storage_failure"
	CodeCycleDetected        Code = "cycle_detected"
)

// Error is a structured error carrying a machine-readable code, a
// human-readable message, an HTTP-status hint for interface layers, optional
// structured details, and an optional wrapped cause.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches a structured detail key/value and returns the
// receiver for chaining.
func (e *Error) WithDetails(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string, httpStatus int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates a new Error that wraps an existing error.
func Wrap(code Code, message string, httpStatus int, err error) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// InvalidInput reports a payload or argument that violates a constraint.
func InvalidInput(field, reason string) *Error {
	return New(CodeInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// ServiceNotFound reports that the requested service is absent from the registry.
func ServiceNotFound(serviceID string) *Error {
	return New(CodeServiceNotFound, "service not found", http.StatusNotFound).
		WithDetails("service_id", serviceID)
}

// InsufficientData reports that no telemetry exists for any requested SLI type.
func InsufficientData(serviceID, reason string) *Error {
	return New(CodeInsufficientData, "insufficient telemetry data", http.StatusUnprocessableEntity).
		WithDetails("service_id", serviceID).
		WithDetails("reason", reason)
}

// TelemetryUnavailable reports a transient outbound telemetry failure. Callers
// may retry.
func TelemetryUnavailable(operation string, err error) *Error {
	return Wrap(CodeTelemetryUnavailable, "telemetry adapter unavailable", http.StatusServiceUnavailable, err).
		WithDetails("operation", operation)
}

// StorageFailure reports a persistence adapter failure. Transactional writes
// are guaranteed to have been aborted.
func StorageFailure(operation string, err error) *Error {
	return Wrap(CodeStorageFailure, "storage operation failed", http.StatusInternalServerError, err).
		WithDetails("operation", operation)
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Code == code
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
