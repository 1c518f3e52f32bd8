package zephyr

import (
	"fmt"
	"net/http"
)

// Error is the framework's HTTP-renderable error. Code is a stable,
// machine-readable kind; Status is the HTTP status used when the error
// reaches the default exception filter unhandled.
type Error struct {
	Code    string
	Status  int
	Message string
	Details any
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// StatusCode returns the HTTP status the error renders as.
func (e *Error) StatusCode() int {
	return e.Status
}

// Wrap returns a copy of the error carrying err as its cause. The sentinel
// itself is never mutated so errors.Is against it keeps working.
func (e *Error) Wrap(err error) *Error {
	clone := *e
	clone.err = err
	return &clone
}

// WithDetails returns a copy of the error carrying caller-supplied details
// for the response body.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// Is matches errors sharing the same Code so wrapped copies compare equal to
// their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Error taxonomy. Router registration errors (invalid pattern, duplicate,
// capacity) surface from core/router at registration time; the sentinels
// below cover the request path.
var (
	ErrNotFound = &Error{Code: "NOT_FOUND", Status: http.StatusNotFound, Message: "not found"}

	ErrMethodNotAllowed = &Error{Code: "METHOD_NOT_ALLOWED", Status: http.StatusMethodNotAllowed, Message: "method not allowed"}

	// ErrNextCalledTwice reports middleware misuse: a frame advanced the
	// chain more than once. Fatal to the request.
	ErrNextCalledTwice = &Error{Code: "NEXT_CALLED_TWICE", Status: http.StatusInternalServerError, Message: "middleware called next twice"}

	ErrPayloadTooLarge = &Error{Code: "PAYLOAD_TOO_LARGE", Status: http.StatusRequestEntityTooLarge, Message: "payload too large"}

	ErrTimeout = &Error{Code: "TIMEOUT", Status: http.StatusRequestTimeout, Message: "request timed out"}

	ErrBadHandshake = &Error{Code: "BAD_HANDSHAKE", Status: http.StatusBadRequest, Message: "websocket handshake failed"}

	ErrInternal = &Error{Code: "INTERNAL", Status: http.StatusInternalServerError, Message: "internal server error"}
)

// PanicError gives exception filters access to the recovered value and the
// stack captured at the panic point.
type PanicError interface {
	error
	Value() any
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}

// statusCode lets foreign errors carry their own HTTP status.
type statusCode interface {
	StatusCode() int
}

// errorBody is the JSON error envelope written by the default filter.
type errorBody struct {
	Error         errorDetail `json:"error"`
	CorrelationID string      `json:"correlationId,omitempty"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}
