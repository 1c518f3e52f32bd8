package router

import "errors"

var (
	// ErrInvalidPattern is returned when a route pattern is empty or malformed.
	ErrInvalidPattern = errors.New("invalid route pattern")

	// ErrInvalidMethod is returned when the HTTP method is not supported.
	ErrInvalidMethod = errors.New("invalid http method")

	// ErrDuplicateRoute is returned when a (method, pattern) pair is registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrCapacity is returned when the configured route limit is exceeded.
	ErrCapacity = errors.New("route capacity exceeded")
)
