package ws

import "errors"

var (
	// ErrConnClosed is returned by writes issued after the connection was
	// closed. Broadcast fan-out swallows it.
	ErrConnClosed = errors.New("websocket connection closed")

	// ErrHubClosed is returned when registering routes or accepting
	// upgrades on a hub that was shut down.
	ErrHubClosed = errors.New("websocket hub closed")

	// ErrInvalidPattern is returned for malformed WS route patterns.
	ErrInvalidPattern = errors.New("invalid websocket route pattern")

	// ErrDuplicateRoute is returned when a pattern is registered twice.
	ErrDuplicateRoute = errors.New("duplicate websocket route")
)
