package ws

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

const (
	// DefaultMaxMessageSize caps inbound message payloads at 1 MiB.
	DefaultMaxMessageSize = 1 << 20

	// DefaultHeartbeatInterval is how often the hub pings each connection.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultPongTimeout is how long a connection may go without a pong
	// before it is closed with 1006.
	DefaultPongTimeout = 60 * time.Second
)

// Option configures a Hub during creation.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxConnections caps concurrent connections; upgrades beyond the cap
// are refused with 503. Zero means unlimited.
func WithMaxConnections(n int) Option {
	return func(h *Hub) { h.maxConnections = n }
}

// WithMaxMessageSize caps inbound message payloads. A violating connection
// is closed with 1009.
func WithMaxMessageSize(n int64) Option {
	return func(h *Hub) {
		if n > 0 {
			h.maxMessageSize = n
		}
	}
}

// WithHeartbeat tunes the ping interval and the pong deadline.
func WithHeartbeat(interval, pongTimeout time.Duration) Option {
	return func(h *Hub) {
		if interval > 0 {
			h.heartbeatInterval = interval
		}
		if pongTimeout > 0 {
			h.pongTimeout = pongTimeout
		}
	}
}

// WithAllowedOrigins restricts upgrades to the given exact Origin values.
// Rejected origins receive 403. Without an allowlist (and without origin
// patterns) every origin is accepted.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) { h.allowedOrigins = append(h.allowedOrigins, origins...) }
}

// WithOriginPatterns restricts upgrades to Origins matching any of the given
// regular expressions. Combines with WithAllowedOrigins.
func WithOriginPatterns(patterns ...*regexp.Regexp) Option {
	return func(h *Hub) { h.originPatterns = append(h.originPatterns, patterns...) }
}

// WithVerifyClient installs a predicate consulted after the origin check.
// Rejected requests receive 401.
func WithVerifyClient(fn func(r *http.Request) bool) Option {
	return func(h *Hub) { h.verifyClient = fn }
}

// WithReadBufferSize sets the upgrader's read buffer.
func WithReadBufferSize(n int) Option {
	return func(h *Hub) { h.upgrader.ReadBufferSize = n }
}

// WithWriteBufferSize sets the upgrader's write buffer.
func WithWriteBufferSize(n int) Option {
	return func(h *Hub) { h.upgrader.WriteBufferSize = n }
}

// WithHandshakeTimeout bounds the upgrade handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(h *Hub) { h.upgrader.HandshakeTimeout = d }
}

// RouteOption configures a single WS route.
type RouteOption func(*route)

// WithAutoJoin places every connection accepted by the route into the given
// room before its handler runs.
func WithAutoJoin(room string) RouteOption {
	return func(rt *route) { rt.autoJoin = room }
}
