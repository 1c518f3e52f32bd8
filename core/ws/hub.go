package ws

import (
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler is invoked once per accepted connection, before the read loop
// starts. Install message and close callbacks on the connection here.
type Handler func(conn *Conn, r *http.Request)

// route is one registered WS endpoint. A pattern ending in "/*" matches the
// prefix plus any deeper path; "/*" alone matches everything.
type route struct {
	pattern  string
	prefix   string // non-empty for wildcard routes
	handler  Handler
	autoJoin string
}

// Hub owns every WebSocket connection of an application: it validates and
// performs upgrades, runs the per-connection reader, keeps the room index
// and drives the heartbeat.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	maxConnections    int
	maxMessageSize    int64
	heartbeatInterval time.Duration
	pongTimeout       time.Duration
	allowedOrigins    []string
	originPatterns    []*regexp.Regexp
	verifyClient      func(r *http.Request) bool

	mu     sync.RWMutex
	routes []*route
	conns  map[string]*Conn
	rooms  map[string]map[*Conn]struct{}
	closed bool

	heartbeatOnce sync.Once
	done          chan struct{}
}

// NewHub creates a hub. The heartbeat goroutine starts lazily with the first
// accepted connection and stops on Close.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced before the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxMessageSize:    DefaultMaxMessageSize,
		heartbeatInterval: DefaultHeartbeatInterval,
		pongTimeout:       DefaultPongTimeout,
		conns:             make(map[string]*Conn),
		rooms:             make(map[string]map[*Conn]struct{}),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Route registers a handler for a path pattern, exact or with a terminal
// "/*" wildcard.
func (h *Hub) Route(pattern string, fn Handler, opts ...RouteOption) error {
	if pattern == "" || pattern[0] != '/' {
		return ErrInvalidPattern
	}
	if i := strings.Index(pattern, "*"); i >= 0 && i != len(pattern)-1 {
		return ErrInvalidPattern
	}

	rt := &route{pattern: pattern, handler: fn}
	if strings.HasSuffix(pattern, "*") {
		rt.prefix = strings.TrimSuffix(pattern, "*")
	}
	for _, opt := range opts {
		opt(rt)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, existing := range h.routes {
		if existing.pattern == rt.pattern {
			return ErrDuplicateRoute
		}
	}
	h.routes = append(h.routes, rt)
	return nil
}

// matchRoute prefers an exact pattern, then the longest wildcard prefix.
func (h *Hub) matchRoute(path string) *route {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var best *route
	for _, rt := range h.routes {
		if rt.prefix == "" {
			if rt.pattern == path {
				return rt
			}
			continue
		}
		trimmed := strings.TrimSuffix(rt.prefix, "/")
		if path == trimmed || strings.HasPrefix(path, rt.prefix) {
			if best == nil || len(rt.prefix) > len(best.prefix) {
				best = rt
			}
		}
	}
	return best
}

// IsUpgrade reports whether the request asks for a WebSocket upgrade. The
// pipeline uses it to divert requests to the hub before HTTP routing.
func IsUpgrade(r *http.Request) bool {
	return headerContainsToken(r.Header, "Connection", "upgrade") &&
		headerContainsToken(r.Header, "Upgrade", "websocket")
}

// HandleUpgrade validates the handshake and, on success, hands the
// connection to its route handler and runs the read loop until the
// connection ends. Validation failures are answered with plain HTTP status
// codes and the connection is closed.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet ||
		!headerContainsToken(r.Header, "Upgrade", "websocket") ||
		!headerContainsToken(r.Header, "Connection", "upgrade") ||
		r.Header.Get("Sec-WebSocket-Version") != "13" ||
		r.Header.Get("Sec-WebSocket-Key") == "" {
		http.Error(w, "bad websocket handshake", http.StatusBadRequest)
		return
	}

	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	rt := h.matchRoute(path)
	if rt == nil {
		http.Error(w, "no websocket route", http.StatusNotFound)
		return
	}

	if !h.originAllowed(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	if h.verifyClient != nil && !h.verifyClient(r) {
		http.Error(w, "client rejected", http.StatusUnauthorized)
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}
	if h.maxConnections > 0 && len(h.conns) >= h.maxConnections {
		h.mu.Unlock()
		http.Error(w, "connection limit reached", http.StatusServiceUnavailable)
		return
	}
	h.mu.Unlock()

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Debug("websocket upgrade failed", "path", path, "error", err)
		return
	}

	conn := &Conn{
		id:       uuid.New().String(),
		url:      path,
		hub:      h,
		ws:       wsConn,
		lastPong: time.Now(),
		alive:    true,
	}

	wsConn.SetReadLimit(h.maxMessageSize)
	wsConn.SetPongHandler(func(string) error {
		conn.markAlive()
		return nil
	})

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()

	h.heartbeatOnce.Do(func() {
		if h.heartbeatInterval > 0 {
			go h.heartbeatLoop()
		}
	})

	if rt.autoJoin != "" {
		conn.Join(rt.autoJoin)
	}

	h.logger.Debug("websocket connected", "conn", conn.id, "path", path)

	if rt.handler != nil {
		rt.handler(conn, r)
	}
	conn.readLoop()
}

func (h *Hub) originAllowed(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 && len(h.originPatterns) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	for _, pattern := range h.originPatterns {
		if pattern.MatchString(origin) {
			return true
		}
	}
	return false
}

// heartbeatLoop pings every connection on each tick and closes the ones
// whose last pong is older than the pong timeout.
func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			now := time.Now()
			for _, c := range h.snapshotConns() {
				if now.Sub(c.LastPong()) > h.pongTimeout {
					_ = c.Close(websocket.CloseAbnormalClosure, "pong timeout")
					continue
				}
				c.ping()
			}
		}
	}
}

func (h *Hub) snapshotConns() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Connections reports the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close stops the heartbeat, refuses further upgrades and closes every
// connection with 1000.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()

	close(h.done)
	for _, c := range h.snapshotConns() {
		_ = c.Close(websocket.CloseNormalClosure, "server shutdown")
	}
}

// headerContainsToken reports whether a comma-separated header contains the
// token, case-insensitively.
func headerContainsToken(header http.Header, name, token string) bool {
	for _, value := range header.Values(name) {
		for _, part := range strings.Split(value, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
