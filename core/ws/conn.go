package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Conn is one accepted WebSocket connection. Exactly one goroutine (the
// hub's reader) reads the socket; writes may come from any goroutine and are
// serialized by a connection-local mutex. Close is idempotent and writes
// issued after it are discarded with ErrConnClosed.
type Conn struct {
	id  string
	url string
	hub *Hub
	ws  *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	rooms    map[string]struct{}
	lastPong time.Time
	alive    bool
	closed   bool

	onText   func(string)
	onBinary func([]byte)
	onClose  func(code int, reason string)
}

// ID returns the connection's UUID.
func (c *Conn) ID() string { return c.id }

// URL returns the request path at upgrade time.
func (c *Conn) URL() string { return c.url }

// OnText installs the handler for text messages. Call it from the route
// handler, before any message can arrive.
func (c *Conn) OnText(fn func(msg string)) {
	c.mu.Lock()
	c.onText = fn
	c.mu.Unlock()
}

// OnBinary installs the handler for binary messages.
func (c *Conn) OnBinary(fn func(data []byte)) {
	c.mu.Lock()
	c.onBinary = fn
	c.mu.Unlock()
}

// OnClose installs the handler invoked once when the connection ends, with
// the close code and reason.
func (c *Conn) OnClose(fn func(code int, reason string)) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

// SendText writes a text frame.
func (c *Conn) SendText(msg string) error {
	return c.write(websocket.TextMessage, []byte(msg))
}

// SendBinary writes a binary frame.
func (c *Conn) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// SendJSON writes v as a JSON text frame.
func (c *Conn) SendJSON(v any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

// ping sends a heartbeat ping; liveness comes back through the pong handler.
func (c *Conn) ping() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Join adds the connection to a room.
func (c *Conn) Join(room string) {
	c.hub.join(c, room)
}

// Leave removes the connection from a room.
func (c *Conn) Leave(room string) {
	c.hub.leave(c, room)
}

// Rooms returns the rooms the connection currently belongs to.
func (c *Conn) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// LastPong returns the time of the last pong (or the accept time before the
// first pong arrives).
func (c *Conn) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// IsAlive reports whether a pong has arrived since the last ping round.
func (c *Conn) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *Conn) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.lastPong = time.Now()
	c.mu.Unlock()
}

// Close sends a close frame with the given code and reason, tears the
// connection down and removes it from every room. It is safe to call from
// any goroutine and is a no-op after the first call.
func (c *Conn) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.writeMu.Unlock()

	c.finish(code, reason)
	return nil
}

// finish performs the one-time teardown: unregister from the hub and every
// room, fire the close callback and destroy the socket. Safe to call from
// both the reader loop and Close.
func (c *Conn) finish(code int, reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	onClose := c.onClose
	c.mu.Unlock()

	c.hub.removeConn(c)
	if onClose != nil {
		onClose(code, reason)
	}
	_ = c.ws.Close()
}

// readLoop is the connection's single reader. Messages are delivered to the
// installed handlers in arrival order.
func (c *Conn) readLoop() {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			code, reason := closeInfo(err)
			c.finish(code, reason)
			return
		}

		c.mu.Lock()
		onText, onBinary := c.onText, c.onBinary
		c.mu.Unlock()

		switch messageType {
		case websocket.TextMessage:
			if onText != nil {
				onText(string(data))
			}
		case websocket.BinaryMessage:
			if onBinary != nil {
				onBinary(data)
			}
		}
	}
}

// closeInfo maps a read error to the close code and reason reported to the
// close callback. Oversized messages map to 1009 (gorilla has already sent
// the close frame for those); anything without a close frame is abnormal.
func closeInfo(err error) (int, string) {
	if ce, ok := err.(*websocket.CloseError); ok {
		return ce.Code, ce.Text
	}
	if err == websocket.ErrReadLimit {
		return websocket.CloseMessageTooBig, "message too large"
	}
	return websocket.CloseAbnormalClosure, err.Error()
}
