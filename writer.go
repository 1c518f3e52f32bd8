package zephyr

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
)

// responseWriter wraps http.ResponseWriter to track whether a response has
// been written, along with the status code and body size. It passes through
// Flush and Hijack so streaming responses and WebSocket upgrades keep
// working behind the wrapper.
type responseWriter struct {
	http.ResponseWriter
	status  int
	size    int
	written bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Written reports whether headers have been flushed to the client.
func (w *responseWriter) Written() bool {
	return w.written
}

// Status returns the status code sent to the client, or 0 before the
// headers are written.
func (w *responseWriter) Status() int {
	return w.status
}

// Size returns the number of body bytes written so far.
func (w *responseWriter) Size() int {
	return w.size
}

func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the underlying connection.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	w.written = true
	return h.Hijack()
}
