package zephyr

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Context is the per-request record carrying everything a handler needs:
// the raw request and response, routing parameters, parsed query, the
// request body staged by body-parsing middleware, caller-scoped state, a
// correlation id and a request-scoped logger.
//
// A Context is owned by exactly one request and must not be retained after
// the response is flushed: instances are pooled and recycled.
type Context struct {
	w *responseWriter
	r *http.Request

	// Params holds the path parameters bound by the router.
	Params map[string]string

	// Body is the parsed request body. The core never populates it; body
	// parsing middleware does.
	Body any

	// State is caller-scoped storage shared along the middleware chain.
	State map[string]any

	// ID is the request correlation id.
	ID string

	// Logger is the request-scoped logger.
	Logger *slog.Logger

	query     url.Values
	status    int
	staged    any
	hasStaged bool
	ended     bool
}

// Deadline delegates to the request context.
func (c *Context) Deadline() (time.Time, bool) { return c.r.Context().Deadline() }

// Done delegates to the request context.
func (c *Context) Done() <-chan struct{} { return c.r.Context().Done() }

// Err delegates to the request context.
func (c *Context) Err() error { return c.r.Context().Err() }

// Value delegates to the request context.
func (c *Context) Value(key any) any { return c.r.Context().Value(key) }

var _ context.Context = (*Context)(nil)

// Request returns the underlying *http.Request.
func (c *Context) Request() *http.Request { return c.r }

// ResponseWriter returns the underlying response writer.
func (c *Context) ResponseWriter() http.ResponseWriter { return c.w }

// Method returns the request method.
func (c *Context) Method() string { return c.r.Method }

// Path returns the request path.
func (c *Context) Path() string {
	if c.r.URL.Path == "" {
		return "/"
	}
	return c.r.URL.Path
}

// Query returns the parsed query string. Parsing happens once per request.
func (c *Context) Query() url.Values {
	if c.query == nil {
		c.query = c.r.URL.Query()
	}
	return c.query
}

// QueryParam returns the first value for the named query key.
func (c *Context) QueryParam(key string) string {
	return c.Query().Get(key)
}

// Param returns the path parameter bound by the router, or "".
func (c *Context) Param(key string) string {
	return c.Params[key]
}

// Header returns a request header value.
func (c *Context) Header(key string) string {
	return c.r.Header.Get(key)
}

// SetHeader sets a response header. It has no effect once headers are
// flushed.
func (c *Context) SetHeader(key, value string) *Context {
	c.w.Header().Set(key, value)
	return c
}

// Set stores a caller-scoped value on the context.
func (c *Context) Set(key string, value any) {
	if c.State == nil {
		c.State = make(map[string]any, 4)
	}
	c.State[key] = value
}

// Get retrieves a caller-scoped value from the context.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.State[key]
	return v, ok
}

// Status sets the response status used by the next body write. It returns
// the context for chaining: ctx.Status(201).JSON(v).
func (c *Context) Status(status int) *Context {
	c.status = status
	return c
}

// StatusCode returns the staged response status, or 0 when unset.
func (c *Context) StatusCode() int { return c.status }

// JSON writes v as an application/json response.
func (c *Context) JSON(v any) error {
	c.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.writeStatus()
	c.ended = true
	return json.NewEncoder(c.w).Encode(v)
}

// Text writes s as a text/plain response.
func (c *Context) Text(s string) error {
	c.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.writeStatus()
	c.ended = true
	_, err := c.w.Write([]byte(s))
	return err
}

// HTML writes s as a text/html response.
func (c *Context) HTML(s string) error {
	c.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.writeStatus()
	c.ended = true
	_, err := c.w.Write([]byte(s))
	return err
}

// Blob writes raw bytes with the given content type.
func (c *Context) Blob(contentType string, b []byte) error {
	c.w.Header().Set("Content-Type", contentType)
	c.writeStatus()
	c.ended = true
	_, err := c.w.Write(b)
	return err
}

// End flushes the headers with the staged status and no body.
func (c *Context) End() error {
	c.writeStatus()
	c.ended = true
	return nil
}

// Respond stages a response body for the pipeline to serialize after the
// chain unwinds: strings render as text/plain, []byte as
// application/octet-stream, anything else as JSON.
func (c *Context) Respond(v any) {
	c.staged = v
	c.hasStaged = true
}

// Staged returns the staged response body and whether one was set.
func (c *Context) Staged() (any, bool) {
	return c.staged, c.hasStaged
}

// Written reports whether response headers have been flushed.
func (c *Context) Written() bool {
	return c.w.Written()
}

func (c *Context) writeStatus() {
	if c.w.Written() {
		return
	}
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	c.w.WriteHeader(status)
}

// reset prepares the context for reuse by the pool.
func (c *Context) reset(w *responseWriter, r *http.Request) {
	c.w = w
	c.r = r
	c.Body = nil
	c.ID = ""
	c.Logger = nil
	c.query = nil
	c.status = 0
	c.staged = nil
	c.hasStaged = false
	c.ended = false
	if c.Params != nil {
		clear(c.Params)
	} else if r != nil {
		c.Params = make(map[string]string, 4)
	}
	if c.State != nil {
		clear(c.State)
	}
}
