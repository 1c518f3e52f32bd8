package zephyr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zephyrhttp/zephyr/core/router"
	"github.com/zephyrhttp/zephyr/core/server"
	"github.com/zephyrhttp/zephyr/core/ws"
)

// route is the payload stored in the routing tree: the handler plus its
// route-scoped middleware.
type route struct {
	handler    Handler
	middleware []Middleware
}

// ExceptionFilter inspects an error escaping the chain and may write the
// response itself. Returning false hands the error to the default filter.
type ExceptionFilter func(ctx *Context, err error) bool

// App is the request pipeline: it owns the router, the global middleware
// chain, the context pool and, when WS routes exist, the WebSocket hub.
// It implements http.Handler.
type App struct {
	router *router.Router[*route]
	global []Middleware
	pool   *contextPool
	logger *slog.Logger
	filter ExceptionFilter
	hub    *ws.Hub

	wsOptions   []ws.Option
	timeout     time.Duration
	development bool
}

// New creates an application.
func New(opts ...Option) *App {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &App{
		router:      router.New[*route](cfg.routerOptions...),
		pool:        newContextPool(cfg.poolSize),
		logger:      cfg.logger,
		filter:      cfg.filter,
		wsOptions:   cfg.wsOptions,
		timeout:     cfg.timeout,
		development: cfg.development,
	}
}

// Use appends middleware to the global chain. Global middleware runs before
// route middleware and the handler, in registration order.
func (a *App) Use(mw ...Middleware) *App {
	a.global = append(a.global, mw...)
	return a
}

// Handle registers a handler for an arbitrary method. Route middleware runs
// after the global chain and before the handler. Registration failures
// (invalid pattern, duplicate, capacity) panic: routes are wired at startup
// and a misregistered route is a programming error.
func (a *App) Handle(method, pattern string, h Handler, mw ...Middleware) *App {
	if h == nil {
		panic(fmt.Sprintf("zephyr: nil handler for %s %s", method, pattern))
	}
	if err := a.router.Register(method, pattern, &route{handler: h, middleware: mw}); err != nil {
		panic(fmt.Errorf("zephyr: %w", err))
	}
	return a
}

// Get registers a GET handler.
func (a *App) Get(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodGet, pattern, h, mw...)
}

// Post registers a POST handler.
func (a *App) Post(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodPost, pattern, h, mw...)
}

// Put registers a PUT handler.
func (a *App) Put(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodPut, pattern, h, mw...)
}

// Delete registers a DELETE handler.
func (a *App) Delete(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodDelete, pattern, h, mw...)
}

// Patch registers a PATCH handler.
func (a *App) Patch(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodPatch, pattern, h, mw...)
}

// Head registers a HEAD handler.
func (a *App) Head(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodHead, pattern, h, mw...)
}

// Options registers an OPTIONS handler.
func (a *App) Options(pattern string, h Handler, mw ...Middleware) *App {
	return a.Handle(http.MethodOptions, pattern, h, mw...)
}

// WS registers a WebSocket route. The hub is created on first use with the
// options passed to New.
func (a *App) WS(pattern string, h ws.Handler, opts ...ws.RouteOption) *App {
	if a.hub == nil {
		wsOpts := append([]ws.Option{ws.WithLogger(a.logger)}, a.wsOptions...)
		a.hub = ws.NewHub(wsOpts...)
	}
	if err := a.hub.Route(pattern, h, opts...); err != nil {
		panic(fmt.Errorf("zephyr: %w", err))
	}
	return a
}

// Hub exposes the WebSocket hub for room broadcasts. Nil until the first WS
// route is registered.
func (a *App) Hub() *ws.Hub {
	return a.hub
}

// Routes enumerates the registered HTTP routes.
func (a *App) Routes() []router.Route {
	return a.router.Routes()
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// WebSocket upgrades bypass the HTTP pipeline entirely: the hub owns
	// handshake validation and response serialization.
	if a.hub != nil && ws.IsUpgrade(r) {
		a.hub.HandleUpgrade(w, r)
		return
	}

	ww := newResponseWriter(w)

	if a.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	c := a.pool.acquire(ww, r)
	defer a.pool.release(c)

	c.ID = requestID(r)
	c.Logger = a.logger

	defer func() {
		if p := recover(); p != nil {
			perr := &panicError{value: p, stack: debug.Stack()}
			if ww.Written() {
				a.logger.Error("panic after response written",
					"value", perr.value,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(perr.stack),
				)
				return
			}
			a.handleError(c, perr)
		}
	}()

	err := Execute(c, a.global, a.dispatch)
	if err == nil && r.Context().Err() == context.DeadlineExceeded {
		err = ErrTimeout
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout.Wrap(err)
		}
		a.handleError(c, err)
		return
	}

	a.finalize(c, ww)
}

// dispatch is the terminal step of the global chain: route lookup, parameter
// binding, then the route chain with the handler as its terminal.
func (a *App) dispatch(c *Context) error {
	m := a.router.Find(c.Method(), c.Path())
	if m == nil {
		if allowed := a.router.Allowed(c.Path()); len(allowed) > 0 {
			c.SetHeader("Allow", strings.Join(allowed, ", "))
			return ErrMethodNotAllowed
		}
		return ErrNotFound
	}

	for k, v := range m.Params {
		c.Params[k] = v
	}

	rt := m.Value
	return Execute(c, rt.middleware, rt.handler)
}

// finalize serializes whatever the handler staged once the chain has
// unwound: strings as text/plain, byte slices as application/octet-stream,
// anything else as JSON. With nothing staged and no explicit status the
// request falls through to 404.
func (a *App) finalize(c *Context, ww *responseWriter) {
	if ww.Written() {
		return
	}

	if body, ok := c.Staged(); ok {
		var err error
		switch v := body.(type) {
		case string:
			err = c.Text(v)
		case []byte:
			err = c.Blob("application/octet-stream", v)
		default:
			err = c.JSON(v)
		}
		if err != nil {
			a.logger.Error("response serialization failed", "error", err, "path", c.Path())
		}
		return
	}

	if c.StatusCode() != 0 {
		c.writeStatus()
		return
	}

	a.handleError(c, ErrNotFound)
}

// handleError routes an error through the installed exception filter and
// falls back to the default JSON error body.
func (a *App) handleError(c *Context, err error) {
	if a.filter != nil && a.filter(c, err) {
		return
	}
	a.defaultFilter(c, err)
}

func (a *App) defaultFilter(c *Context, err error) {
	if c.Written() {
		a.logger.Error("error after response written",
			"error", err, "method", c.Method(), "path", c.Path(), "correlation_id", c.ID)
		return
	}

	status := http.StatusInternalServerError
	code := ErrInternal.Code
	message := ErrInternal.Message
	var details any

	var herr *Error
	if errors.As(err, &herr) {
		status = herr.Status
		code = herr.Code
		message = herr.Message
		details = herr.Details
	} else if sc, ok := err.(statusCode); ok {
		status = sc.StatusCode()
		message = err.Error()
	}

	var stack string
	if a.development {
		if status == http.StatusInternalServerError {
			message = err.Error()
		}
		var perr PanicError
		if errors.As(err, &perr) {
			stack = string(perr.Stack())
		}
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			"error", err, "status", status, "method", c.Method(), "path", c.Path(), "correlation_id", c.ID)
	}

	c.Status(status)
	if jsonErr := c.JSON(errorBody{
		Error: errorDetail{
			Message: message,
			Code:    code,
			Details: details,
			Stack:   stack,
		},
		CorrelationID: c.ID,
	}); jsonErr != nil {
		a.logger.Error("error response failed", "error", jsonErr)
	}
}

// Listen starts an HTTP server for the application and blocks until the
// context is canceled or the server fails.
func (a *App) Listen(ctx context.Context, addr string) error {
	srv := server.New(addr, server.WithLogger(a.logger))
	defer a.closeHub()
	return srv.Start(ctx, a)
}

func (a *App) closeHub() {
	if a.hub != nil {
		a.hub.Close()
	}
}

// requestID reuses the caller's correlation id when present.
func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}
