package zephyr

import (
	"io"
	"log/slog"
	"time"

	"github.com/zephyrhttp/zephyr/core/router"
	"github.com/zephyrhttp/zephyr/core/ws"
)

type config struct {
	logger        *slog.Logger
	filter        ExceptionFilter
	timeout       time.Duration
	poolSize      int
	development   bool
	routerOptions []router.Option
	wsOptions     []ws.Option
}

func defaultConfig() config {
	return config{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		poolSize: DefaultContextPoolSize,
	}
}

// Option configures an App.
type Option func(*config)

// WithLogger sets the logger used by the pipeline and handed to every
// request context. Logging is off by default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithExceptionFilter installs a hook that sees every error escaping the
// chain before the default JSON error response.
func WithExceptionFilter(filter ExceptionFilter) Option {
	return func(cfg *config) {
		cfg.filter = filter
	}
}

// WithRequestTimeout bounds handler execution. Requests that exceed it
// receive a 408 unless the handler already wrote a response.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithContextPoolSize caps how many request contexts are kept for reuse.
func WithContextPoolSize(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.poolSize = n
		}
	}
}

// WithDevelopment enables diagnostic error bodies: real error messages and,
// for panics, stack traces. Never enable it in production.
func WithDevelopment() Option {
	return func(cfg *config) {
		cfg.development = true
	}
}

// WithRouterOptions forwards options to the underlying router, for example
// router.WithCaseInsensitive() or router.WithCacheSize(n).
func WithRouterOptions(opts ...router.Option) Option {
	return func(cfg *config) {
		cfg.routerOptions = append(cfg.routerOptions, opts...)
	}
}

// WithWebSocketOptions forwards options to the hub created by the first WS
// route registration.
func WithWebSocketOptions(opts ...ws.Option) Option {
	return func(cfg *config) {
		cfg.wsOptions = append(cfg.wsOptions, opts...)
	}
}
