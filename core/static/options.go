package static

import (
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/zephyrhttp/zephyr"
)

// DotfilesPolicy controls how paths with a dot-prefixed element are treated.
type DotfilesPolicy int

const (
	// DotfilesIgnore answers 404, hiding the file's existence.
	DotfilesIgnore DotfilesPolicy = iota
	// DotfilesDeny answers 403.
	DotfilesDeny
	// DotfilesAllow serves the file like any other.
	DotfilesAllow
)

// SetHeadersFunc runs before the body is written, after the standard caching
// headers are set. It may add or override response headers.
type SetHeadersFunc func(c *zephyr.Context, absPath string, info fs.FileInfo)

type config struct {
	root       string
	prefix     string
	index      string
	fallthru   bool
	redirect   bool
	maxAge     int
	immutable  bool
	dotfiles   DotfilesPolicy
	extensions []string
	setHeaders SetHeadersFunc
	logger     *slog.Logger
}

func defaultConfig(root string) config {
	return config{
		root:     root,
		index:    "index.html",
		redirect: true,
		dotfiles: DotfilesIgnore,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures the file server.
type Option func(*config)

// WithPrefix mounts the file server under a URL prefix. Requests outside the
// prefix fall through to the next middleware.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithIndex sets the file served for directory requests. An empty name
// disables index serving and directory requests answer 403.
func WithIndex(name string) Option {
	return func(c *config) {
		c.index = name
	}
}

// WithFallthrough makes 4xx outcomes call the next middleware instead of
// responding, so other routes under the prefix can still match.
func WithFallthrough() Option {
	return func(c *config) {
		c.fallthru = true
	}
}

// WithoutRedirect disables the 301 redirect for directory requests missing a
// trailing slash.
func WithoutRedirect() Option {
	return func(c *config) {
		c.redirect = false
	}
}

// WithMaxAge sets Cache-Control: public, max-age=seconds on served files.
func WithMaxAge(seconds int) Option {
	return func(c *config) {
		c.maxAge = seconds
	}
}

// WithImmutable adds the immutable directive to Cache-Control. Only takes
// effect together with a positive max age.
func WithImmutable() Option {
	return func(c *config) {
		c.immutable = true
	}
}

// WithDotfiles sets the policy for dot-prefixed path elements.
func WithDotfiles(policy DotfilesPolicy) Option {
	return func(c *config) {
		c.dotfiles = policy
	}
}

// WithExtensions sets extensions tried in order when the requested path does
// not exist, e.g. "html" turns /about into /about.html.
func WithExtensions(exts ...string) Option {
	return func(c *config) {
		c.extensions = make([]string, 0, len(exts))
		for _, ext := range exts {
			c.extensions = append(c.extensions, strings.TrimPrefix(ext, "."))
		}
	}
}

// WithSetHeaders installs a hook invoked before the body is written.
func WithSetHeaders(fn SetHeadersFunc) Option {
	return func(c *config) {
		c.setHeaders = fn
	}
}

// WithLogger sets the logger for filesystem failures. Logging is off by
// default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
