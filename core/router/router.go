package router

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	// DefaultMaxRoutes bounds the number of registered routes.
	DefaultMaxRoutes = 10000

	// DefaultCacheSize bounds the lookup cache.
	DefaultCacheSize = 1000
)

// methodSet lists the HTTP methods the router accepts for registration.
var methodSet = map[string]struct{}{
	"GET":     {},
	"POST":    {},
	"PUT":     {},
	"DELETE":  {},
	"PATCH":   {},
	"HEAD":    {},
	"OPTIONS": {},
}

// Match is the result of a successful lookup. Cached matches are shared
// between requests; callers must treat Params as read-only.
type Match[T any] struct {
	Value   T
	Method  string
	Pattern string
	Params  map[string]string
}

// Route describes a registered route for introspection.
type Route struct {
	Method  string
	Pattern string
}

// Router dispatches (method, path) pairs against a radix tree of registered
// patterns in O(path-segments). Lookups may run concurrently with each other;
// registration and Clear are exclusive.
type Router[T any] struct {
	mu      sync.RWMutex
	root    *node[T]
	count   int
	version atomic.Uint64
	cache   *routeCache[T]

	caseInsensitive bool
	strictSlash     bool
	maxRoutes       int
	cacheSize       int
}

// Option configures a Router during creation.
type Option func(*config)

type config struct {
	caseInsensitive bool
	strictSlash     bool
	maxRoutes       int
	cacheSize       int
}

// WithCaseInsensitive lowercases both patterns and lookup paths before
// comparison. Parameter values keep the request's original casing.
func WithCaseInsensitive() Option {
	return func(c *config) { c.caseInsensitive = true }
}

// WithStrictSlash makes a trailing slash significant: "/users" and "/users/"
// become distinct routes and the trailing-slash retry is disabled on the
// form that was explicitly registered.
func WithStrictSlash() Option {
	return func(c *config) { c.strictSlash = true }
}

// WithMaxRoutes overrides the registration capacity.
func WithMaxRoutes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRoutes = n
		}
	}
}

// WithCacheSize overrides the lookup cache capacity.
func WithCacheSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// New creates an empty router.
func New[T any](opts ...Option) *Router[T] {
	cfg := config{
		maxRoutes: DefaultMaxRoutes,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Router[T]{
		root:            newNode[T](),
		cache:           newRouteCache[T](cfg.cacheSize),
		caseInsensitive: cfg.caseInsensitive,
		strictSlash:     cfg.strictSlash,
		maxRoutes:       cfg.maxRoutes,
		cacheSize:       cfg.cacheSize,
	}
}

// Register inserts a route. It fails with ErrInvalidMethod for unsupported
// verbs, ErrInvalidPattern for malformed patterns, ErrDuplicateRoute when the
// exact (method, normalized pattern) already exists, and ErrCapacity when the
// route limit is reached. A failed registration never corrupts the tree.
func (r *Router[T]) Register(method, pattern string, value T) error {
	method = strings.ToUpper(method)
	if _, ok := methodSet[method]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidMethod, method)
	}

	segs, canonical, err := parsePattern(pattern, r.caseInsensitive, r.strictSlash)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count >= r.maxRoutes {
		return fmt.Errorf("%w: limit %d", ErrCapacity, r.maxRoutes)
	}
	if err := r.root.insert(method, segs, canonical, value); err != nil {
		return err
	}
	r.count++
	r.version.Add(1)
	r.cache.purge()
	return nil
}

// Find returns the match for (method, path), or nil when no route handles
// the pair. It is pure apart from cache population and never returns an
// error. When the initial lookup misses and the path is not "/", the lookup
// is retried once with the opposite trailing-slash form; strict-slash mode
// disables the retry.
func (r *Router[T]) Find(method, path string) *Match[T] {
	method = strings.ToUpper(method)
	key := method + ":" + path

	version := r.version.Load()
	if m, ok := r.cache.get(key, version); ok {
		return m
	}

	r.mu.RLock()
	m := r.lookup(method, path)
	if m == nil && !r.strictSlash && path != "/" {
		m = r.lookup(method, toggleTrailingSlash(path))
	}
	r.mu.RUnlock()

	// Stale results are fenced by the version stamp: an entry computed
	// against an older tree is never served.
	r.cache.put(key, m, version)
	return m
}

// lookup performs one traversal. The caller holds the read lock.
func (r *Router[T]) lookup(method, path string) *Match[T] {
	raw := splitPath(path, r.strictSlash)
	folded := raw
	if r.caseInsensitive {
		folded = make([]string, len(raw))
		for i, s := range raw {
			folded[i] = strings.ToLower(s)
		}
	}

	n, params := r.root.terminal(folded, raw)
	if n == nil || n.routes == nil {
		return nil
	}
	e, ok := n.routes[method]
	if !ok {
		return nil
	}
	return &Match[T]{
		Value:   e.value,
		Method:  method,
		Pattern: e.pattern,
		Params:  params,
	}
}

// Allowed returns the sorted set of methods registered for path, regardless
// of the method used for lookup. An empty result means the path is unknown.
func (r *Router[T]) Allowed(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.terminalFor(path)
	if n == nil && !r.strictSlash && path != "/" {
		n = r.terminalFor(toggleTrailingSlash(path))
	}
	if n == nil || len(n.routes) == 0 {
		return nil
	}
	allowed := make([]string, 0, len(n.routes))
	for m := range n.routes {
		allowed = append(allowed, m)
	}
	sort.Strings(allowed)
	return allowed
}

func (r *Router[T]) terminalFor(path string) *node[T] {
	raw := splitPath(path, r.strictSlash)
	folded := raw
	if r.caseInsensitive {
		folded = make([]string, len(raw))
		for i, s := range raw {
			folded[i] = strings.ToLower(s)
		}
	}
	n, _ := r.root.terminal(folded, raw)
	return n
}

// Routes enumerates every registered route in no particular order.
func (r *Router[T]) Routes() []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	routes := make([]Route, 0, r.count)
	r.root.walk(func(method string, e *entry[T]) {
		routes = append(routes, Route{Method: method, Pattern: e.pattern})
	})
	return routes
}

// Clear drops every route and invalidates the cache.
func (r *Router[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.root = newNode[T]()
	r.count = 0
	r.version.Add(1)
	r.cache.purge()
}

// Len reports the number of registered routes.
func (r *Router[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// CacheLen reports the number of live cache entries, for tests and
// diagnostics.
func (r *Router[T]) CacheLen() int {
	return r.cache.len()
}

func toggleTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return strings.TrimSuffix(path, "/")
	}
	return path + "/"
}
