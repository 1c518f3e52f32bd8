package router

import "sync"

// routeCache memoizes lookup results keyed by "METHOD:path", including
// negative results. Eviction policy: when the cache reaches capacity the
// oldest half is dropped in one sweep. This trades strict LRU precision for
// a trivially cheap hot path and is a documented, deliberate policy.
//
// Every entry records the router version it was computed against; entries
// from an older version are never served, so a registration change
// invalidates the whole cache without coordination with in-flight lookups.
type routeCache[T any] struct {
	mu      sync.Mutex
	max     int
	entries map[string]cacheEntry[T]
	order   []string
}

type cacheEntry[T any] struct {
	match   *Match[T] // nil records a definitive miss
	version uint64
}

func newRouteCache[T any](max int) *routeCache[T] {
	return &routeCache[T]{
		max:     max,
		entries: make(map[string]cacheEntry[T], max),
		order:   make([]string, 0, max),
	}
}

// get returns the cached result for key if it was computed against the
// current router version. The second return reports whether a usable entry
// (hit or recorded miss) was found.
func (c *routeCache[T]) get(key string, version uint64) (*Match[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.version != version {
		delete(c.entries, key)
		return nil, false
	}
	return e.match, true
}

// put stores a lookup result. Existing keys are refreshed in place and do
// not extend the insertion order.
func (c *routeCache[T]) put(key string, m *Match[T], version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.max {
			half := len(c.order) / 2
			for _, old := range c.order[:half] {
				delete(c.entries, old)
			}
			c.order = append(c.order[:0], c.order[half:]...)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = cacheEntry[T]{match: m, version: version}
}

// purge drops everything. Called on any registration change.
func (c *routeCache[T]) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.order = c.order[:0]
}

// len reports the number of live entries, for tests.
func (c *routeCache[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
