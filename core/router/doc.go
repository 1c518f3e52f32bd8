// Package router implements the framework's radix-tree route dispatcher.
//
// Patterns are sequences of path segments: literals ("/users/list"), named
// parameters (":id", matching exactly one segment) and a terminal wildcard
// ("*", capturing the remainder of the path under the "*" key). At every
// node the tie-break is static over parameter over wildcard, and descent is
// greedy: the first viable edge wins and the matcher never backtracks, which
// keeps every lookup O(number of path segments).
//
// Lookups are memoized in a bounded cache that also records misses. The
// cache drops its oldest half in one sweep when full and is invalidated by
// any registration change. Lookups may run concurrently; Register and Clear
// take the tree exclusively, so a Find observes either the pre- or
// post-mutation tree, never a partial one.
//
// The router is generic over its payload so the application layer can attach
// whatever per-route record it needs:
//
//	r := router.New[http.HandlerFunc]()
//	if err := r.Register("GET", "/users/:id", getUser); err != nil {
//		...
//	}
//	if m := r.Find("GET", "/users/42"); m != nil {
//		m.Value // getUser
//		m.Params["id"] // "42"
//	}
package router
