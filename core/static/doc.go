// Package static serves files from a directory as middleware, with the
// caching and safety semantics a CDN-fronted origin needs: ETag and
// Last-Modified validators, 304 conditional responses, single byte-range
// requests, HEAD support, a dotfiles policy and a directory traversal guard.
//
//	app.Use(static.Must("/var/www/public",
//		static.WithPrefix("/static"),
//		static.WithMaxAge(3600),
//	))
//
// Requests outside the prefix, and methods other than GET and HEAD, pass to
// the next middleware untouched. With WithFallthrough, 403 and 404 outcomes
// do the same instead of responding, so dynamic routes can share the prefix.
//
// The ETag is derived from file size and modification time, so it is stable
// across processes and replicas that share the same files.
package static
