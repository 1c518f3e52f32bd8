// Package middleware provides ready-made middleware for the zephyr chain:
// correlation id propagation and structured access logging.
//
//	app := zephyr.New(zephyr.WithLogger(log))
//	app.Use(middleware.RequestID(), middleware.Logging(log))
package middleware
