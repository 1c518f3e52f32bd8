// Package zephyr is a small HTTP framework core: a radix-tree router with a
// route cache, a middleware chain with single-advance semantics, a pooled
// request context and a pipeline that ties them together. WebSocket routes
// and static file serving plug into the same pipeline.
//
//	app := zephyr.New(zephyr.WithLogger(log))
//	app.Use(middleware.RequestID(), middleware.Logging(log))
//
//	app.Get("/users/:id", func(c *zephyr.Context) error {
//		c.Respond(map[string]string{"id": c.Param("id")})
//		return nil
//	})
//
//	app.WS("/chat/*", func(conn *ws.Conn, r *http.Request) {
//		conn.Join("lobby")
//		conn.OnText(func(msg string) {
//			app.Hub().BroadcastText("lobby", msg, conn)
//		})
//	})
//
//	if err := app.Listen(ctx, ":8080"); err != nil {
//		log.Error("server failed", "error", err)
//	}
//
// Handlers return errors instead of writing error responses by hand; the
// pipeline converts them to a JSON error body with a correlation id. Values
// staged with Respond are serialized after the chain unwinds: strings as
// text/plain, byte slices as application/octet-stream, everything else as
// JSON.
package zephyr
