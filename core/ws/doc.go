// Package ws provides the framework's WebSocket layer: handshake
// validation, connection lifecycle, process-local rooms with broadcast
// fan-out, and a ping/pong heartbeat.
//
// The Hub intercepts HTTP upgrade requests before regular routing. It
// validates the RFC 6455 handshake (method, Upgrade/Connection headers,
// version 13, key) and the hub policy (route match, origin allowlist,
// client verification, connection cap) and answers violations with plain
// HTTP status codes: 400, 404, 403, 401 and 503 respectively. Accepted
// connections complete the 101 exchange through gorilla/websocket, which
// also owns the frame codec; the hub enforces the message size limit
// (violations close with 1009) and drives liveness (missing pongs close
// with 1006).
//
//	hub := ws.NewHub(ws.WithMaxConnections(1024))
//	hub.Route("/chat/*", func(conn *ws.Conn, r *http.Request) {
//		conn.Join("lobby")
//		conn.OnText(func(msg string) {
//			hub.BroadcastText("lobby", msg, conn)
//		})
//	})
//
// Within one connection messages reach the handlers in arrival order and a
// single writer mutex serializes outbound frames; across connections there
// is no ordering guarantee.
package ws
