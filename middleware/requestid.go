package middleware

import (
	"github.com/zephyrhttp/zephyr"
)

// HeaderXRequestID is the header used to propagate correlation ids.
const HeaderXRequestID = "X-Request-ID"

// RequestID echoes the request's correlation id on the response. The
// pipeline has already assigned ctx.ID from the incoming X-Request-ID header
// or a fresh UUID; this middleware makes it visible to the caller.
func RequestID() zephyr.Middleware {
	return func(c *zephyr.Context, next zephyr.Next) error {
		c.SetHeader(HeaderXRequestID, c.ID)
		return next()
	}
}
