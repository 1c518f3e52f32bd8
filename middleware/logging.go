package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/zephyrhttp/zephyr"
	"github.com/zephyrhttp/zephyr/core/logger"
)

// responseMeta is implemented by the pipeline's response writer.
type responseMeta interface {
	Status() int
	Size() int
}

// Logging emits one access log line per request. Handlers that stage a body
// instead of writing directly are serialized after the chain unwinds, so for
// those the logged status is the staged one (or 200 when unset).
func Logging(log *slog.Logger) zephyr.Middleware {
	return func(c *zephyr.Context, next zephyr.Next) error {
		start := time.Now()
		err := next()

		status := c.StatusCode()
		var size int64
		if meta, ok := c.ResponseWriter().(responseMeta); ok && c.Written() {
			status = meta.Status()
			size = int64(meta.Size())
		}
		if status == 0 {
			if _, staged := c.Staged(); staged {
				status = http.StatusOK
			}
		}

		attrs := []slog.Attr{
			logger.Method(c.Method()),
			logger.Path(c.Path()),
			logger.StatusCode(status),
			logger.BytesOut(size),
			logger.Elapsed(start),
			logger.RequestID(c.ID),
			logger.Error(err),
		}
		if err != nil {
			log.LogAttrs(c, slog.LevelError, "request failed", attrs...)
		} else {
			log.LogAttrs(c, slog.LevelInfo, "request completed", attrs...)
		}
		return err
	}
}
