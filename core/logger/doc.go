// Package logger provides slog attribute helpers with consistent keys for
// HTTP and application logging. Helpers taking values that may be absent
// (errors, ids) return an empty Attr for the zero value, which slog drops,
// so call sites never need nil checks.
//
//	log.Info("request completed",
//		logger.Method(r.Method),
//		logger.Path(r.URL.Path),
//		logger.StatusCode(status),
//		logger.Elapsed(start),
//	)
package logger
