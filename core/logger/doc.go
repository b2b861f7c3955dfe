// Package logger provides slog attribute helpers with consistent keys for
// request-scoped logging.
//
// Helpers are nil-safe: passing a nil error or an empty identifier returns
// the zero Attr, which slog drops, so call sites never guard their inputs.
//
//	log.Info("request completed",
//		logger.Method("GET"),
//		logger.Path("/users"),
//		logger.StatusCode(200),
//		logger.Latency(time.Since(start)),
//	)
//
//	log.Error("operation failed",
//		logger.Error(err),
//		logger.Component("worker"),
//	)
package logger
