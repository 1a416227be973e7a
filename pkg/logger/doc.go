// Package logger provides structured logging with context extraction.
//
// It extends the standard library's log/slog with automatic context-based
// attribute injection: request-scoped values such as request IDs and
// tenant names are pulled from the context on every log call, so handlers
// and services log through a plain *slog.Logger without threading those
// values by hand.
//
// # Basic Usage
//
//	requestIDExtractor := func(ctx context.Context) (slog.Attr, bool) {
//		if id := middleware.GetReqID(ctx); id != "" {
//			return slog.String("request_id", id), true
//		}
//		return slog.Attr{}, false
//	}
//
//	log := logger.New(slog.LevelInfo, requestIDExtractor)
//	log.InfoContext(ctx, "upload stored", slog.String("object", name))
//
// Extractors run per log call, ensuring fresh values for request-scoped
// data; return false to skip the attribute for that entry.
//
// NewNope returns a discard-everything logger for tests and as a default
// when logging is not configured.
package logger
