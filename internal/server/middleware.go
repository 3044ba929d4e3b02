package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-supervisor/runnables/httpserver"
)

// requestID tags every response with a fresh UUIDv6 before the rest of
// the chain runs.
func requestID() httpserver.HandlerFunc {
	return func(rp *httpserver.RequestProcessor) {
		rp.Writer().Header().Set("X-Request-ID", uuid.Must(uuid.NewV6()).String())
		rp.Next()
	}
}

// requestLogger logs one line per request after the chain completes, at a
// level matching the response status.
func requestLogger(logger *slog.Logger) httpserver.HandlerFunc {
	l := logger.WithGroup("http")
	return func(rp *httpserver.RequestProcessor) {
		r := rp.Request()
		start := time.Now()

		rp.Next()

		status := rp.Writer().Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		l.LogAttrs(r.Context(), level, "HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
