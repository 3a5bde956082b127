package chiext

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs one line per request with slog. Event streams are logged when
// they close.
func Logger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(LogFormatter{})
}

type LogFormatter struct{}

func (LogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []any{
		slog.String("package", "http"),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("from", r.RemoteAddr),
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		attrs = append(attrs, slog.String("request", reqID))
	}

	return logEntry{attrs: attrs}
}

type logEntry struct {
	attrs []any
}

func (l logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra any) {
	attrs := append(l.attrs,
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)

	switch {
	case status >= 500:
		slog.Error("Served request", attrs...)
	case status >= 400:
		slog.Warn("Served request", attrs...)
	default:
		slog.Debug("Served request", attrs...)
	}
}

func (l logEntry) Panic(v any, stack []byte) {
	slog.Error("Recovered from panic", append(l.attrs, slog.Any("panic", v), slog.String("stack", string(stack)))...)
}
