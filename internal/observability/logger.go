package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger used by every binary. Records carry the
// active trace and span ids when a span is in the context.
func NewLogger(env, service string) *slog.Logger {
	return NewLoggerTo(os.Stdout, env, service)
}

func NewLoggerTo(w io.Writer, env, service string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)).With("service", service, "env", env)
}
