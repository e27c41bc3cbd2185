package testhelpers

import (
	"io"
	"log/slog"

	"fitcoach/backend/internal/logging"
)

// NewLogger creates a debug-level logger writing to logSink, typically NewWriter(t).
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return slog.New(handler)
}
