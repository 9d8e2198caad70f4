package cli

import (
	"io"
	"log/slog"
	"net/url"

	"github.com/lstn/beacon/internal/metrics"
)

// initLogger builds the process logger and installs it as the slog default.
func initLogger(w io.Writer, level, format string) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}

	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactURL strips the password from connection URLs before they are logged.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// logTotals logs per-kind delivery counts when rec keeps them.
func logTotals(logger *slog.Logger, rec metrics.Recorder) {
	s, ok := rec.(metrics.Snapshotter)
	if !ok {
		return
	}
	snap := s.Snapshot()
	for _, kind := range []string{"LOAD", "TIME", "UNLOAD"} {
		sent, failed := snap.Sent(kind, metrics.StatusSent), snap.Sent(kind, metrics.StatusFailed)
		if sent+failed == 0 {
			continue
		}
		logger.Info("beacon totals", "kind", kind, "sent", sent, "failed", failed)
	}
}
