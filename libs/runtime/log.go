package runtime

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/md-rashed-zaman/carebook/libs/config"
)

// NewLogger returns the service's JSON logger. LOG_LEVEL selects debug, info, warn or error.
func NewLogger(service string) *slog.Logger {
	return newLogger(os.Stdout, service, config.String("LOG_LEVEL", "info"))
}

func newLogger(w io.Writer, service, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(h).With("service", service)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
