package logger

import (
	"log/slog"
	"os"

	"github.com/AsliddinWeb/online-course-platform/config"
)

// NewLogger builds the process-wide slog logger from the configured format
// and level.
func NewLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.GetSlogLevel(),
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", cfg.Environment),
	)
}
