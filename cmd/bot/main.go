package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AsliddinWeb/online-course-platform/config"
	"github.com/AsliddinWeb/online-course-platform/internal/core/telegram"
	"github.com/AsliddinWeb/online-course-platform/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defaultLogger := logger.NewLogger(&cfg)
	slog.SetDefault(defaultLogger)

	backend := telegram.NewHTTPBackend(cfg.BackendURL, cfg.BotAPIToken)

	botService, err := telegram.NewTelegramService(&cfg, backend, defaultLogger)
	if err != nil {
		slog.Error("failed to initialize telegram service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !botService.IsEnabled() {
		slog.Error("telegram bot token is not configured")
		os.Exit(1)
	}

	if err := botService.Start(context.Background()); err != nil {
		slog.Error("failed to start telegram service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	botService.Stop()
}
