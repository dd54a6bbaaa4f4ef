package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AsliddinWeb/online-course-platform/config"
	"github.com/AsliddinWeb/online-course-platform/internal/infra/postgres"
	"github.com/AsliddinWeb/online-course-platform/internal/infra/server"
	"github.com/AsliddinWeb/online-course-platform/pkg/logger"
)

func main() {
	mainContext := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defaultLogger, loggerProvider, err := logger.NewObservableLogger(&cfg)
	if err != nil {
		defaultLogger = logger.NewLogger(&cfg)
		defaultLogger.Warn("OTLP logging unavailable, using local logger only", slog.String("error", err.Error()))
	}
	slog.SetDefault(defaultLogger)

	conn, err := postgres.Init(cfg)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := postgres.Bootstrap(mainContext, conn); err != nil {
		slog.Error("failed to bootstrap database schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := server.New(mainContext, &cfg, conn)
	if srv == nil {
		slog.Error("failed to initialize server")
		os.Exit(1)
	}
	if loggerProvider != nil {
		srv.SetLoggerProvider(loggerProvider)
	}

	srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	srv.Shutdown()
}
