package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/AsliddinWeb/online-course-platform/config"
)

// TelegramService interface defines the contract for Telegram bot management
type TelegramService interface {
	Start(ctx context.Context) error
	Stop()
	IsEnabled() bool
}

// Service implements TelegramService interface
type Service struct {
	cfg        *config.Config
	botService *BotService
	enabled    bool
	logger     *slog.Logger
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewTelegramService creates a new Telegram service instance
func NewTelegramService(cfg *config.Config, backend Backend, logger *slog.Logger) (TelegramService, error) {
	if cfg.TelegramBotToken == "" {
		logger.Info("Telegram bot disabled - no token provided")
		return &Service{
			cfg:     cfg,
			enabled: false,
			logger:  logger,
		}, nil
	}

	botService, err := NewBotService(cfg.TelegramBotToken, backend, logger, cfg.TelegramDebug)
	if err != nil {
		logger.Error("failed to initialize telegram bot", "error", err)
		return nil, err
	}

	logger.Info("Telegram bot initialized",
		"bot_enabled", true,
		"debug_mode", cfg.TelegramDebug,
		"component", "telegram_service")

	return &Service{
		cfg:        cfg,
		botService: botService,
		enabled:    true,
		logger:     logger,
	}, nil
}

// Start begins the Telegram bot service
func (s *Service) Start(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.botService.Start(s.ctx); err != nil && err != context.Canceled {
			s.logger.Error("Telegram bot error", "error", err)
		}
	}()

	s.logger.Info("Telegram service started",
		"component", "telegram_service",
		"bot_enabled", s.enabled)
	return nil
}

// Stop gracefully shuts down the Telegram service
func (s *Service) Stop() {
	if !s.enabled {
		return
	}

	s.logger.Info("Stopping Telegram service...")

	if s.cancel != nil {
		s.cancel()
	}

	if s.botService != nil {
		s.botService.Stop()
	}

	s.wg.Wait()

	s.logger.Info("Telegram service stopped")
}

// IsEnabled returns whether the Telegram service is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}
