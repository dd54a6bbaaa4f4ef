package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/AsliddinWeb/online-course-platform/internal/core/telegram/commands"
	"github.com/AsliddinWeb/online-course-platform/pkg/telemetry"
)

const resendCallback = "resend_otp"

type BotService struct {
	bot      *tgbotapi.BotAPI
	backend  Backend
	pending  *PendingTokens
	registry *commands.CommandRegistry
	logger   *slog.Logger
}

func NewBotService(token string, backend Backend, logger *slog.Logger, debug bool) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot.Debug = debug

	pending := NewPendingTokens(PendingTokenTTL)

	registry := commands.NewCommandRegistry()
	registry.Register(commands.NewStartCommand(bot, pending, logger))
	registry.Register(commands.NewHelpCommand(bot, logger))

	return &BotService{
		bot:      bot,
		backend:  backend,
		pending:  pending,
		registry: registry,
		logger:   logger,
	}, nil
}

func (s *BotService) Start(ctx context.Context) error {
	s.logger.Info("Starting Telegram bot", "bot_username", s.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := s.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Bot context cancelled, stopping")
			s.bot.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			if update.Message != nil {
				go s.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				go s.handleCallbackQuery(ctx, update.CallbackQuery)
			}
		}
	}
}

func (s *BotService) Stop() {
	s.bot.StopReceivingUpdates()
}

func (s *BotService) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if telemetry.TelegramMessagesTotal != nil {
		telemetry.TelegramMessagesTotal.Add(ctx, 1)
	}

	s.logger.Info("Received message",
		"component", "telegram_bot",
		"chat_id", chatID,
		"message_type", func() string {
			switch {
			case message.Contact != nil:
				return "contact"
			case message.IsCommand():
				return "command"
			default:
				return "text"
			}
		}())

	if message.Contact != nil {
		s.handleContact(ctx, message)
		return
	}

	if message.IsCommand() {
		if telemetry.TelegramCommandsTotal != nil {
			telemetry.TelegramCommandsTotal.Add(ctx, 1)
		}
		args := strings.Fields(message.CommandArguments())
		if err := s.registry.Execute(ctx, message.Command(), chatID, args); err != nil {
			s.logger.Error("Command failed", "command", message.Command(), "error", err, "chat_id", chatID)
			s.recordError(ctx)
		}
		return
	}

	// Plain text is never accepted as a phone number, only shared contacts are.
	s.sendMessage(chatID, "Please use the button to share your phone number, or send /help.")
}

func (s *BotService) handleContact(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	contact := message.Contact

	token, ok := s.pending.Take(chatID)
	if !ok {
		s.sendMessage(chatID, "Your login link has expired. Please start again from the platform.")
		return
	}

	result, err := s.backend.VerifyDeepLink(ctx, token, chatID, contact.PhoneNumber)
	if err != nil {
		s.recordError(ctx)
		switch {
		case errors.Is(err, ErrInvalidToken):
			s.sendMessage(chatID, "This login link is invalid or has expired. Please start again from the platform.")
		case errors.Is(err, ErrPhoneMismatch):
			s.sendMessage(chatID, "This phone number does not match the account the login was started for.")
		case errors.Is(err, ErrUserNotFound):
			s.sendMessage(chatID, "We could not find an account for this login. Please contact support.")
		default:
			s.logger.Error("Deep link verification failed", "error", err, "chat_id", chatID)
			s.sendMessage(chatID, "Something went wrong. Please try again later.")
		}
		return
	}

	// Remove the contact keyboard before sending the code.
	done := tgbotapi.NewMessage(chatID, fmt.Sprintf("Thanks, %s! Your phone number is confirmed.", result.UserName))
	done.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := s.bot.Send(done); err != nil {
		s.logger.Error("Failed to send confirmation", "error", err, "chat_id", chatID)
	}

	s.sendOTP(chatID, result)
}

func (s *BotService) sendOTP(chatID int64, result *AuthResult) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Your login code:\n\n<code>%s</code>\n\nEnter it on the platform within %d seconds.",
		result.OTPCode, result.ExpiresIn))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Send a new code", resendCallback),
		),
	)
	if _, err := s.bot.Send(msg); err != nil {
		s.logger.Error("Failed to send OTP message", "error", err, "chat_id", chatID)
	}
}

func (s *BotService) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID

	if query.Data != resendCallback {
		s.answerCallback(query.ID, "")
		return
	}

	result, err := s.backend.ResendOTP(ctx, chatID)
	if err != nil {
		s.recordError(ctx)
		if errors.Is(err, ErrUserNotFound) {
			s.answerCallback(query.ID, "No account is linked to this chat.")
			return
		}
		s.logger.Error("Failed to resend OTP", "error", err, "chat_id", chatID)
		s.answerCallback(query.ID, "Something went wrong. Please try again.")
		return
	}

	s.answerCallback(query.ID, "New code sent")
	s.sendOTP(chatID, result)
}

func (s *BotService) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := s.bot.Request(callback); err != nil {
		s.logger.Error("Failed to answer callback query", "error", err)
	}
}

func (s *BotService) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		s.logger.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

func (s *BotService) recordError(ctx context.Context) {
	if telemetry.TelegramErrorsTotal != nil {
		telemetry.TelegramErrorsTotal.Add(ctx, 1)
	}
}
