package commands

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TokenStore holds a login token for a chat until the user shares a contact.
type TokenStore interface {
	Put(chatID int64, token string)
}

// StartCommand handles the /start command, including login deep links.
type StartCommand struct {
	BaseCommand
	tokens TokenStore
}

func NewStartCommand(bot *tgbotapi.BotAPI, tokens TokenStore, logger *slog.Logger) *StartCommand {
	return &StartCommand{
		BaseCommand: NewBaseCommand(bot, logger),
		tokens:      tokens,
	}
}

func (c *StartCommand) GetName() string {
	return "start"
}

func (c *StartCommand) Handle(ctx context.Context, chatID int64, args []string) error {
	if len(args) == 0 {
		c.SendHTMLMessage(chatID, "Welcome to the course platform bot!\n\nTo log in, open the platform in your browser, enter your phone number and follow the link it gives you back here.")
		return nil
	}

	token := args[0]
	c.tokens.Put(chatID, token)
	c.logger.Info("Login token received", "chat_id", chatID)

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("Share my phone number"),
		),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true

	c.SendMessageWithKeyboard(chatID, "To confirm it is you, please share your phone number using the button below.", keyboard)
	return nil
}
