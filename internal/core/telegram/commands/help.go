package commands

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// HelpCommand handles the /help command
type HelpCommand struct {
	BaseCommand
}

func NewHelpCommand(bot *tgbotapi.BotAPI, logger *slog.Logger) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(bot, logger),
	}
}

func (c *HelpCommand) GetName() string {
	return "help"
}

func (c *HelpCommand) Handle(ctx context.Context, chatID int64, args []string) error {
	text := `<b>Course platform bot</b>

This bot confirms your identity when you log in to the platform.

<b>How it works:</b>
1. Open the platform and enter your phone number
2. Follow the login link back to this chat
3. Share your phone number with the button the bot shows
4. Enter the code you receive on the platform

<b>Commands:</b>
/start - start the bot
/help - show this message`

	c.SendHTMLMessage(chatID, text)
	return nil
}
