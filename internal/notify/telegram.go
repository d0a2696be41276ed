package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store"
	"github.com/example/lingoleague/pkg/models"
)

// Sender is the part of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBotAPI connects to Telegram with the given token.
func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return api, nil
}

// TelegramForwarder passes every notification to next and additionally
// messages users that have a chat attached when the importance is at
// least minImportance. Telegram failures are logged, never returned.
type TelegramForwarder struct {
	next          Sink
	users         store.Users
	sender        Sender
	minImportance models.Importance
	log           *logger.Logger
}

func NewTelegramForwarder(next Sink, users store.Users, sender Sender, minImportance models.Importance, log *logger.Logger) *TelegramForwarder {
	if minImportance == "" {
		minImportance = models.ImportanceMedium
	}
	return &TelegramForwarder{
		next:          next,
		users:         users,
		sender:        sender,
		minImportance: minImportance,
		log:           log,
	}
}

func (f *TelegramForwarder) Notify(ctx context.Context, recipientID int64, message string, importance models.Importance) error {
	if err := f.next.Notify(ctx, recipientID, message, importance); err != nil {
		return err
	}
	if importance.Rank() < f.minImportance.Rank() {
		return nil
	}

	user, err := f.users.GetByID(ctx, recipientID)
	if err != nil {
		f.log.Warn("telegram forward skipped, user lookup failed", "user_id", recipientID, "error", err)
		return nil
	}
	if user.TelegramChatID == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(user.TelegramChatID, format(message, importance))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := f.sender.Send(msg); err != nil {
		f.log.Error("failed to send telegram notification", "user_id", recipientID, "error", err)
		return nil
	}
	f.log.Debug("telegram notification sent", "user_id", recipientID, "importance", importance)
	return nil
}

func format(message string, importance models.Importance) string {
	if importance == models.ImportanceHigh {
		return "🎉 *" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, message) + "*"
	}
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, message)
}
