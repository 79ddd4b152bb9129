package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the part of *tgbotapi.BotAPI used to send messages.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ TelegramSender = (*tgbotapi.BotAPI)(nil)

// TelegramNotifier delivers reminders to the chat whose id is the owner id.
type TelegramNotifier struct {
	bot TelegramSender
}

func NewTelegramNotifier(bot TelegramSender) *TelegramNotifier {
	return &TelegramNotifier{bot: bot}
}

func (n *TelegramNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	chatID, err := strconv.ParseInt(entry.OwnerID, 10, 64)
	if err != nil {
		return fmt.Errorf("owner id %q is not a telegram chat id: %w", entry.OwnerID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, Message(entry, eventAt))); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

var _ reminder.Notifier = (*TelegramNotifier)(nil)
