package handler

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/glizzus/gymbot/internal/presenters"
	"github.com/glizzus/gymbot/internal/schedule"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// TelegramBot is the part of *tgbotapi.BotAPI the router uses.
type TelegramBot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ TelegramBot = (*tgbotapi.BotAPI)(nil)

const telegramHelpText = `Weekly training reminders:
/reminders - list your reminders
/remind_add <day> <HH:MM> <lead> - e.g. /remind_add mon 18:30 30
/remind_replace <number> <day> <HH:MM> <lead>
/remind_delete <number>
Lead is minutes (1-1440) or a duration like 1h30m. You can keep up to 5 reminders.`

// TelegramRouter answers reminder commands sent to the bot. The chat id is
// the owner id, so reminders are delivered back to the same chat.
type TelegramRouter struct {
	bot       TelegramBot
	reminders Reminders
	log       *slog.Logger
}

func NewTelegramRouter(bot TelegramBot, reminders Reminders, log *slog.Logger) *TelegramRouter {
	if log == nil {
		log = slog.Default()
	}
	return &TelegramRouter{bot: bot, reminders: reminders, log: log}
}

// maxConcurrentReplies bounds the commands handled at once. Further updates
// wait until a reply finishes.
const maxConcurrentReplies = 16

// Run long polls for updates until ctx is done. Replies already started are
// finished before Run returns.
func (r *TelegramRouter) Run(ctx context.Context, pollTimeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := r.bot.GetUpdatesChan(u)

	var replies errgroup.Group
	replies.SetLimit(maxConcurrentReplies)
	defer replies.Wait()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			msg := update.Message
			replies.Go(func() error {
				r.reply(ctx, msg)
				return nil
			})
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

// reply runs on a context detached from ctx so shutdown does not cut a
// command short.
func (r *TelegramRouter) reply(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commandTimeout)
	defer cancel()

	text := r.HandleMessage(ctx, msg)
	if text == "" {
		return
	}
	if _, err := r.bot.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		r.log.Error("Failed to send telegram reply", "chat_id", msg.Chat.ID, "error", err)
	}
}

// HandleMessage runs one command and returns the reply text. Messages that
// are not commands the bot knows get an empty reply.
func (r *TelegramRouter) HandleMessage(ctx context.Context, msg *tgbotapi.Message) string {
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return ""
	}
	ownerID := strconv.FormatInt(msg.Chat.ID, 10)
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return telegramHelpText
	case "ping":
		return pingText
	case "reminders":
		return r.list(ctx, ownerID)
	case "remind_add":
		if len(args) != 3 {
			return "Usage: /remind_add <day> <HH:MM> <lead>"
		}
		return r.add(ctx, ownerID, args)
	case "remind_replace":
		if len(args) != 4 {
			return "Usage: /remind_replace <number> <day> <HH:MM> <lead>"
		}
		return r.replace(ctx, ownerID, args)
	case "remind_delete":
		if len(args) != 1 {
			return "Usage: /remind_delete <number>"
		}
		return r.delete(ctx, ownerID, args[0])
	default:
		return ""
	}
}

func (r *TelegramRouter) failure(ownerID string, err error) string {
	msg := UserMessage(err)
	if msg == internalErrorText {
		r.log.Error("Reminder command failed", "owner_id", ownerID, "error", err)
	}
	return msg
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, &UserError{Message: "The reminder number must be a positive number from /reminders."}
	}
	return n, nil
}

func (r *TelegramRouter) list(ctx context.Context, ownerID string) string {
	entries, err := listReminders(ctx, r.reminders, ownerID)
	if err != nil {
		return r.failure(ownerID, err)
	}
	return presenters.FormatList(entries)
}

func (r *TelegramRouter) add(ctx context.Context, ownerID string, args []string) string {
	rule, err := schedule.ParseRule(args[0], args[1], args[2])
	if err != nil {
		return r.failure(ownerID, err)
	}
	entry, err := addReminder(ctx, r.reminders, ownerID, rule)
	if err != nil {
		return r.failure(ownerID, err)
	}
	return presenters.AddedText(entry)
}

func (r *TelegramRouter) replace(ctx context.Context, ownerID string, args []string) string {
	position, err := parsePosition(args[0])
	if err != nil {
		return r.failure(ownerID, err)
	}
	rule, err := schedule.ParseRule(args[1], args[2], args[3])
	if err != nil {
		return r.failure(ownerID, err)
	}
	updated, err := replaceReminderAt(ctx, r.reminders, ownerID, position, rule)
	if err != nil {
		return r.failure(ownerID, err)
	}
	return presenters.ReplacedText(position, updated)
}

func (r *TelegramRouter) delete(ctx context.Context, ownerID, arg string) string {
	position, err := parsePosition(arg)
	if err != nil {
		return r.failure(ownerID, err)
	}
	deleted, err := deleteReminderAt(ctx, r.reminders, ownerID, position)
	if err != nil {
		return r.failure(ownerID, err)
	}
	return presenters.DeletedText(deleted)
}
