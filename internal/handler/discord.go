package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/presenters"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/glizzus/gymbot/internal/util"
)

// DiscordSession is the part of *discordgo.Session interaction handlers use.
type DiscordSession interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ DiscordSession = (*discordgo.Session)(nil)

// Reminders is what the command surfaces need from the reminder runtime.
type Reminders interface {
	Sync(ctx context.Context, ownerID string) error
	List(ctx context.Context, ownerID string) ([]repository.Entry, error)
	Add(ctx context.Context, ownerID string, rule schedule.Rule) (repository.Entry, error)
	Replace(ctx context.Context, ownerID, entryID string, rule schedule.Rule) (repository.Entry, error)
	Delete(ctx context.Context, ownerID, entryID string) error
	Resolve(ctx context.Context, ownerID string, position int) (repository.Entry, error)
}

var _ Reminders = (*reminder.Registry)(nil)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type InteractionHandler = func(DiscordSession, *discordgo.InteractionCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID)
}

// commandTimeout bounds the storage work done for a single interaction.
const commandTimeout = 10 * time.Second

// OwnerID identifies the user behind an interaction, in a guild or a DM.
func OwnerID(i *discordgo.InteractionCreate) string {
	switch {
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	default:
		return ""
	}
}

type interactionHandler struct {
	reminders Reminders
	log       *slog.Logger
}

func NewInteractionHandler(reminders Reminders, log *slog.Logger) InteractionHandler {
	if log == nil {
		log = slog.Default()
	}
	h := &interactionHandler{reminders: reminders, log: log}
	return h.handle
}

func (h *interactionHandler) handle(s DiscordSession, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		command := i.ApplicationCommandData()
		switch command.Name {
		case "ping":
			if err := s.InteractionRespond(i.Interaction, pingResponse); err != nil {
				h.log.Error("Failed to respond to ping command", "error", err)
			}
		case "reminder":
			h.handleReminder(s, i, command)
		}
	case discordgo.InteractionMessageComponent:
		data := i.MessageComponentData()
		if data.CustomID == presenters.ComponentIDReminderDelete {
			h.handleDeleteSelect(s, i, data)
		}
	}
}

func (h *interactionHandler) respond(s DiscordSession, i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		h.log.Error("Failed to respond to interaction", "error", err)
	}
}

// deferred acknowledges the interaction right away and edits the reply with
// the result of work once it is done.
func (h *interactionHandler) deferred(s DiscordSession, i *discordgo.InteractionCreate, work func(ctx context.Context) string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.log.Error("Failed to defer interaction", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	content := work(ctx)

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		h.log.Error("Failed to edit interaction response", "error", err)
	}
}

// failure logs unexpected errors and returns the text shown to the owner.
func (h *interactionHandler) failure(ownerID string, err error) string {
	msg := UserMessage(err)
	if msg == internalErrorText {
		h.log.Error("Reminder command failed", "owner_id", ownerID, "error", err)
	} else {
		h.log.Debug("Reminder command rejected", "owner_id", ownerID, "error", err)
	}
	return msg
}

func (h *interactionHandler) handleReminder(s DiscordSession, i *discordgo.InteractionCreate, command discordgo.ApplicationCommandInteractionData) {
	ownerID := OwnerID(i)
	if ownerID == "" {
		h.log.Warn("No user on reminder command")
		return
	}

	subCommand, err := util.GetOne(command.Options)
	if err != nil {
		h.log.Warn("Expected exactly one subcommand for reminder command", "error", err)
		return
	}

	switch subCommand.Name {
	case "list":
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		entries, err := listReminders(ctx, h.reminders, ownerID)
		if err != nil {
			h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
			return
		}
		h.respond(s, i, presenters.BuildListRemindersResponse(entries))

	case "add":
		rule, err := CommandToRule(subCommand.Options)
		if err != nil {
			h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
			return
		}
		h.deferred(s, i, func(ctx context.Context) string {
			entry, err := addReminder(ctx, h.reminders, ownerID, rule)
			if err != nil {
				return h.failure(ownerID, err)
			}
			return presenters.AddedText(entry)
		})

	case "replace":
		position, err := CommandToPosition(subCommand.Options)
		if err != nil {
			h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
			return
		}
		rule, err := CommandToRule(subCommand.Options)
		if err != nil {
			h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
			return
		}
		h.deferred(s, i, func(ctx context.Context) string {
			updated, err := replaceReminderAt(ctx, h.reminders, ownerID, position, rule)
			if err != nil {
				return h.failure(ownerID, err)
			}
			return presenters.ReplacedText(position, updated)
		})

	case "delete":
		position, err := CommandToPosition(subCommand.Options)
		if err != nil {
			h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
			return
		}
		h.deferred(s, i, func(ctx context.Context) string {
			deleted, err := deleteReminderAt(ctx, h.reminders, ownerID, position)
			if err != nil {
				return h.failure(ownerID, err)
			}
			return presenters.DeletedText(deleted)
		})

	default:
		h.log.Warn("Unknown reminder subcommand", "name", subCommand.Name)
	}
}

// handleDeleteSelect deletes the reminder picked from the list menu.
// The menu carries entry ids, so a stale menu reports a missing reminder
// rather than deleting whatever now sits at that position.
func (h *interactionHandler) handleDeleteSelect(s DiscordSession, i *discordgo.InteractionCreate, data discordgo.MessageComponentInteractionData) {
	ownerID := OwnerID(i)
	entryID, err := util.GetOne(data.Values)
	if ownerID == "" || err != nil {
		h.log.Warn("Malformed reminder delete selection", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entries, err := h.reminders.List(ctx, ownerID)
	if err != nil {
		h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
		return
	}
	entry, ok := util.FindFirst(entries, func(e repository.Entry) bool { return e.ID == entryID })
	if !ok {
		h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, &reminder.NotFoundError{OwnerID: ownerID, EntryID: entryID})))
		return
	}
	if err := h.reminders.Delete(ctx, ownerID, entry.ID); err != nil {
		h.respond(s, i, presenters.BuildMessageResponse(h.failure(ownerID, err)))
		return
	}
	h.respond(s, i, presenters.BuildMessageResponse(presenters.DeletedText(entry)))
}

type Handlers struct {
	Ready             ReadyHandler
	InteractionCreate InteractionHandler
}

// Register attaches the handlers to s. Call it before opening the session.
func (h Handlers) Register(s *discordgo.Session) {
	s.AddHandler(h.Ready)
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		h.InteractionCreate(s, i)
	})
}

// NewSession creates a bot session that receives interactions in guilds and
// direct messages.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages
	return s, nil
}
