package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/handler"
	"github.com/glizzus/gymbot/internal/presenters"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newRegistry(t *testing.T) *reminder.Registry {
	t.Helper()
	repo := repository.NewMemoryEntryRepository(&generator.SequenceGenerator{Prefix: "entry-"})
	reg := reminder.NewRegistry(
		repo,
		reminder.NotifierFunc(func(ctx context.Context, e repository.Entry, at time.Time) error { return nil }),
		reminder.WithClock(clockwork.NewFakeClock()),
		reminder.WithLogger(discardLogger),
	)
	t.Cleanup(func() {
		if err := reg.Shutdown(context.Background()); err != nil {
			t.Errorf("failed to shut down registry: %v", err)
		}
	})
	return reg
}

func intOption(name string, v int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

func stringOption(name, v string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func TestCommandToRule(t *testing.T) {
	tc := []struct {
		name     string
		options  []*discordgo.ApplicationCommandInteractionDataOption
		expected schedule.Rule
		err      bool
	}{
		{
			name:     "Preset lead",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{intOption("day", 0), stringOption("time", "10:30"), intOption("lead", 15)},
			expected: schedule.Rule{Weekday: schedule.Monday, Hour: 10, Minute: 30, LeadMinutes: 15},
		},
		{
			name:     "Custom lead overrides preset",
			options:  []*discordgo.ApplicationCommandInteractionDataOption{intOption("day", 6), stringOption("time", "7:05"), intOption("lead", 15), intOption("lead_minutes", 1440)},
			expected: schedule.Rule{Weekday: schedule.Sunday, Hour: 7, Minute: 5, LeadMinutes: 1440},
		},
		{
			name:    "Missing day should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("time", "10:30"), intOption("lead", 15)},
			err:     true,
		},
		{
			name:    "Malformed time should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("day", 0), stringOption("time", "25:00"), intOption("lead", 15)},
			err:     true,
		},
		{
			name:    "Missing lead should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("day", 0), stringOption("time", "10:30")},
			err:     true,
		},
		{
			name:    "Out of range lead should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{intOption("day", 0), stringOption("time", "10:30"), intOption("lead_minutes", 1441)},
			err:     true,
		},
		{
			name:    "Wrongly typed option should return error",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("day", "monday"), stringOption("time", "10:30"), intOption("lead", 15)},
			err:     true,
		},
	}

	for _, testCase := range tc {
		t.Run(testCase.name, func(t *testing.T) {
			result, err := handler.CommandToRule(testCase.options)
			if testCase.err {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(testCase.expected, result); diff != "" {
				t.Errorf("CommandToRule() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type mockSession struct {
	Resps []*discordgo.InteractionResponse
	Edits []string
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.Resps = append(m.Resps, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	if wh.Content == nil {
		return nil, errors.New("edit without content")
	}
	m.Edits = append(m.Edits, *wh.Content)
	return &discordgo.Message{Content: *wh.Content}, nil
}

var _ handler.DiscordSession = (*mockSession)(nil)

func reminderCommand(userID, sub string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name: "reminder",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{
						Name:    sub,
						Type:    discordgo.ApplicationCommandOptionSubCommand,
						Options: opts,
					},
				},
			},
			Member: &discordgo.Member{User: &discordgo.User{ID: userID}},
		},
	}
}

func TestInteractionHandlerPing(t *testing.T) {
	session := &mockSession{}
	handle := handler.NewInteractionHandler(nil, discardLogger)
	handle(session, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: "ping"},
		},
	})

	expected := []*discordgo.InteractionResponse{{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "Pong!"},
	}}
	if diff := cmp.Diff(expected, session.Resps); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestInteractionHandlerReminderLifecycle(t *testing.T) {
	reg := newRegistry(t)
	handle := handler.NewInteractionHandler(reg, discardLogger)

	deferred := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}

	t.Run("add is deferred then confirmed", func(t *testing.T) {
		session := &mockSession{}
		handle(session, reminderCommand("u1", "add", intOption("day", 3), stringOption("time", "18:00"), intOption("lead", 60)))
		handle(session, reminderCommand("u1", "add", intOption("day", 0), stringOption("time", "10:30"), intOption("lead", 15)))

		if diff := cmp.Diff([]*discordgo.InteractionResponse{deferred, deferred}, session.Resps); diff != "" {
			t.Errorf("responses mismatch (-want +got):\n%s", diff)
		}
		want := []string{
			"Added reminder: Thursday 18:00 (1 hour before).",
			"Added reminder: Monday 10:30 (15 min before).",
		}
		if diff := cmp.Diff(want, session.Edits); diff != "" {
			t.Errorf("edits mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("list numbers reminders in display order", func(t *testing.T) {
		session := &mockSession{}
		handle(session, reminderCommand("u1", "list"))

		if len(session.Resps) != 1 {
			t.Fatalf("expected 1 response, got %d", len(session.Resps))
		}
		want := "Your training reminders (2/5):\n1. Monday 10:30 (15 min before)\n2. Thursday 18:00 (1 hour before)"
		if got := session.Resps[0].Data.Content; got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("replace and delete address list positions", func(t *testing.T) {
		session := &mockSession{}
		handle(session, reminderCommand("u1", "replace", intOption("number", 2), intOption("day", 4), stringOption("time", "07:00"), intOption("lead_minutes", 45)))
		handle(session, reminderCommand("u1", "delete", intOption("number", 1)))
		handle(session, reminderCommand("u1", "delete", intOption("number", 5)))

		want := []string{
			"Reminder 2 is now Friday 07:00 (45 min before).",
			"Deleted reminder: Monday 10:30 (15 min before).",
			"There is no reminder number 5. List your reminders to see the numbers.",
		}
		if diff := cmp.Diff(want, session.Edits); diff != "" {
			t.Errorf("edits mismatch (-want +got):\n%s", diff)
		}
		if n := reg.TaskCount("u1"); n != 1 {
			t.Errorf("expected 1 running reminder, got %d", n)
		}
	})

	t.Run("invalid input is rejected without deferring", func(t *testing.T) {
		session := &mockSession{}
		handle(session, reminderCommand("u1", "add", intOption("day", 0), stringOption("time", "noon"), intOption("lead", 15)))

		want := []*discordgo.InteractionResponse{
			presenters.BuildMessageResponse(`Invalid time "noon": expected HH:MM in 24 hour format.`),
		}
		if diff := cmp.Diff(want, session.Resps); diff != "" {
			t.Errorf("responses mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestInteractionHandlerQuota(t *testing.T) {
	reg := newRegistry(t)
	handle := handler.NewInteractionHandler(reg, discardLogger)

	session := &mockSession{}
	for day := range reminder.MaxEntries + 1 {
		handle(session, reminderCommand("u1", "add", intOption("day", day), stringOption("time", "06:00"), intOption("lead", 30)))
	}

	last := session.Edits[len(session.Edits)-1]
	if want := "You already have 5 reminders, which is the maximum. Delete one before adding another."; last != want {
		t.Errorf("expected %q, got %q", want, last)
	}
}

func TestInteractionHandlerDeleteSelect(t *testing.T) {
	reg := newRegistry(t)
	handle := handler.NewInteractionHandler(reg, discardLogger)

	entry, err := reg.Add(t.Context(), "u1", schedule.Rule{Weekday: schedule.Tuesday, Hour: 12, Minute: 0, LeadMinutes: 30})
	if err != nil {
		t.Fatalf("failed to add reminder: %v", err)
	}

	selectInteraction := func(value string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{
			Interaction: &discordgo.Interaction{
				Type: discordgo.InteractionMessageComponent,
				Data: discordgo.MessageComponentInteractionData{
					CustomID:      presenters.ComponentIDReminderDelete,
					ComponentType: discordgo.SelectMenuComponent,
					Values:        []string{value},
				},
				User: &discordgo.User{ID: "u1"},
			},
		}
	}

	session := &mockSession{}
	handle(session, selectInteraction(entry.ID))
	handle(session, selectInteraction(entry.ID))

	want := []*discordgo.InteractionResponse{
		presenters.BuildMessageResponse("Deleted reminder: Tuesday 12:00 (30 min before)."),
		presenters.BuildMessageResponse("That reminder no longer exists. List your reminders to see the current ones."),
	}
	if diff := cmp.Diff(want, session.Resps); diff != "" {
		t.Errorf("responses mismatch (-want +got):\n%s", diff)
	}
}
