package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
)

const (
	// ComponentIDReminderDelete is the custom id of the select menu that
	// deletes the chosen reminder.
	ComponentIDReminderDelete = "reminder_delete_select_menu"

	NoRemindersText = "You have no training reminders yet."
)

// FormatList renders entries as a numbered list in display order. The
// numbers are the positions accepted by the replace and delete commands.
func FormatList(entries []repository.Entry) string {
	if len(entries) == 0 {
		return NoRemindersText
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your training reminders (%d/%d):", len(entries), reminder.MaxEntries)
	for i, e := range entries {
		fmt.Fprintf(&b, "\n%d. %s", i+1, e.Rule)
	}
	return b.String()
}

// BuildMessageResponse is a plain reply only the invoking user can see.
func BuildMessageResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

var reminderSelectMinValues = 1

func buildReminderDeleteMenu(entries []repository.Entry) discordgo.ActionsRow {
	options := make([]discordgo.SelectMenuOption, 0, len(entries))
	for i, e := range entries {
		options = append(options, discordgo.SelectMenuOption{
			Label: fmt.Sprintf("%d. %s %s", i+1, e.Rule.Weekday, e.Rule.Clock()),
			Value: e.ID,
		})
	}

	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    ComponentIDReminderDelete,
				Placeholder: "Select a reminder to delete",
				MinValues:   &reminderSelectMinValues,
				MaxValues:   1,
				Options:     options,
			},
		},
	}
}

// BuildListRemindersResponse shows the owner's reminders with a menu to
// delete one of them.
func BuildListRemindersResponse(entries []repository.Entry) *discordgo.InteractionResponse {
	resp := BuildMessageResponse(FormatList(entries))
	if len(entries) > 0 {
		resp.Data.Components = []discordgo.MessageComponent{buildReminderDeleteMenu(entries)}
	}
	return resp
}

func AddedText(e repository.Entry) string {
	return fmt.Sprintf("Added reminder: %s.", e.Rule)
}

func ReplacedText(position int, e repository.Entry) string {
	return fmt.Sprintf("Reminder %d is now %s.", position, e.Rule)
}

func DeletedText(e repository.Entry) string {
	return fmt.Sprintf("Deleted reminder: %s.", e.Rule)
}
