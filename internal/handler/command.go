package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/schedule"
)

var (
	minPosition    = 1.0
	minLeadMinutes = float64(schedule.MinLeadMinutes)
)

func weekdayChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 7)
	for w := schedule.Monday; w <= schedule.Sunday; w++ {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: w.String(), Value: int(w)})
	}
	return choices
}

var leadPresets = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "15 min", Value: 15},
	{Name: "30 min", Value: 30},
	{Name: "1 hour", Value: 60},
	{Name: "2 hours", Value: 120},
}

var ruleOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "day",
		Type:        discordgo.ApplicationCommandOptionInteger,
		Description: "The day of the week you train.",
		Required:    true,
		Choices:     weekdayChoices(),
	},
	{
		Name:        "time",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "When the session starts, as HH:MM (24 hour).",
		Required:    true,
	},
	{
		Name:        "lead",
		Type:        discordgo.ApplicationCommandOptionInteger,
		Description: "How long before the session to remind you.",
		Required:    false,
		Choices:     leadPresets,
	},
	{
		Name:        "lead_minutes",
		Type:        discordgo.ApplicationCommandOptionInteger,
		Description: "A custom lead in minutes. Overrides lead.",
		Required:    false,
		MinValue:    &minLeadMinutes,
		MaxValue:    schedule.MaxLeadMinutes,
	},
}

var positionOption = &discordgo.ApplicationCommandOption{
	Name:        "number",
	Type:        discordgo.ApplicationCommandOptionInteger,
	Description: "The reminder number shown by /reminder list.",
	Required:    true,
	MinValue:    &minPosition,
}

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
	{
		Name:        "reminder",
		Description: "Manage your weekly training reminders",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List your training reminders",
			},
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Add a weekly training reminder",
				Options:     ruleOptions,
			},
			{
				Name:        "replace",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Change one of your training reminders",
				Options:     append([]*discordgo.ApplicationCommandOption{positionOption}, ruleOptions...),
			},
			{
				Name:        "delete",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Delete one of your training reminders",
				Options:     []*discordgo.ApplicationCommandOption{positionOption},
			},
		},
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
