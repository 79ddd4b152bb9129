package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/glizzus/gymbot/internal/util"
)

type options = []*discordgo.ApplicationCommandInteractionDataOption

func findOption(opts options, name string, kind discordgo.ApplicationCommandOptionType) (*discordgo.ApplicationCommandInteractionDataOption, error) {
	option, ok := util.FindFirst(opts, func(o *discordgo.ApplicationCommandInteractionDataOption) bool {
		return o.Name == name
	})
	if !ok {
		return nil, nil
	}
	if option.Type != kind {
		return nil, fmt.Errorf("invalid type for %s option", name)
	}
	return option, nil
}

// CommandToRule builds a validated rule from the day, time and lead options.
// lead_minutes wins over the lead preset when both are given.
func CommandToRule(opts options) (schedule.Rule, error) {
	day, err := findOption(opts, "day", discordgo.ApplicationCommandOptionInteger)
	if err != nil {
		return schedule.Rule{}, err
	}
	if day == nil {
		return schedule.Rule{}, &UserError{Message: "Pick the day you train."}
	}

	clock, err := findOption(opts, "time", discordgo.ApplicationCommandOptionString)
	if err != nil {
		return schedule.Rule{}, err
	}
	if clock == nil {
		return schedule.Rule{}, &UserError{Message: "Tell me when the session starts, as HH:MM."}
	}
	hour, minute, err := schedule.ParseClock(clock.StringValue())
	if err != nil {
		return schedule.Rule{}, err
	}

	lead, err := findOption(opts, "lead_minutes", discordgo.ApplicationCommandOptionInteger)
	if err != nil {
		return schedule.Rule{}, err
	}
	if lead == nil {
		if lead, err = findOption(opts, "lead", discordgo.ApplicationCommandOptionInteger); err != nil {
			return schedule.Rule{}, err
		}
	}
	if lead == nil {
		return schedule.Rule{}, &UserError{Message: "Pick how long before the session to remind you."}
	}

	rule := schedule.Rule{
		Weekday:     schedule.Weekday(day.IntValue()),
		Hour:        hour,
		Minute:      minute,
		LeadMinutes: int(lead.IntValue()),
	}
	if err := rule.Validate(); err != nil {
		return schedule.Rule{}, err
	}
	return rule, nil
}

// CommandToPosition reads the 1-based reminder number.
func CommandToPosition(opts options) (int, error) {
	option, err := findOption(opts, "number", discordgo.ApplicationCommandOptionInteger)
	if err != nil {
		return 0, err
	}
	if option == nil {
		return 0, &UserError{Message: "Tell me which reminder, by its number in /reminder list."}
	}
	return int(option.IntValue()), nil
}
