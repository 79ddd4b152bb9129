package schedule

import (
	"fmt"
	"time"
)

// Weekday is a day of the week where Monday is 0 and Sunday is 6.
// It deliberately differs from time.Weekday, which starts on Sunday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// TimeWeekday converts w to the standard library representation.
func (w Weekday) TimeWeekday() time.Weekday {
	return time.Weekday((int(w) + 1) % 7)
}

// WeekdayOf returns the Weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

const (
	MinLeadMinutes = 1
	// MaxLeadMinutes is one day. NextFire relies on it being shorter than a week.
	MaxLeadMinutes = 24 * 60
)

// Rule is a weekly reminder rule: remind LeadMinutes before Weekday at Hour:Minute.
type Rule struct {
	Weekday     Weekday
	Hour        int
	Minute      int
	LeadMinutes int
}

// Validate reports the first field of r that is out of range.
func (r Rule) Validate() error {
	if !r.Weekday.Valid() {
		return &ValidationError{Field: "weekday", Value: fmt.Sprint(int(r.Weekday)), Reason: "must be between 0 (Monday) and 6 (Sunday)"}
	}
	if r.Hour < 0 || r.Hour > 23 {
		return &ValidationError{Field: "hour", Value: fmt.Sprint(r.Hour), Reason: "must be between 0 and 23"}
	}
	if r.Minute < 0 || r.Minute > 59 {
		return &ValidationError{Field: "minute", Value: fmt.Sprint(r.Minute), Reason: "must be between 0 and 59"}
	}
	if r.LeadMinutes < MinLeadMinutes || r.LeadMinutes > MaxLeadMinutes {
		return leadRangeError(r.LeadMinutes)
	}
	return nil
}

func leadRangeError(minutes int) *ValidationError {
	return &ValidationError{
		Field:  "lead",
		Value:  fmt.Sprint(minutes),
		Reason: fmt.Sprintf("must be between %d and %d minutes", MinLeadMinutes, MaxLeadMinutes),
	}
}

// Lead returns the lead as a duration.
func (r Rule) Lead() time.Duration {
	return time.Duration(r.LeadMinutes) * time.Minute
}

// Clock formats the rule's time of day as HH:MM.
func (r Rule) Clock() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// Less orders rules by weekday, then time of day. Lead is not part of the order.
func (r Rule) Less(o Rule) bool {
	if r.Weekday != o.Weekday {
		return r.Weekday < o.Weekday
	}
	if r.Hour != o.Hour {
		return r.Hour < o.Hour
	}
	return r.Minute < o.Minute
}

// String renders the rule the way it is shown to users, e.g. "Monday 10:30 (15 min before)".
func (r Rule) String() string {
	return fmt.Sprintf("%s %s (%s before)", r.Weekday, r.Clock(), FormatLead(r.LeadMinutes))
}

// FormatLead renders a lead in minutes as "15 min", "1 hour" or "2 hours 30 min".
func FormatLead(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours, mins := minutes/60, minutes%60
	s := fmt.Sprintf("%d hour", hours)
	if hours > 1 {
		s += "s"
	}
	if mins > 0 {
		s += fmt.Sprintf(" %d min", mins)
	}
	return s
}
