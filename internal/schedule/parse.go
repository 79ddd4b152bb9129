package schedule

import (
	"strconv"
	"strings"
	"time"
)

var weekdayAliases = map[string]Weekday{
	"mo": Monday, "mon": Monday, "monday": Monday,
	"tu": Tuesday, "tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"we": Wednesday, "wed": Wednesday, "wednesday": Wednesday,
	"th": Thursday, "thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fr": Friday, "fri": Friday, "friday": Friday,
	"sa": Saturday, "sat": Saturday, "saturday": Saturday,
	"su": Sunday, "sun": Sunday, "sunday": Sunday,
}

// ParseWeekday accepts an English day name, a two or three letter abbreviation,
// or a number from 0 (Monday) to 6 (Sunday).
func ParseWeekday(s string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if w, ok := weekdayAliases[key]; ok {
		return w, nil
	}
	if allDigits(key) {
		if n, err := strconv.Atoi(key); err == nil && Weekday(n).Valid() {
			return Weekday(n), nil
		}
	}
	return 0, &ValidationError{Field: "weekday", Value: s, Reason: "expected a day name like Mon or Monday, or 0-6"}
}

// ParseClock parses a 24 hour "HH:MM" time of day. A single digit hour is accepted.
func ParseClock(s string) (hour, minute int, err error) {
	invalid := &ValidationError{Field: "time", Value: s, Reason: "expected HH:MM in 24 hour format"}

	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !allDigits(h) || !allDigits(m) {
		return 0, 0, invalid
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, invalid
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, invalid
	}
	return hour, minute, nil
}

// ParseLead parses a lead given either as whole minutes ("90") or as a
// duration ("1h30m"). The result is range checked.
func ParseLead(s string) (int, error) {
	s = strings.TrimSpace(s)
	minutes, err := strconv.Atoi(s)
	if !allDigits(s) || err != nil {
		d, derr := time.ParseDuration(s)
		if derr != nil || d%time.Minute != 0 {
			return 0, &ValidationError{Field: "lead", Value: s, Reason: "expected minutes like 15 or a duration like 1h30m"}
		}
		minutes = int(d / time.Minute)
	}
	if minutes < MinLeadMinutes || minutes > MaxLeadMinutes {
		return 0, leadRangeError(minutes)
	}
	return minutes, nil
}

// ParseRule builds and validates a Rule from its three textual parts.
func ParseRule(weekday, clock, lead string) (Rule, error) {
	w, err := ParseWeekday(weekday)
	if err != nil {
		return Rule{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return Rule{}, err
	}
	leadMinutes, err := ParseLead(lead)
	if err != nil {
		return Rule{}, err
	}
	r := Rule{Weekday: w, Hour: hour, Minute: minute, LeadMinutes: leadMinutes}
	return r, r.Validate()
}

// allDigits reports whether s is non-empty and made of ASCII digits only.
// strconv.Atoi alone would also accept a leading sign.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
