package schedule

import "time"

const week = 7

// NextFire returns the next instant strictly after now at which a reminder for r
// should fire, together with the training instant it precedes.
//
// Both instants are expressed in now's location. Weeks are added on the calendar
// rather than as 168 hours, so a rule keeps its wall clock time across DST changes.
//
// With a validated lead (at most one day) the loop below advances at most one
// extra week. It still loops so a larger lead can never yield a past instant.
func NextFire(now time.Time, r Rule) (fire, event time.Time) {
	daysAhead := (int(r.Weekday) - int(WeekdayOf(now)) + week) % week
	event = time.Date(now.Year(), now.Month(), now.Day()+daysAhead, r.Hour, r.Minute, 0, 0, now.Location())
	if !event.After(now) {
		event = event.AddDate(0, 0, week)
	}

	fire = event.Add(-r.Lead())
	for !fire.After(now) {
		event = event.AddDate(0, 0, week)
		fire = event.Add(-r.Lead())
	}
	return fire, event
}
