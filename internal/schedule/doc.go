// Package schedule models weekly reminder rules and the time arithmetic around them.
//
// A Rule names a weekday, a clock time and a lead in minutes. NextFire computes
// the next instant a reminder for that rule should be sent and the training
// instant it precedes. SleepUntil suspends a goroutine until such an instant,
// returning early when its context is cancelled.
package schedule
