// Package reminder runs owners' weekly training reminders.
//
// A Registry keeps one goroutine per persisted entry of every attached owner.
// Each goroutine sleeps until the next fire instant computed by
// schedule.NextFire, hands the occurrence to a Notifier and goes back to
// sleep. Add, Replace and Delete change the repository and the running tasks
// together under a per-owner lock, so a superseded task has always exited
// before its replacement starts.
package reminder
