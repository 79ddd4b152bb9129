// Package worker moves fired reminders through a Redis stream so that
// delivery can run in separate worker processes. The bot publishes with
// RedisJobHandler and each worker consumes with RedisJobReceiver.
package worker
