package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
)

// LogNotifier writes reminders to a logger instead of a chat. The CLI uses it
// for dry runs.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	n.log.InfoContext(
		ctx,
		"Reminder",
		"owner_id", entry.OwnerID,
		"entry_id", entry.ID,
		"event_at", eventAt,
		"message", Message(entry, eventAt),
	)
	return nil
}

var _ reminder.Notifier = (*LogNotifier)(nil)
