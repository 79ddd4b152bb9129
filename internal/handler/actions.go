package handler

import (
	"context"

	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
)

// Every command syncs the owner first so that the runtime reflects the
// repository before positions are resolved or the quota is checked.

func listReminders(ctx context.Context, reminders Reminders, ownerID string) ([]repository.Entry, error) {
	if err := reminders.Sync(ctx, ownerID); err != nil {
		return nil, err
	}
	return reminders.List(ctx, ownerID)
}

func addReminder(ctx context.Context, reminders Reminders, ownerID string, rule schedule.Rule) (repository.Entry, error) {
	if err := reminders.Sync(ctx, ownerID); err != nil {
		return repository.Entry{}, err
	}
	return reminders.Add(ctx, ownerID, rule)
}

func replaceReminderAt(ctx context.Context, reminders Reminders, ownerID string, position int, rule schedule.Rule) (repository.Entry, error) {
	if err := reminders.Sync(ctx, ownerID); err != nil {
		return repository.Entry{}, err
	}
	entry, err := reminders.Resolve(ctx, ownerID, position)
	if err != nil {
		return repository.Entry{}, err
	}
	return reminders.Replace(ctx, ownerID, entry.ID, rule)
}

func deleteReminderAt(ctx context.Context, reminders Reminders, ownerID string, position int) (repository.Entry, error) {
	if err := reminders.Sync(ctx, ownerID); err != nil {
		return repository.Entry{}, err
	}
	entry, err := reminders.Resolve(ctx, ownerID, position)
	if err != nil {
		return repository.Entry{}, err
	}
	if err := reminders.Delete(ctx, ownerID, entry.ID); err != nil {
		return repository.Entry{}, err
	}
	return entry, nil
}
