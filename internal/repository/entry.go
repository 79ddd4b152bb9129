package repository

import (
	"context"
	"slices"
	"time"

	"github.com/glizzus/gymbot/internal/schedule"
)

// Entry is a persisted weekly reminder rule belonging to one owner.
type Entry struct {
	ID        string
	OwnerID   string
	Rule      schedule.Rule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryRepository is the durable store for reminder entries.
// List returns entries in display order (see SortEntries).
// Update and Remove report false when the owner has no entry with that id.
type EntryRepository interface {
	List(ctx context.Context, ownerID string) ([]Entry, error)
	Count(ctx context.Context, ownerID string) (int, error)
	Owners(ctx context.Context) ([]string, error)
	Add(ctx context.Context, ownerID string, rule schedule.Rule) (Entry, error)
	Update(ctx context.Context, ownerID, id string, rule schedule.Rule) (bool, error)
	Remove(ctx context.Context, ownerID, id string) (bool, error)
}

// CompareEntries orders entries by weekday and time of day, oldest first on ties.
func CompareEntries(a, b Entry) int {
	switch {
	case a.Rule.Less(b.Rule):
		return -1
	case b.Rule.Less(a.Rule):
		return 1
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

// SortEntries sorts entries into display order in place.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, CompareEntries)
}
