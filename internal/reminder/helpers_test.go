package reminder_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/gymbot/internal/generator"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/jonboulle/clockwork"
)

// mondayMorning is Monday 2025-10-20 10:00 UTC.
var mondayMorning = time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)

var (
	mondayAt1030  = schedule.Rule{Weekday: schedule.Monday, Hour: 10, Minute: 30, LeadMinutes: 15}
	mondayAt1100  = schedule.Rule{Weekday: schedule.Monday, Hour: 11, Minute: 0, LeadMinutes: 30}
	fridayEvening = schedule.Rule{Weekday: schedule.Friday, Hour: 18, Minute: 0, LeadMinutes: 60}
)

type notification struct {
	EntryID string
	EventAt time.Time
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
	ch    chan notification
	// fail decides the outcome of the n-th call, counting from 1.
	fail func(n int) error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan notification, 64)}
}

func (n *recordingNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	got := notification{EntryID: entry.ID, EventAt: eventAt}
	n.mu.Lock()
	n.calls = append(n.calls, got)
	call := len(n.calls)
	n.mu.Unlock()

	n.ch <- got
	if n.fail != nil {
		return n.fail(call)
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func (n *recordingNotifier) wait(t *testing.T) notification {
	t.Helper()
	select {
	case got := <-n.ch:
		return got
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a notification")
		return notification{}
	}
}

type testRegistry struct {
	*reminder.Registry
	repo     *repository.MemoryEntryRepository
	notifier *recordingNotifier
	clock    clockwork.FakeClock
}

func newTestRegistry(t *testing.T, opts ...reminder.Option) *testRegistry {
	t.Helper()
	repo := repository.NewMemoryEntryRepository(&generator.SequenceGenerator{Prefix: "entry-"})
	return newTestRegistryWithRepo(t, repo, repo, opts...)
}

func newTestRegistryWithRepo(t *testing.T, mem *repository.MemoryEntryRepository, repo repository.EntryRepository, opts ...reminder.Option) *testRegistry {
	t.Helper()
	notifier := newRecordingNotifier()
	clock := clockwork.NewFakeClockAt(mondayMorning)

	base := []reminder.Option{
		reminder.WithClock(clock),
		reminder.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	reg := reminder.NewRegistry(repo, notifier, append(base, opts...)...)
	t.Cleanup(func() {
		if err := reg.Shutdown(context.Background()); err != nil {
			t.Errorf("failed to shut down registry: %v", err)
		}
	})

	return &testRegistry{Registry: reg, repo: mem, notifier: notifier, clock: clock}
}
