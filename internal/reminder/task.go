package reminder

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
)

// TaskState is the lifecycle position of a running entry.
type TaskState int32

const (
	// TaskPending: spawned, next occurrence not computed yet.
	TaskPending TaskState = iota
	// TaskActive: sleeping until the next fire instant.
	TaskActive
	// TaskFiring: handing an occurrence to the Notifier.
	TaskFiring
	// TaskCancelled: exited; terminal.
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskActive:
		return "active"
	case TaskFiring:
		return "firing"
	case TaskCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("TaskState(%d)", int32(s))
	}
}

// TaskInfo is a snapshot of one running entry.
type TaskInfo struct {
	Entry  repository.Entry
	State  TaskState
	FireAt time.Time
}

type task struct {
	entry  repository.Entry
	state  atomic.Int32
	fireAt atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) setState(s TaskState) {
	t.state.Store(int32(s))
}

func (t *task) info() TaskInfo {
	info := TaskInfo{Entry: t.entry, State: TaskState(t.state.Load())}
	if ns := t.fireAt.Load(); ns != 0 {
		info.FireAt = time.Unix(0, ns)
	}
	return info
}

// stop cancels the task and waits for its goroutine to exit.
// A Notify call already in flight is allowed to finish.
func (t *task) stop() {
	t.cancel()
	<-t.done
}

func (r *Registry) spawn(entry repository.Entry) *task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		entry:  entry,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	t.setState(TaskPending)
	go r.run(ctx, t)
	return t
}

func (r *Registry) run(ctx context.Context, t *task) {
	defer close(t.done)
	defer t.setState(TaskCancelled)

	log := r.log.With("owner_id", t.entry.OwnerID, "entry_id", t.entry.ID)

	var lastFire time.Time
	for {
		now := r.clock.Now().In(r.loc)
		if now.Before(lastFire) {
			now = lastFire
		}
		fire, event := schedule.NextFire(now, t.entry.Rule)
		t.fireAt.Store(fire.UnixNano())
		t.setState(TaskActive)
		log.Debug("Reminder armed", "fire_at", fire, "event_at", event)

		if err := schedule.SleepUntil(ctx, r.clock, fire); err != nil {
			return
		}

		t.setState(TaskFiring)
		lastFire = fire
		if err := r.deliver(ctx, t.entry, event); err != nil {
			log.Error("failed to deliver reminder", "error", err)
		} else {
			log.Info("Reminder delivered", "event_at", event)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// deliver runs the Notifier on a context that outlives task cancellation,
// bounded by the notify timeout. Panics are reported as delivery failures.
func (r *Registry) deliver(ctx context.Context, entry repository.Entry, eventAt time.Time) (err error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.notifyTimeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = &DeliveryError{
				OwnerID: entry.OwnerID,
				EntryID: entry.ID,
				EventAt: eventAt,
				Err:     fmt.Errorf("notifier panicked: %v", p),
			}
		}
	}()

	if nerr := r.notifier.Notify(nctx, entry, eventAt); nerr != nil {
		return &DeliveryError{
			OwnerID: entry.OwnerID,
			EntryID: entry.ID,
			EventAt: eventAt,
			Err:     nerr,
		}
	}
	return nil
}
