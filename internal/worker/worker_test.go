package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glizzus/gymbot/internal/notify"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/glizzus/gymbot/internal/worker"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

var mondayAt1030 = schedule.Rule{Weekday: schedule.Monday, Hour: 10, Minute: 30, LeadMinutes: 15}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []string
	failFor string
}

func (n *recordingNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, entry.ID)
	if entry.ID == n.failFor {
		return errors.New("recipient blocked the bot")
	}
	return nil
}

func TestNotifierJobHandler(t *testing.T) {
	notifier := &recordingNotifier{failFor: "e2"}
	handler := &worker.NotifierJobHandler{Notifier: notifier}

	err := handler.HandleJobs(t.Context(),
		worker.ReminderJob{EntryID: "e1", OwnerID: "o1", Rule: mondayAt1030},
		worker.ReminderJob{EntryID: "e2", OwnerID: "o1", Rule: mondayAt1030},
		worker.ReminderJob{EntryID: "e3", OwnerID: "o1", Rule: mondayAt1030},
	)
	if err == nil {
		t.Fatal("expected the failed delivery to be reported")
	}
	if diff := cmp.Diff([]string{"e1", "e2", "e3"}, notifier.entries); diff != "" {
		t.Errorf("delivered entries mismatch (-want +got):\n%s", diff)
	}
}

type channelHandler chan worker.ReminderJob

func (h channelHandler) HandleJobs(ctx context.Context, jobs ...worker.ReminderJob) error {
	for _, job := range jobs {
		h <- job
	}
	return errors.New("delivery failures do not stop the worker")
}

// cancellingNotifier ends the worker's context on the first delivery and
// records the context state every delivery sees.
type cancellingNotifier struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	entries []string
	ctxErrs []error
}

func (n *cancellingNotifier) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancel()
	n.entries = append(n.entries, entry.ID)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return nil
}

type failingAck struct {
	redis.Cmdable
}

func (c failingAck) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	return redis.NewIntResult(0, errors.New("connection reset by peer"))
}

func TestRedisStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := t.Context()
	redisContainer, err := tcredis.Run(ctx, "redis:7")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	defer func() {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			t.Fatalf("failed to terminate redis container: %v", err)
		}
	}()

	connStr, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	opts, err := redis.ParseURL(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	const stream = "reminder_jobs_test"
	publisher, err := worker.NewRedisJobHandler(ctx, client, stream)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	receiver, err := worker.NewRedisJobReceiver(ctx, client, stream, "test-consumer", nil)
	if err != nil {
		t.Fatalf("failed to create receiver: %v", err)
	}

	eventAt := time.Date(2025, 10, 20, 10, 30, 0, 0, time.UTC)
	entry := repository.Entry{ID: "e1", OwnerID: "o1", Rule: mondayAt1030}

	t.Run("Published reminders are received", func(t *testing.T) {
		if err := publisher.Notify(ctx, entry, eventAt); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		jobs, err := receiver.ReceiveJobs(ctx)
		if err != nil {
			t.Fatalf("failed to receive: %v", err)
		}
		want := []worker.ReminderJob{{EntryID: "e1", OwnerID: "o1", Rule: mondayAt1030, EventAt: eventAt}}
		if diff := cmp.Diff(want, jobs, cmpopts.IgnoreFields(worker.ReminderJob{}, "MessageID")); diff != "" {
			t.Fatalf("received jobs mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(entry, jobs[0].Entry()); diff != "" {
			t.Errorf("rebuilt entry mismatch (-want +got):\n%s", diff)
		}

		if err := receiver.Ack(ctx, jobs...); err != nil {
			t.Fatalf("failed to ack: %v", err)
		}
	})

	t.Run("Run delivers and acknowledges until cancelled", func(t *testing.T) {
		if err := publisher.Notify(ctx, entry, eventAt.AddDate(0, 0, 7)); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		runCtx, cancel := context.WithCancel(ctx)
		handler := make(channelHandler, 1)
		done := make(chan error, 1)
		go func() { done <- receiver.Run(runCtx, handler) }()

		select {
		case job := <-handler:
			if !job.EventAt.Equal(eventAt.AddDate(0, 0, 7)) {
				t.Errorf("expected event at %s, got %s", eventAt.AddDate(0, 0, 7), job.EventAt)
			}
		case <-time.After(30 * time.Second):
			t.Fatal("timed out waiting for the job")
		}

		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("expected Run to stop cleanly, got: %v", err)
			}
		case <-time.After(30 * time.Second):
			t.Fatal("Run did not stop after cancellation")
		}

		pending, err := client.XPending(ctx, stream, "reminder_delivery_group").Result()
		if err != nil {
			t.Fatalf("failed to read pending entries: %v", err)
		}
		if pending.Count != 0 {
			t.Errorf("expected every job to be acknowledged, %d pending", pending.Count)
		}
	})

	pendingCount := func(t *testing.T, stream string) int64 {
		t.Helper()
		pending, err := client.XPending(ctx, stream, "reminder_delivery_group").Result()
		if err != nil {
			t.Fatalf("failed to read pending entries: %v", err)
		}
		return pending.Count
	}

	t.Run("Run finishes a received batch after cancellation", func(t *testing.T) {
		const stream = "reminder_jobs_batch"
		receiver, err := worker.NewRedisJobReceiver(ctx, client, stream, "test-consumer", nil)
		if err != nil {
			t.Fatalf("failed to create receiver: %v", err)
		}
		publisher, err := worker.NewRedisJobHandler(ctx, client, stream)
		if err != nil {
			t.Fatalf("failed to create publisher: %v", err)
		}
		err = publisher.HandleJobs(ctx,
			worker.ReminderJob{EntryID: "b1", OwnerID: "o1", Rule: mondayAt1030, EventAt: eventAt},
			worker.ReminderJob{EntryID: "b2", OwnerID: "o2", Rule: mondayAt1030, EventAt: eventAt},
			worker.ReminderJob{EntryID: "b3", OwnerID: "o3", Rule: mondayAt1030, EventAt: eventAt},
		)
		if err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		notifier := &cancellingNotifier{cancel: cancel}
		handler := &worker.NotifierJobHandler{
			Notifier: notify.NewRateLimited(notifier, 1000),
			Timeout:  10 * time.Second,
		}

		done := make(chan error, 1)
		go func() { done <- receiver.Run(runCtx, handler) }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("expected Run to stop cleanly, got: %v", err)
			}
		case <-time.After(30 * time.Second):
			t.Fatal("Run did not stop after cancellation")
		}

		if diff := cmp.Diff([]string{"b1", "b2", "b3"}, notifier.entries); diff != "" {
			t.Errorf("delivered entries mismatch (-want +got):\n%s", diff)
		}
		for i, err := range notifier.ctxErrs {
			if err != nil {
				t.Errorf("delivery %d saw a finished context: %v", i, err)
			}
		}
		if n := pendingCount(t, stream); n != 0 {
			t.Errorf("expected every job to be acknowledged, %d pending", n)
		}
	})

	t.Run("Run delivers jobs left pending by an earlier run", func(t *testing.T) {
		const stream = "reminder_jobs_leftover"
		receiver, err := worker.NewRedisJobReceiver(ctx, client, stream, "test-consumer", nil)
		if err != nil {
			t.Fatalf("failed to create receiver: %v", err)
		}
		publisher, err := worker.NewRedisJobHandler(ctx, client, stream)
		if err != nil {
			t.Fatalf("failed to create publisher: %v", err)
		}
		if err := publisher.Notify(ctx, entry, eventAt); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}
		if jobs, err := receiver.ReceiveJobs(ctx); err != nil || len(jobs) != 1 {
			t.Fatalf("expected one job to be received, got %d: %v", len(jobs), err)
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		handler := make(channelHandler, 1)
		done := make(chan error, 1)
		go func() { done <- receiver.Run(runCtx, handler) }()

		select {
		case job := <-handler:
			if job.EntryID != entry.ID {
				t.Errorf("expected entry %s, got %s", entry.ID, job.EntryID)
			}
		case <-time.After(30 * time.Second):
			t.Fatal("timed out waiting for the leftover job")
		}
		cancel()
		if err := <-done; err != nil {
			t.Errorf("expected Run to stop cleanly, got: %v", err)
		}
		if n := pendingCount(t, stream); n != 0 {
			t.Errorf("expected the leftover job to be acknowledged, %d pending", n)
		}
	})

	t.Run("Failing to drop a malformed job keeps the valid ones", func(t *testing.T) {
		const stream = "reminder_jobs_malformed"
		if _, err := worker.NewRedisJobReceiver(ctx, client, stream, "test-consumer", nil); err != nil {
			t.Fatalf("failed to create group: %v", err)
		}
		receiver, err := worker.NewRedisJobReceiver(ctx, failingAck{client}, stream, "test-consumer", nil)
		if err != nil {
			t.Fatalf("failed to create receiver: %v", err)
		}
		publisher, err := worker.NewRedisJobHandler(ctx, client, stream)
		if err != nil {
			t.Fatalf("failed to create publisher: %v", err)
		}

		err = client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: map[string]any{"entryID": "broken"}}).Err()
		if err != nil {
			t.Fatalf("failed to publish malformed job: %v", err)
		}
		if err := publisher.Notify(ctx, entry, eventAt); err != nil {
			t.Fatalf("failed to publish: %v", err)
		}

		jobs, err := receiver.ReceiveJobs(ctx)
		if err != nil {
			t.Fatalf("expected the ack failure to be logged, got: %v", err)
		}
		want := []worker.ReminderJob{{EntryID: "e1", OwnerID: "o1", Rule: mondayAt1030, EventAt: eventAt}}
		if diff := cmp.Diff(want, jobs, cmpopts.IgnoreFields(worker.ReminderJob{}, "MessageID")); diff != "" {
			t.Errorf("received jobs mismatch (-want +got):\n%s", diff)
		}
	})
}
