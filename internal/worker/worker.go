package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/redis/go-redis/v9"
)

const (
	groupName = "reminder_delivery_group"
	// maxStreamLen caps the stream. Trimming is approximate.
	maxStreamLen = 10_000
	blockFor     = 5 * time.Second
	batchSize    = 16
)

// ReminderJob is a fired reminder waiting to be delivered by a worker.
type ReminderJob struct {
	EntryID string
	OwnerID string
	Rule    schedule.Rule
	EventAt time.Time

	// MessageID is the stream id, set when the job was received.
	MessageID string
}

// Entry rebuilds the entry the job was fired for. Timestamps are not carried.
func (j ReminderJob) Entry() repository.Entry {
	return repository.Entry{ID: j.EntryID, OwnerID: j.OwnerID, Rule: j.Rule}
}

func (j ReminderJob) values() map[string]any {
	return map[string]any{
		"entryID":     j.EntryID,
		"ownerID":     j.OwnerID,
		"weekday":     int(j.Rule.Weekday),
		"hour":        j.Rule.Hour,
		"minute":      j.Rule.Minute,
		"leadMinutes": j.Rule.LeadMinutes,
		"eventAt":     j.EventAt.Format(time.RFC3339),
	}
}

func decodeJob(msg redis.XMessage) (ReminderJob, error) {
	str := func(key string) (string, error) {
		v, ok := msg.Values[key].(string)
		if !ok {
			return "", fmt.Errorf("missing field %q", key)
		}
		return v, nil
	}
	num := func(key string) (int, error) {
		v, err := str(key)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid field %q: %w", key, err)
		}
		return n, nil
	}

	job := ReminderJob{MessageID: msg.ID}
	var err error
	if job.EntryID, err = str("entryID"); err != nil {
		return ReminderJob{}, err
	}
	if job.OwnerID, err = str("ownerID"); err != nil {
		return ReminderJob{}, err
	}
	weekday, err := num("weekday")
	if err != nil {
		return ReminderJob{}, err
	}
	job.Rule.Weekday = schedule.Weekday(weekday)
	if job.Rule.Hour, err = num("hour"); err != nil {
		return ReminderJob{}, err
	}
	if job.Rule.Minute, err = num("minute"); err != nil {
		return ReminderJob{}, err
	}
	if job.Rule.LeadMinutes, err = num("leadMinutes"); err != nil {
		return ReminderJob{}, err
	}
	if err := job.Rule.Validate(); err != nil {
		return ReminderJob{}, err
	}
	eventAt, err := str("eventAt")
	if err != nil {
		return ReminderJob{}, err
	}
	if job.EventAt, err = time.Parse(time.RFC3339, eventAt); err != nil {
		return ReminderJob{}, fmt.Errorf("invalid field %q: %w", "eventAt", err)
	}
	return job, nil
}

type JobHandler interface {
	HandleJobs(ctx context.Context, jobs ...ReminderJob) error
}

// NotifierJobHandler delivers jobs through a notifier. A positive Timeout
// bounds each delivery.
type NotifierJobHandler struct {
	Notifier reminder.Notifier
	Timeout  time.Duration
}

func (h *NotifierJobHandler) notify(ctx context.Context, job ReminderJob) error {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	return h.Notifier.Notify(ctx, job.Entry(), job.EventAt)
}

func (h *NotifierJobHandler) HandleJobs(ctx context.Context, jobs ...ReminderJob) error {
	var errs []error
	for _, job := range jobs {
		if err := h.notify(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("failed to deliver entry %s: %w", job.EntryID, err))
		}
	}
	return errors.Join(errs...)
}

var _ JobHandler = (*NotifierJobHandler)(nil)

func createGroup(ctx context.Context, client redis.Cmdable, stream string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "$").Err()
	if err != nil && !errors.Is(err, redis.Nil) && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// RedisJobHandler publishes jobs to a stream. As a reminder.Notifier it lets
// the bot hand deliveries off to worker processes.
type RedisJobHandler struct {
	client redis.Cmdable
	stream string
}

func NewRedisJobHandler(ctx context.Context, client redis.Cmdable, stream string) (*RedisJobHandler, error) {
	if err := createGroup(ctx, client, stream); err != nil {
		return nil, err
	}
	return &RedisJobHandler{client: client, stream: stream}, nil
}

func (h *RedisJobHandler) HandleJobs(ctx context.Context, jobs ...ReminderJob) error {
	_, err := h.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, job := range jobs {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: h.stream,
				MaxLen: maxStreamLen,
				Approx: true,
				Values: job.values(),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish reminder jobs: %w", err)
	}
	return nil
}

func (h *RedisJobHandler) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	return h.HandleJobs(ctx, ReminderJob{
		EntryID: entry.ID,
		OwnerID: entry.OwnerID,
		Rule:    entry.Rule,
		EventAt: eventAt,
	})
}

var (
	_ JobHandler        = (*RedisJobHandler)(nil)
	_ reminder.Notifier = (*RedisJobHandler)(nil)
)

// RedisJobReceiver reads jobs from the stream as one consumer of the
// delivery group.
type RedisJobReceiver struct {
	client   redis.Cmdable
	stream   string
	consumer string
	log      *slog.Logger
}

func NewRedisJobReceiver(ctx context.Context, client redis.Cmdable, stream, consumer string, log *slog.Logger) (*RedisJobReceiver, error) {
	if err := createGroup(ctx, client, stream); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisJobReceiver{client: client, stream: stream, consumer: consumer, log: log}, nil
}

// ReceiveJobs blocks until new jobs arrive or a few seconds pass. It returns
// no jobs and no error on timeout. Malformed messages are acknowledged and
// dropped.
func (r *RedisJobReceiver) ReceiveJobs(ctx context.Context) ([]ReminderJob, error) {
	return r.read(ctx, ">", blockFor)
}

// ReceivePending returns jobs this consumer received earlier but never
// acknowledged, for example because the process stopped mid batch.
func (r *RedisJobReceiver) ReceivePending(ctx context.Context) ([]ReminderJob, error) {
	return r.read(ctx, "0", -1)
}

func (r *RedisJobReceiver) read(ctx context.Context, id string, block time.Duration) ([]ReminderJob, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: r.consumer,
		Streams:  []string{r.stream, id},
		Count:    batchSize,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reminder jobs: %w", err)
	}

	var jobs []ReminderJob
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			job, err := decodeJob(msg)
			if err != nil {
				r.log.Warn("dropping malformed reminder job", "message_id", msg.ID, "error", err)
				if err := r.Ack(ctx, ReminderJob{MessageID: msg.ID}); err != nil {
					// It stays pending and comes back with ReceivePending.
					r.log.Error("failed to drop malformed reminder job", "message_id", msg.ID, "error", err)
				}
				continue
			}
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

func (r *RedisJobReceiver) Ack(ctx context.Context, jobs ...ReminderJob) error {
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.MessageID)
	}
	if err := r.client.XAck(ctx, r.stream, groupName, ids...).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge reminder jobs: %w", err)
	}
	return nil
}

// Run first finishes jobs left pending by an earlier run, then receives new
// jobs and hands them to handler until ctx is done. A failed delivery is
// logged and acknowledged like the scheduler does in-process, so a broken
// recipient never blocks the stream.
//
// A batch that has been received is delivered in full even if ctx ends
// meanwhile. The handler bounds each delivery.
func (r *RedisJobReceiver) Run(ctx context.Context, handler JobHandler) error {
	detached := context.WithoutCancel(ctx)

	for {
		jobs, err := r.ReceivePending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(jobs) == 0 {
			break
		}
		if err := r.handle(detached, handler, jobs); err != nil {
			return err
		}
	}

	for {
		jobs, err := r.ReceiveJobs(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if err := r.handle(detached, handler, jobs); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *RedisJobReceiver) handle(ctx context.Context, handler JobHandler, jobs []ReminderJob) error {
	for _, job := range jobs {
		if err := handler.HandleJobs(ctx, job); err != nil {
			r.log.Error(
				"failed to deliver reminder",
				"owner_id", job.OwnerID,
				"entry_id", job.EntryID,
				"event_at", job.EventAt,
				"error", err,
			)
		}
		if err := r.Ack(ctx, job); err != nil {
			return err
		}
	}
	return nil
}
