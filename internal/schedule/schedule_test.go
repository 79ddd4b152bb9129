package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/jonboulle/clockwork"
)

func TestSleepUntilWakesAtDeadline(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC))
	until := clock.Now().Add(15 * time.Minute)

	done := make(chan error, 1)
	go func() { done <- schedule.SleepUntil(context.Background(), clock, until) }()

	clock.BlockUntil(1)
	clock.Advance(14 * time.Minute)
	select {
	case err := <-done:
		t.Fatalf("woke early with %v", err)
	default:
	}

	clock.Advance(time.Minute)
	if err := <-done; err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestSleepUntilCancelled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- schedule.SleepUntil(ctx, clock, clock.Now().Add(time.Hour)) }()

	clock.BlockUntil(1)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleepUntilPastInstant(t *testing.T) {
	clock := clockwork.NewFakeClock()
	if err := schedule.SleepUntil(context.Background(), clock, clock.Now().Add(-time.Second)); err != nil {
		t.Errorf("expected immediate return, got %v", err)
	}
}
