package schedule

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// SleepUntil blocks until clock reaches until or ctx is done.
// It returns ctx.Err() when woken by cancellation and nil otherwise.
func SleepUntil(ctx context.Context, clock clockwork.Clock, until time.Time) error {
	delay := until.Sub(clock.Now())
	if delay <= 0 {
		return ctx.Err()
	}

	timer := clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
