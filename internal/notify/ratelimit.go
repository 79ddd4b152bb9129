package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"golang.org/x/time/rate"
)

// RateLimited spaces out deliveries so that many reminders sharing a fire
// instant do not trip the transport's rate limits.
type RateLimited struct {
	next    reminder.Notifier
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond deliveries per second with a burst of the
// same size (at least 1).
func NewRateLimited(next reminder.Notifier, perSecond float64) *RateLimited {
	burst := max(int(perSecond), 1)
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (n *RateLimited) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for delivery slot: %w", err)
	}
	return n.next.Notify(ctx, entry, eventAt)
}

var _ reminder.Notifier = (*RateLimited)(nil)
