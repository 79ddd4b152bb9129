package reminder

import (
	"context"
	"time"

	"github.com/glizzus/gymbot/internal/repository"
)

// Notifier delivers one reminder occurrence to its owner.
// eventAt is the training time, not the fire time.
type Notifier interface {
	Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, entry repository.Entry, eventAt time.Time) error

func (f NotifierFunc) Notify(ctx context.Context, entry repository.Entry, eventAt time.Time) error {
	return f(ctx, entry, eventAt)
}

var _ Notifier = NotifierFunc(nil)
