package reminder

import (
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by every Registry operation after Shutdown.
var ErrClosed = errors.New("reminder registry is shut down")

// QuotaExceededError is returned when an owner already holds the maximum
// number of entries.
type QuotaExceededError struct {
	OwnerID string
	Limit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("owner %s already has the maximum of %d reminders", e.OwnerID, e.Limit)
}

var _ error = (*QuotaExceededError)(nil)

// NotFoundError is returned when an entry id or display position does not
// address one of the owner's entries.
type NotFoundError struct {
	OwnerID  string
	EntryID  string
	Position int
}

func (e *NotFoundError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("owner %s has no reminder at position %d", e.OwnerID, e.Position)
	}
	return fmt.Sprintf("owner %s has no reminder %s", e.OwnerID, e.EntryID)
}

var _ error = (*NotFoundError)(nil)

// DeliveryError wraps a Notifier failure for one occurrence.
// It is logged by the task and never stops it.
type DeliveryError struct {
	OwnerID string
	EntryID string
	EventAt time.Time
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver reminder %s for %s at %s: %v", e.EntryID, e.OwnerID, e.EventAt.Format(time.RFC3339), e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

var _ error = (*DeliveryError)(nil)
