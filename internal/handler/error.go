package handler

import (
	"errors"
	"fmt"

	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/schedule"
)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

const internalErrorText = "Something went wrong, please try again later."

// UserMessage turns an error from the reminder stack into a reply for the
// owner. Unknown errors get a generic text so internals are not leaked.
func UserMessage(err error) string {
	var (
		userErr       *UserError
		validationErr *schedule.ValidationError
		quotaErr      *reminder.QuotaExceededError
		notFoundErr   *reminder.NotFoundError
	)

	switch {
	case errors.As(err, &userErr):
		return userErr.Message
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s %q: %s.", validationErr.Field, validationErr.Value, validationErr.Reason)
	case errors.As(err, &quotaErr):
		return fmt.Sprintf("You already have %d reminders, which is the maximum. Delete one before adding another.", quotaErr.Limit)
	case errors.As(err, &notFoundErr):
		if notFoundErr.EntryID == "" {
			return fmt.Sprintf("There is no reminder number %d. List your reminders to see the numbers.", notFoundErr.Position)
		}
		return "That reminder no longer exists. List your reminders to see the current ones."
	case errors.Is(err, reminder.ErrClosed):
		return "The bot is restarting, please try again in a moment."
	default:
		return internalErrorText
	}
}
