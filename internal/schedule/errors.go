package schedule

import "fmt"

// ValidationError reports a malformed weekday, time of day or lead.
// It is returned before anything is persisted.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

var _ error = (*ValidationError)(nil)
