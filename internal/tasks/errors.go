package tasks

import (
	"errors"
	"fmt"

	"github.com/dori/taskdeck/internal/api"
)

var (
	// ErrBusy is returned when a mutation for the same task is still in flight
	ErrBusy = errors.New("an update for this task is already in progress")
	// ErrStale is returned when a response was superseded by a newer request
	// or the subject changed while it was in flight. No state was changed.
	ErrStale = errors.New("response superseded by a newer request")
	// ErrNotLoaded is returned by Detail operations before a successful Load
	ErrNotLoaded = errors.New("no task loaded")
	// ErrUnknownTask is returned when an id is not in the local list
	ErrUnknownTask = errors.New("task is not in the list")
	// ErrInconsistentStats is returned for a snapshot where total != completed + pending
	ErrInconsistentStats = errors.New("inconsistent task stats")
)

// ValidationError is a client-side rejection made before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Message returns the text shown to the user for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return api.Message(err)
}
