package model

import (
	"time"
)

// Action is the kind of change recorded in a task's activity log
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionCompleted     Action = "completed"
	ActionStatusChanged Action = "status_changed"
	ActionDeleted       Action = "deleted"
)

// Label returns a short human-readable description
func (a Action) Label() string {
	switch a {
	case ActionCreated:
		return "Created"
	case ActionUpdated:
		return "Title changed"
	case ActionCompleted:
		return "Completed"
	case ActionStatusChanged:
		return "Status changed"
	case ActionDeleted:
		return "Deleted"
	default:
		return string(a)
	}
}

// ActivityLogEntry is an immutable record of one historical change to a task
type ActivityLogEntry struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
}

// Change renders "old → new" when the entry carries value snapshots
func (e *ActivityLogEntry) Change() string {
	switch {
	case e.OldValue != nil && e.NewValue != nil:
		return *e.OldValue + " → " + *e.NewValue
	case e.NewValue != nil:
		return *e.NewValue
	case e.OldValue != nil:
		return *e.OldValue
	}
	return ""
}
