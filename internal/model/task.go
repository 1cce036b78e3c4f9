package model

import (
	"time"
)

// Task represents a todo item as returned by the task API
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status returns the display status used by the API's activity log
func (t *Task) Status() string {
	if t.Completed {
		return "completed"
	}
	return "pending"
}

// TaskUpdate is a partial update. Nil fields are left untouched by the server.
type TaskUpdate struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty returns true if the update carries no fields
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Completed == nil
}

// SetTitle returns an update that only changes the title
func SetTitle(title string) TaskUpdate {
	return TaskUpdate{Title: &title}
}

// SetCompleted returns an update that only changes the completion flag
func SetCompleted(completed bool) TaskUpdate {
	return TaskUpdate{Completed: &completed}
}

// TaskStats is a server-computed snapshot of task counts
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Consistent reports whether total = completed + pending
func (s TaskStats) Consistent() bool {
	return s.Total >= 0 && s.Completed >= 0 && s.Pending >= 0 &&
		s.Total == s.Completed+s.Pending
}

// Percent returns the completed share in the range 0-100
func (s TaskStats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Completed * 100 / s.Total
}
