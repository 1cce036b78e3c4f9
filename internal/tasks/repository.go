// Package tasks keeps local task state consistent with the remote task API.
//
// Collection owns the full task list and its paginated view, Detail owns a
// single task and its activity log, and Stats owns the latest count
// snapshot. All three apply the server's canonical objects only after the
// remote call succeeds, and discard responses that were superseded while in
// flight.
package tasks

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/dori/taskdeck/internal/model"
)

// PageSize is the number of tasks on one page
const PageSize = 10

// Repository is the remote task store. *api.Client satisfies it.
type Repository interface {
	ListTasks(ctx context.Context) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (model.Task, error)
	CreateTask(ctx context.Context, title string) (model.Task, error)
	UpdateTask(ctx context.Context, id string, update model.TaskUpdate) (model.Task, error)
	CompleteTask(ctx context.Context, id string) (model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.TaskStats, error)
	Activity(ctx context.Context, id string) ([]model.ActivityLogEntry, error)
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// normalizeTitle trims a title and rejects blank ones
func normalizeTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Field: "title", Message: "Title must not be empty"}
	}
	return trimmed, nil
}

// normalizeUpdate trims and validates a provided title
func normalizeUpdate(update model.TaskUpdate) (model.TaskUpdate, error) {
	if update.IsEmpty() {
		return update, &ValidationError{Field: "update", Message: "Nothing to update"}
	}
	if update.Title != nil {
		trimmed, err := normalizeTitle(*update.Title)
		if err != nil {
			return update, err
		}
		update.Title = &trimmed
	}
	return update, nil
}
