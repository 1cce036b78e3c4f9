package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dori/taskdeck/internal/model"
	"golang.org/x/sync/errgroup"
)

// Detail holds one task and its activity log.
//
// Load fetches both concurrently and publishes them together: either both
// are valid or neither is. Every Load and Reset starts a new generation, and
// responses from an older generation are dropped without touching state.
type Detail struct {
	repo   Repository
	logger *slog.Logger

	mu          sync.Mutex
	id          string
	task        model.Task
	activity    []model.ActivityLogEntry
	loaded      bool
	loading     bool
	err         error
	activityErr error
	busy        bool
	gen         uint64
}

// NewDetail creates an empty detail state
func NewDetail(repo Repository, logger *slog.Logger) *Detail {
	return &Detail{repo: repo, logger: orDiscard(logger)}
}

// Load fetches the task and its activity concurrently. On any failure
// nothing is shown and the error is recorded.
func (d *Detail) Load(ctx context.Context, id string) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.id != id {
		d.clear()
	}
	d.id = id
	d.loading = true
	d.err = nil
	d.mu.Unlock()

	var (
		task     model.Task
		activity []model.ActivityLogEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := d.repo.GetTask(gctx, id)
		task = t
		return err
	})
	g.Go(func() error {
		entries, err := d.repo.Activity(gctx, id)
		activity = entries
		return err
	})
	err := g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.gen {
		d.logger.Debug("dropping stale task detail", "id", id)
		return ErrStale
	}
	d.loading = false
	if err != nil {
		d.clear()
		d.err = err
		d.logger.Warn("load task failed", "id", id, "err", err)
		return err
	}
	if activity == nil {
		activity = []model.ActivityLogEntry{}
	}
	d.task = task
	d.activity = activity
	d.activityErr = nil
	d.loaded = true
	return nil
}

// clear must be called with d.mu held
func (d *Detail) clear() {
	d.task = model.Task{}
	d.activity = nil
	d.activityErr = nil
	d.loaded = false
}

// Edit sends the fields of update that differ from the loaded task. A title
// equal to the current one is not sent, and an update with nothing left is a
// no-op that returns the current task. After success the activity log is
// refetched; if only that refetch fails the edit still counts as applied
// and the failure is reported by ActivityErr.
func (d *Detail) Edit(ctx context.Context, update model.TaskUpdate) (model.Task, error) {
	update, err := normalizeUpdate(update)
	if err != nil {
		return model.Task{}, err
	}

	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return model.Task{}, ErrNotLoaded
	}
	cur := d.task
	d.mu.Unlock()

	if update.Title != nil && *update.Title == cur.Title {
		update.Title = nil
	}
	if update.Completed != nil && *update.Completed == cur.Completed {
		update.Completed = nil
	}
	if update.IsEmpty() {
		return cur, nil
	}

	return d.mutate(ctx, "update task", func(id string) (model.Task, error) {
		return d.repo.UpdateTask(ctx, id, update)
	})
}

// Toggle flips the completed flag of the loaded task
func (d *Detail) Toggle(ctx context.Context) (model.Task, error) {
	cur, ok := d.Task()
	if !ok {
		return model.Task{}, ErrNotLoaded
	}
	return d.Edit(ctx, model.SetCompleted(!cur.Completed))
}

// Complete marks the loaded task completed through the dedicated endpoint
func (d *Detail) Complete(ctx context.Context) (model.Task, error) {
	return d.mutate(ctx, "complete task", func(id string) (model.Task, error) {
		return d.repo.CompleteTask(ctx, id)
	})
}

func (d *Detail) mutate(ctx context.Context, op string, call func(id string) (model.Task, error)) (model.Task, error) {
	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return model.Task{}, ErrNotLoaded
	}
	if d.busy {
		d.mu.Unlock()
		return model.Task{}, ErrBusy
	}
	d.busy = true
	id, gen := d.id, d.gen
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	t, err := call(id)
	if err != nil {
		d.logger.Warn(op+" failed", "id", id, "err", err)
		return model.Task{}, err
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		d.logger.Debug("dropping stale "+op+" result", "id", id)
		return model.Task{}, ErrStale
	}
	d.task = t
	d.mu.Unlock()

	d.refreshActivity(ctx, id, gen)
	return t, nil
}

func (d *Detail) refreshActivity(ctx context.Context, id string, gen uint64) {
	entries, err := d.repo.Activity(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return
	}
	if err != nil {
		d.activityErr = err
		d.logger.Warn("refresh activity failed", "id", id, "err", err)
		return
	}
	if entries == nil {
		entries = []model.ActivityLogEntry{}
	}
	d.activity = entries
	d.activityErr = nil
}

// Remove deletes the loaded task. State is left as is; the caller navigates
// away and calls Reset. If the subject changed meanwhile the delete still
// happened on the server but ErrStale is returned.
func (d *Detail) Remove(ctx context.Context) error {
	d.mu.Lock()
	if !d.loaded {
		d.mu.Unlock()
		return ErrNotLoaded
	}
	if d.busy {
		d.mu.Unlock()
		return ErrBusy
	}
	d.busy = true
	id, gen := d.id, d.gen
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	if err := d.repo.DeleteTask(ctx, id); err != nil {
		d.logger.Warn("delete task failed", "id", id, "err", err)
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		return ErrStale
	}
	return nil
}

// Reset forgets the current task. Responses still in flight are dropped.
func (d *Detail) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.clear()
	d.id = ""
	d.loading = false
	d.err = nil
}

// ID returns the id of the task being shown or loaded
func (d *Detail) ID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// Task returns the loaded task
func (d *Detail) Task() (model.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task, d.loaded
}

// Activity returns a copy of the activity log, oldest first
func (d *Detail) Activity() []model.ActivityLogEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.ActivityLogEntry, len(d.activity))
	copy(out, d.activity)
	return out
}

func (d *Detail) Loaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded
}

func (d *Detail) Loading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loading
}

// Err returns the error from the last Load, if it failed
func (d *Detail) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// ActivityErr returns the error from the last post-edit activity refresh
func (d *Detail) ActivityErr() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activityErr
}
