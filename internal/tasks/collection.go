package tasks

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/dori/taskdeck/internal/model"
)

// Collection holds the full task list in server order and the current page.
//
// Remote calls run without the lock held. Local state changes only after the
// server answers successfully, and always by applying the server's returned
// object, so the list never shows anything the server did not confirm.
//
// Only a newer FetchAll makes a fetch stale. Mutations confirmed while a
// fetch is in flight are journaled and replayed over the fetched list, so
// the result holds whether the server built its list before or after them.
type Collection struct {
	repo   Repository
	logger *slog.Logger

	mu       sync.Mutex
	tasks    []model.Task
	page     int
	err      error
	loading  bool
	fetchGen uint64 // bumped by every FetchAll
	journal  []change
	inflight map[string]bool
}

type changeKind int

const (
	changeAdd changeKind = iota
	changeRemove
	changeReplace
)

// change is a server-confirmed mutation
type change struct {
	kind changeKind
	task model.Task
}

// NewCollection creates an empty collection on page 1
func NewCollection(repo Repository, logger *slog.Logger) *Collection {
	return &Collection{
		repo:     repo,
		logger:   orDiscard(logger),
		page:     1,
		inflight: make(map[string]bool),
	}
}

// FetchAll replaces the list with the server's. On failure the previous
// list is kept and the error is recorded. A result overtaken by a later
// FetchAll is dropped with ErrStale; that later fetch owns the outcome.
func (c *Collection) FetchAll(ctx context.Context) error {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	c.journal = nil
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	list, err := c.repo.ListTasks(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.fetchGen {
		c.logger.Debug("dropping stale task list", "gen", gen, "current", c.fetchGen)
		return ErrStale
	}
	c.loading = false
	journal := c.journal
	c.journal = nil
	if err != nil {
		c.err = err
		c.logger.Warn("fetch tasks failed", "err", err)
		return err
	}
	if list == nil {
		list = []model.Task{}
	}
	c.tasks = list
	for _, ch := range journal {
		c.apply(ch)
	}
	if len(journal) > 0 {
		c.logger.Debug("replayed mutations over fetched list", "count", len(journal))
	}
	c.clamp()
	return nil
}

// record applies ch and journals it while a fetch is in flight. Must be
// called with c.mu held.
func (c *Collection) record(ch change) {
	c.apply(ch)
	if c.loading {
		c.journal = append(c.journal, ch)
	}
}

// apply must be called with c.mu held. It is idempotent, so replaying a
// change the fetched list already reflects is harmless.
func (c *Collection) apply(ch change) {
	i := slices.IndexFunc(c.tasks, func(t model.Task) bool { return t.ID == ch.task.ID })
	switch ch.kind {
	case changeAdd:
		if i < 0 {
			c.tasks = append(c.tasks, ch.task)
		}
	case changeRemove:
		if i >= 0 {
			c.tasks = slices.Delete(c.tasks, i, i+1)
		}
	case changeReplace:
		// A task removed meanwhile stays removed; a newer listed copy wins.
		if i >= 0 && !ch.task.UpdatedAt.Before(c.tasks[i].UpdatedAt) {
			c.tasks[i] = ch.task
		}
	}
}

// Add creates a task and appends the server's copy to the end of the list
func (c *Collection) Add(ctx context.Context, title string) (model.Task, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return model.Task{}, err
	}

	t, err := c.repo.CreateTask(ctx, title)
	if err != nil {
		c.logger.Warn("create task failed", "err", err)
		return model.Task{}, err
	}

	c.mu.Lock()
	c.record(change{kind: changeAdd, task: t})
	c.mu.Unlock()
	return t, nil
}

// Remove deletes a task on the server, then drops it locally
func (c *Collection) Remove(ctx context.Context, id string) error {
	if err := c.begin(id); err != nil {
		return err
	}
	defer c.end(id)

	if err := c.repo.DeleteTask(ctx, id); err != nil {
		c.logger.Warn("delete task failed", "id", id, "err", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(change{kind: changeRemove, task: model.Task{ID: id}})
	c.clamp()
	return nil
}

// Edit applies a partial update and replaces the entry with the server's copy
func (c *Collection) Edit(ctx context.Context, id string, update model.TaskUpdate) (model.Task, error) {
	update, err := normalizeUpdate(update)
	if err != nil {
		return model.Task{}, err
	}
	return c.mutate(id, "update task", func() (model.Task, error) {
		return c.repo.UpdateTask(ctx, id, update)
	})
}

// Complete marks a task completed through the dedicated endpoint
func (c *Collection) Complete(ctx context.Context, id string) (model.Task, error) {
	return c.mutate(id, "complete task", func() (model.Task, error) {
		return c.repo.CompleteTask(ctx, id)
	})
}

// Toggle flips the completed flag of a listed task
func (c *Collection) Toggle(ctx context.Context, id string) (model.Task, error) {
	cur, ok := c.Get(id)
	if !ok {
		return model.Task{}, ErrUnknownTask
	}
	return c.Edit(ctx, id, model.SetCompleted(!cur.Completed))
}

func (c *Collection) mutate(id, op string, call func() (model.Task, error)) (model.Task, error) {
	if err := c.begin(id); err != nil {
		return model.Task{}, err
	}
	defer c.end(id)

	t, err := call()
	if err != nil {
		c.logger.Warn(op+" failed", "id", id, "err", err)
		return model.Task{}, err
	}

	c.mu.Lock()
	c.record(change{kind: changeReplace, task: t})
	c.mu.Unlock()
	return t, nil
}

func (c *Collection) begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[id] {
		return ErrBusy
	}
	c.inflight[id] = true
	return nil
}

func (c *Collection) end(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

// Busy reports whether a mutation for id is in flight
func (c *Collection) Busy(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[id]
}

// GoToPage sets the current page. Values below 1 become 1; values past the
// last page are kept and show an empty page.
func (c *Collection) GoToPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.page = n
	c.mu.Unlock()
}

// NextPage moves forward unless already on the last page
func (c *Collection) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page < c.totalPages() {
		c.page++
	}
}

// PrevPage moves back unless already on page 1
func (c *Collection) PrevPage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.page > 1 {
		c.page--
	}
}

// Page returns a copy of the tasks on the current page
func (c *Collection) Page() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := (c.page - 1) * PageSize
	if start >= len(c.tasks) {
		return []model.Task{}
	}
	end := min(start+PageSize, len(c.tasks))
	out := make([]model.Task, end-start)
	copy(out, c.tasks[start:end])
	return out
}

// TotalPages is ceil(len/PageSize); zero for an empty list
func (c *Collection) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages()
}

func (c *Collection) totalPages() int {
	return (len(c.tasks) + PageSize - 1) / PageSize
}

// clamp keeps the page within [1, totalPages]. Must be called with c.mu held.
func (c *Collection) clamp() {
	c.page = max(1, min(c.page, c.totalPages()))
}

// CurrentPage returns the 1-based page number
func (c *Collection) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// All returns a copy of the full list
func (c *Collection) All() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Get returns the listed task with id
func (c *Collection) Get(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Err returns the error from the last FetchAll, if it failed
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}
