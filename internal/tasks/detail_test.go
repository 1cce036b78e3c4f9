package tasks_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dori/taskdeck/internal/api"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetailLoad(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("Write report")
	d := tasks.NewDetail(repo, nil)

	require.NoError(t, d.Load(context.Background(), seeded[0].ID))
	assert.True(t, d.Loaded())
	assert.False(t, d.Loading())
	assert.Equal(t, seeded[0].ID, d.ID())

	task, ok := d.Task()
	require.True(t, ok)
	assert.Equal(t, seeded[0], task)

	activity := d.Activity()
	require.Len(t, activity, 1)
	assert.Equal(t, model.ActionCreated, activity[0].Action)
	assert.Equal(t, seeded[0].ID, activity[0].TaskID)
}

func TestDetailLoadFailsWhenActivityFails(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("Write report")
	d := tasks.NewDetail(repo, nil)

	srv.FailNext("GET /tasks/:id/activity", http.StatusInternalServerError)
	err := d.Load(context.Background(), seeded[0].ID)
	require.Error(t, err)

	assert.False(t, d.Loaded())
	_, ok := d.Task()
	assert.False(t, ok)
	assert.Empty(t, d.Activity())
	assert.Error(t, d.Err())
}

func TestDetailLoadFailureClearsPreviousState(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("Write report")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	srv.FailNext("GET /tasks/:id", http.StatusInternalServerError)
	require.Error(t, d.Load(ctx, seeded[0].ID))
	assert.False(t, d.Loaded())
	assert.Empty(t, d.Activity())
}

func TestDetailLoadUnknownTask(t *testing.T) {
	repo, _ := newRepo(t)
	d := tasks.NewDetail(repo, nil)

	err := d.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Equal(t, "Task with id 'missing' not found", tasks.Message(d.Err()))
}

func TestDetailEditRefetchesActivity(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("draft")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	updated, err := d.Edit(ctx, model.SetTitle(" final "))
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)

	task, _ := d.Task()
	assert.Equal(t, updated, task)

	activity := d.Activity()
	require.Len(t, activity, 2)
	assert.Equal(t, model.ActionUpdated, activity[1].Action)
	assert.Equal(t, "draft → final", activity[1].Change())
	assert.NoError(t, d.ActivityErr())
}

func TestDetailEditUnchangedTitleIsNoop(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("same")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	got, err := d.Edit(ctx, model.SetTitle("  same "))
	require.NoError(t, err)
	assert.Equal(t, seeded[0], got)

	_, err = d.Edit(ctx, model.SetCompleted(false))
	require.NoError(t, err)
	assert.Equal(t, 0, srv.Calls("PATCH /tasks/:id"))
}

func TestDetailEditBlankTitle(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("draft")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	_, err := d.Edit(ctx, model.SetTitle("   "))
	var vErr *tasks.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, srv.Calls("PATCH /tasks/:id"))

	task, _ := d.Task()
	assert.Equal(t, "draft", task.Title)
}

func TestDetailEditKeptWhenActivityRefreshFails(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("draft")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	srv.FailNext("GET /tasks/:id/activity", http.StatusInternalServerError)
	updated, err := d.Edit(ctx, model.SetTitle("final"))
	require.NoError(t, err)

	task, _ := d.Task()
	assert.Equal(t, updated, task)
	assert.Error(t, d.ActivityErr())
	assert.Len(t, d.Activity(), 1)
}

func TestDetailEditFailureKeepsTask(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("draft")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	srv.FailNext("PATCH /tasks/:id", http.StatusInternalServerError)
	_, err := d.Edit(ctx, model.SetTitle("final"))
	require.Error(t, err)

	task, ok := d.Task()
	require.True(t, ok)
	assert.Equal(t, seeded[0], task)
}

func TestDetailToggleAndComplete(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("one")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	toggled, err := d.Toggle(ctx)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	toggled, err = d.Toggle(ctx)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	done, err := d.Complete(ctx)
	require.NoError(t, err)
	assert.True(t, done.Completed)

	var actions []model.Action
	for _, e := range d.Activity() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []model.Action{
		model.ActionCreated,
		model.ActionStatusChanged,
		model.ActionStatusChanged,
		model.ActionCompleted,
	}, actions)
}

func TestDetailRemove(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("one")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	require.NoError(t, d.Remove(ctx))
	_, ok := srv.Task(seeded[0].ID)
	assert.False(t, ok)

	d.Reset()
	assert.False(t, d.Loaded())
	assert.Empty(t, d.ID())
}

func TestDetailRequiresLoad(t *testing.T) {
	repo, _ := newRepo(t)
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()

	_, err := d.Edit(ctx, model.SetTitle("x"))
	assert.ErrorIs(t, err, tasks.ErrNotLoaded)
	_, err = d.Complete(ctx)
	assert.ErrorIs(t, err, tasks.ErrNotLoaded)
	_, err = d.Toggle(ctx)
	assert.ErrorIs(t, err, tasks.ErrNotLoaded)
	assert.ErrorIs(t, d.Remove(ctx), tasks.ErrNotLoaded)
}

func TestDetailStaleLoadAfterReset(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("one")
	d := tasks.NewDetail(repo, nil)

	release := srv.Hold("GET /tasks/:id")
	defer release()

	errc := make(chan error, 1)
	go func() { errc <- d.Load(context.Background(), seeded[0].ID) }()
	waitForCall(t, srv, "GET /tasks/:id", 1)
	assert.True(t, d.Loading())

	d.Reset()
	release()

	assert.ErrorIs(t, <-errc, tasks.ErrStale)
	assert.False(t, d.Loaded())
	assert.False(t, d.Loading())
	assert.Empty(t, d.ID())
}

func TestDetailEditOvertakenByNewSubject(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("first", "second")
	d := tasks.NewDetail(repo, nil)
	ctx := context.Background()
	require.NoError(t, d.Load(ctx, seeded[0].ID))

	release := srv.Hold("PATCH /tasks/:id")
	defer release()

	errc := make(chan error, 1)
	go func() {
		_, err := d.Edit(ctx, model.SetTitle("renamed"))
		errc <- err
	}()
	waitForCall(t, srv, "PATCH /tasks/:id", 1)

	d.Reset()
	require.NoError(t, d.Load(ctx, seeded[1].ID))
	release()

	assert.ErrorIs(t, <-errc, tasks.ErrStale)
	got, ok := d.Task()
	require.True(t, ok)
	assert.Equal(t, "second", got.Title)
	assert.NoError(t, d.ActivityErr())

	onServer, _ := srv.Task(seeded[0].ID)
	assert.Equal(t, "renamed", onServer.Title)
}

func TestDetailRemoveOvertakenByReset(t *testing.T) {
	repo, srv := newRepo(t)
	seeded := srv.Seed("one")
	d := tasks.NewDetail(repo, nil)
	require.NoError(t, d.Load(context.Background(), seeded[0].ID))

	release := srv.Hold("DELETE /tasks/:id")
	defer release()

	errc := make(chan error, 1)
	go func() { errc <- d.Remove(context.Background()) }()
	waitForCall(t, srv, "DELETE /tasks/:id", 1)

	d.Reset()
	release()

	assert.ErrorIs(t, <-errc, tasks.ErrStale)
	assert.Equal(t, 0, srv.Len())
}
