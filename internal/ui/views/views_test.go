package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/taskdeck/internal/api"
	"github.com/dori/taskdeck/internal/api/apitest"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/notify"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	srv      *apitest.Server
	repo     *api.Client
	notifier *notify.Notifier
	notified []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := apitest.NewServer(t)
	f := &fixture{
		srv:      srv,
		repo:     api.New(srv.URL, api.WithTokenSource(staticToken(srv.Token()))),
		notifier: notify.NewNotifier(true),
	}
	f.notifier.SetRunner(func(name string, args ...string) error {
		f.notified = append(f.notified, strings.Join(args, " "))
		return nil
	})
	return f
}

func (f *fixture) tasksView() TasksView {
	return NewTasksView(tasks.NewCollection(f.repo, discard), tasks.NewStats(f.repo, discard), f.notifier, discard)
}

func (f *fixture) detailView() DetailView {
	return NewDetailView(tasks.NewDetail(f.repo, discard), f.notifier, discard)
}

func press(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// loaded returns a tasks view with the server's list fetched
func loaded(t *testing.T, f *fixture) TasksView {
	t.Helper()
	v := f.tasksView()
	v, _ = v.Update(v.fetch()())
	require.NoError(t, v.col.Err())
	return v
}

func TestTasksViewPagingAndOpen(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 12; i++ {
		f.srv.Seed(fmt.Sprintf("Task %02d", i))
	}
	v := loaded(t, f)

	assert.Contains(t, v.View(), "Task 10")
	assert.Contains(t, v.View(), "Page 1 of 2")
	assert.NotContains(t, v.View(), "Task 11")

	v, _ = v.Update(press("l"))
	assert.Equal(t, 2, v.col.CurrentPage())
	assert.Contains(t, v.View(), "Task 12")

	v, _ = v.Update(press("j"))
	v, cmd := v.Update(press("enter"))
	require.NotNil(t, cmd)
	nav, ok := cmd().(NavigateMsg)
	require.True(t, ok)
	assert.Equal(t, guard.RouteTaskDetail, nav.Route)
	want, _ := v.selected()
	assert.Equal(t, "Task 12", want.Title)
	assert.Equal(t, want.ID, nav.TaskID)

	v, _ = v.Update(press("h"))
	assert.Equal(t, 1, v.col.CurrentPage())
	assert.Equal(t, 0, v.cursor)
}

func TestTasksViewAddJumpsToLastPage(t *testing.T) {
	f := newFixture(t)
	for i := 1; i <= 10; i++ {
		f.srv.Seed(fmt.Sprintf("Task %02d", i))
	}
	v := loaded(t, f)

	v, _ = v.Update(press("a"))
	require.True(t, v.IsInputMode())
	v, _ = v.Update(press("Buy milk"))
	v, cmd := v.Update(press("enter"))
	require.NotNil(t, cmd)
	assert.False(t, v.IsInputMode())

	v, cmd = v.Update(cmd())
	assert.NotNil(t, cmd, "stats refresh")
	assert.Equal(t, 2, v.col.CurrentPage())
	sel, ok := v.selected()
	require.True(t, ok)
	assert.Equal(t, "Buy milk", sel.Title)
	assert.Equal(t, 11, f.srv.Len())
}

func TestTasksViewAddBlankTitle(t *testing.T) {
	f := newFixture(t)
	v := loaded(t, f)

	v, _ = v.Update(press("a"))
	v, _ = v.Update(press("   "))
	v, cmd := v.Update(press("enter"))
	assert.Nil(t, cmd)
	assert.True(t, v.IsInputMode())
	assert.Contains(t, v.View(), "Title must not be empty")

	v, _ = v.Update(press("esc"))
	assert.False(t, v.IsInputMode())
	assert.Equal(t, 0, f.srv.Calls("POST /tasks"))
}

func TestTasksViewDeleteConfirm(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("Old task")
	v := loaded(t, f)

	v, _ = v.Update(press("d"))
	assert.Contains(t, v.View(), `Delete "Old task"? (y/n)`)
	v, cmd := v.Update(press("n"))
	assert.Nil(t, cmd)
	assert.Equal(t, TasksModeNormal, v.mode)

	v, _ = v.Update(press("d"))
	v, cmd = v.Update(press("y"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	assert.Equal(t, 0, f.srv.Len())
	assert.Equal(t, 0, v.col.Len())
	assert.Contains(t, v.View(), `Deleted "Old task"`)
}

func TestTasksViewToggleNotifiesOnCompletion(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("Ship it")
	v := loaded(t, f)

	v, cmd := v.Update(press("tab"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	sel, _ := v.selected()
	assert.True(t, sel.Completed)
	require.Len(t, f.notified, 1)
	assert.Contains(t, f.notified[0], "Ship it")

	v, cmd = v.Update(press("tab"))
	v, _ = v.Update(cmd())
	sel, _ = v.selected()
	assert.False(t, sel.Completed)
	assert.Len(t, f.notified, 1)
}

func TestTasksViewActionErrors(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("one")
	v := loaded(t, f)

	v, _ = v.Update(taskChangedMsg{err: tasks.ErrBusy})
	assert.Contains(t, v.View(), "Still saving")

	f.srv.FailNext("PUT /tasks/:id/complete", http.StatusInternalServerError)
	v, cmd := v.Update(press("c"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "Failed to update task")
	sel, _ := v.selected()
	assert.False(t, sel.Completed)
}

func TestTasksViewFetchFailureOffersRetry(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("one")
	f.srv.FailNext("GET /tasks", http.StatusInternalServerError)

	v := f.tasksView()
	v, _ = v.Update(v.fetch()())
	assert.Contains(t, v.View(), "Failed to load tasks")
	assert.Contains(t, v.View(), "retry")

	_, cmd := v.Update(press("r"))
	assert.NotNil(t, cmd)
	v, _ = v.Update(v.fetch()())
	assert.Contains(t, v.View(), "one")
}

func waitForCall(t *testing.T, srv *apitest.Server, route string) {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Calls(route) >= 1 },
		2*time.Second, 5*time.Millisecond, "no request to %s", route)
}

func TestTasksViewAddDuringInitialFetch(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("one", "two")
	v := f.tasksView()

	release := f.srv.Hold("GET /tasks")
	defer release()
	fetched := make(chan tea.Msg, 1)
	fetch := v.fetch()
	go func() { fetched <- fetch() }()
	waitForCall(t, f.srv, "GET /tasks")

	v, _ = v.Update(press("a"))
	v, _ = v.Update(press("three"))
	v, cmd := v.Update(press("enter"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())

	release()
	v, _ = v.Update(<-fetched)
	assert.NoError(t, v.col.Err())
	assert.False(t, v.col.Loading())
	assert.Equal(t, 3, v.col.Len())
	out := v.View()
	for _, title := range []string{"one", "two", "three"} {
		assert.Contains(t, out, title)
	}
}

func TestTasksViewIgnoresStaleFetch(t *testing.T) {
	f := newFixture(t)
	f.srv.Seed("one", "two")
	v := loaded(t, f)
	v, _ = v.Update(press("j"))

	v, cmd := v.Update(tasksFetchedMsg{err: tasks.ErrStale})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, v.cursor)
}

func openDetail(t *testing.T, v DetailView, id string) DetailView {
	t.Helper()
	v, cmd := v.Open(id)
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	require.True(t, v.detail.Loaded())
	return v
}

func TestDetailViewShowsTaskAndActivity(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("Write report")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	out := v.View()
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Activity")
	assert.Contains(t, out, "Created")
}

func TestDetailViewEditTitle(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("draft")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	v, _ = v.Update(press("e"))
	require.True(t, v.IsInputMode())
	assert.Equal(t, "draft", v.input.Value())

	v.input.SetValue("final")
	v, cmd := v.Update(press("enter"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())

	out := v.View()
	assert.Contains(t, out, "Saved")
	assert.Contains(t, out, "Title changed: draft → final")
	got, _ := f.srv.Task(seeded[0].ID)
	assert.Equal(t, "final", got.Title)
}

func TestDetailViewUnchangedTitleIsNoop(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("same")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	v, _ = v.Update(press("e"))
	v, cmd := v.Update(press("enter"))
	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "Nothing changed")
	assert.Equal(t, 0, f.srv.Calls("PATCH /tasks/:id"))
}

func TestDetailViewCompleteNotifies(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("Ship it")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	v, cmd := v.Update(press("c"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "completed")
	assert.Len(t, f.notified, 1)

	_, cmd = v.Update(press("c"))
	assert.Nil(t, cmd, "already completed")
}

func TestDetailViewDeleteNavigatesBack(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("Old task")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	v, _ = v.Update(press("d"))
	assert.Contains(t, v.View(), "(y/n)")
	v, cmd := v.Update(press("y"))
	require.NotNil(t, cmd)
	_, cmd = v.Update(cmd())
	require.NotNil(t, cmd)

	nav, ok := cmd().(NavigateMsg)
	require.True(t, ok)
	assert.Equal(t, guard.RouteTasks, nav.Route)
	assert.Equal(t, `Deleted "Old task"`, nav.Status)
	assert.Equal(t, 0, f.srv.Len())
}

func TestDetailViewDropsEditOfPreviousTask(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("first", "second")
	v := openDetail(t, f.detailView(), seeded[0].ID)

	release := f.srv.Hold("PATCH /tasks/:id")
	defer release()

	v, _ = v.Update(press("e"))
	v.input.SetValue("renamed")
	v, cmd := v.Update(press("enter"))
	require.NotNil(t, cmd)
	changed := make(chan tea.Msg, 1)
	go func() { changed <- cmd() }()
	waitForCall(t, f.srv, "PATCH /tasks/:id")

	v.detail.Reset()
	v = openDetail(t, v, seeded[1].ID)
	release()

	v, _ = v.Update(<-changed)
	assert.Empty(t, v.statusMsg)
	assert.Empty(t, v.errMsg)
	out := v.View()
	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "Saved")
	assert.NotContains(t, out, "renamed")
}

func TestDetailViewBack(t *testing.T) {
	f := newFixture(t)
	v := f.detailView()
	_, cmd := v.Update(press("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateMsg{Route: guard.RouteTasks}, cmd())
}

func TestDetailViewLoadFailure(t *testing.T) {
	f := newFixture(t)
	seeded := f.srv.Seed("one")
	f.srv.FailNext("GET /tasks/:id/activity", http.StatusInternalServerError)

	v, cmd := f.detailView().Open(seeded[0].ID)
	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "Failed to load task")

	v, cmd = v.Update(press("r"))
	require.NotNil(t, cmd)
	v, _ = v.Update(cmd())
	assert.Contains(t, v.View(), "one")
}

type authFunc func(ctx context.Context, creds model.Credentials) error

func (f authFunc) Login(ctx context.Context, creds model.Credentials) error { return f(ctx, creds) }

func TestLoginViewSubmit(t *testing.T) {
	var got model.Credentials
	v := NewLoginView(authFunc(func(_ context.Context, creds model.Credentials) error {
		got = creds
		return nil
	}), "http://localhost:8000")
	assert.Contains(t, v.View(), "http://localhost:8000")

	v, _ = v.Update(press("admin"))
	v, cmd := v.Update(press("enter"))
	assert.Nil(t, cmd, "enter on username moves to password")
	v, _ = v.Update(press("password"))
	v, cmd = v.Update(press("enter"))
	require.NotNil(t, cmd)
	assert.True(t, v.submitting)

	v, cmd = v.Update(cmd())
	assert.Equal(t, model.Credentials{Username: "admin", Password: "password"}, got)
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateMsg{Route: guard.RouteTasks, Status: "Logged in as admin"}, cmd())
	assert.Empty(t, v.inputs[fieldUsername].Value())
	assert.Empty(t, v.inputs[fieldPassword].Value())
}

func TestLoginViewFailure(t *testing.T) {
	v := NewLoginView(authFunc(func(context.Context, model.Credentials) error {
		return errors.New("Invalid username or password")
	}), "http://localhost:8000")

	v, cmd := v.Update(press("enter"))
	assert.Nil(t, cmd)
	v, cmd = v.Update(press("enter"))
	assert.Nil(t, cmd)
	assert.Contains(t, v.View(), "required")

	v, _ = v.Update(press("tab"))
	v, _ = v.Update(press("admin"))
	v, _ = v.Update(press("tab"))
	v, _ = v.Update(press("wrong"))
	v, cmd = v.Update(press("enter"))
	require.NotNil(t, cmd)
	v, cmd = v.Update(cmd())
	assert.Nil(t, cmd)
	assert.Contains(t, v.View(), "Invalid username or password")
	assert.Equal(t, "admin", v.inputs[fieldUsername].Value())
	assert.Empty(t, v.inputs[fieldPassword].Value())
}
