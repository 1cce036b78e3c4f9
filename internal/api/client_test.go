package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dori/taskdeck/internal/api"
	"github.com/dori/taskdeck/internal/api/apitest"
	"github.com/dori/taskdeck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newClient(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t)
	return api.New(srv.URL, api.WithTokenSource(staticToken(srv.Token()))), srv
}

func TestLogin(t *testing.T) {
	srv := apitest.NewServer(t)
	c := api.New(srv.URL)
	ctx := context.Background()

	resp, err := c.Login(ctx, model.Credentials{Username: apitest.Username, Password: apitest.Password})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Login successful", resp.Message)

	_, err = c.Login(ctx, model.Credentials{Username: "wrong", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "Invalid username or password", api.Message(err))
}

func TestLoginValidationDetail(t *testing.T) {
	srv := apitest.NewServer(t)
	c := api.New(srv.URL)

	_, err := c.Login(context.Background(), model.Credentials{})
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "Field required", apiErr.Detail)
}

func TestTaskRoundTrips(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	tasks, err := c.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NotNil(t, tasks)

	created, err := c.CreateTask(ctx, "Write report")
	require.NoError(t, err)
	assert.Equal(t, "Write report", created.Title)
	assert.False(t, created.Completed)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := c.GetTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.UpdateTask(ctx, created.ID, model.SetTitle("Write final report"))
	require.NoError(t, err)
	assert.Equal(t, "Write final report", updated.Title)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	completed, err := c.CompleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{Total: 1, Completed: 1, Pending: 0}, stats)
	assert.True(t, stats.Consistent())

	activity, err := c.Activity(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, activity, 3)
	assert.Equal(t, model.ActionCreated, activity[0].Action)
	assert.Equal(t, model.ActionUpdated, activity[1].Action)
	assert.Equal(t, "Write report → Write final report", activity[1].Change())
	assert.Equal(t, model.ActionCompleted, activity[2].Action)

	require.NoError(t, c.DeleteTask(ctx, created.ID))
	assert.Equal(t, 0, srv.Len())

	_, err = c.GetTask(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestUpdateOmitsAbsentFields(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	seeded := srv.Seed("Keep my title")

	updated, err := c.UpdateTask(ctx, seeded[0].ID, model.SetCompleted(true))
	require.NoError(t, err)
	assert.Equal(t, "Keep my title", updated.Title)
	assert.True(t, updated.Completed)

	activity, err := c.Activity(ctx, seeded[0].ID)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, model.ActionStatusChanged, activity[1].Action)
	assert.Equal(t, "pending → completed", activity[1].Change())
}

func TestListPreservesServerOrder(t *testing.T) {
	c, srv := newClient(t)
	srv.Seed("one", "two", "three")

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"one", "two", "three"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	srv := apitest.NewServer(t)
	c := api.New(srv.URL, api.WithTokenSource(staticToken("")))

	_, err := c.ListTasks(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)

	c = api.New(srv.URL, api.WithTokenSource(staticToken("not-a-jwt")))
	_, err = c.ListTasks(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestServerErrorIsAPIError(t *testing.T) {
	c, srv := newClient(t)
	srv.FailNext("GET /tasks", http.StatusInternalServerError)

	_, err := c.ListTasks(context.Background())
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "injected failure", apiErr.Detail)
	assert.False(t, errors.Is(err, api.ErrNotFound))

	// No retries: exactly one request reached the server
	assert.Equal(t, 1, srv.Calls("GET /tasks"))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := apitest.NewServer(t)
	url := srv.URL
	srv.Close()

	c := api.New(url)
	_, err := c.Stats(context.Background())
	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "task stats", netErr.Op)
	assert.Equal(t, "Cannot reach the task server", api.Message(err))
}

func TestEmptyTitleRejectedByServer(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.CreateTask(context.Background(), "   ")
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Detail, "title must not be empty")
}
