package api

import (
	"context"
	"net/http"

	"github.com/dori/taskdeck/internal/model"
)

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.LoginResponse, error) {
	var resp model.LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", creds, &resp)
	return resp, err
}

// ListTasks returns every task in server order
func (c *Client) ListTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, "list tasks", http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// GetTask returns a single task. A missing task yields an error matching ErrNotFound.
func (c *Client) GetTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "get task", http.MethodGet, taskPath(id), nil, &t)
	return t, err
}

// CreateTask creates a task with the given title
func (c *Client) CreateTask(ctx context.Context, title string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "create task", http.MethodPost, "/tasks", struct {
		Title string `json:"title"`
	}{title}, &t)
	return t, err
}

// UpdateTask applies a partial update and returns the server's version
func (c *Client) UpdateTask(ctx context.Context, id string, update model.TaskUpdate) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "update task", http.MethodPatch, taskPath(id), update, &t)
	return t, err
}

// CompleteTask marks a task completed
func (c *Client) CompleteTask(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, "complete task", http.MethodPut, taskPath(id, "complete"), nil, &t)
	return t, err
}

// DeleteTask deletes a task
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil)
}

// Stats returns the current task counts
func (c *Client) Stats(ctx context.Context) (model.TaskStats, error) {
	var s model.TaskStats
	err := c.do(ctx, "task stats", http.MethodGet, "/tasks/stats", nil, &s)
	return s, err
}

// Activity returns a task's activity log in chronological order
func (c *Client) Activity(ctx context.Context, id string) ([]model.ActivityLogEntry, error) {
	var entries []model.ActivityLogEntry
	if err := c.do(ctx, "task activity", http.MethodGet, taskPath(id, "activity"), nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.ActivityLogEntry{}
	}
	return entries, nil
}
