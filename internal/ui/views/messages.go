package views

import (
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/model"
)

// NavigateMsg asks the root model to switch routes. The root passes the
// request through the guard, so a view may ask for any route.
type NavigateMsg struct {
	Route  guard.Route
	TaskID string
	Status string // shown after navigating
}

// LogoutRequest asks the root model to end the session
type LogoutRequest struct{}

type loggedInMsg struct {
	username string
	err      error
}

type tasksFetchedMsg struct {
	err error
}

type statsRefreshedMsg struct {
	err error
}

type taskAddedMsg struct {
	task model.Task
	err  error
}

type taskChangedMsg struct {
	before model.Task
	after  model.Task
	err    error
}

type taskRemovedMsg struct {
	task model.Task
	err  error
}

type detailLoadedMsg struct {
	id  string
	err error
}

type detailChangedMsg struct {
	before model.Task
	after  model.Task
	err    error
}

type detailRemovedMsg struct {
	title string
	err   error
}
