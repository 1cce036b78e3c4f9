package ui

// loggedOutMsg reports the result of clearing the session
type loggedOutMsg struct {
	err error
}

// sessionChangedMsg reports a login or logout made anywhere in the process
type sessionChangedMsg struct{ authenticated bool }
