// Package guard decides which view a user may reach based on the session.
package guard

// Route is a navigable screen
type Route int

const (
	RouteLogin Route = iota
	RouteTasks
	RouteTaskDetail
)

// String returns the display name for a route
func (r Route) String() string {
	switch r {
	case RouteLogin:
		return "Login"
	case RouteTasks:
		return "Tasks"
	case RouteTaskDetail:
		return "Task"
	default:
		return "Unknown"
	}
}

// Guarded reports whether the route requires authentication
func (r Route) Guarded() bool {
	return r != RouteLogin
}

// Authenticator reports the session state. *session.Session satisfies it.
type Authenticator interface {
	IsAuthenticated() bool
}

// Guard has two states, driven only by the session: unauthenticated users
// are sent to the login view, authenticated users are kept off it. It does
// not remember the requested destination; after login users land on Tasks.
type Guard struct {
	auth Authenticator
}

// New creates a guard over auth
func New(auth Authenticator) Guard {
	return Guard{auth: auth}
}

// Resolve returns the route to show when requested is asked for
func (g Guard) Resolve(requested Route) Route {
	if !g.auth.IsAuthenticated() {
		if requested.Guarded() {
			return RouteLogin
		}
		return requested
	}
	if requested == RouteLogin {
		return RouteTasks
	}
	return requested
}

// Allowed reports whether requested can be shown as-is
func (g Guard) Allowed(requested Route) bool {
	return g.Resolve(requested) == requested
}
