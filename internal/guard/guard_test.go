package guard

import "testing"

type authFlag bool

func (a authFlag) IsAuthenticated() bool { return bool(a) }

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		authed    bool
		requested Route
		want      Route
	}{
		{"anonymous login", false, RouteLogin, RouteLogin},
		{"anonymous tasks", false, RouteTasks, RouteLogin},
		{"anonymous detail", false, RouteTaskDetail, RouteLogin},
		{"authed login bounces to tasks", true, RouteLogin, RouteTasks},
		{"authed tasks", true, RouteTasks, RouteTasks},
		{"authed detail", true, RouteTaskDetail, RouteTaskDetail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(authFlag(tt.authed))
			if got := g.Resolve(tt.requested); got != tt.want {
				t.Errorf("Resolve(%s) = %s, want %s", tt.requested, got, tt.want)
			}
			if got := g.Allowed(tt.requested); got != (tt.requested == tt.want) {
				t.Errorf("Allowed(%s) = %v", tt.requested, got)
			}
		})
	}
}

type toggle struct{ on bool }

func (t *toggle) IsAuthenticated() bool { return t.on }

// The guard holds no state of its own; it follows the session live.
func TestResolveFollowsSession(t *testing.T) {
	auth := &toggle{}
	g := New(auth)

	if g.Resolve(RouteTaskDetail) != RouteLogin {
		t.Fatal("expected login before authentication")
	}
	auth.on = true
	if g.Resolve(RouteLogin) != RouteTasks {
		t.Fatal("expected tasks after authentication, not the remembered destination")
	}
	auth.on = false
	if g.Resolve(RouteTasks) != RouteLogin {
		t.Fatal("expected login after logout")
	}
}
