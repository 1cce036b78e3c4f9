// Package ui is the bubbletea front end. RootModel owns the route and passes
// every navigation request through the route guard.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/ui/views"
)

// RootModel is the main application model that manages views
type RootModel struct {
	app    *app.App
	keys   KeyMap
	help   help.Model
	width  int
	height int

	route       guard.Route
	loginView   views.LoginView
	tasksView   views.TasksView
	detailView  views.DetailView
	helpVisible bool

	// Status message
	statusMsg string
	errorMsg  string
}

// NewRootModel creates a new root model
func NewRootModel(a *app.App) RootModel {
	h := help.New()
	h.ShowAll = true

	return RootModel{
		app:        a,
		keys:       DefaultKeyMap(),
		help:       h,
		route:      a.Guard.Resolve(guard.RouteTasks),
		loginView:  views.NewLoginView(a.Session, a.Config.APIURL),
		tasksView:  views.NewTasksView(a.Tasks, a.Stats, a.Notifier, a.Logger),
		detailView: views.NewDetailView(a.Detail, a.Notifier, a.Logger),
	}
}

// Run starts the terminal UI and blocks until it exits
func Run(a *app.App) error {
	if t, ok := theme.ByName(a.Config.Theme); ok {
		theme.SetTheme(t)
	}
	p := tea.NewProgram(NewRootModel(a), tea.WithAltScreen())
	notifySession(a, p.Send)
	_, err := p.Run()
	return err
}

// notifySession forwards session changes to the program so the guard is
// re-run against the active route.
func notifySession(a *app.App, send func(tea.Msg)) {
	a.Session.OnChange(func(authenticated bool) {
		send(sessionChangedMsg{authenticated: authenticated})
	})
}

// Route returns the active route
func (m RootModel) Route() guard.Route {
	return m.route
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	m.app.Logger.Debug("ui started", "route", m.route.String())
	cmds := []tea.Cmd{m.detailView.Init()}
	if m.route == guard.RouteLogin {
		cmds = append(cmds, m.loginView.Init())
	} else {
		cmds = append(cmds, m.tasksView.Init())
	}
	return tea.Batch(cmds...)
}

func (m RootModel) inputMode() bool {
	switch m.route {
	case guard.RouteLogin:
		return m.loginView.IsInputMode()
	case guard.RouteTasks:
		return m.tasksView.IsInputMode()
	case guard.RouteTaskDetail:
		return m.detailView.IsInputMode()
	}
	return false
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Reserve space for header (1 line) and footer (3 lines)
		contentHeight := m.height - 4
		m.loginView = m.loginView.SetSize(m.width, contentHeight)
		m.tasksView = m.tasksView.SetSize(m.width, contentHeight)
		m.detailView = m.detailView.SetSize(m.width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		m.errorMsg = ""
		isInputMode := m.inputMode()

		switch {
		case key.Matches(msg, m.keys.Quit):
			// ctrl+c always quits, but 'q' only quits when not in input mode
			if msg.String() == "ctrl+c" || !isInputMode {
				return m, tea.Quit
			}

		case key.Matches(msg, m.keys.ThemeCycle):
			next := theme.Next()
			theme.SetTheme(next)
			m.statusMsg = fmt.Sprintf("Theme: %s", next.Name)
			return m, nil
		}

		if isInputMode {
			return m.delegateKey(msg)
		}

		if m.helpVisible {
			if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
				m.helpVisible = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = true
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			if m.app.Session.IsAuthenticated() {
				sess := m.app.Session
				return m, func() tea.Msg {
					return loggedOutMsg{err: sess.Logout()}
				}
			}
		}
		return m.delegateKey(msg)

	case loggedOutMsg:
		if msg.err != nil {
			m.errorMsg = "Logout failed: " + msg.err.Error()
			return m, nil
		}
		return m.navigate(views.NavigateMsg{Route: guard.RouteLogin, Status: "Logged out"})

	case sessionChangedMsg:
		m.app.Logger.Debug("session changed", "authenticated", msg.authenticated)
		if target := m.app.Guard.Resolve(m.route); target != m.route {
			status := ""
			if !msg.authenticated {
				status = "Session ended"
			}
			return m.navigate(views.NavigateMsg{Route: target, Status: status})
		}
		return m, nil

	case views.NavigateMsg:
		return m.navigate(msg)
	}

	// Async results and ticks go to every view; each ignores what it did not
	// start.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.loginView, cmd = m.loginView.Update(msg)
	cmds = append(cmds, cmd)
	m.tasksView, cmd = m.tasksView.Update(msg)
	cmds = append(cmds, cmd)
	m.detailView, cmd = m.detailView.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m RootModel) delegateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case guard.RouteLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case guard.RouteTasks:
		m.tasksView, cmd = m.tasksView.Update(msg)
	case guard.RouteTaskDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	}
	return m, cmd
}

// navigate switches to the route the guard allows for the request
func (m RootModel) navigate(msg views.NavigateMsg) (tea.Model, tea.Cmd) {
	target := m.app.Guard.Resolve(msg.Route)
	if target == guard.RouteTaskDetail && msg.TaskID == "" {
		target = guard.RouteTasks
	}
	if target != msg.Route {
		m.app.Logger.Debug("route redirected", "requested", msg.Route.String(), "route", target.String())
	}
	if target == m.route && target != guard.RouteTaskDetail {
		if msg.Status != "" {
			m.statusMsg = msg.Status
		}
		return m, nil
	}

	if m.route == guard.RouteTaskDetail && target != guard.RouteTaskDetail {
		m.app.Detail.Reset()
	}
	m.route = target
	m.helpVisible = false
	m.statusMsg = msg.Status

	var cmd tea.Cmd
	switch target {
	case guard.RouteLogin:
		m.loginView = m.loginView.Reset()
		cmd = m.loginView.Init()
	case guard.RouteTasks:
		cmd = m.tasksView.Init()
	case guard.RouteTaskDetail:
		m.detailView, cmd = m.detailView.Open(msg.TaskID)
	}
	return m, cmd
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	// Reserve: 1 line for header + 3 lines for footer
	contentHeight := m.height - 4
	var content string
	if m.helpVisible {
		content = m.help.View(m.keys) + "\n\n" +
			theme.Current.Styles.HelpDesc.Render("Press ? or esc to close")
	} else {
		switch m.route {
		case guard.RouteLogin:
			content = m.loginView.View()
		case guard.RouteTasks:
			content = m.tasksView.View()
		case guard.RouteTaskDetail:
			content = m.detailView.View()
		}
	}

	// Ensure content fills available space
	contentLines := strings.Count(content, "\n") + 1
	if contentLines < contentHeight {
		content += strings.Repeat("\n", contentHeight-contentLines)
	}
	sections = append(sections, content)
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

// renderHeader renders the header bar
func (m RootModel) renderHeader() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	title := styles.Header.Render("taskdeck")

	viewStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Padding(0, 1)
	viewIndicator := viewStyle.Render(fmt.Sprintf("[%s]", m.route.String()))
	themeIndicator := viewStyle.Render(fmt.Sprintf("theme: %s", t.Name))

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, title, viewIndicator)
	rightSide := themeIndicator

	gap := max(0, m.width-lipgloss.Width(leftSide)-lipgloss.Width(rightSide))
	return leftSide + strings.Repeat(" ", gap) + rightSide
}

// renderFooter renders the status line and context-aware key hints
func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	key := func(k, desc string) string {
		return styles.HelpKey.Render(k) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	var statusLine string
	if m.errorMsg != "" {
		statusLine = lipgloss.NewStyle().Foreground(t.Error).Render(m.errorMsg)
	} else if m.statusMsg != "" {
		statusLine = lipgloss.NewStyle().Foreground(t.Info).Render(m.statusMsg)
	}

	var line1, line2 string
	switch {
	case m.route == guard.RouteLogin:
		line1 = key("tab", "next field") + sep +
			key("enter", "log in") + sep +
			key("ctrl+c", "quit")
	case m.inputMode():
		line1 = key("enter", "confirm") + sep + key("esc", "cancel")
	case m.route == guard.RouteTasks:
		line1 = key("a", "add") + sep +
			key("enter", "open") + sep +
			key("tab", "done") + sep +
			key("c", "complete") + sep +
			key("d", "del") + sep +
			key("r", "refresh")
		line2 = key("h/l", "page") + sep +
			key("L", "log out") + sep +
			key("ctrl+t", "theme") + sep +
			key("?", "help") + sep +
			key("q", "quit")
	case m.route == guard.RouteTaskDetail:
		line1 = key("e", "edit title") + sep +
			key("tab", "done") + sep +
			key("c", "complete") + sep +
			key("d", "del") + sep +
			key("r", "reload")
		line2 = key("esc", "back") + sep +
			key("L", "log out") + sep +
			key("?", "help") + sep +
			key("q", "quit")
	}

	var lines []string
	for _, l := range []string{statusLine, line1, line2} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
