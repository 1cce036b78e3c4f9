package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/dori/taskdeck/internal/ui/theme"
)

// Authenticator logs a user in. *session.Session satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) error
}

const (
	fieldUsername = iota
	fieldPassword
)

// LoginView collects credentials and exchanges them for a session
type LoginView struct {
	auth   Authenticator
	apiURL string
	width  int
	height int

	inputs     []textinput.Model
	focus      int
	spinner    spinner.Model
	submitting bool
	errMsg     string
}

// NewLoginView creates a login form
func NewLoginView(auth Authenticator, apiURL string) LoginView {
	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 128
	user.Prompt = "Username: "

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.Prompt = "Password: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	s := spinner.New()
	s.Spinner = spinner.Dot

	v := LoginView{
		auth:    auth,
		apiURL:  apiURL,
		inputs:  []textinput.Model{user, pass},
		spinner: s,
	}
	v.inputs[fieldUsername].Focus()
	return v
}

// Init starts the cursor blink and spinner
func (v LoginView) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, v.spinner.Tick)
}

// Reset clears the form, e.g. after logout
func (v LoginView) Reset() LoginView {
	for i := range v.inputs {
		v.inputs[i].Reset()
		v.inputs[i].Blur()
	}
	v.focus = fieldUsername
	v.inputs[fieldUsername].Focus()
	v.submitting = false
	v.errMsg = ""
	return v
}

// IsInputMode is always true: every key is typed into the form
func (v LoginView) IsInputMode() bool {
	return true
}

// SetSize updates the view dimensions
func (v LoginView) SetSize(width, height int) LoginView {
	v.width = width
	v.height = height
	for i := range v.inputs {
		v.inputs[i].Width = min(40, max(10, width-20))
	}
	return v
}

// Update handles messages for the login view
func (v LoginView) Update(msg tea.Msg) (LoginView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case loggedInMsg:
		v.submitting = false
		if msg.err != nil {
			v.errMsg = tasks.Message(msg.err)
			v.inputs[fieldPassword].Reset()
			v.setFocus(fieldPassword)
			return v, nil
		}
		v = v.Reset()
		return v, func() tea.Msg {
			return NavigateMsg{Route: guard.RouteTasks, Status: "Logged in as " + msg.username}
		}

	case tea.KeyMsg:
		if v.submitting {
			return v, nil
		}
		switch msg.String() {
		case "tab", "down":
			v.setFocus((v.focus + 1) % len(v.inputs))
			return v, nil
		case "shift+tab", "up":
			v.setFocus((v.focus + len(v.inputs) - 1) % len(v.inputs))
			return v, nil
		case "enter":
			if v.focus == fieldUsername {
				v.setFocus(fieldPassword)
				return v, nil
			}
			return v.submit()
		}
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v *LoginView) setFocus(i int) {
	v.inputs[v.focus].Blur()
	v.focus = i
	v.inputs[v.focus].Focus()
}

func (v LoginView) submit() (LoginView, tea.Cmd) {
	creds := model.Credentials{
		Username: strings.TrimSpace(v.inputs[fieldUsername].Value()),
		Password: v.inputs[fieldPassword].Value(),
	}
	if creds.Username == "" || creds.Password == "" {
		v.errMsg = "Username and password are required"
		return v, nil
	}

	v.submitting = true
	v.errMsg = ""
	auth := v.auth
	return v, func() tea.Msg {
		err := auth.Login(context.Background(), creds)
		return loggedInMsg{username: creds.Username, err: err}
	}
}

// View renders the login form
func (v LoginView) View() string {
	styles := theme.Current.Styles

	var b strings.Builder
	b.WriteString(styles.Title.Render("Log in"))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(v.apiURL))
	b.WriteString("\n\n")

	for i, in := range v.inputs {
		style := styles.Input
		if i == v.focus {
			style = styles.InputFocused
		}
		b.WriteString(style.Render(in.View()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case v.submitting:
		b.WriteString(v.spinner.View() + " Logging in...")
	case v.errMsg != "":
		b.WriteString(styles.Error.Render(v.errMsg))
	}

	panel := styles.Panel.Render(b.String())
	if v.width == 0 {
		return panel
	}
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, panel)
}
