package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/notify"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/dori/taskdeck/internal/ui/theme"
)

const timeLayout = "2006-01-02 15:04"

// DetailMode is the input mode of the detail view
type DetailMode int

const (
	DetailModeNormal DetailMode = iota
	DetailModeEdit
	DetailModeConfirmDelete
)

// DetailView shows a single task and its activity log
type DetailView struct {
	detail   *tasks.Detail
	notifier *notify.Notifier
	logger   *slog.Logger
	width    int
	height   int

	mode      DetailMode
	input     textinput.Model
	spinner   spinner.Model
	statusMsg string
	errMsg    string
}

// NewDetailView creates the task detail view
func NewDetailView(detail *tasks.Detail, notifier *notify.Notifier, logger *slog.Logger) DetailView {
	ti := textinput.New()
	ti.Placeholder = "Title"
	ti.CharLimit = 256

	s := spinner.New()
	s.Spinner = spinner.Dot

	return DetailView{
		detail:   detail,
		notifier: notifier,
		logger:   logger,
		input:    ti,
		spinner:  s,
	}
}

// Init starts the spinner
func (v DetailView) Init() tea.Cmd {
	return v.spinner.Tick
}

// Open clears any previous status and loads the task with the given id
func (v DetailView) Open(id string) (DetailView, tea.Cmd) {
	v.mode = DetailModeNormal
	v.input.Blur()
	v.statusMsg = ""
	v.errMsg = ""
	return v, v.load(id)
}

// IsInputMode returns true when the view is capturing text input
func (v DetailView) IsInputMode() bool {
	return v.mode == DetailModeEdit
}

// SetSize updates the view dimensions
func (v DetailView) SetSize(width, height int) DetailView {
	v.width = width
	v.height = height
	v.input.Width = width - 4
	return v
}

func (v DetailView) load(id string) tea.Cmd {
	detail := v.detail
	return func() tea.Msg {
		return detailLoadedMsg{id: id, err: detail.Load(context.Background(), id)}
	}
}

func (v DetailView) edit(before model.Task, update model.TaskUpdate) tea.Cmd {
	detail := v.detail
	return func() tea.Msg {
		after, err := detail.Edit(context.Background(), update)
		return detailChangedMsg{before: before, after: after, err: err}
	}
}

func (v DetailView) complete(before model.Task) tea.Cmd {
	detail := v.detail
	return func() tea.Msg {
		after, err := detail.Complete(context.Background())
		return detailChangedMsg{before: before, after: after, err: err}
	}
}

func (v DetailView) remove(title string) tea.Cmd {
	detail := v.detail
	return func() tea.Msg {
		return detailRemovedMsg{title: title, err: detail.Remove(context.Background())}
	}
}

// Update handles messages for the detail view
func (v DetailView) Update(msg tea.Msg) (DetailView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case detailLoadedMsg:
		return v, nil

	case detailChangedMsg:
		if errors.Is(msg.err, tasks.ErrStale) {
			return v, nil
		}
		if msg.err != nil {
			v.errMsg = actionError("update", msg.err)
			return v, nil
		}
		switch {
		case msg.after == msg.before:
			v.statusMsg = "Nothing changed"
		case v.detail.ActivityErr() != nil:
			v.statusMsg = "Saved, but the activity log could not be refreshed"
		default:
			v.statusMsg = "Saved"
		}
		if !msg.before.Completed && msg.after.Completed {
			if err := v.notifier.SendTaskCompleted(msg.after.Title); err != nil {
				v.logger.Debug("notification failed", "err", err)
			}
		}
		return v, nil

	case detailRemovedMsg:
		if errors.Is(msg.err, tasks.ErrStale) {
			return v, nil
		}
		if msg.err != nil {
			v.errMsg = actionError("delete", msg.err)
			return v, nil
		}
		status := fmt.Sprintf("Deleted %q", msg.title)
		return v, func() tea.Msg {
			return NavigateMsg{Route: guard.RouteTasks, Status: status}
		}

	case tea.KeyMsg:
		switch v.mode {
		case DetailModeEdit:
			return v.handleEditMode(msg)
		case DetailModeConfirmDelete:
			return v.handleDeleteConfirm(msg)
		default:
			return v.handleNormalMode(msg)
		}
	}

	if v.mode == DetailModeEdit {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v DetailView) handleNormalMode(msg tea.KeyMsg) (DetailView, tea.Cmd) {
	switch msg.String() {
	case "esc", "backspace":
		return v, func() tea.Msg { return NavigateMsg{Route: guard.RouteTasks} }
	case "r":
		v.statusMsg = ""
		v.errMsg = ""
		if id := v.detail.ID(); id != "" {
			return v, v.load(id)
		}
		return v, nil
	}

	t, ok := v.detail.Task()
	if !ok {
		return v, nil
	}
	v.statusMsg = ""
	v.errMsg = ""

	switch msg.String() {
	case "e":
		v.mode = DetailModeEdit
		v.input.SetValue(t.Title)
		v.input.CursorEnd()
		v.input.Focus()
		return v, textinput.Blink
	case "tab", " ":
		return v, v.edit(t, model.SetCompleted(!t.Completed))
	case "c":
		if !t.Completed {
			return v, v.complete(t)
		}
	case "d":
		v.mode = DetailModeConfirmDelete
	}
	return v, nil
}

func (v DetailView) handleEditMode(msg tea.KeyMsg) (DetailView, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(v.input.Value())
		if title == "" {
			v.errMsg = "Title must not be empty"
			return v, nil
		}
		t, _ := v.detail.Task()
		v.mode = DetailModeNormal
		v.input.Blur()
		v.errMsg = ""
		return v, v.edit(t, model.SetTitle(title))
	case "esc":
		v.mode = DetailModeNormal
		v.input.Blur()
		v.errMsg = ""
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v DetailView) handleDeleteConfirm(msg tea.KeyMsg) (DetailView, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = DetailModeNormal
		t, _ := v.detail.Task()
		return v, v.remove(t.Title)
	case "n", "N", "esc":
		v.mode = DetailModeNormal
	}
	return v, nil
}

// View renders the task and its activity log
func (v DetailView) View() string {
	styles := theme.Current.Styles
	th := theme.Current.Theme

	t, ok := v.detail.Task()
	if !ok {
		switch {
		case v.detail.Loading():
			return v.spinner.View() + " Loading task..."
		case v.detail.Err() != nil:
			return styles.Error.Render("Failed to load task: "+tasks.Message(v.detail.Err())) +
				"\n\n" + styles.Label.Render("Press 'r' to retry or esc to go back.")
		default:
			return styles.Label.Render("No task selected.")
		}
	}

	var b strings.Builder

	if v.mode == DetailModeEdit {
		b.WriteString(styles.InputFocused.Render(v.input.View()))
	} else {
		b.WriteString(styles.Title.Render(t.Title))
	}
	b.WriteString("\n")

	badge := styles.Badge.Background(th.StatusColor(t.Completed)).Render(t.Status())
	b.WriteString(badge)
	b.WriteString("\n\n")

	b.WriteString(styles.Label.Render("Created  "))
	b.WriteString(t.CreatedAt.Local().Format(timeLayout))
	b.WriteString("\n")
	b.WriteString(styles.Label.Render("Updated  "))
	b.WriteString(t.UpdatedAt.Local().Format(timeLayout))
	b.WriteString("\n\n")

	if v.mode == DetailModeConfirmDelete {
		confirmStyle := lipgloss.NewStyle().Foreground(th.Warning).Bold(true)
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", t.Title)))
		b.WriteString("\n\n")
	}

	switch {
	case v.errMsg != "":
		b.WriteString(styles.Error.Render(v.errMsg))
		b.WriteString("\n\n")
	case v.statusMsg != "":
		b.WriteString(styles.Status.Render(v.statusMsg))
		b.WriteString("\n\n")
	}

	b.WriteString(v.renderActivity())
	return b.String()
}

func (v DetailView) renderActivity() string {
	styles := theme.Current.Styles

	var b strings.Builder
	b.WriteString(styles.PanelTitle.Render("Activity"))
	b.WriteString("\n")

	entries := v.detail.Activity()
	if len(entries) == 0 {
		b.WriteString(styles.Label.Render("No activity recorded."))
	}
	for _, e := range entries {
		line := e.Timestamp.Local().Format(timeLayout) + "  " + e.Action.Label()
		if change := e.Change(); change != "" {
			line += ": " + change
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	panel := styles.Panel
	if v.width > 0 {
		panel = panel.Width(v.width - 4)
	}
	return panel.Render(b.String())
}
