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

// TasksMode is the input mode of the tasks view
type TasksMode int

const (
	TasksModeNormal TasksMode = iota
	TasksModeAdd
	TasksModeConfirmDelete
)

// TasksView shows the paginated task list with a stats summary
type TasksView struct {
	col      *tasks.Collection
	stats    *tasks.Stats
	notifier *notify.Notifier
	logger   *slog.Logger
	width    int
	height   int

	cursor    int // index within the current page
	mode      TasksMode
	input     textinput.Model
	spinner   spinner.Model
	deleting  model.Task
	statusMsg string
	errMsg    string
}

// NewTasksView creates the task list view
func NewTasksView(col *tasks.Collection, stats *tasks.Stats, notifier *notify.Notifier, logger *slog.Logger) TasksView {
	ti := textinput.New()
	ti.Placeholder = "New task..."
	ti.CharLimit = 256

	s := spinner.New()
	s.Spinner = spinner.Dot

	return TasksView{
		col:      col,
		stats:    stats,
		notifier: notifier,
		logger:   logger,
		input:    ti,
		spinner:  s,
	}
}

// Init fetches the list and stats
func (v TasksView) Init() tea.Cmd {
	return tea.Batch(v.fetch(), v.refreshStats(), v.spinner.Tick)
}

// IsInputMode returns true when the view is capturing text input
func (v TasksView) IsInputMode() bool {
	return v.mode != TasksModeNormal
}

// SetStatus shows a one-line status message
func (v TasksView) SetStatus(msg string) TasksView {
	v.statusMsg = msg
	return v
}

// SetSize updates the view dimensions
func (v TasksView) SetSize(width, height int) TasksView {
	v.width = width
	v.height = height
	v.input.Width = width - 4
	return v
}

func (v TasksView) fetch() tea.Cmd {
	col := v.col
	return func() tea.Msg {
		return tasksFetchedMsg{err: col.FetchAll(context.Background())}
	}
}

func (v TasksView) refreshStats() tea.Cmd {
	stats := v.stats
	return func() tea.Msg {
		_, err := stats.Refresh(context.Background())
		return statsRefreshedMsg{err: err}
	}
}

func (v TasksView) add(title string) tea.Cmd {
	col := v.col
	return func() tea.Msg {
		t, err := col.Add(context.Background(), title)
		return taskAddedMsg{task: t, err: err}
	}
}

func (v TasksView) toggle(t model.Task) tea.Cmd {
	col := v.col
	return func() tea.Msg {
		after, err := col.Toggle(context.Background(), t.ID)
		return taskChangedMsg{before: t, after: after, err: err}
	}
}

func (v TasksView) complete(t model.Task) tea.Cmd {
	col := v.col
	return func() tea.Msg {
		after, err := col.Complete(context.Background(), t.ID)
		return taskChangedMsg{before: t, after: after, err: err}
	}
}

func (v TasksView) remove(t model.Task) tea.Cmd {
	col := v.col
	return func() tea.Msg {
		return taskRemovedMsg{task: t, err: col.Remove(context.Background(), t.ID)}
	}
}

// Update handles messages for the tasks view
func (v TasksView) Update(msg tea.Msg) (TasksView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tasksFetchedMsg:
		if errors.Is(msg.err, tasks.ErrStale) {
			return v, nil
		}
		v.clampCursor()
		return v, nil

	case statsRefreshedMsg:
		if msg.err != nil && !errors.Is(msg.err, tasks.ErrStale) {
			v.logger.Debug("stats refresh failed", "err", msg.err)
		}
		return v, nil

	case taskAddedMsg:
		if msg.err != nil {
			v.errMsg = "Failed to add task: " + tasks.Message(msg.err)
			return v, nil
		}
		v.col.GoToPage(v.col.TotalPages())
		v.cursor = len(v.col.Page()) - 1
		v.statusMsg = fmt.Sprintf("Added %q", msg.task.Title)
		return v, v.refreshStats()

	case taskChangedMsg:
		if msg.err != nil {
			v.errMsg = actionError("update", msg.err)
			return v, nil
		}
		if !msg.before.Completed && msg.after.Completed {
			if err := v.notifier.SendTaskCompleted(msg.after.Title); err != nil {
				v.logger.Debug("notification failed", "err", err)
			}
		}
		return v, v.refreshStats()

	case taskRemovedMsg:
		if msg.err != nil {
			v.errMsg = actionError("delete", msg.err)
			return v, nil
		}
		v.clampCursor()
		v.statusMsg = fmt.Sprintf("Deleted %q", msg.task.Title)
		return v, v.refreshStats()

	case tea.KeyMsg:
		switch v.mode {
		case TasksModeAdd:
			return v.handleAddMode(msg)
		case TasksModeConfirmDelete:
			return v.handleDeleteConfirm(msg)
		default:
			return v.handleNormalMode(msg)
		}
	}

	if v.mode == TasksModeAdd {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func actionError(action string, err error) string {
	if errors.Is(err, tasks.ErrBusy) {
		return "Still saving the previous change to this task"
	}
	return fmt.Sprintf("Failed to %s task: %s", action, tasks.Message(err))
}

func (v TasksView) selected() (model.Task, bool) {
	page := v.col.Page()
	if v.cursor < 0 || v.cursor >= len(page) {
		return model.Task{}, false
	}
	return page[v.cursor], true
}

func (v *TasksView) clampCursor() {
	n := len(v.col.Page())
	if v.cursor >= n {
		v.cursor = n - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

// handleNormalMode handles keypresses in normal mode
func (v TasksView) handleNormalMode(msg tea.KeyMsg) (TasksView, tea.Cmd) {
	v.statusMsg = ""
	v.errMsg = ""

	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
	case "down", "j":
		if v.cursor < len(v.col.Page())-1 {
			v.cursor++
		}
	case "left", "h", "pgup":
		v.col.PrevPage()
		v.cursor = 0
	case "right", "l", "pgdown":
		v.col.NextPage()
		v.cursor = 0
	case "a":
		v.mode = TasksModeAdd
		v.input.Reset()
		v.input.Focus()
		return v, textinput.Blink
	case "enter":
		if t, ok := v.selected(); ok {
			return v, func() tea.Msg {
				return NavigateMsg{Route: guard.RouteTaskDetail, TaskID: t.ID}
			}
		}
	case "tab", " ":
		if t, ok := v.selected(); ok {
			return v, v.toggle(t)
		}
	case "c":
		if t, ok := v.selected(); ok && !t.Completed {
			return v, v.complete(t)
		}
	case "d":
		if t, ok := v.selected(); ok {
			v.deleting = t
			v.mode = TasksModeConfirmDelete
		}
	case "r":
		return v, tea.Batch(v.fetch(), v.refreshStats())
	}
	return v, nil
}

func (v TasksView) handleAddMode(msg tea.KeyMsg) (TasksView, tea.Cmd) {
	switch msg.String() {
	case "enter":
		title := strings.TrimSpace(v.input.Value())
		if title == "" {
			v.errMsg = "Title must not be empty"
			return v, nil
		}
		v.mode = TasksModeNormal
		v.input.Blur()
		v.errMsg = ""
		return v, v.add(title)
	case "esc":
		v.mode = TasksModeNormal
		v.input.Blur()
		v.errMsg = ""
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v TasksView) handleDeleteConfirm(msg tea.KeyMsg) (TasksView, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.mode = TasksModeNormal
		t := v.deleting
		v.deleting = model.Task{}
		return v, v.remove(t)
	case "n", "N", "esc":
		v.mode = TasksModeNormal
		v.deleting = model.Task{}
	}
	return v, nil
}

// View renders the task list
func (v TasksView) View() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder

	b.WriteString(v.renderSummary())
	b.WriteString("\n\n")

	if v.mode == TasksModeAdd {
		b.WriteString(styles.InputFocused.Render(v.input.View()))
		b.WriteString("\n\n")
	}

	if v.mode == TasksModeConfirmDelete {
		confirmStyle := lipgloss.NewStyle().
			Foreground(t.Warning).
			Bold(true)
		b.WriteString(confirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", v.deleting.Title)))
		b.WriteString("\n\n")
	}

	if v.errMsg != "" {
		b.WriteString(styles.Error.Render(v.errMsg))
		b.WriteString("\n\n")
	} else if v.statusMsg != "" {
		b.WriteString(styles.Status.Render(v.statusMsg))
		b.WriteString("\n\n")
	}

	emptyStyle := lipgloss.NewStyle().
		Foreground(t.Subtle).
		Italic(true).
		Padding(1, 0)

	switch {
	case v.col.Len() == 0 && v.col.Loading():
		b.WriteString(v.spinner.View() + " Loading tasks...")
	case v.col.Len() == 0 && v.col.Err() != nil:
		b.WriteString(styles.Error.Render("Failed to load tasks: " + tasks.Message(v.col.Err())))
		b.WriteString("\n")
		b.WriteString(emptyStyle.Render("Press 'r' to retry."))
	case v.col.Len() == 0:
		b.WriteString(emptyStyle.Render("No tasks. Press 'a' to add one."))
	default:
		if err := v.col.Err(); err != nil {
			b.WriteString(styles.Error.Render("Refresh failed: " + tasks.Message(err)))
			b.WriteString("\n")
		}
		b.WriteString(v.renderPage())
	}

	return b.String()
}

func (v TasksView) renderSummary() string {
	styles := theme.Current.Styles
	snap, ok := v.stats.Snapshot()
	if !ok {
		return styles.Label.Render(fmt.Sprintf("%d tasks", v.col.Len()))
	}
	return styles.Label.Render(fmt.Sprintf("%d tasks · %d completed · %d pending · %d%% done",
		snap.Total, snap.Completed, snap.Pending, snap.Percent()))
}

func (v TasksView) renderPage() string {
	styles := theme.Current.Styles
	t := theme.Current.Theme

	var b strings.Builder
	for i, task := range v.col.Page() {
		check := "[ ]"
		if task.Completed {
			check = "[x]"
		}
		line := check + " " + task.Title
		if v.col.Busy(task.ID) {
			line += " " + v.spinner.View()
		}

		var style lipgloss.Style
		switch {
		case i == v.cursor:
			style = styles.TaskSelected
		case task.Completed:
			style = styles.TaskDone
		default:
			style = styles.TaskNormal
		}
		if v.width > 0 {
			style = style.Width(v.width - 2)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	pager := fmt.Sprintf("Page %d of %d", v.col.CurrentPage(), max(1, v.col.TotalPages()))
	prev := "  "
	if v.col.CurrentPage() > 1 {
		prev = "← "
	}
	next := "  "
	if v.col.CurrentPage() < v.col.TotalPages() {
		next = " →"
	}
	pagerStyle := lipgloss.NewStyle().Foreground(t.Subtle).MarginTop(1)
	b.WriteString(pagerStyle.Render(prev + pager + next))
	return b.String()
}
