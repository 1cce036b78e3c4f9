package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

func (r *runner) listCmd() *cobra.Command {
	var (
		page int
		all  bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, one page at a time",
		Args:    cobra.NoArgs,
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			if err := a.Tasks.FetchAll(cmd.Context()); err != nil {
				return fmt.Errorf("failed to load tasks: %s", tasks.Message(err))
			}

			out := cmd.OutOrStdout()
			if a.Tasks.Len() == 0 {
				fmt.Fprintln(out, "No tasks yet. Add one with 'taskdeck add <title>'.")
				return nil
			}
			if all {
				renderTasks(out, a.Tasks.All(), 0)
				fmt.Fprintf(out, "%d tasks\n", a.Tasks.Len())
				return nil
			}

			a.Tasks.GoToPage(page)
			rows := a.Tasks.Page()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No tasks on page %d (%d pages)\n", a.Tasks.CurrentPage(), a.Tasks.TotalPages())
				return nil
			}
			renderTasks(out, rows, (a.Tasks.CurrentPage()-1)*tasks.PageSize)
			fmt.Fprintf(out, "Page %d of %d (%d tasks)\n", a.Tasks.CurrentPage(), a.Tasks.TotalPages(), a.Tasks.Len())
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&all, "all", false, "show every task")
	return cmd
}

func renderTasks(w io.Writer, list []model.Task, offset int) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "STATUS", "TITLE", "UPDATED")
	for i, task := range list {
		t.Row(
			strconv.Itoa(offset+i+1),
			task.ID,
			task.Status(),
			task.Title,
			task.UpdatedAt.Local().Format(timeLayout),
		)
	}
	fmt.Fprintln(w, t.Render())
}

func (r *runner) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			t, err := a.Tasks.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("failed to add task: %s", tasks.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created: %s (%s)\n", t.Title, t.ID)
			return nil
		}),
	}
}

func (r *runner) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task and its activity log",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			if err := a.Detail.Load(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to load task: %s", tasks.Message(err))
			}
			t, _ := a.Detail.Task()
			printDetail(cmd.OutOrStdout(), t, a.Detail.Activity())
			return nil
		}),
	}
}

func printDetail(w io.Writer, t model.Task, activity []model.ActivityLogEntry) {
	fmt.Fprintf(w, "%s\n", t.Title)
	fmt.Fprintf(w, "  ID:      %s\n", t.ID)
	fmt.Fprintf(w, "  Status:  %s\n", t.Status())
	fmt.Fprintf(w, "  Created: %s\n", t.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "  Updated: %s\n", t.UpdatedAt.Local().Format(timeLayout))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Activity:")
	if len(activity) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, e := range activity {
		line := fmt.Sprintf("  %s  %s", e.Timestamp.Local().Format(timeLayout), e.Action.Label())
		if change := e.Change(); change != "" {
			line += ": " + change
		}
		fmt.Fprintln(w, line)
	}
}

func (r *runner) editCmd() *cobra.Command {
	var (
		title   string
		done    bool
		pending bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or status",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			var update model.TaskUpdate
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			switch {
			case done && pending:
				return errors.New("--done and --pending are mutually exclusive")
			case done:
				update.Completed = &done
			case pending:
				completed := false
				update.Completed = &completed
			}
			if update.IsEmpty() {
				return errors.New("nothing to change; pass --title, --done or --pending")
			}

			ctx := cmd.Context()
			if err := a.Detail.Load(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to load task: %s", tasks.Message(err))
			}
			before, _ := a.Detail.Task()
			after, err := a.Detail.Edit(ctx, update)
			if err != nil {
				return fmt.Errorf("failed to update task: %s", tasks.Message(err))
			}

			out := cmd.OutOrStdout()
			if after.UpdatedAt.Equal(before.UpdatedAt) {
				fmt.Fprintln(out, "Nothing changed")
				return nil
			}
			fmt.Fprintf(out, "Updated: %s [%s]\n", after.Title, after.Status())
			notifyCompleted(a, before, after)
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().BoolVar(&done, "done", false, "mark completed")
	cmd.Flags().BoolVar(&pending, "pending", false, "mark pending")
	return cmd
}

func (r *runner) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			t, err := a.Tasks.Complete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to complete task: %s", tasks.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed: %s\n", t.Title)
			notifyCompleted(a, model.Task{}, t)
			return nil
		}),
	}
}

func (r *runner) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			if err := a.Tasks.Remove(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete task: %s", tasks.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func (r *runner) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts",
		Args:  cobra.NoArgs,
		RunE: r.authed(func(cmd *cobra.Command, args []string, a *app.App) error {
			st, err := a.Stats.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load stats: %s", tasks.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %d  Completed: %d  Pending: %d  (%d%% done)\n",
				st.Total, st.Completed, st.Pending, st.Percent())
			return nil
		}),
	}
}

func notifyCompleted(a *app.App, before, after model.Task) {
	if before.Completed || !after.Completed {
		return
	}
	if err := a.Notifier.SendTaskCompleted(after.Title); err != nil {
		a.Logger.Debug("notification failed", "err", err)
	}
}
