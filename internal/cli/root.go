// Package cli is the taskdeck command tree. With no subcommand it starts the
// terminal UI; the subcommands are one-shot equivalents of its actions.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/config"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/ui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errNotLoggedIn = errors.New("not logged in; run 'taskdeck login' first")

type runner struct {
	v       *viper.Viper
	cfgFile string
	tui     func(*app.App) error
}

// Execute runs the root command
func Execute(version string) error {
	root := newRootCmd(version, ui.Run)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newRootCmd(version string, tui func(*app.App) error) *cobra.Command {
	r := &runner{v: config.NewViper(), tui: tui}

	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "taskdeck - a terminal client for your task list",
		Long: `taskdeck talks to a task API: log in once, then list, add, edit,
complete and delete tasks from the terminal UI or from one-shot commands.`,
		RunE:          r.runTUI, // Default action is the TUI
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&r.cfgFile, "config", "", "config file (default ~/.config/taskdeck/config.yaml)")
	pf.String("api-url", "", "task API root URL")
	pf.String("data-dir", "", "directory for the session store and logs")
	pf.Bool("debug", false, "write a debug log to <data-dir>/taskdeck.log")
	root.Flags().String("theme", "", "color theme (nord, gruvbox)")

	_ = r.v.BindPFlag(config.KeyAPIURL, pf.Lookup("api-url"))
	_ = r.v.BindPFlag(config.KeyDataDir, pf.Lookup("data-dir"))
	_ = r.v.BindPFlag(config.KeyDebug, pf.Lookup("debug"))
	_ = r.v.BindPFlag(config.KeyTheme, root.Flags().Lookup("theme"))

	root.AddCommand(
		r.loginCmd(),
		r.logoutCmd(),
		r.statusCmd(),
		r.listCmd(),
		r.addCmd(),
		r.showCmd(),
		r.editCmd(),
		r.doneCmd(),
		r.rmCmd(),
		r.statsCmd(),
		r.configCmd(),
		versionCmd(version),
	)
	return root
}

func (r *runner) open(lock bool) (*app.App, error) {
	cfg, err := config.Load(r.v, r.cfgFile)
	if err != nil {
		return nil, err
	}
	var opts []app.Option
	if !lock {
		opts = append(opts, app.WithoutLock())
	}
	return app.New(cfg, opts...)
}

func (r *runner) runTUI(cmd *cobra.Command, args []string) error {
	a, err := r.open(true)
	if err != nil {
		return err
	}
	defer a.Close()
	return r.tui(a)
}

// oneShot opens the app without the instance lock for a single command
func (r *runner) oneShot(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := r.open(false)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// authed is oneShot for commands that need a session
func (r *runner) authed(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return r.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
		if !a.Guard.Allowed(guard.RouteTasks) {
			return errNotLoggedIn
		}
		return fn(cmd, args, a)
	})
}

func versionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "taskdeck %s\n", version)
		},
	}
}
