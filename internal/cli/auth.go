package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/dori/taskdeck/internal/app"
	"github.com/dori/taskdeck/internal/guard"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/tasks"
	"github.com/spf13/cobra"
)

func (r *runner) loginCmd() *cobra.Command {
	var creds model.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: r.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			out := cmd.OutOrStdout()
			if a.Guard.Resolve(guard.RouteLogin) != guard.RouteLogin {
				fmt.Fprintln(out, "Already logged in. Run 'taskdeck logout' to switch accounts.")
				return nil
			}

			stdin := cmd.InOrStdin()
			in := bufio.NewReader(stdin)
			var err error
			if creds.Username == "" {
				if creds.Username, err = prompt(out, in, "Username: "); err != nil {
					return err
				}
			}
			if creds.Password == "" {
				if creds.Password, err = promptPassword(out, stdin, in, "Password: "); err != nil {
					return err
				}
			}

			if err := a.Session.Login(cmd.Context(), creds); err != nil {
				return fmt.Errorf("login failed: %s", tasks.Message(err))
			}
			fmt.Fprintf(out, "Logged in as %s\n", creds.Username)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&creds.Username, "username", "u", "", "username (prompted when empty)")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "password (prompted when empty)")
	return cmd
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword reads without echo when stdin is a terminal and falls back
// to a plain line read for piped input.
func promptPassword(out io.Writer, stdin io.Reader, in *bufio.Reader, label string) (string, error) {
	f, ok := stdin.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return prompt(out, in, label)
	}
	fmt.Fprint(out, label)
	pw, err := term.ReadPassword(f.Fd())
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func (r *runner) logoutCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: r.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			if err := a.Session.Logout(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !purge {
				fmt.Fprintln(out, "Logged out")
				return nil
			}

			keys, err := a.DB.Keys()
			if err != nil {
				return fmt.Errorf("failed to list stored keys: %w", err)
			}
			if err := a.DB.Reset(); err != nil {
				return fmt.Errorf("failed to clear local store: %w", err)
			}
			fmt.Fprintf(out, "Logged out and cleared %d stored keys\n", len(keys))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also clear everything in the local store")
	return cmd
}

func (r *runner) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the API and session state",
		Args:  cobra.NoArgs,
		RunE: r.oneShot(func(cmd *cobra.Command, args []string, a *app.App) error {
			state := "logged out"
			if a.Session.IsAuthenticated() {
				state = "logged in"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "API:      %s\n", a.Client.BaseURL())
			fmt.Fprintf(out, "Session:  %s\n", state)
			fmt.Fprintf(out, "Data dir: %s\n", a.DataDir)
			return nil
		}),
	}
}
