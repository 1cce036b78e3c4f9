package cli

import (
	"fmt"

	"github.com/dori/taskdeck/internal/config"
	"github.com/spf13/cobra"
)

func (r *runner) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage taskdeck configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := r.configPath()
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(r.v, r.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Merged configuration (%s + environment + flags)\n", r.configPath())
			fmt.Fprint(out, string(data))
			return nil
		},
	})

	return cmd
}

func (r *runner) configPath() string {
	if r.cfgFile != "" {
		return r.cfgFile
	}
	return config.DefaultPath()
}
