// Package cli wires configuration, the game session, the scheduler and the
// TUI into the questloop commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aristath/questloop/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string // Project config override
	Verbose    bool
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "questloop",
		Short: "Drive a quest route to completion",
		Long: `questloop orders quest tasks by their dependencies and runs them one at a
time against the game until the run's goal holds or the adventures run out.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "project config file (default .questloop/config.json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewRouteCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// loadConfig loads the merged configuration and returns the paths the
// settings form saves to.
func loadConfig(opts *RootOptions) (cfg *config.Config, globalPath, projectPath string, err error) {
	globalPath, projectPath, err = config.DefaultPaths()
	if err != nil {
		return nil, "", "", err
	}
	if opts.ConfigPath != "" {
		projectPath = opts.ConfigPath
	}

	cfg, err = config.Load(globalPath, projectPath)
	if err != nil {
		return nil, "", "", fmt.Errorf("loading config: %w", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, globalPath, projectPath, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return config.NewLogger(cfg.Log, w)
}
