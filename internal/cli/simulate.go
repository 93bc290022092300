package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aristath/questloop/internal/persistence"
	"github.com/aristath/questloop/internal/sim"
)

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Run the scheduler against a simulated world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			sc, err := sim.Load(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openSimStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			res, runErr := sim.Run(ctx, sc, sim.Options{
				Journal:  store,
				Settings: store,
				Logger:   logger,
			})
			RenderSimulation(cmd.OutOrStdout(), res, runErr)
			return runErr
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "journal the simulated run to this SQLite file (default in-memory)")
	return cmd
}

func openSimStore(ctx context.Context, path string) (*persistence.SQLiteStore, error) {
	if path == "" {
		return persistence.NewMemoryStore(ctx)
	}
	return persistence.NewSQLiteStore(ctx, path)
}

