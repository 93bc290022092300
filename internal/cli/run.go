package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/questloop/internal/config"
	"github.com/aristath/questloop/internal/events"
	"github.com/aristath/questloop/internal/game"
	"github.com/aristath/questloop/internal/orchestrator"
	"github.com/aristath/questloop/internal/persistence"
	"github.com/aristath/questloop/internal/quests"
	"github.com/aristath/questloop/internal/scheduler"
	"github.com/aristath/questloop/internal/telemetry"
	"github.com/aristath/questloop/internal/tui"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	var withTUI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the quest route against the game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, globalPath, projectPath, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tui") {
				cfg.TUI = withTUI
			}
			return runGame(cmd.Context(), cfg, globalPath, projectPath, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().BoolVar(&withTUI, "tui", false, "show the live run monitor")
	return cmd
}

func runGame(ctx context.Context, cfg *config.Config, globalPath, projectPath string, stdout, stderr io.Writer) error {
	logOut := stderr
	if cfg.TUI {
		// The TUI owns the terminal, so logs go next to the state database.
		f, err := openLogFile(cfg.State.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger := newLogger(cfg, logOut)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	store, err := persistence.NewSQLiteStore(ctx, cfg.State.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	pm := game.NewProcessManager()
	stopKill := context.AfterFunc(ctx, func() {
		if err := pm.KillAll(); err != nil {
			logger.Error("failed to kill game processes", "error", err)
		}
	})
	defer stopKill()

	executor := &game.CommandExecutor{
		Path:    cfg.Game.Command,
		Args:    cfg.Game.Args,
		Dir:     cfg.Game.Dir,
		Timeout: cfg.Game.Timeout(),
		PM:      pm,
	}
	client := game.NewClient(executor,
		game.WithRetry(retryConfig(cfg.Retry)),
		game.WithBreakers(game.NewCircuitBreakerRegistry(breakerConfig(cfg.Breaker), logger)),
		game.WithClientLogger(logger),
	)
	session := game.NewSession(client,
		game.WithMeatCeiling(cfg.MeatCeiling),
		game.WithSessionLogger(logger),
	)
	outfitter := game.NewOutfitter(session)

	tasks, err := scheduler.Flatten(quests.All(session))
	if err != nil {
		return err
	}
	route, err := scheduler.Prioritize(tasks)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	engine := scheduler.NewEngine(route,
		scheduler.WithAcquirer(session),
		scheduler.WithOutfitter(outfitter),
		scheduler.WithObserver(session),
		scheduler.WithPublisher(bus),
		scheduler.WithJournal(store),
		scheduler.WithLogger(logger),
	)
	runner, err := orchestrator.NewRunner(engine, orchestrator.RunnerConfig{
		Goal:      func() bool { return quests.RunComplete(session) },
		Budget:    session,
		Sources:   session.Wanderers,
		Outfitter: outfitter,
		Observer:  session,
		Bank:      session,
		Finalizer: quests.Finalize(session),
		Settings:  store,
		Clock:     session.Now,
		Publisher: bus,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("starting run", "tasks", route.Len(), "run_id", store.RunID())

	if !cfg.TUI {
		summary, runErr := runner.Run(ctx)
		RenderSummary(stdout, summary, runErr)
		return runErr
	}

	res, err := runWithTUI(ctx, runner, tui.New(bus, cfg, globalPath, projectPath))
	if err != nil {
		return err
	}
	RenderSummary(stdout, res.summary, res.err)
	return res.err
}

type runResult struct {
	summary orchestrator.Summary
	err     error
}

// runWithTUI runs the loop and the monitor side by side. The monitor stays
// up after the run ends until the user quits; quitting early cancels the run.
func runWithTUI(ctx context.Context, runner *orchestrator.Runner, model tui.Model) (runResult, error) {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	var res runResult
	g.Go(func() error {
		res.summary, res.err = runner.Run(runCtx)
		return nil
	})
	g.Go(func() error {
		defer cancelRun()
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return res, err
}

func openLogFile(statePath string) (*os.File, error) {
	dir := filepath.Dir(statePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "questloop.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}

func retryConfig(c config.RetryConfig) game.RetryConfig {
	r := game.DefaultRetryConfig()
	if c.InitialMillis > 0 {
		r.InitialInterval = time.Duration(c.InitialMillis) * time.Millisecond
	}
	if c.MaxMillis > 0 {
		r.MaxInterval = time.Duration(c.MaxMillis) * time.Millisecond
	}
	if c.MaxElapsedMillis > 0 {
		r.MaxElapsedTime = time.Duration(c.MaxElapsedMillis) * time.Millisecond
	}
	if c.Multiplier > 0 {
		r.Multiplier = c.Multiplier
	}
	return r
}

func breakerConfig(c config.BreakerConfig) game.BreakerConfig {
	b := game.DefaultBreakerConfig()
	if c.ConsecutiveFails > 0 {
		b.ConsecutiveFails = c.ConsecutiveFails
	}
	if c.OpenSeconds > 0 {
		b.Timeout = time.Duration(c.OpenSeconds) * time.Second
	}
	if c.HalfOpenRequests > 0 {
		b.MaxRequests = c.HalfOpenRequests
	}
	return b
}
