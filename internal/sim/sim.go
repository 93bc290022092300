package sim

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/aristath/questloop/internal/orchestrator"
	"github.com/aristath/questloop/internal/persistence"
	"github.com/aristath/questloop/internal/scheduler"
)

// Options wires optional collaborators into a simulated run.
type Options struct {
	Publisher scheduler.Publisher
	Journal   scheduler.Journal
	Settings  persistence.SettingsStore
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Result is the outcome of a simulated run.
type Result struct {
	Summary  orchestrator.Summary
	Order    []string       // Task names in execution order
	Pairings []string       // "task+source" for every wanderer pairing
	Attempts map[string]int // Attempts per task
	Route    []string       // Prioritized task order
}

// Run compiles the scenario and drives it to completion. The returned error
// is whatever the runner returned: nil on success, a *scheduler.StallError
// when the goal was not reached, or an engine error.
func Run(ctx context.Context, sc *Scenario, opts Options) (Result, error) {
	if err := sc.Validate(); err != nil {
		return Result{}, err
	}

	w := newWorld(sc)
	tasks := make([]*scheduler.Task, len(sc.Tasks))
	byName := make(map[string]*scheduler.Task, len(sc.Tasks))
	for i, spec := range sc.Tasks {
		tasks[i] = w.compile(spec)
		byName[spec.Name] = tasks[i]
	}

	route, err := scheduler.Prioritize(tasks)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	engineOpts := []scheduler.EngineOption{
		scheduler.WithOutfitter(w),
		scheduler.WithClock(w.Now),
	}
	if opts.Publisher != nil {
		engineOpts = append(engineOpts, scheduler.WithPublisher(opts.Publisher))
	}
	if opts.Journal != nil {
		engineOpts = append(engineOpts, scheduler.WithJournal(opts.Journal))
	}
	if opts.Logger != nil {
		engineOpts = append(engineOpts, scheduler.WithLogger(opts.Logger))
	}
	if opts.Tracer != nil {
		engineOpts = append(engineOpts, scheduler.WithTracer(opts.Tracer))
	}
	engine := scheduler.NewEngine(route, engineOpts...)

	goal := tasks
	if len(sc.Goal) > 0 {
		goal = make([]*scheduler.Task, len(sc.Goal))
		for i, name := range sc.Goal {
			goal[i] = byName[name]
		}
	}

	runner, err := orchestrator.NewRunner(engine, orchestrator.RunnerConfig{
		Goal: func() bool {
			for _, task := range goal {
				if !task.IsCompleted() {
					return false
				}
			}
			return true
		},
		Budget:    w,
		Sources:   w.Sources,
		Outfitter: w,
		Settings:  opts.Settings,
		Clock:     w.Now,
		Publisher: opts.Publisher,
		Logger:    opts.Logger,
		Tracer:    opts.Tracer,
	})
	if err != nil {
		return Result{}, err
	}

	summary, runErr := runner.Run(ctx)

	res := Result{
		Summary:  summary,
		Order:    w.order,
		Pairings: w.pairings,
		Attempts: make(map[string]int, len(tasks)),
		Route:    route.Names(),
	}
	for _, task := range tasks {
		res.Attempts[task.Name] = engine.Attempts(task)
	}
	return res, runErr
}
