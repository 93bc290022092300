package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aristath/questloop/internal/events"
	"github.com/aristath/questloop/internal/persistence"
	"github.com/aristath/questloop/internal/scheduler"
)

// FirstStartKey is the settings key holding the game time (unix ms) at which
// the first run of the day started.
const FirstStartKey = "_questloop_first_start"

// Budget is the consumable resource a run spends. It is read-only to the
// runner and re-checked every tick.
type Budget interface {
	Remaining() int
	Used() int
}

// Observer refreshes the view of the world that task predicates read.
type Observer interface {
	Refresh(ctx context.Context) error
}

// Bank parks surplus resources for the duration of a run.
type Bank interface {
	Deposit(ctx context.Context) error
	Withdraw(ctx context.Context) error
}

// Phase names the step of the tick that picked a task.
type Phase string

const (
	PhasePriority Phase = "priority"
	PhaseWanderer Phase = "wanderer"
	PhaseDefault  Phase = "default"
	PhaseFinalize Phase = "finalize"
)

// RunnerConfig configures a Runner. Goal and Budget are required.
type RunnerConfig struct {
	Goal      func() bool
	Budget    Budget
	Sources   func() []scheduler.EventSource // Wanderer sources, read every tick
	Outfitter scheduler.Outfitter           // Equipment compatibility for wanderer pairing
	Observer  Observer                      // Optional
	Bank      Bank                          // Optional
	Finalizer func(ctx context.Context) error
	Settings  persistence.SettingsStore // Optional; persists the first-run timestamp
	Clock     func() time.Time          // Game clock (default time.Now)
	Publisher scheduler.Publisher
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Summary describes a finished run.
type Summary struct {
	AlreadyComplete bool
	Used            int
	Remaining       int
	Ticks           int
	Executions      map[Phase]int
	Elapsed         time.Duration // Since the first run of the day started
	FirstRun        bool          // This run recorded the first-run timestamp
}

// Runner drives the engine until the goal holds, the budget runs out, or no
// task is available.
type Runner struct {
	engine *scheduler.Engine
	cfg    RunnerConfig
}

// NewRunner creates a runner over an engine.
func NewRunner(engine *scheduler.Engine, cfg RunnerConfig) (*Runner, error) {
	if engine == nil {
		return nil, errors.New("runner requires an engine")
	}
	if cfg.Goal == nil {
		return nil, errors.New("runner requires a goal predicate")
	}
	if cfg.Budget == nil {
		return nil, errors.New("runner requires a budget")
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/aristath/questloop/internal/orchestrator")
	}
	return &Runner{engine: engine, cfg: cfg}, nil
}

// Run executes the main loop. Each tick runs exactly one task: a priority
// task if one is available, otherwise a delay-burning task paired with a
// guaranteed wanderer, otherwise the first available task on the route.
//
// Banked surplus is withdrawn after finalization and before the goal is
// checked. Run returns a *scheduler.StallError when the loop ends without the
// goal holding. Engine errors (hard limits, action failures) end the run
// immediately and are returned unchanged.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	ctx, span := r.cfg.Tracer.Start(ctx, "orchestrator.Run", trace.WithAttributes(
		attribute.Int("route.tasks", r.engine.Route().Len()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := r.cfg.Logger
	summary.Executions = make(map[Phase]int)

	if err := r.refresh(ctx); err != nil {
		return summary, err
	}
	if r.cfg.Goal() {
		log.Info("run already complete")
		summary.AlreadyComplete = true
		summary.Used = r.cfg.Budget.Used()
		summary.Remaining = r.cfg.Budget.Remaining()
		return summary, nil
	}

	firstStart, firstRun, err := r.markFirstStart(ctx)
	if err != nil {
		return summary, err
	}
	summary.FirstRun = firstRun

	banked := false
	if r.cfg.Bank != nil {
		if err := r.cfg.Bank.Deposit(ctx); err != nil {
			return summary, fmt.Errorf("failed to bank surplus: %w", err)
		}
		banked = true
		// Early returns still give the surplus back.
		defer func() {
			if !banked {
				return
			}
			if werr := r.withdraw(ctx); werr != nil {
				log.Error("failed to withdraw banked surplus", "error", werr)
			}
		}()
	}

	defer func() {
		summary.Used = r.cfg.Budget.Used()
		summary.Remaining = r.cfg.Budget.Remaining()
		summary.Elapsed = r.cfg.Clock().Sub(firstStart)
		r.publish(events.RunFinishedEvent{
			Success:   err == nil,
			Err:       err,
			Used:      summary.Used,
			Remaining: summary.Remaining,
			Elapsed:   summary.Elapsed,
			Timestamp: time.Now(),
		})
	}()

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.refresh(ctx); err != nil {
			return summary, err
		}
		if r.cfg.Budget.Remaining() <= 0 {
			log.Info("out of adventures", "used", r.cfg.Budget.Used())
			break
		}

		r.publishProgress(summary.Ticks)

		task, ev, phase := r.next()
		if task == nil {
			log.Warn("no available task", "remaining", r.cfg.Budget.Remaining())
			break
		}

		summary.Ticks++
		summary.Executions[phase]++
		if err := r.engine.Execute(ctx, task, ev); err != nil {
			return summary, err
		}
	}

	if err := r.finalize(ctx, &summary); err != nil {
		return summary, err
	}

	if banked {
		banked = false
		if err := r.withdraw(ctx); err != nil {
			return summary, fmt.Errorf("failed to withdraw banked surplus: %w", err)
		}
		if err := r.refresh(ctx); err != nil {
			return summary, err
		}
	}

	if !r.cfg.Goal() {
		remaining := r.engine.Route().Incomplete()
		names := make([]string, len(remaining))
		for i, task := range remaining {
			names[i] = task.Name
		}
		log.Error("run is not complete", "remaining_tasks", len(names))
		for _, name := range names {
			log.Error("remaining task", "task", name)
		}
		return summary, &scheduler.StallError{Remaining: names, Budget: r.cfg.Budget.Remaining()}
	}

	log.Info("run complete",
		"used", r.cfg.Budget.Used(),
		"remaining", r.cfg.Budget.Remaining(),
		"elapsed", r.cfg.Clock().Sub(firstStart).Round(time.Second),
		"first_run", firstRun)
	return summary, nil
}

// next picks the task for this tick, and the wanderer to fold into it.
func (r *Runner) next() (*scheduler.Task, scheduler.EventSource, Phase) {
	route := r.engine.Route()

	for i := 0; i < route.Len(); i++ {
		task := route.At(i)
		if task.HasPriority() && r.candidate(task) {
			return task, nil, PhasePriority
		}
	}

	if r.cfg.Sources != nil {
		pairing, ok := scheduler.SelectPairing(r.cfg.Sources(), route.Tasks(), r.engine.HasDelay, scheduler.CanEquipWith(r.cfg.Outfitter))
		if ok {
			r.cfg.Logger.Info("pairing wanderer", "task", pairing.Task.Name, "source", pairing.Source.Name())
			r.publish(events.WandererPairedEvent{
				ID:        pairing.Task.Name,
				Source:    pairing.Source.Name(),
				Timestamp: time.Now(),
			})
			return pairing.Task, pairing.Source, PhaseWanderer
		}
	}

	for i := 0; i < route.Len(); i++ {
		task := route.At(i)
		if r.candidate(task) {
			return task, nil, PhaseDefault
		}
	}
	return nil, nil, ""
}

// candidate reports whether the task may be picked this tick. Tasks that hit
// their soft limit are left for the stall report.
func (r *Runner) candidate(task *scheduler.Task) bool {
	return r.engine.Available(task) && !r.engine.SoftExhausted(task)
}

// finalize runs the free boss tasks that can still be done with no budget
// left, then the finalizer hook.
func (r *Runner) finalize(ctx context.Context, summary *Summary) error {
	route := r.engine.Route()
	for i := 0; i < route.Len(); i++ {
		task := route.At(i)
		if !task.Boss || !task.FreeAction || !r.candidate(task) {
			continue
		}
		summary.Executions[PhaseFinalize]++
		if err := r.engine.Execute(ctx, task, nil); err != nil {
			return err
		}
		if err := r.refresh(ctx); err != nil {
			return err
		}
	}

	if r.cfg.Finalizer != nil {
		if err := r.cfg.Finalizer(ctx); err != nil {
			return fmt.Errorf("finalizer failed: %w", err)
		}
		if err := r.refresh(ctx); err != nil {
			return err
		}
	}
	return nil
}

// markFirstStart records the first-run timestamp if none is stored yet and
// returns it.
func (r *Runner) markFirstStart(ctx context.Context) (time.Time, bool, error) {
	now := r.cfg.Clock()
	if r.cfg.Settings == nil {
		return now, true, nil
	}

	stored, err := persistence.GetInt(ctx, r.cfg.Settings, FirstStartKey, -1)
	if err != nil {
		return now, false, fmt.Errorf("failed to read first start: %w", err)
	}
	if stored != -1 {
		return time.UnixMilli(stored), false, nil
	}

	if err := persistence.SetInt(ctx, r.cfg.Settings, FirstStartKey, now.UnixMilli()); err != nil {
		return now, false, fmt.Errorf("failed to record first start: %w", err)
	}
	return now, true, nil
}

func (r *Runner) withdraw(ctx context.Context) error {
	return r.cfg.Bank.Withdraw(context.WithoutCancel(ctx))
}

func (r *Runner) refresh(ctx context.Context) error {
	if r.cfg.Observer == nil {
		return nil
	}
	if err := r.cfg.Observer.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh state: %w", err)
	}
	return nil
}

func (r *Runner) publishProgress(tick int) {
	if r.cfg.Publisher == nil {
		return
	}
	route := r.engine.Route()
	completed, available := 0, 0
	for i := 0; i < route.Len(); i++ {
		task := route.At(i)
		if task.IsCompleted() {
			completed++
		} else if r.candidate(task) {
			available++
		}
	}
	r.publish(events.RouteProgressEvent{
		Total:     route.Len(),
		Completed: completed,
		Available: available,
		Remaining: r.cfg.Budget.Remaining(),
		Used:      r.cfg.Budget.Used(),
		Tick:      tick,
		Timestamp: time.Now(),
	})
}

func (r *Runner) publish(event events.Event) {
	if r.cfg.Publisher != nil {
		r.cfg.Publisher.Publish(event)
	}
}
