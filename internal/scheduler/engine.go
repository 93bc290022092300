package scheduler

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
)

// Acquirer obtains items a task needs before its action runs.
type Acquirer interface {
	Acquire(ctx context.Context, item string, num int) error
}

// Outfitter owns equipment selection.
type Outfitter interface {
	// CanEquip reports whether item can be worn alongside the task's outfit.
	CanEquip(task *Task, item string) bool
	// Dress puts on the task's outfit, plus the wanderer's item when ev is set.
	Dress(ctx context.Context, task *Task, ev EventSource) error
}

// Observer re-reads the world after an action so completion is judged on
// fresh state.
type Observer interface {
	Refresh(ctx context.Context) error
}

// Publisher receives engine events.
type Publisher interface {
	Publish(event events.Event)
}

// Attempt is one journal entry written after every execution.
type Attempt struct {
	Task      string
	Number    int
	Wanderer  string
	Completed bool
	SoftLimit bool
	Err       string
	Duration  time.Duration
	At        time.Time
}

// Journal records attempts for later inspection. It is never read back into
// the engine.
type Journal interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// Engine executes tasks from a route and tracks per-task attempt counts.
// Completion is never stored: it is always re-read from the task's predicate.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	route          *Route
	attempts       []int
	softViolations []int
	executing      bool

	acquirer  Acquirer
	outfitter Outfitter
	observer  Observer
	publisher Publisher
	journal   Journal
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAcquirer sets the item acquisition collaborator.
func WithAcquirer(a Acquirer) EngineOption { return func(e *Engine) { e.acquirer = a } }

// WithOutfitter sets the equipment collaborator.
func WithOutfitter(o Outfitter) EngineOption { return func(e *Engine) { e.outfitter = o } }

// WithObserver sets the collaborator refreshed after every action.
func WithObserver(o Observer) EngineOption { return func(e *Engine) { e.observer = o } }

// WithPublisher sets where task events are sent.
func WithPublisher(p Publisher) EngineOption { return func(e *Engine) { e.publisher = p } }

// WithJournal sets the attempt journal.
func WithJournal(j Journal) EngineOption { return func(e *Engine) { e.journal = j } }

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption { return func(e *Engine) { e.logger = l } }

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) EngineOption { return func(e *Engine) { e.tracer = t } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption { return func(e *Engine) { e.now = now } }

// NewEngine creates an Engine over a prioritized route.
func NewEngine(route *Route, opts ...EngineOption) *Engine {
	e := &Engine{
		route:          route,
		attempts:       make([]int, route.Len()),
		softViolations: make([]int, route.Len()),
		logger:         slog.New(slog.DiscardHandler),
		tracer:         otel.Tracer("github.com/aristath/questloop/internal/scheduler"),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Route returns the route the engine executes.
func (e *Engine) Route() *Route {
	return e.route
}

// Available reports whether the task can run now: it is not completed, every
// dependency is completed, and it is ready. Predicates are evaluated fresh on
// every call.
func (e *Engine) Available(task *Task) bool {
	pos, ok := e.route.Position(task)
	if !ok {
		return false
	}
	if task.IsCompleted() {
		return false
	}
	for _, dep := range e.route.deps[pos] {
		if !e.route.tasks[dep].IsCompleted() {
			return false
		}
	}
	return task.IsReady()
}

// HasDelay reports whether the task is available, not set aside by its soft
// limit, and still has filler turns to burn.
func (e *Engine) HasDelay(task *Task) bool {
	return task.delayActive() && e.Available(task) && !e.SoftExhausted(task)
}

// SoftExhausted reports whether the task reached its soft limit. Such a task
// is not attempted again for the lifetime of the engine.
func (e *Engine) SoftExhausted(task *Task) bool {
	return e.SoftViolations(task) > 0
}

// Attempts returns how many times Execute was called for the task, counting
// calls that stopped at the soft limit.
func (e *Engine) Attempts(task *Task) int {
	pos, ok := e.route.Position(task)
	if !ok {
		return 0
	}
	return e.attempts[pos]
}

// SoftViolations returns how many attempts were made at or past the task's
// soft limit.
func (e *Engine) SoftViolations(task *Task) int {
	pos, ok := e.route.Position(task)
	if !ok {
		return 0
	}
	return e.softViolations[pos]
}

// Execute runs one attempt of the task, with ev folded in when non-nil.
//
// Reaching a hard limit returns a *LimitError without running the action.
// Reaching a soft limit counts the attempt, logs a warning and publishes a
// SoftLimitEvent, but skips the action; the task is SoftExhausted from then
// on. Failures from acquisition, preparation, outfit or the action itself are
// returned as *ActionError.
func (e *Engine) Execute(ctx context.Context, task *Task, ev EventSource) (err error) {
	if task == nil {
		return errors.New("cannot execute a nil task")
	}
	pos, ok := e.route.Position(task)
	if !ok {
		return fmt.Errorf("task %q is not on the route", task.Name)
	}
	if e.executing {
		return fmt.Errorf("task %q started while another task is executing", task.Name)
	}
	e.executing = true
	defer func() { e.executing = false }()

	attempts := e.attempts[pos]
	if task.Limit.Tries > 0 && attempts >= task.Limit.Tries {
		return &LimitError{
			Task:     task.Name,
			Attempts: attempts,
			Limit:    task.Limit.Tries,
			Message:  task.Limit.Message,
		}
	}

	if task.Limit.Soft > 0 && attempts >= task.Limit.Soft {
		e.attempts[pos]++
		e.softViolations[pos]++
		e.logger.Warn("task past soft attempt limit, moving on",
			"task", task.Name,
			"attempts", attempts,
			"limit", task.Limit.Soft,
			"message", task.Limit.Message)
		e.publish(events.SoftLimitEvent{
			ID:        task.Name,
			Attempts:  attempts,
			Limit:     task.Limit.Soft,
			Message:   task.Limit.Message,
			Timestamp: e.now(),
		})
		e.record(ctx, Attempt{
			Task:      task.Name,
			Number:    e.attempts[pos],
			Completed: task.IsCompleted(),
			SoftLimit: true,
			At:        e.now(),
		})
		return nil
	}

	e.attempts[pos]++
	number := e.attempts[pos]
	wanderer := ""
	if ev != nil {
		wanderer = ev.Name()
	}

	ctx, span := e.tracer.Start(ctx, "scheduler.Execute", trace.WithAttributes(
		attribute.String("task.name", task.Name),
		attribute.Int("task.attempt", number),
		attribute.String("task.wanderer", wanderer),
		attribute.Bool("task.boss", task.Boss),
	))
	defer span.End()

	e.logger.Info("executing task", "task", task.Name, "attempt", number, "wanderer", wanderer, "boss", task.Boss)
	start := e.now()
	e.publish(events.TaskStartedEvent{
		ID:        task.Name,
		Attempt:   number,
		Wanderer:  wanderer,
		Boss:      task.Boss,
		Timestamp: start,
	})

	runErr := e.run(ctx, task, ev)
	if runErr == nil && e.observer != nil {
		if err := e.observer.Refresh(ctx); err != nil {
			e.logger.Warn("failed to refresh after action", "task", task.Name, "error", err)
		}
	}
	completed := runErr == nil && task.IsCompleted()
	duration := e.now().Sub(start)

	e.record(ctx, Attempt{
		Task:      task.Name,
		Number:    number,
		Wanderer:  wanderer,
		Completed: completed,
		Err:       errorString(runErr),
		Duration:  duration,
		At:        start,
	})
	e.publish(events.TaskFinishedEvent{
		ID:        task.Name,
		Attempt:   number,
		Completed: completed,
		Err:       runErr,
		Duration:  duration,
		Timestamp: e.now(),
	})

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		return runErr
	}

	span.SetAttributes(attribute.Bool("task.completed", completed))
	if completed {
		e.logger.Info("task completed", "task", task.Name, "attempts", number)
	} else {
		e.logger.Info("task not completed", "task", task.Name, "attempts", number)
	}
	return nil
}

// run performs the preparation steps and the action itself.
func (e *Engine) run(ctx context.Context, task *Task, ev EventSource) error {
	for _, acq := range task.Acquire {
		if acq.Useful != nil && !acq.Useful() {
			continue
		}
		if e.acquirer == nil {
			return &ActionError{Task: task.Name, Step: "acquire", Err: fmt.Errorf("no acquirer configured for %q", acq.Item)}
		}
		num := acq.Num
		if num <= 0 {
			num = 1
		}
		if err := e.acquirer.Acquire(ctx, acq.Item, num); err != nil {
			return &ActionError{Task: task.Name, Step: "acquire", Err: fmt.Errorf("%s: %w", acq.Item, err)}
		}
	}

	if task.Prepare != nil {
		if err := task.Prepare(ctx); err != nil {
			return &ActionError{Task: task.Name, Step: "prepare", Err: err}
		}
	}

	if e.outfitter != nil {
		if err := e.outfitter.Dress(ctx, task, ev); err != nil {
			return &ActionError{Task: task.Name, Step: "outfit", Err: err}
		}
	}

	if task.Do == nil {
		return &ActionError{Task: task.Name, Step: "do", Err: errors.New("task has no action")}
	}
	if err := task.Do(ctx, ev); err != nil {
		return &ActionError{Task: task.Name, Step: "do", Err: err}
	}
	return nil
}

func (e *Engine) publish(event events.Event) {
	if e.publisher != nil {
		e.publisher.Publish(event)
	}
}

func (e *Engine) record(ctx context.Context, attempt Attempt) {
	if e.journal == nil {
		return
	}
	if err := e.journal.RecordAttempt(ctx, attempt); err != nil {
		e.logger.Warn("failed to journal attempt", "task", attempt.Task, "error", err)
	}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
