package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aristath/questloop/internal/events"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count(eventType string) int {
	n := 0
	for _, e := range p.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// memoryJournal collects attempts.
type memoryJournal struct {
	attempts []Attempt
	err      error
}

func (j *memoryJournal) RecordAttempt(ctx context.Context, attempt Attempt) error {
	j.attempts = append(j.attempts, attempt)
	return j.err
}

// stubAcquirer records acquisitions, and appends them to steps when set.
type stubAcquirer struct {
	items []string
	steps *[]string
	err   error
}

func (a *stubAcquirer) Acquire(ctx context.Context, item string, num int) error {
	a.items = append(a.items, item)
	if a.steps != nil {
		*a.steps = append(*a.steps, "acquire "+item)
	}
	return a.err
}

// stubOutfitter records dress calls and answers CanEquip from a set.
type stubOutfitter struct {
	dressed  []string
	equipped []string
	allowed  map[string]bool
	steps    *[]string
	err      error
}

func (o *stubOutfitter) CanEquip(task *Task, item string) bool {
	return o.allowed[task.Name+"|"+item]
}

func (o *stubOutfitter) Dress(ctx context.Context, task *Task, ev EventSource) error {
	o.dressed = append(o.dressed, task.Name)
	if o.steps != nil {
		*o.steps = append(*o.steps, "dress")
	}
	if ev != nil {
		o.equipped = append(o.equipped, ev.Equip())
	}
	return o.err
}

// countingTask returns a task whose action counts its runs and which
// completes once it has run `need` times (never when need <= 0).
func countingTask(name string, need int, after ...string) (*Task, *int) {
	runs := 0
	return &Task{
		Name:  name,
		After: after,
		Completed: func() bool {
			return need > 0 && runs >= need
		},
		Do: func(ctx context.Context, ev EventSource) error {
			runs++
			return nil
		},
	}, &runs
}

func newTestEngine(t *testing.T, tasks []*Task, opts ...EngineOption) *Engine {
	t.Helper()
	route, err := Prioritize(tasks)
	if err != nil {
		t.Fatalf("Prioritize() error = %v", err)
	}
	return NewEngine(route, opts...)
}

func TestEngineAvailable(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }

	tests := []struct {
		name string
		dep  *Task
		task *Task
		want bool
	}{
		{
			name: "no dependencies, ready",
			dep:  &Task{Name: "dep", Completed: yes},
			task: &Task{Name: "t"},
			want: true,
		},
		{
			name: "completed task is never available, even when ready",
			dep:  &Task{Name: "dep", Completed: yes},
			task: &Task{Name: "t", After: []string{"dep"}, Completed: yes, Ready: yes},
			want: false,
		},
		{
			name: "incomplete dependency blocks",
			dep:  &Task{Name: "dep", Completed: no},
			task: &Task{Name: "t", After: []string{"dep"}},
			want: false,
		},
		{
			name: "completed dependency unlocks",
			dep:  &Task{Name: "dep", Completed: yes},
			task: &Task{Name: "t", After: []string{"dep"}},
			want: true,
		},
		{
			name: "not ready blocks",
			dep:  &Task{Name: "dep", Completed: yes},
			task: &Task{Name: "t", After: []string{"dep"}, Ready: no},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, []*Task{tt.dep, tt.task})
			if got := e.Available(tt.task); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineAvailableReevaluatesPredicates(t *testing.T) {
	ready := false
	tk := &Task{Name: "t", Ready: func() bool { return ready }}
	e := newTestEngine(t, []*Task{tk})

	if e.Available(tk) {
		t.Fatal("task should not be available before it is ready")
	}
	ready = true
	if !e.Available(tk) {
		t.Fatal("task should become available as soon as its predicate flips")
	}
}

func TestEngineAvailableUnknownTask(t *testing.T) {
	e := newTestEngine(t, []*Task{{Name: "a"}})
	if e.Available(&Task{Name: "a"}) {
		t.Error("a task that is not on the route must not be available")
	}
}

func TestEngineHasDelay(t *testing.T) {
	spent := 0
	burnable := &Task{Name: "burn", Delay: 5, TurnsSpent: func() int { return spent }}
	plain := &Task{Name: "plain"}
	blocked := &Task{Name: "blocked", Delay: 5, Ready: func() bool { return false }}
	e := newTestEngine(t, []*Task{burnable, plain, blocked})

	if !e.HasDelay(burnable) {
		t.Error("task with delay left should report HasDelay")
	}
	if e.HasDelay(plain) {
		t.Error("task without delay should not report HasDelay")
	}
	if e.HasDelay(blocked) {
		t.Error("unavailable task should not report HasDelay")
	}

	spent = 5
	if e.HasDelay(burnable) {
		t.Error("task whose delay is used up should not report HasDelay")
	}
}

func TestEngineHardLimit(t *testing.T) {
	tk, runs := countingTask("Copperhead Start", 0)
	tk.Limit = Limit{Tries: 1, Message: "check the quest log"}
	e := newTestEngine(t, []*Task{tk})
	ctx := context.Background()

	if err := e.Execute(ctx, tk, nil); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	err := e.Execute(ctx, tk, nil)
	if err == nil {
		t.Fatal("second Execute() should fail the hard limit")
	}
	var le *LimitError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LimitError, got %T: %v", err, err)
	}
	if le.Task != "Copperhead Start" || le.Limit != 1 || le.Attempts != 1 {
		t.Errorf("unexpected limit error fields: %+v", le)
	}
	if !strings.Contains(err.Error(), "check the quest log") {
		t.Errorf("error %q should carry the task's message", err.Error())
	}
	if *runs != 1 {
		t.Errorf("action ran %d times, want 1", *runs)
	}
	if got := e.Attempts(tk); got != 1 {
		t.Errorf("Attempts() = %d, want 1", got)
	}
}

func TestEngineSoftLimit(t *testing.T) {
	tk, runs := countingTask("Palindome Dog", 0)
	tk.Limit = Limit{Soft: 2, Message: "you may just be unlucky"}
	pub := &recordingPublisher{}
	e := newTestEngine(t, []*Task{tk}, WithPublisher(pub))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := e.Execute(ctx, tk, nil); err != nil {
			t.Fatalf("Execute() call %d error = %v", i+1, err)
		}
	}

	if got := pub.count(events.EventTypeSoftLimit); got != 1 {
		t.Errorf("soft limit events = %d, want 1", got)
	}
	if got := e.SoftViolations(tk); got != 1 {
		t.Errorf("SoftViolations() = %d, want 1", got)
	}
	if got := e.Attempts(tk); got != 3 {
		t.Errorf("Attempts() = %d, want 3", got)
	}
	if *runs != 2 {
		t.Errorf("action ran %d times, want 2: the call at the limit must not run it", *runs)
	}
	if got := pub.count(events.EventTypeTaskStarted); got != 2 {
		t.Errorf("task started events = %d, want 2", got)
	}
	if !e.SoftExhausted(tk) {
		t.Error("task should be soft exhausted after hitting its limit")
	}
}

func TestEngineSoftExhaustedHasNoDelay(t *testing.T) {
	tk, _ := countingTask("Bat Snake", 0)
	tk.Delay = 5
	tk.Limit = Limit{Soft: 1}
	e := newTestEngine(t, []*Task{tk})
	ctx := context.Background()

	if err := e.Execute(ctx, tk, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !e.HasDelay(tk) || e.SoftExhausted(tk) {
		t.Fatal("task under its soft limit should still burn delay")
	}
	if err := e.Execute(ctx, tk, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if e.HasDelay(tk) {
		t.Error("soft exhausted task must not be offered for wanderer pairing")
	}
	if !e.Available(tk) {
		t.Error("soft exhaustion does not change availability")
	}
}

func TestEngineAttemptsPersistAcrossCompletion(t *testing.T) {
	tk, _ := countingTask("Protesters", 3)
	e := newTestEngine(t, []*Task{tk})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !e.Available(tk) {
			t.Fatalf("task should be available before run %d", i+1)
		}
		if err := e.Execute(ctx, tk, nil); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if e.Available(tk) {
		t.Error("task should stop being available once its predicate reports completion")
	}
	if got := e.Attempts(tk); got != 3 {
		t.Errorf("Attempts() = %d, want 3", got)
	}
}

func TestEngineExecuteOrder(t *testing.T) {
	var steps []string
	acq := &stubAcquirer{steps: &steps}
	out := &stubOutfitter{steps: &steps}
	useful := false
	tk := &Task{
		Name: "Zepplin",
		Acquire: []Acquire{
			{Item: "glark cable", Useful: func() bool { return useful }},
			{Item: "Red Zeppelin ticket"},
		},
		Prepare: func(ctx context.Context) error {
			steps = append(steps, "prepare")
			return nil
		},
		Do: func(ctx context.Context, ev EventSource) error {
			steps = append(steps, "do")
			return nil
		},
	}
	e := newTestEngine(t, []*Task{tk}, WithAcquirer(acq), WithOutfitter(out))

	if err := e.Execute(context.Background(), tk, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.Join(acq.items, ",") != "Red Zeppelin ticket" {
		t.Errorf("acquired %v, want only the useful item", acq.items)
	}
	if len(out.dressed) != 1 {
		t.Errorf("Dress called %d times, want 1", len(out.dressed))
	}
	want := "acquire Red Zeppelin ticket,prepare,dress,do"
	if got := strings.Join(steps, ","); got != want {
		t.Errorf("steps = %s, want %s", got, want)
	}
}

func TestEngineExecuteWithWanderer(t *testing.T) {
	var got EventSource
	tk := &Task{Name: "Bat Snake", Delay: 5, Do: func(ctx context.Context, ev EventSource) error {
		got = ev
		return nil
	}}
	out := &stubOutfitter{}
	pub := &recordingPublisher{}
	e := newTestEngine(t, []*Task{tk}, WithOutfitter(out), WithPublisher(pub))
	src := &fakeSource{name: "Kramco", available: true, chance: 1, equip: "Kramco Sausage-o-Matic"}

	if err := e.Execute(context.Background(), tk, src); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != src {
		t.Error("action did not receive the paired event source")
	}
	if strings.Join(out.equipped, ",") != "Kramco Sausage-o-Matic" {
		t.Errorf("outfitter equipped %v", out.equipped)
	}
	started, ok := pub.events[0].(events.TaskStartedEvent)
	if !ok || started.Wanderer != "Kramco" {
		t.Errorf("first event = %#v, want TaskStartedEvent with wanderer", pub.events[0])
	}
}

func TestEngineActionErrors(t *testing.T) {
	boom := errors.New("unexpected page")

	tests := []struct {
		name     string
		task     *Task
		acquirer Acquirer
		outfit   Outfitter
		wantStep string
	}{
		{
			name:     "action error",
			task:     &Task{Name: "t", Do: func(ctx context.Context, ev EventSource) error { return boom }},
			wantStep: "do",
		},
		{
			name:     "missing action",
			task:     &Task{Name: "t"},
			wantStep: "do",
		},
		{
			name:     "prepare error",
			task:     &Task{Name: "t", Prepare: func(ctx context.Context) error { return boom }, Do: noop},
			wantStep: "prepare",
		},
		{
			name:     "acquire error",
			task:     &Task{Name: "t", Acquire: []Acquire{{Item: "wet stunt nut stew"}}, Do: noop},
			acquirer: &stubAcquirer{err: boom},
			wantStep: "acquire",
		},
		{
			name:     "acquire without acquirer",
			task:     &Task{Name: "t", Acquire: []Acquire{{Item: "wet stunt nut stew"}}, Do: noop},
			wantStep: "acquire",
		},
		{
			name:     "outfit error",
			task:     &Task{Name: "t", Do: noop},
			outfit:   &stubOutfitter{err: boom},
			wantStep: "outfit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []EngineOption
			if tt.acquirer != nil {
				opts = append(opts, WithAcquirer(tt.acquirer))
			}
			if tt.outfit != nil {
				opts = append(opts, WithOutfitter(tt.outfit))
			}
			journal := &memoryJournal{}
			opts = append(opts, WithJournal(journal))
			e := newTestEngine(t, []*Task{tt.task}, opts...)

			err := e.Execute(context.Background(), tt.task, nil)
			var ae *ActionError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *ActionError, got %T: %v", err, err)
			}
			if ae.Step != tt.wantStep {
				t.Errorf("Step = %q, want %q", ae.Step, tt.wantStep)
			}
			if e.Attempts(tt.task) != 1 {
				t.Errorf("failed attempt should still count, got %d", e.Attempts(tt.task))
			}
			if len(journal.attempts) != 1 || journal.attempts[0].Err == "" {
				t.Errorf("journal = %+v, want one failed attempt", journal.attempts)
			}
		})
	}
}

func TestEngineJournal(t *testing.T) {
	tk, _ := countingTask("Talisman", 1)
	tk.Limit = Limit{Soft: 1}
	journal := &memoryJournal{err: errors.New("disk full")}
	e := newTestEngine(t, []*Task{tk}, WithJournal(journal))

	if err := e.Execute(context.Background(), tk, nil); err != nil {
		t.Fatalf("journal failures must not fail the attempt: %v", err)
	}
	if err := e.Execute(context.Background(), tk, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(journal.attempts) != 2 {
		t.Fatalf("journal has %d attempts, want 2", len(journal.attempts))
	}
	first, second := journal.attempts[0], journal.attempts[1]
	if first.Number != 1 || !first.Completed || first.SoftLimit {
		t.Errorf("first attempt = %+v", first)
	}
	if second.Number != 2 || !second.SoftLimit {
		t.Errorf("second attempt = %+v", second)
	}
}

func TestEngineRejectsReentrantExecute(t *testing.T) {
	var inner error
	var e *Engine
	other := &Task{Name: "other", Do: noop}
	outer := &Task{Name: "outer", Do: func(ctx context.Context, ev EventSource) error {
		inner = e.Execute(ctx, other, nil)
		return nil
	}}
	e = newTestEngine(t, []*Task{outer, other})

	if err := e.Execute(context.Background(), outer, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if inner == nil {
		t.Fatal("nested Execute() should be rejected")
	}
	if e.Attempts(other) != 0 {
		t.Error("rejected task must not count an attempt")
	}
}

// staleWorld only exposes what an action changed after Refresh is called.
type staleWorld struct {
	seen, actual bool
	refreshes    int
}

func (w *staleWorld) Refresh(ctx context.Context) error {
	w.refreshes++
	w.seen = w.actual
	return nil
}

func TestEngineRefreshesBeforeJudgingCompletion(t *testing.T) {
	world := &staleWorld{}
	tk := &Task{
		Name:      "Boss",
		Completed: func() bool { return world.seen },
		Do: func(ctx context.Context, ev EventSource) error {
			world.actual = true
			return nil
		},
	}
	journal := &memoryJournal{}
	pub := &recordingPublisher{}
	e := newTestEngine(t, []*Task{tk}, WithObserver(world), WithJournal(journal), WithPublisher(pub))

	if err := e.Execute(context.Background(), tk, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if world.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", world.refreshes)
	}
	if len(journal.attempts) != 1 || !journal.attempts[0].Completed {
		t.Errorf("journal = %+v, want a completed attempt", journal.attempts)
	}
	finished, ok := pub.events[len(pub.events)-1].(events.TaskFinishedEvent)
	if !ok || !finished.Completed {
		t.Errorf("last event = %#v, want completed TaskFinishedEvent", pub.events[len(pub.events)-1])
	}
}

func TestEngineNoRefreshAfterFailedAction(t *testing.T) {
	world := &staleWorld{}
	tk := &Task{Name: "t", Do: func(ctx context.Context, ev EventSource) error {
		return errors.New("beaten up")
	}}
	e := newTestEngine(t, []*Task{tk}, WithObserver(world))

	if err := e.Execute(context.Background(), tk, nil); err == nil {
		t.Fatal("expected action error")
	}
	if world.refreshes != 0 {
		t.Errorf("refreshes = %d, want 0", world.refreshes)
	}
}

func TestEngineExecuteNilTask(t *testing.T) {
	e := newTestEngine(t, []*Task{{Name: "a", Do: noop}})
	if err := e.Execute(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for a nil task")
	}
}

func TestEngineExecuteUnknownTask(t *testing.T) {
	e := newTestEngine(t, []*Task{{Name: "a", Do: noop}})
	if err := e.Execute(context.Background(), &Task{Name: "a", Do: noop}, nil); err == nil {
		t.Fatal("expected error for a task that is not on the route")
	}
}

func noop(ctx context.Context, ev EventSource) error { return nil }
