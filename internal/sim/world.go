package sim

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/aristath/questloop/internal/scheduler"
)

// epoch is the simulated game clock at zero adventures used.
var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ErrSimulatedFailure is returned by tasks marked to fail.
var ErrSimulatedFailure = errors.New("simulated failure")

// World is the deterministic state a scenario runs against. It serves as
// the run's budget, wanderer sources and outfitter.
type World struct {
	budget    int
	used      int
	attempts  map[string]int
	turns     map[string]int
	conflicts map[string][]string
	events    []EventSpec
	order     []string
	pairings  []string
}

func newWorld(sc *Scenario) *World {
	w := &World{
		budget:    sc.Budget,
		attempts:  make(map[string]int),
		turns:     make(map[string]int),
		conflicts: make(map[string][]string),
		events:    sc.Events,
	}
	for _, task := range sc.Tasks {
		w.conflicts[task.Name] = task.Conflicts
	}
	return w
}

// Remaining returns the adventures left.
func (w *World) Remaining() int { return w.budget - w.used }

// Used returns the adventures spent.
func (w *World) Used() int { return w.used }

// Now is the simulated game clock: one minute per adventure.
func (w *World) Now() time.Time { return epoch.Add(time.Duration(w.used) * time.Minute) }

// Sources returns the wanderer sources that have appeared so far.
func (w *World) Sources() []scheduler.EventSource {
	var out []scheduler.EventSource
	for _, ev := range w.events {
		if w.used >= ev.AppearsAt {
			out = append(out, source{spec: ev})
		}
	}
	return out
}

// CanEquip reports whether item is not in the task's conflict list.
func (w *World) CanEquip(task *scheduler.Task, item string) bool {
	return !slices.Contains(w.conflicts[task.Name], item)
}

// Dress records the wanderer paired with the task.
func (w *World) Dress(ctx context.Context, task *scheduler.Task, ev scheduler.EventSource) error {
	if ev != nil {
		w.pairings = append(w.pairings, task.Name+"+"+ev.Name())
	}
	return nil
}

func (w *World) compile(spec TaskSpec) *scheduler.Task {
	cost := spec.Cost
	switch {
	case spec.Free:
		cost = 0
	case cost == 0:
		cost = 1
	}
	completesAfter := spec.CompletesAfter
	if completesAfter == 0 {
		completesAfter = 1
	}
	name := spec.Name

	task := &scheduler.Task{
		Name:  name,
		After: spec.After,
		Limit: scheduler.Limit{
			Tries:   spec.Tries,
			Soft:    spec.Soft,
			Message: spec.Message,
		},
		Delay:      spec.Delay,
		FreeAction: spec.Free,
		Boss:       spec.Boss,
		Completed: func() bool {
			return completesAfter > 0 && w.attempts[name] >= completesAfter
		},
		TurnsSpent: func() int { return w.turns[name] },
		Do: func(ctx context.Context, ev scheduler.EventSource) error {
			w.order = append(w.order, name)
			w.attempts[name]++
			w.turns[name] += cost
			w.used += cost
			if spec.Fail {
				return ErrSimulatedFailure
			}
			return nil
		},
	}
	if spec.ReadyAfter > 0 {
		task.Ready = func() bool { return w.used >= spec.ReadyAfter }
	}
	if spec.Priority {
		task.Priority = func() bool { return !task.IsCompleted() }
	}
	return task
}

type source struct {
	spec EventSpec
}

func (s source) Name() string    { return s.spec.Name }
func (s source) Available() bool { return true }
func (s source) Chance() float64 { return s.spec.Chance }
func (s source) Equip() string   { return s.spec.Equip }
