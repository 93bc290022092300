// Package quests holds the task tables the run loop schedules. Each task's
// predicates read a World, so the same tables drive the live game session
// and test fakes.
package quests

import (
	"context"

	"github.com/aristath/questloop/internal/scheduler"
)

// World is the game state and the actions tasks take on it.
type World interface {
	Step(quest string) int
	Have(item string) bool
	HasSkill(skill string) bool
	Property(name string) string
	IntProperty(name string) int
	BoolProperty(name string) bool
	TurnsSpent(location string) int

	Adventure(ctx context.Context, location string, choices map[int]int) error
	Create(ctx context.Context, item string) error
	Use(ctx context.Context, item string, n int) error
	Visit(ctx context.Context, url string) error
	CLI(ctx context.Context, line string) error
}

// finished is the step of a completed quest.
const finished = 999

// All returns every quest in registry order.
func All(w World) []scheduler.Quest {
	return []scheduler.Quest{
		Macguffin(w),
		Bat(w),
		McLargeHuge(w),
		Giant(w),
		Palindome(w),
	}
}

// RunComplete reports whether the run's goal holds: the final quest is done
// and the liver is steel.
func RunComplete(w World) bool {
	return w.Step("questL13Final") == finished && w.HasSkill("Liver of Steel")
}

// Finalize returns the hook run after the main loop. The prism can be broken
// with no adventures left, so it is the last thing the loop never reaches.
func Finalize(w World) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		step := w.Step("questL13Final")
		if step > 11 && step != finished {
			return w.Visit(ctx, "place.php?whichplace=nstower&action=ns_11_prism")
		}
		return nil
	}
}

// adventure returns an action that spends a turn at location.
func adventure(w World, location string, choices map[int]int) scheduler.Action {
	return func(ctx context.Context, ev scheduler.EventSource) error {
		return w.Adventure(ctx, location, choices)
	}
}

// turnsAt counts the turns spent at location toward a task's delay.
func turnsAt(w World, location string) func() int {
	return func() int { return w.TurnsSpent(location) }
}

func stepAtLeast(w World, quest string, n int) func() bool {
	return func() bool { return w.Step(quest) >= n }
}
