package scheduler

import "context"

// EventSource is a transient external opportunity (a wanderer) that may be
// folded into a task execution.
type EventSource interface {
	Name() string
	Available() bool
	Chance() float64 // probability in [0,1] that the event fires on the next turn
	Equip() string   // item that must be worn for the event to fire, "" if none
}

// Action performs a task's effect against the environment. ev is nil unless
// a wanderer was paired with the task for this execution.
type Action func(ctx context.Context, ev EventSource) error

// Limit bounds how many times a task may be attempted.
type Limit struct {
	Tries   int    // Hard cap: reaching it aborts the run
	Soft    int    // Advisory cap: reaching it is reported, execution continues
	Message string // Guidance shown when either cap is hit
}

// Acquire asks for an item before the task's action runs.
type Acquire struct {
	Item   string
	Num    int         // Defaults to 1
	Useful func() bool // Skip the acquisition when false; nil means always useful
}

// Outfit describes equipment a task wants worn while it runs.
type Outfit struct {
	Equip    []string
	Modifier string
	Familiar string
}

// Task represents a unit of schedulable work.
type Task struct {
	Name      string   // Unique identifier
	After     []string // Tasks that must be completed before this one is eligible
	Ready     func() bool
	Completed func() bool
	Priority  func() bool

	Limit      Limit
	Delay      int        // Turns of filler this task is allowed to burn
	TurnsSpent func() int // Turns already spent toward Delay; nil means none
	FreeAction bool       // Does not consume adventures
	Boss       bool       // Terminal, high-stakes task

	Acquire []Acquire
	Prepare func(ctx context.Context) error
	Outfit  Outfit
	Do      Action
}

// Quest is a named group of tasks. It adds no ordering of its own.
type Quest struct {
	Name  string
	Tasks []*Task
}

// IsReady reports the readiness predicate; tasks without one are always ready.
func (t *Task) IsReady() bool {
	return t.Ready == nil || t.Ready()
}

// IsCompleted reports the completion predicate. A task without one is never
// complete on its own.
func (t *Task) IsCompleted() bool {
	return t.Completed != nil && t.Completed()
}

// HasPriority reports whether the task wants to preempt normal ordering.
func (t *Task) HasPriority() bool {
	return t.Priority != nil && t.Priority()
}

// delayActive reports whether the task still has filler turns to burn.
func (t *Task) delayActive() bool {
	if t.Delay <= 0 {
		return false
	}
	if t.TurnsSpent == nil {
		return true
	}
	return t.TurnsSpent() < t.Delay
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}

	cp := *task
	if task.After != nil {
		cp.After = append([]string(nil), task.After...)
	}
	if task.Acquire != nil {
		cp.Acquire = append([]Acquire(nil), task.Acquire...)
	}
	if task.Outfit.Equip != nil {
		cp.Outfit.Equip = append([]string(nil), task.Outfit.Equip...)
	}
	return &cp
}
