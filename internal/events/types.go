package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	TaskID() string
}

// Topic constants
const (
	TopicTask = "task"
	TopicRun  = "run"
)

// Event type constants
const (
	EventTypeTaskStarted    = "task.started"
	EventTypeTaskFinished   = "task.finished"
	EventTypeSoftLimit      = "task.soft_limit"
	EventTypeWandererPaired = "run.wanderer"
	EventTypeRouteProgress  = "run.progress"
	EventTypeRunFinished    = "run.finished"
)

// TaskStartedEvent is published when the engine begins an attempt.
type TaskStartedEvent struct {
	ID        string
	Attempt   int
	Wanderer  string // Paired event source, "" if none
	Boss      bool
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }
func (e TaskStartedEvent) TaskID() string    { return e.ID }

// TaskFinishedEvent is published when an attempt returns. Completed reflects
// the task's completion predicate right after the attempt.
type TaskFinishedEvent struct {
	ID        string
	Attempt   int
	Completed bool
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskFinishedEvent) EventType() string { return EventTypeTaskFinished }
func (e TaskFinishedEvent) TaskID() string    { return e.ID }

// SoftLimitEvent is published when a task is attempted past its soft limit.
type SoftLimitEvent struct {
	ID        string
	Attempts  int
	Limit     int
	Message   string
	Timestamp time.Time
}

func (e SoftLimitEvent) EventType() string { return EventTypeSoftLimit }
func (e SoftLimitEvent) TaskID() string    { return e.ID }

// WandererPairedEvent is published when a wanderer is folded into a task.
type WandererPairedEvent struct {
	ID        string
	Source    string
	Timestamp time.Time
}

func (e WandererPairedEvent) EventType() string { return EventTypeWandererPaired }
func (e WandererPairedEvent) TaskID() string    { return e.ID }

// RouteProgressEvent is published at the start of every tick.
type RouteProgressEvent struct {
	Total     int
	Completed int
	Available int
	Remaining int // Adventures left
	Used      int // Adventures used
	Tick      int
	Timestamp time.Time
}

func (e RouteProgressEvent) EventType() string { return EventTypeRouteProgress }
func (e RouteProgressEvent) TaskID() string    { return "" }

// RunFinishedEvent is published once when the driver stops.
type RunFinishedEvent struct {
	Success   bool
	Err       error
	Used      int
	Remaining int
	Elapsed   time.Duration
	Timestamp time.Time
}

func (e RunFinishedEvent) EventType() string { return EventTypeRunFinished }
func (e RunFinishedEvent) TaskID() string    { return "" }
