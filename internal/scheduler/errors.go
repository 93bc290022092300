package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralError reports a misconfigured task registry: a duplicate name, a
// dependency on a task that does not exist, or a dependency cycle. It is
// detected once at startup and is never retried.
type StructuralError struct {
	Reason string
	Tasks  []string // Offending task names
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid task registry: %s: %s", e.Reason, strings.Join(e.Tasks, ", "))
}

// LimitError reports that a task reached its hard attempt limit.
type LimitError struct {
	Task     string
	Attempts int
	Limit    int
	Message  string
}

func (e *LimitError) Error() string {
	msg := fmt.Sprintf("task %q did not complete within %d attempts", e.Task, e.Limit)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// ActionError wraps a failure raised while executing a task's action or one
// of its preparation steps.
type ActionError struct {
	Task string
	Step string // "acquire", "prepare", "outfit" or "do"
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("task %q failed during %s: %v", e.Task, e.Step, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// StallError reports that the run stopped with work left while the goal is
// still unmet.
type StallError struct {
	Remaining []string // Incomplete tasks in route order
	Budget    int      // Adventures left when the run stopped
}

func (e *StallError) Error() string {
	if e.Budget > 0 {
		return fmt.Sprintf("unable to find available task, but the run is not complete (remaining: %s)", strings.Join(e.Remaining, ", "))
	}
	return fmt.Sprintf("out of adventures, but the run is not complete (remaining: %s)", strings.Join(e.Remaining, ", "))
}

// IsStructuralError returns true if err is or wraps a *StructuralError.
func IsStructuralError(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsLimitError returns true if err is or wraps a *LimitError.
func IsLimitError(err error) bool {
	var le *LimitError
	return errors.As(err, &le)
}

// IsActionError returns true if err is or wraps an *ActionError.
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// IsStallError returns true if err is or wraps a *StallError.
func IsStallError(err error) bool {
	var se *StallError
	return errors.As(err, &se)
}
