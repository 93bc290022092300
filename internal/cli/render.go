package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/questloop/internal/orchestrator"
	"github.com/aristath/questloop/internal/scheduler"
	"github.com/aristath/questloop/internal/sim"
)

// RenderRoute prints the prioritized task order, one task per line.
func RenderRoute(w io.Writer, route *scheduler.Route) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)

	width := 0
	for _, name := range route.Names() {
		width = max(width, len(name))
	}

	if _, err := fmt.Fprintln(w, header.Render(fmt.Sprintf("Route: %d tasks", route.Len()))); err != nil {
		return err
	}
	for i, task := range route.Tasks() {
		line := fmt.Sprintf("%3d  %-*s  %s", i+1, width, task.Name, describe(task))
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func describe(task *scheduler.Task) string {
	var parts []string
	if len(task.After) > 0 {
		parts = append(parts, "after "+strings.Join(task.After, ", "))
	}
	if task.Limit.Tries > 0 {
		parts = append(parts, fmt.Sprintf("tries %d", task.Limit.Tries))
	}
	if task.Limit.Soft > 0 {
		parts = append(parts, fmt.Sprintf("soft %d", task.Limit.Soft))
	}
	if task.Delay > 0 {
		parts = append(parts, fmt.Sprintf("delay %d", task.Delay))
	}
	if task.FreeAction {
		parts = append(parts, "free")
	}
	if task.Boss {
		parts = append(parts, "boss")
	}
	return strings.Join(parts, "; ")
}

// RenderSummary prints the outcome of a run.
func RenderSummary(w io.Writer, summary orchestrator.Summary, runErr error) {
	r := lipgloss.NewRenderer(w)
	ok := r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	bad := r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dim := r.NewStyle().Foreground(lipgloss.Color("241"))

	switch {
	case summary.AlreadyComplete:
		fmt.Fprintln(w, ok.Render("Run already complete"))
		return
	case runErr == nil:
		fmt.Fprintln(w, ok.Render("Run complete"))
	default:
		fmt.Fprintln(w, bad.Render("Run stopped: "+runErr.Error()))
	}

	fmt.Fprintf(w, "  adventures: %d used, %d remaining\n", summary.Used, summary.Remaining)
	fmt.Fprintf(w, "  ticks:      %d", summary.Ticks)
	for _, phase := range []orchestrator.Phase{
		orchestrator.PhasePriority,
		orchestrator.PhaseWanderer,
		orchestrator.PhaseDefault,
		orchestrator.PhaseFinalize,
	} {
		if n := summary.Executions[phase]; n > 0 {
			fmt.Fprintf(w, " %s", dim.Render(fmt.Sprintf("%s=%d", phase, n)))
		}
	}
	fmt.Fprintln(w)
	if runErr == nil {
		fmt.Fprintf(w, "  elapsed:    %s since the first run of the day\n", summary.Elapsed.Round(time.Second))
	}

	var stall *scheduler.StallError
	if errors.As(runErr, &stall) {
		fmt.Fprintln(w, bad.Render(fmt.Sprintf("  %d tasks remaining:", len(stall.Remaining))))
		for _, name := range stall.Remaining {
			fmt.Fprintf(w, "    %s\n", name)
		}
	}
	var limit *scheduler.LimitError
	if errors.As(runErr, &limit) && limit.Message != "" {
		fmt.Fprintf(w, "  hint: %s\n", limit.Message)
	}
}

// RenderSimulation prints what a simulated run did, then its summary.
func RenderSimulation(w io.Writer, res sim.Result, runErr error) {
	fmt.Fprintf(w, "route:     %s\n", strings.Join(res.Route, " > "))
	fmt.Fprintf(w, "executed:  %s\n", strings.Join(res.Order, " > "))
	if len(res.Pairings) > 0 {
		fmt.Fprintf(w, "wanderers: %s\n", strings.Join(res.Pairings, ", "))
	}
	RenderSummary(w, res.Summary, runErr)
}
