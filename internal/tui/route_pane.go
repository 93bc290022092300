package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/questloop/internal/events"
)

// RunState is the outcome shown once the run finishes.
type RunState struct {
	Done    bool
	Success bool
	Err     error
	Elapsed time.Duration
}

// RoutePaneModel shows route progress and the adventure budget.
type RoutePaneModel struct {
	total     int
	completed int
	available int
	remaining int
	used      int
	tick      int
	paired    int
	warnings  int
	run       RunState
	width     int
	height    int
	focused   bool
}

// NewRoutePaneModel creates a new route pane model.
func NewRoutePaneModel() RoutePaneModel {
	return RoutePaneModel{}
}

// Update handles messages for the route pane.
func (m RoutePaneModel) Update(msg tea.Msg) (RoutePaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.RouteProgressEvent:
		m.total = msg.Total
		m.completed = msg.Completed
		m.available = msg.Available
		m.remaining = msg.Remaining
		m.used = msg.Used
		m.tick = msg.Tick

	case events.WandererPairedEvent:
		m.paired++

	case events.SoftLimitEvent:
		m.warnings++

	case events.RunFinishedEvent:
		m.remaining = msg.Remaining
		m.used = msg.Used
		m.run = RunState{Done: true, Success: msg.Success, Err: msg.Err, Elapsed: msg.Elapsed}
	}

	return m, nil
}

// View renders the route pane.
func (m RoutePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Route")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Tasks:      %d\n", m.total)
	fmt.Fprintf(&b, "Completed:  %s\n", StyleStatusComplete.Render(fmt.Sprintf("%d", m.completed)))
	fmt.Fprintf(&b, "Available:  %s\n", StyleStatusRunning.Render(fmt.Sprintf("%d", m.available)))
	fmt.Fprintf(&b, "Adventures: %d used, %d left\n", m.used, m.remaining)
	fmt.Fprintf(&b, "Ticks:      %d\n", m.tick)
	fmt.Fprintf(&b, "Wanderers:  %d\n", m.paired)
	if m.warnings > 0 {
		fmt.Fprintf(&b, "Warnings:   %s\n", StyleStatusWarning.Render(fmt.Sprintf("%d", m.warnings)))
	}
	b.WriteString("\n")

	if m.total > 0 {
		b.WriteString(progressBar(m.completed, m.total, min(m.width-14, 30)))
		b.WriteString("\n\n")
	}

	switch {
	case !m.run.Done:
		b.WriteString(StyleStatusRunning.Render("Running"))
	case m.run.Success:
		b.WriteString(StyleStatusComplete.Render(fmt.Sprintf("Done in %s", m.run.Elapsed.Round(time.Second))))
	default:
		b.WriteString(StyleStatusFailed.Render(fmt.Sprintf("Stopped: %v", m.run.Err)))
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// Run returns the outcome recorded from the RunFinishedEvent.
func (m RoutePaneModel) Run() RunState {
	return m.run
}

// SetSize updates the pane dimensions.
func (m *RoutePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *RoutePaneModel) SetFocused(focused bool) {
	m.focused = focused
}

func progressBar(done, total, width int) string {
	if width <= 0 || total <= 0 {
		return ""
	}
	filled := min(done*width/total, width)
	bar := StyleStatusComplete.Render(strings.Repeat("=", filled))
	bar += StyleStatusPending.Render(strings.Repeat(".", width-filled))
	return fmt.Sprintf("[%s]  %d/%d", bar, done, total)
}
