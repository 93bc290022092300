package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/questloop/internal/events"
)

// Task statuses shown in the list.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAttempted = "attempted"
	StatusFailed    = "failed"
)

// TaskState is everything the pane knows about one task.
type TaskState struct {
	Name     string
	Status   string
	Attempts int
	Log      []string
	Duration time.Duration
}

// TaskPaneModel lists attempted tasks and shows the selected task's log.
type TaskPaneModel struct {
	tasks       map[string]*TaskState
	order       []string // first-attempt order
	selectedIdx int
	follow      bool // select each task as it starts
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

const listWidth = 32

// NewTaskPaneModel creates a new task pane model.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		follow:   true,
		viewport: viewport.New(0, 0),
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.order)-1 {
				m.selectedIdx++
				m.follow = m.selectedIdx == len(m.order)-1
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.follow = false
				m.updateViewportContent()
			}
		case KeyFollow:
			m.follow = true
			m.selectedIdx = max(len(m.order)-1, 0)
			m.updateViewportContent()
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.TaskStartedEvent:
		task := m.task(msg.ID)
		task.Status = StatusRunning
		task.Attempts = msg.Attempt
		line := fmt.Sprintf("%s attempt %d", msg.Timestamp.Format("15:04:05"), msg.Attempt)
		if msg.Wanderer != "" {
			line += " with " + msg.Wanderer
		}
		task.Log = append(task.Log, line)
		if m.follow {
			m.selectedIdx = m.indexOf(msg.ID)
		}
		m.refresh(msg.ID)

	case events.TaskFinishedEvent:
		task := m.task(msg.ID)
		task.Duration = msg.Duration
		switch {
		case msg.Err != nil:
			task.Status = StatusFailed
			task.Log = append(task.Log, fmt.Sprintf("  failed after %v: %v", msg.Duration, msg.Err))
		case msg.Completed:
			task.Status = StatusCompleted
			task.Log = append(task.Log, fmt.Sprintf("  completed in %v", msg.Duration))
		default:
			task.Status = StatusAttempted
			task.Log = append(task.Log, fmt.Sprintf("  not complete after %v", msg.Duration))
		}
		m.refresh(msg.ID)

	case events.SoftLimitEvent:
		task := m.task(msg.ID)
		task.Status = StatusAttempted
		line := fmt.Sprintf("  past soft limit (%d/%d)", msg.Attempts, msg.Limit)
		if msg.Message != "" {
			line += ": " + msg.Message
		}
		task.Log = append(task.Log, line, "  set aside for the rest of the run")
		m.refresh(msg.ID)
	}

	return m, cmd
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(listWidth),
		lipgloss.NewStyle().
			Width(m.width-listWidth-4).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TaskPaneModel) renderTaskList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	}
	for i, name := range m.order {
		task := m.tasks[name]
		label := fmt.Sprintf("%s x%d", name, task.Attempts)
		if len(label) > width-3 {
			label = label[:width-6] + "..."
		}

		line := StatusIcon(task.Status) + " " + label
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status string) string {
	switch status {
	case StatusRunning:
		return StyleStatusRunning.Render("●")
	case StatusCompleted:
		return StyleStatusComplete.Render("✓")
	case StatusFailed:
		return StyleStatusFailed.Render("✗")
	case StatusAttempted:
		return StyleStatusWarning.Render("◐")
	default:
		return StyleStatusPending.Render("○")
	}
}

// Selected returns the selected task, or nil before any task has started.
func (m TaskPaneModel) Selected() *TaskState {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.order) {
		return m.tasks[m.order[m.selectedIdx]]
	}
	return nil
}

func (m *TaskPaneModel) task(name string) *TaskState {
	if task, ok := m.tasks[name]; ok {
		return task
	}
	task := &TaskState{Name: name}
	m.tasks[name] = task
	m.order = append(m.order, name)
	return task
}

func (m TaskPaneModel) indexOf(name string) int {
	for i, n := range m.order {
		if n == name {
			return i
		}
	}
	return 0
}

// refresh redraws the viewport if name is the selected task.
func (m *TaskPaneModel) refresh(name string) {
	if selected := m.Selected(); selected != nil && selected.Name == name {
		m.updateViewportContent()
	}
}

func (m *TaskPaneModel) updateViewportContent() {
	task := m.Selected()
	if task == nil {
		m.viewport.SetContent("Waiting for tasks...")
		return
	}
	m.viewport.SetContent(strings.Join(task.Log, "\n"))
	m.viewport.GotoBottom()
}

func (m *TaskPaneModel) resizeViewport() {
	m.viewport.Width = max(m.width-listWidth-4, 10)
	m.viewport.Height = max(m.height-4, 5)
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
