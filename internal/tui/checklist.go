// Package tui provides the terminal user interface for the watch command: a
// read-only live checklist of a stage-completion run's event stream.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/sprintforge/internal/protocol"
)

// Status icons for checklist steps.
const (
	iconDone    = "[✓]"
	iconFailed  = "[✗]"
	iconPending = "[○]"
	iconSkipped = "[-]"
)

type stepState int

const (
	stepPending stepState = iota
	stepRunning
	stepDone
	stepFailed
	stepSkipped
)

// ChecklistItem is one row of the watch checklist.
type ChecklistItem struct {
	EventType protocol.EventType
	Label     string
	State     stepState
}

// EventMsg carries one decoded stream envelope into the model.
type EventMsg struct {
	Resp *protocol.ChatResponse
}

// StreamDoneMsg is sent when the event stream ends.
type StreamDoneMsg struct {
	Err error
}

// WatchApp is the bubbletea model for the watch command.
type WatchApp struct {
	items     []ChecklistItem
	spin      spinner.Model
	summary   string
	errMsg    string
	projectID string
	done      bool
	quitting  bool

	// Styles
	headerStyle  lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	skippedStyle lipgloss.Style
	summaryStyle lipgloss.Style
	footerStyle  lipgloss.Style
}

// NewWatchApp creates a new WatchApp instance.
func NewWatchApp() *WatchApp {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &WatchApp{
		items: []ChecklistItem{
			{EventType: protocol.EventTeamMembersSynced, Label: "Sync team members"},
			{EventType: protocol.EventProjectCreated, Label: "Create project"},
			{EventType: protocol.EventSourcesUpdated, Label: "Link source documents"},
			{EventType: protocol.EventSprintPlanGenerated, Label: "Generate sprint plan"},
			{EventType: protocol.EventNarrativeSectionsStarted, Label: "Start narrative generation"},
			{EventType: protocol.EventCompleted, Label: "Finalize"},
		},
		spin: sp,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green

		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		skippedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		summaryStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (a *WatchApp) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *WatchApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case EventMsg:
		a.apply(msg.Resp)

	case StreamDoneMsg:
		a.done = true
		if msg.Err != nil && a.errMsg == "" {
			a.errMsg = msg.Err.Error()
		}
		// Steps the run never reached were skipped, not failed.
		for i := range a.items {
			if a.items[i].State == stepPending {
				a.items[i].State = stepSkipped
			}
		}
	}

	return a, nil
}

// apply folds one envelope into the checklist state.
func (a *WatchApp) apply(resp *protocol.ChatResponse) {
	switch resp.ConnectionStatus {
	case protocol.StatusEventsStreaming:
		if resp.Event == nil {
			return
		}
		if resp.Event.ProjectID != "" {
			a.projectID = resp.Event.ProjectID
		}
		for i := range a.items {
			if a.items[i].EventType != resp.Event.EventType {
				continue
			}
			switch resp.Event.EventStatus {
			case protocol.EventStarted:
				// narrative generation runs in the background; its started
				// event is as far as this stream goes.
				if resp.Event.EventType == protocol.EventNarrativeSectionsStarted {
					a.items[i].State = stepDone
				} else {
					a.items[i].State = stepRunning
				}
			case protocol.EventDone:
				a.items[i].State = stepDone
			}
			return
		}

	case protocol.StatusEventsCompleted:
		a.summary = resp.ResponseContent

	case protocol.StatusError:
		a.errMsg = resp.ErrorMessage
		for i := range a.items {
			if a.items[i].State == stepRunning {
				a.items[i].State = stepFailed
			}
		}
	}
}

// View implements tea.Model.
func (a *WatchApp) View() string {
	if a.quitting {
		return "Watch cancelled.\n"
	}

	var b strings.Builder

	b.WriteString(a.headerStyle.Render("=== SprintForge Completion Run ==="))
	b.WriteString("\n\n")

	for _, item := range a.items {
		var icon, label string
		switch item.State {
		case stepRunning:
			icon = a.runningStyle.Render(a.spin.View())
			label = a.runningStyle.Render(item.Label)
		case stepDone:
			icon = a.doneStyle.Render(iconDone)
			label = item.Label
		case stepFailed:
			icon = a.failedStyle.Render(iconFailed)
			label = a.failedStyle.Render(item.Label)
		case stepSkipped:
			icon = a.skippedStyle.Render(iconSkipped)
			label = a.skippedStyle.Render(item.Label)
		default:
			icon = a.pendingStyle.Render(iconPending)
			label = a.pendingStyle.Render(item.Label)
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", icon, label))
	}

	if a.projectID != "" {
		b.WriteString("\n")
		b.WriteString(a.summaryStyle.Render("Project: " + a.projectID))
		b.WriteString("\n")
	}

	if a.summary != "" {
		b.WriteString("\n")
		b.WriteString(a.summaryStyle.Render(a.summary))
		b.WriteString("\n")
	}

	if a.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(a.failedStyle.Render("Error: " + a.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.done {
		b.WriteString(a.footerStyle.Render("Stream closed. Press q to exit."))
	} else {
		b.WriteString(a.footerStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// Done reports whether the stream has closed.
func (a *WatchApp) Done() bool {
	return a.done
}

// NewWatchProgram creates a Bubbletea program for the watch TUI. Callers feed
// it EventMsg per decoded envelope and a final StreamDoneMsg.
func NewWatchProgram() (*tea.Program, *WatchApp) {
	app := NewWatchApp()
	p := tea.NewProgram(app)
	return p, app
}
