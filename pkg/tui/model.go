// Package tui is a terminal dashboard for driving a plan run: a Bubble
// Tea model that consumes the executor's event channel and renders step
// progress, guard/intervention markers, and the terminal verdict.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/relaykit/chainforge/pkg/engine"
	"github.com/relaykit/chainforge/pkg/event"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
)

// StepState tracks the status of one step as rendered in the step list.
type StepState struct {
	ID       string
	Tool     string
	Status   string // "pending", "running", "success", "failed", "skipped", "intervention"
	Duration time.Duration
	Output   any
}

// Model is the Bubble Tea model for the run dashboard.
type Model struct {
	plan     *plan.Plan
	steps    []StepState
	selected int
	verdict  event.Verdict
	status   string // "idle", "running", "done"
	firstErr string
	width    int
	height   int
	cancel   context.CancelFunc
	events   <-chan event.Event
	initCmd  tea.Cmd
	spinner  spinner.Model
}

// NewModel builds a dashboard model for p, not yet running.
func NewModel(p *plan.Plan) Model {
	steps := make([]StepState, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, StepState{ID: s.ID, Tool: s.Tool, Status: "pending"})
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	return Model{plan: p, steps: steps, status: "idle", spinner: sp}
}

// --- messages ---

type engineEventMsg event.Event

type runDoneMsg struct{}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return runDoneMsg{}
		}
		return engineEventMsg(ev)
	}
}

// StartRun launches the executor against reg and arms the model to begin
// feeding its events in via Bubble Tea messages once the program calls
// Init — the run itself does not begin producing events until something
// receives from the channel, matching the executor's back-pressure model.
func (m Model) StartRun(ctx context.Context, reg *registry.Registry) Model {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.status = "running"
	m.events = engine.New(m.plan, reg).Run(runCtx)
	m.initCmd = waitForEvent(m.events)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.initCmd, m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.steps)-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case engineEventMsg:
		m.applyEvent(event.Event(msg))
		return m, waitForEvent(m.events)

	case runDoneMsg:
		m.status = "done"

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) applyEvent(ev event.Event) {
	switch ev.Kind {
	case event.KindStepStart:
		m.setStatus(ev.StepID, "running")
	case event.KindStepComplete:
		m.setStatus(ev.StepID, "success")
		m.setOutput(ev.StepID, ev.Output, time.Duration(ev.DurationMs)*time.Millisecond)
	case event.KindStepSkipped:
		m.setStatus(ev.StepID, "skipped")
	case event.KindInterventionNeeded:
		m.setStatus(ev.StepID, "intervention")
	case event.KindError:
		m.setStatus(ev.StepID, "failed")
	case event.KindFinish:
		m.verdict = ev.Verdict
		m.firstErr = ev.FirstError
	}
}

func (m *Model) setStatus(stepID, status string) {
	for i := range m.steps {
		if m.steps[i].ID == stepID {
			m.steps[i].Status = status
		}
	}
}

func (m *Model) setOutput(stepID string, output any, d time.Duration) {
	for i := range m.steps {
		if m.steps[i].ID == stepID {
			m.steps[i].Output = output
			m.steps[i].Duration = d
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	name := m.plan.Name
	if name == "" {
		name = m.plan.ID
	}
	b.WriteString(header.Render("  chainforge: " + name))
	b.WriteString("\n\n")

	for i, s := range m.steps {
		icon := stepIcon(s.Status)
		if s.Status == "running" {
			icon = m.spinner.View()
		}
		line := fmt.Sprintf("  %s %s [%s]", icon, s.ID, s.Tool)
		if s.Duration > 0 {
			line += fmt.Sprintf("  %s", s.Duration.Truncate(time.Millisecond))
		}
		if i == m.selected {
			selStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
			b.WriteString(selStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	switch m.status {
	case "idle":
		b.WriteString(dim.Render("  Ready"))
	case "running":
		b.WriteString(dim.Render("  Running..."))
	case "done":
		b.WriteString(verdictLine(m.verdict, m.firstErr))
	}

	if m.selected < len(m.steps) {
		s := m.steps[m.selected]
		if s.Output != nil {
			b.WriteString("\n\n")
			b.WriteString(dim.Render("  Output:"))
			b.WriteString("\n" + renderOutput(s.Output))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(dim.Render("  q: quit  ↑/↓: navigate"))

	return b.String()
}

func verdictLine(v event.Verdict, firstErr string) string {
	switch v {
	case event.VerdictSuccess:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("40")).Render("  ✓ success")
	case event.VerdictInterventionNeeded:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Render("  ⚠ intervention needed")
	case event.VerdictCancelled:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240")).Render("  ⊘ cancelled")
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("  ✗ failure at %s", firstErr))
	}
}

// renderOutput renders a tool's structured output as markdown via glamour
// when it is plain text, falling back to a fixed-format dump otherwise.
func renderOutput(v any) string {
	if s, ok := v.(string); ok {
		out, err := glamour.Render(s, "dark")
		if err == nil {
			return out
		}
	}
	return fmt.Sprintf("  %v", v)
}

func stepIcon(status string) string {
	switch status {
	case "pending":
		return "○"
	case "running":
		return "◉"
	case "success":
		return "✓"
	case "skipped":
		return "⊘"
	case "intervention":
		return "⚠"
	case "failed":
		return "✗"
	default:
		return "?"
	}
}
