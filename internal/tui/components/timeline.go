// Gate lifecycle timeline.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
)

// stageOrder is the happy path through the gate. Rejection branches off
// and is rendered separately.
var stageOrder = []string{"pending", "confirming", "confirmed", "executing", "done"}

// StageEvent is one visited gate state with an optional annotation.
type StageEvent struct {
	State  string
	Detail string
}

// Timeline renders the lifecycle of one guarded invocation.
type Timeline struct {
	Events  []StageEvent
	Current string
	Compact bool
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// AddEvent appends a visited state.
func (t *Timeline) AddEvent(state, detail string) *Timeline {
	t.Events = append(t.Events, StageEvent{State: state, Detail: detail})
	return t
}

// WithCurrent highlights a state.
func (t *Timeline) WithCurrent(state string) *Timeline {
	t.Current = state
	return t
}

// AsCompact switches to the single-line rendering.
func (t *Timeline) AsCompact() *Timeline {
	t.Compact = true
	return t
}

// Render renders the timeline.
func (t *Timeline) Render() string {
	if t.Compact {
		return t.renderCompact()
	}
	return t.renderFull()
}

func stateColor(th *theme.Theme, state string) lipgloss.Color {
	switch strings.ToLower(state) {
	case "confirmed", "done":
		return th.Green
	case "rejected":
		return th.Red
	case "pending", "executing":
		return th.Blue
	case "confirming":
		return th.Yellow
	default:
		return th.Subtext
	}
}

// renderCompact renders a single-line dot chain over the happy path. A
// rejected invocation ends in a red cross instead of the remaining dots.
func (t *Timeline) renderCompact() string {
	th := theme.Current

	rejected := t.hasReachedState("rejected")

	var parts []string
	for _, state := range stageOrder {
		reached := t.hasReachedState(state)
		if rejected && !reached {
			break
		}

		var color lipgloss.Color
		switch {
		case strings.EqualFold(state, t.Current):
			color = th.Mauve
		case reached:
			color = th.Green
		default:
			color = th.Overlay0
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(color).Render("●"))
	}

	if rejected {
		parts = append(parts, lipgloss.NewStyle().Foreground(th.Red).Bold(true).Render("✗"))
	}

	arrow := lipgloss.NewStyle().Foreground(th.Overlay0).Render(" → ")
	return strings.Join(parts, arrow)
}

// renderFull renders one line per visited state with details indented
// beneath it.
func (t *Timeline) renderFull() string {
	th := theme.Current

	var lines []string
	for i, event := range t.Events {
		isLast := i == len(t.Events)-1
		isCurrent := strings.EqualFold(event.State, t.Current)

		color := stateColor(th, event.State)
		node := "●"
		if isCurrent {
			node = "◉"
		}

		nodeStyle := lipgloss.NewStyle().Foreground(color).Bold(isCurrent)
		label := lipgloss.NewStyle().
			Foreground(color).
			Bold(isCurrent).
			Render(strings.ToUpper(event.State))

		lines = append(lines, fmt.Sprintf("%s %s", nodeStyle.Render(node), label))

		connectorStyle := lipgloss.NewStyle().Foreground(th.Overlay0)
		if event.Detail != "" {
			lines = append(lines, connectorStyle.Render("│  ")+
				lipgloss.NewStyle().Foreground(th.Subtext).Render(event.Detail))
		}
		if !isLast {
			lines = append(lines, connectorStyle.Render("│"))
		}
	}

	return strings.Join(lines, "\n")
}

func (t *Timeline) hasReachedState(state string) bool {
	for _, event := range t.Events {
		if strings.EqualFold(event.State, state) {
			return true
		}
	}
	return false
}

// RenderTrace renders a gate trace compactly, highlighting the final
// state.
func RenderTrace(states []string) string {
	tl := NewTimeline().AsCompact()
	for _, s := range states {
		tl.AddEvent(s, "")
	}
	if len(states) > 0 {
		tl.WithCurrent(states[len(states)-1])
	}
	return tl.Render()
}
