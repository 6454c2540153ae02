package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
)

// RiskIndicator renders a risk level with emoji and label.
type RiskIndicator struct {
	Risk      string
	ShowEmoji bool
	ShowLabel bool
}

// NewRiskIndicator creates a risk indicator.
func NewRiskIndicator(risk string) *RiskIndicator {
	return &RiskIndicator{
		Risk:      risk,
		ShowEmoji: true,
		ShowLabel: true,
	}
}

// WithEmoji toggles the emoji.
func (r *RiskIndicator) WithEmoji(show bool) *RiskIndicator {
	r.ShowEmoji = show
	return r
}

// WithLabel toggles the text label.
func (r *RiskIndicator) WithLabel(show bool) *RiskIndicator {
	r.ShowLabel = show
	return r
}

// Render renders the indicator.
func (r *RiskIndicator) Render() string {
	t := theme.Current

	var parts []string
	if r.ShowEmoji {
		parts = append(parts, theme.RiskEmoji(r.Risk))
	}
	if r.ShowLabel {
		label := lipgloss.NewStyle().
			Foreground(t.RiskColor(r.Risk)).
			Bold(true).
			Render(strings.ToUpper(r.Risk))
		parts = append(parts, label)
	}

	return strings.Join(parts, " ")
}

// RenderCompact renders a single colored dot.
func (r *RiskIndicator) RenderCompact() string {
	t := theme.Current
	return lipgloss.NewStyle().
		Foreground(t.RiskColor(r.Risk)).
		Render("●")
}

// RiskDescription returns a one-line explanation of a risk level.
func RiskDescription(risk string) string {
	switch strings.ToLower(risk) {
	case "safe":
		return "read-only or easily reversed"
	case "caution":
		return "modifies files or system state"
	case "dangerous":
		return "destructive or hard to reverse"
	default:
		return "unrecognized risk level"
	}
}
