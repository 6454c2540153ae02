// Package styles provides reusable lipgloss styles for runguard's
// terminal UI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
)

// Styles contains the styled lipgloss renderers.
type Styles struct {
	// Title styles
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	SectionHead lipgloss.Style

	// Text styles
	Normal    lipgloss.Style
	Dimmed    lipgloss.Style
	Bold      lipgloss.Style
	Highlight lipgloss.Style

	// Risk badge styles
	RiskSafe      lipgloss.Style
	RiskCaution   lipgloss.Style
	RiskDangerous lipgloss.Style

	// Container styles
	Panel      lipgloss.Style
	CommandBox lipgloss.Style
	Card       lipgloss.Style
	Selected   lipgloss.Style

	// Layout helpers
	Border   lipgloss.Style
	NoBorder lipgloss.Style
	Padded   lipgloss.Style
	Centered lipgloss.Style

	theme     *theme.Theme
	badgeBase lipgloss.Style
}

// New creates a Styles instance from the current theme.
func New() *Styles {
	return FromTheme(theme.Current)
}

// FromTheme creates styles from a specific theme.
func FromTheme(t *theme.Theme) *Styles {
	s := &Styles{theme: t}

	s.Title = lipgloss.NewStyle().
		Foreground(t.Mauve).
		Bold(true)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(t.Subtext).
		Italic(true)

	s.SectionHead = lipgloss.NewStyle().
		Foreground(t.Blue).
		Bold(true).
		MarginTop(1).
		MarginBottom(1)

	s.Normal = lipgloss.NewStyle().
		Foreground(t.Text)

	s.Dimmed = lipgloss.NewStyle().
		Foreground(t.Subtext)

	s.Bold = lipgloss.NewStyle().
		Foreground(t.Text).
		Bold(true)

	s.Highlight = lipgloss.NewStyle().
		Foreground(t.Pink).
		Bold(true)

	s.badgeBase = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true)

	s.RiskSafe = s.badgeBase.
		Foreground(t.Base).
		Background(t.Green)

	s.RiskCaution = s.badgeBase.
		Foreground(t.Base).
		Background(t.Yellow)

	s.RiskDangerous = s.badgeBase.
		Foreground(t.Base).
		Background(t.Red)

	s.Panel = lipgloss.NewStyle().
		Background(t.Surface).
		Padding(1, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay0)

	s.CommandBox = lipgloss.NewStyle().
		Background(t.Mantle).
		Foreground(t.Green).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay0)

	s.Card = lipgloss.NewStyle().
		Background(t.Surface0).
		Padding(1, 2).
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Overlay0)

	s.Selected = lipgloss.NewStyle().
		Background(t.Surface1).
		Border(lipgloss.ThickBorder()).
		BorderForeground(t.Mauve)

	s.Border = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Overlay0)

	s.NoBorder = lipgloss.NewStyle().
		Border(lipgloss.HiddenBorder())

	s.Padded = lipgloss.NewStyle().
		Padding(1, 2)

	s.Centered = lipgloss.NewStyle().
		Align(lipgloss.Center)

	return s
}

// RiskBadge returns the badge style for a risk level.
func (s *Styles) RiskBadge(risk string) lipgloss.Style {
	switch strings.ToLower(risk) {
	case "dangerous":
		return s.RiskDangerous
	case "caution":
		return s.RiskCaution
	case "safe":
		return s.RiskSafe
	default:
		return s.Dimmed
	}
}

// OutcomeBadge returns a badge style for an execution outcome, colored
// from the theme's outcome palette.
func (s *Styles) OutcomeBadge(outcome string) lipgloss.Style {
	return s.badgeBase.
		Foreground(s.theme.Base).
		Background(s.theme.OutcomeColor(outcome))
}

// RenderRiskBadge renders a risk level as a styled badge.
func (s *Styles) RenderRiskBadge(risk string) string {
	emoji := theme.RiskEmoji(risk)
	return s.RiskBadge(risk).Render(emoji + " " + strings.ToUpper(risk))
}

// RenderOutcomeBadge renders an execution outcome as a styled badge.
func (s *Styles) RenderOutcomeBadge(outcome string) string {
	icon := theme.OutcomeIcon(outcome)
	return s.OutcomeBadge(outcome).Render(icon + " " + strings.ToUpper(outcome))
}
