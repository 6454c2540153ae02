// Package theme provides the color scheme for runguard's terminal UI.
package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines a color scheme.
type Theme struct {
	// Primary colors
	Mauve    lipgloss.Color // Titles, accents
	Blue     lipgloss.Color // Section headers, dry runs
	Green    lipgloss.Color // Success, safe commands
	Yellow   lipgloss.Color // Caution, timeouts
	Red      lipgloss.Color // Dangerous, failures
	Peach    lipgloss.Color // Signals, missing programs
	Teal     lipgloss.Color // Info, secondary
	Pink     lipgloss.Color // Highlights
	Flamingo lipgloss.Color // Alternative accent

	// Text colors
	Text    lipgloss.Color // Normal text
	Subtext lipgloss.Color // Dimmed text

	// Surface colors
	Surface  lipgloss.Color // Panels, boxes
	Surface0 lipgloss.Color // Lighter surface
	Surface1 lipgloss.Color // Even lighter surface
	Base     lipgloss.Color // Background
	Mantle   lipgloss.Color // Darker background
	Crust    lipgloss.Color // Darkest background

	// Overlay colors
	Overlay0 lipgloss.Color
	Overlay1 lipgloss.Color
	Overlay2 lipgloss.Color

	// Meta
	Name   string
	IsDark bool
}

// FlavorName selects a color flavor.
type FlavorName string

const (
	FlavorMocha FlavorName = "mocha"
	FlavorLatte FlavorName = "latte"
)

// Current holds the active theme.
var Current = Mocha()

// SetTheme sets the current theme by flavor name. Unknown flavors fall
// back to the dark default.
func SetTheme(flavor FlavorName) {
	switch flavor {
	case FlavorLatte:
		Current = Latte()
	default:
		Current = Mocha()
	}
}

// RiskColor returns the color for a risk level.
func (t *Theme) RiskColor(risk string) lipgloss.Color {
	switch strings.ToLower(risk) {
	case "dangerous":
		return t.Red
	case "caution":
		return t.Yellow
	case "safe":
		return t.Green
	default:
		return t.Text
	}
}

// OutcomeColor returns the color for an execution outcome.
func (t *Theme) OutcomeColor(outcome string) lipgloss.Color {
	switch strings.ToLower(outcome) {
	case "success":
		return t.Green
	case "dry_run":
		return t.Blue
	case "nonzero_exit", "io_error":
		return t.Red
	case "signaled", "not_found":
		return t.Peach
	case "timeout":
		return t.Yellow
	case "permission_denied":
		return t.Red
	case "policy_rejected":
		return t.Mauve
	default:
		return t.Text
	}
}

// RiskEmoji returns the emoji for a risk level.
func RiskEmoji(risk string) string {
	switch strings.ToLower(risk) {
	case "dangerous":
		return "🔴"
	case "caution":
		return "🟡"
	case "safe":
		return "🟢"
	default:
		return "⚪"
	}
}

// OutcomeIcon returns the icon for an execution outcome.
func OutcomeIcon(outcome string) string {
	switch strings.ToLower(outcome) {
	case "success":
		return "✓"
	case "nonzero_exit":
		return "✗"
	case "signaled":
		return "⚡"
	case "timeout":
		return "⏰"
	case "not_found":
		return "?"
	case "permission_denied":
		return "⊘"
	case "policy_rejected":
		return "⛔"
	case "io_error":
		return "!"
	case "dry_run":
		return "○"
	default:
		return "?"
	}
}
