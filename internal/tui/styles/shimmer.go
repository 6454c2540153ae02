// Shimmer and glow effects for the confirmation prompt.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
)

// ShimmerState tracks a sweeping highlight animation. The confirmation
// prompt advances it once per countdown tick.
type ShimmerState struct {
	Position int
	Width    int
	Forward  bool
}

// NewShimmerState creates a shimmer animation state.
func NewShimmerState(width int) *ShimmerState {
	return &ShimmerState{
		Position: 0,
		Width:    width,
		Forward:  true,
	}
}

// Advance moves the shimmer position by one step. Returns true when the
// sweep reaches the right edge and turns around.
func (s *ShimmerState) Advance() bool {
	if s.Forward {
		s.Position++
		if s.Position >= s.Width {
			s.Forward = false
			return true
		}
	} else {
		s.Position--
		if s.Position <= 0 {
			s.Forward = true
		}
	}
	return false
}

// Reset rewinds the shimmer to the left edge.
func (s *ShimmerState) Reset() {
	s.Position = 0
	s.Forward = true
}

// RenderShimmer applies the highlight to text at the current position.
func (s *ShimmerState) RenderShimmer(text string, highlightColor lipgloss.Color) string {
	t := theme.Current
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}

	result := ""
	const shimmerWidth = 3

	for i, r := range runes {
		var style lipgloss.Style
		if abs(i-s.Position) < shimmerWidth {
			style = lipgloss.NewStyle().Foreground(highlightColor).Bold(true)
		} else {
			style = lipgloss.NewStyle().Foreground(t.Text)
		}
		result += style.Render(string(r))
	}

	return result
}

// GlowStyle creates a style with a "glow" effect using the surface colors.
func GlowStyle(baseColor lipgloss.Color) lipgloss.Style {
	t := theme.Current
	return lipgloss.NewStyle().
		Foreground(baseColor).
		Background(t.Surface).
		Bold(true).
		Padding(0, 1)
}

// FocusGlow returns a glowing style for focused elements.
func FocusGlow() lipgloss.Style {
	t := theme.Current
	return GlowStyle(t.Mauve)
}

// WarningGlow returns a glowing style for caution-level prompts.
func WarningGlow() lipgloss.Style {
	t := theme.Current
	return GlowStyle(t.Yellow)
}

// DangerGlow returns a glowing style for dangerous-level prompts.
func DangerGlow() lipgloss.Style {
	t := theme.Current
	return GlowStyle(t.Red)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
