// Gradient text effects for headers and banners.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
)

// Gradient represents a color gradient for text.
type Gradient struct {
	Colors []lipgloss.Color
}

// NewGradient creates a gradient from the given colors.
func NewGradient(colors ...lipgloss.Color) *Gradient {
	return &Gradient{Colors: colors}
}

// HeaderGradient returns the mauve-to-blue gradient used for titles.
func HeaderGradient() *Gradient {
	t := theme.Current
	return NewGradient(t.Mauve, t.Pink, t.Blue)
}

// RiskGradient returns a gradient spanning the risk scale, safe to
// dangerous.
func RiskGradient() *Gradient {
	t := theme.Current
	return NewGradient(t.Green, t.Yellow, t.Red)
}

// Render applies the gradient to a string. Characters are colored
// according to their position in the gradient.
func (g *Gradient) Render(s string) string {
	if len(g.Colors) == 0 || len(s) == 0 {
		return s
	}

	runes := []rune(s)
	result := ""

	for i, r := range runes {
		colorIdx := (i * (len(g.Colors) - 1)) / max(len(runes)-1, 1)
		if colorIdx >= len(g.Colors) {
			colorIdx = len(g.Colors) - 1
		}

		style := lipgloss.NewStyle().Foreground(g.Colors[colorIdx])
		result += style.Render(string(r))
	}

	return result
}

// GradientTitle renders a title with the header gradient.
func GradientTitle(text string) string {
	return HeaderGradient().Render(text)
}
