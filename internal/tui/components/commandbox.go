// Package components provides reusable terminal UI components for
// runguard prompts and summaries.
package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/tui/theme"
	"github.com/runguard/runguard/internal/utils"
)

// CommandBox renders a command in a styled box. The border color follows
// the command's risk level.
type CommandBox struct {
	Command  string
	Risk     string
	MaxWidth int
	ShowHint bool
}

// NewCommandBox creates a command box component.
func NewCommandBox(command string) *CommandBox {
	return &CommandBox{
		Command:  command,
		MaxWidth: 80,
	}
}

// WithRisk sets the risk level that colors the box.
func (c *CommandBox) WithRisk(risk string) *CommandBox {
	c.Risk = risk
	return c
}

// WithMaxWidth sets the maximum width.
func (c *CommandBox) WithMaxWidth(width int) *CommandBox {
	c.MaxWidth = width
	return c
}

// WithHint enables the edit hint below the command.
func (c *CommandBox) WithHint(show bool) *CommandBox {
	c.ShowHint = show
	return c
}

func (c *CommandBox) display() string {
	// Commands can carry escape sequences; never let them style the
	// prompt they are asking permission from.
	cmd := utils.SanitizeOutput(utils.StripANSI(c.Command))
	if c.MaxWidth > 0 {
		cmd = utils.Truncate(cmd, c.MaxWidth)
	}
	return cmd
}

func (c *CommandBox) borderColor() lipgloss.Color {
	if c.Risk == "" {
		return theme.Current.Overlay0
	}
	return theme.Current.RiskColor(c.Risk)
}

// Render renders the command box.
func (c *CommandBox) Render() string {
	t := theme.Current

	cmdStyle := lipgloss.NewStyle().
		Foreground(t.Green).
		Background(t.Mantle).
		Padding(0, 1)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(c.borderColor()).
		Padding(0, 1)

	content := cmdStyle.Render(c.display())

	if c.ShowHint {
		hint := lipgloss.NewStyle().
			Foreground(t.Subtext).
			Italic(true).
			Render("  (runs verbatim; edit and re-run to change)")
		content += hint
	}

	return boxStyle.Render(content)
}

// RenderCompact renders a minimal single-line command display.
func (c *CommandBox) RenderCompact() string {
	t := theme.Current

	cmd := utils.SanitizeOutput(utils.StripANSI(c.Command))
	cmd = utils.Truncate(cmd, 40)

	style := lipgloss.NewStyle().
		Foreground(t.Green).
		Background(t.Surface).
		Padding(0, 1)

	return style.Render(cmd)
}
