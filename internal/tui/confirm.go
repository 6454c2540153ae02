// Package tui implements the interactive confirmation prompt shown
// before a risky command is allowed to execute. Built on Bubble Tea and
// Lip Gloss.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/tui/components"
	"github.com/runguard/runguard/internal/tui/styles"
	"github.com/runguard/runguard/internal/tui/theme"
)

// tickMsg drives the countdown, once per second.
type tickMsg time.Time

// ConfirmModel is the Bubble Tea model for one confirmation prompt.
type ConfirmModel struct {
	profile   *core.CommandProfile
	remaining int
	shimmer   *styles.ShimmerState
	styles    *styles.Styles
	width     int

	decided  bool
	accepted bool
	timedOut bool
}

// NewConfirmModel creates a prompt for profile with a countdown of
// timeout seconds.
func NewConfirmModel(profile *core.CommandProfile, timeout time.Duration) ConfirmModel {
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return ConfirmModel{
		profile:   profile,
		remaining: secs,
		shimmer:   styles.NewShimmerState(24),
		styles:    styles.New(),
		width:     80,
	}
}

// Accepted reports whether the user approved the command.
func (m ConfirmModel) Accepted() bool { return m.decided && m.accepted }

// TimedOut reports whether the countdown expired without an answer.
func (m ConfirmModel) TimedOut() bool { return m.timedOut }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m ConfirmModel) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model.
func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y", "enter":
			m.decided = true
			m.accepted = true
			return m, tea.Quit
		case "n", "N", "esc", "q", "ctrl+c":
			m.decided = true
			m.accepted = false
			return m, tea.Quit
		}

	case tickMsg:
		m.remaining--
		m.shimmer.Advance()
		if m.remaining <= 0 {
			m.decided = true
			m.timedOut = true
			return m, tea.Quit
		}
		return m, tick()
	}

	return m, nil
}

// View implements tea.Model.
func (m ConfirmModel) View() string {
	if m.decided {
		return ""
	}

	t := theme.Current
	var b strings.Builder

	riskColor := t.RiskColor(string(m.profile.Risk))
	header := m.shimmer.RenderShimmer("⚠ confirmation required", riskColor)
	b.WriteString(header + "\n\n")

	boxWidth := m.width - 8
	if boxWidth > 72 {
		boxWidth = 72
	}
	box := components.NewCommandBox(m.profile.Raw).
		WithRisk(string(m.profile.Risk)).
		WithMaxWidth(boxWidth)
	b.WriteString(box.Render() + "\n\n")

	indicator := components.NewRiskIndicator(string(m.profile.Risk)).Render()
	desc := m.styles.Dimmed.Render(" — " + components.RiskDescription(string(m.profile.Risk)))
	b.WriteString(indicator + desc + "\n")
	b.WriteString(styles.RiskGradient().Render("safe · caution · dangerous") + "\n")

	if m.profile.RequiresShell {
		b.WriteString(m.styles.Dimmed.Render("runs through a shell interpreter") + "\n")
	}

	if len(m.profile.Matches) > 0 {
		b.WriteString("\n" + m.styles.Dimmed.Render("matched:") + "\n")
		const maxShown = 4
		for i, match := range m.profile.Matches {
			if i == maxShown {
				rest := len(m.profile.Matches) - maxShown
				b.WriteString(m.styles.Dimmed.Render(fmt.Sprintf("  … and %d more", rest)) + "\n")
				break
			}
			line := "  • " + match.Pattern
			if match.Description != "" {
				line += " (" + match.Description + ")"
			}
			b.WriteString(lipgloss.NewStyle().Foreground(t.RiskColor(string(match.Risk))).Render(line) + "\n")
		}
	}

	if edit := m.profile.ConfigEdit; edit != nil && edit.Target != "" {
		warn := "✎ edits " + edit.Target
		if edit.Critical {
			warn += " (critical system file)"
			b.WriteString("\n" + styles.DangerGlow().Render(warn) + "\n")
		} else {
			b.WriteString("\n" + styles.WarningGlow().Render(warn) + "\n")
		}
	}

	countdown := fmt.Sprintf("⏳ %ds", m.remaining)
	countdownStyle := m.styles.Dimmed
	if m.remaining <= 10 {
		countdownStyle = lipgloss.NewStyle().Foreground(t.Red).Bold(true)
	}
	b.WriteString("\n" + m.styles.Bold.Render("proceed?") +
		m.styles.Dimmed.Render("  [y] yes  [n] no  ·  ") +
		countdownStyle.Render(countdown) + "\n")

	return b.String()
}

// Confirm runs the prompt on stderr and reports the user's decision.
// Countdown expiry surfaces as context.DeadlineExceeded so callers can
// tell a timeout from a decline.
func Confirm(ctx context.Context, profile *core.CommandProfile, timeout time.Duration) (bool, error) {
	m := NewConfirmModel(profile, timeout)
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	out, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("running confirmation prompt: %w", err)
	}
	final, ok := out.(ConfirmModel)
	if !ok {
		return false, fmt.Errorf("unexpected prompt model %T", out)
	}
	if final.TimedOut() {
		return false, context.DeadlineExceeded
	}
	return final.Accepted(), nil
}

// Decider adapts the prompt to the gate's decider contract.
func Decider(timeout time.Duration) core.DeciderFunc {
	return func(ctx context.Context, profile *core.CommandProfile) (bool, error) {
		return Confirm(ctx, profile, timeout)
	}
}
