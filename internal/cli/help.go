// Package cli implements colorized help and quick reference card using lipgloss.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	rootCmd.AddCommand(referenceCmd)
}

// referenceCmd prints the same card the bare invocation shows, for people
// who already typed a subcommand name.
var referenceCmd = &cobra.Command{
	Use:   "reference",
	Short: "Print the quick reference card",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		showQuickReference()
	},
}

// Catppuccin Mocha color palette
var (
	colorMauve   = lipgloss.Color("#cba6f7") // Title
	colorBlue    = lipgloss.Color("#89b4fa") // Section headers
	colorGreen   = lipgloss.Color("#a6e3a1") // Commands, SAFE level
	colorYellow  = lipgloss.Color("#f9e2af") // Flags, CAUTION level
	colorRed     = lipgloss.Color("#f38ba8") // DANGEROUS level
	colorOverlay = lipgloss.Color("#6c7086") // Muted text
	colorBase    = lipgloss.Color("#1e1e2e") // Background
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	flagStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	dangerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	cautionStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	safeStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorOverlay)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Background(colorBase).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

func showQuickReference() {
	width := clampWidth(detectWidth())
	useUnicode := supportsUnicode()

	border := lipgloss.RoundedBorder()
	if !useUnicode {
		border = lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}
	}

	container := boxStyle.Copy().Border(border).Width(width)

	titleText := " RUNGUARD QUICK REFERENCE — Guarded Command Execution "
	titleRendered := gradientText(titleText, []lipgloss.Color{colorMauve, colorBlue})
	if !useUnicode {
		titleRendered = "RUNGUARD QUICK REFERENCE - Guarded Command Execution"
	}
	title := titleStyle.Copy().Width(width - 4).Align(lipgloss.Center).Render(titleRendered)

	start := renderSection(useUnicode, "🔷 RUN COMMANDS", []string{
		bullet("runguard run -- ls -la", "safe commands run immediately"),
		bullet("runguard run -- rm -rf ./build", "risky commands ask for confirmation first"),
		bullet("runguard run --dry-run -- <cmd>", "classify and report without executing"),
		bullet("runguard run --yes --timeout 30 -- <cmd>", "pre-confirm, bound the runtime"),
		bullet("runguard shell", "interactive guarded shell"),
	})

	inspect := renderSection(useUnicode, "🔶 INSPECT", []string{
		bullet("runguard check \"curl ... | sh\"", "show risk, matches, shell requirement"),
		bullet("runguard check --exit-code <cmd>", "exit 1 when confirmation would be needed"),
		bullet("runguard history --failed", "browse the execution journal"),
		bullet("runguard history show <id>", "one journal entry in full"),
		bullet("runguard backup list", "config-file backups taken before edits"),
	})

	configure := renderSection(useUnicode, "🛡️ CONFIGURE", []string{
		bullet("runguard config set general.timeout_seconds 120", "project config (.runguard/config.toml)"),
		bullet("runguard config set confirm.dangerous deny --global", "user config (~/.runguard/config.toml)"),
		bullet("runguard patterns add \"terraform\\s+destroy\" -r dangerous", "tighten the safety net"),
		bullet("runguard patterns list", "see every effective pattern"),
	})

	levels := riskLegend(useUnicode)
	flags := flagLegend(useUnicode)
	footer := footerLegend(useUnicode)

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		start,
		inspect,
		configure,
		levels,
		flags,
		footer,
	)

	fmt.Println(container.Render(content))
}

func clampWidth(w int) int {
	if w < 72 {
		return 72
	}
	if w > 100 {
		return 100
	}
	return w
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	// fall back to environment or default
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func supportsUnicode() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	locale := strings.ToLower(strings.Join([]string{
		os.Getenv("LC_ALL"),
		os.Getenv("LC_CTYPE"),
		os.Getenv("LANG"),
	}, " "))
	if strings.Contains(termEnv, "dumb") {
		return false
	}
	return strings.Contains(locale, "utf-8") || strings.Contains(locale, "utf8")
}

func gradientText(text string, colors []lipgloss.Color) string {
	if len(colors) == 0 || !supportsUnicode() {
		return text
	}
	runes := []rune(text)
	segments := len(colors)
	if segments == 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}
	// Handle single character case to avoid division by zero
	if len(runes) <= 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}

	var b strings.Builder
	for i, r := range runes {
		// simple linear gradient selection
		idx := i * (segments - 1) / (len(runes) - 1)
		b.WriteString(lipgloss.NewStyle().Foreground(colors[idx]).Render(string(r)))
	}
	return b.String()
}

func bullet(command, desc string) string {
	return commandStyle.Render("  "+command) + mutedStyle.Render("  "+desc)
}

func renderSection(useUnicode bool, title string, lines []string) string {
	if !useUnicode {
		title = strings.TrimLeft(title, "🔷🔶🛡️ ") // strip icons for ASCII fallback
	}
	header := sectionStyle.Render(title)
	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func riskLegend(useUnicode bool) string {
	dang := "DANGEROUS (confirm)"
	caut := "CAUTION (confirm)"
	safe := "SAFE (auto)"
	if useUnicode {
		dang = "🔴 " + dang
		caut = "🟡 " + caut
		safe = "🟢 " + safe
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("🎯 RISK LEVELS"),
		fmt.Sprintf("  %s   %s   %s", dangerStyle.Render(dang), cautionStyle.Render(caut), safeStyle.Render(safe)),
	)
}

func flagLegend(useUnicode bool) string {
	prefix := "🚩 GLOBAL FLAGS"
	if !useUnicode {
		prefix = "FLAGS"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render(prefix),
		flagStyle.Render("  -j, --json")+mutedStyle.Render("            structured output"),
		flagStyle.Render("  -o, --output <fmt>")+mutedStyle.Render("    text, json, yaml"),
		flagStyle.Render("  -C, --project <dir>")+mutedStyle.Render("   operate on another project"),
		flagStyle.Render("  -c, --config <path>")+mutedStyle.Render("   project config file"),
		flagStyle.Render("  --db <path>")+mutedStyle.Render("           journal database path"),
	)
}

func footerLegend(useUnicode bool) string {
	shell := "runguard shell"
	help := "runguard <command> --help"
	if !useUnicode {
		return mutedStyle.Render("SHELL: " + shell + "   HELP: " + help)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		mutedStyle.Render("SHELL: "), commandStyle.Render(shell),
		mutedStyle.Render("   HELP: "), commandStyle.Render(help),
	)
}
