// Package cli implements the interactive guarded shell.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/tui/styles"
)

var (
	flagShellYes bool
)

func init() {
	shellCmd.Flags().BoolVarP(&flagShellYes, "yes", "y", false, "answer every confirmation prompt with yes")
	rootCmd.AddCommand(shellCmd)
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive guarded shell",
	Long: `Read commands line by line and run each through the full guard:
classify, confirm if risky, execute, journal.

Type exit or quit (or press ctrl+d) to leave. Pressing ctrl+c while a
command runs kills it and returns to the prompt; at the prompt it leaves
the shell. Lines can also be piped in; confirmation answers are then read
from the controlling terminal, never from the piped input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pol, err := config.BuildPolicy(cfg)
		if err != nil {
			return err
		}

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		prompt := shellPrompt(interactive)
		if interactive {
			fmt.Fprintln(os.Stderr, shellBanner())
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, prompt)
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			// Interrupts while a command runs kill only the command; the
			// handler is disarmed again before the next prompt.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			profile, res := guardedRun(ctx, cfg, pol, line, runSettings{yes: flagShellYes})
			stop()

			if interactive {
				fmt.Fprintln(os.Stderr, renderSummaryPanel(profile, res))
			} else if res.Failed() {
				fmt.Fprintf(os.Stderr, "[runguard] %s: %s\n", res.Outcome, res.Reason)
			}
		}
		if interactive {
			fmt.Fprintln(os.Stderr)
		}
		return scanner.Err()
	},
}

// shellPrompt renders the REPL prompt; empty when stdin is not a terminal.
func shellPrompt(interactive bool) string {
	if !interactive {
		return ""
	}
	s := styles.New()
	return s.Highlight.Render("runguard") + s.Dimmed.Render(" › ")
}

// shellBanner renders the greeting shown once when an interactive shell
// starts.
func shellBanner() string {
	s := styles.New()
	return styles.GradientTitle("runguard shell") + "\n" +
		s.Dimmed.Render("risky commands ask before they run · exit or quit to leave")
}
