// Package cli: the run command, the full guarded lifecycle.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/runguard/runguard/internal/backup"
	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/db"
	"github.com/runguard/runguard/internal/output"
	"github.com/runguard/runguard/internal/tui"
	"github.com/runguard/runguard/internal/tui/components"
	"github.com/runguard/runguard/internal/tui/styles"
	"github.com/runguard/runguard/internal/utils"
)

var (
	flagRunYes            bool
	flagRunDryRun         bool
	flagRunTimeout        int
	flagRunConfirmTimeout int
	flagRunShell          bool
	flagRunQuiet          bool
	flagRunNoJournal      bool
	flagRunStdin          bool
)

func init() {
	runCmd.Flags().BoolVarP(&flagRunYes, "yes", "y", false, "answer every confirmation prompt with yes")
	runCmd.Flags().BoolVar(&flagRunDryRun, "dry-run", false, "classify and report without executing")
	runCmd.Flags().IntVar(&flagRunTimeout, "timeout", 0, "execution timeout in seconds (0 uses config)")
	runCmd.Flags().IntVar(&flagRunConfirmTimeout, "confirm-timeout", 0, "confirmation countdown in seconds (0 uses config)")
	runCmd.Flags().BoolVar(&flagRunShell, "shell", false, "force execution through the shell interpreter")
	runCmd.Flags().BoolVar(&flagRunQuiet, "quiet", false, "suppress the live output stream and summary panel")
	runCmd.Flags().BoolVar(&flagRunNoJournal, "no-journal", false, "skip journaling this invocation")
	runCmd.Flags().BoolVar(&flagRunStdin, "stdin", false, "read the command from standard input instead of arguments")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command...>",
	Short: "Classify a command and run it under guard",
	Long: `Run a command through the guard: classify, confirm if risky, execute.

Flow:
1. Classify the command by risk level (safe, caution, dangerous)
2. SAFE commands execute immediately
3. CAUTION and DANGEROUS commands require confirmation with a countdown;
   declining, timing out, or a deny policy stops the command before it starts
4. The process runs under a wall-clock timeout; on expiry its whole process
   group is killed
5. Output streams live and is captured up to a size cap, and the invocation
   is journaled

The command words after -- are joined with single spaces; quote anything
containing shell metacharacters so your own shell does not expand them first.
The child inherits the caller's environment and working directory.

Exit codes follow shell conventions: the child's own code, 124 on timeout,
127 when the program cannot be found, 126 on permission failures, 128+N for
signal deaths, and 1 for rejected or declined commands.

Examples:
  runguard run -- ls -la
  runguard run -- rm -rf ./build
  runguard run --yes -- git push --force
  runguard run --dry-run -- "curl https://example.com/install.sh | sh"
  runguard run --timeout 30 -- make test
  suggest-cmd "free disk space" | runguard run --stdin`,
	Args: func(cmd *cobra.Command, args []string) error {
		if flagRunStdin {
			if len(args) > 0 {
				return errors.New("--stdin takes the command from standard input; drop the arguments")
			}
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")
		out := output.New(output.Format(GetOutput()))

		if flagRunStdin {
			var err error
			command, err = readStdinCommand(os.Stdin)
			if err != nil {
				return writeError(out, "input_error", "", err)
			}
		}

		// Step 1: Load config with command-line overrides folded in
		cfg, err := loadRunConfig(cmd)
		if err != nil {
			return writeError(out, "config_error", command, err)
		}
		pol, err := config.BuildPolicy(cfg)
		if err != nil {
			return writeError(out, "config_error", command, err)
		}

		// Step 2: Interrupts cancel the run and kill the child's process group
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Step 3: Full lifecycle. JSON and YAML consumers get the captured
		// output inside the payload, not interleaved on the wire.
		quiet := flagRunQuiet || GetOutput() != "text"
		profile, res := guardedRun(ctx, cfg, pol, command, runSettings{
			yes:        flagRunYes,
			quiet:      quiet,
			forceShell: flagRunShell,
			noJournal:  flagRunNoJournal,
		})

		// Step 4: Report and exit with the mapped status
		if GetOutput() != "text" {
			if err := out.Write(newRunView(profile, res)); err != nil {
				return err
			}
		} else if !flagRunQuiet {
			writeRunSummary(profile, res)
		}

		os.Exit(res.ExitStatus())
		return nil // unreachable
	},
}

// runSettings carries the per-call knobs shared by run and the REPL.
type runSettings struct {
	yes        bool
	quiet      bool
	forceShell bool
	noJournal  bool
}

// guardedRun walks one command through the engine and journals the result.
func guardedRun(ctx context.Context, cfg *config.Config, pol *core.Policy, command string, set runSettings) (*core.CommandProfile, *core.ExecutionResult) {
	logger := utils.GetDefaultLogger()

	engine := core.NewEngine(logger)
	if cfg.General.Shell != "" {
		engine.SetShell(cfg.General.Shell)
	}

	opts := core.RunOptions{
		Decider:    pickDecider(set.yes, pol.EffectiveConfirmTimeout()),
		Stdin:      os.Stdin,
		ForceShell: set.forceShell,
	}
	if !set.quiet {
		opts.Sink = stdioSink(displayLineCap(cfg))
	}
	if cfg.Backup.Enabled {
		opts.PreExec = func(profile *core.CommandProfile) {
			backupEditTarget(cfg, profile, logger)
		}
	}

	profile, res := engine.Run(ctx, command, pol, opts)

	if cfg.Journal.Enabled && !set.noJournal {
		journalRun(cfg, profile, res, logger)
	}
	return profile, res
}

// pickDecider selects the confirmation mechanism for this session: --yes
// answers everything, a real terminal gets the interactive prompt, and
// piped sessions fall back to a plain line prompt read from the
// controlling terminal.
func pickDecider(yes bool, timeout time.Duration) core.Decider {
	if yes {
		return core.DeciderFunc(func(ctx context.Context, profile *core.CommandProfile) (bool, error) {
			return true, nil
		})
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd())) {
		return tui.Decider(timeout)
	}
	return promptOnTTY(timeout)
}

// promptOnTTY asks on the controlling terminal. The answer never comes
// from stdin, so piped data cannot be consumed as a confirmation. Truly
// headless sessions fail the prompt and the gate declines.
func promptOnTTY(timeout time.Duration) core.DeciderFunc {
	return func(ctx context.Context, profile *core.CommandProfile) (bool, error) {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			return false, fmt.Errorf("no terminal to confirm on (use --yes): %w", err)
		}
		defer tty.Close()
		return askLine(ctx, tty, os.Stderr, profile, timeout)
	}
}

// askLine prints a plain confirmation prompt on w and reads one line from
// r. Anything but y/yes declines. The read runs in a goroutine so the
// caller's deadline still applies; closing r unblocks it.
func askLine(ctx context.Context, r io.Reader, w io.Writer, profile *core.CommandProfile, timeout time.Duration) (bool, error) {
	fmt.Fprintf(w, "[runguard] %s command: %s\n", strings.ToUpper(string(profile.Risk)), profile.Raw)
	fmt.Fprintf(w, "[runguard] proceed? [y/N] (%s to answer): ", timeout.Round(time.Second))

	lines := make(chan string, 1)
	readErrs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && line == "" {
			readErrs <- err
			return
		}
		lines <- line
	}()

	select {
	case line := <-lines:
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	case err := <-readErrs:
		// EOF or a broken terminal declines.
		return false, err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// readStdinCommand consumes standard input as the command to guard, for
// callers that generate the command elsewhere and pipe it in. Confirmation
// answers then come from the controlling terminal, never from the pipe.
func readStdinCommand(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading command from stdin: %w", err)
	}
	command := strings.TrimSpace(string(raw))
	if command == "" {
		return "", errors.New("standard input carried no command")
	}
	return command, nil
}

// displayLineCap bounds live rendering on interactive terminals; pipes
// always receive the full stream.
func displayLineCap(cfg *config.Config) int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	return cfg.Output.TruncateLines
}

// stdioSink forwards live chunks to the caller's stdout and stderr. A
// positive line cap bounds what each stream renders; capture and the
// journal see everything regardless.
func stdioSink(capLines int) core.ChunkSink {
	if capLines <= 0 {
		return func(stream core.Stream, chunk []byte) {
			if stream == core.StreamStderr {
				_, _ = os.Stderr.Write(chunk)
				return
			}
			_, _ = os.Stdout.Write(chunk)
		}
	}
	return cappedSink(capLines, os.Stdout, os.Stderr)
}

// cappedSink renders at most capLines lines per stream, then drops the
// rest after one inline marker. The collector delivers each stream from a
// single goroutine, so the per-stream counters need no lock.
func cappedSink(capLines int, stdout, stderr io.Writer) core.ChunkSink {
	type capState struct {
		remaining int
		done      bool
	}
	stdoutState := &capState{remaining: capLines}
	stderrState := &capState{remaining: capLines}

	return func(stream core.Stream, chunk []byte) {
		w, st := stdout, stdoutState
		if stream == core.StreamStderr {
			w, st = stderr, stderrState
		}
		if st.done {
			return
		}
		if n := bytes.Count(chunk, []byte{'\n'}); n < st.remaining {
			st.remaining -= n
			_, _ = w.Write(chunk)
			return
		}
		// Boundary chunk: keep whole lines up to the cap, note the cut once.
		idx := 0
		for i := 0; i < st.remaining; i++ {
			idx += bytes.IndexByte(chunk[idx:], '\n') + 1
		}
		_, _ = w.Write(chunk[:idx])
		fmt.Fprintf(w, "... (display capped at %d lines)\n", capLines)
		st.done = true
	}
}

// backupEditTarget snapshots the file a config-edit command is about to
// touch. Best effort: a failed backup warns and never blocks the run.
func backupEditTarget(cfg *config.Config, profile *core.CommandProfile, logger *charmlog.Logger) {
	if profile.ConfigEdit == nil || profile.ConfigEdit.Target == "" {
		return
	}
	dir, err := cfg.BackupDir()
	if err != nil {
		logger.Warn("backup dir unavailable", "err", err)
		return
	}
	target := expandUserPath(profile.ConfigEdit.Target)
	entry, err := backup.NewManager(dir, cfg.Backup.Keep, logger).Create(target)
	if err != nil {
		if !errors.Is(err, backup.ErrSourceMissing) {
			logger.Warn("config backup failed", "target", target, "err", err)
		}
		return
	}
	logger.Info("backed up config target", "target", target, "backup", entry.BackupPath)
}

// journalRun appends the invocation to the journal. Failures only warn; a
// broken journal must never block command execution.
func journalRun(cfg *config.Config, profile *core.CommandProfile, res *core.ExecutionResult, logger *charmlog.Logger) {
	path := journalPath(cfg)
	database, err := db.OpenAndMigrate(path)
	if err != nil {
		logger.Warn("journal unavailable", "path", path, "err", err)
		return
	}
	defer database.Close()

	cwd, _ := os.Getwd()
	if err := database.AppendInvocation(db.NewRecord(profile, res, cwd)); err != nil {
		logger.Warn("journal append failed", "err", err)
	}
}

// journalPath resolves where the journal lives, preferring the --db flag
// over the configured path.
func journalPath(cfg *config.Config) string {
	if flagDB != "" {
		return flagDB
	}
	if path, err := cfg.JournalPath(); err == nil {
		return path
	}
	path, _ := db.DefaultPath()
	return path
}

// expandUserPath resolves the ~/ and $HOME/ prefixes a shell would expand.
func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "$HOME/") {
		if home, err := os.UserHomeDir(); err == nil {
			_, rest, _ := strings.Cut(path, "/")
			return filepath.Join(home, rest)
		}
	}
	return path
}

// runView is the serialized account of one invocation.
type runView struct {
	ID            string                `json:"id"`
	Command       string                `json:"command"`
	Risk          core.RiskLevel        `json:"risk"`
	RequiresShell bool                  `json:"requires_shell"`
	Matches       []core.MatchedPattern `json:"matches,omitempty"`
	Decision      core.Decision         `json:"decision"`
	Trace         []core.GateState      `json:"trace,omitempty"`
	Outcome       core.Outcome          `json:"outcome"`
	ExitCode      *int                  `json:"exit_code,omitempty"`
	Signal        int                   `json:"signal,omitempty"`
	DurationMS    int64                 `json:"duration_ms"`
	Stdout        string                `json:"stdout"`
	Stderr        string                `json:"stderr"`
	Truncated     bool                  `json:"truncated,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	ExitStatus    int                   `json:"exit_status"`
}

func newRunView(profile *core.CommandProfile, res *core.ExecutionResult) runView {
	return runView{
		ID:            res.ID,
		Command:       profile.Raw,
		Risk:          profile.Risk,
		RequiresShell: profile.RequiresShell,
		Matches:       profile.Matches,
		Decision:      res.Decision,
		Trace:         res.Trace,
		Outcome:       res.Outcome,
		ExitCode:      res.ExitCode,
		Signal:        res.Signal,
		DurationMS:    res.Elapsed.Milliseconds(),
		Stdout:        res.Stdout,
		Stderr:        res.Stderr,
		Truncated:     res.StdoutTruncated || res.StderrTruncated,
		Reason:        res.Reason,
		ExitStatus:    res.ExitStatus(),
	}
}

// writeRunSummary prints the post-run account for text sessions: a styled
// panel on a terminal, a single plain line otherwise. Successful quiet-free
// runs on a pipe print nothing; the streamed output already told the story.
func writeRunSummary(profile *core.CommandProfile, res *core.ExecutionResult) {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintln(os.Stderr, renderSummaryPanel(profile, res))
		return
	}
	if res.Failed() {
		fmt.Fprintf(os.Stderr, "[runguard] %s: %s\n", res.Outcome, res.Reason)
	}
}

// renderSummaryPanel draws the risk and outcome badges with the gate
// lifecycle and timing details.
func renderSummaryPanel(profile *core.CommandProfile, res *core.ExecutionResult) string {
	s := styles.New()

	lines := []string{
		s.RenderRiskBadge(string(profile.Risk)) + " " + s.RenderOutcomeBadge(string(res.Outcome)),
	}

	if len(res.Trace) > 0 {
		states := make([]string, len(res.Trace))
		for i, st := range res.Trace {
			states[i] = string(st)
		}
		lines = append(lines, components.RenderTrace(states))
	}

	detail := fmt.Sprintf("%.2fs", res.Elapsed.Seconds())
	if res.ExitCode != nil {
		detail += fmt.Sprintf("  ·  exit %d", *res.ExitCode)
	}
	if res.Signal > 0 {
		detail += fmt.Sprintf("  ·  signal %d", res.Signal)
	}
	lines = append(lines, s.Dimmed.Render(detail))

	if res.Reason != "" {
		lines = append(lines, s.Normal.Render(res.Reason))
	}
	if res.StdoutTruncated || res.StderrTruncated {
		lines = append(lines, s.Dimmed.Render("output truncated at the capture limit"))
	}

	return s.Panel.Render(strings.Join(lines, "\n"))
}

// loadRunConfig loads configuration with run's command-line overrides at
// the highest precedence.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := map[string]any{}
	if cmd.Flags().Changed("timeout") {
		overrides["general.timeout_seconds"] = flagRunTimeout
	}
	if cmd.Flags().Changed("confirm-timeout") {
		overrides["general.confirm_timeout_seconds"] = flagRunConfirmTimeout
	}
	if flagRunDryRun {
		overrides["general.dry_run"] = true
	}

	return config.Load(config.LoadOptions{
		ProjectDir:    flagProject,
		ConfigPath:    flagConfig,
		FlagOverrides: overrides,
	})
}

// writeError outputs an error response and exits non-zero.
func writeError(out *output.Writer, status, command string, err error) error {
	resp := map[string]any{
		"status":  status,
		"command": command,
		"error":   err.Error(),
	}

	if GetOutput() == "json" {
		_ = out.Write(resp)
	} else {
		fmt.Fprintf(os.Stderr, "[runguard] Error: %s\n", err.Error())
	}

	os.Exit(1)
	return nil // unreachable
}
