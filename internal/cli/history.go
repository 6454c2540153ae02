// Package cli implements the history command over the execution journal.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/db"
	"github.com/runguard/runguard/internal/output"
	"github.com/runguard/runguard/internal/utils"
)

var (
	flagHistoryQuery   string
	flagHistoryRisk    string
	flagHistoryOutcome string
	flagHistorySince   string
	flagHistoryFailed  bool
	flagHistoryLimit   int
	flagHistoryDays    int
)

func init() {
	historyCmd.Flags().StringVarP(&flagHistoryQuery, "query", "q", "", "substring search over commands")
	historyCmd.Flags().StringVar(&flagHistoryRisk, "risk", "", "filter by risk level (safe, caution, dangerous)")
	historyCmd.Flags().StringVar(&flagHistoryOutcome, "outcome", "", "filter by outcome (success, nonzero_exit, timeout, ...)")
	historyCmd.Flags().StringVar(&flagHistorySince, "since", "", "only show invocations after this date (RFC3339 or YYYY-MM-DD)")
	historyCmd.Flags().BoolVar(&flagHistoryFailed, "failed", false, "only show invocations that did not succeed")
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 50, "max results to return")

	historyPruneCmd.Flags().IntVar(&flagHistoryDays, "days", 0, "drop entries older than this many days (0 uses config)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and search the execution journal",
	Long: `Browse and search journaled invocations, newest first.

Examples:
  runguard history                       # Recent invocations
  runguard history -q "rm -rf"           # Commands containing "rm -rf"
  runguard history --risk dangerous      # Only dangerous commands
  runguard history --outcome timeout     # Only timed-out runs
  runguard history --failed              # Everything that did not succeed
  runguard history --since 2026-08-01    # Invocations since a date`,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.OpenAndMigrate(GetDB())
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()

		var records []*db.Record
		if flagHistoryQuery != "" {
			records, err = database.SearchInvocations(flagHistoryQuery, flagHistoryLimit)
			if err != nil {
				return fmt.Errorf("searching journal: %w", err)
			}
			records = filterRecords(records)
		} else {
			opts := db.ListOptions{
				Limit:      flagHistoryLimit,
				Risk:       core.RiskLevel(flagHistoryRisk),
				Outcome:    core.Outcome(flagHistoryOutcome),
				FailedOnly: flagHistoryFailed,
			}
			if since, ok := parseSince(flagHistorySince); ok {
				opts.Since = since
			}
			records, err = database.ListInvocations(opts)
			if err != nil {
				return fmt.Errorf("listing journal: %w", err)
			}
		}

		if GetOutput() == "text" {
			writeHistoryTable(records)
			return nil
		}

		views := make([]historyView, 0, len(records))
		for _, r := range records {
			views = append(views, newHistoryView(r))
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(views)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one journal entry in full",
	Long: `Show a single journal entry. The ID may be abbreviated to any unique
prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := db.OpenAndMigrate(GetDB())
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()

		record, err := database.GetInvocation(args[0])
		if err != nil {
			return err
		}

		if GetOutput() == "text" {
			writeRecordText(record)
			return nil
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(record)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop journal entries past the retention window",
	Long: `Delete journal entries older than the retention window.

The window comes from journal.keep_days in config unless --days overrides it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days := flagHistoryDays
		if days <= 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			days = cfg.Journal.KeepDays
		}

		database, err := db.OpenAndMigrate(GetDB())
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()

		dropped, err := database.PruneInvocations(days)
		if err != nil {
			return fmt.Errorf("pruning journal: %w", err)
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":    "pruned",
			"dropped":   dropped,
			"keep_days": days,
		})
	},
}

type historyView struct {
	ID         string `json:"id"`
	CreatedAt  string `json:"created_at"`
	Command    string `json:"command"`
	Risk       string `json:"risk"`
	Decision   string `json:"decision"`
	Outcome    string `json:"outcome"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Cwd        string `json:"cwd,omitempty"`
}

func newHistoryView(r *db.Record) historyView {
	return historyView{
		ID:         r.ID,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		Command:    r.Command,
		Risk:       string(r.Risk),
		Decision:   string(r.Decision),
		Outcome:    string(r.Outcome),
		ExitCode:   r.ExitCode,
		DurationMS: r.DurationMS,
		Cwd:        r.Cwd,
	}
}

// filterRecords applies the flag filters in memory, for the search path
// where the query already drove the SQL.
func filterRecords(records []*db.Record) []*db.Record {
	since, _ := parseSince(flagHistorySince)

	kept := make([]*db.Record, 0, len(records))
	for _, r := range records {
		if flagHistoryRisk != "" && string(r.Risk) != flagHistoryRisk {
			continue
		}
		if flagHistoryOutcome != "" && string(r.Outcome) != flagHistoryOutcome {
			continue
		}
		if flagHistoryFailed && (r.Outcome == core.OutcomeSuccess || r.Outcome == core.OutcomeDryRun) {
			continue
		}
		if !since.IsZero() && r.CreatedAt.Before(since) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// parseSince accepts RFC3339 or a bare date; anything else drops the filter.
func parseSince(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func writeHistoryTable(records []*db.Record) {
	if len(records) == 0 {
		fmt.Println("journal is empty")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		exit := "-"
		if r.ExitCode != nil {
			exit = strconv.Itoa(*r.ExitCode)
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Risk),
			string(r.Outcome),
			exit,
			utils.Truncate(r.Command, 48),
		})
	}
	output.OutputTable([]string{"ID", "WHEN", "RISK", "OUTCOME", "EXIT", "COMMAND"}, rows)
}

func writeRecordText(r *db.Record) {
	fmt.Printf("ID:         %s\n", r.ID)
	fmt.Printf("When:       %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	fmt.Printf("Command:    %s\n", r.Command)
	fmt.Printf("Risk:       %s\n", strings.ToUpper(string(r.Risk)))
	fmt.Printf("Decision:   %s\n", r.Decision)
	fmt.Printf("Outcome:    %s\n", r.Outcome)
	if r.ExitCode != nil {
		fmt.Printf("Exit code:  %d\n", *r.ExitCode)
	}
	if r.Signal > 0 {
		fmt.Printf("Signal:     %d\n", r.Signal)
	}
	fmt.Printf("Duration:   %dms\n", r.DurationMS)
	fmt.Printf("Output:     %d bytes stdout, %d bytes stderr", r.StdoutBytes, r.StderrBytes)
	if r.Truncated {
		fmt.Printf(" (truncated)")
	}
	fmt.Println()
	if r.Cwd != "" {
		fmt.Printf("Directory:  %s\n", r.Cwd)
	}
	if len(r.Matches) > 0 {
		fmt.Printf("Matches:\n")
		for _, m := range r.Matches {
			fmt.Printf("  - [%s] %s\n", m.Risk, m.Pattern)
		}
	}
}

// shortID abbreviates a journal ID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
