// Package cli implements the status command.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/backup"
	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/db"
	"github.com/runguard/runguard/internal/output"
	"github.com/runguard/runguard/internal/utils"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective guard environment",
	Long: `Show the effective configuration, pattern counts, journal and backup
state for the current project.

Useful for checking which config files are in play and where invocations
are being journaled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		project, err := projectPath()
		if err != nil {
			return err
		}
		userPath, projPath := config.ConfigPaths(project, flagConfig)

		view := statusView{
			Version: version,
			Project: project,
			Config: configStatus{
				UserPath:           userPath,
				UserPresent:        fileExists(userPath),
				ProjectPath:        projPath,
				ProjectPresent:     fileExists(projPath),
				DryRun:             cfg.General.DryRun,
				TimeoutSecs:        cfg.General.TimeoutSecs,
				ConfirmTimeoutSecs: cfg.General.ConfirmTimeoutSecs,
				FallbackRisk:       cfg.General.FallbackRisk,
				Confirm: map[string]string{
					"safe":      cfg.Confirm.Safe,
					"caution":   cfg.Confirm.Caution,
					"dangerous": cfg.Confirm.Dangerous,
				},
			},
			Patterns: patternStatus{
				Builtin: len(core.BuiltinRules()),
				User:    len(cfg.Patterns.Dangerous) + len(cfg.Patterns.Caution) + len(cfg.Patterns.Safe),
			},
		}

		fillJournalStatus(&view, cfg)
		fillBackupStatus(&view, cfg)

		if GetOutput() == "text" {
			writeStatusText(view)
			return nil
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(view)
	},
}

type configStatus struct {
	UserPath           string            `json:"user_path"`
	UserPresent        bool              `json:"user_present"`
	ProjectPath        string            `json:"project_path"`
	ProjectPresent     bool              `json:"project_present"`
	DryRun             bool              `json:"dry_run"`
	TimeoutSecs        int               `json:"timeout_seconds"`
	ConfirmTimeoutSecs int               `json:"confirm_timeout_seconds"`
	FallbackRisk       string            `json:"fallback_risk"`
	Confirm            map[string]string `json:"confirm"`
}

type patternStatus struct {
	Builtin int `json:"builtin"`
	User    int `json:"user"`
}

type journalStatus struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Present   bool   `json:"present"`
	Entries   int    `json:"entries"`
	LastEntry string `json:"last_entry,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

type backupStatus struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
}

type statusView struct {
	Version  string        `json:"version"`
	Project  string        `json:"project"`
	Config   configStatus  `json:"config"`
	Patterns patternStatus `json:"patterns"`
	Journal  journalStatus `json:"journal"`
	Backups  backupStatus  `json:"backups"`
}

// fillJournalStatus inspects the journal without creating one.
func fillJournalStatus(view *statusView, cfg *config.Config) {
	view.Journal.Enabled = cfg.Journal.Enabled
	view.Journal.Path = journalPath(cfg)
	view.Journal.Present = fileExists(view.Journal.Path)
	if !view.Journal.Present {
		return
	}

	journal, err := db.OpenAndMigrate(view.Journal.Path)
	if err != nil {
		view.Journal.LastError = err.Error()
		return
	}
	defer journal.Close()

	if n, err := journal.CountInvocations(); err == nil {
		view.Journal.Entries = n
	}
	if records, err := journal.ListInvocations(db.ListOptions{Limit: 1}); err == nil && len(records) > 0 {
		view.Journal.LastEntry = records[0].CreatedAt.Format(time.RFC3339)
	}
}

func fillBackupStatus(view *statusView, cfg *config.Config) {
	view.Backups.Enabled = cfg.Backup.Enabled
	dir, err := cfg.BackupDir()
	if err != nil {
		return
	}
	view.Backups.Dir = dir

	entries, err := backup.NewManager(dir, cfg.Backup.Keep, utils.GetDefaultLogger()).List("")
	if err != nil {
		return
	}
	view.Backups.Entries = len(entries)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeStatusText(view statusView) {
	mark := func(present bool) string {
		if present {
			return ""
		}
		return "  (missing)"
	}

	fmt.Printf("runguard %s\n\n", view.Version)
	fmt.Printf("Project:    %s\n", view.Project)
	fmt.Printf("Config:\n")
	fmt.Printf("  user:     %s%s\n", view.Config.UserPath, mark(view.Config.UserPresent))
	fmt.Printf("  project:  %s%s\n", view.Config.ProjectPath, mark(view.Config.ProjectPresent))
	fmt.Printf("  confirm:  safe=%s caution=%s dangerous=%s\n",
		view.Config.Confirm["safe"], view.Config.Confirm["caution"], view.Config.Confirm["dangerous"])
	fmt.Printf("  timeout:  %ds run, %ds confirm\n", view.Config.TimeoutSecs, view.Config.ConfirmTimeoutSecs)
	fmt.Printf("  fallback: %s\n", strings.ToUpper(view.Config.FallbackRisk))
	if view.Config.DryRun {
		fmt.Printf("  dry-run:  on\n")
	}
	fmt.Printf("Patterns:   %d builtin, %d user\n", view.Patterns.Builtin, view.Patterns.User)

	fmt.Printf("Journal:    %s%s\n", view.Journal.Path, mark(view.Journal.Present))
	if !view.Journal.Enabled {
		fmt.Printf("  journaling disabled\n")
	}
	if view.Journal.Present {
		fmt.Printf("  entries:  %d\n", view.Journal.Entries)
		if view.Journal.LastEntry != "" {
			fmt.Printf("  latest:   %s\n", view.Journal.LastEntry)
		}
	}

	fmt.Printf("Backups:    %s\n", view.Backups.Dir)
	if !view.Backups.Enabled {
		fmt.Printf("  backups disabled\n")
	}
	if view.Backups.Entries > 0 {
		fmt.Printf("  entries:  %d\n", view.Backups.Entries)
	}
}
