// Package cli implements the backup command over the config-file backup store.
package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/backup"
	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/output"
	"github.com/runguard/runguard/internal/utils"
)

var (
	flagBackupAt   string
	flagBackupKeep int
)

func init() {
	backupRestoreCmd.Flags().StringVar(&flagBackupAt, "at", "", "restore the backup taken at this time (RFC3339) instead of the newest")
	backupPruneCmd.Flags().IntVar(&flagBackupKeep, "keep", 0, "backups to keep per file (0 uses config)")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupDiffCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and restore config-file backups",
	Long: `Inspect and restore the backups runguard takes before a confirmed
command edits a configuration file.

Backups live under the backup directory (backup.dir in config, default
~/.runguard/backups) with the original path in a metadata sidecar.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List stored backups, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := backupManager()
		if err != nil {
			return err
		}

		path := ""
		if len(args) == 1 {
			path = expandUserPath(args[0])
		}
		entries, err := mgr.List(path)
		if err != nil {
			return err
		}

		if GetOutput() == "text" {
			writeBackupTable(entries)
			return nil
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(entries)
	},
}

var backupDiffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Diff a file against its newest backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cfg, err := backupManager()
		if err != nil {
			return err
		}

		entry, err := mgr.Latest(expandUserPath(args[0]))
		if err != nil {
			return err
		}
		res, err := mgr.Diff(entry)
		if err != nil {
			return err
		}

		if GetOutput() == "text" {
			if !res.Changed {
				fmt.Printf("%s is unchanged since %s\n", entry.OriginalPath, entry.CreatedAt.Local().Format(time.RFC3339))
				return nil
			}
			fmt.Printf("%s vs backup from %s (+%d -%d):\n\n", entry.OriginalPath,
				entry.CreatedAt.Local().Format(time.RFC3339), res.Insertions, res.Deletions)
			fmt.Println(utils.TruncateLines(res.Pretty, cfg.Output.TruncateLines))
			return nil
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"file":       entry.OriginalPath,
			"backup":     entry.BackupPath,
			"created_at": entry.CreatedAt,
			"changed":    res.Changed,
			"insertions": res.Insertions,
			"deletions":  res.Deletions,
		})
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore a file from its backup",
	Long: `Restore a file from its newest backup, or from the backup taken at a
given time with --at. The current file is backed up first, so a restore is
itself reversible.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := backupManager()
		if err != nil {
			return err
		}

		path := expandUserPath(args[0])
		var entry *backup.Entry
		if flagBackupAt != "" {
			entries, err := mgr.List(path)
			if err != nil {
				return err
			}
			entry, err = findBackupAt(entries, flagBackupAt)
			if err != nil {
				return err
			}
		} else {
			entry, err = mgr.Latest(path)
			if err != nil {
				return err
			}
		}

		if err := mgr.Restore(entry, ""); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":     "restored",
			"file":       entry.OriginalPath,
			"backup":     entry.BackupPath,
			"created_at": entry.CreatedAt,
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop old backups beyond the per-file keep limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cfg, err := backupManager()
		if err != nil {
			return err
		}

		keep := flagBackupKeep
		if keep <= 0 {
			keep = cfg.Backup.Keep
		}
		removed, err := mgr.Prune(keep)
		if err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":  "pruned",
			"removed": removed,
			"keep":    keep,
		})
	},
}

// backupManager builds the backup manager from the effective config.
func backupManager() (*backup.Manager, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	dir, err := cfg.BackupDir()
	if err != nil {
		return nil, nil, err
	}
	return backup.NewManager(dir, cfg.Backup.Keep, utils.GetDefaultLogger()), cfg, nil
}

// findBackupAt picks the entry taken at the requested time, to the second.
func findBackupAt(entries []*backup.Entry, at string) (*backup.Entry, error) {
	t, err := time.Parse(time.RFC3339, at)
	if err != nil {
		local, localErr := time.ParseInLocation("2006-01-02 15:04:05", at, time.Local)
		if localErr != nil {
			return nil, fmt.Errorf("parsing --at %q: %w", at, err)
		}
		t = local
	}
	for _, e := range entries {
		if e.CreatedAt.Truncate(time.Second).Equal(t.Truncate(time.Second)) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no backup taken at %s", at)
}

func writeBackupTable(entries []*backup.Entry) {
	if len(entries) == 0 {
		fmt.Println("no backups stored")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.FormatInt(e.Size, 10),
			utils.Truncate(e.OriginalPath, 56),
		})
	}
	output.OutputTable([]string{"WHEN", "BYTES", "FILE"}, rows)
}
