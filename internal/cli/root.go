// Package cli implements the Cobra command-line interface for runguard.
package cli

import (
	"fmt"
	"os"
	"runtime"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/db"
	"github.com/runguard/runguard/internal/output"
	"github.com/runguard/runguard/internal/utils"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flag values
var (
	flagConfig  string
	flagOutput  string
	flagJSON    bool
	flagVerbose bool
	flagDB      string
	flagProject string
)

var rootCmd = &cobra.Command{
	Use:   "runguard",
	Short: "Guarded execution for untrusted shell commands",
	Long: `runguard classifies a shell command by risk before running it.

Every command passes through a classifier, a confirmation gate, and a
supervised executor. Risky commands (rm -rf, DROP TABLE, chmod 777, ...)
require an interactive confirmation with a countdown; declined or timed-out
commands never start. Output is captured with a size cap and every run can
be journaled.

Risk levels:
  DANGEROUS  - destructive or hard to reverse; confirmation required
  CAUTION    - modifies files or system state; confirmation required
  SAFE       - read-only or easily reversed; runs immediately`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := utils.InitDefaultLogger()
		if flagVerbose {
			logger.SetLevel(charmlog.DebugLevel)
		}
		if flagProject == "" {
			return nil
		}
		if err := os.Chdir(flagProject); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagProject, err)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// When no subcommand given, show quick reference card
		showQuickReference()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		userCfg, projCfg := config.ConfigPaths(flagProject, flagConfig)

		payload := map[string]any{
			"version":        version,
			"commit":         commit,
			"build_date":     date,
			"go_version":     runtime.Version(),
			"user_config":    userCfg,
			"project_config": projCfg,
			"journal_path":   GetDB(),
		}

		switch GetOutput() {
		case "json", "yaml":
			out := output.New(output.Format(GetOutput()))
			return out.Write(payload)
		case "text":
			fmt.Printf("runguard %s\n", version)
			fmt.Printf("  commit:  %s\n", commit)
			fmt.Printf("  built:   %s\n", date)
			fmt.Printf("  go:      %s\n", runtime.Version())
			fmt.Printf("  config:  %s\n", userCfg)
			fmt.Printf("  project: %s\n", projCfg)
			fmt.Printf("  journal: %s\n", GetDB())
			return nil
		default:
			return fmt.Errorf("unsupported format: %s", GetOutput())
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput returns the configured output format.
// Precedence: CLI flags > RUNGUARD_OUTPUT_FORMAT env > default
func GetOutput() string {
	if flagJSON {
		return "json"
	}
	if flagOutput != "text" {
		return flagOutput
	}

	if envFormat := os.Getenv("RUNGUARD_OUTPUT_FORMAT"); envFormat != "" {
		switch envFormat {
		case "json", "yaml", "text":
			return envFormat
		}
	}

	return flagOutput
}

// GetDB returns the journal database path.
// Precedence: --db flag > journal.path from config > ~/.runguard/journal.db
func GetDB() string {
	if flagDB != "" {
		return flagDB
	}
	if cfg, err := loadConfig(); err == nil {
		if path, err := cfg.JournalPath(); err == nil {
			return path
		}
	}
	path, _ := db.DefaultPath()
	return path
}

// loadConfig loads the effective configuration honoring the global
// --config and --project flags.
func loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ProjectDir: flagProject,
		ConfigPath: flagConfig,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "project config file path")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml (env: RUNGUARD_OUTPUT_FORMAT)")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "journal database path")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")

	rootCmd.AddCommand(versionCmd)
}
