// Package config loads and persists runguard configuration with the
// precedence defaults < user file < project file < environment < flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/runguard/runguard/internal/core"
)

// Config mirrors the TOML schema.
type Config struct {
	General  GeneralConfig  `mapstructure:"general" json:"general"`
	Confirm  ConfirmConfig  `mapstructure:"confirm" json:"confirm"`
	Output   OutputConfig   `mapstructure:"output" json:"output"`
	Journal  JournalConfig  `mapstructure:"journal" json:"journal"`
	Backup   BackupConfig   `mapstructure:"backup" json:"backup"`
	Patterns PatternsConfig `mapstructure:"patterns" json:"patterns"`
}

// GeneralConfig holds execution-wide settings.
type GeneralConfig struct {
	// Shell overrides the interpreter for shell-mode commands; empty
	// falls back to $SHELL, then /bin/sh.
	Shell              string `mapstructure:"shell" json:"shell"`
	TimeoutSecs        int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	ConfirmTimeoutSecs int    `mapstructure:"confirm_timeout_seconds" json:"confirm_timeout_seconds"`
	DryRun             bool   `mapstructure:"dry_run" json:"dry_run"`
	MaxCommandLength   int    `mapstructure:"max_command_length" json:"max_command_length"`
	// FallbackRisk is assigned to commands the classifier cannot judge.
	// "safe" is not accepted: unjudgeable commands never skip the gate.
	FallbackRisk string `mapstructure:"fallback_risk" json:"fallback_risk"`
}

// ConfirmConfig maps each risk level to a confirmation mode
// (never, prompt, deny).
type ConfirmConfig struct {
	Safe      string `mapstructure:"safe" json:"safe"`
	Caution   string `mapstructure:"caution" json:"caution"`
	Dangerous string `mapstructure:"dangerous" json:"dangerous"`
}

// OutputConfig bounds and styles captured output.
type OutputConfig struct {
	MaxBytes      int  `mapstructure:"max_bytes" json:"max_bytes"`
	Color         bool `mapstructure:"color" json:"color"`
	TruncateLines int  `mapstructure:"truncate_lines" json:"truncate_lines"`
}

// JournalConfig controls the invocation journal.
type JournalConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled"`
	Path     string `mapstructure:"path" json:"path"`
	KeepDays int    `mapstructure:"keep_days" json:"keep_days"`
}

// BackupConfig controls pre-edit file backups.
type BackupConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" json:"dir"`
	Keep    int    `mapstructure:"keep" json:"keep"`
}

// PatternsConfig holds user-supplied risk patterns, merged after the
// built-ins. Safe patterns annotate matches but never lower a risk.
type PatternsConfig struct {
	Dangerous []string `mapstructure:"dangerous" json:"dangerous"`
	Caution   []string `mapstructure:"caution" json:"caution"`
	Safe      []string `mapstructure:"safe" json:"safe"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			TimeoutSecs:        300,
			ConfirmTimeoutSecs: 60,
			MaxCommandLength:   1000,
			FallbackRisk:       "caution",
		},
		Confirm: ConfirmConfig{
			Safe:      "never",
			Caution:   "prompt",
			Dangerous: "prompt",
		},
		Output: OutputConfig{
			MaxBytes:      4 * 1024 * 1024,
			Color:         true,
			TruncateLines: 20,
		},
		Journal: JournalConfig{
			Enabled:  true,
			KeepDays: 90,
		},
		Backup: BackupConfig{
			Enabled: true,
			Keep:    20,
		},
		Patterns: PatternsConfig{
			Dangerous: []string{},
			Caution:   []string{},
			Safe:      []string{},
		},
	}
}

// setDefaults seeds a viper instance with every known key.
func setDefaults(v *viper.Viper) {
	cfg := DefaultConfig()
	v.SetDefault("general.shell", cfg.General.Shell)
	v.SetDefault("general.timeout_seconds", cfg.General.TimeoutSecs)
	v.SetDefault("general.confirm_timeout_seconds", cfg.General.ConfirmTimeoutSecs)
	v.SetDefault("general.dry_run", cfg.General.DryRun)
	v.SetDefault("general.max_command_length", cfg.General.MaxCommandLength)
	v.SetDefault("general.fallback_risk", cfg.General.FallbackRisk)
	v.SetDefault("confirm.safe", cfg.Confirm.Safe)
	v.SetDefault("confirm.caution", cfg.Confirm.Caution)
	v.SetDefault("confirm.dangerous", cfg.Confirm.Dangerous)
	v.SetDefault("output.max_bytes", cfg.Output.MaxBytes)
	v.SetDefault("output.color", cfg.Output.Color)
	v.SetDefault("output.truncate_lines", cfg.Output.TruncateLines)
	v.SetDefault("journal.enabled", cfg.Journal.Enabled)
	v.SetDefault("journal.path", cfg.Journal.Path)
	v.SetDefault("journal.keep_days", cfg.Journal.KeepDays)
	v.SetDefault("backup.enabled", cfg.Backup.Enabled)
	v.SetDefault("backup.dir", cfg.Backup.Dir)
	v.SetDefault("backup.keep", cfg.Backup.Keep)
	v.SetDefault("patterns.dangerous", cfg.Patterns.Dangerous)
	v.SetDefault("patterns.caution", cfg.Patterns.Caution)
	v.SetDefault("patterns.safe", cfg.Patterns.Safe)
}

// envBindings maps config keys to their environment overrides.
var envBindings = map[string]string{
	"general.shell":                   "RUNGUARD_SHELL",
	"general.timeout_seconds":         "RUNGUARD_TIMEOUT_SECONDS",
	"general.confirm_timeout_seconds": "RUNGUARD_CONFIRM_TIMEOUT_SECONDS",
	"general.dry_run":                 "RUNGUARD_DRY_RUN",
	"general.max_command_length":      "RUNGUARD_MAX_COMMAND_LENGTH",
	"general.fallback_risk":           "RUNGUARD_FALLBACK_RISK",
	"output.max_bytes":                "RUNGUARD_MAX_OUTPUT_BYTES",
	"output.color":                    "RUNGUARD_COLOR",
	"journal.enabled":                 "RUNGUARD_JOURNAL_ENABLED",
	"journal.path":                    "RUNGUARD_JOURNAL_PATH",
	"backup.enabled":                  "RUNGUARD_BACKUP_ENABLED",
	"backup.dir":                      "RUNGUARD_BACKUP_DIR",
}

// LoadOptions directs Load.
type LoadOptions struct {
	// ProjectDir anchors the project config; empty means the working
	// directory.
	ProjectDir string
	// ConfigPath replaces the project config path entirely.
	ConfigPath string
	// FlagOverrides hold command-line values, the highest precedence.
	FlagOverrides map[string]any
}

// Load builds the effective configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userPath, projPath := ConfigPaths(opts.ProjectDir, opts.ConfigPath)
	if err := mergeConfigFile(v, userPath); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, projPath); err != nil {
		return nil, err
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	for key, val := range opts.FlagOverrides {
		v.Set(key, val)
	}

	cfg := &Config{}
	// Environment values arrive as strings; decode them weakly so
	// RUNGUARD_TIMEOUT_SECONDS=120 lands in an int field. Garbage like
	// "not-an-int" still fails.
	weak := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(cfg, weak); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeConfigFile merges a TOML file into v. Empty or missing paths are
// fine; unreadable or invalid files are not.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("merging config %s: %w", path, err)
	}
	return nil
}

// ConfigPaths returns the user and project config file paths.
func ConfigPaths(projectDir, override string) (string, string) {
	var userPath string
	if home, err := os.UserHomeDir(); err == nil {
		userPath = filepath.Join(home, ".runguard", "config.toml")
	}
	return userPath, projectConfigPath(projectDir, override)
}

// projectConfigPath resolves the project-level config location.
func projectConfigPath(projectDir, override string) string {
	if override != "" {
		return override
	}
	return filepath.Join(projectDir, ".runguard", "config.toml")
}

// validModes are the accepted confirmation modes.
var validModes = map[string]bool{"never": true, "prompt": true, "deny": true}

// Validate checks ranges and enumerations, aggregating every problem.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.General.TimeoutSecs <= 0 {
		problems = append(problems, "general.timeout_seconds must be positive")
	}
	if cfg.General.ConfirmTimeoutSecs <= 0 {
		problems = append(problems, "general.confirm_timeout_seconds must be positive")
	}
	if cfg.General.MaxCommandLength <= 0 {
		problems = append(problems, "general.max_command_length must be positive")
	}
	switch cfg.General.FallbackRisk {
	case "caution", "dangerous":
	default:
		problems = append(problems, "general.fallback_risk must be caution or dangerous")
	}

	for key, mode := range map[string]string{
		"confirm.safe":      cfg.Confirm.Safe,
		"confirm.caution":   cfg.Confirm.Caution,
		"confirm.dangerous": cfg.Confirm.Dangerous,
	} {
		if !validModes[mode] {
			problems = append(problems, fmt.Sprintf("%s must be never, prompt, or deny", key))
		}
	}

	if cfg.Output.MaxBytes <= 0 {
		problems = append(problems, "output.max_bytes must be positive")
	}
	if cfg.Output.TruncateLines < 0 {
		problems = append(problems, "output.truncate_lines must not be negative")
	}
	if cfg.Journal.KeepDays < 0 {
		problems = append(problems, "journal.keep_days must not be negative")
	}
	if cfg.Backup.Keep < 0 {
		problems = append(problems, "backup.keep must not be negative")
	}

	for _, group := range []struct {
		key      string
		patterns []string
		risk     core.RiskLevel
	}{
		{"patterns.dangerous", cfg.Patterns.Dangerous, core.RiskDangerous},
		{"patterns.caution", cfg.Patterns.Caution, core.RiskCaution},
		{"patterns.safe", cfg.Patterns.Safe, core.RiskSafe},
	} {
		for _, p := range group.patterns {
			if _, err := core.NewRule(p, group.risk, ""); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", group.key, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// BuildPolicy turns a validated config into an execution policy. Built-in
// rules come first, then user patterns in dangerous, caution, safe order.
func BuildPolicy(cfg *Config) (*core.Policy, error) {
	rules := core.BuiltinRules()
	for _, group := range []struct {
		patterns []string
		risk     core.RiskLevel
		desc     string
	}{
		{cfg.Patterns.Dangerous, core.RiskDangerous, "user dangerous pattern"},
		{cfg.Patterns.Caution, core.RiskCaution, "user caution pattern"},
		{cfg.Patterns.Safe, core.RiskSafe, "user safe pattern"},
	} {
		for _, p := range group.patterns {
			rule, err := core.NewRule(p, group.risk, group.desc)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	}

	return &core.Policy{
		Rules: rules,
		Confirm: map[core.RiskLevel]core.ConfirmMode{
			core.RiskSafe:      core.ConfirmMode(cfg.Confirm.Safe),
			core.RiskCaution:   core.ConfirmMode(cfg.Confirm.Caution),
			core.RiskDangerous: core.ConfirmMode(cfg.Confirm.Dangerous),
		},
		Timeout:          time.Duration(cfg.General.TimeoutSecs) * time.Second,
		ConfirmTimeout:   time.Duration(cfg.General.ConfirmTimeoutSecs) * time.Second,
		DryRun:           cfg.General.DryRun,
		FallbackRisk:     core.RiskLevel(cfg.General.FallbackRisk),
		MaxOutputBytes:   cfg.Output.MaxBytes,
		MaxCommandLength: cfg.General.MaxCommandLength,
	}, nil
}

// JournalPath resolves the journal location, falling back to the default
// under the home directory.
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".runguard", "journal.db"), nil
}

// BackupDir resolves the backup directory, falling back to the default
// under the home directory.
func (c *Config) BackupDir() (string, error) {
	if c.Backup.Dir != "" {
		return c.Backup.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".runguard", "backups"), nil
}
