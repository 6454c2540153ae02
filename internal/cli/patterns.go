package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/core"
	"github.com/runguard/runguard/internal/output"
)

var (
	flagPatternRisk     string
	flagPatternGlobal   bool
	flagPatternExitCode bool
	flagPatternFormat   string
)

func init() {
	patternsCmd.PersistentFlags().StringVarP(&flagPatternRisk, "risk", "r", "", "risk level (safe, caution, dangerous)")
	patternsAddCmd.Flags().BoolVarP(&flagPatternGlobal, "global", "g", false, "write to the user config instead of the project config")
	patternsRemoveCmd.Flags().BoolVarP(&flagPatternGlobal, "global", "g", false, "write to the user config instead of the project config")
	patternsTestCmd.Flags().BoolVar(&flagPatternExitCode, "exit-code", false, "exit 1 when the command would need confirmation")
	checkCmd.Flags().BoolVar(&flagPatternExitCode, "exit-code", false, "exit 1 when the command would need confirmation")
	patternsExportCmd.Flags().StringVarP(&flagPatternFormat, "format", "f", "json", "export format: json, yaml")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsTestCmd)
	patternsCmd.AddCommand(patternsAddCmd)
	patternsCmd.AddCommand(patternsRemoveCmd)
	patternsCmd.AddCommand(patternsExportCmd)

	// "runguard check" is an alias for "runguard patterns test".
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(checkCmd)
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage command classification patterns",
	Long: `Manage the regex patterns that classify commands into risk levels.

Every pattern is matched case-insensitively against the command and each of
its pipeline segments. When several patterns match, the highest severity
wins; all matches are reported. The built-in set cannot be edited; your own
patterns layer on top via the [patterns] config section.`,
}

var patternsTestCmd = &cobra.Command{
	Use:   "test <command...>",
	Short: "Show how a command would be classified",
	Long: `Classify a command without running it.

Prints the risk level, whether a shell interpreter is required, the parsed
argument vector, every matched pattern, and any config-file edit detected.

Use --exit-code to exit 1 when the command would need confirmation. That
makes the command usable as a pre-execution hook:

  runguard check --exit-code "rm -rf /" || echo blocked`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pol, err := config.BuildPolicy(cfg)
		if err != nil {
			return err
		}

		profile := core.Classify(command, pol)

		if GetOutput() == "text" {
			writeProfileText(profile, pol)
		} else {
			out := output.New(output.Format(GetOutput()))
			if err := out.Write(newCheckView(profile, pol)); err != nil {
				return err
			}
		}

		if flagPatternExitCode && profile.NeedsConfirmation(pol) {
			os.Exit(1)
		}
		return nil
	},
}

// checkCmd is an alias for "patterns test"
var checkCmd = &cobra.Command{
	Use:   "check <command...>",
	Short: "Alias for 'patterns test' - show how a command would be classified",
	Long:  `Alias for 'runguard patterns test'. See 'runguard patterns test --help' for details.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  patternsTestCmd.RunE,
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all patterns grouped by risk level",
	Long: `List the effective classification patterns, built-in and user-defined.

Use --risk to show a single level (safe, caution, dangerous).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		views := collectRuleViews(cfg)
		if flagPatternRisk != "" {
			risk, err := parseRisk(flagPatternRisk)
			if err != nil {
				return err
			}
			filtered := views[:0]
			for _, v := range views {
				if v.Risk == string(risk) {
					filtered = append(filtered, v)
				}
			}
			views = filtered
		}

		if GetOutput() == "text" {
			writePatternsText(views)
			return nil
		}
		out := output.New(output.Format(GetOutput()))
		return out.Write(groupRuleViews(views))
	},
}

var patternsAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add a classification pattern",
	Long: `Add a regex pattern to the project config (or the user config with
--global). The pattern is validated before it is written.

Examples:
  runguard patterns add "terraform\s+destroy" --risk dangerous
  runguard patterns add "^npm\s+install" --risk caution --global`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := args[0]

		if flagPatternRisk == "" {
			return fmt.Errorf("--risk is required (safe, caution, or dangerous)")
		}
		risk, err := parseRisk(flagPatternRisk)
		if err != nil {
			return err
		}
		if _, err := core.NewRule(pattern, risk, ""); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}

		path, err := patternConfigFile()
		if err != nil {
			return err
		}
		existing, err := filePatterns(path, risk)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p == pattern {
				return fmt.Errorf("pattern already present in %s", path)
			}
		}

		key := "patterns." + string(risk)
		if err := config.WriteValue(path, key, append(existing, pattern)); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":  "added",
			"pattern": pattern,
			"risk":    string(risk),
			"file":    path,
		})
	},
}

var patternsRemoveCmd = &cobra.Command{
	Use:   "remove <pattern>",
	Short: "Remove a user-defined pattern",
	Long: `Remove a pattern from the project config (or the user config with
--global). Built-in patterns cannot be removed; override behavior with your
own higher-severity patterns instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := args[0]

		if flagPatternRisk == "" {
			return fmt.Errorf("--risk is required (safe, caution, or dangerous)")
		}
		risk, err := parseRisk(flagPatternRisk)
		if err != nil {
			return err
		}

		path, err := patternConfigFile()
		if err != nil {
			return err
		}
		existing, err := filePatterns(path, risk)
		if err != nil {
			return err
		}

		kept := make([]string, 0, len(existing))
		for _, p := range existing {
			if p != pattern {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(existing) {
			return fmt.Errorf("pattern not found in %s under %s", path, risk)
		}

		key := "patterns." + string(risk)
		if err := config.WriteValue(path, key, kept); err != nil {
			return err
		}

		out := output.New(output.Format(GetOutput()))
		return out.Write(map[string]any{
			"status":  "removed",
			"pattern": pattern,
			"risk":    string(risk),
			"file":    path,
		})
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the effective pattern set",
	Long: `Export every effective pattern, built-in and user-defined, grouped by
risk level.

Examples:
  runguard patterns export              # JSON to stdout
  runguard patterns export -f yaml      # YAML to stdout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		format := strings.ToLower(flagPatternFormat)
		switch format {
		case "json", "yaml":
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", flagPatternFormat)
		}

		out := output.New(output.Format(format))
		return out.Write(groupRuleViews(collectRuleViews(cfg)))
	},
}

// Helper functions

func parseRisk(s string) (core.RiskLevel, error) {
	risk := core.RiskLevel(strings.ToLower(s))
	if !risk.Valid() {
		return "", fmt.Errorf("invalid risk level: %s (must be safe, caution, or dangerous)", s)
	}
	return risk, nil
}

// patternConfigFile picks which config file add/remove edits.
func patternConfigFile() (string, error) {
	project, err := projectPath()
	if err != nil {
		return "", err
	}
	userPath, projPath := config.ConfigPaths(project, flagConfig)
	if flagPatternGlobal {
		return userPath, nil
	}
	return projPath, nil
}

// filePatterns reads the pattern list for one risk level from a single
// config file, ignoring every other config source.
func filePatterns(path string, risk core.RiskLevel) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var doc struct {
		Patterns config.PatternsConfig `toml:"patterns"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	switch risk {
	case core.RiskDangerous:
		return doc.Patterns.Dangerous, nil
	case core.RiskCaution:
		return doc.Patterns.Caution, nil
	default:
		return doc.Patterns.Safe, nil
	}
}

type ruleView struct {
	Pattern     string `json:"pattern"`
	Risk        string `json:"risk"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

// collectRuleViews flattens the built-in rules and the user patterns into
// one list, built-ins first.
func collectRuleViews(cfg *config.Config) []ruleView {
	var views []ruleView
	for _, r := range core.BuiltinRules() {
		views = append(views, ruleView{
			Pattern:     r.Pattern,
			Risk:        string(r.Risk),
			Description: r.Description,
			Source:      "builtin",
		})
	}
	user := []struct {
		risk     core.RiskLevel
		patterns []string
	}{
		{core.RiskDangerous, cfg.Patterns.Dangerous},
		{core.RiskCaution, cfg.Patterns.Caution},
		{core.RiskSafe, cfg.Patterns.Safe},
	}
	for _, group := range user {
		for _, p := range group.patterns {
			views = append(views, ruleView{
				Pattern: p,
				Risk:    string(group.risk),
				Source:  "user",
			})
		}
	}
	return views
}

// groupRuleViews organizes rule views by risk level for structured output.
func groupRuleViews(views []ruleView) map[string][]ruleView {
	grouped := map[string][]ruleView{}
	for _, v := range views {
		grouped[v.Risk] = append(grouped[v.Risk], v)
	}
	return grouped
}

func writePatternsText(views []ruleView) {
	order := []string{"dangerous", "caution", "safe"}
	grouped := groupRuleViews(views)
	for _, risk := range order {
		list := grouped[risk]
		if len(list) == 0 {
			continue
		}
		fmt.Printf("\n%s (%d patterns):\n", strings.ToUpper(risk), len(list))
		for _, v := range list {
			fmt.Printf("  %s\n", v.Pattern)
			if v.Description != "" {
				fmt.Printf("    # %s\n", v.Description)
			}
			if v.Source == "user" {
				fmt.Printf("    # source: user config\n")
			}
		}
	}
	fmt.Println()
}

type checkView struct {
	Command           string                `json:"command"`
	Risk              core.RiskLevel        `json:"risk"`
	RequiresShell     bool                  `json:"requires_shell"`
	NeedsConfirmation bool                  `json:"needs_confirmation"`
	Base              string                `json:"base,omitempty"`
	Argv              []string              `json:"argv,omitempty"`
	ParseError        bool                  `json:"parse_error,omitempty"`
	Matches           []core.MatchedPattern `json:"matches,omitempty"`
	ConfigEdit        *core.ConfigEditInfo  `json:"config_edit,omitempty"`
}

func newCheckView(profile *core.CommandProfile, pol *core.Policy) checkView {
	return checkView{
		Command:           profile.Raw,
		Risk:              profile.Risk,
		RequiresShell:     profile.RequiresShell,
		NeedsConfirmation: profile.NeedsConfirmation(pol),
		Base:              profile.Base,
		Argv:              profile.Argv,
		ParseError:        profile.ParseError,
		Matches:           profile.Matches,
		ConfigEdit:        profile.ConfigEdit,
	}
}

func writeProfileText(profile *core.CommandProfile, pol *core.Policy) {
	fmt.Printf("Command:    %s\n", profile.Raw)
	fmt.Printf("Risk:       %s\n", strings.ToUpper(string(profile.Risk)))
	fmt.Printf("Shell:      %v\n", profile.RequiresShell)
	fmt.Printf("Confirm:    %v\n", profile.NeedsConfirmation(pol))
	if profile.Base != "" {
		fmt.Printf("Program:    %s\n", profile.Base)
	}
	if profile.ParseError {
		fmt.Printf("Parse:      failed, risk floored at %s\n", pol.EffectiveFallbackRisk())
	}
	if len(profile.Matches) > 0 {
		fmt.Printf("Matches:\n")
		for _, m := range profile.Matches {
			fmt.Printf("  - [%s] %s\n", m.Risk, m.Pattern)
			if m.Description != "" {
				fmt.Printf("      %s\n", m.Description)
			}
		}
	}
	if ce := profile.ConfigEdit; ce != nil {
		fmt.Printf("Edits:      %s", ce.Target)
		if ce.Editor != "" {
			fmt.Printf(" (via %s)", ce.Editor)
		}
		if ce.Critical {
			fmt.Printf(" [critical]")
		}
		if ce.NeedsSudo {
			fmt.Printf(" [needs sudo]")
		}
		fmt.Println()
	}
}
