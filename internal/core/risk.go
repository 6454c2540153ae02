// Package core implements command risk classification, policy gating, and
// guarded process execution.
package core

// RiskLevel is the classifier's verdict about one command.
type RiskLevel string

const (
	RiskSafe      RiskLevel = "safe"
	RiskCaution   RiskLevel = "caution"
	RiskDangerous RiskLevel = "dangerous"
)

// Rank orders risk levels for max-severity aggregation. Unknown levels rank
// as caution so a bad value can never relax a classification.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskSafe:
		return 0
	case RiskCaution:
		return 1
	case RiskDangerous:
		return 2
	default:
		return 1
	}
}

// Valid reports whether r is one of the three defined levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskSafe, RiskCaution, RiskDangerous:
		return true
	}
	return false
}

// HigherRisk returns the more severe of a and b.
func HigherRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// MatchedPattern records one rule hit during classification. All hits are
// retained, not just the one that set the final level, so the gate and the
// reporter can explain the verdict.
type MatchedPattern struct {
	Pattern     string    `json:"pattern"`
	Risk        RiskLevel `json:"risk"`
	Description string    `json:"description,omitempty"`
}

// ConfigEditInfo describes a command that edits a configuration file, either
// through an editor or through output redirection.
type ConfigEditInfo struct {
	// Target is the configuration file being edited, when it can be determined.
	Target string `json:"target,omitempty"`
	// Editor is the editor program, empty for redirection-based edits.
	Editor string `json:"editor,omitempty"`
	// Critical marks targets whose corruption can lock out the system
	// (passwd, shadow, sudoers, boot files).
	Critical bool `json:"critical"`
	// NeedsSudo marks targets under system paths not writable by a normal user.
	NeedsSudo bool `json:"needs_sudo"`
}

// CommandProfile is the classifier's structured judgment about one candidate
// command. It is created once per classification call and treated as
// immutable afterwards.
type CommandProfile struct {
	// Raw is the candidate command exactly as received, trimmed.
	Raw string `json:"raw"`
	// RequiresShell is true when the command contains shell syntax (pipes,
	// redirection, chaining, substitution, expansion) and must be run
	// through an interpreter.
	RequiresShell bool `json:"requires_shell"`
	// Risk is the maximum severity across all matched rules.
	Risk RiskLevel `json:"risk"`
	// Matches lists every rule hit in rule order.
	Matches []MatchedPattern `json:"matches,omitempty"`
	// Argv is the clean argument vector for direct invocation. Nil when
	// RequiresShell is true or tokenization failed.
	Argv []string `json:"argv,omitempty"`
	// Base is the base name of the program being invoked.
	Base string `json:"base,omitempty"`
	// ParseError indicates the tokenizer rejected the command; the risk has
	// been upgraded and the command can only be attempted through a shell.
	ParseError bool `json:"parse_error,omitempty"`
	// ConfigEdit is set when the command edits a configuration file.
	ConfigEdit *ConfigEditInfo `json:"config_edit,omitempty"`
}

// NeedsConfirmation reports whether pol would require a confirmation step
// (or outright deny) before executing a command with this profile.
func (p *CommandProfile) NeedsConfirmation(pol *Policy) bool {
	return pol.ConfirmModeFor(p.Risk) != ConfirmNever
}
