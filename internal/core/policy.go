package core

import (
	"fmt"
	"regexp"
	"time"
)

// ConfirmMode controls what the gate does for a given risk level.
type ConfirmMode string

const (
	// ConfirmNever executes without asking.
	ConfirmNever ConfirmMode = "never"
	// ConfirmPrompt suspends the gate until an external accept/decline
	// signal or the confirmation timeout.
	ConfirmPrompt ConfirmMode = "prompt"
	// ConfirmDeny rejects without asking.
	ConfirmDeny ConfirmMode = "deny"
)

// Rule is one ordered (pattern, severity) entry in a Policy. Patterns are
// regular expressions compiled case-insensitively.
type Rule struct {
	Pattern     string
	Risk        RiskLevel
	Description string

	re *regexp.Regexp
}

// NewRule compiles a rule. The pattern is matched case-insensitively
// anywhere in the command string unless it anchors itself.
func NewRule(pattern string, risk RiskLevel, description string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("compiling rule %q: %w", pattern, err)
	}
	return Rule{Pattern: pattern, Risk: risk, Description: description, re: re}, nil
}

// MustRule is NewRule for built-in rules, which must always compile.
func MustRule(pattern string, risk RiskLevel, description string) Rule {
	r, err := NewRule(pattern, risk, description)
	if err != nil {
		panic(fmt.Sprintf("invalid builtin rule %q: %v", pattern, err))
	}
	return r
}

// Matches reports whether the rule matches s. A Rule constructed without
// NewRule/MustRule never matches.
func (r Rule) Matches(s string) bool {
	return r.re != nil && r.re.MatchString(s)
}

// Defaults applied when the corresponding Policy field is zero.
const (
	DefaultTimeout          = 5 * time.Minute
	DefaultConfirmTimeout   = 60 * time.Second
	DefaultMaxOutputBytes   = 4 * 1024 * 1024
	DefaultMaxCommandLength = 1000
)

// Policy is the externally supplied configuration governing one invocation:
// the ordered risk rules, the per-level confirmation requirements, the
// execution bounds, and the dry-run flag. A Policy is a plain value threaded
// through every call; the engine holds no process-wide policy state. It is
// read-only for the duration of an invocation.
type Policy struct {
	// Rules are evaluated in order against the command and each of its
	// segments; the profile risk is the maximum severity matched.
	Rules []Rule
	// Confirm maps risk levels to confirmation modes. Missing levels
	// default fail-closed: safe to never, everything else to prompt.
	Confirm map[RiskLevel]ConfirmMode
	// Timeout bounds the child's wall-clock runtime.
	Timeout time.Duration
	// ConfirmTimeout bounds the CONFIRMING suspension; expiry rejects.
	ConfirmTimeout time.Duration
	// DryRun classifies and reports without ever spawning a process.
	DryRun bool
	// FallbackRisk is assigned when the command cannot be judged (tokenizer
	// failure, over-length input). Floored at caution.
	FallbackRisk RiskLevel
	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int
	// MaxCommandLength marks longer commands un-judgeable.
	MaxCommandLength int
}

// ConfirmModeFor resolves the confirmation mode for a risk level,
// fail-closed for levels the map does not cover.
func (p *Policy) ConfirmModeFor(risk RiskLevel) ConfirmMode {
	if p.Confirm != nil {
		if mode, ok := p.Confirm[risk]; ok {
			return mode
		}
	}
	if risk == RiskSafe {
		return ConfirmNever
	}
	return ConfirmPrompt
}

// EffectiveTimeout returns Timeout or the default.
func (p *Policy) EffectiveTimeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

// EffectiveConfirmTimeout returns ConfirmTimeout or the default.
func (p *Policy) EffectiveConfirmTimeout() time.Duration {
	if p.ConfirmTimeout > 0 {
		return p.ConfirmTimeout
	}
	return DefaultConfirmTimeout
}

// EffectiveMaxOutputBytes returns MaxOutputBytes or the default.
func (p *Policy) EffectiveMaxOutputBytes() int {
	if p.MaxOutputBytes > 0 {
		return p.MaxOutputBytes
	}
	return DefaultMaxOutputBytes
}

// EffectiveFallbackRisk returns FallbackRisk floored at caution. The
// fallback exists for input the classifier cannot judge, so it can never
// be safe.
func (p *Policy) EffectiveFallbackRisk() RiskLevel {
	fb := p.FallbackRisk
	if !fb.Valid() || fb == RiskSafe {
		return RiskCaution
	}
	return fb
}

// DefaultPolicy returns a fresh policy carrying the built-in rule set and
// default limits. Callers own the returned value; there is no shared
// default instance.
func DefaultPolicy() *Policy {
	return &Policy{
		Rules: BuiltinRules(),
		Confirm: map[RiskLevel]ConfirmMode{
			RiskSafe:      ConfirmNever,
			RiskCaution:   ConfirmPrompt,
			RiskDangerous: ConfirmPrompt,
		},
		Timeout:          DefaultTimeout,
		ConfirmTimeout:   DefaultConfirmTimeout,
		FallbackRisk:     RiskCaution,
		MaxOutputBytes:   DefaultMaxOutputBytes,
		MaxCommandLength: DefaultMaxCommandLength,
	}
}

// BuiltinRules returns the built-in ordered rule set. Each call returns a
// fresh slice so callers can append or reorder freely.
func BuiltinRules() []Rule {
	return []Rule{
		// Recursive deletion of the filesystem root or system trees.
		MustRule(`^rm\s+(-[a-z]*[rf][a-z]*\s+)+/(\s|$|\*)`, RiskDangerous, "recursive delete of the filesystem root"),
		MustRule(`^rm\s+(-[a-z]*[rf][a-z]*\s+)+/(bin|boot|dev|etc|home|lib|lib64|media|mnt|opt|proc|root|run|sbin|srv|sys|usr|var)\b`, RiskDangerous, "recursive delete of a system directory"),
		MustRule(`^rm\s+(-[a-z]*[rf][a-z]*\s+)+~`, RiskDangerous, "recursive delete of the home directory"),
		// Raw writes to block devices destroy filesystems.
		MustRule(`\bdd\b.*\bof=/dev/(sd|hd|nvme|vd|xvd)`, RiskDangerous, "raw write to a block device"),
		MustRule(`>\s*/dev/(sd|hd|nvme|vd|xvd)`, RiskDangerous, "redirection onto a block device"),
		MustRule(`^(sudo\s+)?(mkfs|wipefs|shred|badblocks)\b`, RiskDangerous, "filesystem destruction tool"),
		MustRule(`^(sudo\s+)?(fdisk|parted|cfdisk|sfdisk)\b`, RiskDangerous, "partition table manipulation"),
		// The classic bash fork bomb.
		MustRule(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`, RiskDangerous, "fork bomb"),
		// Piping a download straight into an interpreter.
		MustRule(`\b(curl|wget)\b[^|;]*\|\s*(sudo\s+)?(ba)?sh\b`, RiskDangerous, "pipes a download into a shell"),
		// Clobbering authentication databases.
		MustRule(`>\s*/etc/(passwd|shadow|sudoers)\b`, RiskDangerous, "overwrites an authentication file"),
		// Power state and accounts.
		MustRule(`^(sudo\s+)?(shutdown|reboot|halt|poweroff)\b`, RiskDangerous, "changes machine power state"),
		MustRule(`^(sudo\s+)?init\s+[06]\b`, RiskDangerous, "changes machine power state"),
		MustRule(`^(sudo\s+)?(userdel|groupdel)\b`, RiskDangerous, "deletes an account"),
		MustRule(`^(sudo\s+)?passwd\b`, RiskDangerous, "changes account credentials"),
		// chmod/chown against system trees.
		MustRule(`^(sudo\s+)?(chmod|chown|chgrp)\b.*\s/(bin|boot|etc|lib|sbin|usr|var)\b`, RiskDangerous, "permission change on a system directory"),
		MustRule(`>\s*/(etc|boot|sys|proc)/`, RiskDangerous, "redirection into a system directory"),
		MustRule(`^git\s+push\b.*(--force(\s|$)|-f(\s|$))`, RiskDangerous, "force push rewrites remote history"),

		// Anything that deletes files or directories. Segment scoring makes
		// the anchors hold inside pipelines and chains too.
		MustRule(`^rm\s+-[a-z]*[rf]`, RiskCaution, "removes files or directories"),
		MustRule(`^rm\b`, RiskCaution, "removes files"),
		MustRule(`^rmdir\b`, RiskCaution, "removes directories"),
		MustRule(`^(chmod|chown|chgrp)\b`, RiskCaution, "changes file ownership or permissions"),
		MustRule(`^(mv|cp|ln)\b.*\s/(etc|usr|var|boot|bin|sbin)\b`, RiskCaution, "writes into a system directory"),
		MustRule(`^(sudo\s+)?(apt|apt-get|dpkg|snap|yum|dnf|pip|pip3)\s+(install|remove|purge|uninstall|autoremove)\b`, RiskCaution, "mutates installed packages"),
		MustRule(`^(sudo\s+)?(systemctl|service)\s+(start|stop|restart|reload|enable|disable|mask)\b`, RiskCaution, "controls a system service"),
		MustRule(`^(sudo\s+)?(iptables|ip6tables|ufw|nft)\b`, RiskCaution, "modifies firewall rules"),
		MustRule(`^(sudo\s+)?netplan\b`, RiskCaution, "modifies network configuration"),
		MustRule(`^sudo\b`, RiskCaution, "runs with elevated privileges"),
		MustRule(`^git\s+(reset\s+--hard|clean\s+-[a-z]*f)`, RiskCaution, "discards local changes"),
		MustRule(`^(tar|unzip|gunzip|gzip|zip)\b.*\s-?C?\s*/(etc|usr|var|boot)\b`, RiskCaution, "extracts over a system directory"),
		MustRule(`^(mkfifo|mknod)\b`, RiskCaution, "creates special files"),
	}
}
