package core

import (
	"fmt"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// shellMetachars are the characters whose presence means the command needs a
// shell interpreter: pipes, redirection, chaining, background execution,
// substitution and expansion, globbing, and home expansion. The scan is a
// plain substring check; quoting is not interpreted here, so a quoted
// metacharacter still routes through the shell, where it behaves identically.
const shellMetachars = "|><;&$`*?~"

// NeedsShell reports whether raw contains shell syntax that direct argv
// invocation cannot express.
func NeedsShell(raw string) bool {
	return strings.ContainsAny(raw, shellMetachars)
}

// Classify parses a command string into a CommandProfile: whether it needs a
// shell, how risky it is under pol, and which rules say so. It never fails;
// anything it cannot judge lands on the policy's fallback risk, never on
// safe. Classification is deterministic: no randomness, no I/O, no state.
//
// A nil policy classifies against DefaultPolicy.
func Classify(raw string, pol *Policy) *CommandProfile {
	if pol == nil {
		pol = DefaultPolicy()
	}

	trimmed := strings.TrimSpace(raw)
	profile := &CommandProfile{
		Raw:  trimmed,
		Risk: RiskSafe,
	}
	if trimmed == "" {
		return profile
	}

	profile.RequiresShell = NeedsShell(trimmed)

	// Tokenize. Shell commands are tokenized only to learn the base program;
	// plain commands keep the vector for direct invocation. A tokenizer
	// failure (unbalanced quote, stray escape) means the command cannot be
	// judged or argv-invoked: mark it, force shell mode, and let the
	// fallback risk apply below.
	argv, err := shellwords.Parse(trimmed)
	switch {
	case err != nil:
		profile.ParseError = true
		profile.RequiresShell = true
	case len(argv) > 0:
		profile.Base = filepath.Base(argv[0])
		if !profile.RequiresShell {
			profile.Argv = argv
		}
	}

	segments := splitSegments(trimmed)

	// Score every rule, in order, against the whole command and against each
	// segment so anchored rules hold inside pipelines and chains. Every hit
	// is retained; the profile risk is the maximum severity seen.
	for _, rule := range pol.Rules {
		if rule.Matches(trimmed) {
			profile.addMatch(rule.Pattern, rule.Risk, rule.Description)
			continue
		}
		for _, seg := range segments {
			if rule.Matches(seg) {
				profile.addMatch(rule.Pattern, rule.Risk, rule.Description)
				break
			}
		}
	}

	if edit := DetectConfigEdit(trimmed, segments); edit != nil {
		profile.ConfigEdit = edit
		risk := RiskCaution
		desc := "edits a configuration file"
		if edit.Critical {
			risk = RiskDangerous
			desc = "edits a critical system file"
		}
		profile.addMatch("config-edit:"+edit.Target, risk, desc)
	}

	if profile.ParseError {
		profile.addMatch("parse_error", pol.EffectiveFallbackRisk(),
			"command could not be tokenized")
	}
	if pol.MaxCommandLength > 0 && len(trimmed) > pol.MaxCommandLength {
		profile.addMatch("length", pol.EffectiveFallbackRisk(),
			fmt.Sprintf("command exceeds %d characters", pol.MaxCommandLength))
	}

	return profile
}

// addMatch appends a hit and raises the profile risk to the maximum seen.
// Duplicate patterns are recorded once, keeping the profile deterministic
// when a rule matches both the whole command and a segment.
func (p *CommandProfile) addMatch(pattern string, risk RiskLevel, description string) {
	for _, m := range p.Matches {
		if m.Pattern == pattern {
			return
		}
	}
	p.Matches = append(p.Matches, MatchedPattern{
		Pattern:     pattern,
		Risk:        risk,
		Description: description,
	})
	p.Risk = HigherRisk(p.Risk, risk)
}

// splitSegments breaks a compound command on unquoted separators (;, |, &,
// newline) so each stage of a pipeline or chain is scored on its own.
// Backslash escapes and single/double quotes are respected; redirection
// stays inside its segment. Each segment also sheds env-assignment and
// xargs prefixes so anchored rules see the effective program.
func splitSegments(raw string) []string {
	var (
		segments []string
		start    int
		inSingle bool
		inDouble bool
		escaped  bool
	)

	flush := func(end int) {
		seg := strings.TrimSpace(raw[start:end])
		if seg != "" {
			segments = append(segments, normalizeSegment(seg))
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && !inSingle:
			escaped = true
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			// separators inside quotes are literal
		case c == ';' || c == '|' || c == '&' || c == '\n':
			flush(i)
			start = i + 1
		}
	}
	flush(len(raw))
	return segments
}

// normalizeSegment strips leading VAR=value assignments and rewrites
// "xargs [flags] cmd ..." to the command xargs will run, so a pipeline like
// "find . | xargs rm -r" is scored as "rm -r".
func normalizeSegment(seg string) string {
	fields := strings.Fields(seg)
	i := 0
	for i < len(fields) && isEnvAssignment(fields[i]) {
		i++
	}
	if i >= len(fields) {
		return seg
	}
	if fields[i] == "xargs" {
		if inner := extractXargsCommand(fields[i+1:]); inner != "" {
			return inner
		}
	}
	if i == 0 {
		return seg
	}
	return strings.Join(fields[i:], " ")
}

func isEnvAssignment(field string) bool {
	eq := strings.IndexByte(field, '=')
	if eq <= 0 {
		return false
	}
	for _, r := range field[:eq] {
		if r != '_' && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// extractXargsCommand returns the command an xargs invocation will execute,
// skipping xargs' own flags and their arguments.
func extractXargsCommand(fields []string) string {
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if !strings.HasPrefix(f, "-") {
			return strings.Join(fields[i:], " ")
		}
		// Flags that consume the next field.
		switch f {
		case "-n", "-L", "-P", "-s", "-I", "-d", "-E", "-a":
			i++
		}
	}
	return ""
}
