package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// SanitizeOutput removes ANSI codes and other control characters (except
// newlines/tabs) so captured command output cannot mess up the terminal.
func SanitizeOutput(s string) string {
	s = StripANSI(s)
	// Replace other control characters (0x00-0x1F) except \n (0xA) and \t (0x9)
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1 // Drop
		}
		return r
	}, s)
}

// TruncateLines keeps the first max lines of s and notes how many were cut.
// max <= 0 disables truncation.
func TruncateLines(s string, max int) string {
	if max <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	// A trailing newline yields an empty final element; don't count it.
	n := len(lines)
	if n > 0 && lines[n-1] == "" {
		n--
	}
	if n <= max {
		return s
	}
	kept := strings.Join(lines[:max], "\n")
	return fmt.Sprintf("%s\n... (%d more lines)\n", kept, n-max)
}

// Truncate shortens s to at most max runes, ellipsized.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
