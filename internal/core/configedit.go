package core

import (
	"regexp"
	"strings"
)

// configEditors are programs whose invocation on a file counts as editing it.
var configEditors = map[string]bool{
	"nano":    true,
	"vim":     true,
	"vi":      true,
	"nvim":    true,
	"emacs":   true,
	"gedit":   true,
	"ed":      true,
	"sed":     true,
	"tee":     true,
	"crontab": true,
}

// criticalConfigFiles can lock out the whole system when corrupted.
var criticalConfigFiles = []string{
	"/etc/passwd",
	"/etc/shadow",
	"/etc/sudoers",
	"/etc/fstab",
	"/etc/group",
	"/boot/",
}

// systemConfigPrefixes need elevated privileges to write.
var systemConfigPrefixes = []string{
	"/etc/",
	"/usr/",
	"/var/",
	"/boot/",
	"/opt/",
}

// userConfigPrefixes mark per-user configuration locations.
var userConfigPrefixes = []string{
	"~/.config/",
	"~/.",
	"$HOME/.",
}

var redirectTarget = regexp.MustCompile(`>>?\s*([^\s|;&<>]+)`)

// DetectConfigEdit reports whether the command edits a configuration file,
// via an editor or via redirection, and which one. It returns nil when the
// command does not look like a config edit.
func DetectConfigEdit(raw string, segments []string) *ConfigEditInfo {
	if len(segments) == 0 {
		segments = []string{raw}
	}

	// Editor invocations: "vim /etc/hosts", "sudo nano ~/.bashrc".
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) >= 1 && fields[0] == "sudo" {
			fields = fields[1:]
		}
		if len(fields) < 2 || !configEditors[fields[0]] {
			continue
		}
		for _, arg := range fields[1:] {
			if strings.HasPrefix(arg, "-") {
				continue
			}
			if info := classifyConfigTarget(arg); info != nil {
				info.Editor = fields[0]
				return info
			}
			break
		}
	}

	// Redirection targets: "echo nameserver 1.1.1.1 > /etc/resolv.conf".
	for _, m := range redirectTarget.FindAllStringSubmatch(raw, -1) {
		if info := classifyConfigTarget(m[1]); info != nil {
			return info
		}
	}

	return nil
}

// classifyConfigTarget decides whether a path is a configuration file worth
// protecting, and how much.
func classifyConfigTarget(target string) *ConfigEditInfo {
	for _, crit := range criticalConfigFiles {
		if target == crit || strings.HasPrefix(target, crit) {
			return &ConfigEditInfo{Target: target, Critical: true, NeedsSudo: true}
		}
	}
	for _, prefix := range systemConfigPrefixes {
		if strings.HasPrefix(target, prefix) {
			return &ConfigEditInfo{Target: target, NeedsSudo: true}
		}
	}
	for _, prefix := range userConfigPrefixes {
		if strings.HasPrefix(target, prefix) {
			return &ConfigEditInfo{Target: target}
		}
	}
	return nil
}
