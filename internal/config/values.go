package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// valueKind tags how a raw string should be parsed for a key.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindStringSlice
)

// keyKinds enumerates every settable leaf.
var keyKinds = map[string]valueKind{
	"general.shell":                   kindString,
	"general.timeout_seconds":         kindInt,
	"general.confirm_timeout_seconds": kindInt,
	"general.dry_run":                 kindBool,
	"general.max_command_length":      kindInt,
	"general.fallback_risk":           kindString,
	"confirm.safe":                    kindString,
	"confirm.caution":                 kindString,
	"confirm.dangerous":               kindString,
	"output.max_bytes":                kindInt,
	"output.color":                    kindBool,
	"output.truncate_lines":           kindInt,
	"journal.enabled":                 kindBool,
	"journal.path":                    kindString,
	"journal.keep_days":               kindInt,
	"backup.enabled":                  kindBool,
	"backup.dir":                      kindString,
	"backup.keep":                     kindInt,
	"patterns.dangerous":              kindStringSlice,
	"patterns.caution":                kindStringSlice,
	"patterns.safe":                   kindStringSlice,
}

// ParseValue converts a raw string into the typed value for key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing integer %q: %w", raw, err)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing boolean %q: %w", raw, err)
		}
		return b, nil
	case kindStringSlice:
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %d", kind)
	}
}

// GetValue looks up a dotted key on cfg. Section keys return the whole
// section struct.
func GetValue(cfg *Config, key string) (any, bool) {
	switch key {
	case "general":
		return cfg.General, true
	case "general.shell":
		return cfg.General.Shell, true
	case "general.timeout_seconds":
		return cfg.General.TimeoutSecs, true
	case "general.confirm_timeout_seconds":
		return cfg.General.ConfirmTimeoutSecs, true
	case "general.dry_run":
		return cfg.General.DryRun, true
	case "general.max_command_length":
		return cfg.General.MaxCommandLength, true
	case "general.fallback_risk":
		return cfg.General.FallbackRisk, true
	case "confirm":
		return cfg.Confirm, true
	case "confirm.safe":
		return cfg.Confirm.Safe, true
	case "confirm.caution":
		return cfg.Confirm.Caution, true
	case "confirm.dangerous":
		return cfg.Confirm.Dangerous, true
	case "output":
		return cfg.Output, true
	case "output.max_bytes":
		return cfg.Output.MaxBytes, true
	case "output.color":
		return cfg.Output.Color, true
	case "output.truncate_lines":
		return cfg.Output.TruncateLines, true
	case "journal":
		return cfg.Journal, true
	case "journal.enabled":
		return cfg.Journal.Enabled, true
	case "journal.path":
		return cfg.Journal.Path, true
	case "journal.keep_days":
		return cfg.Journal.KeepDays, true
	case "backup":
		return cfg.Backup, true
	case "backup.enabled":
		return cfg.Backup.Enabled, true
	case "backup.dir":
		return cfg.Backup.Dir, true
	case "backup.keep":
		return cfg.Backup.Keep, true
	case "patterns":
		return cfg.Patterns, true
	case "patterns.dangerous":
		return cfg.Patterns.Dangerous, true
	case "patterns.caution":
		return cfg.Patterns.Caution, true
	case "patterns.safe":
		return cfg.Patterns.Safe, true
	default:
		return nil, false
	}
}

// WriteValue sets a dotted key in the TOML file at path, creating the
// file and any parent tables as needed. Other keys are preserved.
func WriteValue(path, key string, value any) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return fmt.Errorf("config key is empty")
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	node := doc
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part]
		if !ok {
			next := map[string]any{}
			node[part] = next
			node = next
			continue
		}
		table, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("config key %s: %s is not a table", key, part)
		}
		node = table
	}
	node[parts[len(parts)-1]] = value

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
