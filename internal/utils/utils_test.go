package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestStripANSI(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"\x1b[31mred\x1b[0m", "red"},
		{"\x1b[1;32mbold green\x1b[0m text", "bold green text"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := StripANSI(tc.in); got != tc.want {
			t.Errorf("StripANSI(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeOutput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"keeps\nnewlines\tand tabs", "keeps\nnewlines\tand tabs"},
		{"drops\x07bell and\x08backspace", "dropsbell andbackspace"},
		{"\x1b[31mcolored\x1b[0m\x00nul", "colorednul"},
		{"\rcarriage return", "carriage return"},
	}
	for _, tc := range cases {
		if got := SanitizeOutput(tc.in); got != tc.want {
			t.Errorf("SanitizeOutput(%q)=%q want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncateLines(t *testing.T) {
	in := "one\ntwo\nthree\nfour\nfive\n"

	got := TruncateLines(in, 2)
	if !strings.HasPrefix(got, "one\ntwo\n") {
		t.Fatalf("head lost: %q", got)
	}
	if !strings.Contains(got, "(3 more lines)") {
		t.Fatalf("expected cut note, got %q", got)
	}

	if got := TruncateLines(in, 10); got != in {
		t.Errorf("under-limit input modified: %q", got)
	}
	if got := TruncateLines(in, 5); got != in {
		t.Errorf("exactly-at-limit input modified: %q", got)
	}
	if got := TruncateLines(in, 0); got != in {
		t.Errorf("max=0 should disable truncation")
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten..", 13, "exactly ten.."},
		{"much too long for this", 8, "much to…"},
		{"héllo wörld", 6, "héllo…"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("Truncate(%q, %d)=%q want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"unknown", log.InfoLevel},
	}

	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestInitLogger_WritesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LoggerOptions{
		Level:           "debug",
		Output:          &buf,
		Prefix:          "test",
		ReportTimestamp: false,
	})

	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected output to contain message; got %q", buf.String())
	}
}

func TestInitDefaultLogger_RespectsEnvOverride(t *testing.T) {
	t.Setenv("RUNGUARD_LOG_LEVEL", "debug")
	logger := InitDefaultLogger()
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
}

func TestDefaultLoggerWrappers(t *testing.T) {
	old := GetDefaultLogger()
	t.Cleanup(func() {
		SetDefaultLogger(old)
	})

	var buf bytes.Buffer
	logger := InitLogger(LoggerOptions{
		Level:           "debug",
		Output:          &buf,
		Prefix:          "wrapper",
		ReportTimestamp: false,
	})
	SetDefaultLogger(logger)

	Debug("debug-msg")
	Info("info-msg")
	Warn("warn-msg")
	Error("error-msg")
	_ = With("k", "v")
	_ = WithPrefix("p")

	out := buf.String()
	for _, want := range []string{"debug-msg", "info-msg", "warn-msg", "error-msg"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q; got %q", want, out)
		}
	}
}
