package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/runguard/runguard/internal/testutil"
	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with the given args and returns stdout, stderr, and error.
func executeCommand(root *cobra.Command, args ...string) (stdout string, stderr string, err error) {
	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)

	root.SetOut(stdoutBuf)
	root.SetErr(stderrBuf)
	root.SetArgs(args)

	err = root.Execute()

	return stdoutBuf.String(), stderrBuf.String(), err
}

// captureStdout runs a function and captures what it writes to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// executeCommandCapture runs a command and captures actual stdout.
func executeCommandCapture(t *testing.T, root *cobra.Command, args ...string) (stdout string, err error) {
	t.Helper()

	root.SetArgs(args)

	stdout = captureStdout(t, func() {
		err = root.Execute()
	})

	return stdout, err
}

// resetGlobalFlags resets the persistent flags shared by every command.
func resetGlobalFlags() {
	flagConfig = ""
	flagOutput = "text"
	flagJSON = false
	flagVerbose = false
	flagDB = ""
	flagProject = ""
}

// newTestRootCmd creates a fresh root command for testing (avoids state pollution).
func newTestRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "runguard",
		Short:         "Guarded execution for untrusted shell commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "project config file path")
	cmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, yaml")
	cmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "shorthand for --output=json")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&flagDB, "db", "", "journal database path")
	cmd.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")

	versionCmdTest := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE:  versionCmd.RunE,
	}
	cmd.AddCommand(versionCmdTest)

	return cmd
}

func TestRootCommand_ShowsHelp(t *testing.T) {
	resetGlobalFlags()
	cmd := newTestRootCmd()
	stdout, _, err := executeCommand(cmd, "--help")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(stdout, "Guarded execution") {
		t.Error("expected help to contain 'Guarded execution'")
	}
	if !strings.Contains(stdout, "Available Commands") {
		t.Error("expected help to list available commands")
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := newTestRootCmd()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"help flag short", []string{"-h"}, false},
		{"help flag long", []string{"--help"}, false},
		{"config flag", []string{"--config", "/tmp/test.toml", "--help"}, false},
		{"output flag json", []string{"--output", "json", "--help"}, false},
		{"output flag yaml", []string{"--output", "yaml", "--help"}, false},
		{"output flag text", []string{"--output", "text", "--help"}, false},
		{"json shorthand", []string{"-j", "--help"}, false},
		{"verbose flag", []string{"-v", "--help"}, false},
		{"db flag", []string{"--db", "/tmp/test.db", "--help"}, false},
		{"project flag", []string{"-C", "/tmp/project", "--help"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalFlags()

			_, _, err := executeCommand(cmd, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("executeCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVersionCommand_TextOutput(t *testing.T) {
	resetGlobalFlags()

	cmd := newTestRootCmd()
	stdout, err := executeCommandCapture(t, cmd, "version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(stdout, "runguard") {
		t.Errorf("expected version output to contain 'runguard', got %q", stdout)
	}
	if !strings.Contains(stdout, "journal:") {
		t.Errorf("expected version output to mention the journal path, got %q", stdout)
	}
}

func TestVersionCommand_JSONOutput(t *testing.T) {
	resetGlobalFlags()

	cmd := newTestRootCmd()
	stdout, err := executeCommandCapture(t, cmd, "version", "-j")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v\nstdout: %s", err, stdout)
	}

	if _, ok := result["version"]; !ok {
		t.Error("expected JSON output to contain 'version' key")
	}
	if _, ok := result["journal_path"]; !ok {
		t.Error("expected JSON output to contain 'journal_path' key")
	}
}

func TestGetOutput(t *testing.T) {
	tests := []struct {
		name       string
		flagJSON   bool
		flagOutput string
		want       string
	}{
		{"json flag overrides", true, "text", "json"},
		{"output flag text", false, "text", "text"},
		{"output flag json", false, "json", "json"},
		{"output flag yaml", false, "yaml", "yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagJSON = tt.flagJSON
			flagOutput = tt.flagOutput
			if got := GetOutput(); got != tt.want {
				t.Errorf("GetOutput() = %v, want %v", got, tt.want)
			}
		})
	}

	resetGlobalFlags()
}

func TestGetOutput_EnvFallback(t *testing.T) {
	resetGlobalFlags()

	t.Run("env sets format when flags are default", func(t *testing.T) {
		t.Setenv("RUNGUARD_OUTPUT_FORMAT", "json")
		if got := GetOutput(); got != "json" {
			t.Errorf("GetOutput() = %v, want json", got)
		}
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv("RUNGUARD_OUTPUT_FORMAT", "json")
		flagOutput = "yaml"
		defer func() { flagOutput = "text" }()
		if got := GetOutput(); got != "yaml" {
			t.Errorf("GetOutput() = %v, want yaml", got)
		}
	})

	t.Run("invalid env value is ignored", func(t *testing.T) {
		t.Setenv("RUNGUARD_OUTPUT_FORMAT", "xml")
		if got := GetOutput(); got != "text" {
			t.Errorf("GetOutput() = %v, want text", got)
		}
	})
}

// TestGetDB_PrecedenceOrder verifies the precedence order of journal path resolution.
func TestGetDB_PrecedenceOrder(t *testing.T) {
	resetGlobalFlags()
	defer resetGlobalFlags()

	h := testutil.NewHarness(t)

	// 1. Explicit --db flag has highest precedence
	flagDB = "/explicit/journal/path.db"
	flagProject = h.ProjectDir
	if got := GetDB(); got != "/explicit/journal/path.db" {
		t.Errorf("explicit --db flag should take precedence, got %s", got)
	}

	// 2. journal.path from the project config is next
	flagDB = ""
	configured := h.MustPath("custom-journal.db")
	h.WriteConfig("[journal]\npath = \"" + strings.ReplaceAll(configured, `\`, `\\`) + "\"\n")
	if got := GetDB(); got != configured {
		t.Errorf("config journal.path should be used, got %s want %s", got, configured)
	}
}

func TestGetDB_DefaultsUnderHome(t *testing.T) {
	resetGlobalFlags()
	defer resetGlobalFlags()

	// An empty project has no config; the default lands under the home dir.
	flagProject = t.TempDir()

	got := GetDB()
	if got == "" {
		t.Fatal("GetDB() should never return empty string")
	}
	if !strings.HasSuffix(got, "journal.db") {
		t.Errorf("GetDB() returned unexpected path: %s", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	resetGlobalFlags()
	cmd := newTestRootCmd()
	_, _, err := executeCommand(cmd, "nonexistent-command")
	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestUnknownFlag(t *testing.T) {
	resetGlobalFlags()
	cmd := newTestRootCmd()
	_, _, err := executeCommand(cmd, "--nonexistent-flag")
	if err == nil {
		t.Error("expected error for unknown flag")
	}
}
