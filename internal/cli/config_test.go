package cli

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/runguard/runguard/internal/config"
	"github.com/runguard/runguard/internal/testutil"
	"github.com/spf13/cobra"
)

func newTestConfigCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "runguard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format")
	root.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "json output")
	root.PersistentFlags().StringVarP(&flagProject, "project", "C", "", "project directory")

	cfgCmd := &cobra.Command{
		Use:  "config",
		RunE: configCmd.RunE,
	}
	cfgCmd.PersistentFlags().BoolVar(&flagConfigGlobal, "global", false, "operate on user config")

	cfgCmd.AddCommand(&cobra.Command{
		Use:  "get <key>",
		Args: cobra.ExactArgs(1),
		RunE: configGetCmd.RunE,
	})
	cfgCmd.AddCommand(&cobra.Command{
		Use:  "set <key> <value>",
		Args: cobra.ExactArgs(2),
		RunE: configSetCmd.RunE,
	})

	root.AddCommand(cfgCmd)
	return root
}

func resetConfigFlags() {
	resetGlobalFlags()
	flagConfigGlobal = false
}

func TestConfigCommand_ShowsEffectiveConfig(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	stdout, err := executeCommandCapture(t, cmd, "config", "-j")
	testutil.RequireNoError(t, err, "config")

	var cfg config.Config
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	testutil.RequireEqual(t, cfg.General.TimeoutSecs, 300, "default timeout")
	testutil.RequireEqual(t, cfg.Confirm.Safe, "never", "default safe mode")
}

func TestConfigGetCommand_KnownKey(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	stdout, err := executeCommandCapture(t, cmd, "config", "get", "general.timeout_seconds", "-j")
	testutil.RequireNoError(t, err, "config get")

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["key"] != "general.timeout_seconds" {
		t.Errorf("expected key echo, got %v", result["key"])
	}
	if result["value"] != float64(300) {
		t.Errorf("expected value 300, got %v", result["value"])
	}
}

func TestConfigGetCommand_UnknownKey(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "get", "general.bogus", "-j")

	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSetCommand_RoundTrip(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "set", "confirm.dangerous", "deny", "-j")
	testutil.RequireNoError(t, err, "config set")

	data, err := os.ReadFile(h.MustPath(".runguard", "config.toml"))
	testutil.RequireNoError(t, err, "read project config")
	testutil.RequireContains(t, string(data), "deny", "written value")

	resetConfigFlags()
	flagProject = h.ProjectDir
	cmd = newTestConfigCmd()
	stdout, err := executeCommandCapture(t, cmd, "config", "get", "confirm.dangerous", "-j")
	testutil.RequireNoError(t, err, "config get after set")

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nstdout: %s", err, stdout)
	}
	if result["value"] != "deny" {
		t.Errorf("expected round-tripped value deny, got %v", result["value"])
	}
}

func TestConfigSetCommand_TypedValues(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "set", "general.timeout_seconds", "120", "-j")
	testutil.RequireNoError(t, err, "set integer")

	resetConfigFlags()
	flagProject = h.ProjectDir
	cmd = newTestConfigCmd()
	_, err = executeCommandCapture(t, cmd, "config", "set", "journal.enabled", "false", "-j")
	testutil.RequireNoError(t, err, "set boolean")

	cfg, err := config.Load(config.LoadOptions{ProjectDir: h.ProjectDir})
	testutil.RequireNoError(t, err, "load after sets")
	testutil.RequireEqual(t, cfg.General.TimeoutSecs, 120, "timeout applied")
	testutil.RequireEqual(t, cfg.Journal.Enabled, false, "journal toggle applied")
}

func TestConfigSetCommand_RejectsBadInteger(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "set", "general.timeout_seconds", "soon", "-j")

	if err == nil {
		t.Fatal("expected error for non-integer value")
	}
	if !strings.Contains(err.Error(), "parsing integer") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSetCommand_RejectsUnknownKey(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "set", "nonsense.key", "1", "-j")

	if err == nil {
		t.Fatal("expected error for unsupported key")
	}
	if !strings.Contains(err.Error(), "unsupported config key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSetThenLoad_InvalidModeFails(t *testing.T) {
	h := testutil.NewHarness(t)
	resetConfigFlags()
	flagProject = h.ProjectDir

	cmd := newTestConfigCmd()
	_, err := executeCommandCapture(t, cmd, "config", "set", "confirm.caution", "maybe", "-j")
	testutil.RequireNoError(t, err, "set writes without validating")

	// The invalid mode surfaces on the next load.
	_, err = config.Load(config.LoadOptions{ProjectDir: h.ProjectDir})
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(err.Error(), "confirm.caution") {
		t.Errorf("unexpected error: %v", err)
	}
}
