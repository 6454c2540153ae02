package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runguard/runguard/internal/core"
)

func testProfile() *core.CommandProfile {
	return &core.CommandProfile{
		Raw:           "rm -rf ./build",
		RequiresShell: false,
		Risk:          core.RiskDangerous,
		Matches: []core.MatchedPattern{
			{Pattern: `rm\s+-[a-z]*r`, Risk: core.RiskDangerous, Description: "recursive delete"},
		},
		Argv: []string{"rm", "-rf", "./build"},
		Base: "rm",
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func assertQuit(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestConfirmModel_Accept(t *testing.T) {
	for _, key := range []string{"y", "Y", "enter"} {
		m := NewConfirmModel(testProfile(), 30*time.Second)
		ret, cmd := m.Update(keyMsg(key))
		got := ret.(ConfirmModel)

		if !got.Accepted() {
			t.Errorf("key %q should accept", key)
		}
		if got.TimedOut() {
			t.Errorf("key %q should not look like a timeout", key)
		}
		assertQuit(t, cmd)
	}
}

func TestConfirmModel_Decline(t *testing.T) {
	for _, key := range []string{"n", "N", "esc", "q", "ctrl+c"} {
		m := NewConfirmModel(testProfile(), 30*time.Second)
		ret, cmd := m.Update(keyMsg(key))
		got := ret.(ConfirmModel)

		if got.Accepted() {
			t.Errorf("key %q should decline", key)
		}
		if got.TimedOut() {
			t.Errorf("key %q is a decline, not a timeout", key)
		}
		assertQuit(t, cmd)
	}
}

func TestConfirmModel_IrrelevantKeyKeepsWaiting(t *testing.T) {
	m := NewConfirmModel(testProfile(), 30*time.Second)
	ret, cmd := m.Update(keyMsg("x"))
	got := ret.(ConfirmModel)

	if got.decided {
		t.Errorf("unrelated key should not decide")
	}
	if cmd != nil {
		t.Errorf("unrelated key should not schedule anything")
	}
}

func TestConfirmModel_CountdownExpires(t *testing.T) {
	m := NewConfirmModel(testProfile(), 2*time.Second)

	ret, cmd := m.Update(tickMsg(time.Now()))
	got := ret.(ConfirmModel)
	if got.decided {
		t.Fatalf("one tick of two should not expire")
	}
	if cmd == nil {
		t.Fatalf("countdown should schedule the next tick")
	}

	ret, cmd = got.Update(tickMsg(time.Now()))
	got = ret.(ConfirmModel)
	if !got.TimedOut() {
		t.Errorf("countdown reaching zero should time out")
	}
	if got.Accepted() {
		t.Errorf("a timeout is never an acceptance")
	}
	assertQuit(t, cmd)
}

func TestConfirmModel_MinimumOneSecond(t *testing.T) {
	m := NewConfirmModel(testProfile(), 0)
	if m.remaining != 1 {
		t.Errorf("remaining = %d, want 1", m.remaining)
	}
}

func TestConfirmModel_View(t *testing.T) {
	m := NewConfirmModel(testProfile(), 30*time.Second)
	out := m.View()

	for _, want := range []string{"rm -rf ./build", "DANGEROUS", "recursive delete", "safe · caution · dangerous", "proceed?", "30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestConfirmModel_ViewShowsShellNote(t *testing.T) {
	p := testProfile()
	p.Raw = "cat /etc/passwd | wc -l"
	p.RequiresShell = true

	m := NewConfirmModel(p, 30*time.Second)
	if !strings.Contains(m.View(), "shell interpreter") {
		t.Errorf("shell-mode commands should be called out")
	}
}

func TestConfirmModel_ViewShowsConfigEditWarning(t *testing.T) {
	p := testProfile()
	p.Raw = "sudo vim /etc/sudoers"
	p.ConfigEdit = &core.ConfigEditInfo{
		Target:    "/etc/sudoers",
		Editor:    "vim",
		Critical:  true,
		NeedsSudo: true,
	}

	m := NewConfirmModel(p, 30*time.Second)
	out := m.View()
	if !strings.Contains(out, "/etc/sudoers") || !strings.Contains(out, "critical") {
		t.Errorf("critical config edit not surfaced:\n%s", out)
	}
}

func TestConfirmModel_ViewTruncatesMatchList(t *testing.T) {
	p := testProfile()
	for i := 0; i < 7; i++ {
		p.Matches = append(p.Matches, core.MatchedPattern{
			Pattern: "extra", Risk: core.RiskCaution,
		})
	}

	m := NewConfirmModel(p, 30*time.Second)
	out := m.View()
	if !strings.Contains(out, "more") {
		t.Errorf("long match lists should be elided:\n%s", out)
	}
}

func TestConfirmModel_ViewEmptyAfterDecision(t *testing.T) {
	m := NewConfirmModel(testProfile(), 30*time.Second)
	ret, _ := m.Update(keyMsg("y"))
	if got := ret.(ConfirmModel).View(); got != "" {
		t.Errorf("decided prompt should clear its view, got %q", got)
	}
}

func TestDecider_WiresIntoGateContract(t *testing.T) {
	// Compile-time fit with the gate's decider slot.
	var _ core.Decider = Decider(time.Second)
}
