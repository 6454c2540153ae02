package core

import (
	"strings"
	"testing"
)

func TestNewRule(t *testing.T) {
	r, err := NewRule(`^rm\b`, RiskCaution, "removes files")
	if err != nil {
		t.Fatalf("NewRule: %v", err)
	}
	if !r.Matches("rm x") {
		t.Errorf("rule does not match its own anchor")
	}
	if !r.Matches("RM x") {
		t.Errorf("rules must match case-insensitively")
	}
	if r.Matches("firmware x") {
		t.Errorf("word boundary ignored")
	}

	if _, err := NewRule(`([`, RiskCaution, ""); err == nil {
		t.Errorf("invalid pattern accepted")
	} else if !strings.Contains(err.Error(), "compiling rule") {
		t.Errorf("error = %q", err)
	}
}

func TestMustRulePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MustRule with a broken pattern did not panic")
		}
	}()
	MustRule(`([`, RiskDangerous, "")
}

func TestConfirmModeFor_FailsClosed(t *testing.T) {
	pol := &Policy{} // no confirm map at all

	if got := pol.ConfirmModeFor(RiskSafe); got != ConfirmNever {
		t.Errorf("safe = %q, want never", got)
	}
	if got := pol.ConfirmModeFor(RiskCaution); got != ConfirmPrompt {
		t.Errorf("caution = %q, want prompt", got)
	}
	if got := pol.ConfirmModeFor(RiskDangerous); got != ConfirmPrompt {
		t.Errorf("dangerous = %q, want prompt", got)
	}
}

func TestDefaultPolicy_Isolated(t *testing.T) {
	a := DefaultPolicy()
	b := DefaultPolicy()

	a.Confirm[RiskDangerous] = ConfirmDeny
	a.Rules = a.Rules[:0]

	if b.Confirm[RiskDangerous] != ConfirmPrompt {
		t.Errorf("policies share the confirm map")
	}
	if len(b.Rules) == 0 {
		t.Errorf("policies share the rule slice")
	}
}

func TestEffectiveFallbackRisk_NeverSafe(t *testing.T) {
	tests := []struct {
		in   RiskLevel
		want RiskLevel
	}{
		{"", RiskCaution},
		{RiskSafe, RiskCaution},
		{RiskCaution, RiskCaution},
		{RiskDangerous, RiskDangerous},
	}
	for _, tc := range tests {
		pol := &Policy{FallbackRisk: tc.in}
		if got := pol.EffectiveFallbackRisk(); got != tc.want {
			t.Errorf("EffectiveFallbackRisk(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHigherRisk(t *testing.T) {
	tests := []struct {
		a, b, want RiskLevel
	}{
		{RiskSafe, RiskSafe, RiskSafe},
		{RiskSafe, RiskCaution, RiskCaution},
		{RiskCaution, RiskSafe, RiskCaution},
		{RiskCaution, RiskDangerous, RiskDangerous},
		{RiskDangerous, RiskSafe, RiskDangerous},
	}
	for _, tc := range tests {
		if got := HigherRisk(tc.a, tc.b); got != tc.want {
			t.Errorf("HigherRisk(%q, %q) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRiskRank_UnknownIsCaution(t *testing.T) {
	if got := RiskLevel("weird").Rank(); got != RiskCaution.Rank() {
		t.Errorf("unknown risk ranks %d, want the caution rank", got)
	}
}

func TestBuiltinRules_AllCompile(t *testing.T) {
	rules := BuiltinRules()
	if len(rules) == 0 {
		t.Fatalf("no builtin rules")
	}
	for _, r := range rules {
		if !r.Risk.Valid() {
			t.Errorf("rule %q carries invalid risk %q", r.Pattern, r.Risk)
		}
		if r.Risk == RiskSafe {
			t.Errorf("rule %q is marked safe; builtin rules only raise risk", r.Pattern)
		}
	}
}
