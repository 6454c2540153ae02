package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func acceptAll(ctx context.Context, _ *CommandProfile) (bool, error) { return true, nil }
func declineAll(ctx context.Context, _ *CommandProfile) (bool, error) { return false, nil }

func TestGate_SafeGoesStraightToExecuting(t *testing.T) {
	pol := DefaultPolicy()
	profile := Classify("ls -la", pol)

	g := NewGate(pol, nil, nil)
	decision := g.Resolve(context.Background(), profile)

	if decision != DecisionAuto {
		t.Fatalf("decision = %q, want auto", decision)
	}
	want := []GateState{StatePending, StateExecuting}
	if !reflect.DeepEqual(g.Trace(), want) {
		t.Errorf("trace = %v, want %v", g.Trace(), want)
	}
}

func TestGate_DangerousNeverExecutesWithoutConfirmed(t *testing.T) {
	pol := DefaultPolicy()
	profile := Classify("rm -rf /", pol)

	tests := []struct {
		name    string
		decider Decider
		want    Decision
	}{
		{"no decider declines", nil, DecisionDeclined},
		{"explicit decline", DeciderFunc(declineAll), DecisionDeclined},
		{"accept confirms", DeciderFunc(acceptAll), DecisionConfirmed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGate(pol, tc.decider, nil)
			decision := g.Resolve(context.Background(), profile)
			if decision != tc.want {
				t.Fatalf("decision = %q, want %q", decision, tc.want)
			}

			// EXECUTING must only ever follow CONFIRMED.
			trace := g.Trace()
			for i, s := range trace {
				if s == StateExecuting {
					if i == 0 || trace[i-1] != StateConfirmed {
						t.Errorf("EXECUTING without CONFIRMED: %v", trace)
					}
				}
			}
			if !decision.Proceed() {
				if trace[len(trace)-1] != StateRejected {
					t.Errorf("non-proceed decision must end REJECTED: %v", trace)
				}
			}
		})
	}
}

func TestGate_ConfirmationTimeout(t *testing.T) {
	pol := DefaultPolicy()
	pol.ConfirmTimeout = 20 * time.Millisecond
	profile := Classify("rm -rf /", pol)

	// A decider that never answers; the gate must not wait for it.
	stuck := DeciderFunc(func(ctx context.Context, _ *CommandProfile) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})

	g := NewGate(pol, stuck, nil)
	start := time.Now()
	decision := g.Resolve(context.Background(), profile)
	elapsed := time.Since(start)

	if decision != DecisionConfirmTimeout {
		t.Fatalf("decision = %q, want confirm_timeout", decision)
	}
	if elapsed > time.Second {
		t.Errorf("gate waited %s, not bounded by the confirmation timeout", elapsed)
	}
	if g.State() != StateRejected {
		t.Errorf("state = %q, want rejected", g.State())
	}
}

func TestGate_RudeDeciderCannotStall(t *testing.T) {
	pol := DefaultPolicy()
	pol.ConfirmTimeout = 20 * time.Millisecond
	profile := Classify("rm -rf /", pol)

	// Ignores ctx entirely.
	rude := DeciderFunc(func(context.Context, *CommandProfile) (bool, error) {
		time.Sleep(5 * time.Second)
		return true, nil
	})

	g := NewGate(pol, rude, nil)
	start := time.Now()
	decision := g.Resolve(context.Background(), profile)

	if decision != DecisionConfirmTimeout {
		t.Fatalf("decision = %q, want confirm_timeout", decision)
	}
	if time.Since(start) > time.Second {
		t.Errorf("rude decider stalled the gate for %s", time.Since(start))
	}
}

func TestGate_DenyMode(t *testing.T) {
	pol := DefaultPolicy()
	pol.Confirm[RiskDangerous] = ConfirmDeny
	profile := Classify("rm -rf /", pol)

	// Even an eager accepter must never be consulted.
	consulted := false
	g := NewGate(pol, DeciderFunc(func(context.Context, *CommandProfile) (bool, error) {
		consulted = true
		return true, nil
	}), nil)

	decision := g.Resolve(context.Background(), profile)
	if decision != DecisionDenied {
		t.Fatalf("decision = %q, want denied", decision)
	}
	if consulted {
		t.Errorf("deny mode consulted the decider")
	}
	want := []GateState{StatePending, StateRejected}
	if !reflect.DeepEqual(g.Trace(), want) {
		t.Errorf("trace = %v, want %v", g.Trace(), want)
	}
}

func TestGate_DryRunBypassesEverything(t *testing.T) {
	pol := DefaultPolicy()
	pol.DryRun = true

	for _, raw := range []string{"ls -la", "rm -rf /", "sleep 10"} {
		profile := Classify(raw, pol)
		g := NewGate(pol, DeciderFunc(acceptAll), nil)
		decision := g.Resolve(context.Background(), profile)
		if decision != DecisionDryRun {
			t.Errorf("Resolve(%q) = %q, want dry_run", raw, decision)
		}
		want := []GateState{StatePending, StateDone}
		if !reflect.DeepEqual(g.Trace(), want) {
			t.Errorf("dry-run trace = %v, want %v", g.Trace(), want)
		}
	}
}

func TestGate_DeciderErrorDeclines(t *testing.T) {
	pol := DefaultPolicy()
	profile := Classify("rm -rf /", pol)

	broken := DeciderFunc(func(context.Context, *CommandProfile) (bool, error) {
		return true, errors.New("tty gone")
	})

	g := NewGate(pol, broken, nil)
	if decision := g.Resolve(context.Background(), profile); decision != DecisionDeclined {
		t.Fatalf("decision = %q, want declined", decision)
	}
}

func TestGate_CallerInterruptDeclines(t *testing.T) {
	pol := DefaultPolicy()
	profile := Classify("rm -rf /", pol)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stuck := DeciderFunc(func(ctx context.Context, _ *CommandProfile) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})

	g := NewGate(pol, stuck, nil)
	if decision := g.Resolve(ctx, profile); decision != DecisionDeclined {
		t.Fatalf("decision = %q, want declined", decision)
	}
}

func TestDecisionProceed(t *testing.T) {
	tests := []struct {
		decision Decision
		want     bool
	}{
		{DecisionAuto, true},
		{DecisionConfirmed, true},
		{DecisionDeclined, false},
		{DecisionConfirmTimeout, false},
		{DecisionDenied, false},
		{DecisionDryRun, false},
	}
	for _, tc := range tests {
		if got := tc.decision.Proceed(); got != tc.want {
			t.Errorf("%q.Proceed() = %v, want %v", tc.decision, got, tc.want)
		}
	}
}
