package core

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// GateState is one node of the gate's state machine.
type GateState string

const (
	StatePending    GateState = "pending"
	StateConfirming GateState = "confirming"
	StateConfirmed  GateState = "confirmed"
	StateRejected   GateState = "rejected"
	StateExecuting  GateState = "executing"
	StateDone       GateState = "done"
)

// Decision records how the gate resolved an invocation.
type Decision string

const (
	// DecisionAuto means no confirmation was required.
	DecisionAuto Decision = "auto"
	// DecisionConfirmed means an external signal accepted the command.
	DecisionConfirmed Decision = "confirmed"
	// DecisionDeclined means an external signal rejected the command.
	DecisionDeclined Decision = "declined"
	// DecisionConfirmTimeout means no signal arrived in time.
	DecisionConfirmTimeout Decision = "confirm_timeout"
	// DecisionDenied means the policy forbids this risk level outright.
	DecisionDenied Decision = "denied"
	// DecisionDryRun means the policy forbids executing anything.
	DecisionDryRun Decision = "dry_run"
)

// Proceed reports whether the decision allows execution.
func (d Decision) Proceed() bool {
	return d == DecisionAuto || d == DecisionConfirmed
}

// Decider supplies the external accept/decline signal the gate awaits while
// CONFIRMING. Implementations must honor ctx; the gate additionally bounds
// the wait with the policy's confirmation timeout, so even a decider that
// blocks forever cannot stall an invocation.
type Decider interface {
	Decide(ctx context.Context, profile *CommandProfile) (bool, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, profile *CommandProfile) (bool, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, profile *CommandProfile) (bool, error) {
	return f(ctx, profile)
}

// Gate walks one command through PENDING → {CONFIRMING → {CONFIRMED,
// REJECTED}} → EXECUTING → DONE, with a direct PENDING→EXECUTING edge when
// the policy requires no confirmation and a terminal dry-run branch that
// bypasses execution entirely. REJECTED and DONE are terminal. A Gate serves
// a single invocation.
type Gate struct {
	policy  *Policy
	decider Decider
	log     *log.Logger

	state GateState
	trace []GateState
}

// NewGate creates a gate for one invocation. The decider may be nil, in
// which case any command that needs confirmation is declined.
func NewGate(pol *Policy, decider Decider, logger *log.Logger) *Gate {
	if pol == nil {
		pol = DefaultPolicy()
	}
	if logger == nil {
		logger = log.Default()
	}
	g := &Gate{policy: pol, decider: decider, log: logger}
	g.to(StatePending)
	return g
}

// State returns the gate's current state.
func (g *Gate) State() GateState { return g.state }

// Trace returns every state the gate has visited, in order.
func (g *Gate) Trace() []GateState { return g.trace }

func (g *Gate) to(s GateState) {
	g.state = s
	g.trace = append(g.trace, s)
}

// Resolve decides whether profile may execute. It suspends at CONFIRMING
// until the decider answers or the confirmation timeout expires. Decline,
// timeout, and policy denial all resolve to non-proceed decisions; none are
// retried.
func (g *Gate) Resolve(ctx context.Context, profile *CommandProfile) Decision {
	if g.policy.DryRun {
		g.to(StateDone)
		g.log.Debug("gate: dry run, skipping execution", "command", profile.Raw)
		return DecisionDryRun
	}

	mode := g.policy.ConfirmModeFor(profile.Risk)
	switch mode {
	case ConfirmNever:
		g.to(StateExecuting)
		return DecisionAuto
	case ConfirmDeny:
		g.to(StateRejected)
		g.log.Debug("gate: denied by policy", "risk", profile.Risk)
		return DecisionDenied
	}

	g.to(StateConfirming)
	decision := g.awaitConfirmation(ctx, profile)
	switch decision {
	case DecisionConfirmed:
		g.to(StateConfirmed)
		g.to(StateExecuting)
	default:
		g.to(StateRejected)
	}
	return decision
}

// awaitConfirmation runs the decider as an awaited signal bounded by the
// confirmation timeout, never as an unconditional blocking read.
func (g *Gate) awaitConfirmation(ctx context.Context, profile *CommandProfile) Decision {
	if g.decider == nil {
		g.log.Debug("gate: confirmation required but no decider wired, declining")
		return DecisionDeclined
	}

	waitCtx, cancel := context.WithTimeout(ctx, g.policy.EffectiveConfirmTimeout())
	defer cancel()

	type answer struct {
		accepted bool
		err      error
	}
	ch := make(chan answer, 1)
	go func() {
		accepted, err := g.decider.Decide(waitCtx, profile)
		ch <- answer{accepted, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			if errors.Is(a.err, context.DeadlineExceeded) {
				return DecisionConfirmTimeout
			}
			g.log.Debug("gate: decider failed, declining", "err", a.err)
			return DecisionDeclined
		}
		if a.accepted {
			return DecisionConfirmed
		}
		return DecisionDeclined
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			// Caller interrupt, not a timeout.
			return DecisionDeclined
		}
		return DecisionConfirmTimeout
	}
}

// Finish marks the invocation complete.
func (g *Gate) Finish() {
	if g.state != StateDone {
		g.to(StateDone)
	}
}
