package core

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// RunOptions carries the per-invocation collaborators: the confirmation
// decider, the live output sink, and where/how the child runs.
type RunOptions struct {
	// Decider answers the gate's confirmation question. Nil declines
	// anything that needs confirming.
	Decider Decider
	// Sink receives live output chunks. Nil disables streaming.
	Sink ChunkSink
	// Dir is the child's working directory; empty inherits.
	Dir string
	// Env is the child's environment; nil inherits.
	Env []string
	// Stdin is wired to the child; nil means no input.
	Stdin io.Reader
	// ForceShell runs the command through the interpreter even when it
	// parsed cleanly into an argument vector.
	ForceShell bool
	// PreExec runs after the gate allows execution and before the child
	// starts. Used for config-file backups; it cannot veto the run.
	PreExec func(profile *CommandProfile)
}

// Engine runs one command lifecycle per Run call: classify, gate, execute,
// collect, report. It holds no state between invocations beyond its logger
// and executor, and the policy is supplied per call, read-only.
type Engine struct {
	executor Executor
	log      *log.Logger
}

// NewEngine creates an engine. A nil logger discards to the default.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		executor: Executor{Log: logger},
		log:      logger,
	}
}

// SetShell overrides the shell interpreter, mainly for tests.
func (e *Engine) SetShell(shell string) {
	e.executor.Shell = shell
}

// Run walks raw through the full lifecycle under pol and always produces a
// result: classification cannot fail, gate rejections and dry runs are
// results rather than errors, and every execution failure is captured into
// the outcome. Nothing is retried.
func (e *Engine) Run(ctx context.Context, raw string, pol *Policy, opts RunOptions) (*CommandProfile, *ExecutionResult) {
	if pol == nil {
		pol = DefaultPolicy()
	}
	id := uuid.New().String()

	profile := Classify(raw, pol)
	e.log.Debug("classified",
		"id", id,
		"risk", profile.Risk,
		"shell", profile.RequiresShell,
		"matches", len(profile.Matches))

	gate := NewGate(pol, opts.Decider, e.log)
	decision := gate.Resolve(ctx, profile)
	if !decision.Proceed() {
		res := rejectionResult(id, decision)
		res.Trace = gate.Trace()
		e.log.Debug("not executing", "id", id, "decision", decision, "outcome", res.Outcome)
		return profile, res
	}

	if opts.PreExec != nil {
		opts.PreExec(profile)
	}

	req := NewRequest(profile, pol)
	if opts.ForceShell {
		req.Mode = InvokeShell
	}
	req.Dir = opts.Dir
	req.Env = opts.Env
	req.Stdin = opts.Stdin

	collector := NewCollector(pol.EffectiveMaxOutputBytes(), opts.Sink)
	res := e.executor.Execute(ctx, req, collector)
	res.ID = id
	res.Decision = decision
	gate.Finish()
	res.Trace = gate.Trace()

	e.log.Debug("finished",
		"id", id,
		"outcome", res.Outcome,
		"elapsed", res.Elapsed)
	return profile, res
}
