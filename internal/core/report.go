package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"time"
)

// Outcome classifies how an invocation ended. Success is only ever inferred
// from the process's own exit status, never from its output.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeNonZeroExit      Outcome = "nonzero_exit"
	OutcomeSignaled         Outcome = "signaled"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeNotFound         Outcome = "not_found"
	OutcomePermissionDenied Outcome = "permission_denied"
	OutcomePolicyRejected   Outcome = "policy_rejected"
	OutcomeIOError          Outcome = "io_error"
	OutcomeDryRun           Outcome = "dry_run"
)

// ExecutionResult is the final, structured account of one invocation.
type ExecutionResult struct {
	// ID identifies the invocation in logs and the journal.
	ID string `json:"id"`
	// Outcome is the terminal classification.
	Outcome Outcome `json:"outcome"`
	// ExitCode is the child's exit code; nil when the process never
	// started or was terminated by a signal.
	ExitCode *int `json:"exit_code,omitempty"`
	// Signal is the terminating signal number when Outcome is signaled.
	Signal int `json:"signal,omitempty"`
	// Stdout and Stderr hold the captured streams, possibly truncated.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// StdoutTruncated and StderrTruncated flag capped captures.
	StdoutTruncated bool `json:"stdout_truncated,omitempty"`
	StderrTruncated bool `json:"stderr_truncated,omitempty"`
	// Elapsed is the actual wall-clock runtime, even on timeout.
	Elapsed time.Duration `json:"elapsed_ns"`
	// Reason explains the outcome for humans.
	Reason string `json:"reason,omitempty"`
	// Decision records how the gate resolved.
	Decision Decision `json:"decision,omitempty"`
	// Trace lists the gate states this invocation visited, in order.
	Trace []GateState `json:"trace,omitempty"`
}

// ExitStatus maps the outcome onto a process exit code for the calling
// shell: success and dry runs exit zero, a child's own code passes through,
// timeouts exit 124, missing executables 127, permission failures 126, and
// signal deaths 128+signal, matching POSIX shell conventions. Everything
// else, including policy rejections, exits 1.
func (r *ExecutionResult) ExitStatus() int {
	switch r.Outcome {
	case OutcomeSuccess, OutcomeDryRun:
		return 0
	case OutcomeNonZeroExit:
		if r.ExitCode != nil {
			return *r.ExitCode
		}
		return 1
	case OutcomeTimeout:
		return 124
	case OutcomeNotFound:
		return 127
	case OutcomePermissionDenied:
		return 126
	case OutcomeSignaled:
		if r.Signal > 0 {
			return 128 + r.Signal
		}
		return 1
	default:
		return 1
	}
}

// Failed reports whether the invocation ended in anything but a clean run.
func (r *ExecutionResult) Failed() bool {
	return r.Outcome != OutcomeSuccess && r.Outcome != OutcomeDryRun
}

// rejectionResult builds the terminal result for a gate decision that did
// not proceed.
func rejectionResult(id string, decision Decision) *ExecutionResult {
	res := &ExecutionResult{
		ID:       id,
		Decision: decision,
	}
	switch decision {
	case DecisionDryRun:
		res.Outcome = OutcomeDryRun
		res.Reason = "dry run: command classified but not executed"
	case DecisionConfirmTimeout:
		res.Outcome = OutcomePolicyRejected
		res.Reason = "confirmation timed out"
	case DecisionDenied:
		res.Outcome = OutcomePolicyRejected
		res.Reason = "denied by policy"
	default:
		res.Outcome = OutcomePolicyRejected
		res.Reason = "declined"
	}
	return res
}

// launchOutcome classifies an error from process start: a missing
// executable, a permission problem, or an I/O failure. Anything launch
// related that is not clearly one of the first two counts as I/O.
func launchOutcome(err error) (Outcome, string) {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return OutcomeNotFound, fmt.Sprintf("executable not found: %v", err)
	case errors.Is(err, fs.ErrPermission):
		return OutcomePermissionDenied, fmt.Sprintf("permission denied: %v", err)
	default:
		return OutcomeIOError, fmt.Sprintf("starting command: %v", err)
	}
}

// waitOutcome classifies the error from reaping a finished process.
// timedOut marks that the executor killed the process group itself.
func waitOutcome(err error, timedOut bool, timeout time.Duration) (outcome Outcome, exitCode *int, signal int, reason string) {
	if timedOut {
		return OutcomeTimeout, nil, 0, fmt.Sprintf("killed after %s timeout", timeout)
	}
	if err == nil {
		zero := 0
		return OutcomeSuccess, &zero, 0, ""
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if sig, ok := exitSignal(exitErr); ok {
			return OutcomeSignaled, nil, sig, fmt.Sprintf("terminated by signal %d", sig)
		}
		code := exitErr.ExitCode()
		return OutcomeNonZeroExit, &code, 0, fmt.Sprintf("exit status %d", code)
	}

	return OutcomeIOError, nil, 0, fmt.Sprintf("waiting for command: %v", err)
}
