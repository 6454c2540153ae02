// Package core: process execution with bounded runtime.
package core

import (
	"context"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
)

// InvokeMode selects how the child is started.
type InvokeMode string

const (
	// InvokeArgv starts the program directly from the argument vector, with
	// no shell interpretation.
	InvokeArgv InvokeMode = "argv"
	// InvokeShell hands the raw string to the shell as a single -c argument.
	InvokeShell InvokeMode = "shell"
)

// ExecutionRequest pairs a classified command with its resolved invocation
// mode and the bounds to apply. Built once per invocation, discarded after.
type ExecutionRequest struct {
	Profile *CommandProfile
	Mode    InvokeMode
	Timeout time.Duration
	Dir     string
	Env     []string
	Stdin   io.Reader
}

// NewRequest resolves the invocation mode and timeout for a profile under
// pol: shell-requiring commands run through the interpreter, everything
// else runs argv-direct.
func NewRequest(profile *CommandProfile, pol *Policy) ExecutionRequest {
	mode := InvokeArgv
	if profile.RequiresShell || len(profile.Argv) == 0 {
		mode = InvokeShell
	}
	return ExecutionRequest{
		Profile: profile,
		Mode:    mode,
		Timeout: pol.EffectiveTimeout(),
	}
}

// Executor launches child processes. The zero value is usable; Shell
// overrides the interpreter ($SHELL, then /bin/sh).
type Executor struct {
	Shell string
	Log   *log.Logger
}

func (e *Executor) logger() *log.Logger {
	if e.Log != nil {
		return e.Log
	}
	return log.Default()
}

func (e *Executor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// Execute runs the request to completion, draining output through the
// collector. The child runs in its own process group; when the timeout
// fires or ctx is canceled, the whole group is killed so descendants cannot
// linger, and the pipes are released. Execute never blocks beyond the
// timeout and always returns a result carrying the actual elapsed runtime.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest, collector *Collector) *ExecutionResult {
	res := &ExecutionResult{}
	logger := e.logger()

	var cmd *exec.Cmd
	switch {
	case req.Mode == InvokeShell:
		cmd = exec.Command(e.shell(), "-c", req.Profile.Raw)
	case len(req.Profile.Argv) == 0:
		res.Outcome, res.Reason = OutcomeIOError, "empty argument vector"
		return res
	default:
		cmd = exec.Command(req.Profile.Argv[0], req.Profile.Argv[1:]...)
	}
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	cmd.Env = req.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Stdin = req.Stdin
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		res.Outcome, res.Reason = OutcomeIOError, "opening stdout pipe: "+err.Error()
		return res
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		res.Outcome, res.Reason = OutcomeIOError, "opening stderr pipe: "+err.Error()
		return res
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Outcome, res.Reason = launchOutcome(err)
		res.Elapsed = time.Since(start)
		return res
	}
	logger.Debug("started", "pid", cmd.Process.Pid, "mode", req.Mode)

	collector.Drain(stdout, stderr)

	// Readers must hit EOF before Wait reaps the child, or trailing output
	// is lost; killing the group closes every pipe writer, so this ordering
	// also unblocks cleanly on timeout.
	waitCh := make(chan error, 1)
	go func() {
		collector.Wait()
		waitCh <- cmd.Wait()
	}()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	timedOut := false
	interrupted := false
	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		timedOut = true
		logger.Debug("timeout, killing process group", "pid", cmd.Process.Pid, "after", timeout)
		killProcessGroup(cmd)
		waitErr = <-waitCh
	case <-ctx.Done():
		interrupted = true
		logger.Debug("interrupted, killing process group", "pid", cmd.Process.Pid)
		killProcessGroup(cmd)
		waitErr = <-waitCh
	}

	res.Elapsed = time.Since(start)
	res.Outcome, res.ExitCode, res.Signal, res.Reason = waitOutcome(waitErr, timedOut, timeout)
	if interrupted {
		res.Reason = "interrupted"
	}
	res.Stdout, res.StdoutTruncated = collector.Stdout()
	res.Stderr, res.StderrTruncated = collector.Stderr()
	return res
}
