package core

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func needsPOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func shellRequest(raw string, timeout time.Duration) ExecutionRequest {
	return ExecutionRequest{
		Profile: &CommandProfile{Raw: raw, RequiresShell: true},
		Mode:    InvokeShell,
		Timeout: timeout,
	}
}

func argvRequest(argv ...string) ExecutionRequest {
	return ExecutionRequest{
		Profile: &CommandProfile{Raw: strings.Join(argv, " "), Argv: argv},
		Mode:    InvokeArgv,
		Timeout: 10 * time.Second,
	}
}

func TestExecute_Success(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	res := ex.Execute(context.Background(), argvRequest("echo", "hello"), c)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q (%s), want success", res.Outcome, res.Reason)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "hello\n")
	}
	if res.ExitStatus() != 0 {
		t.Errorf("ExitStatus() = %d, want 0", res.ExitStatus())
	}
}

func TestExecute_NonzeroExitPreserved(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	res := ex.Execute(context.Background(), shellRequest("exit 7", 10*time.Second), c)

	if res.Outcome != OutcomeNonZeroExit {
		t.Fatalf("outcome = %q, want nonzero_exit", res.Outcome)
	}
	if res.ExitCode == nil || *res.ExitCode != 7 {
		t.Errorf("exit code = %v, want 7", res.ExitCode)
	}
	if res.ExitStatus() != 7 {
		t.Errorf("ExitStatus() = %d, want 7", res.ExitStatus())
	}
}

func TestExecute_StreamsKeptApart(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	res := ex.Execute(context.Background(), shellRequest("echo out; echo err >&2", 10*time.Second), c)

	if res.Stdout != "out\n" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("stderr = %q, want %q", res.Stderr, "err\n")
	}
}

func TestExecute_TimeoutKillsProcessGroup(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	// The background sleep inherits the stdout pipe. If only the shell
	// died, the collector would block on that pipe for 30 seconds.
	start := time.Now()
	res := ex.Execute(context.Background(), shellRequest("sleep 30 & sleep 30", 200*time.Millisecond), c)
	elapsed := time.Since(start)

	if res.Outcome != OutcomeTimeout {
		t.Fatalf("outcome = %q (%s), want timeout", res.Outcome, res.Reason)
	}
	if elapsed > 5*time.Second {
		t.Errorf("execution took %s, descendants survived the kill", elapsed)
	}
	if res.Elapsed > 5*time.Second {
		t.Errorf("recorded elapsed %s does not reflect actual runtime", res.Elapsed)
	}
	if res.ExitStatus() != 124 {
		t.Errorf("ExitStatus() = %d, want 124", res.ExitStatus())
	}
}

func TestExecute_NotFoundTaxonomy(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}

	t.Run("argv mode", func(t *testing.T) {
		c := NewCollector(0, nil)
		res := ex.Execute(context.Background(), argvRequest("runguard-no-such-binary-49f1"), c)

		if res.Outcome != OutcomeNotFound {
			t.Fatalf("outcome = %q, want not_found", res.Outcome)
		}
		if res.ExitStatus() != 127 {
			t.Errorf("ExitStatus() = %d, want 127", res.ExitStatus())
		}
	})

	t.Run("shell mode", func(t *testing.T) {
		// The shell launches fine and reports 127 itself.
		c := NewCollector(0, nil)
		res := ex.Execute(context.Background(), shellRequest("runguard-no-such-binary-49f1", 10*time.Second), c)

		if res.Outcome != OutcomeNonZeroExit {
			t.Fatalf("outcome = %q, want nonzero_exit", res.Outcome)
		}
		if res.ExitCode == nil || *res.ExitCode != 127 {
			t.Errorf("exit code = %v, want 127", res.ExitCode)
		}
	})
}

func TestExecute_SignalReported(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	res := ex.Execute(context.Background(), shellRequest("kill -TERM $$", 10*time.Second), c)

	if res.Outcome != OutcomeSignaled {
		t.Fatalf("outcome = %q (%s), want signaled", res.Outcome, res.Reason)
	}
	if res.Signal != 15 {
		t.Errorf("signal = %d, want 15", res.Signal)
	}
	if res.ExitStatus() != 143 {
		t.Errorf("ExitStatus() = %d, want 143", res.ExitStatus())
	}
}

func TestExecute_ElapsedReflectsRuntime(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	res := ex.Execute(context.Background(), shellRequest("sleep 0.2", 10*time.Second), c)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q (%s), want success", res.Outcome, res.Reason)
	}
	if res.Elapsed < 200*time.Millisecond {
		t.Errorf("elapsed = %s, want at least 200ms", res.Elapsed)
	}
	if res.Elapsed > 5*time.Second {
		t.Errorf("elapsed = %s, absurdly long for a 200ms sleep", res.Elapsed)
	}
}

func TestExecute_StdinWiredThrough(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	req := argvRequest("cat")
	req.Stdin = strings.NewReader("fed via stdin\n")
	res := ex.Execute(context.Background(), req, c)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q, want success", res.Outcome)
	}
	if res.Stdout != "fed via stdin\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecute_WorkingDirectory(t *testing.T) {
	needsPOSIX(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "probe.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)
	req := argvRequest("ls")
	req.Dir = dir
	res := ex.Execute(context.Background(), req, c)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q, want success", res.Outcome)
	}
	if !strings.Contains(res.Stdout, "probe.txt") {
		t.Errorf("ls in %s printed %q, probe file missing", dir, res.Stdout)
	}
}

func TestExecute_ExplicitEnvironment(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	req := shellRequest("echo $RUNGUARD_PROBE", 10*time.Second)
	req.Env = []string{"RUNGUARD_PROBE=42"}
	res := ex.Execute(context.Background(), req, c)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("outcome = %q, want success", res.Outcome)
	}
	if res.Stdout != "42\n" {
		t.Errorf("stdout = %q, want %q", res.Stdout, "42\n")
	}
}

func TestExecute_ContextCancelInterrupts(t *testing.T) {
	needsPOSIX(t)
	ex := Executor{Shell: "/bin/sh"}
	c := NewCollector(0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := ex.Execute(ctx, shellRequest("sleep 30", 60*time.Second), c)

	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancellation took %s to take effect", time.Since(start))
	}
	if res.Reason != "interrupted" {
		t.Errorf("reason = %q, want interrupted", res.Reason)
	}
	if res.Outcome != OutcomeSignaled {
		t.Errorf("outcome = %q, want signaled", res.Outcome)
	}
}

func TestExecute_EmptyArgv(t *testing.T) {
	ex := Executor{}
	c := NewCollector(0, nil)

	req := ExecutionRequest{Profile: &CommandProfile{Raw: ""}, Mode: InvokeArgv}
	res := ex.Execute(context.Background(), req, c)

	if res.Outcome != OutcomeIOError {
		t.Errorf("outcome = %q, want io_error", res.Outcome)
	}
}

func TestNewRequest_ModeSelection(t *testing.T) {
	pol := DefaultPolicy()

	tests := []struct {
		name string
		raw  string
		want InvokeMode
	}{
		{"plain argv", "git status", InvokeArgv},
		{"pipeline", "ls | wc -l", InvokeShell},
		{"redirect", "echo hi > out.txt", InvokeShell},
		{"glob", "rm *.log", InvokeShell},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profile := Classify(tc.raw, pol)
			req := NewRequest(profile, pol)
			if req.Mode != tc.want {
				t.Errorf("mode = %q, want %q", req.Mode, tc.want)
			}
			if req.Timeout != pol.EffectiveTimeout() {
				t.Errorf("timeout = %s, want %s", req.Timeout, pol.EffectiveTimeout())
			}
		})
	}
}
