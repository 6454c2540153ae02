//go:build windows

package core

import "os/exec"

func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills only the immediate child on Windows; there is no
// POSIX process group to signal.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func exitSignal(exitErr *exec.ExitError) (int, bool) {
	return 0, false
}
