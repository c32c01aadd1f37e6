//go:build !windows

package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// down renderer and GPU helpers the browser spawned.
func KillProcessGroup(pid int) {
	// Best effort; the launcher's own Kill runs afterwards.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
