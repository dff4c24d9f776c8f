//go:build !windows

package process

import "syscall"

// KillTree sends SIGKILL to the process group led by pid, taking the
// browser's renderer and GPU helpers down with it.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}
	// The group may already be gone; the caller falls back to the launcher.
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
