//go:build !windows

package proc

import "syscall"

// Signals target the process group so children spawned by the service
// (e.g. an auto-reload worker) are included.

func terminateGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

func killGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
