//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// SetProcAttrs puts the child in its own process group so termination
// signals reach the whole service tree.
func SetProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
