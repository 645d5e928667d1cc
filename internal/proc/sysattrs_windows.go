//go:build windows

package proc

import "os/exec"

func SetProcAttrs(_ *exec.Cmd) {}
