//go:build windows

package proc

import "os"

// Windows has no SIGTERM delivery to process groups; both paths kill the
// process directly.

func terminateGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func killGroup(pid int) error {
	return terminateGroup(pid)
}
