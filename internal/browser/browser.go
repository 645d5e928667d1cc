package browser

import (
	"log/slog"
	"os/exec"
	"runtime"
)

// Open launches the system default browser at url. Fire-and-forget: the
// command is started detached and any failure is logged, never returned,
// so a missing browser cannot affect the caller.
func Open(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("could not open browser", "url", url, "error", err)
		return
	}
	go func() { _ = cmd.Wait() }()
	slog.Info("opened dashboard in browser", "url", url)
}
