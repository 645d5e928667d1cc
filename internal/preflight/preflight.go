package preflight

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/aviator-labs/flightdeck/internal/registry"
)

// Check verifies the prerequisites for launching: the interpreter binary
// is on PATH and every registry script exists on disk. Run before the
// Launching phase; a failure means nothing gets started.
func Check(reg *registry.Registry, python string) error {
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return fmt.Errorf("interpreter %q not found on PATH: %w", python, err)
	}
	slog.Info("interpreter found", "binary", python)

	for _, spec := range reg.Specs() {
		if _, err := os.Stat(spec.Script); err != nil {
			return fmt.Errorf("script for %s not found: %s", spec.Name, spec.Script)
		}
		slog.Info("script present", "service", spec.Name, "script", spec.Script)
	}
	return nil
}
