package launcher

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/aviator-labs/flightdeck/internal/logger"
	"github.com/aviator-labs/flightdeck/internal/proc"
	"github.com/aviator-labs/flightdeck/internal/registry"
)

// DefaultSettle is how long a freshly spawned process must stay up before
// the launch is considered successful.
const DefaultSettle = 2 * time.Second

// LaunchError reports a process that exited before the settle check,
// carrying its exit code and captured output for diagnostics.
type LaunchError struct {
	Service  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("service %s exited during startup with code %d", e.Service, e.ExitCode)
}

// Launcher spawns service processes with output capture and a settle check.
type Launcher struct {
	Python string        // interpreter binary, default "python3"
	Settle time.Duration // 0 means DefaultSettle
	Log    logger.Config // optional rotating file capture of service output
}

func New() *Launcher {
	return &Launcher{Python: "python3", Settle: DefaultSettle}
}

func (l *Launcher) python() string {
	if l.Python == "" {
		return "python3"
	}
	return l.Python
}

func (l *Launcher) settle() time.Duration {
	if l.Settle <= 0 {
		return DefaultSettle
	}
	return l.Settle
}

// BuildCommand constructs the invocation for a spec keyed on its category.
func (l *Launcher) BuildCommand(spec registry.ServiceSpec) *exec.Cmd {
	py := l.python()
	switch spec.Category {
	case registry.CategoryWebDashboard:
		// #nosec G204 -- argv comes from the validated registry
		return exec.Command(py, "-m", "streamlit", "run", spec.Script,
			"--server.port", strconv.Itoa(spec.Port),
			"--server.headless", "true",
			"--browser.gatherUsageStats", "false")
	case registry.CategoryHTTPAPI:
		// #nosec G204
		return exec.Command(py, "-m", "uvicorn", asgiTarget(spec.Script),
			"--host", "0.0.0.0",
			"--port", strconv.Itoa(spec.Port),
			"--reload")
	default:
		// #nosec G204
		return exec.Command(py, spec.Script)
	}
}

// asgiTarget converts a script path into a uvicorn module target:
// microservicios/detector/main.py -> microservicios.detector.main:app
func asgiTarget(script string) string {
	mod := strings.TrimSuffix(script, ".py")
	mod = strings.ReplaceAll(mod, "/", ".")
	return mod + ":app"
}

// Launch spawns the process for spec, captures its output, and performs
// the settle check. It returns a Handle in state Running, or a
// *LaunchError when the process died before settling. It never blocks
// longer than the settle interval.
func (l *Launcher) Launch(spec registry.ServiceSpec) (*proc.Handle, error) {
	h := proc.New(spec)
	cmd := l.BuildCommand(spec)
	proc.SetProcAttrs(cmd)

	outW, errW, ferr := l.Log.Writers(spec.Name)
	if ferr != nil {
		return nil, fmt.Errorf("prepare log writers for %s: %w", spec.Name, ferr)
	}
	cmd.Stdout = tee(h.Stdout(), outW)
	cmd.Stderr = tee(h.Stderr(), errW)
	h.EnsureLogClosers(outW, errW)

	if err := h.Start(cmd); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spec.Name, err)
	}

	// Settle check: the process must survive the settle interval. An
	// early exit surfaces immediately instead of waiting out the timer.
	select {
	case <-h.WaitDone():
	case <-time.After(l.settle()):
	}
	if h.Exited() {
		stdout, stderr := h.Output()
		h.SetState(proc.StateFailed)
		return nil, &LaunchError{
			Service:  spec.Name,
			ExitCode: h.ExitCode(),
			Stdout:   stdout,
			Stderr:   stderr,
		}
	}
	h.SetState(proc.StateRunning)
	return h, nil
}

func tee(buf io.Writer, file io.Writer) io.Writer {
	if file == nil {
		return buf
	}
	return io.MultiWriter(buf, file)
}
