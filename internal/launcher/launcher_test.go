package launcher

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/aviator-labs/flightdeck/internal/proc"
	"github.com/aviator-labs/flightdeck/internal/registry"
)

func TestBuildCommandWebDashboard(t *testing.T) {
	l := New()
	spec := registry.ServiceSpec{
		Name:       "dash",
		Category:   registry.CategoryWebDashboard,
		Script:     "dashboards/main_dashboard.py",
		Port:       8501,
		HealthPath: "/health",
	}
	cmd := l.BuildCommand(spec)
	want := []string{
		"python3", "-m", "streamlit", "run", "dashboards/main_dashboard.py",
		"--server.port", "8501",
		"--server.headless", "true",
		"--browser.gatherUsageStats", "false",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestBuildCommandHTTPAPI(t *testing.T) {
	l := New()
	spec := registry.ServiceSpec{
		Name:       "api",
		Category:   registry.CategoryHTTPAPI,
		Script:     "microservicios/realtime_detector/main.py",
		Port:       8002,
		HealthPath: "/health",
	}
	cmd := l.BuildCommand(spec)
	want := []string{
		"python3", "-m", "uvicorn", "microservicios.realtime_detector.main:app",
		"--host", "0.0.0.0",
		"--port", "8002",
		"--reload",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestBuildCommandGenericScript(t *testing.T) {
	l := &Launcher{Python: "python3.11"}
	spec := registry.ServiceSpec{
		Name:       "job",
		Category:   registry.CategoryScript,
		Script:     "tools/job.py",
		Port:       9000,
		HealthPath: "/health",
	}
	cmd := l.BuildCommand(spec)
	want := []string{"python3.11", "tools/job.py"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Fatalf("argv mismatch:\n got %v\nwant %v", cmd.Args, want)
	}
}

func TestASGITarget(t *testing.T) {
	got := asgiTarget("microservicios/aviator_patterns_engine/main.py")
	want := "microservicios.aviator_patterns_engine.main:app"
	if got != want {
		t.Fatalf("asgiTarget: got %s want %s", got, want)
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svc.sh")
	if err := os.WriteFile(path, []byte(body), 0o700); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

// Launch tests drive the generic-script path with sh standing in for the
// interpreter so no Python toolchain is needed.
func scriptSpec(script string) registry.ServiceSpec {
	return registry.ServiceSpec{
		Name:       "svc",
		Category:   registry.CategoryScript,
		Script:     script,
		Port:       9000,
		HealthPath: "/health",
	}
}

func TestLaunchSuccess(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\nsleep 30\n")
	l := &Launcher{Python: "sh", Settle: 100 * time.Millisecond}
	h, err := l.Launch(scriptSpec(script))
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer func() { _, _ = h.Stop(time.Second) }()
	if h.State() != proc.StateRunning {
		t.Fatalf("state after settle: %s", h.State())
	}
	if h.PID() <= 0 {
		t.Fatalf("pid: %d", h.PID())
	}
}

func TestLaunchImmediateExitReturnsLaunchError(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\necho boom >&2\nexit 1\n")
	l := &Launcher{Python: "sh", Settle: 500 * time.Millisecond}
	start := time.Now()
	_, err := l.Launch(scriptSpec(script))
	if err == nil {
		t.Fatal("expected launch error")
	}
	var le *LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("want *LaunchError, got %T: %v", err, err)
	}
	if le.ExitCode != 1 {
		t.Fatalf("exit code: want 1, got %d", le.ExitCode)
	}
	if !strings.Contains(le.Stderr, "boom") {
		t.Fatalf("stderr not captured: %q", le.Stderr)
	}
	// early exit should surface before the full settle interval elapses
	if time.Since(start) > 400*time.Millisecond {
		t.Fatalf("launch error should surface early, took %v", time.Since(start))
	}
}

func TestLaunchMissingInterpreter(t *testing.T) {
	l := &Launcher{Python: "definitely-not-a-binary", Settle: 50 * time.Millisecond}
	_, err := l.Launch(scriptSpec("nope.py"))
	if err == nil {
		t.Fatal("expected spawn error")
	}
	var le *LaunchError
	if errors.As(err, &le) {
		t.Fatal("spawn failure should not be a LaunchError")
	}
}
