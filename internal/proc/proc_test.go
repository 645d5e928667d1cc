package proc

import (
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aviator-labs/flightdeck/internal/registry"
)

func testSpec(name string) registry.ServiceSpec {
	return registry.ServiceSpec{
		Name:       name,
		Category:   registry.CategoryScript,
		Script:     name + ".py",
		Port:       9000,
		HealthPath: "/health",
	}
}

func startHandle(t *testing.T, name, script string) *Handle {
	t.Helper()
	h := New(testSpec(name))
	cmd := exec.Command("sh", "-c", script)
	SetProcAttrs(cmd)
	cmd.Stdout = h.Stdout()
	cmd.Stderr = h.Stderr()
	if err := h.Start(cmd); err != nil {
		t.Fatalf("start: %v", err)
	}
	return h
}

func TestCaptureBufferBounded(t *testing.T) {
	b := NewCaptureBuffer(8)
	if _, err := b.Write([]byte("0123456789abcdef")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := b.String(); got != "89abcdef" {
		t.Fatalf("want last 8 bytes, got %q", got)
	}
	if b.Len() != 8 {
		t.Fatalf("len: %d", b.Len())
	}
}

func TestStartRecordsPIDAndState(t *testing.T) {
	h := startHandle(t, "pid", "sleep 2")
	defer func() { _, _ = h.Stop(time.Second) }()
	if h.PID() <= 0 {
		t.Fatalf("pid not recorded: %d", h.PID())
	}
	if h.StartedAt().IsZero() {
		t.Fatal("start time not recorded")
	}
	if h.State() != StateStarting {
		t.Fatalf("state after start: %s", h.State())
	}
	if h.Exited() {
		t.Fatal("should still be running")
	}
}

func TestReapRecordsExit(t *testing.T) {
	h := startHandle(t, "exit", "echo out; echo err >&2; exit 3")
	select {
	case <-h.WaitDone():
	case <-time.After(2 * time.Second):
		t.Fatal("process never reaped")
	}
	if !h.Exited() {
		t.Fatal("Exited should report true after reap")
	}
	if h.ExitCode() != 3 {
		t.Fatalf("exit code: want 3, got %d", h.ExitCode())
	}
	stdout, stderr := h.Output()
	if !strings.Contains(stdout, "out") || !strings.Contains(stderr, "err") {
		t.Fatalf("output not captured: stdout=%q stderr=%q", stdout, stderr)
	}
}

func TestStopGraceful(t *testing.T) {
	h := startHandle(t, "graceful", "sleep 30")
	start := time.Now()
	outcome, err := h.Stop(5 * time.Second)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if outcome != OutcomeGraceful {
		t.Fatalf("outcome: want graceful, got %s", outcome)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("graceful stop took too long: %v", time.Since(start))
	}
	if h.State() != StateTerminated {
		t.Fatalf("state after stop: %s", h.State())
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	// The loop respawns sleep so the trapped shell survives SIGTERM.
	h := startHandle(t, "stubborn", `trap "" TERM; while true; do sleep 1; done`)
	// give the shell a moment to install the trap
	time.Sleep(100 * time.Millisecond)
	outcome, _ := h.Stop(200 * time.Millisecond)
	if outcome != OutcomeForced {
		t.Fatalf("outcome: want forced, got %s", outcome)
	}
	if !h.Exited() {
		t.Fatal("process should be dead after kill")
	}
	if h.State() != StateTerminated {
		t.Fatalf("state: %s", h.State())
	}
}

func TestStopAlreadyDead(t *testing.T) {
	h := startHandle(t, "dead", "true")
	<-h.WaitDone()
	outcome, err := h.Stop(time.Second)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if outcome != OutcomeAlreadyDead {
		t.Fatalf("outcome: want already-dead, got %s", outcome)
	}
}

func TestTerminatedIsFinal(t *testing.T) {
	h := New(testSpec("final"))
	h.SetState(StateTerminated)
	h.SetState(StateRunning)
	if h.State() != StateTerminated {
		t.Fatalf("terminated must be final, got %s", h.State())
	}
}
