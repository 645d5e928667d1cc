package proc

import (
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/aviator-labs/flightdeck/internal/registry"
)

// StopOutcome records how a process ended during coordinated shutdown.
type StopOutcome string

const (
	OutcomeGraceful    StopOutcome = "graceful"
	OutcomeForced      StopOutcome = "forced"
	OutcomeAlreadyDead StopOutcome = "already-dead"
)

// Handle is the mutable runtime record for one launched service. Exactly
// one Handle exists per service name at a time; it owns the OS process.
// A single reaper goroutine (started by Start) performs cmd.Wait; everyone
// else observes exit through the waitDone channel.
type Handle struct {
	spec registry.ServiceSpec

	mu        sync.Mutex
	cmd       *exec.Cmd
	state     State
	pid       int
	startedAt time.Time
	exitErr   error
	exitCode  int

	stdout *CaptureBuffer
	stderr *CaptureBuffer

	outCloser io.WriteCloser
	errCloser io.WriteCloser

	waitDone chan struct{} // closed by the reaper when cmd.Wait returns
}

// New creates a Handle in state Pending with bounded output capture.
func New(spec registry.ServiceSpec) *Handle {
	return &Handle{
		spec:     spec,
		state:    StatePending,
		stdout:   NewCaptureBuffer(DefaultCaptureLimit),
		stderr:   NewCaptureBuffer(DefaultCaptureLimit),
		exitCode: -1,
		waitDone: make(chan struct{}),
	}
}

func (h *Handle) Spec() registry.ServiceSpec { return h.spec }

// Stdout and Stderr expose the capture buffers for wiring into exec.Cmd.
func (h *Handle) Stdout() *CaptureBuffer { return h.stdout }
func (h *Handle) Stderr() *CaptureBuffer { return h.stderr }

// EnsureLogClosers records rotating file writers so they can be closed
// once the process exits.
func (h *Handle) EnsureLogClosers(stdout, stderr io.WriteCloser) {
	h.mu.Lock()
	if h.outCloser == nil && stdout != nil {
		h.outCloser = stdout
	}
	if h.errCloser == nil && stderr != nil {
		h.errCloser = stderr
	}
	h.mu.Unlock()
}

// Start launches the configured command and attaches the reaper. On
// success the handle is in state Starting with PID and start time set.
func (h *Handle) Start(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	h.mu.Lock()
	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()
	h.state = StateStarting
	h.mu.Unlock()

	go h.reap(cmd)
	return nil
}

// reap owns cmd.Wait for the lifetime of the process. It records the exit
// result, closes log writers, and signals waitDone.
func (h *Handle) reap(cmd *exec.Cmd) {
	err := cmd.Wait()

	code := -1
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}
	h.mu.Lock()
	h.exitErr = err
	h.exitCode = code
	out, errW := h.outCloser, h.errCloser
	h.outCloser, h.errCloser = nil, nil
	h.mu.Unlock()

	if out != nil {
		_ = out.Close()
	}
	if errW != nil {
		_ = errW.Close()
	}
	close(h.waitDone)
}

// WaitDone is closed once the underlying process has exited and been reaped.
func (h *Handle) WaitDone() <-chan struct{} { return h.waitDone }

// Exited reports whether the process has exited. Detection is immediate
// once the reaper has observed cmd.Wait returning.
func (h *Handle) Exited() bool {
	select {
	case <-h.waitDone:
		return true
	default:
		return false
	}
}

// ExitCode returns the recorded exit code, or -1 before exit.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitCode
}

func (h *Handle) ExitErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetState transitions the lifecycle state. Transitions out of Terminated
// are ignored; Terminated is final.
func (h *Handle) SetState(s State) {
	h.mu.Lock()
	if !h.state.Terminal() {
		h.state = s
	}
	h.mu.Unlock()
}

// Output returns copies of captured stdout and stderr.
func (h *Handle) Output() (string, string) {
	return h.stdout.String(), h.stderr.String()
}

// Terminate requests graceful termination of the process group.
func (h *Handle) Terminate() error {
	h.mu.Lock()
	cmd := h.cmd
	h.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return errors.New("process not started")
	}
	return terminateGroup(cmd.Process.Pid)
}

// Kill forcibly terminates the process group.
func (h *Handle) Kill() error {
	h.mu.Lock()
	cmd := h.cmd
	h.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return errors.New("process not started")
	}
	return killGroup(cmd.Process.Pid)
}

// Stop performs graceful-then-forced termination: SIGTERM, wait up to
// grace for exit, SIGKILL and wait unconditionally otherwise. A process
// that exits between the liveness check and the termination request is
// reported as already dead, not an error. The handle ends Terminated.
func (h *Handle) Stop(grace time.Duration) (StopOutcome, error) {
	if h.Exited() {
		h.SetState(StateTerminated)
		return OutcomeAlreadyDead, nil
	}
	if err := h.Terminate(); err != nil {
		// Raced with exit: the reaper will close waitDone shortly.
		<-h.waitDone
		h.SetState(StateTerminated)
		return OutcomeAlreadyDead, nil
	}
	select {
	case <-h.waitDone:
		h.SetState(StateTerminated)
		return OutcomeGraceful, nil
	case <-time.After(grace):
	}
	err := h.Kill()
	<-h.waitDone
	h.SetState(StateTerminated)
	return OutcomeForced, err
}
