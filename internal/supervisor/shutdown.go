package supervisor

import (
	"github.com/aviator-labs/flightdeck/internal/history"
	"github.com/aviator-labs/flightdeck/internal/metrics"
	"github.com/aviator-labs/flightdeck/internal/proc"
)

// Shutdown is the coordinated termination cascade over everything still
// tracked: graceful termination, a bounded grace wait, then a forced
// kill with an unconditional reap. Idempotent: once the live table is
// empty a second invocation is a no-op, and a call landing while a
// cascade is already running returns immediately without touching the
// phase. Safe to call from any phase, including mid-Launching.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.phase == PhaseShuttingDown {
		// A cascade is already running; it will declare Terminated.
		s.mu.Unlock()
		return
	}
	if len(s.table) == 0 {
		if s.phase != PhaseTerminated {
			s.phase = PhaseTerminated
			metrics.SetPhase(string(PhaseTerminated), AllPhases())
		}
		s.mu.Unlock()
		return
	}
	s.phase = PhaseShuttingDown
	names := make([]string, len(s.order))
	copy(names, s.order)
	handles := make(map[string]*proc.Handle, len(s.table))
	for name, h := range s.table {
		handles[name] = h
	}
	// Clear the table up front so a concurrent second call is a no-op
	// and no duplicate kill attempts are made.
	s.table = make(map[string]*proc.Handle)
	s.mu.Unlock()
	metrics.SetPhase(string(PhaseShuttingDown), AllPhases())

	s.log.Info("stopping all services", "count", len(handles))
	for _, name := range names {
		h, ok := handles[name]
		if !ok {
			continue
		}
		outcome, err := h.Stop(s.grace)
		s.mu.Lock()
		if res := s.results[name]; res != nil {
			res.Outcome = outcome
		}
		s.mu.Unlock()
		metrics.IncShutdownOutcome(name, string(outcome))
		s.record(history.EventStopped, name, h.PID(), string(outcome))
		switch outcome {
		case proc.OutcomeGraceful:
			s.log.Info("service stopped", "service", name)
		case proc.OutcomeForced:
			s.log.Warn("service killed after grace period", "service", name, "error", err)
		case proc.OutcomeAlreadyDead:
			s.log.Info("service already exited", "service", name)
		}
	}

	s.setPhase(PhaseTerminated)
	s.log.Info("all services stopped")
}
