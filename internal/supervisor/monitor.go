package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/aviator-labs/flightdeck/internal/history"
	"github.com/aviator-labs/flightdeck/internal/metrics"
	"github.com/aviator-labs/flightdeck/internal/proc"
)

// monitor runs the liveness loop for phase Stable. Each tick it sweeps
// the live table for exited processes: detection only, no restart. The
// loop observes both an exit and a termination request within one
// cadence period. A detected exit degrades the system and hands control
// to the shutdown cascade.
func (s *Supervisor) monitor(ctx context.Context) {
	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("shutdown requested")
			return
		case <-ticker.C:
		}
		if s.sweepExited() {
			return
		}
	}
}

// sweepExited removes dead entries from the live table and reports
// whether any were found.
func (s *Supervisor) sweepExited() bool {
	type dead struct {
		name string
		h    *proc.Handle
	}
	var found []dead

	s.mu.Lock()
	for name, h := range s.table {
		if h.Exited() {
			found = append(found, dead{name, h})
			delete(s.table, name)
		}
	}
	if len(found) > 0 {
		s.degraded = true
		for _, d := range found {
			if res := s.results[d.name]; res != nil {
				res.Err = fmt.Errorf("service %s exited unexpectedly with code %d", d.name, d.h.ExitCode())
			}
		}
	}
	s.mu.Unlock()

	for _, d := range found {
		d.h.SetState(proc.StateFailed)
		metrics.IncUnexpectedExit(d.name)
		s.record(history.EventExited, d.name, d.h.PID(), fmt.Sprintf("exit_code=%d", d.h.ExitCode()))
		s.log.Warn("service exited unexpectedly", "service", d.name,
			"pid", d.h.PID(), "exit_code", d.h.ExitCode())
	}
	return len(found) > 0
}
