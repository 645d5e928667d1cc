package supervisor

import (
	"time"

	"github.com/aviator-labs/flightdeck/internal/proc"
)

// ServiceStatus is a read-only view of one service for the status API.
type ServiceStatus struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	State       proc.State `json:"state"`
	PID         int        `json:"pid,omitempty"`
	Port        int        `json:"port"`
	URL         string     `json:"url"`
	StartedAt   time.Time  `json:"started_at,omitzero"`
}

// Snapshot is a consistent view of the supervisor for external readers.
type Snapshot struct {
	Phase    Phase           `json:"phase"`
	Services []ServiceStatus `json:"services"`
}

// Snapshot returns the current phase and per-service states, taken under
// the owning lock so readers never observe a torn table.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Phase: s.phase}
	for _, spec := range s.reg.Specs() {
		st := ServiceStatus{
			Name:        spec.Name,
			Description: spec.Description,
			Port:        spec.Port,
			URL:         spec.URL(),
			State:       proc.StatePending,
		}
		if h, ok := s.table[spec.Name]; ok {
			st.State = h.State()
			st.PID = h.PID()
			st.StartedAt = h.StartedAt()
		} else if res, ok := s.results[spec.Name]; ok {
			switch {
			case res.Outcome != "":
				st.State = proc.StateTerminated
			case res.Launched:
				st.State = proc.StateFailed
			case res.Err != nil:
				st.State = proc.StateFailed
			}
		}
		snap.Services = append(snap.Services, st)
	}
	return snap
}
