package proc

// State is the lifecycle state of a managed service process.
type State string

const (
	StatePending    State = "pending"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateUnhealthy  State = "unhealthy"
	StateFailed     State = "failed"
	StateTerminated State = "terminated"
)

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateTerminated
}

func (s State) String() string { return string(s) }
