package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aviator-labs/flightdeck/internal/health"
	"github.com/aviator-labs/flightdeck/internal/history"
	"github.com/aviator-labs/flightdeck/internal/launcher"
	"github.com/aviator-labs/flightdeck/internal/metrics"
	"github.com/aviator-labs/flightdeck/internal/proc"
	"github.com/aviator-labs/flightdeck/internal/registry"
)

// Phase is the supervisor's overall state.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseLaunching       Phase = "launching"
	PhaseHealthVerifying Phase = "health-verifying"
	PhaseStable          Phase = "stable"
	PhaseDegraded        Phase = "degraded"
	PhaseShuttingDown    Phase = "shutting-down"
	PhaseTerminated      Phase = "terminated"
)

// AllPhases lists every phase, for the metrics gauge.
func AllPhases() []string {
	return []string{
		string(PhaseIdle), string(PhaseLaunching), string(PhaseHealthVerifying),
		string(PhaseStable), string(PhaseDegraded), string(PhaseShuttingDown),
		string(PhaseTerminated),
	}
}

// ErrDegraded is returned by Run when at least one service failed to
// launch, failed health verification, or died while being monitored.
var ErrDegraded = errors.New("one or more services degraded")

const (
	DefaultHealthTimeout   = 30 * time.Second
	DefaultMonitorInterval = time.Second
	DefaultGrace           = 10 * time.Second
)

// ServiceResult aggregates the per-service outcome for the final summary.
type ServiceResult struct {
	Name     string
	Launched bool
	Healthy  bool
	Err      error
	Outcome  proc.StopOutcome
}

// Options configures a Supervisor. Zero values fall back to defaults.
type Options struct {
	Launcher        *launcher.Launcher
	Checker         *health.Checker
	HealthTimeout   time.Duration
	MonitorInterval time.Duration
	Grace           time.Duration
	History         history.Sink
	// OnStable runs once when every service is healthy (e.g. opening the
	// dashboard in a browser). It must not block; its failure is its own
	// problem and never affects supervisor state.
	OnStable func()
	Logger   *slog.Logger
}

// Supervisor owns the live service table and drives the phase machine
// Idle -> Launching -> HealthVerifying -> {Stable|Degraded} ->
// ShuttingDown -> Terminated. All mutation of the table, phase, and
// results happens under one lock; the monitor loop and the shutdown
// coordinator are the only delegates that touch the table.
type Supervisor struct {
	reg   *registry.Registry
	launc *launcher.Launcher
	check *health.Checker
	hist  history.Sink
	log   *slog.Logger

	healthTimeout   time.Duration
	monitorInterval time.Duration
	grace           time.Duration
	onStable        func()

	mu       sync.Mutex
	phase    Phase
	table    map[string]*proc.Handle
	order    []string // registry order of tracked services
	results  map[string]*ServiceResult
	degraded bool
}

func New(reg *registry.Registry, opts Options) *Supervisor {
	s := &Supervisor{
		reg:             reg,
		launc:           opts.Launcher,
		check:           opts.Checker,
		hist:            opts.History,
		log:             opts.Logger,
		healthTimeout:   opts.HealthTimeout,
		monitorInterval: opts.MonitorInterval,
		grace:           opts.Grace,
		onStable:        opts.OnStable,
		phase:           PhaseIdle,
		table:           make(map[string]*proc.Handle),
		results:         make(map[string]*ServiceResult),
	}
	if s.launc == nil {
		s.launc = launcher.New()
	}
	if s.check == nil {
		s.check = health.New()
	}
	if s.hist == nil {
		s.hist = history.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.healthTimeout <= 0 {
		s.healthTimeout = DefaultHealthTimeout
	}
	if s.monitorInterval <= 0 {
		s.monitorInterval = DefaultMonitorInterval
	}
	if s.grace <= 0 {
		s.grace = DefaultGrace
	}
	return s
}

// Phase returns the current phase.
func (s *Supervisor) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Supervisor) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	metrics.SetPhase(string(p), AllPhases())
}

// Run drives the full lifecycle. Cancelling ctx is the termination
// request: it is observed by the monitor loop within one cadence and
// always leads into the shutdown cascade over everything still tracked.
// Returns ErrDegraded when any service failed; nil on a clean exit.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.Shutdown()

	s.launchAll(ctx)
	s.verifyAll(ctx)

	if ctx.Err() != nil {
		// Terminated early by signal; not a degradation by itself.
		if s.isDegraded() {
			return ErrDegraded
		}
		return nil
	}

	if s.isDegraded() {
		s.setPhase(PhaseDegraded)
		s.log.Error("some services failed to launch or verify; shutting down")
		return ErrDegraded
	}

	s.setPhase(PhaseStable)
	s.logAccessLinks()
	if s.onStable != nil {
		s.onStable()
	}
	s.monitor(ctx)

	if s.isDegraded() {
		return ErrDegraded
	}
	return nil
}

// launchAll starts every registry entry in order. A failed launch is
// recorded and the remaining entries are still attempted.
func (s *Supervisor) launchAll(ctx context.Context) {
	s.setPhase(PhaseLaunching)
	for _, spec := range s.reg.Specs() {
		if ctx.Err() != nil {
			return
		}
		res := &ServiceResult{Name: spec.Name}
		s.mu.Lock()
		s.results[spec.Name] = res
		s.mu.Unlock()

		s.log.Info("launching service", "service", spec.Name, "description", spec.Description)
		h, err := s.launc.Launch(spec)
		if err != nil {
			s.mu.Lock()
			res.Err = err
			s.degraded = true
			s.mu.Unlock()
			metrics.IncLaunchFailure(spec.Name)
			s.record(history.EventLaunchFailed, spec.Name, 0, err.Error())
			var le *launcher.LaunchError
			if errors.As(err, &le) {
				s.log.Error("service exited during startup",
					"service", spec.Name, "exit_code", le.ExitCode,
					"stdout", le.Stdout, "stderr", le.Stderr)
			} else {
				s.log.Error("failed to launch service", "service", spec.Name, "error", err)
			}
			continue
		}

		s.mu.Lock()
		s.table[spec.Name] = h
		s.order = append(s.order, spec.Name)
		res.Launched = true
		s.mu.Unlock()
		metrics.IncLaunch(spec.Name)
		s.record(history.EventLaunched, spec.Name, h.PID(), "")
		s.log.Info("service started", "service", spec.Name, "pid", h.PID(), "url", spec.URL())
	}
}

// verifyAll probes every successfully launched service and aggregates
// the results. A probe timeout is recorded, never an abort.
func (s *Supervisor) verifyAll(ctx context.Context) {
	s.setPhase(PhaseHealthVerifying)
	for _, name := range s.tracked() {
		if ctx.Err() != nil {
			return
		}
		h := s.lookup(name)
		if h == nil {
			continue
		}
		s.log.Info("verifying service health", "service", name, "url", h.Spec().HealthURL())
		ok := s.check.Probe(ctx, h, s.healthTimeout)
		if !ok && ctx.Err() != nil {
			// Interrupted mid-probe: a termination request, not a verdict.
			return
		}
		metrics.IncHealthProbe(name, ok)
		s.mu.Lock()
		if res := s.results[name]; res != nil {
			res.Healthy = ok
		}
		s.mu.Unlock()
		if ok {
			s.record(history.EventHealthy, name, h.PID(), "")
			s.log.Info("service healthy", "service", name)
		} else {
			s.markDegraded()
			s.record(history.EventUnhealthy, name, h.PID(), "probe timeout")
			s.log.Warn("service not responding", "service", name, "url", h.Spec().HealthURL())
		}
	}
}

func (s *Supervisor) logAccessLinks() {
	for _, spec := range s.reg.Specs() {
		s.log.Info("service available", "service", spec.Name,
			"description", spec.Description, "url", spec.URL())
	}
}

// tracked returns the names of live-table entries in registry order.
func (s *Supervisor) tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Supervisor) lookup(name string) *proc.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table[name]
}

func (s *Supervisor) markDegraded() {
	s.mu.Lock()
	s.degraded = true
	s.mu.Unlock()
}

func (s *Supervisor) isDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Supervisor) record(t history.EventType, service string, pid int, detail string) {
	e := history.Event{
		Type:       t,
		OccurredAt: time.Now(),
		Service:    service,
		PID:        pid,
		Detail:     detail,
	}
	if err := s.hist.Send(context.Background(), e); err != nil {
		s.log.Warn("history sink write failed", "service", service, "error", err)
	}
}

// Results returns the per-service outcomes for the final summary.
func (s *Supervisor) Results() []ServiceResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ServiceResult, 0, len(s.results))
	for _, spec := range s.reg.Specs() {
		if res := s.results[spec.Name]; res != nil {
			out = append(out, *res)
		}
	}
	return out
}
