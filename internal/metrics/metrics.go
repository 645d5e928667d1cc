package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightdeck",
			Subsystem: "service",
			Name:      "launches_total",
			Help:      "Number of successful service launches.",
		}, []string{"service"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightdeck",
			Subsystem: "service",
			Name:      "launch_failures_total",
			Help:      "Number of launches that died before the settle check.",
		}, []string{"service"},
	)
	healthProbes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightdeck",
			Subsystem: "service",
			Name:      "health_probes_total",
			Help:      "Health verification results per service.",
		}, []string{"service", "result"},
	)
	unexpectedExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightdeck",
			Subsystem: "service",
			Name:      "unexpected_exits_total",
			Help:      "Running services that disappeared, detected by the monitor.",
		}, []string{"service"},
	)
	shutdownOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "flightdeck",
			Subsystem: "service",
			Name:      "shutdown_outcomes_total",
			Help:      "How each service ended during coordinated shutdown.",
		}, []string{"service", "outcome"},
	)
	phase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "flightdeck",
			Subsystem: "supervisor",
			Name:      "phase",
			Help:      "Current supervisor phase (1 = active, 0 = inactive).",
		}, []string{"phase"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{launches, launchFailures, healthProbes, unexpectedExits, shutdownOutcomes, phase}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers metrics with the default Prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncLaunch(service string) {
	if regOK.Load() {
		launches.WithLabelValues(service).Inc()
	}
}

func IncLaunchFailure(service string) {
	if regOK.Load() {
		launchFailures.WithLabelValues(service).Inc()
	}
}

func IncHealthProbe(service string, healthy bool) {
	if regOK.Load() {
		result := "healthy"
		if !healthy {
			result = "unhealthy"
		}
		healthProbes.WithLabelValues(service, result).Inc()
	}
}

func IncUnexpectedExit(service string) {
	if regOK.Load() {
		unexpectedExits.WithLabelValues(service).Inc()
	}
}

func IncShutdownOutcome(service, outcome string) {
	if regOK.Load() {
		shutdownOutcomes.WithLabelValues(service, outcome).Inc()
	}
}

func SetPhase(current string, all []string) {
	if !regOK.Load() {
		return
	}
	for _, p := range all {
		v := 0.0
		if p == current {
			v = 1.0
		}
		phase.WithLabelValues(p).Set(v)
	}
}
