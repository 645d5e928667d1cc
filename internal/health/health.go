package health

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aviator-labs/flightdeck/internal/proc"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultTimeout  = 30 * time.Second
)

// Checker polls a service's HTTP health endpoint until it answers with
// 200 OK or the overall timeout elapses. Transport failures (connection
// refused, reset, DNS) mean "not ready yet" and never surface as errors.
type Checker struct {
	Interval time.Duration // polling cadence, default 2s
	Client   *http.Client
}

func New() *Checker {
	return &Checker{Interval: DefaultInterval, Client: &http.Client{}}
}

func (c *Checker) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultInterval
	}
	return c.Interval
}

func (c *Checker) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

// Probe reports whether the service behind h became healthy within
// timeout. On success the handle transitions to Running; on timeout it
// transitions to Unhealthy. Each attempt is bounded by the polling
// interval so the call never exceeds timeout wall-clock.
func (c *Checker) Probe(ctx context.Context, h *proc.Handle, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	url := h.Spec().HealthURL()
	deadline := time.Now().Add(timeout)
	interval := c.interval()

	for {
		if c.attempt(ctx, url, interval, deadline) {
			h.SetState(proc.StateRunning)
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := interval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			h.SetState(proc.StateUnhealthy)
			return false
		case <-time.After(wait):
		}
		if !time.Now().Before(deadline) {
			break
		}
	}
	h.SetState(proc.StateUnhealthy)
	return false
}

// attempt issues one GET bounded by the polling interval and the overall
// deadline, whichever is sooner.
func (c *Checker) attempt(ctx context.Context, url string, interval time.Duration, deadline time.Time) bool {
	attemptDeadline := time.Now().Add(interval)
	if attemptDeadline.After(deadline) {
		attemptDeadline = deadline
	}
	actx, cancel := context.WithDeadline(ctx, attemptDeadline)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
