// Package probe implements the TCP reachability check. A probe is a bare
// connect: no data is exchanged, so it measures reachability and coarse
// latency, not application health.
package probe

import (
	"context"
	"net"
	"time"

	"github.com/servicemon/agent/internal/domain"
)

// DefaultDegradedThreshold is the connect latency above which a reachable
// service is reported as degraded instead of online.
const DefaultDegradedThreshold = 1000 * time.Millisecond

// Prober performs single TCP-connect probes against worklist targets.
type Prober struct {
	timeout           time.Duration
	degradedThreshold time.Duration
}

// New creates a Prober. A non-positive degradedThreshold falls back to
// DefaultDegradedThreshold.
func New(timeout, degradedThreshold time.Duration) *Prober {
	if degradedThreshold <= 0 {
		degradedThreshold = DefaultDegradedThreshold
	}
	return &Prober{timeout: timeout, degradedThreshold: degradedThreshold}
}

// Probe attempts one TCP connection to the target and classifies the
// outcome. Timeouts, refusals, and resolution failures all fail closed to
// offline with a nil response time; Probe never returns an error and never
// panics. The connection is closed immediately after establishment.
func (p *Prober) Probe(ctx context.Context, target domain.ServiceTarget) domain.CheckResult {
	result := domain.CheckResult{
		Host:   target.Host,
		Port:   target.Port,
		Status: domain.StatusOffline,
	}

	dialer := net.Dialer{Timeout: p.timeout}
	started := time.Now()

	conn, err := dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return result
	}
	elapsed := time.Since(started)
	_ = conn.Close()

	ms := elapsed.Milliseconds()
	result.ResponseTimeMs = &ms
	if elapsed > p.degradedThreshold {
		result.Status = domain.StatusDegraded
	} else {
		result.Status = domain.StatusOnline
	}
	return result
}
