package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/servicemon/agent/internal/domain"
)

func listen(t *testing.T) (net.Listener, domain.ServiceTarget) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return ln, domain.ServiceTarget{Host: "127.0.0.1", Port: addr.Port}
}

func TestProbeOnline(t *testing.T) {
	_, target := listen(t)

	p := New(2*time.Second, DefaultDegradedThreshold)
	result := p.Probe(context.Background(), target)

	if result.Status != domain.StatusOnline {
		t.Fatalf("expected online, got %s", result.Status)
	}
	if result.ResponseTimeMs == nil {
		t.Fatal("expected a response time for a reachable target")
	}
	if result.Host != target.Host || result.Port != target.Port {
		t.Fatalf("result does not echo the target: %+v", result)
	}
}

func TestProbeDegraded(t *testing.T) {
	_, target := listen(t)

	// A sub-millisecond threshold makes even a loopback connect count as
	// slow, which is how we exercise the degraded branch without a slow
	// network.
	p := New(2*time.Second, 1*time.Nanosecond)
	result := p.Probe(context.Background(), target)

	if result.Status != domain.StatusDegraded {
		t.Fatalf("expected degraded, got %s", result.Status)
	}
	if result.ResponseTimeMs == nil {
		t.Fatal("expected a response time for a reachable target")
	}
}

func TestProbeRefusedIsOffline(t *testing.T) {
	ln, target := listen(t)
	_ = ln.Close() // nothing listens on this port anymore

	p := New(2*time.Second, DefaultDegradedThreshold)
	result := p.Probe(context.Background(), target)

	if result.Status != domain.StatusOffline {
		t.Fatalf("expected offline, got %s", result.Status)
	}
	if result.ResponseTimeMs != nil {
		t.Fatalf("offline result must carry a nil response time, got %d", *result.ResponseTimeMs)
	}
}

func TestProbeUnresolvableIsOffline(t *testing.T) {
	p := New(500*time.Millisecond, DefaultDegradedThreshold)
	result := p.Probe(context.Background(), domain.ServiceTarget{
		Host: "host.invalid",
		Port: 80,
	})

	if result.Status != domain.StatusOffline {
		t.Fatalf("expected offline, got %s", result.Status)
	}
	if result.ResponseTimeMs != nil {
		t.Fatal("offline result must carry a nil response time")
	}
}

func TestNewDefaultsThreshold(t *testing.T) {
	p := New(time.Second, 0)
	if p.degradedThreshold != DefaultDegradedThreshold {
		t.Fatalf("expected default threshold, got %s", p.degradedThreshold)
	}
}
