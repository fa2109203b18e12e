package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicemon/agent/internal/config"
	"github.com/servicemon/agent/internal/domain"
	"github.com/servicemon/agent/internal/monitor"
	"github.com/servicemon/agent/internal/worklist"
)

// stubControl is an in-memory control plane for scheduler tests.
type stubControl struct {
	mu sync.Mutex

	heartbeatResult *monitor.HeartbeatResult
	heartbeatErr    error
	reportErr       func(domain.CheckResult) error

	heartbeats int
	reports    []domain.CheckResult
	calls      []string
}

func (s *stubControl) Heartbeat(ctx context.Context, info domain.HostInfo) (*monitor.HeartbeatResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeats++
	s.calls = append(s.calls, "heartbeat")
	if s.heartbeatErr != nil {
		return nil, s.heartbeatErr
	}
	return s.heartbeatResult, nil
}

func (s *stubControl) ReportCheck(ctx context.Context, result domain.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "report")
	if s.reportErr != nil {
		if err := s.reportErr(result); err != nil {
			return err
		}
	}
	s.reports = append(s.reports, result)
	return nil
}

func (s *stubControl) reported() []domain.CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CheckResult, len(s.reports))
	copy(out, s.reports)
	return out
}

// stubProber returns canned results and can panic on chosen targets.
type stubProber struct {
	panicOn map[string]bool
}

func (p *stubProber) Probe(ctx context.Context, target domain.ServiceTarget) domain.CheckResult {
	if p.panicOn[target.Addr()] {
		panic("prober blew up on " + target.Addr())
	}
	ms := int64(5)
	return domain.CheckResult{
		Host:           target.Host,
		Port:           target.Port,
		Status:         domain.StatusOnline,
		ResponseTimeMs: &ms,
	}
}

func newTestAgent(control *stubControl, prober Prober) *Agent {
	cfg := config.DefaultConfig()
	cfg.APIKey = "ak-test"
	cfg.BaseURL = "http://control-plane.invalid"

	return &Agent{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		client: control,
		prober: prober,
		store:  worklist.NewStore(),
		status: NewStatus(),
	}
}

func TestHeartbeatReplacesWorklist(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{
			AgentID: "agent-1",
			Services: []domain.ServiceTarget{
				{Host: "a", Port: 1},
				{Host: "b", Port: 2},
			},
		},
	}
	a := newTestAgent(control, &stubProber{})
	a.store.Replace([]domain.ServiceTarget{{Host: "stale", Port: 9}})

	a.heartbeat(context.Background())

	assert.Equal(t, []domain.ServiceTarget{
		{Host: "a", Port: 1},
		{Host: "b", Port: 2},
	}, a.store.Snapshot())

	view := a.status.View()
	assert.Equal(t, "agent-1", view.AgentID)
	require.NotNil(t, view.LastHeartbeat)
}

func TestHeartbeatIdempotentResponses(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{
			AgentID:  "agent-1",
			Services: []domain.ServiceTarget{{Host: "a", Port: 1}},
		},
	}
	a := newTestAgent(control, &stubProber{})

	a.heartbeat(context.Background())
	first := a.store.Snapshot()
	a.heartbeat(context.Background())

	assert.Equal(t, first, a.store.Snapshot())
}

func TestHeartbeatFailureKeepsWorklist(t *testing.T) {
	control := &stubControl{heartbeatErr: errors.New("http 500")}
	a := newTestAgent(control, &stubProber{})

	previous := []domain.ServiceTarget{{Host: "keep", Port: 80}}
	a.store.Replace(previous)

	a.heartbeat(context.Background())

	assert.Equal(t, previous, a.store.Snapshot(), "a failed heartbeat must not disturb the worklist")
	assert.Empty(t, a.status.View().AgentID)
}

func TestHeartbeatWithoutServicesKeepsWorklist(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{AgentID: "agent-1"},
	}
	a := newTestAgent(control, &stubProber{})

	previous := []domain.ServiceTarget{{Host: "keep", Port: 80}}
	a.store.Replace(previous)

	a.heartbeat(context.Background())

	assert.Equal(t, previous, a.store.Snapshot())
}

func TestHeartbeatEmptyServicesClearsWorklist(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{
			AgentID:  "agent-1",
			Services: []domain.ServiceTarget{},
		},
	}
	a := newTestAgent(control, &stubProber{})
	a.store.Replace([]domain.ServiceTarget{{Host: "stale", Port: 9}})

	a.heartbeat(context.Background())

	assert.Empty(t, a.store.Snapshot(), "an explicit empty list is a full replacement")
}

func TestSweepIsolatesPanickingEntry(t *testing.T) {
	control := &stubControl{}
	prober := &stubProber{panicOn: map[string]bool{"b:2": true}}
	a := newTestAgent(control, prober)
	a.store.Replace([]domain.ServiceTarget{
		{Host: "a", Port: 1},
		{Host: "b", Port: 2},
		{Host: "c", Port: 3},
	})

	a.sweep(context.Background())

	reports := control.reported()
	require.Len(t, reports, 2, "entries around the faulty one must still be reported")
	assert.Equal(t, "a", reports[0].Host)
	assert.Equal(t, "c", reports[1].Host)
}

func TestSweepContinuesPastReportFailure(t *testing.T) {
	control := &stubControl{
		reportErr: func(r domain.CheckResult) error {
			if r.Host == "b" {
				return errors.New("control plane unreachable")
			}
			return nil
		},
	}
	a := newTestAgent(control, &stubProber{})
	a.store.Replace([]domain.ServiceTarget{
		{Host: "a", Port: 1},
		{Host: "b", Port: 2},
		{Host: "c", Port: 3},
	})

	a.sweep(context.Background())

	reports := control.reported()
	require.Len(t, reports, 2)
	assert.Equal(t, "a", reports[0].Host)
	assert.Equal(t, "c", reports[1].Host)
}

func TestSweepChecksInServerOrder(t *testing.T) {
	control := &stubControl{}
	a := newTestAgent(control, &stubProber{})
	a.store.Replace([]domain.ServiceTarget{
		{Host: "z", Port: 1},
		{Host: "a", Port: 2},
		{Host: "z", Port: 1}, // duplicates are probed twice, not deduplicated
	})

	a.sweep(context.Background())

	reports := control.reported()
	require.Len(t, reports, 3)
	assert.Equal(t, "z", reports[0].Host)
	assert.Equal(t, "a", reports[1].Host)
	assert.Equal(t, "z", reports[2].Host)
}

func TestIterateFiresHeartbeatBeforeSweep(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{
			AgentID:  "agent-1",
			Services: []domain.ServiceTarget{{Host: "a", Port: 1}},
		},
	}
	a := newTestAgent(control, &stubProber{})

	// Both actions overdue: the heartbeat must run first so the sweep
	// sees the refreshed worklist.
	lastHeartbeat := time.Now().Add(-10 * time.Minute)
	lastSweep := time.Now().Add(-10 * time.Minute)
	a.iterate(context.Background(), &lastHeartbeat, &lastSweep)

	control.mu.Lock()
	calls := append([]string(nil), control.calls...)
	control.mu.Unlock()

	require.Equal(t, []string{"heartbeat", "report"}, calls)
	assert.WithinDuration(t, time.Now(), lastHeartbeat, time.Minute)
	assert.WithinDuration(t, time.Now(), lastSweep, time.Minute)
}

func TestIterateSkipsActionsNotYetDue(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{AgentID: "agent-1"},
	}
	a := newTestAgent(control, &stubProber{})
	a.store.Replace([]domain.ServiceTarget{{Host: "a", Port: 1}})

	lastHeartbeat := time.Now()
	lastSweep := time.Now()
	a.iterate(context.Background(), &lastHeartbeat, &lastSweep)

	control.mu.Lock()
	defer control.mu.Unlock()
	assert.Empty(t, control.calls)
}

func TestRunIssuesStartupHeartbeat(t *testing.T) {
	control := &stubControl{
		heartbeatResult: &monitor.HeartbeatResult{AgentID: "agent-1"},
	}
	a := newTestAgent(control, &stubProber{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))

	control.mu.Lock()
	defer control.mu.Unlock()
	assert.GreaterOrEqual(t, control.heartbeats, 1, "a heartbeat precedes the timed loop")
}
