package agent

import (
	"sort"
	"sync"
	"time"

	"github.com/servicemon/agent/internal/domain"
)

// Status tracks the most recent outcomes of the scheduler for the local
// status endpoint. It is written by the loop and read by HTTP handlers,
// so access is mutex-guarded.
type Status struct {
	mu            sync.RWMutex
	agentID       string
	lastHeartbeat time.Time
	lastResults   map[string]domain.CheckResult
}

// NewStatus creates an empty status tracker.
func NewStatus() *Status {
	return &Status{lastResults: make(map[string]domain.CheckResult)}
}

// RecordHeartbeat stores the agent id and time of a successful heartbeat.
func (s *Status) RecordHeartbeat(agentID string, at time.Time) {
	s.mu.Lock()
	s.agentID = agentID
	s.lastHeartbeat = at
	s.mu.Unlock()
}

// RecordCheck stores the latest probe result for its (host, port) pair.
func (s *Status) RecordCheck(result domain.CheckResult) {
	key := domain.ServiceTarget{Host: result.Host, Port: result.Port}.Addr()

	s.mu.Lock()
	s.lastResults[key] = result
	s.mu.Unlock()
}

// View returns a consistent snapshot for the status endpoint.
func (s *Status) View() domain.AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := domain.AgentStatus{AgentID: s.agentID}
	if !s.lastHeartbeat.IsZero() {
		hb := s.lastHeartbeat
		view.LastHeartbeat = &hb
	}

	keys := make([]string, 0, len(s.lastResults))
	for k := range s.lastResults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	view.LastResults = make([]domain.CheckResult, 0, len(keys))
	for _, k := range keys {
		view.LastResults = append(view.LastResults, s.lastResults[k])
	}
	return view
}
