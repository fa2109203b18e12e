package domain

import "time"

// AgentStatus is a point-in-time view of the agent exposed by the local
// status endpoint.
type AgentStatus struct {
	AgentID       string        `json:"agentId,omitempty"`
	LastHeartbeat *time.Time    `json:"lastHeartbeat,omitempty"`
	LastResults   []CheckResult `json:"lastResults"`
}
