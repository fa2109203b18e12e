package domain

import "encoding/json"

// HeartbeatRequest is sent to the control plane on every heartbeat.
type HeartbeatRequest struct {
	APIKey     string   `json:"apiKey"`
	ServerInfo HostInfo `json:"serverInfo"`
}

// HeartbeatResponse is returned by the control plane. AgentID must be
// present for the heartbeat to count as successful. Services, when
// present, carries the full replacement worklist; its entries are decoded
// individually so one malformed entry does not discard the rest.
type HeartbeatResponse struct {
	AgentID  string            `json:"agentId"`
	Services []json.RawMessage `json:"services"`
}

// CheckReport is sent to the control plane after every probe.
type CheckReport struct {
	APIKey string `json:"apiKey"`
	CheckResult
}
