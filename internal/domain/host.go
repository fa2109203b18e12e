package domain

// MemoryInfo holds physical memory counters in bytes. Values are nil when
// the platform does not expose them.
type MemoryInfo struct {
	Total *int64 `json:"total"`
	Free  *int64 `json:"free"`
}

// HostInfo describes the machine this agent runs on. It is recomputed for
// every heartbeat and sent as the serverInfo payload field. Collection is
// best-effort: a failure fills Error instead of aborting the heartbeat.
type HostInfo struct {
	Hostname        string     `json:"hostname"`
	Platform        string     `json:"platform"`
	PlatformVersion string     `json:"platform_version,omitempty"`
	Architecture    string     `json:"architecture,omitempty"`
	Processor       string     `json:"processor,omitempty"`
	RuntimeVersion  string     `json:"go_version,omitempty"`
	Memory          MemoryInfo `json:"memory"`
	Timestamp       string     `json:"timestamp"`

	Error string `json:"error,omitempty"`
}
