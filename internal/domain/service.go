package domain

import (
	"net"
	"strconv"
)

// Status classifies the outcome of a single reachability probe.
type Status string

const (
	// StatusOnline means the target accepted the connection quickly.
	StatusOnline Status = "online"

	// StatusDegraded means the target accepted the connection, but slower
	// than the degraded threshold.
	StatusDegraded Status = "degraded"

	// StatusOffline means the connection attempt timed out or was refused.
	StatusOffline Status = "offline"
)

// ServiceTarget is one entry of the server-supplied worklist. Identity is
// the (host, port) pair; Name is display-only. The control plane is the
// sole source of these entries.
type ServiceTarget struct {
	Name string `json:"name,omitempty"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Valid reports whether the entry carries a usable probe address.
func (t ServiceTarget) Valid() bool {
	return t.Host != "" && t.Port >= 1 && t.Port <= 65535
}

// Addr returns the dialable "host:port" address of the target.
func (t ServiceTarget) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// CheckResult is the outcome of one probe. Created fresh per probe,
// reported once, then discarded; the agent keeps no history.
type CheckResult struct {
	Host string `json:"host"`
	Port int    `json:"port"`

	Status Status `json:"status"`

	// ResponseTimeMs is the connect latency in milliseconds, nil when the
	// connection was never established.
	ResponseTimeMs *int64 `json:"responseTime"`
}
