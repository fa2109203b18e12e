// Package sysinfo collects best-effort metadata about the host the agent
// runs on. Everything here degrades gracefully: a value that cannot be
// read is simply left empty or nil, never an error for the caller.
package sysinfo

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/servicemon/agent/internal/domain"
)

// Collect builds the HostInfo snapshot sent with every heartbeat.
func Collect() domain.HostInfo {
	info := domain.HostInfo{
		Platform:       runtime.GOOS,
		Architecture:   runtime.GOARCH,
		RuntimeVersion: runtime.Version(),
		Timestamp:      time.Now().Format(time.RFC3339),
	}

	hostname, err := os.Hostname()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Hostname = hostname

	info.PlatformVersion = kernelRelease()
	info.Processor = cpuName()
	info.Memory = memoryInfo()

	return info
}

func kernelRelease() string {
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func cpuName() string {
	data, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "model name") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

func memoryInfo() domain.MemoryInfo {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return domain.MemoryInfo{}
	}

	var mem domain.MemoryInfo
	for _, line := range strings.Split(string(data), "\n") {
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			if v, ok := parseKB(line, "MemTotal"); ok {
				mem.Total = &v
			}
		case strings.HasPrefix(line, "MemFree:"):
			if v, ok := parseKB(line, "MemFree"); ok {
				mem.Free = &v
			}
		}
	}
	return mem
}

func parseKB(line, field string) (int64, bool) {
	var kb int64
	if _, err := fmt.Sscanf(line, field+": %d kB", &kb); err != nil {
		return 0, false
	}
	return kb * 1024, true
}
