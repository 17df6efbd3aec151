// Package monitoring tracks tool usage and watches datasets for changes.
package monitoring

import (
	"sync"
	"time"
)

// Usage counts dispatched exchanges per tool. Counters reset when the
// process restarts; persistence is deliberately out of scope.
type Usage struct {
	startedAt time.Time

	mu     sync.RWMutex
	byTool map[string]int64
	total  int64
}

// UsageStats is the snapshot served by the stats endpoint.
type UsageStats struct {
	TotalRequests int64            `json:"total_requests"`
	ByTool        map[string]int64 `json:"by_tool"`
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// NewUsage creates a usage recorder starting from zero.
func NewUsage() *Usage {
	return &Usage{
		startedAt: time.Now().UTC(),
		byTool:    make(map[string]int64),
	}
}

// Record counts one exchange served by the named tool.
func (u *Usage) Record(tool string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.byTool[tool]++
	u.total++
}

// Stats returns a copy of the current counters.
func (u *Usage) Stats() UsageStats {
	u.mu.RLock()
	defer u.mu.RUnlock()

	byTool := make(map[string]int64, len(u.byTool))
	for tool, n := range u.byTool {
		byTool[tool] = n
	}

	return UsageStats{
		TotalRequests: u.total,
		ByTool:        byTool,
		StartedAt:     u.startedAt,
		UptimeSeconds: int64(time.Since(u.startedAt).Seconds()),
	}
}
