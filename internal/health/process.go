// Package health reports resource usage of the running server process.
package health

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is a point-in-time view of this process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
}

// Collect samples the current process. Goroutines is always filled in, even
// when the OS lookups fail.
func Collect(ctx context.Context) (ProcessStats, error) {
	stats := ProcessStats{
		PID:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
	}

	p, err := process.NewProcessWithContext(ctx, stats.PID)
	if err != nil {
		return stats, err
	}

	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.RSSBytes = mem.RSS

	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		stats.CPUPercent = cpu
	}
	if n, err := p.NumThreadsWithContext(ctx); err == nil {
		stats.Threads = n
	}
	return stats, nil
}
