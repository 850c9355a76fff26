package server

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/maauso/mediaforge/internal/storage"
)

// DiskReporter reports usage of the filesystem holding temp artifacts.
type DiskReporter interface {
	DiskUsage() (storage.Usage, error)
}

// StatsFunc collects host telemetry for the health endpoint.
type StatsFunc func(ctx context.Context) (SystemStats, error)

// HostStats returns a StatsFunc reading CPU and memory through gopsutil and
// temp-dir usage from disk, which may be nil.
func HostStats(disk DiskReporter) StatsFunc {
	return func(ctx context.Context) (SystemStats, error) {
		var stats SystemStats

		v, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to get mem stats: %w", err)
		}
		stats.MemoryFreeBytes = v.Available
		stats.MemoryUsedPercent = v.UsedPercent

		// Zero interval compares against the previous call instead of blocking.
		pct, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return stats, fmt.Errorf("failed to get cpu stats: %w", err)
		}
		if len(pct) > 0 {
			stats.CPUPercent = pct[0]
		}

		if disk != nil {
			u, err := disk.DiskUsage()
			if err != nil {
				return stats, err
			}
			stats.TempDisk = &u
		}
		return stats, nil
	}
}
