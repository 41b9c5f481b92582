package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// MemoryStats is the host memory usage in bytes.
type MemoryStats struct {
	Total       uint64  `json:"total"`
	Available   uint64  `json:"available"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	PercentUsed float64 `json:"percent_used"`
}

// DiskStats is the usage of the filesystem holding DiskPath.
type DiskStats struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	PercentUsed float64 `json:"percent_used"`
}

type CPUStats struct {
	PercentUsed float64 `json:"percent_used"`
	Cores       int     `json:"cores"`
}

// SystemStats is one sample of host resources.
type SystemStats struct {
	Platform  string      `json:"platform"`
	GoVersion string      `json:"go_version"`
	Memory    MemoryStats `json:"memory"`
	Disk      DiskStats   `json:"disk"`
	CPU       CPUStats    `json:"cpu"`
}

// SystemProbe samples host resources.
type SystemProbe interface {
	Sample(ctx context.Context) (*SystemStats, error)
}

// HostProbe reads resources of the local host through gopsutil.
type HostProbe struct {
	DiskPath    string
	CPUInterval time.Duration
}

// NewHostProbe returns a probe for the root filesystem sampling CPU over
// half a second.
func NewHostProbe() *HostProbe {
	return &HostProbe{DiskPath: "/", CPUInterval: 500 * time.Millisecond}
}

func (p *HostProbe) Sample(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading memory: %w", err)
	}
	stats.Memory = MemoryStats{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		Free:        vm.Free,
		PercentUsed: vm.UsedPercent,
	}

	du, err := disk.UsageWithContext(ctx, p.DiskPath)
	if err != nil {
		return nil, fmt.Errorf("reading disk usage of %s: %w", p.DiskPath, err)
	}
	stats.Disk = DiskStats{
		Total:       du.Total,
		Used:        du.Used,
		Free:        du.Free,
		PercentUsed: du.UsedPercent,
	}

	percents, err := cpu.PercentWithContext(ctx, p.CPUInterval, false)
	if err != nil {
		return nil, fmt.Errorf("reading cpu usage: %w", err)
	}
	if len(percents) > 0 {
		stats.CPU.PercentUsed = percents[0]
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPU.Cores = cores
	}
	return stats, nil
}
