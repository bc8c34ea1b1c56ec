package services

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStats is a snapshot of the host running the API.
type SystemStats struct {
	Hostname      string    `json:"hostname"`
	UptimeSeconds uint64    `json:"uptimeSeconds"`
	CPUPercent    float64   `json:"cpuPercent"`
	CPUCores      int       `json:"cpuCores"`
	MemoryPercent float64   `json:"memoryPercent"`
	MemoryUsedMB  uint64    `json:"memoryUsedMb"`
	MemoryTotalMB uint64    `json:"memoryTotalMb"`
	DiskPercent   float64   `json:"diskPercent"`
	Goroutines    int       `json:"goroutines"`
	CollectedAt   time.Time `json:"collectedAt"`
}

// SystemServiceProvider defines the interface for host statistics.
type SystemServiceProvider interface {
	Stats(ctx context.Context) (SystemStats, error)
}

// SystemService reads host statistics for the admin dashboard.
type SystemService struct {
	diskPath string
}

// NewSystemService creates a new SystemService reporting disk usage of diskPath.
func NewSystemService(diskPath string) *SystemService {
	if diskPath == "" {
		diskPath = "/"
	}
	return &SystemService{diskPath: diskPath}
}

// Stats samples CPU over a short interval together with memory and disk usage.
func (s *SystemService) Stats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{
		CPUCores:    runtime.NumCPU(),
		Goroutines:  runtime.NumGoroutine(),
		CollectedAt: time.Now().UTC(),
	}

	percents, err := cpu.PercentWithContext(ctx, 200*time.Millisecond, false)
	if err != nil {
		return stats, err
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.MemoryPercent = vm.UsedPercent
	stats.MemoryUsedMB = vm.Used / 1024 / 1024
	stats.MemoryTotalMB = vm.Total / 1024 / 1024

	if usage, err := disk.UsageWithContext(ctx, s.diskPath); err == nil {
		stats.DiskPercent = usage.UsedPercent
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Hostname = info.Hostname
		stats.UptimeSeconds = info.Uptime
	}
	return stats, nil
}
