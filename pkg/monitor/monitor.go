// Package monitor samples host resources so the scheduler can gate
// admission of new work. All queries are point-in-time OS reads; the
// monitor holds no mutable state and needs no locking.
package monitor

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Thresholds above/below which the system is considered unhealthy for
// admitting new work.
const (
	MaxCPUPercent    = 90.0
	MaxMemoryPercent = 85.0
	MinDiskFreeGB    = 5.0
)

// Status is a point-in-time snapshot of host resources.
type Status struct {
	CPUPercent        float64
	CPUCount          int
	MemoryPercent     float64
	MemoryAvailableGB float64
	DiskFreeGB        float64
	ProcessMemoryMB   float64
	Runtime           time.Duration
}

// Monitor samples CPU, memory and disk for the path it watches.
type Monitor struct {
	diskPath  string
	startTime time.Time
}

// New returns a monitor watching free space at diskPath ("/" when empty).
func New(diskPath string) *Monitor {
	if diskPath == "" {
		diskPath = "/"
	}
	return &Monitor{diskPath: diskPath, startTime: time.Now()}
}

// Sample returns the current resource status. Individual probe failures
// leave the corresponding field zero rather than failing the whole sample.
func (m *Monitor) Sample() Status {
	st := Status{Runtime: time.Since(m.startTime)}

	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		st.CPUPercent = percents[0]
	}
	if n, err := cpu.Counts(true); err == nil {
		st.CPUCount = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		st.MemoryPercent = vm.UsedPercent
		st.MemoryAvailableGB = float64(vm.Available) / (1 << 30)
	}
	if du, err := disk.Usage(m.diskPath); err == nil {
		st.DiskFreeGB = float64(du.Free) / (1 << 30)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil && mi != nil {
			st.ProcessMemoryMB = float64(mi.RSS) / (1 << 20)
		}
	}
	return st
}

// Check reports whether the host has headroom for new work, with a
// human-readable reason when it does not.
func (m *Monitor) Check() (bool, string) {
	return CheckStatus(m.Sample())
}

// CheckStatus applies the admission thresholds to a snapshot. Split out
// from Check so the policy is testable without touching the OS.
func CheckStatus(st Status) (bool, string) {
	if st.CPUPercent > MaxCPUPercent {
		return false, fmt.Sprintf("high CPU usage: %.1f%%", st.CPUPercent)
	}
	if st.MemoryPercent > MaxMemoryPercent {
		return false, fmt.Sprintf("high memory usage: %.1f%%", st.MemoryPercent)
	}
	if st.DiskFreeGB > 0 && st.DiskFreeGB < MinDiskFreeGB {
		return false, fmt.Sprintf("low disk space: %.1fGB free", st.DiskFreeGB)
	}
	return true, "system resources healthy"
}
