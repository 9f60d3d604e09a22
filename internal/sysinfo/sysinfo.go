// Package sysinfo reports host resource usage via gopsutil, backing the
// /api/system/info collaborator endpoint. Explicitly not part of the core
// AES67 pipeline (spec.md §6's excluded system_utils.get_system_info).
package sysinfo

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a point-in-time snapshot of host resource usage.
type Info struct {
	Hostname       string  `json:"hostname"`
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemTotalBytes  uint64  `json:"mem_total_bytes"`
	MemUsedBytes   uint64  `json:"mem_used_bytes"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// Collect gathers a fresh Info snapshot.
func Collect(ctx context.Context) (Info, error) {
	hostInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("sysinfo: host info: %w", err)
	}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Info{}, fmt.Errorf("sysinfo: cpu percent: %w", err)
	}
	var cpuPercent float64
	if len(percents) > 0 {
		cpuPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("sysinfo: virtual memory: %w", err)
	}

	return Info{
		Hostname:       hostInfo.Hostname,
		UptimeSeconds:  hostInfo.Uptime,
		CPUPercent:     cpuPercent,
		MemTotalBytes:  vm.Total,
		MemUsedBytes:   vm.Used,
		MemUsedPercent: vm.UsedPercent,
	}, nil
}
