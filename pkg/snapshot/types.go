// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package snapshot

import (
	"fmt"
	"path/filepath"
	"time"
)

// MetricType identifies a snapshot data category
type MetricType string

const (
	MetricTypeOS     MetricType = "os"
	MetricTypeCPU    MetricType = "cpu"
	MetricTypeMemory MetricType = "memory"
	MetricTypeDisk   MetricType = "disk"
	MetricTypeGPU    MetricType = "gpu"
)

// CollectionOrder is the canonical ordering of categories within a snapshot.
// Formatters rely on this ordering for stable output.
var CollectionOrder = []MetricType{
	MetricTypeOS,
	MetricTypeCPU,
	MetricTypeMemory,
	MetricTypeDisk,
	MetricTypeGPU,
}

// CollectorStatus represents the outcome of a single collector run
type CollectorStatus string

const (
	CollectorStatusActive      CollectorStatus = "active"
	CollectorStatusDegraded    CollectorStatus = "degraded"
	CollectorStatusUnavailable CollectorStatus = "unavailable"
)

// Snapshot is a complete capture of host system state at a point in time.
// It is assembled once per invocation by Gatherer.Collect and never mutated
// afterwards.
type Snapshot struct {
	Timestamp time.Time   `json:"timestamp"`
	Version   string      `json:"version"`
	OS        *OSInfo     `json:"os"`
	CPU       *CPUInfo    `json:"cpu"`
	Memory    *MemoryInfo `json:"memory"`
	// Disks and GPUs are always non-nil, possibly empty. They encode as []
	// rather than null in every output format.
	Disks []DiskInfo `json:"disks"`
	GPUs  []GPUInfo  `json:"gpus"`
}

// CollectorRunInfo contains metadata about a gathering run
type CollectorRunInfo struct {
	Duration       time.Duration
	CollectorStats map[MetricType]CollectorStat
}

// CollectorStat tracks an individual collector's outcome
type CollectorStat struct {
	Status   CollectorStatus
	Duration time.Duration
	Error    error
}

// OSInfo represents operating system identification
type OSInfo struct {
	// Distribution name from /etc/os-release (PRETTY_NAME, falling back to
	// NAME + VERSION_ID), or the kernel name when os-release is unavailable
	System string `json:"system"`
	// Hostname from /proc/sys/kernel/hostname
	Hostname string `json:"hostname"`
	// Kernel release from /proc/sys/kernel/osrelease
	Release string `json:"release"`
	// Distribution version from /etc/os-release (VERSION_ID)
	Version string `json:"version"`
	// Machine architecture (amd64, arm64, ...)
	Architecture string `json:"architecture"`
}

// CPUInfo represents CPU topology, frequency and a sampled utilization
type CPUInfo struct {
	// PhysicalCores is the number of distinct physical cores from
	// /proc/cpuinfo topology. Falls back to the logical count when topology
	// information is unavailable (common in virtualized environments).
	PhysicalCores int32  `json:"physical_cores"`
	LogicalCores  int32  `json:"logical_cores"`
	ModelName     string `json:"model_name"`
	// Frequencies in MHz. Current comes from /proc/cpuinfo; min/max from
	// /sys/devices/system/cpu/cpu0/cpufreq when exposed, else 0.
	CurrentFreqMHz float64 `json:"current_freq_mhz"`
	MinFreqMHz     float64 `json:"min_freq_mhz"`
	MaxFreqMHz     float64 `json:"max_freq_mhz"`
	// UsagePercent is the aggregate utilization over the sampling window,
	// clamped to [0,100]
	UsagePercent float64 `json:"usage_percent"`
	// PerCoreUsage holds one clamped percentage per logical core, indexed by
	// core number
	PerCoreUsage []float64 `json:"per_core_usage"`
}

// MemoryInfo represents system memory usage from /proc/meminfo
type MemoryInfo struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
	SwapTotalBytes uint64  `json:"swap_total_bytes"`
	SwapFreeBytes  uint64  `json:"swap_free_bytes"`
}

// DiskInfo represents usage of one mounted filesystem
type DiskInfo struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	FSType      string  `json:"fstype"`
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// GPUInfo represents one GPU as reported by the driver tooling
type GPUInfo struct {
	Index              int32   `json:"index"`
	Name               string  `json:"name"`
	DriverVersion      string  `json:"driver_version"`
	MemoryTotalBytes   uint64  `json:"memory_total_bytes"`
	MemoryUsedBytes    uint64  `json:"memory_used_bytes"`
	UtilizationPercent float64 `json:"utilization_percent"`
	TemperatureC       float64 `json:"temperature_c"`
}

// ClampPercent bounds a percentage to [0,100]. Host facilities occasionally
// report transient out-of-range values (rounding, counter skew); the snapshot
// invariant requires every percentage field to stay within range.
func ClampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CollectionConfig represents configuration for snapshot collection
type CollectionConfig struct {
	HostProcPath string // Path to /proc (useful for containers)
	HostSysPath  string // Path to /sys (useful for containers)
	HostEtcPath  string // Path to /etc (useful for containers)
	// CPUSampleInterval is the bounded window between the two /proc/stat
	// reads used to derive CPU utilization. This is the only blocking
	// operation in a collection pass.
	CPUSampleInterval time.Duration
}

// DefaultCollectionConfig returns a default configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		HostProcPath:      "/proc",
		HostSysPath:       "/sys",
		HostEtcPath:       "/etc",
		CPUSampleInterval: 500 * time.Millisecond,
	}
}

// ApplyDefaults fills in zero values with defaults
func (c *CollectionConfig) ApplyDefaults() {
	defaults := DefaultCollectionConfig()

	if c.HostProcPath == "" {
		c.HostProcPath = defaults.HostProcPath
	}
	if c.HostSysPath == "" {
		c.HostSysPath = defaults.HostSysPath
	}
	if c.HostEtcPath == "" {
		c.HostEtcPath = defaults.HostEtcPath
	}
	if c.CPUSampleInterval <= 0 {
		c.CPUSampleInterval = defaults.CPUSampleInterval
	}
}

// ValidateOptions specifies validation requirements for CollectionConfig
type ValidateOptions struct {
	RequireHostProcPath bool
	RequireHostSysPath  bool
	RequireHostEtcPath  bool
}

// Validate ensures that all configured paths are absolute paths and that
// required paths are non-empty.
func (c *CollectionConfig) Validate(opt ValidateOptions) error {
	if opt.RequireHostProcPath && c.HostProcPath == "" {
		return fmt.Errorf("HostProcPath is required but not provided")
	}
	if opt.RequireHostSysPath && c.HostSysPath == "" {
		return fmt.Errorf("HostSysPath is required but not provided")
	}
	if opt.RequireHostEtcPath && c.HostEtcPath == "" {
		return fmt.Errorf("HostEtcPath is required but not provided")
	}

	if c.HostProcPath != "" && !filepath.IsAbs(c.HostProcPath) {
		return fmt.Errorf("HostProcPath must be an absolute path, got: %q", c.HostProcPath)
	}
	if c.HostSysPath != "" && !filepath.IsAbs(c.HostSysPath) {
		return fmt.Errorf("HostSysPath must be an absolute path, got: %q", c.HostSysPath)
	}
	if c.HostEtcPath != "" && !filepath.IsAbs(c.HostEtcPath) {
		return fmt.Errorf("HostEtcPath must be an absolute path, got: %q", c.HostEtcPath)
	}
	return nil
}
