// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
)

func init() {
	snapshot.Register(snapshot.MetricTypeCPU,
		func(logger logr.Logger, config snapshot.CollectionConfig) (snapshot.PointCollector, error) {
			return NewCPUCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ snapshot.PointCollector = (*CPUCollector)(nil)

// CPUCollector collects CPU topology, frequency and a sampled utilization.
//
// Topology and identification come from /proc/cpuinfo. Physical cores are
// counted as distinct (physical id, core id) pairs; when that topology is not
// exposed (common in VMs) the logical count is used as a fallback.
//
// Frequency limits come from /sys/devices/system/cpu/cpu0/cpufreq, which is
// optional: the files are absent on hosts without cpufreq support.
//
// Utilization is derived from two reads of /proc/stat separated by the
// configured sampling interval. CPU times are reported in "jiffies" (clock
// ticks); the percentage is the non-idle share of the total tick delta over
// the window. This is the only operation in a collection pass that blocks.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#proc-stat
type CPUCollector struct {
	snapshot.BasePointCollector
	cpuinfoPath    string
	statPath       string
	cpufreqDir     string
	sampleInterval time.Duration
}

func NewCPUCollector(logger logr.Logger, config snapshot.CollectionConfig) (*CPUCollector, error) {
	if err := config.Validate(snapshot.ValidateOptions{RequireHostProcPath: true, RequireHostSysPath: true}); err != nil {
		return nil, err
	}

	capabilities := snapshot.CollectorCapabilities{
		SupportsOneShot: true,
		RequiredPaths: []string{
			filepath.Join(config.HostProcPath, "cpuinfo"),
			filepath.Join(config.HostProcPath, "stat"),
		},
	}

	return &CPUCollector{
		BasePointCollector: snapshot.NewBasePointCollector(
			snapshot.MetricTypeCPU,
			"CPU Information Collector",
			logger,
			config,
			capabilities,
		),
		cpuinfoPath:    filepath.Join(config.HostProcPath, "cpuinfo"),
		statPath:       filepath.Join(config.HostProcPath, "stat"),
		cpufreqDir:     filepath.Join(config.HostSysPath, "devices/system/cpu/cpu0/cpufreq"),
		sampleInterval: config.CPUSampleInterval,
	}, nil
}

// Collect performs a one-shot collection of CPU information.
// It blocks for the configured sampling interval to compute utilization and
// honors context cancellation during the wait.
func (c *CPUCollector) Collect(ctx context.Context) (any, error) {
	info, err := c.collectCPUInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to collect CPU info: %w", err)
	}

	c.collectFrequencyLimits(info)

	// Utilization sampling is best-effort: a host where /proc/stat cannot be
	// read still yields topology and frequency data.
	if err := c.sampleUsage(ctx, info); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.Logger().V(1).Info("CPU usage sampling unavailable", "error", err)
	}

	c.Logger().V(1).Info("Collected CPU information",
		"logicalCores", info.LogicalCores,
		"physicalCores", info.PhysicalCores,
		"usagePercent", info.UsagePercent)
	return info, nil
}

// collectCPUInfo reads and parses /proc/cpuinfo.
//
// The file contains one block per logical processor with "key : value" lines.
// Core counting tracks unique (physical id, core id) pairs across blocks.
func (c *CPUCollector) collectCPUInfo() (*snapshot.CPUInfo, error) {
	file, err := os.Open(c.cpuinfoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.cpuinfoPath, err)
	}
	defer file.Close()

	info := &snapshot.CPUInfo{
		PerCoreUsage: []float64{},
	}

	type coreKey struct {
		physicalID string
		coreID     string
	}
	physicalCores := make(map[coreKey]bool)

	var currentPhysicalID, currentCoreID string
	flushCore := func() {
		if currentPhysicalID != "" || currentCoreID != "" {
			physicalCores[coreKey{currentPhysicalID, currentCoreID}] = true
		}
		currentPhysicalID, currentCoreID = "", ""
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			// Blank line terminates a processor block
			flushCore()
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "processor":
			info.LogicalCores++
		case "model name":
			if info.ModelName == "" {
				info.ModelName = value
			}
		case "cpu MHz":
			if info.CurrentFreqMHz == 0 {
				if mhz, err := strconv.ParseFloat(value, 64); err == nil {
					info.CurrentFreqMHz = mhz
				} else {
					c.Logger().V(2).Info("Failed to parse cpu MHz", "value", value, "error", err)
				}
			}
		case "physical id":
			currentPhysicalID = value
		case "core id":
			currentCoreID = value
		}
	}
	flushCore()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", c.cpuinfoPath, err)
	}

	if info.LogicalCores == 0 {
		return nil, fmt.Errorf("no processors found in %s", c.cpuinfoPath)
	}

	info.PhysicalCores = int32(len(physicalCores))
	if info.PhysicalCores == 0 {
		// No topology exposed; fall back to the logical count
		info.PhysicalCores = info.LogicalCores
	}

	return info, nil
}

// collectFrequencyLimits reads min/max frequency from cpufreq sysfs files.
// The values are in kHz and converted to MHz. Both files are optional.
func (c *CPUCollector) collectFrequencyLimits(info *snapshot.CPUInfo) {
	read := func(name string) float64 {
		path := filepath.Join(c.cpufreqDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			c.Logger().V(2).Info("Optional file not available", "path", path, "error", err)
			return 0
		}
		khz, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
		if err != nil {
			c.Logger().V(2).Info("Failed to parse cpufreq value", "path", path, "error", err)
			return 0
		}
		return khz / 1000
	}

	info.MinFreqMHz = read("cpuinfo_min_freq")
	info.MaxFreqMHz = read("cpuinfo_max_freq")
}

// cpuTicks holds one /proc/stat cpu line in jiffies
type cpuTicks struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (t cpuTicks) total() uint64 {
	return t.user + t.nice + t.system + t.idle + t.iowait + t.irq + t.softirq + t.steal
}

func (t cpuTicks) idleTotal() uint64 {
	return t.idle + t.iowait
}

// sampleUsage derives utilization percentages from two /proc/stat reads
// separated by the sampling interval.
func (c *CPUCollector) sampleUsage(ctx context.Context, info *snapshot.CPUInfo) error {
	first, err := c.readStat()
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.sampleInterval):
	}

	second, err := c.readStat()
	if err != nil {
		return err
	}

	if agg, ok := second[-1]; ok {
		if prev, ok := first[-1]; ok {
			info.UsagePercent = usageBetween(prev, agg)
		}
	}

	perCore := make([]float64, 0, len(second))
	for idx := int32(0); ; idx++ {
		cur, ok := second[idx]
		if !ok {
			break
		}
		prev, ok := first[idx]
		if !ok {
			break
		}
		perCore = append(perCore, usageBetween(prev, cur))
	}
	info.PerCoreUsage = perCore

	return nil
}

// usageBetween computes the busy percentage between two tick samples of the
// same CPU line. Counter resets and empty windows report as idle.
func usageBetween(a, b cpuTicks) float64 {
	if b.total() < a.total() {
		// Counter reset
		return 0
	}
	totalDelta := b.total() - a.total()
	if totalDelta == 0 {
		return 0
	}
	if b.idleTotal() < a.idleTotal() {
		return 0
	}
	idleDelta := b.idleTotal() - a.idleTotal()
	if idleDelta > totalDelta {
		return 0
	}
	busy := float64(totalDelta-idleDelta) / float64(totalDelta) * 100.0
	return snapshot.ClampPercent(busy)
}

// readStat parses the cpu lines of /proc/stat into per-index tick counts.
// Index -1 holds the aggregate "cpu" line.
//
// Line format: cpu user nice system idle iowait irq softirq [steal ...]
func (c *CPUCollector) readStat() (map[int32]cpuTicks, error) {
	data, err := os.ReadFile(c.statPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.statPath, err)
	}

	ticks := make(map[int32]cpuTicks)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 {
			// Need at least: cpu user nice system idle iowait irq softirq
			continue
		}

		cpuName := fields[0]
		var cpuIndex int32 = -1 // -1 for the aggregate "cpu" line
		if cpuName != "cpu" {
			// Must be "cpu" followed by a number (not "cpufreq" etc)
			numStr := strings.TrimPrefix(cpuName, "cpu")
			num, err := strconv.ParseInt(numStr, 10, 32)
			if err != nil {
				continue
			}
			cpuIndex = int32(num)
		}

		var t cpuTicks
		targets := []*uint64{&t.user, &t.nice, &t.system, &t.idle, &t.iowait, &t.irq, &t.softirq, &t.steal}
		for i, target := range targets {
			if i+1 >= len(fields) {
				break
			}
			val, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				c.Logger().V(2).Info("Failed to parse cpu tick value",
					"cpu", cpuName, "value", fields[i+1], "error", err)
				continue
			}
			*target = val
		}

		ticks[cpuIndex] = t
	}

	if len(ticks) == 0 {
		return nil, fmt.Errorf("no CPU statistics found in %s", c.statPath)
	}
	return ticks, nil
}
