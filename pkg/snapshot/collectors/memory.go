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

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
)

func init() {
	snapshot.Register(snapshot.MetricTypeMemory,
		func(logger logr.Logger, config snapshot.CollectionConfig) (snapshot.PointCollector, error) {
			return NewMemoryCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ snapshot.PointCollector = (*MemoryCollector)(nil)

// MemoryCollector collects memory usage from /proc/meminfo.
//
// Used memory is derived as MemTotal - MemAvailable. MemAvailable is the
// kernel's own estimate of memory available for new workloads without
// swapping and accounts for reclaimable caches, which makes it a better
// "used" baseline than MemFree.
//
// All values are converted from kilobytes (as reported by the kernel) to
// bytes for consistency.
//
// Error handling:
// - /proc/meminfo read errors return an error (critical failure)
// - Individual field parsing errors are logged but don't fail collection
// - Missing fields are left as zero (graceful degradation)
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#meminfo
type MemoryCollector struct {
	snapshot.BasePointCollector
	meminfoPath string
}

func NewMemoryCollector(logger logr.Logger, config snapshot.CollectionConfig) (*MemoryCollector, error) {
	if err := config.Validate(snapshot.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := snapshot.CollectorCapabilities{
		SupportsOneShot: true,
		RequiredPaths:   []string{filepath.Join(config.HostProcPath, "meminfo")},
	}

	return &MemoryCollector{
		BasePointCollector: snapshot.NewBasePointCollector(
			snapshot.MetricTypeMemory,
			"System Memory Collector",
			logger,
			config,
			capabilities,
		),
		meminfoPath: filepath.Join(config.HostProcPath, "meminfo"),
	}, nil
}

// Collect performs a one-shot collection of memory usage
func (c *MemoryCollector) Collect(ctx context.Context) (any, error) {
	file, err := os.Open(c.meminfoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.meminfoPath, err)
	}
	defer file.Close()

	var memTotal, memAvailable, swapTotal, swapFree uint64

	fieldMap := map[string]*uint64{
		"MemTotal":     &memTotal,
		"MemAvailable": &memAvailable,
		"SwapTotal":    &swapTotal,
		"SwapFree":     &swapFree,
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		// Lines are formatted as "FieldName:   value kB"
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		fieldName := strings.TrimSuffix(parts[0], ":")
		fieldPtr, ok := fieldMap[fieldName]
		if !ok {
			continue
		}

		value, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			c.Logger().V(2).Info("Failed to parse memory field value",
				"field", fieldName, "value", parts[1], "error", err)
			continue
		}

		// Values are in kB
		*fieldPtr = value * 1024
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", c.meminfoPath, err)
	}

	if memTotal == 0 {
		return nil, fmt.Errorf("MemTotal not found in %s", c.meminfoPath)
	}

	info := &snapshot.MemoryInfo{
		TotalBytes:     memTotal,
		AvailableBytes: memAvailable,
		SwapTotalBytes: swapTotal,
		SwapFreeBytes:  swapFree,
	}
	if memAvailable <= memTotal {
		info.UsedBytes = memTotal - memAvailable
	}
	info.UsedPercent = snapshot.ClampPercent(float64(info.UsedBytes) / float64(memTotal) * 100.0)

	c.Logger().V(1).Info("Collected memory information",
		"totalBytes", info.TotalBytes, "usedPercent", info.UsedPercent)
	return info, nil
}
