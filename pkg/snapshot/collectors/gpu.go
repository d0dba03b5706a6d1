// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
)

func init() {
	snapshot.TryRegister(snapshot.MetricTypeGPU,
		func(logger logr.Logger, config snapshot.CollectionConfig) (snapshot.PointCollector, error) {
			return NewGPUCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ snapshot.PointCollector = (*GPUCollector)(nil)

const nvidiaSmiBinary = "nvidia-smi"

// gpuQueryFields are requested from nvidia-smi in this order; parsing
// depends on it matching the CSV column order of the response.
var gpuQueryFields = []string{
	"index",
	"name",
	"driver_version",
	"memory.total",
	"memory.used",
	"utilization.gpu",
	"temperature.gpu",
}

// GPUCollector collects GPU inventory and utilization via nvidia-smi.
//
// nvidia-smi's query mode provides machine-readable CSV output that is stable
// across driver versions:
//
//	nvidia-smi --query-gpu=... --format=csv,noheader,nounits
//
// The collector is registered through TryRegister: hosts without nvidia-smi
// on PATH record it as unavailable and the snapshot carries an empty GPU
// list. A host where nvidia-smi exists but reports no devices (driver loaded,
// nothing attached) likewise yields an empty list rather than an error.
//
// Memory values are reported by nvidia-smi in MiB and converted to bytes.
// Fields reported as "[N/A]" or "[Not Supported]" are left at zero.
type GPUCollector struct {
	snapshot.BasePointCollector
	smiPath string
}

func NewGPUCollector(logger logr.Logger, config snapshot.CollectionConfig) (*GPUCollector, error) {
	smiPath, err := exec.LookPath(nvidiaSmiBinary)
	if err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", nvidiaSmiBinary, err)
	}

	capabilities := snapshot.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiredBinaries: []string{nvidiaSmiBinary},
	}

	return &GPUCollector{
		BasePointCollector: snapshot.NewBasePointCollector(
			snapshot.MetricTypeGPU,
			"GPU Collector",
			logger,
			config,
			capabilities,
		),
		smiPath: smiPath,
	}, nil
}

// Collect performs a one-shot GPU query. Execution is bounded by the context
// deadline.
func (c *GPUCollector) Collect(ctx context.Context) (any, error) {
	args := []string{
		"--query-gpu=" + strings.Join(gpuQueryFields, ","),
		"--format=csv,noheader,nounits",
	}

	out, err := exec.CommandContext(ctx, c.smiPath, args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// nvidia-smi exits non-zero when the driver is loaded but no device
		// is attached; that is an empty result, not a failure
		c.Logger().V(1).Info("nvidia-smi query failed, reporting no GPUs", "error", err)
		return []snapshot.GPUInfo{}, nil
	}

	gpus := c.parseQueryOutput(string(out))
	c.Logger().V(1).Info("Collected GPU information", "gpus", len(gpus))
	return gpus, nil
}

// parseQueryOutput parses nvidia-smi CSV query output, one GPU per line.
// Malformed lines are logged and skipped.
func (c *GPUCollector) parseQueryOutput(out string) []snapshot.GPUInfo {
	gpus := []snapshot.GPUInfo{}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Some driver versions print a sentence instead of CSV when no
		// device is present
		if strings.Contains(line, "No devices were found") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != len(gpuQueryFields) {
			c.Logger().V(1).Info("Skipping malformed nvidia-smi line",
				"line", line, "fields", len(fields))
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		gpu := snapshot.GPUInfo{
			Name:          fields[1],
			DriverVersion: fields[2],
		}

		if idx, err := strconv.ParseInt(fields[0], 10, 32); err == nil {
			gpu.Index = int32(idx)
		}
		// memory.total and memory.used are in MiB with nounits
		if mib, ok := parseGPUNumber(fields[3]); ok {
			gpu.MemoryTotalBytes = uint64(mib) * 1024 * 1024
		}
		if mib, ok := parseGPUNumber(fields[4]); ok {
			gpu.MemoryUsedBytes = uint64(mib) * 1024 * 1024
		}
		if pct, ok := parseGPUNumber(fields[5]); ok {
			gpu.UtilizationPercent = snapshot.ClampPercent(pct)
		}
		if temp, ok := parseGPUNumber(fields[6]); ok {
			gpu.TemperatureC = temp
		}

		gpus = append(gpus, gpu)
	}

	return gpus
}

// parseGPUNumber parses a numeric nvidia-smi field. "[N/A]" and
// "[Not Supported]" placeholders report ok=false.
func parseGPUNumber(s string) (float64, bool) {
	if s == "" || strings.HasPrefix(s, "[") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
