// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Gatherer assembles a Snapshot by running every registered collector once.
//
// Each category is collected independently: a collector that fails or is
// unavailable on this host degrades only its own field (nil record or empty
// sequence) and never aborts the remaining categories. Collect therefore
// always produces a usable snapshot; per-category outcomes are reported in
// the returned CollectorRunInfo.
type Gatherer struct {
	logger  logr.Logger
	config  CollectionConfig
	version string
}

// NewGatherer creates a Gatherer for the given collection config.
// Zero config values are filled with defaults.
func NewGatherer(logger logr.Logger, config CollectionConfig, version string) (*Gatherer, error) {
	config.ApplyDefaults()
	if err := config.Validate(ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, fmt.Errorf("invalid collection config: %w", err)
	}
	return &Gatherer{
		logger:  logger.WithName("gatherer"),
		config:  config,
		version: version,
	}, nil
}

// Collect runs one gathering pass and returns the assembled snapshot along
// with per-collector run information. It never fails as a whole: categories
// that could not be collected are left empty.
func (g *Gatherer) Collect(ctx context.Context) (*Snapshot, CollectorRunInfo) {
	start := time.Now()

	snap := &Snapshot{
		Timestamp: start,
		Version:   g.version,
		Disks:     []DiskInfo{},
		GPUs:      []GPUInfo{},
	}
	runInfo := CollectorRunInfo{
		CollectorStats: make(map[MetricType]CollectorStat, len(CollectionOrder)),
	}

	for _, metricType := range CollectionOrder {
		stat := g.collectOne(ctx, metricType, snap)
		runInfo.CollectorStats[metricType] = stat
	}

	runInfo.Duration = time.Since(start)
	g.logger.V(1).Info("Assembled snapshot", "duration", runInfo.Duration)
	return snap, runInfo
}

func (g *Gatherer) collectOne(ctx context.Context, metricType MetricType, snap *Snapshot) CollectorStat {
	collectorStart := time.Now()

	factory, err := GetCollector(metricType)
	if err != nil {
		_, reason := GetCollectorStatus(metricType)
		g.logger.Info("Collector not available, leaving category empty",
			"metric_type", metricType, "reason", reason)
		return CollectorStat{
			Status:   CollectorStatusUnavailable,
			Duration: time.Since(collectorStart),
		}
	}

	collector, err := factory(g.logger, g.config)
	if err != nil {
		g.logger.Error(err, "Failed to create collector, leaving category empty",
			"metric_type", metricType)
		return CollectorStat{
			Status:   CollectorStatusDegraded,
			Duration: time.Since(collectorStart),
			Error:    err,
		}
	}

	data, err := collector.Collect(ctx)
	if err != nil {
		g.logger.Error(err, "Collection failed, leaving category empty",
			"metric_type", metricType, "collector", collector.Name())
		return CollectorStat{
			Status:   CollectorStatusDegraded,
			Duration: time.Since(collectorStart),
			Error:    err,
		}
	}

	if err := g.assemble(snap, metricType, data); err != nil {
		g.logger.Error(err, "Discarding unusable collector result",
			"metric_type", metricType, "collector", collector.Name())
		return CollectorStat{
			Status:   CollectorStatusDegraded,
			Duration: time.Since(collectorStart),
			Error:    err,
		}
	}

	return CollectorStat{
		Status:   CollectorStatusActive,
		Duration: time.Since(collectorStart),
	}
}

// assemble stores a collector result in its snapshot field. Slice categories
// keep their non-nil empty default when the collector returned nothing.
func (g *Gatherer) assemble(snap *Snapshot, metricType MetricType, data any) error {
	switch metricType {
	case MetricTypeOS:
		info, ok := data.(*OSInfo)
		if !ok {
			return fmt.Errorf("unexpected result type %T for %s", data, metricType)
		}
		snap.OS = info
	case MetricTypeCPU:
		info, ok := data.(*CPUInfo)
		if !ok {
			return fmt.Errorf("unexpected result type %T for %s", data, metricType)
		}
		snap.CPU = info
	case MetricTypeMemory:
		info, ok := data.(*MemoryInfo)
		if !ok {
			return fmt.Errorf("unexpected result type %T for %s", data, metricType)
		}
		snap.Memory = info
	case MetricTypeDisk:
		disks, ok := data.([]DiskInfo)
		if !ok {
			return fmt.Errorf("unexpected result type %T for %s", data, metricType)
		}
		if disks != nil {
			snap.Disks = disks
		}
	case MetricTypeGPU:
		gpus, ok := data.([]GPUInfo)
		if !ok {
			return fmt.Errorf("unexpected result type %T for %s", data, metricType)
		}
		if gpus != nil {
			snap.GPUs = gpus
		}
	default:
		return fmt.Errorf("unknown metric type %s", metricType)
	}
	return nil
}
