// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/go-logr/logr"
)

// PointCollector performs one-shot data collection for a single snapshot
// category
type PointCollector interface {
	Type() MetricType
	Name() string

	// Collect performs a single collection and returns the category data
	Collect(ctx context.Context) (any, error)

	Capabilities() CollectorCapabilities
}

// NewPointCollector creates a new PointCollector instance
type NewPointCollector func(logger logr.Logger, config CollectionConfig) (PointCollector, error)

// CollectorCapabilities describes what a collector needs from the host.
// TryRegister probes these requirements at registration time; a collector
// whose requirements cannot be met is recorded as unavailable rather than
// registered.
type CollectorCapabilities struct {
	SupportsOneShot bool
	// RequiredPaths are host files that must exist for the collector to
	// produce data (e.g. /proc/meminfo)
	RequiredPaths []string
	// RequiredBinaries are executables that must be resolvable on PATH
	// (e.g. nvidia-smi for GPU queries)
	RequiredBinaries []string
}

// CanRun reports whether all requirements are satisfied on this host and
// returns the ones that are missing.
func (c CollectorCapabilities) CanRun() (bool, []string) {
	var missing []string
	for _, path := range c.RequiredPaths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	for _, bin := range c.RequiredBinaries {
		if _, err := exec.LookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	return len(missing) == 0, missing
}

type BasePointCollector struct {
	metricType   MetricType
	name         string
	logger       logr.Logger
	config       CollectionConfig
	capabilities CollectorCapabilities
}

func NewBasePointCollector(metricType MetricType, name string, logger logr.Logger, config CollectionConfig, capabilities CollectorCapabilities) BasePointCollector {
	return BasePointCollector{
		metricType:   metricType,
		name:         name,
		logger:       logger.WithName(string(metricType)),
		config:       config,
		capabilities: capabilities,
	}
}

func (b *BasePointCollector) Type() MetricType {
	return b.metricType
}

func (b *BasePointCollector) Name() string {
	return b.name
}

func (b *BasePointCollector) Capabilities() CollectorCapabilities {
	return b.capabilities
}

func (b *BasePointCollector) Logger() logr.Logger {
	return b.logger
}

func (b *BasePointCollector) Config() CollectionConfig {
	return b.config
}

func (b *BasePointCollector) String() string {
	return fmt.Sprintf("%s (%s)", b.name, b.metricType)
}
