// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package snapshot

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

var (
	registry              = make(map[MetricType]NewPointCollector)
	unavailableCollectors = make(map[MetricType]UnavailableCollector)
	registryLogger        = stdr.New(log.New(os.Stderr, "[snapshot.registry] ", log.LstdFlags))
)

// UnavailableCollector represents a collector that cannot run on this host
type UnavailableCollector struct {
	MetricType          MetricType
	Reason              string
	MissingRequirements []string
}

// Register adds a NewPointCollector factory to the global registry for
// metricType. collector is used to create new collector instances with the
// provided logger and configuration.
//
// This function is usually called during package initialization (typically in
// init() functions) to register collector implementations before they can be
// instantiated by Gatherer.
//
// On non-Linux platforms, this is a no-op to allow unit tests to run on
// macOS/Windows. It will panic if a collector for the given metricType is
// already registered on Linux.
func Register(metricType MetricType, collector NewPointCollector) {
	// No-op on non-Linux platforms
	if runtime.GOOS != "linux" {
		registryLogger.V(1).Info("Skipping collector registration on non-Linux platform",
			"metric_type", metricType, "platform", runtime.GOOS)
		return
	}

	_, exists := registry[metricType]
	if exists {
		panic(fmt.Sprintf("Collector for %s already registered", metricType))
	}
	registry[metricType] = collector
}

// TryRegister attempts to register a collector after checking whether it can
// run on the current host. If the collector cannot run due to missing host
// facilities, it is tracked in the unavailable collectors list with the
// reason so that gathering can substitute an empty result instead of failing.
//
// On non-Linux platforms, this is a no-op to allow unit tests to run on
// macOS/Windows. This function is called during package initialization and
// will not panic on capability failures.
func TryRegister(metricType MetricType, collector NewPointCollector) {
	// No-op on non-Linux platforms
	if runtime.GOOS != "linux" {
		registryLogger.V(1).Info("Skipping collector registration on non-Linux platform",
			"metric_type", metricType, "platform", runtime.GOOS)
		return
	}

	if _, exists := registry[metricType]; exists {
		panic(fmt.Sprintf("Collector for %s already registered", metricType))
	}

	// Create a temporary collector instance to check its requirements
	config := DefaultCollectionConfig()
	tempLogger := registryLogger.WithName(string(metricType))

	tempCollector, err := collector(tempLogger, config)
	if err != nil {
		unavailableCollectors[metricType] = UnavailableCollector{
			MetricType: metricType,
			Reason:     fmt.Sprintf("Failed to create collector: %v", err),
		}
		registryLogger.Info("Collector not available on this host",
			"metric_type", metricType, "reason", err.Error())
		return
	}

	canRun, missing := tempCollector.Capabilities().CanRun()
	if !canRun {
		unavailableCollectors[metricType] = UnavailableCollector{
			MetricType:          metricType,
			Reason:              "Missing required host facilities",
			MissingRequirements: missing,
		}
		registryLogger.Info("Collector requires host facilities that are not present",
			"metric_type", metricType, "missing", missing)
		return
	}

	registry[metricType] = collector
	registryLogger.V(1).Info("Successfully registered collector", "metric_type", metricType)
}

// GetCollector retrieves the collector factory function from the global
// registry for metricType.
func GetCollector(metricType MetricType) (NewPointCollector, error) {
	collector, exists := registry[metricType]
	if !exists {
		return nil, fmt.Errorf("Collector for %s not found", metricType)
	}
	return collector, nil
}

// GetAvailableCollectors returns a list of metric types for collectors that
// are registered and can run on the current host.
func GetAvailableCollectors() []MetricType {
	types := make([]MetricType, 0, len(registry))
	for metricType := range registry {
		types = append(types, metricType)
	}
	return types
}

// GetUnavailableCollectors returns information about collectors that cannot
// run on the current host.
func GetUnavailableCollectors() map[MetricType]UnavailableCollector {
	// Return a copy to prevent external modification
	result := make(map[MetricType]UnavailableCollector, len(unavailableCollectors))
	for k, v := range unavailableCollectors {
		result[k] = v
	}
	return result
}

// GetCollectorStatus returns detailed status information for a specific
// collector type.
func GetCollectorStatus(metricType MetricType) (available bool, reason string) {
	if _, exists := registry[metricType]; exists {
		return true, "Collector is registered and available"
	}

	if unavail, exists := unavailableCollectors[metricType]; exists {
		reason = unavail.Reason
		if len(unavail.MissingRequirements) > 0 {
			reason = fmt.Sprintf("%s (missing: %v)", reason, unavail.MissingRequirements)
		}
		return false, reason
	}

	return false, "Collector not found"
}

// SetRegistryLogger allows setting a custom logger for the registry.
// This should be called before any collectors are registered.
func SetRegistryLogger(logger logr.Logger) {
	registryLogger = logger
}
