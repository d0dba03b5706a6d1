// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
)

func init() {
	snapshot.Register(snapshot.MetricTypeOS,
		func(logger logr.Logger, config snapshot.CollectionConfig) (snapshot.PointCollector, error) {
			return NewOSCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ snapshot.PointCollector = (*OSCollector)(nil)

// OSCollector collects operating system identification.
//
// Distribution name and version come from /etc/os-release; kernel name,
// release and hostname come from /proc/sys/kernel. The architecture is the
// compile-time GOARCH, which matches the running process rather than any
// host override.
//
// /etc/os-release is optional: minimal container images frequently lack it,
// in which case the collector degrades to kernel identification only.
//
// Reference: https://www.freedesktop.org/software/systemd/man/os-release.html
type OSCollector struct {
	snapshot.BasePointCollector
	osReleasePath string
	kernelDir     string
}

func NewOSCollector(logger logr.Logger, config snapshot.CollectionConfig) (*OSCollector, error) {
	if err := config.Validate(snapshot.ValidateOptions{RequireHostProcPath: true, RequireHostEtcPath: true}); err != nil {
		return nil, err
	}

	capabilities := snapshot.CollectorCapabilities{
		SupportsOneShot: true,
		RequiredPaths:   []string{filepath.Join(config.HostProcPath, "sys/kernel")},
	}

	return &OSCollector{
		BasePointCollector: snapshot.NewBasePointCollector(
			snapshot.MetricTypeOS,
			"Operating System Collector",
			logger,
			config,
			capabilities,
		),
		osReleasePath: filepath.Join(config.HostEtcPath, "os-release"),
		kernelDir:     filepath.Join(config.HostProcPath, "sys/kernel"),
	}, nil
}

// Collect performs a one-shot collection of OS identification
func (c *OSCollector) Collect(ctx context.Context) (any, error) {
	info := &snapshot.OSInfo{
		Architecture: runtime.GOARCH,
	}

	// Kernel identification from /proc/sys/kernel. ostype is the fallback
	// system name when os-release is unavailable.
	ostype := c.readKernelFile("ostype")
	info.Release = c.readKernelFile("osrelease")
	info.Hostname = c.readKernelFile("hostname")

	name, version := c.readOSRelease()
	if name == "" {
		name = ostype
	}
	info.System = name
	info.Version = version

	if info.System == "" && info.Release == "" && info.Hostname == "" {
		return nil, fmt.Errorf("no OS identification available under %s or %s", c.kernelDir, c.osReleasePath)
	}

	c.Logger().V(1).Info("Collected OS information",
		"system", info.System, "release", info.Release)
	return info, nil
}

// readKernelFile reads a single-line value from /proc/sys/kernel.
// Missing entries are logged and returned as empty strings.
func (c *OSCollector) readKernelFile(name string) string {
	path := filepath.Join(c.kernelDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		c.Logger().V(2).Info("Kernel file not available", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readOSRelease parses /etc/os-release for the distribution name and version.
//
// Format is KEY=value, one per line, values optionally double-quoted.
// PRETTY_NAME is preferred for the name since it already embeds the version
// in most distributions; NAME is the fallback. VERSION_ID carries the bare
// version string.
func (c *OSCollector) readOSRelease() (name, version string) {
	data, err := os.ReadFile(c.osReleasePath)
	if err != nil {
		c.Logger().V(2).Info("Optional file not available", "path", c.osReleasePath, "error", err)
		return "", ""
	}

	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		fields[key] = strings.Trim(value, `"`)
	}

	name = fields["PRETTY_NAME"]
	if name == "" {
		name = fields["NAME"]
	}
	return name, fields["VERSION_ID"]
}
