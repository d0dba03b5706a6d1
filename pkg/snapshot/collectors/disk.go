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
	"strings"

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"
)

func init() {
	snapshot.Register(snapshot.MetricTypeDisk,
		func(logger logr.Logger, config snapshot.CollectionConfig) (snapshot.PointCollector, error) {
			return NewDiskCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ snapshot.PointCollector = (*DiskCollector)(nil)

// pseudoFilesystems are filesystem types that hold no user data and are
// excluded from disk enumeration.
var pseudoFilesystems = map[string]bool{
	"autofs":      true,
	"binfmt_misc": true,
	"bpf":         true,
	"cgroup":      true,
	"cgroup2":     true,
	"configfs":    true,
	"debugfs":     true,
	"devpts":      true,
	"devtmpfs":    true,
	"efivarfs":    true,
	"fusectl":     true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"nsfs":        true,
	"proc":        true,
	"pstore":      true,
	"ramfs":       true,
	"rpc_pipefs":  true,
	"securityfs":  true,
	"sysfs":       true,
	"tmpfs":       true,
	"tracefs":     true,
}

// DiskCollector collects usage of mounted filesystems.
//
// Mounted partitions are enumerated from /proc/mounts in kernel order and
// each mountpoint is statted via statfs(2). Pseudo filesystems (proc, sysfs,
// cgroup, ...) are excluded.
//
// A partition that cannot be statted (permission denied, stale NFS handle,
// disappearing mount) is skipped and enumeration continues with the next
// entry. Unreadable partitions therefore never abort disk collection.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#proc-mounts
type DiskCollector struct {
	snapshot.BasePointCollector
	mountsPath string
}

func NewDiskCollector(logger logr.Logger, config snapshot.CollectionConfig) (*DiskCollector, error) {
	if err := config.Validate(snapshot.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := snapshot.CollectorCapabilities{
		SupportsOneShot: true,
		RequiredPaths:   []string{filepath.Join(config.HostProcPath, "mounts")},
	}

	return &DiskCollector{
		BasePointCollector: snapshot.NewBasePointCollector(
			snapshot.MetricTypeDisk,
			"Disk Usage Collector",
			logger,
			config,
			capabilities,
		),
		mountsPath: filepath.Join(config.HostProcPath, "mounts"),
	}, nil
}

// Collect performs a one-shot collection of mounted filesystem usage
func (c *DiskCollector) Collect(ctx context.Context) (any, error) {
	file, err := os.Open(c.mountsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.mountsPath, err)
	}
	defer file.Close()

	disks := []snapshot.DiskInfo{}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		// Line format: device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		device := unescapeMountField(fields[0])
		mountpoint := unescapeMountField(fields[1])
		fstype := fields[2]

		if pseudoFilesystems[fstype] {
			continue
		}
		// Bind mounts and btrfs subvolumes repeat the same mountpoint
		if seen[mountpoint] {
			continue
		}
		seen[mountpoint] = true

		var fs unix.Statfs_t
		if err := unix.Statfs(mountpoint, &fs); err != nil {
			// Skip-and-continue: one unreadable partition must not abort
			// the rest of the enumeration
			c.Logger().V(1).Info("Skipping unreadable partition",
				"mountpoint", mountpoint, "error", err)
			continue
		}

		total := uint64(fs.Blocks) * uint64(fs.Bsize)
		free := uint64(fs.Bfree) * uint64(fs.Bsize)
		if total == 0 {
			// Zero-sized pseudo mounts that slipped through the type filter
			continue
		}
		used := total - free

		disks = append(disks, snapshot.DiskInfo{
			Device:      device,
			Mountpoint:  mountpoint,
			FSType:      fstype,
			TotalBytes:  total,
			UsedBytes:   used,
			FreeBytes:   free,
			UsedPercent: snapshot.ClampPercent(float64(used) / float64(total) * 100.0),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", c.mountsPath, err)
	}

	c.Logger().V(1).Info("Collected disk usage", "partitions", len(disks))
	return disks, nil
}

// unescapeMountField decodes the octal escapes the kernel uses for
// whitespace and backslashes in /proc/mounts fields (e.g. \040 for space).
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			switch s[i+1 : i+4] {
			case "040":
				b.WriteByte(' ')
				i += 3
				continue
			case "011":
				b.WriteByte('\t')
				i += 3
				continue
			case "012":
				b.WriteByte('\n')
				i += 3
				continue
			case "134":
				b.WriteByte('\\')
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
