// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/antimetal/sysspecs/pkg/snapshot"
)

// Row is one flattened leaf field of a snapshot
type Row struct {
	Property string
	Value    string
}

// Flatten converts the nested snapshot structure into an ordered list of
// property/value rows, one per leaf scalar. Field ordering follows the
// model's canonical section order (OS, CPU, memory, disks, GPUs); list
// entries are suffixed with their index so each partition and GPU gets its
// own rows. Categories degraded to nil contribute no rows.
func Flatten(snap *snapshot.Snapshot) []Row {
	rows := []Row{
		{"Timestamp", snap.Timestamp.Format(time.RFC3339)},
		{"Version", snap.Version},
	}

	if os := snap.OS; os != nil {
		rows = append(rows,
			Row{"OS: System", os.System},
			Row{"OS: Hostname", os.Hostname},
			Row{"OS: Release", os.Release},
			Row{"OS: Version", os.Version},
			Row{"OS: Architecture", os.Architecture},
		)
	}

	if cpu := snap.CPU; cpu != nil {
		rows = append(rows,
			Row{"CPU: Physical Cores", strconv.FormatInt(int64(cpu.PhysicalCores), 10)},
			Row{"CPU: Logical Cores", strconv.FormatInt(int64(cpu.LogicalCores), 10)},
			Row{"CPU: Model Name", cpu.ModelName},
			Row{"CPU: Current Frequency (MHz)", formatFloat(cpu.CurrentFreqMHz)},
			Row{"CPU: Min Frequency (MHz)", formatFloat(cpu.MinFreqMHz)},
			Row{"CPU: Max Frequency (MHz)", formatFloat(cpu.MaxFreqMHz)},
			Row{"CPU: Total Usage (%)", formatFloat(cpu.UsagePercent)},
		)
		for i, usage := range cpu.PerCoreUsage {
			rows = append(rows, Row{
				fmt.Sprintf("CPU: Core %d Usage (%%)", i),
				formatFloat(usage),
			})
		}
	}

	if mem := snap.Memory; mem != nil {
		rows = append(rows,
			Row{"Memory: Total (bytes)", strconv.FormatUint(mem.TotalBytes, 10)},
			Row{"Memory: Used (bytes)", strconv.FormatUint(mem.UsedBytes, 10)},
			Row{"Memory: Available (bytes)", strconv.FormatUint(mem.AvailableBytes, 10)},
			Row{"Memory: Usage (%)", formatFloat(mem.UsedPercent)},
			Row{"Memory: Swap Total (bytes)", strconv.FormatUint(mem.SwapTotalBytes, 10)},
			Row{"Memory: Swap Free (bytes)", strconv.FormatUint(mem.SwapFreeBytes, 10)},
		)
	}

	for i, disk := range snap.Disks {
		prefix := fmt.Sprintf("Disks [%d]", i)
		rows = append(rows,
			Row{prefix + ": Device", disk.Device},
			Row{prefix + ": Mountpoint", disk.Mountpoint},
			Row{prefix + ": Filesystem", disk.FSType},
			Row{prefix + ": Total (bytes)", strconv.FormatUint(disk.TotalBytes, 10)},
			Row{prefix + ": Used (bytes)", strconv.FormatUint(disk.UsedBytes, 10)},
			Row{prefix + ": Free (bytes)", strconv.FormatUint(disk.FreeBytes, 10)},
			Row{prefix + ": Usage (%)", formatFloat(disk.UsedPercent)},
		)
	}

	for i, gpu := range snap.GPUs {
		prefix := fmt.Sprintf("GPUs [%d]", i)
		rows = append(rows,
			Row{prefix + ": Index", strconv.FormatInt(int64(gpu.Index), 10)},
			Row{prefix + ": Name", gpu.Name},
			Row{prefix + ": Driver Version", gpu.DriverVersion},
			Row{prefix + ": Memory Total (bytes)", strconv.FormatUint(gpu.MemoryTotalBytes, 10)},
			Row{prefix + ": Memory Used (bytes)", strconv.FormatUint(gpu.MemoryUsedBytes, 10)},
			Row{prefix + ": Utilization (%)", formatFloat(gpu.UtilizationPercent)},
			Row{prefix + ": Temperature (C)", formatFloat(gpu.TemperatureC)},
		)
	}

	return rows
}

// formatFloat renders a float with one decimal place, matching the
// resolution the host facilities actually provide for percentages and MHz.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
