// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/antimetal/sysspecs/pkg/snapshot"
)

// renderText produces the human-readable console summary. Section order is
// fixed: OS, CPU, memory, disks, GPUs. Categories that degraded during
// collection render as "unavailable" so the summary shape stays stable.
func renderText(snap *snapshot.Snapshot) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "sysspecs v%s\n", snap.Version)
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", snap.Timestamp.Format(time.RFC3339))

	writeOSSection(&b, snap.OS)
	writeCPUSection(&b, snap.CPU)
	writeMemorySection(&b, snap.Memory)
	writeDiskSection(&b, snap.Disks)
	writeGPUSection(&b, snap.GPUs)

	return b.Bytes()
}

func writeOSSection(b *bytes.Buffer, os *snapshot.OSInfo) {
	b.WriteString("\nOperating System:\n")
	if os == nil {
		b.WriteString("  unavailable\n")
		return
	}
	fmt.Fprintf(b, "  System:       %s\n", orNA(os.System))
	fmt.Fprintf(b, "  Hostname:     %s\n", orNA(os.Hostname))
	fmt.Fprintf(b, "  Kernel:       %s\n", orNA(os.Release))
	fmt.Fprintf(b, "  Version:      %s\n", orNA(os.Version))
	fmt.Fprintf(b, "  Architecture: %s\n", orNA(os.Architecture))
}

func writeCPUSection(b *bytes.Buffer, cpu *snapshot.CPUInfo) {
	b.WriteString("\nCPU:\n")
	if cpu == nil {
		b.WriteString("  unavailable\n")
		return
	}
	fmt.Fprintf(b, "  Model:             %s\n", orNA(cpu.ModelName))
	fmt.Fprintf(b, "  Physical Cores:    %d\n", cpu.PhysicalCores)
	fmt.Fprintf(b, "  Logical Cores:     %d\n", cpu.LogicalCores)
	fmt.Fprintf(b, "  Current Frequency: %.1f MHz\n", cpu.CurrentFreqMHz)
	if cpu.MinFreqMHz > 0 || cpu.MaxFreqMHz > 0 {
		fmt.Fprintf(b, "  Frequency Range:   %.1f - %.1f MHz\n", cpu.MinFreqMHz, cpu.MaxFreqMHz)
	}
	fmt.Fprintf(b, "  Total Usage:       %s\n", FormatPercent(cpu.UsagePercent))
}

func writeMemorySection(b *bytes.Buffer, mem *snapshot.MemoryInfo) {
	b.WriteString("\nMemory:\n")
	if mem == nil {
		b.WriteString("  unavailable\n")
		return
	}
	fmt.Fprintf(b, "  Total:     %s\n", FormatBytes(mem.TotalBytes))
	fmt.Fprintf(b, "  Used:      %s (%s)\n", FormatBytes(mem.UsedBytes), FormatPercent(mem.UsedPercent))
	fmt.Fprintf(b, "  Available: %s\n", FormatBytes(mem.AvailableBytes))
	if mem.SwapTotalBytes > 0 {
		fmt.Fprintf(b, "  Swap:      %s total, %s free\n",
			FormatBytes(mem.SwapTotalBytes), FormatBytes(mem.SwapFreeBytes))
	}
}

func writeDiskSection(b *bytes.Buffer, disks []snapshot.DiskInfo) {
	b.WriteString("\nDisks:\n")
	if len(disks) == 0 {
		b.WriteString("  none detected\n")
		return
	}

	w := tabwriter.NewWriter(b, 2, 4, 2, ' ', 0)
	for _, d := range disks {
		// Field order matters: mountpoint, type, then total before used
		fmt.Fprintf(w, "  %s\t%s\t%s total\t%s used\t%s free\t(%s)\n",
			d.Mountpoint, d.FSType,
			FormatBytes(d.TotalBytes), FormatBytes(d.UsedBytes), FormatBytes(d.FreeBytes),
			FormatPercent(d.UsedPercent))
	}
	w.Flush()
}

func writeGPUSection(b *bytes.Buffer, gpus []snapshot.GPUInfo) {
	b.WriteString("\nGPUs:\n")
	if len(gpus) == 0 {
		b.WriteString("  none detected\n")
		return
	}

	w := tabwriter.NewWriter(b, 2, 4, 2, ' ', 0)
	for _, g := range gpus {
		fmt.Fprintf(w, "  [%d] %s\tdriver %s\t%s / %s\t%s load\t%.0f C\n",
			g.Index, g.Name, orNA(g.DriverVersion),
			FormatBytes(g.MemoryUsedBytes), FormatBytes(g.MemoryTotalBytes),
			FormatPercent(g.UtilizationPercent), g.TemperatureC)
	}
	w.Flush()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
