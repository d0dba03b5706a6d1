// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_FullSnapshot(t *testing.T) {
	snap := fullSnapshot()
	rows := Flatten(snap)

	// 2 header fields, 5 OS, 7 CPU + one per core, 6 memory,
	// 7 per disk, 7 per GPU
	want := 2 + 5 + 7 + len(snap.CPU.PerCoreUsage) + 6 +
		7*len(snap.Disks) + 7*len(snap.GPUs)
	assert.Len(t, rows, want)

	byProperty := make(map[string]string, len(rows))
	for _, row := range rows {
		byProperty[row.Property] = row.Value
	}

	assert.Equal(t, "2025-03-14T09:26:53Z", byProperty["Timestamp"])
	assert.Equal(t, "1.0.0", byProperty["Version"])
	assert.Equal(t, "Ubuntu 24.04.1 LTS", byProperty["OS: System"])
	assert.Equal(t, "8", byProperty["CPU: Logical Cores"])
	assert.Equal(t, "23.4", byProperty["CPU: Total Usage (%)"])
	assert.Equal(t, "10.0", byProperty["CPU: Core 0 Usage (%)"])
	assert.Equal(t, "50.0", byProperty["Memory: Usage (%)"])
	assert.Equal(t, "/", byProperty["Disks [0]: Mountpoint"])
	assert.Equal(t, "/data", byProperty["Disks [1]: Mountpoint"])
	assert.Equal(t, "NVIDIA GeForce RTX 3080", byProperty["GPUs [0]: Name"])
	assert.Equal(t, "61.0", byProperty["GPUs [0]: Temperature (C)"])
}

func TestFlatten_SectionOrder(t *testing.T) {
	rows := Flatten(fullSnapshot())

	indexOf := func(property string) int {
		for i, row := range rows {
			if row.Property == property {
				return i
			}
		}
		t.Fatalf("property %q not found", property)
		return -1
	}

	assert.Less(t, indexOf("Timestamp"), indexOf("OS: System"))
	assert.Less(t, indexOf("OS: Architecture"), indexOf("CPU: Physical Cores"))
	assert.Less(t, indexOf("CPU: Total Usage (%)"), indexOf("Memory: Total (bytes)"))
	assert.Less(t, indexOf("Memory: Swap Free (bytes)"), indexOf("Disks [0]: Device"))
	assert.Less(t, indexOf("Disks [1]: Usage (%)"), indexOf("GPUs [0]: Index"))
}

func TestFlatten_DegradedSnapshot(t *testing.T) {
	rows := Flatten(degradedSnapshot())

	require.Len(t, rows, 2)
	assert.Equal(t, "Timestamp", rows[0].Property)
	assert.Equal(t, "Version", rows[1].Property)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1.0 MB"},
		{1 << 30, "1.0 GB"},
		{100 << 30, "100.0 GB"},
		{1 << 40, "1.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.input), "input %d", tt.input)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "34.5%", FormatPercent(34.5))
	assert.Equal(t, "0.0%", FormatPercent(0))
	assert.Equal(t, "100.0%", FormatPercent(100))
}
