// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antimetal/sysspecs/pkg/snapshot"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validCpuinfoContent = `processor	: 0
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2397.223
physical id	: 0
core id		: 0

processor	: 1
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2400.000
physical id	: 0
core id	: 0

processor	: 2
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2395.101
physical id	: 0
core id	: 1

processor	: 3
vendor_id	: GenuineIntel
model name	: Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz
cpu MHz		: 2401.331
physical id	: 0
core id	: 1
`

	// Virtualized guests often expose no physical/core ids
	noTopologyCpuinfoContent = `processor	: 0
model name	: virtual cpu
cpu MHz		: 2000.000

processor	: 1
model name	: virtual cpu
cpu MHz		: 2000.000
`

	validStatContent = `cpu  100 0 100 700 100 0 0 0 0 0
cpu0 25 0 25 175 25 0 0 0 0 0
cpu1 25 0 25 175 25 0 0 0 0 0
cpu2 25 0 25 175 25 0 0 0 0 0
cpu3 25 0 25 175 25 0 0 0 0 0
intr 12345678
ctxt 87654321
btime 1700000000
`
)

func createCPUTestCollector(t *testing.T, cpuinfoContent, statContent string) *CPUCollector {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "cpuinfo"), []byte(cpuinfoContent), 0644))
	if statContent != "" {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "stat"), []byte(statContent), 0644))
	}

	config := snapshot.CollectionConfig{
		HostProcPath:      tmpDir,
		HostSysPath:       tmpDir,
		HostEtcPath:       tmpDir,
		CPUSampleInterval: time.Millisecond,
	}
	collector, err := NewCPUCollector(logr.Discard(), config)
	require.NoError(t, err)
	return collector
}

func writeCpufreq(t *testing.T, collector *CPUCollector, minKHz, maxKHz string) {
	require.NoError(t, os.MkdirAll(collector.cpufreqDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(collector.cpufreqDir, "cpuinfo_min_freq"), []byte(minKHz+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(collector.cpufreqDir, "cpuinfo_max_freq"), []byte(maxKHz+"\n"), 0644))
}

func TestCPUCollector_Topology(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info, ok := result.(*snapshot.CPUInfo)
	require.True(t, ok, "result must be *snapshot.CPUInfo")

	assert.Equal(t, int32(4), info.LogicalCores)
	assert.Equal(t, int32(2), info.PhysicalCores, "two distinct (physical id, core id) pairs")
	assert.Equal(t, "Intel(R) Xeon(R) CPU E5-2680 v4 @ 2.40GHz", info.ModelName)
	assert.InDelta(t, 2397.223, info.CurrentFreqMHz, 0.001, "first processor block wins")
}

func TestCPUCollector_NoTopologyFallback(t *testing.T) {
	collector := createCPUTestCollector(t, noTopologyCpuinfoContent, validStatContent)

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info := result.(*snapshot.CPUInfo)
	assert.Equal(t, int32(2), info.LogicalCores)
	assert.Equal(t, int32(2), info.PhysicalCores, "falls back to logical count")
}

func TestCPUCollector_FrequencyLimits(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)
	writeCpufreq(t, collector, "1200000", "3300000")

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info := result.(*snapshot.CPUInfo)
	assert.InDelta(t, 1200.0, info.MinFreqMHz, 0.001)
	assert.InDelta(t, 3300.0, info.MaxFreqMHz, 0.001)
}

func TestCPUCollector_NoCpufreq(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info := result.(*snapshot.CPUInfo)
	assert.Zero(t, info.MinFreqMHz)
	assert.Zero(t, info.MaxFreqMHz)
}

func TestCPUCollector_UsageSampling(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info := result.(*snapshot.CPUInfo)
	// The stat fixture does not change between the two reads, so the
	// window is empty and usage reports idle
	assert.Zero(t, info.UsagePercent)
	require.Len(t, info.PerCoreUsage, 4)
	for _, usage := range info.PerCoreUsage {
		assert.GreaterOrEqual(t, usage, 0.0)
		assert.LessOrEqual(t, usage, 100.0)
	}
}

func TestCPUCollector_MissingStat(t *testing.T) {
	// Usage sampling is best-effort; topology still comes back
	collector := createCPUTestCollector(t, validCpuinfoContent, "")

	result, err := collector.Collect(context.Background())
	require.NoError(t, err)

	info := result.(*snapshot.CPUInfo)
	assert.Equal(t, int32(4), info.LogicalCores)
	assert.Zero(t, info.UsagePercent)
	assert.NotNil(t, info.PerCoreUsage)
}

func TestCPUCollector_MissingCpuinfo(t *testing.T) {
	tmpDir := t.TempDir()
	config := snapshot.CollectionConfig{
		HostProcPath:      tmpDir,
		HostSysPath:       tmpDir,
		HostEtcPath:       tmpDir,
		CPUSampleInterval: time.Millisecond,
	}
	collector, err := NewCPUCollector(logr.Discard(), config)
	require.NoError(t, err)

	_, err = collector.Collect(context.Background())
	require.Error(t, err)
}

func TestCPUCollector_ContextCancellation(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)
	collector.sampleInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := collector.Collect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestUsageBetween(t *testing.T) {
	tests := []struct {
		name    string
		a, b    cpuTicks
		want    float64
		wantMin float64
		wantMax float64
	}{
		{
			name: "half busy",
			a:    cpuTicks{user: 0, idle: 0},
			b:    cpuTicks{user: 50, idle: 50},
			want: 50.0,
		},
		{
			name: "fully idle",
			a:    cpuTicks{idle: 100},
			b:    cpuTicks{idle: 200},
			want: 0.0,
		},
		{
			name: "fully busy",
			a:    cpuTicks{user: 100},
			b:    cpuTicks{user: 300},
			want: 100.0,
		},
		{
			name: "iowait counts as idle",
			a:    cpuTicks{},
			b:    cpuTicks{user: 25, iowait: 75},
			want: 25.0,
		},
		{
			name: "no ticks elapsed",
			a:    cpuTicks{user: 10, idle: 10},
			b:    cpuTicks{user: 10, idle: 10},
			want: 0.0,
		},
		{
			name: "counter reset reports idle",
			a:    cpuTicks{user: 1000, idle: 1000},
			b:    cpuTicks{user: 5, idle: 5},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usageBetween(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 0.01)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestCPUCollector_ReadStat(t *testing.T) {
	collector := createCPUTestCollector(t, validCpuinfoContent, validStatContent)

	ticks, err := collector.readStat()
	require.NoError(t, err)

	require.Contains(t, ticks, int32(-1), "aggregate line present")
	assert.Equal(t, uint64(100), ticks[-1].user)
	assert.Equal(t, uint64(700), ticks[-1].idle)
	for i := int32(0); i < 4; i++ {
		require.Contains(t, ticks, i)
	}
}
