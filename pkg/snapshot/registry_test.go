// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package snapshot

import (
	"context"
	"runtime"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	BasePointCollector
}

func (c *fakeCollector) Collect(ctx context.Context) (any, error) {
	return nil, nil
}

func newFakeCollectorFactory(metricType MetricType) NewPointCollector {
	return func(logger logr.Logger, config CollectionConfig) (PointCollector, error) {
		return &fakeCollector{
			BasePointCollector: NewBasePointCollector(
				metricType,
				"Fake Collector",
				logger,
				config,
				CollectorCapabilities{SupportsOneShot: true},
			),
		}, nil
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("registration is a no-op on non-Linux platforms")
	}

	metricType := MetricType("test-register-dup")
	factory := newFakeCollectorFactory(metricType)

	Register(metricType, factory)
	assert.Panics(t, func() {
		Register(metricType, factory)
	})
}

func TestGetCollector_Registered(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("registration is a no-op on non-Linux platforms")
	}

	metricType := MetricType("test-get-collector")
	Register(metricType, newFakeCollectorFactory(metricType))

	factory, err := GetCollector(metricType)
	require.NoError(t, err)

	collector, err := factory(logr.Discard(), DefaultCollectionConfig())
	require.NoError(t, err)
	assert.Equal(t, metricType, collector.Type())
	assert.Contains(t, GetAvailableCollectors(), metricType)
}

func TestGetCollector_Unknown(t *testing.T) {
	_, err := GetCollector(MetricType("test-never-registered"))
	require.Error(t, err)
}

func TestGetCollectorStatus_Unknown(t *testing.T) {
	available, reason := GetCollectorStatus(MetricType("test-never-registered"))
	assert.False(t, available)
	assert.Equal(t, "Collector not found", reason)
}

func TestGetUnavailableCollectors_ReturnsCopy(t *testing.T) {
	first := GetUnavailableCollectors()
	first[MetricType("test-injected")] = UnavailableCollector{
		MetricType: MetricType("test-injected"),
		Reason:     "injected by test",
	}

	second := GetUnavailableCollectors()
	assert.NotContains(t, second, MetricType("test-injected"))
}

func TestCollectorCapabilities_CanRun(t *testing.T) {
	t.Run("no requirements", func(t *testing.T) {
		caps := CollectorCapabilities{SupportsOneShot: true}
		ok, missing := caps.CanRun()
		assert.True(t, ok)
		assert.Empty(t, missing)
	})

	t.Run("missing path", func(t *testing.T) {
		caps := CollectorCapabilities{
			SupportsOneShot: true,
			RequiredPaths:   []string{"/nonexistent/test/path"},
		}
		ok, missing := caps.CanRun()
		assert.False(t, ok)
		assert.Contains(t, missing, "/nonexistent/test/path")
	})

	t.Run("missing binary", func(t *testing.T) {
		caps := CollectorCapabilities{
			SupportsOneShot:  true,
			RequiredBinaries: []string{"definitely-not-a-real-binary-name"},
		}
		ok, missing := caps.CanRun()
		assert.False(t, ok)
		require.Len(t, missing, 1)
	})

	t.Run("existing path", func(t *testing.T) {
		caps := CollectorCapabilities{
			SupportsOneShot: true,
			RequiredPaths:   []string{t.TempDir()},
		}
		ok, missing := caps.CanRun()
		assert.True(t, ok)
		assert.Empty(t, missing)
	})
}
