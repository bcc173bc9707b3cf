// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package drm_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hostwatch/pkg/telemetry/drm"
)

func writeSysFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestNewProvider_NoDrmClass(t *testing.T) {
	_, err := drm.NewProvider(logr.Discard(), t.TempDir())
	assert.Error(t, err)
}

func TestNewProvider_SkipsCardsWithoutPCIDevice(t *testing.T) {
	sysPath := t.TempDir()
	// card0 is a virtual device: no vendor file. card1 is real hardware.
	writeSysFiles(t, sysPath, map[string]string{
		"class/drm/card0/.keep":          "",
		"class/drm/card1/device/vendor":  "0x1002\n",
		"class/drm/card1/device/device":  "0x73ff\n",
		"class/drm/card0-HDMI-A-1/.keep": "", // connector dirs are never cards
	})

	p, err := drm.NewProvider(logr.Discard(), sysPath)
	require.NoError(t, err)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "AMD GPU [0x73ff]", snap.Name)
}

func TestProvider_SnapshotReportsOnlySupportedFields(t *testing.T) {
	sysPath := t.TempDir()
	writeSysFiles(t, sysPath, map[string]string{
		"class/drm/card0/device/vendor":              "0x1002\n",
		"class/drm/card0/device/device":              "0x73ff\n",
		"class/drm/card0/device/mem_info_vram_total": "8589934592\n",
		"class/drm/card0/device/mem_info_vram_used":  "2147483648\n",
		"class/drm/card0/device/gpu_busy_percent":    "37\n",
		"class/drm/card0/device/hwmon/hwmon2/temp1_input": "64000\n",
	})

	p, err := drm.NewProvider(logr.Discard(), sysPath)
	require.NoError(t, err)

	snap, err := p.Snapshot()
	require.NoError(t, err)

	require.NotNil(t, snap.MemoryTotal)
	assert.Equal(t, uint64(8589934592), *snap.MemoryTotal)
	require.NotNil(t, snap.MemoryUsed)
	assert.Equal(t, uint64(2147483648), *snap.MemoryUsed)
	require.NotNil(t, snap.Utilization)
	assert.Equal(t, float32(37), *snap.Utilization)
	require.NotNil(t, snap.Temperature)
	assert.Equal(t, uint32(64), *snap.Temperature)
}

func TestProvider_SnapshotWithoutOptionalAttributes(t *testing.T) {
	sysPath := t.TempDir()
	// Intel iGPU: no vram attributes, no busy percent.
	writeSysFiles(t, sysPath, map[string]string{
		"class/drm/card0/device/vendor": "0x8086\n",
		"class/drm/card0/device/device": "0x9bc4\n",
	})

	p, err := drm.NewProvider(logr.Discard(), sysPath)
	require.NoError(t, err)

	snap, err := p.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, snap.MemoryTotal)
	assert.Nil(t, snap.MemoryUsed)
	assert.Nil(t, snap.Utilization)
	assert.Nil(t, snap.Temperature)
}
