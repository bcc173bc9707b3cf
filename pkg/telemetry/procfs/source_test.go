// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package procfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hostwatch/pkg/telemetry/procfs"
)

const statFirst = `cpu  100 0 100 800 0 0 0 0 0 0
cpu0 50 0 50 400 0 0 0 0 0 0
cpu1 50 0 50 400 0 0 0 0 0 0
intr 12345
ctxt 6789
`

const statSecond = `cpu  150 0 150 850 0 0 0 0 0 0
cpu0 100 0 100 400 0 0 0 0 0 0
cpu1 50 0 50 450 0 0 0 0 0 0
intr 12346
ctxt 6790
`

const meminfoContent = `MemTotal:        8192000 kB
MemFree:         1024000 kB
MemAvailable:    4096000 kB
Buffers:          256000 kB
Cached:          2048000 kB
`

const netDevContent = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 1234567   12345    0    0    0     0          0         0 1234567   12345    0    0    0     0       0          0
  eth0: 9876543   98765    0    0    0     0          0         0 1111111   11111    0    0    0     0       0          0
`

func newTestSource(t *testing.T, files map[string]string) (*procfs.Source, string) {
	t.Helper()
	tempDir := t.TempDir()
	procPath := filepath.Join(tempDir, "proc")
	require.NoError(t, os.MkdirAll(procPath, 0o755))

	for name, content := range files {
		path := filepath.Join(procPath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	src, err := procfs.NewSource(logr.Discard(), procfs.Config{
		HostProcPath: procPath,
		HostSysPath:  filepath.Join(tempDir, "sys"),
	})
	require.NoError(t, err)
	return src, procPath
}

func TestNewSource_RejectsRelativePaths(t *testing.T) {
	_, err := procfs.NewSource(logr.Discard(), procfs.Config{HostProcPath: "proc"})
	assert.Error(t, err)
}

func TestSource_CPUPercents(t *testing.T) {
	src, procPath := newTestSource(t, map[string]string{"stat": statFirst})

	// First reading establishes the baseline: all zeros.
	percents, err := src.CPUPercents()
	require.NoError(t, err)
	require.Len(t, percents, 2)
	assert.Equal(t, []float64{0, 0}, percents)

	require.NoError(t, os.WriteFile(filepath.Join(procPath, "stat"), []byte(statSecond), 0o644))

	// cpu0: busy delta 100 over total delta 100 -> 100%.
	// cpu1: busy delta 0 over total delta 50 -> 0%.
	percents, err = src.CPUPercents()
	require.NoError(t, err)
	require.Len(t, percents, 2)
	assert.InDelta(t, 100, percents[0], 0.01)
	assert.InDelta(t, 0, percents[1], 0.01)
}

func TestSource_Memory(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{"meminfo": meminfoContent})

	stats, err := src.Memory()
	require.NoError(t, err)
	assert.Equal(t, uint64(8192000)*1024, stats.Total)
	assert.Equal(t, uint64(4096000)*1024, stats.Available)
}

func TestSource_NetworkCounters(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{"net/dev": netDevContent})

	counters, err := src.NetworkCounters()
	require.NoError(t, err)
	require.Len(t, counters, 2)

	byName := map[string][2]uint64{}
	for _, c := range counters {
		byName[c.Name] = [2]uint64{c.RxBytes, c.TxBytes}
	}
	assert.Equal(t, [2]uint64{9876543, 1111111}, byName["eth0"])
	assert.Equal(t, [2]uint64{1234567, 1234567}, byName["lo"])
}

func TestSource_NetworkCountersMalformedLinesSkipped(t *testing.T) {
	malformed := `header
header
garbage line without colon
  eth0: 100 0 0 0 0 0 0 0 200 0 0 0 0 0 0 0
  bad0: notanumber 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0
`
	src, _ := newTestSource(t, map[string]string{"net/dev": malformed})

	counters, err := src.NetworkCounters()
	require.NoError(t, err)
	require.Len(t, counters, 1)
	assert.Equal(t, "eth0", counters[0].Name)
}

func TestSource_ProcessNames(t *testing.T) {
	src, _ := newTestSource(t, map[string]string{
		"123/comm":  "ninite.exe\n",
		"456/comm":  "bash\n",
		"self/comm": "ignored\n", // non-numeric entries are skipped
	})

	names, err := src.ProcessNames()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ninite.exe", "bash"}, names)
}

func TestSource_MissingFilesReturnErrors(t *testing.T) {
	src, _ := newTestSource(t, nil)

	_, err := src.CPUPercents()
	assert.Error(t, err)
	_, err = src.Memory()
	assert.Error(t, err)
	_, err = src.NetworkCounters()
	assert.Error(t, err)
}
