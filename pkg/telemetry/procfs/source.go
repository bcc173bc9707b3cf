// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package procfs implements telemetry.Source against the Linux proc and sys
// filesystems. It is the production telemetry provider; tests and other
// platforms substitute fakes behind the telemetry.Source interface.
package procfs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/sys/unix"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

// Config locates the host proc and sys filesystems. The defaults are
// correct outside containers; containerized runs remap them.
type Config struct {
	HostProcPath string
	HostSysPath  string
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.HostProcPath == "" {
		c.HostProcPath = "/proc"
	}
	if c.HostSysPath == "" {
		c.HostSysPath = "/sys"
	}
}

// Validate ensures the configured paths are absolute.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.HostProcPath) {
		return fmt.Errorf("HostProcPath must be an absolute path, got: %q", c.HostProcPath)
	}
	if !filepath.IsAbs(c.HostSysPath) {
		return fmt.Errorf("HostSysPath must be an absolute path, got: %q", c.HostSysPath)
	}
	return nil
}

// cpuTicks are the jiffy counters of one /proc/stat cpu line.
type cpuTicks struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (t cpuTicks) total() uint64 {
	return t.user + t.nice + t.system + t.idle + t.iowait + t.irq + t.softirq + t.steal
}

func (t cpuTicks) busy() uint64 {
	return t.total() - t.idle - t.iowait
}

// Source reads CPU, memory, volume, network, and process data from procfs.
// CPU utilization is derived from successive /proc/stat readings, so the
// first CPUPercents call reports zero for every core.
type Source struct {
	logger logr.Logger
	config Config

	statPath    string
	meminfoPath string
	mountsPath  string
	netDevPath  string

	mu      sync.Mutex
	prevCPU map[string]cpuTicks
}

var _ telemetry.Source = (*Source)(nil)

func NewSource(logger logr.Logger, config Config) (*Source, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Source{
		logger:      logger.WithName("procfs"),
		config:      config,
		statPath:    filepath.Join(config.HostProcPath, "stat"),
		meminfoPath: filepath.Join(config.HostProcPath, "meminfo"),
		mountsPath:  filepath.Join(config.HostProcPath, "mounts"),
		netDevPath:  filepath.Join(config.HostProcPath, "net", "dev"),
		prevCPU:     make(map[string]cpuTicks),
	}, nil
}

// CPUPercents returns per-logical-core utilization in percent, computed
// from the jiffy deltas since the previous call.
func (s *Source) CPUPercents() ([]float64, error) {
	current, err := s.readCPUTicks()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	percents := make([]float64, 0, len(current))
	for _, core := range sortedCores(current) {
		ticks := current[core]
		prev, ok := s.prevCPU[core]
		if !ok || ticks.total() <= prev.total() {
			percents = append(percents, 0)
			continue
		}
		totalDelta := ticks.total() - prev.total()
		busyDelta := ticks.busy() - prev.busy()
		percents = append(percents, 100*float64(busyDelta)/float64(totalDelta))
	}
	s.prevCPU = current

	return percents, nil
}

// readCPUTicks parses the per-core "cpuN" lines of /proc/stat. The
// aggregate "cpu" line is skipped; the sampler averages cores itself.
func (s *Source) readCPUTicks() (map[string]cpuTicks, error) {
	file, err := os.Open(s.statPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.statPath, err)
	}
	defer file.Close()

	ticks := make(map[string]cpuTicks)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 || !strings.HasPrefix(fields[0], "cpu") || fields[0] == "cpu" {
			continue
		}
		var t cpuTicks
		vals := []*uint64{&t.user, &t.nice, &t.system, &t.idle, &t.iowait, &t.irq, &t.softirq, &t.steal}
		for i, v := range vals {
			if i+1 < len(fields) {
				*v, _ = strconv.ParseUint(fields[i+1], 10, 64)
			}
		}
		ticks[fields[0]] = t
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.statPath, err)
	}
	return ticks, nil
}

// Memory reads MemTotal and MemAvailable from /proc/meminfo. Values in the
// file are kB; the returned stats are bytes.
func (s *Source) Memory() (telemetry.MemoryStats, error) {
	file, err := os.Open(s.meminfoPath)
	if err != nil {
		return telemetry.MemoryStats{}, fmt.Errorf("failed to open %s: %w", s.meminfoPath, err)
	}
	defer file.Close()

	var stats telemetry.MemoryStats
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			stats.Total = value * 1024
		case "MemAvailable:":
			stats.Available = value * 1024
		}
	}
	if err := scanner.Err(); err != nil {
		return telemetry.MemoryStats{}, fmt.Errorf("error reading %s: %w", s.meminfoPath, err)
	}
	return stats, nil
}

// Volumes statfs's every /dev-backed mount listed in /proc/mounts.
// Pseudo-filesystems (proc, sysfs, tmpfs, overlays) have no device node
// and are skipped. Mounts that fail statfs are logged and skipped.
func (s *Source) Volumes() ([]telemetry.VolumeStats, error) {
	file, err := os.Open(s.mountsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.mountsPath, err)
	}
	defer file.Close()

	var volumes []telemetry.VolumeStats
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}
		mount := unescapeMount(fields[1])
		if seen[mount] {
			continue
		}
		seen[mount] = true

		var st unix.Statfs_t
		if err := unix.Statfs(mount, &st); err != nil {
			s.logger.V(1).Info("statfs failed, skipping volume", "mount", mount, "error", err.Error())
			continue
		}
		bsize := uint64(st.Bsize)
		volumes = append(volumes, telemetry.VolumeStats{
			MountPoint: mount,
			Total:      st.Blocks * bsize,
			Available:  st.Bavail * bsize,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.mountsPath, err)
	}
	return volumes, nil
}

// NetworkCounters parses the cumulative rx/tx byte counters of every
// interface in /proc/net/dev. Malformed lines are skipped.
//
// /proc/net/dev format:
//
//	Inter-|   Receive                                                |  Transmit
//	 face |bytes    packets errs drop fifo frame compressed multicast|bytes ...
//	  eth0: 9876543   98765    0    0    0     0          0         0 9876543 ...
func (s *Source) NetworkCounters() ([]telemetry.InterfaceCounters, error) {
	file, err := os.Open(s.netDevPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.netDevPath, err)
	}
	defer file.Close()

	var counters []telemetry.InterfaceCounters
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum <= 2 {
			continue // header lines
		}
		parts := strings.Split(scanner.Text(), ":")
		if len(parts) != 2 {
			continue
		}
		fields := strings.Fields(parts[1])
		if len(fields) < 16 {
			continue
		}
		rx, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		tx, err := strconv.ParseUint(fields[8], 10, 64)
		if err != nil {
			continue
		}
		counters = append(counters, telemetry.InterfaceCounters{
			Name:    strings.TrimSpace(parts[0]),
			RxBytes: rx,
			TxBytes: tx,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.netDevPath, err)
	}
	return counters, nil
}

// ProcessNames reads /proc/[pid]/comm for every numeric proc entry.
// Processes that exit mid-scan are skipped.
func (s *Source) ProcessNames() ([]string, error) {
	entries, err := os.ReadDir(s.config.HostProcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.config.HostProcPath, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		comm, err := os.ReadFile(filepath.Join(s.config.HostProcPath, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		names = append(names, strings.TrimSpace(string(comm)))
	}
	return names, nil
}

func sortedCores(ticks map[string]cpuTicks) []string {
	cores := make([]string, 0, len(ticks))
	for core := range ticks {
		cores = append(cores, core)
	}
	// "cpu10" must sort after "cpu9", so order by the numeric suffix.
	for i := 1; i < len(cores); i++ {
		for j := i; j > 0 && coreIndex(cores[j]) < coreIndex(cores[j-1]); j-- {
			cores[j], cores[j-1] = cores[j-1], cores[j]
		}
	}
	return cores
}

func coreIndex(core string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(core, "cpu"))
	if err != nil {
		return -1
	}
	return n
}

// unescapeMount decodes the octal escapes /proc/mounts uses for spaces and
// other special characters in mount points.
func unescapeMount(mount string) string {
	if !strings.Contains(mount, "\\") {
		return mount
	}
	var b strings.Builder
	for i := 0; i < len(mount); i++ {
		if mount[i] == '\\' && i+3 < len(mount) {
			if v, err := strconv.ParseUint(mount[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(mount[i])
	}
	return b.String()
}
