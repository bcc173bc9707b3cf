// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// InterfaceRates is the derived view of one tracked physical interface.
type InterfaceRates struct {
	RxPerSec float64
	TxPerSec float64
	RxTotal  uint64
	TxTotal  uint64
}

type trackedInterface struct {
	rx *DifferentialCounter
	tx *DifferentialCounter
}

// Sampler polls a Source on fixed cadences and feeds the readings into
// SmoothedValue targets (CPU, memory, per-volume disk usage) and
// DifferentialCounters (per-interface network traffic). The owning poll
// loop calls RefreshSystem on a 1s cadence, RefreshNetwork on a 100ms
// cadence, and Tick every frame.
//
// Source errors never escalate: the affected reading is skipped and the
// previous targets stand.
type Sampler struct {
	logger logr.Logger
	source Source

	cpuUsage    *SmoothedValue            // percent, 0-100
	memoryUsage *SmoothedValue            // ratio, 0-1
	volumeUsage map[string]*SmoothedValue // ratio per drive mount point
	interfaces  map[string]*trackedInterface
}

// NewSampler builds a sampler and seeds the tracked interface set from the
// source's current counters, so the first RefreshNetwork produces no
// retroactive rate.
func NewSampler(source Source, logger logr.Logger) (*Sampler, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}

	s := &Sampler{
		logger:      logger.WithName("sampler"),
		source:      source,
		cpuUsage:    NewSmoothedValue(0),
		memoryUsage: NewSmoothedValue(0),
		volumeUsage: make(map[string]*SmoothedValue),
		interfaces:  make(map[string]*trackedInterface),
	}

	now := time.Now()
	counters, err := source.NetworkCounters()
	if err != nil {
		s.logger.Error(err, "failed to read initial network counters")
	}
	for _, c := range counters {
		if IsPhysicalInterface(c.Name) {
			s.interfaces[c.Name] = &trackedInterface{
				rx: NewDifferentialCounter(c.RxBytes, now),
				tx: NewDifferentialCounter(c.TxBytes, now),
			}
		}
	}

	if volumes, err := source.Volumes(); err == nil {
		for _, v := range volumes {
			if !isDriveMount(v.MountPoint) || v.Total == 0 {
				continue
			}
			usage := float32(v.Total-v.Available) / float32(v.Total)
			s.volumeUsage[v.MountPoint] = NewSmoothedValue(usage)
		}
	} else {
		s.logger.Error(err, "failed to read initial volume stats")
	}

	return s, nil
}

// Tick advances all smoothed values by dt seconds. Called every frame.
func (s *Sampler) Tick(dt float32) {
	s.cpuUsage.Update(dt)
	s.memoryUsage.Update(dt)
	for _, v := range s.volumeUsage {
		v.Update(dt)
	}
}

// RefreshSystem re-reads CPU, memory, and volume usage and retargets the
// smoothers. It also reconciles the tracked interface set: interfaces that
// disappeared are dropped, new physical interfaces are seeded from their
// first reading.
func (s *Sampler) RefreshSystem(now time.Time) {
	if percents, err := s.source.CPUPercents(); err != nil {
		s.logger.Error(err, "failed to read cpu utilization")
	} else if len(percents) > 0 {
		var sum float64
		for _, p := range percents {
			sum += p
		}
		mean := sum / float64(len(percents))
		s.cpuUsage.SetTarget(clamp(float32(mean), 0, 100))
	}

	if mem, err := s.source.Memory(); err != nil {
		s.logger.Error(err, "failed to read memory stats")
	} else if mem.Total > 0 {
		used := float64(mem.Total-mem.Available) / float64(mem.Total)
		s.memoryUsage.SetTarget(clamp(float32(used), 0, 1))
	}

	volumes, err := s.source.Volumes()
	if err != nil {
		s.logger.Error(err, "failed to read volume stats")
	} else {
		for _, v := range volumes {
			if !isDriveMount(v.MountPoint) {
				continue
			}
			if v.Total == 0 {
				s.logger.V(1).Info("volume reported zero total space", "mount", v.MountPoint)
				continue
			}
			usage := clamp(float32(v.Total-v.Available)/float32(v.Total), 0, 1)
			sv, ok := s.volumeUsage[v.MountPoint]
			if !ok {
				sv = NewSmoothedValue(usage)
				s.volumeUsage[v.MountPoint] = sv
			}
			sv.SetTarget(usage)
		}
	}

	s.reconcileInterfaces(now)
}

// RefreshNetwork re-reads the cumulative byte counters of all tracked
// interfaces and routes them through the differential counters.
func (s *Sampler) RefreshNetwork(now time.Time) {
	counters, err := s.source.NetworkCounters()
	if err != nil {
		s.logger.Error(err, "failed to read network counters")
		return
	}

	for _, c := range counters {
		tracked, ok := s.interfaces[c.Name]
		if !ok {
			continue
		}
		tracked.rx.Observe(c.RxBytes, now)
		tracked.tx.Observe(c.TxBytes, now)
	}
}

func (s *Sampler) reconcileInterfaces(now time.Time) {
	counters, err := s.source.NetworkCounters()
	if err != nil {
		s.logger.Error(err, "failed to enumerate network interfaces")
		return
	}

	present := make(map[string]InterfaceCounters, len(counters))
	for _, c := range counters {
		if IsPhysicalInterface(c.Name) {
			present[c.Name] = c
		}
	}

	for name := range s.interfaces {
		if _, ok := present[name]; !ok {
			s.logger.Info("interface disappeared, dropping from tracking", "interface", name)
			delete(s.interfaces, name)
		}
	}

	for name, c := range present {
		if _, ok := s.interfaces[name]; !ok {
			s.logger.Info("tracking new physical interface", "interface", name)
			s.interfaces[name] = &trackedInterface{
				rx: NewDifferentialCounter(c.RxBytes, now),
				tx: NewDifferentialCounter(c.TxBytes, now),
			}
		}
	}
}

// CPUUsage returns the smoothed mean CPU utilization in percent.
func (s *Sampler) CPUUsage() float32 {
	return s.cpuUsage.Current()
}

// MemoryUsage returns the smoothed used-memory ratio in [0,1].
func (s *Sampler) MemoryUsage() float32 {
	return s.memoryUsage.Current()
}

// VolumeUsage returns the smoothed usage ratio per tracked drive.
func (s *Sampler) VolumeUsage() map[string]float32 {
	out := make(map[string]float32, len(s.volumeUsage))
	for mount, v := range s.volumeUsage {
		out[mount] = v.Current()
	}
	return out
}

// InterfaceRates returns the current rates and running totals of all
// tracked physical interfaces.
func (s *Sampler) InterfaceRates() map[string]InterfaceRates {
	out := make(map[string]InterfaceRates, len(s.interfaces))
	for name, t := range s.interfaces {
		out[name] = InterfaceRates{
			RxPerSec: t.rx.Rate(),
			TxPerSec: t.tx.Rate(),
			RxTotal:  t.rx.Total(),
			TxTotal:  t.tx.Total(),
		}
	}
	return out
}

// IsPhysicalInterface reports whether an interface name looks like a real
// adapter rather than a virtual or loopback device. Matches the naming of
// both Windows friendly names ("Ethernet", "Wi-Fi") and unix device names
// ("eth0", "enp3s0", "wlan0"). Virtual adapters like "vEthernet (WSL)"
// deliberately fail every prefix test.
func IsPhysicalInterface(name string) bool {
	n := strings.ToLower(name)
	// Hyper-V/WSL switches surface as "vEthernet (...)" and would pass the
	// substring test below.
	if strings.HasPrefix(n, "veth") {
		return false
	}
	return strings.Contains(n, "ethernet") ||
		strings.HasPrefix(n, "eth") ||
		strings.HasPrefix(n, "en") ||
		strings.HasPrefix(n, "wlan") ||
		strings.HasPrefix(n, "wi-fi") ||
		strings.Contains(n, "wireless")
}

// isDriveMount reports whether a mount point follows the two-character
// drive-letter convention ("C:") that identifies fixed local volumes.
func isDriveMount(mount string) bool {
	return len(mount) == 2 && strings.HasSuffix(mount, ":")
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
