// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

// MemoryStats is a point-in-time reading of system memory.
type MemoryStats struct {
	Total     uint64 // Total usable RAM in bytes
	Available uint64 // Memory available for starting new applications
}

// VolumeStats is a point-in-time reading of a mounted volume.
type VolumeStats struct {
	MountPoint string
	Total      uint64 // Total capacity in bytes
	Available  uint64 // Free space in bytes
}

// InterfaceCounters holds the cumulative byte counters of one network
// interface. Values are monotonic since interface initialization, modulo
// counter resets on re-enumeration.
type InterfaceCounters struct {
	Name    string
	RxBytes uint64
	TxBytes uint64
}

// Source is the read-only OS/hardware query surface the sampler polls.
// Implementations must be cheap to call at a 100ms cadence for
// NetworkCounters and a 1s cadence for the rest. The production
// implementation lives in the procfs package; tests substitute
// deterministic fakes.
type Source interface {
	// CPUPercents returns per-logical-core utilization in percent (0-100).
	CPUPercents() ([]float64, error)

	Memory() (MemoryStats, error)

	Volumes() ([]VolumeStats, error)

	NetworkCounters() ([]InterfaceCounters, error)

	// ProcessNames returns the names of all running processes. Used to
	// detect whether the spawned installer is still alive.
	ProcessNames() ([]string, error)
}

// GpuSnapshot holds the most recent readings from the active GPU provider.
// Pointer fields are nil when the provider does not support the
// measurement, so callers can distinguish "not measured" from "measured as
// zero".
type GpuSnapshot struct {
	Name          string
	MemoryTotal   *uint64
	MemoryUsed    *uint64
	Utilization   *float32 // percent, 0-100
	Temperature   *uint32  // degrees Celsius
	DriverVersion string
	BusID         string
}

// GpuProvider is a single telemetry backend for one GPU.
type GpuProvider interface {
	// Snapshot refreshes and returns the fields this provider supports.
	Snapshot() (GpuSnapshot, error)

	Close() error
}
