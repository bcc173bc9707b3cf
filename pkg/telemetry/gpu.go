// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"github.com/go-logr/logr"
)

// GpuProviderKind identifies which backend a probe ended up with.
type GpuProviderKind string

const (
	GpuProviderVendor      GpuProviderKind = "vendor"
	GpuProviderGeneric     GpuProviderKind = "generic"
	GpuProviderUnavailable GpuProviderKind = "unavailable"
)

// GpuProviderFactory attempts to initialize one GPU backend. A non-nil
// error means the backend cannot run on this host and the probe should
// fall through to the next candidate.
type GpuProviderFactory struct {
	Kind GpuProviderKind
	New  func(logger logr.Logger) (GpuProvider, error)
}

// GpuProbe selects a GPU telemetry backend at construction time and
// refreshes a GpuSnapshot from it on the 1s cadence. Selection policy:
// vendor provider first, generic provider as fallback, Unavailable when
// neither initializes. Fields the active provider does not support stay
// nil in the snapshot.
type GpuProbe struct {
	logger   logr.Logger
	provider GpuProvider
	kind     GpuProviderKind
	snapshot GpuSnapshot

	memoryUsage *SmoothedValue // VRAM used ratio, 0-1
	utilization *SmoothedValue // GPU busy ratio, 0-1
}

// NewGpuProbe tries each factory in order and keeps the first one that
// initializes. Initialization failures are expected on hosts without the
// matching hardware and are logged at V(1).
func NewGpuProbe(logger logr.Logger, factories ...GpuProviderFactory) *GpuProbe {
	p := &GpuProbe{
		logger:      logger.WithName("gpu"),
		kind:        GpuProviderUnavailable,
		memoryUsage: NewSmoothedValue(0),
		utilization: NewSmoothedValue(0),
	}

	for _, f := range factories {
		provider, err := f.New(p.logger.WithName(string(f.Kind)))
		if err != nil {
			p.logger.V(1).Info("gpu provider unavailable", "kind", f.Kind, "reason", err.Error())
			continue
		}
		p.provider = provider
		p.kind = f.Kind
		if snap, err := provider.Snapshot(); err == nil {
			p.snapshot = snap
		}
		p.logger.Info("selected gpu provider", "kind", f.Kind, "name", p.snapshot.Name,
			"driver", p.snapshot.DriverVersion)
		return p
	}

	p.logger.Info("no gpu telemetry source available")
	return p
}

// Kind returns which backend the probe selected.
func (p *GpuProbe) Kind() GpuProviderKind {
	return p.kind
}

// Available reports whether any GPU backend initialized.
func (p *GpuProbe) Available() bool {
	return p.kind != GpuProviderUnavailable
}

// Refresh re-reads the fields the active provider supports. Called on the
// 1s cadence. A read failure keeps the previous snapshot.
func (p *GpuProbe) Refresh() {
	if p.provider == nil {
		return
	}

	snap, err := p.provider.Snapshot()
	if err != nil {
		p.logger.Error(err, "failed to refresh gpu snapshot")
		return
	}
	p.snapshot = snap

	if snap.MemoryTotal != nil && snap.MemoryUsed != nil && *snap.MemoryTotal > 0 {
		ratio := float32(*snap.MemoryUsed) / float32(*snap.MemoryTotal)
		p.memoryUsage.SetTarget(clamp(ratio, 0, 1))
	}
	if snap.Utilization != nil {
		p.utilization.SetTarget(clamp(*snap.Utilization/100, 0, 1))
	}
}

// Tick advances the probe's smoothed display values by dt seconds.
func (p *GpuProbe) Tick(dt float32) {
	p.memoryUsage.Update(dt)
	p.utilization.Update(dt)
}

// Snapshot returns the most recent provider readings.
func (p *GpuProbe) Snapshot() GpuSnapshot {
	return p.snapshot
}

// MemoryUsage returns the smoothed VRAM usage ratio in [0,1].
func (p *GpuProbe) MemoryUsage() float32 {
	return p.memoryUsage.Current()
}

// Utilization returns the smoothed GPU busy ratio in [0,1].
func (p *GpuProbe) Utilization() float32 {
	return p.utilization.Current()
}

// Close releases the active provider, if any.
func (p *GpuProbe) Close() error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Close()
}
