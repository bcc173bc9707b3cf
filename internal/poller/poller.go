// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package poller owns the synchronous scheduling context: it advances the
// telemetry smoothers every tick, refreshes samplers and the detector on
// their cadences, drains the installer message channel, and tracks the
// pending selection set. All shared state has exactly one writer, so the
// poller needs no locks.
package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/hostwatch/pkg/catalog"
	"github.com/antimetal/hostwatch/pkg/installer"
	"github.com/antimetal/hostwatch/pkg/telemetry"
)

// Detector is the installation detector surface the poller drives.
type Detector interface {
	Run()
}

// Pipeline is the installer surface the poller drives.
type Pipeline interface {
	Start(ctx context.Context, selected []string) error
	Messages() <-chan installer.Message
}

// Config holds the poll cadences and the installer process guard name.
type Config struct {
	SystemInterval  time.Duration
	NetworkInterval time.Duration
	DetectInterval  time.Duration
	// InstallerProcessName pauses detection while a process whose name
	// contains it (case-insensitive) is alive: probing mid-install sees
	// half-written trees.
	InstallerProcessName string
}

// Poller drives one poll cycle per Tick call. It is not goroutine-safe;
// all calls must come from the same loop.
type Poller struct {
	logger   logr.Logger
	config   Config
	catalog  *catalog.Catalog
	sampler  *telemetry.Sampler
	gpu      *telemetry.GpuProbe
	source   telemetry.Source
	detector Detector
	pipeline Pipeline

	state    installer.State
	progress float64
	lastErr  string
	selected []string

	lastTick    time.Time
	lastSystem  time.Time
	lastNetwork time.Time
	lastDetect  time.Time
}

func New(logger logr.Logger, config Config, cat *catalog.Catalog,
	sampler *telemetry.Sampler, gpu *telemetry.GpuProbe, source telemetry.Source,
	detector Detector, pipeline Pipeline,
) *Poller {
	return &Poller{
		logger:   logger,
		config:   config,
		catalog:  cat,
		sampler:  sampler,
		gpu:      gpu,
		source:   source,
		detector: detector,
		pipeline: pipeline,
		state:    installer.StateIdle,
	}
}

// Tick runs one poll cycle at the given time: smoother advance, cadence
// refreshes, channel drain, detection.
func (p *Poller) Tick(now time.Time) {
	if !p.lastTick.IsZero() {
		dt := float32(now.Sub(p.lastTick).Seconds())
		p.sampler.Tick(dt)
		p.gpu.Tick(dt)
	}
	p.lastTick = now

	if now.Sub(p.lastSystem) >= p.config.SystemInterval {
		p.lastSystem = now
		p.sampler.RefreshSystem(now)
		p.gpu.Refresh()
	}
	if now.Sub(p.lastNetwork) >= p.config.NetworkInterval {
		p.lastNetwork = now
		p.sampler.RefreshNetwork(now)
	}

	p.drain()

	if now.Sub(p.lastDetect) >= p.config.DetectInterval {
		p.lastDetect = now
		if p.installerProcessRunning() {
			p.logger.V(1).Info("installer process running, skipping detection")
		} else {
			p.detector.Run()
		}
	}
}

// drain applies pending pipeline messages in order until the channel is
// empty. State ordering is exact: a transition to idle re-runs detection
// immediately and prunes the selection set.
func (p *Poller) drain() {
	for {
		select {
		case msg := <-p.pipeline.Messages():
			p.apply(msg)
		default:
			return
		}
	}
}

func (p *Poller) apply(msg installer.Message) {
	switch msg.Kind {
	case installer.KindProgress:
		p.progress = msg.Progress
	case installer.KindFailed:
		p.state = installer.StateError
		p.lastErr = msg.Err
	case installer.KindStateChanged:
		prev := p.state
		p.state = msg.State
		if msg.State == installer.StateIdle && prev != installer.StateIdle {
			p.progress = 0
			// Completion: detect right away instead of waiting for the
			// next cadence, then drop now-installed apps from the
			// selection.
			p.detector.Run()
			p.pruneSelection()
		}
	}
}

func (p *Poller) pruneSelection() {
	kept := p.selected[:0]
	for _, name := range p.selected {
		if app := p.catalog.Lookup(name); app != nil && app.Installed {
			p.logger.Info("app installed, removing from selection", "app", name)
			continue
		}
		kept = append(kept, name)
	}
	p.selected = kept
}

func (p *Poller) installerProcessRunning() bool {
	if p.config.InstallerProcessName == "" {
		return false
	}
	names, err := p.source.ProcessNames()
	if err != nil {
		p.logger.V(2).Info("failed to list processes", "error", err)
		return false
	}
	needle := strings.ToLower(p.config.InstallerProcessName)
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	return false
}

// Select adds an app name to the pending selection set.
func (p *Poller) Select(name string) {
	for _, s := range p.selected {
		if s == name {
			return
		}
	}
	p.selected = append(p.selected, name)
}

// Deselect removes an app name from the pending selection set.
func (p *Poller) Deselect(name string) {
	for i, s := range p.selected {
		if s == name {
			p.selected = append(p.selected[:i], p.selected[i+1:]...)
			return
		}
	}
}

// Selected returns the pending selection in insertion order.
func (p *Poller) Selected() []string {
	return append([]string(nil), p.selected...)
}

// StartInstall launches a pipeline run for the current selection. It
// refuses while a previous run has not reported back to idle; the
// pipeline itself does not enforce single-run.
func (p *Poller) StartInstall(ctx context.Context) error {
	if p.state != installer.StateIdle {
		return fmt.Errorf("installer is %s, not idle", p.state)
	}
	if err := p.pipeline.Start(ctx, p.selected); err != nil {
		return err
	}
	// The run's first message confirms this, but marking it now closes
	// the window where a second start could slip in.
	p.state = installer.StateDownloading
	p.progress = 0
	return nil
}

// Reset returns an errored installer to idle so the user can retry. It
// is the only way out of the error state.
func (p *Poller) Reset() {
	if p.state == installer.StateError {
		p.state = installer.StateIdle
		p.lastErr = ""
	}
}

// State returns the installer state as last observed from the channel.
func (p *Poller) State() installer.State {
	return p.state
}

// Progress returns the current download fraction in [0, 1].
func (p *Poller) Progress() float64 {
	return p.progress
}

// LastError returns the failure message for the error state.
func (p *Poller) LastError() string {
	return p.lastErr
}
