// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package poller_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hostwatch/internal/poller"
	"github.com/antimetal/hostwatch/pkg/catalog"
	"github.com/antimetal/hostwatch/pkg/installer"
	"github.com/antimetal/hostwatch/pkg/telemetry"
)

type fakeSource struct {
	processes []string
}

func (f *fakeSource) CPUPercents() ([]float64, error) { return []float64{10}, nil }

func (f *fakeSource) Memory() (telemetry.MemoryStats, error) {
	return telemetry.MemoryStats{Total: 100, Available: 50}, nil
}

func (f *fakeSource) Volumes() ([]telemetry.VolumeStats, error) { return nil, nil }

func (f *fakeSource) NetworkCounters() ([]telemetry.InterfaceCounters, error) { return nil, nil }

func (f *fakeSource) ProcessNames() ([]string, error) { return f.processes, nil }

type fakeDetector struct {
	runs    int
	install map[string]bool
	catalog *catalog.Catalog
}

func (f *fakeDetector) Run() {
	f.runs++
	for _, app := range f.catalog.Apps {
		app.Installed = f.install[app.Name]
	}
}

type fakePipeline struct {
	startErr error
	started  [][]string
	messages chan installer.Message
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{messages: make(chan installer.Message, 16)}
}

func (f *fakePipeline) Start(_ context.Context, selected []string) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, append([]string(nil), selected...))
	return nil
}

func (f *fakePipeline) Messages() <-chan installer.Message { return f.messages }

type fixture struct {
	poller   *poller.Poller
	source   *fakeSource
	detector *fakeDetector
	pipeline *fakePipeline
	catalog  *catalog.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := &catalog.Catalog{
		Apps: []*catalog.App{
			{Name: "Chrome", InstallerID: "chrome"},
			{Name: "VLC", InstallerID: "vlc"},
		},
	}
	source := &fakeSource{}
	sampler, err := telemetry.NewSampler(source, logr.Discard())
	require.NoError(t, err)
	gpu := telemetry.NewGpuProbe(logr.Discard())
	detector := &fakeDetector{catalog: cat, install: map[string]bool{}}
	pipeline := newFakePipeline()

	cfg := poller.Config{
		SystemInterval:       time.Second,
		NetworkInterval:      100 * time.Millisecond,
		DetectInterval:       2 * time.Second,
		InstallerProcessName: "ninite",
	}
	return &fixture{
		poller:   poller.New(logr.Discard(), cfg, cat, sampler, gpu, source, detector, pipeline),
		source:   source,
		detector: detector,
		pipeline: pipeline,
		catalog:  cat,
	}
}

func TestPoller_RefusesSecondStart(t *testing.T) {
	f := newFixture(t)
	f.poller.Select("Chrome")

	require.NoError(t, f.poller.StartInstall(context.Background()))
	assert.Equal(t, installer.StateDownloading, f.poller.State())

	err := f.poller.StartInstall(context.Background())
	assert.Error(t, err)
	assert.Len(t, f.pipeline.started, 1)
}

func TestPoller_StartErrorStaysIdle(t *testing.T) {
	f := newFixture(t)
	f.pipeline.startErr = installer.ErrNoAppsSelected

	err := f.poller.StartInstall(context.Background())
	assert.ErrorIs(t, err, installer.ErrNoAppsSelected)
	assert.Equal(t, installer.StateIdle, f.poller.State())
}

func TestPoller_AppliesMessagesInOrder(t *testing.T) {
	f := newFixture(t)
	f.poller.Select("Chrome")
	require.NoError(t, f.poller.StartInstall(context.Background()))

	f.pipeline.messages <- installer.Message{Kind: installer.KindStateChanged, State: installer.StateDownloading}
	f.pipeline.messages <- installer.Message{Kind: installer.KindProgress, Progress: 0.5}
	f.pipeline.messages <- installer.Message{Kind: installer.KindStateChanged, State: installer.StateInstalling}

	f.poller.Tick(time.Now())
	assert.Equal(t, installer.StateInstalling, f.poller.State())
	assert.Equal(t, 0.5, f.poller.Progress())
}

func TestPoller_IdleTransitionDetectsAndPrunes(t *testing.T) {
	f := newFixture(t)
	f.poller.Select("Chrome")
	f.poller.Select("VLC")

	base := time.Now()
	f.poller.Tick(base) // cadence detection fires once
	require.Equal(t, 1, f.detector.runs)
	require.NoError(t, f.poller.StartInstall(context.Background()))

	// Chrome lands on disk during the run.
	f.detector.install["Chrome"] = true
	f.pipeline.messages <- installer.Message{Kind: installer.KindStateChanged, State: installer.StateInstalling}
	f.pipeline.messages <- installer.Message{Kind: installer.KindStateChanged, State: installer.StateIdle}

	// Well inside the 2s detect cadence, so the extra run below comes
	// from the idle transition alone.
	f.poller.Tick(base.Add(100 * time.Millisecond))
	assert.Equal(t, 2, f.detector.runs)
	assert.Equal(t, []string{"VLC"}, f.poller.Selected())
	assert.Equal(t, installer.StateIdle, f.poller.State())
	assert.Equal(t, 0.0, f.poller.Progress())
}

func TestPoller_FailureRequiresReset(t *testing.T) {
	f := newFixture(t)
	f.poller.Select("Chrome")
	require.NoError(t, f.poller.StartInstall(context.Background()))

	f.pipeline.messages <- installer.Message{Kind: installer.KindFailed, Err: "download failed with status 404"}
	f.poller.Tick(time.Now())

	assert.Equal(t, installer.StateError, f.poller.State())
	assert.Equal(t, "download failed with status 404", f.poller.LastError())

	// Still refusing new runs until the explicit retry transition.
	assert.Error(t, f.poller.StartInstall(context.Background()))

	f.poller.Reset()
	assert.Equal(t, installer.StateIdle, f.poller.State())
	assert.Empty(t, f.poller.LastError())
	require.NoError(t, f.poller.StartInstall(context.Background()))
}

func TestPoller_DetectionPausedWhileInstallerRuns(t *testing.T) {
	f := newFixture(t)
	f.source.processes = []string{"explorer.exe", "Ninite.exe"}

	start := time.Now()
	f.poller.Tick(start)
	f.poller.Tick(start.Add(3 * time.Second))
	assert.Equal(t, 0, f.detector.runs)

	f.source.processes = nil
	f.poller.Tick(start.Add(6 * time.Second))
	assert.Equal(t, 1, f.detector.runs)
}

func TestPoller_SelectDeselect(t *testing.T) {
	f := newFixture(t)
	f.poller.Select("Chrome")
	f.poller.Select("Chrome")
	f.poller.Select("VLC")
	assert.Equal(t, []string{"Chrome", "VLC"}, f.poller.Selected())

	f.poller.Deselect("Chrome")
	assert.Equal(t, []string{"VLC"}, f.poller.Selected())
}

func TestPoller_ProcessListErrorDoesNotPauseDetection(t *testing.T) {
	f := newFixture(t)
	src := &erroringSource{fakeSource: f.source}
	// Rebuild with an erroring process list.
	sampler, err := telemetry.NewSampler(src, logr.Discard())
	require.NoError(t, err)
	p := poller.New(logr.Discard(), poller.Config{
		SystemInterval:       time.Second,
		NetworkInterval:      100 * time.Millisecond,
		DetectInterval:       2 * time.Second,
		InstallerProcessName: "ninite",
	}, f.catalog, sampler, telemetry.NewGpuProbe(logr.Discard()), src, f.detector, f.pipeline)

	p.Tick(time.Now())
	assert.Equal(t, 1, f.detector.runs)
}

type erroringSource struct {
	*fakeSource
}

func (e *erroringSource) ProcessNames() ([]string, error) {
	return nil, errors.New("proc unavailable")
}
