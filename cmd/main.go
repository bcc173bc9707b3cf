// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/hostwatch/internal/config"
	"github.com/antimetal/hostwatch/internal/poller"
	"github.com/antimetal/hostwatch/internal/settings"
	"github.com/antimetal/hostwatch/pkg/catalog"
	"github.com/antimetal/hostwatch/pkg/detect"
	"github.com/antimetal/hostwatch/pkg/installer"
	"github.com/antimetal/hostwatch/pkg/telemetry"
	"github.com/antimetal/hostwatch/pkg/telemetry/drm"
	"github.com/antimetal/hostwatch/pkg/telemetry/nvml"
	"github.com/antimetal/hostwatch/pkg/telemetry/procfs"
)

const statusInterval = 30 * time.Second

var (
	setupLog logr.Logger

	// CLI Options (alphabetical order)
	configPath  string
	installApps string
	verbosity   int
)

func init() {
	flag.StringVar(&configPath, "config", "",
		"Path to the agent config file. Empty runs with built-in defaults.")
	flag.StringVar(&installApps, "install", "",
		"Comma-separated catalog app names to install once at startup.")
	flag.IntVar(&verbosity, "v", 0,
		"Log verbosity. 0 is operational, 1 verbose, 2 per-sample.")
	flag.Parse()
}

func newLogger(cfg config.LoggingConfig) (logr.Logger, func(), error) {
	level := zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	if verbosity == 0 && cfg.Verbosity != 0 {
		level = zap.NewAtomicLevelAt(zapcore.Level(-cfg.Verbosity))
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	zapCfg.OutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}
	zl, err := zapCfg.Build()
	if err != nil {
		return logr.Logger{}, nil, err
	}
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }, nil
}

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		// The logger is configured from the config, so this one failure
		// goes to stderr directly.
		os.Stderr.WriteString("hostwatch: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, syncLogs, err := newLogger(cfg.Logging)
	if err != nil {
		os.Stderr.WriteString("hostwatch: failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer syncLogs()
	setupLog = logger.WithName("setup")

	if err := run(cfg, logger); err != nil {
		setupLog.Error(err, "agent failed")
		syncLogs()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logr.Logger) error {
	cat, err := catalog.Load(cfg.Paths.CatalogOverlay)
	if err != nil {
		return err
	}
	setupLog.Info("catalog loaded",
		"apps", len(cat.Apps), "overlay", cfg.Paths.CatalogOverlay)

	store := settings.NewStore(logger, cfg.Paths.SettingsFile)
	if err := store.Watch(); err != nil {
		setupLog.V(1).Info("settings reload disabled", "error", err)
	}
	defer store.Close()
	if name := store.Get().CustomUsername; name != "" {
		setupLog.Info("using custom username", "username", name)
	}

	source, err := procfs.NewSource(logger.WithName("procfs"), procfs.Config{
		HostProcPath: cfg.Telemetry.HostProcPath,
		HostSysPath:  cfg.Telemetry.HostSysPath,
	})
	if err != nil {
		return err
	}

	sampler, err := telemetry.NewSampler(source, logger.WithName("telemetry"))
	if err != nil {
		return err
	}

	gpu := telemetry.NewGpuProbe(logger.WithName("gpu"),
		nvml.Factory(),
		drm.Factory(cfg.Telemetry.HostSysPath),
	)
	defer gpu.Close()
	setupLog.Info("gpu probe initialized",
		"provider", gpu.Kind(), "gpu", gpu.Snapshot().Name)

	detector := detect.NewDetector(logger.WithName("detect"), cat,
		detect.NewOSProbeSource(), detect.OSPathResolver{})

	pipeline := installer.NewPipeline(logger.WithName("installer"), cat, installer.Config{
		EndpointTemplate: cfg.Installer.EndpointTemplate,
		ArtifactPath:     cfg.Installer.ArtifactPath,
	})

	loop := poller.New(logger.WithName("poller"), poller.Config{
		SystemInterval:       cfg.Telemetry.SystemInterval,
		NetworkInterval:      cfg.Telemetry.NetworkInterval,
		DetectInterval:       cfg.Detect.Interval,
		InstallerProcessName: cfg.Installer.ProcessName,
	}, cat, sampler, gpu, source, detector, pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed detection before any install decision.
	loop.Tick(time.Now())

	if installApps != "" {
		for _, name := range strings.Split(installApps, ",") {
			loop.Select(strings.TrimSpace(name))
		}
		if err := loop.StartInstall(ctx); err != nil {
			return err
		}
	}

	setupLog.Info("agent started", "tick", cfg.Telemetry.TickInterval)

	ticker := time.NewTicker(cfg.Telemetry.TickInterval)
	defer ticker.Stop()
	lastStatus := time.Now()

	for {
		select {
		case <-ctx.Done():
			setupLog.Info("shutting down")
			return nil
		case now := <-ticker.C:
			loop.Tick(now)
			if now.Sub(lastStatus) >= statusInterval {
				lastStatus = now
				logStatus(logger, sampler, gpu, loop)
			}
		}
	}
}

func logStatus(logger logr.Logger, sampler *telemetry.Sampler, gpu *telemetry.GpuProbe, loop *poller.Poller) {
	kv := []any{
		"cpu", sampler.CPUUsage(),
		"memory", sampler.MemoryUsage(),
		"installer", loop.State().String(),
	}
	if gpu.Available() {
		kv = append(kv, "gpu_util", gpu.Utilization())
	}
	logger.V(1).Info("status", kv...)
}
