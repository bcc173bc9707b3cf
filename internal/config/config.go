// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package config loads the agent configuration from an optional YAML file
// plus HOSTWATCH_* environment overrides. Every field has a default, so a
// zero-config run works.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all agent configuration.
type Config struct {
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Detect    DetectConfig    `mapstructure:"detect"`
	Installer InstallerConfig `mapstructure:"installer"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TelemetryConfig holds sampling cadences and host filesystem roots.
type TelemetryConfig struct {
	// TickInterval is the smoothing frame cadence.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// SystemInterval is the CPU/memory/volume refresh cadence.
	SystemInterval time.Duration `mapstructure:"system_interval"`
	// NetworkInterval is the interface counter refresh cadence.
	NetworkInterval time.Duration `mapstructure:"network_interval"`
	// HostProcPath and HostSysPath locate the host /proc and /sys mounts.
	HostProcPath string `mapstructure:"host_proc_path"`
	HostSysPath  string `mapstructure:"host_sys_path"`
}

// DetectConfig holds the installation detector cadence.
type DetectConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// InstallerConfig holds the download pipeline parameters.
type InstallerConfig struct {
	// EndpointTemplate is the vendor URL with one %s slot for the
	// dash-joined installer ids.
	EndpointTemplate string `mapstructure:"endpoint_template"`
	// ArtifactPath is where the downloaded installer is written.
	ArtifactPath string `mapstructure:"artifact_path"`
	// ProcessName is the installer executable name used to pause
	// detection while an install is in flight.
	ProcessName string `mapstructure:"process_name"`
}

// PathsConfig holds auxiliary file locations.
type PathsConfig struct {
	CatalogOverlay string `mapstructure:"catalog_overlay"`
	SettingsFile   string `mapstructure:"settings_file"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	File      string `mapstructure:"file"`
	Verbosity int    `mapstructure:"verbosity"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			TickInterval:    50 * time.Millisecond,
			SystemInterval:  time.Second,
			NetworkInterval: 100 * time.Millisecond,
			HostProcPath:    "/proc",
			HostSysPath:     "/sys",
		},
		Detect: DetectConfig{
			Interval: 2 * time.Second,
		},
		Installer: InstallerConfig{
			EndpointTemplate: "https://ninite.com/%s/ninite.exe",
			ArtifactPath:     filepath.Join(os.TempDir(), "ninite.exe"),
			ProcessName:      "ninite",
		},
		Paths: PathsConfig{
			SettingsFile: "settings.json",
		},
		Logging: LoggingConfig{
			Verbosity: 0,
		},
	}
}

// Load reads the config file at path (optional; empty means defaults and
// environment only) and applies HOSTWATCH_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HOSTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registering defaults makes the keys visible to AutomaticEnv, so
	// environment overrides apply even without a config file.
	defaults := Default()
	v.SetDefault("telemetry.tick_interval", defaults.Telemetry.TickInterval)
	v.SetDefault("telemetry.system_interval", defaults.Telemetry.SystemInterval)
	v.SetDefault("telemetry.network_interval", defaults.Telemetry.NetworkInterval)
	v.SetDefault("telemetry.host_proc_path", defaults.Telemetry.HostProcPath)
	v.SetDefault("telemetry.host_sys_path", defaults.Telemetry.HostSysPath)
	v.SetDefault("detect.interval", defaults.Detect.Interval)
	v.SetDefault("installer.endpoint_template", defaults.Installer.EndpointTemplate)
	v.SetDefault("installer.artifact_path", defaults.Installer.ArtifactPath)
	v.SetDefault("installer.process_name", defaults.Installer.ProcessName)
	v.SetDefault("paths.catalog_overlay", defaults.Paths.CatalogOverlay)
	v.SetDefault("paths.settings_file", defaults.Paths.SettingsFile)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.verbosity", defaults.Logging.Verbosity)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c *Config) Validate() error {
	if c.Telemetry.TickInterval <= 0 ||
		c.Telemetry.SystemInterval <= 0 ||
		c.Telemetry.NetworkInterval <= 0 ||
		c.Detect.Interval <= 0 {
		return fmt.Errorf("all intervals must be positive")
	}
	if !strings.Contains(c.Installer.EndpointTemplate, "%s") {
		return fmt.Errorf("installer endpoint template needs a %%s slot")
	}
	if c.Installer.ArtifactPath == "" {
		return fmt.Errorf("installer artifact path must be set")
	}
	if !filepath.IsAbs(c.Telemetry.HostProcPath) {
		return fmt.Errorf("host proc path %s is not an absolute path", c.Telemetry.HostProcPath)
	}
	if !filepath.IsAbs(c.Telemetry.HostSysPath) {
		return fmt.Errorf("host sys path %s is not an absolute path", c.Telemetry.HostSysPath)
	}
	return nil
}
