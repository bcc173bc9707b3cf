// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package drm implements the generic GPU provider by querying the kernel's
// DRM class under /sys/class/drm. It covers AMD and Intel cards that expose
// vram and busy-percent attributes, and reports only the fields the card
// actually provides. Placeholder devices (virtual outputs, render nodes
// without a PCI device) are filtered out during initialization.
package drm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

// Provider reads GPU telemetry from one /sys/class/drm/cardN directory.
type Provider struct {
	logger   logr.Logger
	cardPath string // /sys/class/drm/cardN/device

	name          string
	driverVersion string
	busID         string
}

var _ telemetry.GpuProvider = (*Provider)(nil)

// Factory returns the generic slot for telemetry.NewGpuProbe.
func Factory(sysPath string) telemetry.GpuProviderFactory {
	return telemetry.GpuProviderFactory{
		Kind: telemetry.GpuProviderGeneric,
		New: func(logger logr.Logger) (telemetry.GpuProvider, error) {
			return NewProvider(logger, sysPath)
		},
	}
}

// NewProvider scans /sys/class/drm for the first card with a real PCI
// device behind it. sysPath is the host /sys mount.
func NewProvider(logger logr.Logger, sysPath string) (*Provider, error) {
	drmPath := filepath.Join(sysPath, "class", "drm")
	entries, err := os.ReadDir(drmPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", drmPath, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		// Only whole cards: card0, card1, ... (connectors look like
		// "card0-HDMI-A-1" and render nodes like "renderD128").
		if !strings.HasPrefix(name, "card") || strings.Contains(name, "-") {
			continue
		}

		devicePath := filepath.Join(drmPath, name, "device")
		// A card without a vendor id is a virtual or placeholder device
		// (vgem, virtio outputs), not hardware worth reporting.
		vendor, err := os.ReadFile(filepath.Join(devicePath, "vendor"))
		if err != nil {
			continue
		}

		p := &Provider{
			logger:   logger,
			cardPath: devicePath,
			name:     gpuName(devicePath, strings.TrimSpace(string(vendor))),
		}
		if target, err := os.Readlink(devicePath); err == nil {
			p.busID = filepath.Base(target)
		}
		if driver, err := os.Readlink(filepath.Join(devicePath, "driver")); err == nil {
			p.driverVersion = filepath.Base(driver)
		}

		logger.Info("initialized drm gpu", "card", name, "name", p.name, "bus", p.busID)
		return p, nil
	}

	return nil, fmt.Errorf("no drm card with a pci device found under %s", drmPath)
}

func (p *Provider) Snapshot() (telemetry.GpuSnapshot, error) {
	snap := telemetry.GpuSnapshot{
		Name:          p.name,
		DriverVersion: p.driverVersion,
		BusID:         p.busID,
	}

	if v, ok := p.readUint("mem_info_vram_total"); ok {
		snap.MemoryTotal = &v
	}
	if v, ok := p.readUint("mem_info_vram_used"); ok {
		snap.MemoryUsed = &v
	}
	if v, ok := p.readUint("gpu_busy_percent"); ok {
		u := float32(v)
		snap.Utilization = &u
	}
	if t, ok := p.readTemperature(); ok {
		snap.Temperature = &t
	}

	return snap, nil
}

func (p *Provider) Close() error {
	return nil
}

func (p *Provider) readUint(attr string) (uint64, bool) {
	data, err := os.ReadFile(filepath.Join(p.cardPath, attr))
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// readTemperature scans the card's hwmon directory for the edge sensor.
// hwmon reports millidegrees.
func (p *Provider) readTemperature() (uint32, bool) {
	hwmonRoot := filepath.Join(p.cardPath, "hwmon")
	entries, err := os.ReadDir(hwmonRoot)
	if err != nil {
		return 0, false
	}
	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(hwmonRoot, entry.Name(), "temp1_input"))
		if err != nil {
			continue
		}
		milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil || milli < 0 {
			continue
		}
		return uint32(milli / 1000), true
	}
	return 0, false
}

// gpuName maps the PCI vendor id to a displayable name. sysfs has no model
// string, so vendor plus device id is the best generic answer.
func gpuName(devicePath, vendor string) string {
	device := ""
	if data, err := os.ReadFile(filepath.Join(devicePath, "device")); err == nil {
		device = strings.TrimSpace(string(data))
	}

	var label string
	switch vendor {
	case "0x1002":
		label = "AMD GPU"
	case "0x8086":
		label = "Intel GPU"
	case "0x10de":
		label = "NVIDIA GPU"
	default:
		label = "GPU " + vendor
	}
	if device != "" {
		label += " [" + device + "]"
	}
	return label
}
