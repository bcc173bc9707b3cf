// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build linux && cgo

// Package nvml implements the vendor GPU provider on top of the NVIDIA
// Management Library. Initialization fails cleanly on hosts without the
// NVIDIA driver, letting the probe fall back to the generic provider.
package nvml

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/go-logr/logr"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

// Provider reads utilization, VRAM, and temperature for GPU index 0.
// Multi-GPU enumeration is out of scope; the first device is the one the
// dashboard shows.
type Provider struct {
	logger logr.Logger
	device nvml.Device

	name          string
	driverVersion string
	busID         string
}

var _ telemetry.GpuProvider = (*Provider)(nil)

// Factory returns the vendor slot for telemetry.NewGpuProbe.
func Factory() telemetry.GpuProviderFactory {
	return telemetry.GpuProviderFactory{
		Kind: telemetry.GpuProviderVendor,
		New: func(logger logr.Logger) (telemetry.GpuProvider, error) {
			return NewProvider(logger)
		},
	}
}

func NewProvider(logger logr.Logger) (*Provider, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml init failed: %s", nvml.ErrorString(ret))
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		_ = nvml.Shutdown()
		return nil, fmt.Errorf("no nvidia device at index 0: %s", nvml.ErrorString(ret))
	}

	p := &Provider{
		logger: logger,
		device: device,
		name:   "Unknown GPU",
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		p.name = name
	}
	if version, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		p.driverVersion = version
	}
	if pci, ret := device.GetPciInfo(); ret == nvml.SUCCESS {
		p.busID = fmt.Sprintf("%04x:%02x:%02x.0", pci.Domain, pci.Bus, pci.Device)
	}

	logger.Info("initialized nvidia gpu", "name", p.name, "driver", p.driverVersion)
	return p, nil
}

func (p *Provider) Snapshot() (telemetry.GpuSnapshot, error) {
	snap := telemetry.GpuSnapshot{
		Name:          p.name,
		DriverVersion: p.driverVersion,
		BusID:         p.busID,
	}

	if mem, ret := p.device.GetMemoryInfo(); ret == nvml.SUCCESS {
		total, used := mem.Total, mem.Used
		snap.MemoryTotal = &total
		snap.MemoryUsed = &used
	}
	if util, ret := p.device.GetUtilizationRates(); ret == nvml.SUCCESS {
		u := float32(util.Gpu)
		snap.Utilization = &u
	}
	if temp, ret := p.device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		c := temp
		snap.Temperature = &c
	}

	return snap, nil
}

func (p *Provider) Close() error {
	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return fmt.Errorf("nvml shutdown failed: %s", nvml.ErrorString(ret))
	}
	return nil
}
