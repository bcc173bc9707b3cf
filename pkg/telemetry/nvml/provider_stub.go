// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !linux || !cgo

package nvml

import (
	"fmt"
	"runtime"

	"github.com/go-logr/logr"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

// Factory returns a vendor slot that always falls through: the NVML
// bindings need cgo and a Linux host.
func Factory() telemetry.GpuProviderFactory {
	return telemetry.GpuProviderFactory{
		Kind: telemetry.GpuProviderVendor,
		New: func(logr.Logger) (telemetry.GpuProvider, error) {
			return nil, fmt.Errorf("nvml provider not supported on %s without cgo", runtime.GOOS)
		},
	}
}
