// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"math"
	"time"
)

// DifferentialCounter converts a monotonically increasing cumulative metric
// (e.g. interface byte counters) into a per-interval rate plus a running
// total. Counter resets, which happen when an interface is re-enumerated,
// are detected and treated as a fresh increment rather than a negative
// delta.
type DifferentialCounter struct {
	total       uint64
	lastReading uint64
	rate        float64
	lastTime    time.Time
}

// NewDifferentialCounter seeds a counter from its first cumulative reading.
// The seed reading produces no rate; it only establishes the baseline.
func NewDifferentialCounter(reading uint64, now time.Time) *DifferentialCounter {
	return &DifferentialCounter{
		total:       reading,
		lastReading: reading,
		lastTime:    now,
	}
}

// Observe records a new cumulative reading taken at now.
//
// If the reading is below the previous one the counter has reset and the
// reading itself is the increment. If no time has elapsed the reading is
// recorded but rate and total are untouched, avoiding division by zero.
func (d *DifferentialCounter) Observe(reading uint64, now time.Time) {
	elapsed := now.Sub(d.lastTime).Seconds()
	if elapsed > 0 {
		var delta uint64
		if reading < d.lastReading {
			delta = reading
		} else {
			delta = reading - d.lastReading
		}
		d.rate = float64(delta) / elapsed
		d.total = saturatingAdd(d.total, delta)
	}
	d.lastReading = reading
	d.lastTime = now
}

// Rate returns the most recent per-second rate. Always >= 0.
func (d *DifferentialCounter) Rate() float64 {
	return d.rate
}

// Total returns the running total of observed increments.
func (d *DifferentialCounter) Total() uint64 {
	return d.total
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
