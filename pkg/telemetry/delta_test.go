// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

func TestDifferentialCounter_ResetTreatedAsIncrement(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	c := telemetry.NewDifferentialCounter(100, start)

	// Readings [100, 150, 140, 200] must yield deltas [50, 140, 60]: the
	// third reading is below the second, which means the counter reset and
	// the reading itself is the increment.
	readings := []uint64{150, 140, 200}
	wantRates := []float64{50, 140, 60}

	now := start
	for i, r := range readings {
		now = now.Add(time.Second)
		c.Observe(r, now)
		assert.Equal(t, wantRates[i], c.Rate(), "reading %d", r)
	}

	assert.Equal(t, uint64(100+50+140+60), c.Total())
}

func TestDifferentialCounter_ZeroElapsedRecordsReadingOnly(t *testing.T) {
	start := time.Now()
	c := telemetry.NewDifferentialCounter(1000, start)

	c.Observe(2000, start) // same timestamp, no elapsed time
	assert.Equal(t, float64(0), c.Rate())
	assert.Equal(t, uint64(1000), c.Total())

	// The 2000 reading was recorded as the new baseline, so the next
	// observation only counts growth beyond it.
	c.Observe(2500, start.Add(time.Second))
	assert.Equal(t, float64(500), c.Rate())
	assert.Equal(t, uint64(1500), c.Total())
}

func TestDifferentialCounter_RateScalesWithElapsed(t *testing.T) {
	start := time.Now()
	c := telemetry.NewDifferentialCounter(0, start)

	c.Observe(500, start.Add(100*time.Millisecond))
	assert.InDelta(t, 5000, c.Rate(), 1e-6)
	assert.Equal(t, uint64(500), c.Total())
}

func TestDifferentialCounter_TotalSaturates(t *testing.T) {
	start := time.Now()
	c := telemetry.NewDifferentialCounter(math.MaxUint64-10, start)

	c.Observe(math.MaxUint64, start.Add(time.Second))
	assert.Equal(t, uint64(math.MaxUint64), c.Total())

	// Reset after saturation stays pegged.
	c.Observe(100, start.Add(2*time.Second))
	assert.Equal(t, uint64(math.MaxUint64), c.Total())
	assert.Equal(t, float64(100), c.Rate())
}
