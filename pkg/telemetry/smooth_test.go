// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hostwatch/pkg/telemetry"
)

func TestSmoothedValue_ConvergesWithoutOvershoot(t *testing.T) {
	tests := []struct {
		name   string
		start  float32
		target float32
		dt     float32
	}{
		{name: "rising", start: 0, target: 100, dt: 0.016},
		{name: "falling", start: 100, target: 0, dt: 0.016},
		{name: "small step", start: 0.4, target: 0.5, dt: 0.001},
		{name: "large dt lands on target", start: 0, target: 1, dt: 10},
		{name: "negative values", start: -50, target: -10, dt: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := telemetry.NewSmoothedValue(tt.start)
			v.SetTarget(tt.target)

			prev := v.Current()
			for i := 0; i < 200; i++ {
				v.Update(tt.dt)
				cur := v.Current()

				// New value lies between the old value and the target.
				lo, hi := prev, tt.target
				if lo > hi {
					lo, hi = hi, lo
				}
				require.GreaterOrEqual(t, cur, lo)
				require.LessOrEqual(t, cur, hi)

				// Strictly closer to the target while not yet converged.
				if prev != tt.target {
					require.Less(t,
						math.Abs(float64(cur-tt.target)),
						math.Abs(float64(prev-tt.target))+1e-9)
				}
				prev = cur
			}

			// ~63% per 1/k seconds means 200 updates get us essentially there.
			assert.InDelta(t, tt.target, v.Current(), math.Abs(float64(tt.target-tt.start))*0.05+1e-3)
		})
	}
}

func TestSmoothedValue_ZeroDtLeavesCurrentUnchanged(t *testing.T) {
	v := telemetry.NewSmoothedValue(25)
	v.SetTarget(75)

	v.Update(0)
	assert.Equal(t, float32(25), v.Current())

	v.Update(-1)
	assert.Equal(t, float32(25), v.Current())
}

func TestSmoothedValue_SetTargetIsIdempotent(t *testing.T) {
	v := telemetry.NewSmoothedValue(10)
	v.SetTarget(50)
	v.SetTarget(50)
	assert.Equal(t, float32(50), v.Target())
	assert.Equal(t, float32(10), v.Current())
}

func TestSmoothedValue_RepeatedTargetConvergesAsymptotically(t *testing.T) {
	v := telemetry.NewSmoothedValue(0)
	v.SetTarget(1)

	for i := 0; i < 1000; i++ {
		v.Update(0.016)
		require.LessOrEqual(t, v.Current(), float32(1))
	}
	assert.InDelta(t, 1.0, float64(v.Current()), 1e-3)
}
