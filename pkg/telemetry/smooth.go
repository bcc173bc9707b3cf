// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import "math"

// smoothingConstant is the exponential smoothing rate. A displayed value
// covers ~63% of the remaining distance to its target in 1/k seconds.
const smoothingConstant = 8.0

// SmoothedValue is an exponential moving-average smoother for a scalar
// display quantity. The sampler sets the target; the frame tick advances
// the current value toward it. The current value approaches the target
// monotonically and never overshoots.
type SmoothedValue struct {
	current float32
	target  float32
}

// NewSmoothedValue returns a smoother with current and target both set to v.
func NewSmoothedValue(v float32) *SmoothedValue {
	return &SmoothedValue{current: v, target: v}
}

// Update advances the current value toward the target using
// current = lerp(current, target, 1 - exp(-k*dt)). dt <= 0 leaves the
// current value unchanged.
func (s *SmoothedValue) Update(dt float32) {
	if dt <= 0 {
		return
	}
	factor := 1.0 - float32(math.Exp(float64(-smoothingConstant*dt)))
	s.current = lerp(s.current, s.target, factor)
}

// SetTarget stores a new target for subsequent Update calls.
func (s *SmoothedValue) SetTarget(v float32) {
	s.target = v
}

// Current returns the smoothed display value.
func (s *SmoothedValue) Current() float32 {
	return s.current
}

// Target returns the value the smoother is converging toward.
func (s *SmoothedValue) Target() float32 {
	return s.target
}

// lerp linearly interpolates from start to end. t is clamped to [0,1] so a
// large dt can at most land exactly on the target.
func lerp(start, end, t float32) float32 {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return start + (end-start)*t
}
