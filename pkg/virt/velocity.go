package virt

import (
	"math"
	"time"
)

// velocityWindow is how many of the most recent samples feed the velocity
// estimate. Using a short window keeps the estimate responsive to flicks
// while still smoothing single-event jitter.
const velocityWindow = 5

// maxSamples bounds the tracker's ring buffer.
const maxSamples = 10

type scrollSample struct {
	position float64
	at       time.Time
}

// VelocityTracker maintains a short rolling history of (position, time)
// scroll samples and derives current velocity and discrete direction. It is
// not safe for concurrent use; the Controller serializes access.
type VelocityTracker struct {
	samples   []scrollSample
	threshold float64 // minimum delta for a direction change
	direction Direction
}

// NewVelocityTracker creates a tracker. threshold is the minimum position
// delta (units) between the two most recent samples for the direction to
// change; smaller deltas retain the previous direction instead of flapping
// to idle during slow, jittery scrolling.
func NewVelocityTracker(threshold float64) *VelocityTracker {
	if threshold < 0 {
		threshold = 0
	}
	return &VelocityTracker{
		samples:   make([]scrollSample, 0, maxSamples),
		threshold: threshold,
		direction: DirectionIdle,
	}
}

// Record appends a scroll sample, evicting the oldest once the ring holds
// maxSamples entries, and updates the direction estimate.
func (v *VelocityTracker) Record(position float64, at time.Time) {
	if len(v.samples) > 0 {
		delta := position - v.samples[len(v.samples)-1].position
		if math.Abs(delta) >= v.threshold && delta != 0 {
			if delta > 0 {
				v.direction = DirectionDown
			} else {
				v.direction = DirectionUp
			}
		}
		// Under-threshold deltas keep the previous direction.
	}
	if len(v.samples) == maxSamples {
		copy(v.samples, v.samples[1:])
		v.samples = v.samples[:maxSamples-1]
	}
	v.samples = append(v.samples, scrollSample{position: position, at: at})
}

// Velocity returns the current scroll speed in units per second, computed
// from the oldest and newest of the last velocityWindow samples. Returns 0
// with fewer than two samples or zero elapsed time.
func (v *VelocityTracker) Velocity() float64 {
	n := len(v.samples)
	if n < 2 {
		return 0
	}
	first := n - velocityWindow
	if first < 0 {
		first = 0
	}
	oldest := v.samples[first]
	newest := v.samples[n-1]
	elapsed := newest.at.Sub(oldest.at)
	if elapsed <= 0 {
		return 0
	}
	return math.Abs(newest.position-oldest.position) / elapsed.Seconds()
}

// Direction returns the current discrete direction. Idle until the first
// over-threshold movement is observed, or after Reset.
func (v *VelocityTracker) Direction() Direction { return v.direction }

// SetThreshold changes the direction hysteresis threshold for subsequent
// samples; history is kept.
func (v *VelocityTracker) SetThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	v.threshold = threshold
}

// Reset clears history and returns the direction to idle. Called when the
// scroll-idle timeout fires so a stale flick doesn't leak into the next
// gesture's estimate.
func (v *VelocityTracker) Reset() {
	v.samples = v.samples[:0]
	v.direction = DirectionIdle
}

// SampleCount returns the number of retained samples.
func (v *VelocityTracker) SampleCount() int { return len(v.samples) }
