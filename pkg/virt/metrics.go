package virt

import "gonum.org/v1/gonum/stat"

// velocityHistoryCap bounds the sample buffer used for the average: enough
// for several seconds of scrolling without unbounded growth.
const velocityHistoryCap = 512

// Metrics accumulates observability counters for one controller instance.
// Counters are monotonic and reset only on explicit request. Not safe for
// concurrent use; the Controller serializes access and hands out snapshots.
type Metrics struct {
	scrollEvents    int64
	preloadTriggers int64
	velocityPeak    float64
	velocities      []float64
	memoryUsageMB   float64
}

// MetricsSnapshot is an immutable copy of the current aggregates.
type MetricsSnapshot struct {
	ScrollEvents    int64   `json:"scroll_events"`
	PreloadTriggers int64   `json:"preload_triggers"`
	VelocityPeak    float64 `json:"velocity_peak"`
	VelocityAverage float64 `json:"velocity_average"`
	MemoryUsageMB   float64 `json:"memory_usage_mb"`
}

func newMetrics() *Metrics {
	return &Metrics{velocities: make([]float64, 0, velocityHistoryCap)}
}

func (m *Metrics) recordScroll(velocity float64) {
	m.scrollEvents++
	if velocity > m.velocityPeak {
		m.velocityPeak = velocity
	}
	if velocity > 0 {
		if len(m.velocities) == velocityHistoryCap {
			copy(m.velocities, m.velocities[1:])
			m.velocities = m.velocities[:velocityHistoryCap-1]
		}
		m.velocities = append(m.velocities, velocity)
	}
}

func (m *Metrics) recordPreload() { m.preloadTriggers++ }

func (m *Metrics) recordMemory(usedMB float64) { m.memoryUsageMB = usedMB }

// snapshot copies the aggregates. The average is computed over the retained
// velocity samples.
func (m *Metrics) snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		ScrollEvents:    m.scrollEvents,
		PreloadTriggers: m.preloadTriggers,
		VelocityPeak:    m.velocityPeak,
		MemoryUsageMB:   m.memoryUsageMB,
	}
	if len(m.velocities) > 0 {
		s.VelocityAverage = stat.Mean(m.velocities, nil)
	}
	return s
}

// reset zeroes all aggregates.
func (m *Metrics) reset() {
	m.scrollEvents = 0
	m.preloadTriggers = 0
	m.velocityPeak = 0
	m.velocities = m.velocities[:0]
	m.memoryUsageMB = 0
}
