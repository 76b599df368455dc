package virt

import "sort"

// Priority orders preload zones. High zones cover what is about to render;
// medium and low zones are speculative, predicted from velocity, and low
// zones may be deferred to an idle slot.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// Zone is a prioritized request for data covering the inclusive index range
// [Start, End].
type Zone struct {
	Start    int
	End      int
	Priority Priority
}

// Prediction horizons for speculative zones. The medium zone targets where
// the viewport will be 300ms from now, the low zone 1000ms.
const (
	nearHorizonSec = 0.3
	farHorizonSec  = 1.0
)

// ZonePlanner turns the current scroll state into prioritized, merged,
// chunked preload zones.
type ZonePlanner struct {
	minVelocity float64
	chunkSize   int
}

// NewZonePlanner builds a planner from engine options.
func NewZonePlanner(opts Options) *ZonePlanner {
	return &ZonePlanner{
		minVelocity: opts.MinVelocityThreshold,
		chunkSize:   opts.PreloadChunkSize,
	}
}

// Plan produces the ordered preload zones for one tick:
//
//  1. a high-priority zone equal to the padded render range,
//  2. above minVelocity, a medium-priority zone centered on the position
//     predicted 300ms ahead, padded by the same overscan,
//  3. above 3x minVelocity, a low-priority zone predicted 1000ms ahead,
//     padded by half the overscan.
//
// Overlapping or adjacent zones are merged regardless of priority (the
// merged zone keeps the highest priority of its parts), then sorted
// high-to-low and split into chunks of at most the configured chunk size.
// Returns nil when the sequence is empty.
func (p *ZonePlanner) Plan(state ScrollState, heights *HeightCache, viewport float64, overscan int) []Zone {
	count := heights.Count()
	if count == 0 || viewport <= 0 {
		return nil
	}
	if overscan < 0 {
		overscan = 0
	}

	var zones []Zone

	padded := ComputeRange(state.Offset, viewport, heights, overscan)
	if padded.IsEmpty() {
		return nil
	}
	zones = append(zones, Zone{Start: padded.Start, End: padded.End, Priority: PriorityHigh})

	if state.Velocity > p.minVelocity {
		near := p.predictedZone(state, heights, viewport, nearHorizonSec, overscan, PriorityMedium)
		if near != nil {
			zones = append(zones, *near)
		}
	}
	if state.Velocity > 3*p.minVelocity {
		far := p.predictedZone(state, heights, viewport, farHorizonSec, overscan/2, PriorityLow)
		if far != nil {
			zones = append(zones, *far)
		}
	}

	merged := MergeZones(zones)
	return p.chunk(merged)
}

// predictedZone builds the render range around the offset the viewport is
// predicted to reach `horizon` seconds from now, clamped to content bounds.
func (p *ZonePlanner) predictedZone(state ScrollState, heights *HeightCache, viewport, horizon float64, overscan int, prio Priority) *Zone {
	travel := state.Velocity * horizon
	predicted := state.Offset
	switch state.Direction {
	case DirectionDown:
		predicted += travel
	case DirectionUp:
		predicted -= travel
	default:
		return nil // no movement to extrapolate
	}
	maxOffset := heights.TotalSize() - viewport
	if maxOffset < 0 {
		maxOffset = 0
	}
	if predicted < 0 {
		predicted = 0
	}
	if predicted > maxOffset {
		predicted = maxOffset
	}
	r := ComputeRange(predicted, viewport, heights, overscan)
	if r.IsEmpty() {
		return nil
	}
	return &Zone{Start: r.Start, End: r.End, Priority: prio}
}

// MergeZones merges overlapping or adjacent zones by index range, keeping
// the highest priority among merged parts, and returns the result sorted by
// priority (high first), then by start index. The union of the returned
// zones' coverage equals the union of the input coverage, and no two
// returned zones overlap.
func MergeZones(zones []Zone) []Zone {
	if len(zones) == 0 {
		return nil
	}
	sorted := make([]Zone, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := sorted[:1]
	for _, z := range sorted[1:] {
		last := &merged[len(merged)-1]
		if z.Start <= last.End+1 {
			if z.End > last.End {
				last.End = z.End
			}
			if z.Priority < last.Priority {
				last.Priority = z.Priority
			}
			continue
		}
		merged = append(merged, z)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Priority != merged[j].Priority {
			return merged[i].Priority < merged[j].Priority
		}
		return merged[i].Start < merged[j].Start
	})
	return merged
}

// chunk splits each zone into spans of at most chunkSize indices so a single
// preload request never covers an unbounded range.
func (p *ZonePlanner) chunk(zones []Zone) []Zone {
	if p.chunkSize <= 0 {
		return zones
	}
	var out []Zone
	for _, z := range zones {
		for start := z.Start; start <= z.End; start += p.chunkSize {
			end := start + p.chunkSize - 1
			if end > z.End {
				end = z.End
			}
			out = append(out, Zone{Start: start, End: end, Priority: z.Priority})
		}
	}
	return out
}
