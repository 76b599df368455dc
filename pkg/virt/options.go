package virt

import "time"

// Options holds every tunable of the engine. Invalid values are clamped to
// safe defaults rather than rejected: the engine runs on every scroll tick
// and must never fail over a bad knob.
type Options struct {
	// EstimatedItemSize is the size assumed for indices that have not been
	// measured yet (units).
	EstimatedItemSize float64

	// MinOverscan and MaxOverscan bound the buffer of extra items kept on
	// each side of the visible range.
	MinOverscan int
	MaxOverscan int

	// OverscanMultiplier scales how aggressively overscan grows with
	// velocity. See OverscanPolicy.
	OverscanMultiplier float64

	// MinVelocityThreshold is the velocity (units/sec) below which scrolling
	// is considered slow: overscan stays at MinOverscan and no predictive
	// preload zones are emitted.
	MinVelocityThreshold float64

	// DirectionThreshold is the minimum position delta (units) between two
	// samples for the tracker to register a direction change. Deltas under
	// the threshold retain the previous direction, which prevents flapping
	// during slow, jittery scrolling.
	DirectionThreshold float64

	// PreloadChunkSize caps the span of a single preload request so one
	// request never covers an unbounded range.
	PreloadChunkSize int

	// PreloadDelayMin and PreloadDelayMax bound the trailing delay between a
	// scroll tick and preload dispatch. The delay shrinks toward the minimum
	// as velocity rises, so fast flicks still get timely preload while
	// steady-state scrolling is not spammed every frame.
	PreloadDelayMin time.Duration
	PreloadDelayMax time.Duration

	// ScrollIdleTimeout is the quiet period after the last scroll event
	// before the engine considers scrolling stopped.
	ScrollIdleTimeout time.Duration

	// MemoryThresholdMB is the absolute used-memory ceiling above which the
	// MemoryGuard blocks preloading. Ignored when the host exposes no memory
	// signal.
	MemoryThresholdMB float64

	// SettleDelay is how long the anchor manager waits after the
	// post-mutation frame before recomputing the scroll offset. Some render
	// layers need a beat between commit and layout; treat this as empirical
	// tuning, not a protocol constant.
	SettleDelay time.Duration

	// AnchorBuffer is the margin (units) below the viewport beyond which an
	// expand target is considered invisible, letting the anchor manager skip
	// the capture/restore cycle entirely.
	AnchorBuffer float64

	// MaintainScrollDuringExpand enables anchor preservation around expand
	// mutations. When false, expands never capture/restore.
	MaintainScrollDuringExpand bool
}

// DefaultOptions returns the tuning used by the stock widget.
func DefaultOptions() Options {
	return Options{
		EstimatedItemSize:          32,
		MinOverscan:                3,
		MaxOverscan:                30,
		OverscanMultiplier:         0.5,
		MinVelocityThreshold:       100,
		DirectionThreshold:         2,
		PreloadChunkSize:           50,
		PreloadDelayMin:            25 * time.Millisecond,
		PreloadDelayMax:            150 * time.Millisecond,
		ScrollIdleTimeout:          150 * time.Millisecond,
		MemoryThresholdMB:          512,
		SettleDelay:                50 * time.Millisecond,
		AnchorBuffer:               200,
		MaintainScrollDuringExpand: true,
	}
}

// sanitized returns a copy with every out-of-range field clamped back to its
// default. Configuration errors degrade, they never raise.
func (o Options) sanitized() Options {
	def := DefaultOptions()
	if o.EstimatedItemSize <= 0 {
		o.EstimatedItemSize = def.EstimatedItemSize
	}
	if o.MinOverscan < 0 {
		o.MinOverscan = def.MinOverscan
	}
	if o.MaxOverscan < o.MinOverscan {
		o.MaxOverscan = o.MinOverscan
	}
	if o.OverscanMultiplier <= 0 {
		o.OverscanMultiplier = def.OverscanMultiplier
	}
	if o.MinVelocityThreshold <= 0 {
		o.MinVelocityThreshold = def.MinVelocityThreshold
	}
	if o.DirectionThreshold < 0 {
		o.DirectionThreshold = def.DirectionThreshold
	}
	if o.PreloadChunkSize <= 0 {
		o.PreloadChunkSize = def.PreloadChunkSize
	}
	if o.PreloadDelayMin <= 0 {
		o.PreloadDelayMin = def.PreloadDelayMin
	}
	if o.PreloadDelayMax < o.PreloadDelayMin {
		o.PreloadDelayMax = o.PreloadDelayMin
	}
	if o.ScrollIdleTimeout <= 0 {
		o.ScrollIdleTimeout = def.ScrollIdleTimeout
	}
	if o.MemoryThresholdMB <= 0 {
		o.MemoryThresholdMB = def.MemoryThresholdMB
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = def.SettleDelay
	}
	if o.AnchorBuffer < 0 {
		o.AnchorBuffer = def.AnchorBuffer
	}
	return o
}
