package virt

// OverscanPolicy maps scroll velocity to an overscan item count within
// [Min, Max]. The mapping is non-decreasing in velocity and scales with how
// many rows are visible, so a fast flick over a short list does not
// over-allocate relative to a fast flick over a long one.
type OverscanPolicy struct {
	Min         int
	Max         int
	Multiplier  float64
	MinVelocity float64
}

// NewOverscanPolicy builds a policy from engine options.
func NewOverscanPolicy(opts Options) OverscanPolicy {
	return OverscanPolicy{
		Min:         opts.MinOverscan,
		Max:         opts.MaxOverscan,
		Multiplier:  opts.OverscanMultiplier,
		MinVelocity: opts.MinVelocityThreshold,
	}
}

// Overscan returns the buffer item count for the given velocity (units/sec)
// and currently visible item count. Below MinVelocity it returns Min; above
// it, overscan grows linearly with velocity and visible count, floored to an
// integer and capped at Max.
func (p OverscanPolicy) Overscan(velocity float64, visibleCount int) int {
	if velocity < 0 {
		velocity = 0
	}
	if visibleCount < 0 {
		visibleCount = 0
	}
	if velocity <= p.MinVelocity {
		return p.Min
	}
	extra := int(velocity / 1000 * p.Multiplier * float64(visibleCount))
	out := p.Min + extra
	if out > p.Max {
		return p.Max
	}
	if out < p.Min {
		return p.Min
	}
	return out
}
