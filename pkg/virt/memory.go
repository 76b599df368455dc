package virt

// memoryUsagePercentLimit is the relative ceiling: preloading is blocked
// whenever the host reports usage at or above this fraction of its limit,
// regardless of the absolute threshold.
const memoryUsagePercentLimit = 80.0

// MemoryGuard gates preloading on the host's memory-pressure signal. On
// platforms without such a signal the guard degrades gracefully and always
// allows; preloading still works, just without memory gating.
type MemoryGuard struct {
	host        ScrollHost
	thresholdMB float64
	lastUsedMB  float64
}

// NewMemoryGuard creates a guard with the given absolute used-memory ceiling
// in MB.
func NewMemoryGuard(host ScrollHost, thresholdMB float64) *MemoryGuard {
	return &MemoryGuard{host: host, thresholdMB: thresholdMB}
}

// Allow reports whether preloading may proceed. It samples the host signal
// as a side effect so the latest usage shows up in metrics.
func (g *MemoryGuard) Allow() bool {
	usedMB, limitMB, ok := g.host.MemoryStats()
	if !ok {
		return true
	}
	g.lastUsedMB = usedMB
	if limitMB > 0 {
		percent := usedMB / limitMB * 100
		if percent >= memoryUsagePercentLimit {
			return false
		}
	}
	return usedMB < g.thresholdMB
}

// UsedMB returns the most recently sampled memory usage, 0 before the first
// sample or on hosts without a signal.
func (g *MemoryGuard) UsedMB() float64 { return g.lastUsedMB }
