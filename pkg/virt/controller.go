package virt

import (
	"sync"
	"time"
)

// Controller is the composition root of the engine. It owns the derived
// scroll state, the height cache and the metrics for exactly one rendered
// list; none of these are shared across list instances.
//
// All scroll-tick work is coalesced to at most one recomputation per host
// frame: scroll events arriving within the same frame collapse into a single
// tick. Preload dispatch is decoupled from the frame path via a trailing
// timer whose delay shrinks as velocity rises; a new scroll event replaces
// any pending dispatch rather than stacking another.
type Controller struct {
	mu   sync.Mutex
	host ScrollHost
	opts Options
	cb   Callbacks

	heights  *HeightCache
	tracker  *VelocityTracker
	overscan OverscanPolicy
	planner  *ZonePlanner
	guard    *MemoryGuard
	metrics  *Metrics
	anchor   *AnchorManager

	state    ScrollState
	viewport float64
	visible  Range
	padded   Range

	frameQueued   bool
	pendingOffset float64

	preloadTimer *time.Timer
	idleTimer    *time.Timer
	closed       bool

	now func() time.Time
}

// New creates a controller for a list of itemCount items. source may be nil
// when anchor preservation is not needed; Anchor() then returns nil.
func New(host ScrollHost, itemCount int, source AnchorSource, opts Options, cb Callbacks) *Controller {
	opts = opts.sanitized()
	heights := NewHeightCache(itemCount, opts.EstimatedItemSize)
	c := &Controller{
		host:     host,
		opts:     opts,
		cb:       cb,
		heights:  heights,
		tracker:  NewVelocityTracker(opts.DirectionThreshold),
		overscan: NewOverscanPolicy(opts),
		planner:  NewZonePlanner(opts),
		guard:    NewMemoryGuard(host, opts.MemoryThresholdMB),
		metrics:  newMetrics(),
		viewport: host.ViewportSize(),
		visible:  EmptyRange(),
		padded:   EmptyRange(),
		now:      time.Now,
	}
	if source != nil {
		c.anchor = NewAnchorManager(host, source, heights, opts)
		c.anchor.onRestored = c.resyncOffset
	}
	c.recomputeLocked(host.ScrollOffset())
	return c
}

// Anchor returns the anchor manager sharing this controller's height cache,
// or nil when the controller was built without an identity source.
func (c *Controller) Anchor() *AnchorManager { return c.anchor }

// OnScroll feeds a scroll event. Multiple calls within one host frame
// collapse into a single recomputation on that frame.
func (c *Controller) OnScroll(offset float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if offset < 0 {
		offset = 0
	}
	c.pendingOffset = offset
	if c.frameQueued {
		return
	}
	c.frameQueued = true
	c.host.OnFrame(c.frameTick)
}

// frameTick runs once per frame with pending scroll input.
func (c *Controller) frameTick() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.frameQueued = false
	offset := c.pendingOffset

	now := c.now()
	c.tracker.Record(offset, now)
	velocity := c.tracker.Velocity()

	c.state.Offset = offset
	c.state.Velocity = velocity
	c.state.Direction = c.tracker.Direction()
	c.state.Scrolling = true
	c.state.LastUpdate = now

	c.metrics.recordScroll(velocity)
	c.resetIdleTimerLocked()

	rangeChanged := c.recomputeLocked(offset)
	c.scheduleTrailingPreloadLocked(velocity)

	cb := c.cb
	visible := c.visible
	c.mu.Unlock()

	if cb.OnScrollChange != nil {
		cb.OnScrollChange(offset)
	}
	if rangeChanged && cb.OnVisibleRangeChange != nil {
		cb.OnVisibleRangeChange(visible)
	}
}

// OnResize feeds a viewport size change and recomputes ranges immediately.
func (c *Controller) OnResize(viewport float64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.viewport = viewport
	rangeChanged := c.recomputeLocked(c.state.Offset)
	cb := c.cb
	visible := c.visible
	c.mu.Unlock()

	if rangeChanged && cb.OnVisibleRangeChange != nil {
		cb.OnVisibleRangeChange(visible)
	}
}

// SetItemCount resizes the logical sequence, e.g. after an expand/collapse
// changed the number of visible rows, and recomputes ranges.
func (c *Controller) SetItemCount(count int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.heights.SetCount(count)
	rangeChanged := c.recomputeLocked(c.state.Offset)
	cb := c.cb
	visible := c.visible
	c.mu.Unlock()

	if rangeChanged && cb.OnVisibleRangeChange != nil {
		cb.OnVisibleRangeChange(visible)
	}
}

// ItemCount returns the current logical item count.
func (c *Controller) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heights.Count()
}

// MeasureItem records a real measured size for index, superseding the
// estimate used so far. Measurements are re-validated against the ranges on
// the next tick.
func (c *Controller) MeasureItem(index int, size float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heights.Measure(index, size)
}

// InvalidateFrom drops measurements at and after index, for mutations that
// shift rows (insertions above measured rows change which item lives at
// which index).
func (c *Controller) InvalidateFrom(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heights.InvalidateFrom(index)
}

// VirtualItems returns the materialized slots covering the padded render
// range, contiguous in index with no gaps or overlaps. Empty when the list
// is empty.
func (c *Controller) VirtualItems() []VirtualItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return BuildItems(c.padded, c.heights)
}

// VisibleRange returns the minimal index interval covering the viewport.
func (c *Controller) VisibleRange() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// RenderRange returns the overscan-padded range actually handed to the
// render layer. Always contains VisibleRange.
func (c *Controller) RenderRange() Range {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.padded
}

// ScrollState returns a copy of the derived scroll state.
func (c *Controller) ScrollState() ScrollState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TotalSize returns the full content extent in units, for scrollbar sizing.
// It may shift slightly as estimated items get measured.
func (c *Controller) TotalSize() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heights.TotalSize()
}

// ScrollToIndex computes the offset that places index according to align,
// clamps it to [0, totalSize - viewport], moves the host there and returns
// the offset actually applied.
func (c *Controller) ScrollToIndex(index int, align Alignment, smooth bool) float64 {
	c.mu.Lock()
	count := c.heights.Count()
	if count == 0 || c.closed {
		c.mu.Unlock()
		return 0
	}
	if index < 0 {
		index = 0
	}
	if index > count-1 {
		index = count - 1
	}

	itemStart := c.heights.Offset(index)
	itemSize := c.heights.Size(index)
	var target float64
	switch align {
	case AlignCenter:
		target = itemStart - (c.viewport-itemSize)/2
	case AlignEnd:
		target = itemStart + itemSize - c.viewport
	default:
		target = itemStart
	}

	maxOffset := c.heights.TotalSize() - c.viewport
	if maxOffset < 0 {
		maxOffset = 0
	}
	if target < 0 {
		target = 0
	}
	if target > maxOffset {
		target = maxOffset
	}
	host := c.host
	c.mu.Unlock()

	host.SetScrollOffset(target, smooth)
	c.OnScroll(target)
	return target
}

// resyncOffset adopts an offset applied behind the controller's back (the
// anchor manager re-seating the host after a preserve cycle) and refreshes
// the derived ranges so VirtualItems matches what the host now shows. Fires
// the same callbacks a scroll tick would, without counting as scroll input:
// no velocity sample, no idle-timer reset, no preload scheduling.
func (c *Controller) resyncOffset(offset float64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if offset < 0 {
		offset = 0
	}
	c.state.Offset = offset
	c.pendingOffset = offset
	rangeChanged := c.recomputeLocked(offset)
	cb := c.cb
	visible := c.visible
	c.mu.Unlock()

	if cb.OnScrollChange != nil {
		cb.OnScrollChange(offset)
	}
	if rangeChanged && cb.OnVisibleRangeChange != nil {
		cb.OnVisibleRangeChange(visible)
	}
}

// Metrics returns a snapshot of the controller's observability counters.
func (c *Controller) Metrics() MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.recordMemory(c.guard.UsedMB())
	return c.metrics.snapshot()
}

// UpdateOptions applies new tuning at runtime, e.g. after a config file
// change. The estimated item size is pinned to its construction value:
// re-estimating cached heights mid-session would shift every offset under
// the user.
func (c *Controller) UpdateOptions(opts Options) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	opts = opts.sanitized()
	opts.EstimatedItemSize = c.opts.EstimatedItemSize
	c.opts = opts
	c.overscan = NewOverscanPolicy(opts)
	c.planner = NewZonePlanner(opts)
	c.guard = NewMemoryGuard(c.host, opts.MemoryThresholdMB)
	c.tracker.SetThreshold(opts.DirectionThreshold)
	c.recomputeLocked(c.state.Offset)
	anchor := c.anchor
	c.mu.Unlock()

	if anchor != nil {
		anchor.applyOptions(opts)
	}
}

// ResetMetrics zeroes the counters.
func (c *Controller) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.reset()
}

// Close cancels all pending timers. The controller rejects further events;
// Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.preloadTimer != nil {
		c.preloadTimer.Stop()
		c.preloadTimer = nil
	}
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
}

// recomputeLocked refreshes visible and padded ranges for the given offset.
// Reports whether the visible range's bounds changed from the previous tick.
func (c *Controller) recomputeLocked(offset float64) bool {
	visible := VisibleRange(offset, c.viewport, c.heights)
	overscan := c.overscan.Overscan(c.state.Velocity, visible.Len())
	padded := ComputeRange(offset, c.viewport, c.heights, overscan)

	changed := visible != c.visible
	c.visible = visible
	c.padded = padded
	return changed
}

// scheduleTrailingPreloadLocked (re)arms the trailing preload timer. The
// delay interpolates from PreloadDelayMax at rest down to PreloadDelayMin at
// three times the velocity threshold, so fast flicks still get timely
// preload. An already-pending timer is replaced, never accumulated.
func (c *Controller) scheduleTrailingPreloadLocked(velocity float64) {
	if c.cb.OnPreload == nil {
		return
	}
	span := c.opts.PreloadDelayMax - c.opts.PreloadDelayMin
	frac := velocity / (3 * c.opts.MinVelocityThreshold)
	if frac > 1 {
		frac = 1
	}
	delay := c.opts.PreloadDelayMax - time.Duration(float64(span)*frac)

	if c.preloadTimer != nil {
		c.preloadTimer.Stop()
	}
	c.preloadTimer = time.AfterFunc(delay, c.dispatchPreload)
}

// resetIdleTimerLocked (re)arms the scroll-idle timer that flips the state
// back to not-scrolling after a quiet period.
func (c *Controller) resetIdleTimerLocked() {
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(c.opts.ScrollIdleTimeout, c.markIdle)
}

func (c *Controller) markIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state.Scrolling = false
	c.state.Velocity = 0
	c.state.Direction = DirectionIdle
	c.tracker.Reset()
}

// dispatchPreload plans zones for the current state and hands them to the
// data-loading callback. The whole operation is skipped under memory
// pressure. Low-priority chunks go through the host's idle scheduler when it
// has one; everything else dispatches immediately. Chunks whose indices are
// all loaded already are dropped.
func (c *Controller) dispatchPreload() {
	c.mu.Lock()
	if c.closed || c.cb.OnPreload == nil {
		c.mu.Unlock()
		return
	}
	if !c.guard.Allow() {
		c.metrics.recordMemory(c.guard.UsedMB())
		c.mu.Unlock()
		return
	}
	c.metrics.recordMemory(c.guard.UsedMB())

	overscan := c.overscan.Overscan(c.state.Velocity, c.visible.Len())
	zones := c.planner.Plan(c.state, c.heights, c.viewport, overscan)
	cb := c.cb
	host := c.host

	var pending []Zone
	for _, z := range zones {
		if c.zoneLoadedLocked(z) {
			continue
		}
		pending = append(pending, z)
	}
	if len(pending) > 0 {
		c.metrics.recordPreload()
	}
	c.mu.Unlock()

	for _, z := range pending {
		z := z
		if z.Priority == PriorityLow {
			if host.OnIdle(func() { cb.OnPreload(z.Start, z.End, z.Priority) }) {
				continue
			}
			// No idle scheduler on this platform; degrade to immediate.
		}
		cb.OnPreload(z.Start, z.End, z.Priority)
	}
}

// zoneLoadedLocked reports whether every index in the zone already has data.
// Without a loaded predicate nothing is assumed loaded.
func (c *Controller) zoneLoadedLocked(z Zone) bool {
	if c.cb.IsItemLoaded == nil {
		return false
	}
	for i := z.Start; i <= z.End; i++ {
		if !c.cb.IsItemLoaded(i) {
			return false
		}
	}
	return true
}
