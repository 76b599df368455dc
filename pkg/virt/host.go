package virt

// ScrollHost is the injected platform surface the engine runs against. A
// browser bridge backs it with the DOM scroll container, requestAnimationFrame,
// requestIdleCallback and performance.memory; the terminal widget backs it
// with the render loop tick and runtime memory stats; tests back it with a
// deterministic fake.
//
// Implementations must be safe for use from the goroutine that delivers
// scroll events plus the engine's own timer goroutines.
type ScrollHost interface {
	// ScrollOffset returns the current scroll position in units.
	ScrollOffset() float64

	// SetScrollOffset moves the scroll position. When smooth is true the
	// host may animate; hosts without animation treat it as an immediate
	// jump.
	SetScrollOffset(offset float64, smooth bool)

	// ViewportSize returns the visible extent in units.
	ViewportSize() float64

	// OnFrame schedules fn to run on the next render frame. Multiple
	// registrations within one frame all run on that frame, in order.
	OnFrame(fn func())

	// OnIdle schedules fn for an idle slot and reports whether the platform
	// supports idle scheduling. When it returns false fn has not been
	// scheduled and the caller should run the work immediately instead.
	OnIdle(fn func()) bool

	// MemoryStats returns the platform memory-pressure signal, if any.
	// ok is false on platforms with no such signal; the guard then degrades
	// to always-allow.
	MemoryStats() (usedMB, limitMB float64, ok bool)
}

// PreloadFunc requests data for the inclusive index range [start, end].
// Implementations must tolerate overlapping ranges; the planner does not
// guarantee a range has never been requested before.
type PreloadFunc func(start, end int, priority Priority)

// LoadedFunc reports whether the item at index already has data. Used both
// to show placeholders inside the render range and to skip preload chunks
// that are fully loaded.
type LoadedFunc func(index int) bool

// RangeFunc is notified when the visible range's bounds change from the
// previous tick. It is not invoked on ticks where the bounds are unchanged.
type RangeFunc func(visible Range)

// OffsetFunc is notified when the scroll position changes.
type OffsetFunc func(offset float64)

// Callbacks is the explicit contract between the engine and its render
// layer. Every field may be nil; nil callbacks are simply skipped (a nil
// LoadedFunc treats every index as not yet loaded).
type Callbacks struct {
	OnPreload            PreloadFunc
	IsItemLoaded         LoadedFunc
	OnVisibleRangeChange RangeFunc
	OnScrollChange       OffsetFunc
}
