// Package virt implements the virtualized windowing and predictive
// data-loading engine behind the tree widget: given a logical sequence of N
// rows that may be far larger than can be rendered at once, it decides which
// indices to materialize, how much overscan buffer to keep around the visible
// window, when to request not-yet-loaded data ahead of the user's scroll, and
// how to keep the user's visual anchor stable across structural mutations.
//
// The engine is host-agnostic: all platform access (scroll offset, viewport
// size, frame scheduling, idle scheduling, memory pressure) goes through the
// ScrollHost interface, so the same core drives a terminal widget, a browser
// bridge, or a test harness. Offsets and sizes are expressed in abstract
// scroll units — pixels in a browser host, rows in a terminal host.
package virt

import "time"

// Direction is a discrete scroll direction derived from recent samples.
type Direction int

const (
	DirectionIdle Direction = iota
	DirectionUp
	DirectionDown
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "idle"
	}
}

// Range is a contiguous inclusive index interval [Start, End].
// A Range with Start > End is empty.
type Range struct {
	Start int
	End   int
}

// EmptyRange returns the canonical empty range.
func EmptyRange() Range { return Range{Start: 0, End: -1} }

// IsEmpty reports whether the range contains no indices.
func (r Range) IsEmpty() bool { return r.Start > r.End }

// Len returns the number of indices covered by the range.
func (r Range) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether index i falls inside the range.
func (r Range) Contains(i int) bool { return i >= r.Start && i <= r.End }

// Expand grows the range by n indices on both sides, clamped to [0, count-1].
func (r Range) Expand(n, count int) Range {
	if r.IsEmpty() || count <= 0 {
		return EmptyRange()
	}
	out := Range{Start: r.Start - n, End: r.End + n}
	return out.Clamp(count)
}

// Clamp restricts the range to [0, count-1]. Clamping an empty range, or
// clamping against an empty sequence, yields the empty range.
func (r Range) Clamp(count int) Range {
	if r.IsEmpty() || count <= 0 {
		return EmptyRange()
	}
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > count-1 {
		r.End = count - 1
	}
	if r.IsEmpty() {
		return EmptyRange()
	}
	return r
}

// ScrollState is the current derived scroll state. A single instance is owned
// by the Controller, mutated in place on each scroll tick, and read by the
// planners.
type ScrollState struct {
	Offset     float64
	Velocity   float64 // units per second, always >= 0
	Direction  Direction
	Scrolling  bool
	LastUpdate time.Time
}

// VirtualItem is one rendered slot. The ordered sequence of items produced
// for a tick is contiguous in Index and covers exactly the padded render
// range; Start of item i+1 equals Start+Size of item i.
type VirtualItem struct {
	Index int
	Start float64
	Size  float64
}

// Alignment controls where ScrollToIndex places the target item.
type Alignment int

const (
	// AlignStart puts the item's top edge at the viewport top.
	AlignStart Alignment = iota
	// AlignCenter centers the item in the viewport.
	AlignCenter
	// AlignEnd puts the item's bottom edge at the viewport bottom.
	AlignEnd
)
