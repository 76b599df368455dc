package virt

// ComputeRange computes the contiguous index range that must be rendered for
// the given scroll offset and viewport extent, expanded by overscan items on
// both sides and clamped to [0, count-1]. It is a pure function of its
// inputs: calling it twice with identical arguments yields identical results.
//
// Returns the empty range when the cache holds no items or viewport is not
// positive. Negative offsets are treated as 0 and overscan below 0 as 0; the
// calculator runs on every scroll tick and never fails.
func ComputeRange(offset, viewport float64, heights *HeightCache, overscan int) Range {
	count := heights.Count()
	if count == 0 || viewport <= 0 {
		return EmptyRange()
	}
	if offset < 0 {
		offset = 0
	}
	if overscan < 0 {
		overscan = 0
	}

	start := heights.IndexAt(offset)

	// Last index whose start is inside the viewport. IndexAt clamps past-end
	// offsets to the final index, which is exactly the bottom-of-content
	// behavior we want.
	end := heights.IndexAt(offset + viewport)
	if heights.Offset(end) >= offset+viewport && end > start {
		// The item at `end` starts exactly at (or beyond) the viewport
		// bottom edge; it contributes no visible content.
		end--
	}

	return Range{Start: start, End: end}.Expand(overscan, count)
}

// VisibleRange is ComputeRange with no overscan: the minimal contiguous
// interval covering the viewport.
func VisibleRange(offset, viewport float64, heights *HeightCache) Range {
	return ComputeRange(offset, viewport, heights, 0)
}

// BuildItems materializes the VirtualItem sequence for a render range. The
// result is contiguous in index, covers exactly the range, and satisfies
// items[i+1].Start == items[i].Start + items[i].Size.
func BuildItems(r Range, heights *HeightCache) []VirtualItem {
	if r.IsEmpty() {
		return nil
	}
	items := make([]VirtualItem, 0, r.Len())
	start := heights.Offset(r.Start)
	for i := r.Start; i <= r.End; i++ {
		size := heights.Size(i)
		items = append(items, VirtualItem{Index: i, Start: start, Size: size})
		start += size
	}
	return items
}
