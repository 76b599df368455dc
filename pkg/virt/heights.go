package virt

import (
	"sort"
	"sync"
)

// HeightCache stores a measured or estimated size per logical index and
// answers cumulative-offset queries for the window calculator. Unmeasured
// indices fall back to the configured estimate, so total size may shift
// slightly as real measurements arrive — an accepted approximation that the
// controller re-validates every tick.
//
// Measurements persist for the lifetime of the cache; a new measurement for
// an index supersedes the old one. The cache carries its own lock: it is
// shared between the controller (measurements on the render path) and the
// anchor manager (offset lookups mid-cycle), which run on different
// goroutines.
type HeightCache struct {
	mu       sync.Mutex
	estimate float64
	count    int
	measured map[int]float64

	// offsets[i] is the cumulative start of index i; offsets[count] is the
	// total size. Rebuilt lazily from dirtyFrom.
	offsets   []float64
	dirtyFrom int
}

// NewHeightCache creates a cache for count items with the given estimated
// size per unmeasured item. A non-positive estimate falls back to 1 so the
// cache never produces zero-size layouts.
func NewHeightCache(count int, estimate float64) *HeightCache {
	if estimate <= 0 {
		estimate = 1
	}
	if count < 0 {
		count = 0
	}
	return &HeightCache{
		estimate:  estimate,
		count:     count,
		measured:  make(map[int]float64),
		dirtyFrom: 0,
	}
}

// Count returns the number of items the cache covers.
func (c *HeightCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SetCount resizes the logical sequence. Measurements at indices beyond the
// new count are dropped; the rest persist.
func (c *HeightCache) SetCount(count int) {
	if count < 0 {
		count = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if count == c.count {
		return
	}
	if count < c.count {
		for i := range c.measured {
			if i >= count {
				delete(c.measured, i)
			}
		}
	}
	if count < c.dirtyFrom {
		c.dirtyFrom = count
	}
	c.count = count
}

// Measure records a real size for index, superseding the estimate. Out of
// range indices and non-positive sizes are ignored.
func (c *HeightCache) Measure(index int, size float64) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= c.count {
		return
	}
	if prev, ok := c.measured[index]; ok && prev == size {
		return
	}
	c.measured[index] = size
	if index < c.dirtyFrom {
		c.dirtyFrom = index
	}
}

// Invalidate drops the measurement at index, reverting it to the estimate.
// Used when the backing item at that index changes identity.
func (c *HeightCache) Invalidate(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.measured[index]; !ok {
		return
	}
	delete(c.measured, index)
	if index < c.dirtyFrom {
		c.dirtyFrom = index
	}
}

// InvalidateFrom drops all measurements at or after index. Cheaper than
// per-index invalidation when a structural mutation shifts every row below
// an insertion point.
func (c *HeightCache) InvalidateFrom(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.measured {
		if i >= index {
			delete(c.measured, i)
		}
	}
	if index < c.dirtyFrom {
		c.dirtyFrom = index
	}
	if c.dirtyFrom < 0 {
		c.dirtyFrom = 0
	}
}

// Size returns the size of index: the measurement if present, otherwise the
// estimate.
func (c *HeightCache) Size(index int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeLocked(index)
}

func (c *HeightCache) sizeLocked(index int) float64 {
	if s, ok := c.measured[index]; ok {
		return s
	}
	return c.estimate
}

// Uniform reports whether every index currently uses the estimate, enabling
// the O(1) division fast path in IndexAt.
func (c *HeightCache) Uniform() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.measured) == 0
}

// Offset returns the cumulative start of index. Offset(Count()) is the total
// size of the sequence.
func (c *HeightCache) Offset(index int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offsetLocked(index)
}

func (c *HeightCache) offsetLocked(index int) float64 {
	if index <= 0 {
		return 0
	}
	if index > c.count {
		index = c.count
	}
	if len(c.measured) == 0 {
		return float64(index) * c.estimate
	}
	c.ensureLocked()
	return c.offsets[index]
}

// TotalSize returns the full content extent in units.
func (c *HeightCache) TotalSize() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offsetLocked(c.count)
}

// IndexAt returns the index whose span [Offset(i), Offset(i+1)) contains
// offset. Offsets at or past the end clamp to the last index; negative
// offsets clamp to 0. Returns -1 when the cache is empty.
func (c *HeightCache) IndexAt(offset float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return -1
	}
	if offset <= 0 {
		return 0
	}
	if len(c.measured) == 0 {
		i := int(offset / c.estimate)
		if i > c.count-1 {
			i = c.count - 1
		}
		return i
	}
	c.ensureLocked()
	// First index whose end offset exceeds the target.
	i := sort.Search(c.count, func(i int) bool {
		return c.offsets[i+1] > offset
	})
	if i > c.count-1 {
		i = c.count - 1
	}
	return i
}

// ensureLocked rebuilds the prefix offsets from the first dirty index.
func (c *HeightCache) ensureLocked() {
	if len(c.offsets) != c.count+1 {
		old := c.offsets
		c.offsets = make([]float64, c.count+1)
		if len(old) > 0 {
			n := copy(c.offsets, old)
			if n-1 < c.dirtyFrom {
				c.dirtyFrom = n - 1
			}
		} else {
			c.dirtyFrom = 0
		}
	}
	if c.dirtyFrom < 0 {
		c.dirtyFrom = 0
	}
	for i := c.dirtyFrom; i < c.count; i++ {
		c.offsets[i+1] = c.offsets[i] + c.sizeLocked(i)
	}
	c.dirtyFrom = c.count
}
