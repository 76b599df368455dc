package virt

import "sync"

// fakeHost is a scriptable ScrollHost for tests. Frame callbacks either run
// immediately (syncFrames) or queue until pump() is called, which mimics a
// real host delivering one frame per event-loop turn.
type fakeHost struct {
	mu       sync.Mutex
	offset   float64
	viewport float64

	syncFrames bool
	frames     []func()

	idleEnabled bool
	idleFns     []func()

	hasMemory bool
	usedMB    float64
	limitMB   float64

	setCalls []float64
}

func newFakeHost(viewport float64) *fakeHost {
	return &fakeHost{viewport: viewport}
}

func (h *fakeHost) ScrollOffset() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}

func (h *fakeHost) SetScrollOffset(offset float64, _ bool) {
	h.mu.Lock()
	h.offset = offset
	h.setCalls = append(h.setCalls, offset)
	h.mu.Unlock()
}

func (h *fakeHost) ViewportSize() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewport
}

func (h *fakeHost) OnFrame(fn func()) {
	h.mu.Lock()
	if h.syncFrames {
		h.mu.Unlock()
		fn()
		return
	}
	h.frames = append(h.frames, fn)
	h.mu.Unlock()
}

// pump delivers all queued frame callbacks, like one event-loop turn.
func (h *fakeHost) pump() int {
	h.mu.Lock()
	fns := h.frames
	h.frames = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func (h *fakeHost) queuedFrames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func (h *fakeHost) OnIdle(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.idleEnabled {
		return false
	}
	h.idleFns = append(h.idleFns, fn)
	return true
}

func (h *fakeHost) runIdle() {
	h.mu.Lock()
	fns := h.idleFns
	h.idleFns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (h *fakeHost) MemoryStats() (float64, float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasMemory {
		return 0, 0, false
	}
	return h.usedMB, h.limitMB, true
}
