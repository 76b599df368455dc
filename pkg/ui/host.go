package ui

import (
	"runtime"
	"sync"
	"time"
)

// termHost adapts a terminal view to the engine's ScrollHost interface.
// One scroll unit is one terminal row. Frame callbacks queue up and are
// flushed when the view processes its next frame tick, which mirrors how a
// compositor batches work per frame; idle callbacks run on a short timer
// off the UI goroutine.
type termHost struct {
	mu       sync.Mutex
	offset   float64
	viewport float64
	frameFns []func()

	memoryLimitMB float64
}

func newTermHost(memoryLimitMB float64) *termHost {
	return &termHost{memoryLimitMB: memoryLimitMB}
}

func (h *termHost) ScrollOffset() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}

// SetScrollOffset clamps are the engine's job; the host just stores the
// value. Terminals have no smooth scrolling, so smooth is ignored.
func (h *termHost) SetScrollOffset(offset float64, _ bool) {
	h.mu.Lock()
	h.offset = offset
	h.mu.Unlock()
}

func (h *termHost) ViewportSize() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewport
}

func (h *termHost) setViewport(rows int) {
	h.mu.Lock()
	h.viewport = float64(rows)
	h.mu.Unlock()
}

func (h *termHost) OnFrame(fn func()) {
	h.mu.Lock()
	h.frameFns = append(h.frameFns, fn)
	h.mu.Unlock()
}

// flushFrame runs all queued frame callbacks and reports whether any ran.
func (h *termHost) flushFrame() bool {
	h.mu.Lock()
	fns := h.frameFns
	h.frameFns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns) > 0
}

func (h *termHost) framePending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frameFns) > 0
}

// OnIdle approximates an idle slot with a short timer; the terminal event
// loop has no real idle signal.
func (h *termHost) OnIdle(fn func()) bool {
	time.AfterFunc(50*time.Millisecond, fn)
	return true
}

// MemoryStats reads the Go heap. Without a configured limit there is no
// meaningful percentage, so ok is false and the guard degrades to
// always-allow.
func (h *termHost) MemoryStats() (usedMB, limitMB float64, ok bool) {
	if h.memoryLimitMB <= 0 {
		return 0, 0, false
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1 << 20), h.memoryLimitMB, true
}
