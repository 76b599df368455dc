package virt

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// testClock is a manually stepped time source for deterministic velocity.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// preloadRecorder collects preload dispatches across goroutines.
type preloadRecorder struct {
	mu    sync.Mutex
	calls []Zone
}

func (r *preloadRecorder) record(start, end int, priority Priority) {
	r.mu.Lock()
	r.calls = append(r.calls, Zone{Start: start, End: end, Priority: priority})
	r.mu.Unlock()
}

func (r *preloadRecorder) snapshot() []Zone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Zone(nil), r.calls...)
}

func (r *preloadRecorder) hasPriority(p Priority) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, z := range r.calls {
		if z.Priority == p {
			return true
		}
	}
	return false
}

func TestControllerCoalescesScrollEvents(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
	defer c.Close()

	c.OnScroll(100)
	c.OnScroll(200)
	c.OnScroll(320)
	if got := host.queuedFrames(); got != 1 {
		t.Fatalf("queued frames = %d, want 1", got)
	}
	if got := host.pump(); got != 1 {
		t.Fatalf("pumped %d frames, want 1", got)
	}

	state := c.ScrollState()
	if state.Offset != 320 {
		t.Errorf("offset = %v, want the last event's 320", state.Offset)
	}
	if !state.Scrolling {
		t.Error("scrolling = false after a tick")
	}
	if got := c.Metrics().ScrollEvents; got != 1 {
		t.Errorf("scroll events = %d, want 1 (coalesced)", got)
	}
}

func TestControllerVelocityFromTicks(t *testing.T) {
	host := newFakeHost(640)
	clock := newTestClock()
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
	defer c.Close()
	c.now = clock.Now

	c.OnScroll(0)
	host.pump()
	clock.Advance(100 * time.Millisecond)
	c.OnScroll(100)
	host.pump()

	state := c.ScrollState()
	if state.Velocity != 1000 {
		t.Errorf("velocity = %v, want 1000 (100 units over 100ms)", state.Velocity)
	}
	if state.Direction != DirectionDown {
		t.Errorf("direction = %v, want down", state.Direction)
	}
	if got := c.Metrics().VelocityPeak; got != 1000 {
		t.Errorf("velocity peak = %v, want 1000", got)
	}
}

func TestControllerVisibleRangeChangeCallback(t *testing.T) {
	host := newFakeHost(640)
	var mu sync.Mutex
	var changes []Range
	cb := Callbacks{
		OnVisibleRangeChange: func(r Range) {
			mu.Lock()
			changes = append(changes, r)
			mu.Unlock()
		},
	}
	c := New(host, 1000, nil, DefaultOptions(), cb)
	defer c.Close()

	c.OnScroll(3200)
	host.pump()
	c.OnScroll(3200) // same offset, same range
	host.pump()

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 {
		t.Fatalf("range-change callbacks = %d, want 1", len(changes))
	}
	if changes[0] != (Range{Start: 100, End: 119}) {
		t.Errorf("range = %+v, want [100,119]", changes[0])
	}
}

func TestControllerTrailingPreload(t *testing.T) {
	host := newFakeHost(640)
	rec := &preloadRecorder{}
	opts := DefaultOptions()
	opts.PreloadDelayMin = time.Millisecond
	opts.PreloadDelayMax = 5 * time.Millisecond
	c := New(host, 1000, nil, opts, Callbacks{OnPreload: rec.record})
	defer c.Close()

	c.OnScroll(3200)
	host.pump()
	time.Sleep(50 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("preload calls = %d, want 1: %+v", len(calls), calls)
	}
	// At rest the only zone is the min-overscan render range.
	want := Zone{Start: 97, End: 122, Priority: PriorityHigh}
	if calls[0] != want {
		t.Errorf("preload zone = %+v, want %+v", calls[0], want)
	}
	if got := c.Metrics().PreloadTriggers; got < 1 {
		t.Errorf("preload triggers = %d, want >= 1", got)
	}
}

func TestControllerPreloadSkipsLoadedZones(t *testing.T) {
	host := newFakeHost(640)
	rec := &preloadRecorder{}
	opts := DefaultOptions()
	opts.PreloadDelayMin = time.Millisecond
	opts.PreloadDelayMax = 5 * time.Millisecond
	cb := Callbacks{
		OnPreload:    rec.record,
		IsItemLoaded: func(int) bool { return true },
	}
	c := New(host, 1000, nil, opts, cb)
	defer c.Close()

	c.OnScroll(3200)
	host.pump()
	time.Sleep(50 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("preload dispatched for fully loaded zones: %+v", calls)
	}
	if got := c.Metrics().PreloadTriggers; got != 0 {
		t.Errorf("preload triggers = %d, want 0", got)
	}
}

func TestControllerMemoryPressureBlocksPreload(t *testing.T) {
	host := newFakeHost(640)
	host.hasMemory = true
	host.usedMB = 900
	host.limitMB = 1000
	rec := &preloadRecorder{}
	opts := DefaultOptions()
	opts.PreloadDelayMin = time.Millisecond
	opts.PreloadDelayMax = 5 * time.Millisecond
	c := New(host, 1000, nil, opts, Callbacks{OnPreload: rec.record})
	defer c.Close()

	c.OnScroll(3200)
	host.pump()
	time.Sleep(50 * time.Millisecond)

	if calls := rec.snapshot(); len(calls) != 0 {
		t.Errorf("preload dispatched under memory pressure: %+v", calls)
	}
	if got := c.Metrics().MemoryUsageMB; got != 900 {
		t.Errorf("memory usage = %v, want 900", got)
	}
}

func TestControllerLowPriorityRoutesThroughIdle(t *testing.T) {
	host := newFakeHost(640)
	host.idleEnabled = true
	clock := newTestClock()
	rec := &preloadRecorder{}
	opts := DefaultOptions()
	opts.PreloadDelayMin = time.Millisecond
	opts.PreloadDelayMax = 5 * time.Millisecond
	c := New(host, 10000, nil, opts, Callbacks{OnPreload: rec.record})
	defer c.Close()
	c.now = clock.Now

	// Two ticks 100ms apart, 500 units of travel: 5000 u/s, fast enough for
	// the far speculative zone.
	c.OnScroll(0)
	host.pump()
	clock.Advance(100 * time.Millisecond)
	c.OnScroll(500)
	host.pump()
	time.Sleep(50 * time.Millisecond)

	if !rec.hasPriority(PriorityHigh) {
		t.Fatal("no high-priority zone dispatched")
	}
	if rec.hasPriority(PriorityLow) {
		t.Fatal("low-priority zone dispatched before the idle callback ran")
	}
	host.runIdle()
	if !rec.hasPriority(PriorityLow) {
		t.Error("low-priority zone not delivered by the idle scheduler")
	}
}

func TestControllerIdleTimeout(t *testing.T) {
	host := newFakeHost(640)
	opts := DefaultOptions()
	opts.ScrollIdleTimeout = 20 * time.Millisecond
	c := New(host, 1000, nil, opts, Callbacks{})
	defer c.Close()

	c.OnScroll(320)
	host.pump()
	if !c.ScrollState().Scrolling {
		t.Fatal("scrolling = false right after a tick")
	}

	time.Sleep(80 * time.Millisecond)
	state := c.ScrollState()
	if state.Scrolling {
		t.Error("scrolling = true after the idle timeout")
	}
	if state.Velocity != 0 {
		t.Errorf("velocity = %v after idle, want 0", state.Velocity)
	}
	if state.Direction != DirectionIdle {
		t.Errorf("direction = %v after idle, want idle", state.Direction)
	}
}

func TestScrollToIndexAlignment(t *testing.T) {
	tests := []struct {
		name  string
		index int
		align Alignment
		want  float64
	}{
		{"start", 100, AlignStart, 3200},
		{"center", 100, AlignCenter, 2896},
		{"end clamps to max", 999, AlignEnd, 31360},
		{"negative clamps to zero", -5, AlignStart, 0},
		{"past end clamps to last", 5000, AlignEnd, 31360},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost(640)
			c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
			defer c.Close()

			got := c.ScrollToIndex(tt.index, tt.align, false)
			if got != tt.want {
				t.Errorf("ScrollToIndex = %v, want %v", got, tt.want)
			}
			if host.ScrollOffset() != tt.want {
				t.Errorf("host offset = %v, want %v", host.ScrollOffset(), tt.want)
			}
		})
	}
}

func TestControllerSetItemCount(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
	defer c.Close()

	c.SetItemCount(5)
	if got := c.ItemCount(); got != 5 {
		t.Errorf("item count = %d, want 5", got)
	}
	if got := c.TotalSize(); got != 160 {
		t.Errorf("total size = %v, want 160", got)
	}
	if got := c.VisibleRange(); got != (Range{Start: 0, End: 4}) {
		t.Errorf("visible range = %+v, want [0,4]", got)
	}
}

func TestControllerEmptyList(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 0, nil, DefaultOptions(), Callbacks{})
	defer c.Close()

	if got := c.VisibleRange(); !got.IsEmpty() {
		t.Errorf("visible range = %+v, want empty", got)
	}
	if items := c.VirtualItems(); len(items) != 0 {
		t.Errorf("virtual items = %+v, want none", items)
	}
	if got := c.ScrollToIndex(3, AlignStart, false); got != 0 {
		t.Errorf("ScrollToIndex on empty list = %v, want 0", got)
	}
}

func TestControllerCloseRejectsEvents(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})

	c.Close()
	c.Close() // idempotent

	c.OnScroll(320)
	if got := host.queuedFrames(); got != 0 {
		t.Errorf("frame queued after close: %d", got)
	}
	if got := c.ScrollToIndex(100, AlignStart, false); got != 0 {
		t.Errorf("ScrollToIndex after close = %v, want 0", got)
	}
	if len(host.setCalls) != 0 {
		t.Errorf("host scrolled after close: %v", host.setCalls)
	}
}

func TestControllerUpdateOptions(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
	defer c.Close()

	if got := c.RenderRange(); got != (Range{Start: 0, End: 22}) {
		t.Fatalf("initial render range = %+v, want [0,22]", got)
	}

	opts := DefaultOptions()
	opts.MinOverscan = 10
	opts.MaxOverscan = 40
	opts.EstimatedItemSize = 64 // must be ignored: sizes are pinned
	c.UpdateOptions(opts)

	if got := c.RenderRange(); got != (Range{Start: 0, End: 29}) {
		t.Errorf("render range after retune = %+v, want [0,29]", got)
	}
	if got := c.TotalSize(); got != 32000 {
		t.Errorf("total size after retune = %v, want 32000 (estimate pinned)", got)
	}
}

func TestControllerResize(t *testing.T) {
	host := newFakeHost(640)
	var mu sync.Mutex
	var last Range
	cb := Callbacks{
		OnVisibleRangeChange: func(r Range) {
			mu.Lock()
			last = r
			mu.Unlock()
		},
	}
	c := New(host, 1000, nil, DefaultOptions(), cb)
	defer c.Close()

	c.OnResize(320)
	if got := c.VisibleRange(); got != (Range{Start: 0, End: 9}) {
		t.Errorf("visible range after resize = %+v, want [0,9]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if last != (Range{Start: 0, End: 9}) {
		t.Errorf("callback range = %+v, want [0,9]", last)
	}
}

func TestPreserveResyncsController(t *testing.T) {
	host := newFakeHost(640)
	source := &sliceSource{ids: makeIDs(1000)}
	var mu sync.Mutex
	var lastOffset float64
	var lastRange Range
	cb := Callbacks{
		OnScrollChange: func(offset float64) {
			mu.Lock()
			lastOffset = offset
			mu.Unlock()
		},
		OnVisibleRangeChange: func(r Range) {
			mu.Lock()
			lastRange = r
			mu.Unlock()
		},
	}
	opts := DefaultOptions()
	opts.SettleDelay = time.Millisecond
	c := New(host, 1000, source, opts, cb)
	defer c.Close()

	host.SetScrollOffset(3200, false)
	c.OnScroll(3200)
	host.pump()
	if got := c.VisibleRange(); got != (Range{Start: 100, End: 119}) {
		t.Fatalf("visible range = %+v, want [100,119]", got)
	}

	// Insert 500 rows above the anchor (node-100, flush with the viewport
	// top). Restoration must land the host at the anchor's new position AND
	// pull the controller's derived state along with it.
	host.syncFrames = true
	err := c.Anchor().Preserve(context.Background(), func(context.Context) error {
		source.ids = append(makeRowIDs("extra", 500), source.ids...)
		c.SetItemCount(1500)
		return nil
	})
	if err != nil {
		t.Fatalf("Preserve: %v", err)
	}

	if got := host.ScrollOffset(); got != 19200 {
		t.Fatalf("host offset = %v, want 19200", got)
	}
	if got := c.ScrollState().Offset; got != 19200 {
		t.Errorf("controller offset = %v, want 19200 (stale pre-mutation offset)", got)
	}
	if got := c.VisibleRange(); got != (Range{Start: 600, End: 619}) {
		t.Errorf("visible range = %+v, want [600,619]", got)
	}
	if got := c.RenderRange(); got != (Range{Start: 597, End: 622}) {
		t.Errorf("render range = %+v, want [597,622]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if lastOffset != 19200 {
		t.Errorf("OnScrollChange offset = %v, want 19200", lastOffset)
	}
	if lastRange != (Range{Start: 600, End: 619}) {
		t.Errorf("OnVisibleRangeChange range = %+v, want [600,619]", lastRange)
	}
}

func makeRowIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d", prefix, i)
	}
	return ids
}

func TestMeasureDuringPreserveCycle(t *testing.T) {
	host := newFakeHost(640)
	host.syncFrames = true
	source := &sliceSource{ids: makeIDs(2000)}
	opts := DefaultOptions()
	opts.SettleDelay = 0
	c := New(host, 2000, source, opts, Callbacks{})
	defer c.Close()

	// Variable-height measurements arrive on the render path while preserve
	// cycles read cumulative offsets from the shared cache.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c.MeasureItem(i%2000, float64(16+i%48))
		}
	}()

	for i := 0; i < 50; i++ {
		err := c.Anchor().Preserve(context.Background(), func(context.Context) error {
			c.InvalidateFrom(1000)
			return nil
		})
		if err != nil {
			t.Fatalf("Preserve: %v", err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestControllerResetMetrics(t *testing.T) {
	host := newFakeHost(640)
	c := New(host, 1000, nil, DefaultOptions(), Callbacks{})
	defer c.Close()

	c.OnScroll(320)
	host.pump()
	if got := c.Metrics().ScrollEvents; got != 1 {
		t.Fatalf("scroll events = %d, want 1", got)
	}
	c.ResetMetrics()
	if got := c.Metrics().ScrollEvents; got != 0 {
		t.Errorf("scroll events after reset = %d, want 0", got)
	}
}
