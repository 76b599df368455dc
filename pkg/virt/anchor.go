package virt

import (
	"context"
	"math"
	"sync"
	"time"
)

// AnchorState tracks where a preserve cycle currently is.
type AnchorState int

const (
	AnchorIdle AnchorState = iota
	AnchorCapturing
	AnchorMutating
	AnchorRestoring
)

func (s AnchorState) String() string {
	switch s {
	case AnchorCapturing:
		return "capturing"
	case AnchorMutating:
		return "mutating"
	case AnchorRestoring:
		return "restoring"
	default:
		return "idle"
	}
}

// AnchorRecord pins an item identity to its pixel offset within the viewport
// at capture time. At most one record is live per manager; a new capture
// discards any stale one.
type AnchorRecord struct {
	ItemID         string
	ViewportOffset float64
	CapturedAt     time.Time
}

// AnchorSource resolves between row indices and stable item identities. The
// tree model implements it; tests back it with maps. Identities must survive
// the mutation for restoration to find the anchor again — when they don't,
// restoration is a benign no-op.
type AnchorSource interface {
	// RowID returns the stable identity of the row at index, false when the
	// index is out of range.
	RowID(index int) (string, bool)

	// IndexOf returns the current index of the row with the given identity,
	// false when no such row exists.
	IndexOf(id string) (int, bool)
}

// AnchorManager keeps the user's visual reference point stable across
// structural mutations (node expansion, data arrival). Preserve captures the
// first fully visible item and its offset from the viewport top, runs the
// caller's mutation, waits for the render layer to reflect it (one host
// frame plus a configurable settle delay), then re-seats the scroll offset
// so the anchor item reappears at the same visual offset.
//
// Cycles are serialized: a Preserve call that arrives while another is in
// flight blocks until the first completes. The state machine always returns
// to idle, including when the mutation fails or the anchor disappears.
type AnchorManager struct {
	// cycleMu serializes whole preserve cycles; stateMu guards the state
	// fields so State() stays readable while a cycle is in flight.
	cycleMu sync.Mutex
	stateMu sync.Mutex

	host    ScrollHost
	source  AnchorSource
	heights *HeightCache

	settle         time.Duration
	buffer         float64
	maintainExpand bool

	state  AnchorState
	record *AnchorRecord

	// onRestored, when set, receives the offset applied at the end of a
	// restore so the owning controller can resync its derived state. The
	// controller installs it at construction.
	onRestored func(offset float64)

	now func() time.Time
}

// NewAnchorManager wires an anchor manager to the host, identity source and
// height cache shared with the controller.
func NewAnchorManager(host ScrollHost, source AnchorSource, heights *HeightCache, opts Options) *AnchorManager {
	opts = opts.sanitized()
	return &AnchorManager{
		host:           host,
		source:         source,
		heights:        heights,
		settle:         opts.SettleDelay,
		buffer:         opts.AnchorBuffer,
		maintainExpand: opts.MaintainScrollDuringExpand,
		now:            time.Now,
	}
}

// applyOptions retunes the manager between cycles. Blocks while a cycle is
// in flight so tuning never changes mid-cycle.
func (m *AnchorManager) applyOptions(opts Options) {
	m.cycleMu.Lock()
	m.settle = opts.SettleDelay
	m.buffer = opts.AnchorBuffer
	m.maintainExpand = opts.MaintainScrollDuringExpand
	m.cycleMu.Unlock()
}

// State returns the current cycle state.
func (m *AnchorManager) State() AnchorState {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state
}

func (m *AnchorManager) setState(s AnchorState) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
}

// Preserve wraps mutation with the capture/restore protocol. The mutation's
// own error is propagated unchanged; anchor loss (the captured item no
// longer exists afterwards) is not an error. The context cancels the
// post-mutation waits, in which case restoration is skipped and ctx.Err()
// returned.
func (m *AnchorManager) Preserve(ctx context.Context, mutation func(context.Context) error) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.preserveLocked(ctx, mutation)
}

// PreserveExpand is Preserve with the expand-target optimization applied:
// when the target row sits below the visible viewport by more than the
// configured buffer, expanding it cannot move anything the user sees, so the
// whole capture/restore cycle is skipped and the mutation runs bare. The
// same happens when maintain-scroll-during-expand is disabled outright.
func (m *AnchorManager) PreserveExpand(ctx context.Context, targetIndex int, mutation func(context.Context) error) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	if !m.maintainExpand || m.targetBelowViewport(targetIndex) {
		m.setState(AnchorMutating)
		err := mutation(ctx)
		m.setState(AnchorIdle)
		return err
	}
	return m.preserveLocked(ctx, mutation)
}

// targetBelowViewport reports whether the row at targetIndex starts more
// than the buffer margin past the viewport's bottom edge.
func (m *AnchorManager) targetBelowViewport(targetIndex int) bool {
	if targetIndex < 0 || targetIndex >= m.heights.Count() {
		return false
	}
	bottom := m.host.ScrollOffset() + m.host.ViewportSize()
	return m.heights.Offset(targetIndex) > bottom+m.buffer
}

func (m *AnchorManager) preserveLocked(ctx context.Context, mutation func(context.Context) error) error {
	m.setState(AnchorCapturing)
	m.record = m.capture()

	m.setState(AnchorMutating)
	if err := mutation(ctx); err != nil {
		m.record = nil
		m.setState(AnchorIdle)
		return err
	}

	m.setState(AnchorRestoring)
	err := m.restore(ctx)
	m.record = nil
	m.setState(AnchorIdle)
	return err
}

// capture records the first fully visible item and its offset from the
// viewport top. Returns nil when nothing is rendered (empty list), in which
// case restore is a no-op.
func (m *AnchorManager) capture() *AnchorRecord {
	count := m.heights.Count()
	if count == 0 {
		return nil
	}
	offset := m.host.ScrollOffset()
	idx := m.heights.IndexAt(offset)
	if idx < 0 {
		return nil
	}
	// First index whose top edge is at or below the viewport top.
	if m.heights.Offset(idx) < offset && idx+1 < count {
		idx++
	}
	id, ok := m.source.RowID(idx)
	if !ok {
		return nil
	}
	return &AnchorRecord{
		ItemID:         id,
		ViewportOffset: m.heights.Offset(idx) - offset,
		CapturedAt:     m.now(),
	}
}

// restore waits one render frame plus the settle delay, then re-seats the
// scroll offset so the anchor item reappears at its captured viewport
// offset. A vanished anchor (or an empty capture) returns nil without
// touching the scroll position.
func (m *AnchorManager) restore(ctx context.Context) error {
	if m.record == nil {
		return nil
	}

	frame := make(chan struct{})
	m.host.OnFrame(func() { close(frame) })
	select {
	case <-frame:
	case <-ctx.Done():
		return ctx.Err()
	}

	if m.settle > 0 {
		timer := time.NewTimer(m.settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	idx, ok := m.source.IndexOf(m.record.ItemID)
	if !ok {
		return nil // anchor removed by the mutation; nothing to restore
	}

	target := m.heights.Offset(idx) - m.record.ViewportOffset
	maxOffset := m.heights.TotalSize() - m.host.ViewportSize()
	if maxOffset < 0 {
		maxOffset = 0
	}
	target = math.Max(0, math.Min(target, maxOffset))
	m.host.SetScrollOffset(target, false)
	if m.onRestored != nil {
		m.onRestored(target)
	}
	return nil
}
