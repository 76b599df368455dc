package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Dicklesworthstone/virtualtree/pkg/loader"
	"github.com/Dicklesworthstone/virtualtree/pkg/model"
	"github.com/Dicklesworthstone/virtualtree/pkg/virt"
)

const (
	frameInterval = time.Second / 60
	wheelRows     = 3.0
)

// frameMsg drives the host frame flush while the engine has queued work.
type frameMsg struct{}

// loadedMsg carries a chunk of rows delivered by the background loader.
type loadedMsg struct {
	start, end int
	nodes      []model.Node
}

// toggledMsg reports completion of an anchor-preserved mutation.
type toggledMsg struct{ err error }

// TuningMsg delivers re-tuned engine options, typically sent by a config
// watcher through Program.Send.
type TuningMsg struct {
	Options virt.Options
}

// TreeViewConfig configures a TreeView. Provide either Nodes (eager, fully
// in memory) or Source (lazy, hydrated chunk by chunk as the user scrolls).
type TreeViewConfig struct {
	Nodes   []model.Node
	Source  loader.RowSource
	Options virt.Options
	Theme   Theme

	// StatePath persists expansion state across runs when non-empty.
	StatePath string

	// Concurrency bounds background chunk loads; <= 0 means 4.
	Concurrency int
}

// TreeView renders a node tree through the windowing engine. Only the rows
// the engine hands back get rendered; everything else is scrollbar math.
//
// With a lazy Source the view starts in a flat phase: rows appear in dataset
// order with placeholders for chunks that have not arrived, and the preload
// callback drives the chunk loader. Once every chunk has landed the tree is
// built and expansion, collapse, and anchor preservation come alive.
type TreeView struct {
	theme Theme
	host  *termHost
	ctrl  *virt.Controller

	treeMu sync.Mutex
	tree   *model.Tree
	flat   []model.Node
	total  int

	chunks   *loader.ChunkLoader
	loadedCh chan loadedMsg
	hydrated bool

	statePath string
	selected  int
	width     int
	height    int
	ready     bool
	ticking   bool
	mutating  bool
	status    string

	help     helpOverlay
	showHelp bool
}

// NewTreeView wires the tree, the loader, and the engine together.
func NewTreeView(ctx context.Context, cfg TreeViewConfig) (*TreeView, error) {
	// Terminal rows are uniform, one unit tall.
	cfg.Options.EstimatedItemSize = 1

	v := &TreeView{
		theme:     cfg.Theme,
		host:      newTermHost(cfg.Options.MemoryThresholdMB),
		tree:      model.NewTree(),
		statePath: cfg.StatePath,
		help:      newHelpOverlay(cfg.Theme),
	}

	if cfg.Source != nil {
		v.loadedCh = make(chan loadedMsg, 16)
		chunks, err := loader.NewChunkLoader(ctx, cfg.Source,
			cfg.Options.PreloadChunkSize, cfg.Concurrency,
			func(start, end int, nodes []model.Node) {
				v.loadedCh <- loadedMsg{start: start, end: end, nodes: nodes}
			},
			func(err error) { log.Printf("warning: %v", err) },
		)
		if err != nil {
			return nil, err
		}
		v.chunks = chunks
		v.total = chunks.Count()
		v.flat = make([]model.Node, v.total)
	} else {
		v.tree.Build(cfg.Nodes)
		if cfg.StatePath != "" {
			v.tree.LoadExpandState(cfg.StatePath)
		}
		v.hydrated = true
		v.total = v.tree.RowCount()
	}

	v.ctrl = virt.New(v.host, v.total, v.tree, cfg.Options, virt.Callbacks{
		OnPreload:    v.preload,
		IsItemLoaded: v.isLoaded,
	})
	return v, nil
}

func (v *TreeView) preload(start, end int, priority virt.Priority) {
	if v.chunks != nil && !v.isHydrated() {
		v.chunks.Request(start, end, priority)
	}
}

func (v *TreeView) isLoaded(index int) bool {
	if v.chunks == nil || v.isHydrated() {
		return true
	}
	return v.chunks.IsLoaded(index)
}

func (v *TreeView) isHydrated() bool {
	v.treeMu.Lock()
	defer v.treeMu.Unlock()
	return v.hydrated
}

func (v *TreeView) Init() tea.Cmd {
	if v.loadedCh != nil {
		return v.listenLoaded()
	}
	return nil
}

func (v *TreeView) listenLoaded() tea.Cmd {
	return func() tea.Msg { return <-v.loadedCh }
}

// tickCmd keeps host frames flushing while the engine has pending work.
func (v *TreeView) tickCmd() tea.Cmd {
	if v.ticking {
		return nil
	}
	v.ticking = true
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return frameMsg{} })
}

func (v *TreeView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		rows := msg.Height - 2 // header + footer
		if rows < 1 {
			rows = 1
		}
		v.host.setViewport(rows)
		v.ctrl.OnResize(float64(rows))
		v.help.resize(msg.Width, msg.Height)
		cmds = append(cmds, v.tickCmd())

	case frameMsg:
		v.ticking = false
		v.host.flushFrame()
		if v.host.framePending() || v.mutating || v.scrolling() {
			cmds = append(cmds, v.tickCmd())
		}

	case loadedMsg:
		v.absorbChunk(msg)
		cmds = append(cmds, v.listenLoaded(), v.tickCmd())

	case TuningMsg:
		v.ctrl.UpdateOptions(msg.Options)
		v.status = "tuning reloaded"

	case toggledMsg:
		v.mutating = false
		if msg.err != nil {
			v.status = fmt.Sprintf("mutation failed: %v", msg.err)
		}
		cmds = append(cmds, v.tickCmd())

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			v.scrollBy(-wheelRows)
			cmds = append(cmds, v.tickCmd())
		case tea.MouseButtonWheelDown:
			v.scrollBy(wheelRows)
			cmds = append(cmds, v.tickCmd())
		}

	case tea.KeyMsg:
		if v.showHelp {
			switch msg.String() {
			case "esc", "?", "q":
				v.showHelp = false
			default:
				v.help.update(msg)
			}
			return v, nil
		}
		if cmd := v.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	return v, tea.Batch(cmds...)
}

func (v *TreeView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		v.saveState()
		v.ctrl.Close()
		if v.chunks != nil {
			v.chunks.Close()
		}
		return tea.Quit
	case "j", "down":
		return v.moveSelection(1)
	case "k", "up":
		return v.moveSelection(-1)
	case "ctrl+d", "pgdown":
		return v.moveSelection(int(v.host.ViewportSize()) / 2)
	case "ctrl+u", "pgup":
		return v.moveSelection(-int(v.host.ViewportSize()) / 2)
	case "g", "home":
		return v.moveSelection(-v.rowCount())
	case "G", "end":
		return v.moveSelection(v.rowCount())
	case "enter", " ":
		return v.toggleSelected()
	case "E":
		return v.mutateAll(true)
	case "C":
		return v.mutateAll(false)
	case "y":
		v.yank()
	case "?":
		v.showHelp = true
	}
	return nil
}

func (v *TreeView) rowCount() int {
	v.treeMu.Lock()
	defer v.treeMu.Unlock()
	if v.hydrated {
		return v.tree.RowCount()
	}
	return v.total
}

func (v *TreeView) scrolling() bool {
	return v.ctrl.ScrollState().Scrolling
}

func (v *TreeView) scrollBy(rows float64) {
	offset := v.host.ScrollOffset() + rows
	max := v.ctrl.TotalSize() - v.host.ViewportSize()
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	v.host.SetScrollOffset(offset, false)
	v.ctrl.OnScroll(offset)
	v.syncSelection()
}

// syncSelection drags the cursor along when wheel scrolling pushes it out of
// view.
func (v *TreeView) syncSelection() {
	vr := v.ctrl.VisibleRange()
	if vr.IsEmpty() {
		return
	}
	if v.selected < vr.Start {
		v.selected = vr.Start
	} else if v.selected > vr.End {
		v.selected = vr.End
	}
}

func (v *TreeView) moveSelection(delta int) tea.Cmd {
	count := v.rowCount()
	if count == 0 {
		return nil
	}
	v.selected += delta
	if v.selected < 0 {
		v.selected = 0
	}
	if v.selected > count-1 {
		v.selected = count - 1
	}
	vr := v.ctrl.VisibleRange()
	if v.selected < vr.Start {
		v.ctrl.ScrollToIndex(v.selected, virt.AlignStart, false)
	} else if v.selected > vr.End {
		v.ctrl.ScrollToIndex(v.selected, virt.AlignEnd, false)
	}
	return v.tickCmd()
}

// toggleSelected expands or collapses the selected node behind the anchor
// manager so the viewport does not jump when rows above shift.
func (v *TreeView) toggleSelected() tea.Cmd {
	if !v.isHydrated() || v.mutating {
		return nil
	}
	v.treeMu.Lock()
	node, ok := v.tree.Node(v.selected)
	if !ok || !v.tree.HasChildren(node.ID) {
		v.treeMu.Unlock()
		return nil
	}
	id := node.ID
	expanding := !v.tree.IsExpanded(id)
	v.treeMu.Unlock()

	anchor := v.ctrl.Anchor()
	index := v.selected
	mutation := func(context.Context) error {
		v.treeMu.Lock()
		v.tree.Toggle(id)
		count := v.tree.RowCount()
		v.treeMu.Unlock()
		v.ctrl.SetItemCount(count)
		return nil
	}

	v.mutating = true
	return tea.Batch(func() tea.Msg {
		var err error
		if expanding {
			err = anchor.PreserveExpand(context.Background(), index, mutation)
		} else {
			err = anchor.Preserve(context.Background(), mutation)
		}
		return toggledMsg{err: err}
	}, v.tickCmd())
}

func (v *TreeView) mutateAll(expand bool) tea.Cmd {
	if !v.isHydrated() || v.mutating {
		return nil
	}
	anchor := v.ctrl.Anchor()
	mutation := func(context.Context) error {
		v.treeMu.Lock()
		if expand {
			v.tree.ExpandAll()
		} else {
			v.tree.CollapseAll()
		}
		count := v.tree.RowCount()
		v.treeMu.Unlock()
		v.ctrl.SetItemCount(count)
		return nil
	}
	v.mutating = true
	return tea.Batch(func() tea.Msg {
		return toggledMsg{err: anchor.Preserve(context.Background(), mutation)}
	}, v.tickCmd())
}

func (v *TreeView) yank() {
	v.treeMu.Lock()
	var id string
	if v.hydrated {
		if node, ok := v.tree.Node(v.selected); ok {
			id = node.ID
		}
	} else if v.selected < len(v.flat) {
		id = v.flat[v.selected].ID
	}
	v.treeMu.Unlock()
	if id == "" {
		return
	}
	if err := clipboard.WriteAll(id); err != nil {
		log.Printf("warning: clipboard write failed: %v", err)
		v.status = "clipboard unavailable"
		return
	}
	v.status = fmt.Sprintf("yanked %s", id)
}

// absorbChunk files arrived rows and, once the last chunk lands, builds the
// tree and hands the engine the real row count.
func (v *TreeView) absorbChunk(msg loadedMsg) {
	v.treeMu.Lock()
	for i, n := range msg.nodes {
		if idx := msg.start + i; idx < len(v.flat) {
			v.flat[idx] = n
		}
	}
	complete := v.chunks.LoadedRows() >= v.total
	if complete && !v.hydrated {
		v.tree.Build(v.flat)
		if v.statePath != "" {
			v.tree.LoadExpandState(v.statePath)
		}
		v.hydrated = true
		count := v.tree.RowCount()
		v.treeMu.Unlock()
		v.ctrl.SetItemCount(count)
		v.status = "dataset loaded"
		return
	}
	v.treeMu.Unlock()
}

func (v *TreeView) saveState() {
	v.treeMu.Lock()
	defer v.treeMu.Unlock()
	if v.statePath != "" && v.hydrated {
		v.tree.SaveExpandState(v.statePath)
	}
}

func (v *TreeView) View() string {
	if !v.ready {
		return "Initializing..."
	}
	if v.showHelp {
		return v.help.view()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")

	items := v.ctrl.VirtualItems()
	offset := v.host.ScrollOffset()
	rows := int(v.host.ViewportSize())
	lines := make([]string, 0, rows)
	for _, it := range items {
		// Skip overscan rows above the viewport; they exist for the
		// render cache, not the screen.
		if it.Start+it.Size <= offset {
			continue
		}
		if it.Start >= offset+float64(rows) {
			break
		}
		lines = append(lines, v.renderRow(it.Index))
		if len(lines) == rows {
			break
		}
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	b.WriteString(v.renderFooter())
	return b.String()
}

func (v *TreeView) renderHeader() string {
	r := v.theme.Renderer
	title := r.NewStyle().Bold(true).Foreground(v.theme.Primary).Render("virtualtree")
	var info string
	v.treeMu.Lock()
	if v.hydrated {
		info = fmt.Sprintf("%d rows · %d roots", v.tree.RowCount(), v.tree.RootCount())
	} else {
		info = fmt.Sprintf("loading %d/%d rows", v.chunks.LoadedRows(), v.total)
	}
	v.treeMu.Unlock()
	infoStr := r.NewStyle().Foreground(v.theme.Subtext).Render(info)
	gap := v.width - lipgloss.Width(title) - lipgloss.Width(infoStr) - 2
	if gap < 1 {
		gap = 1
	}
	return " " + title + strings.Repeat(" ", gap) + infoStr
}

func (v *TreeView) renderRow(index int) string {
	r := v.theme.Renderer

	if !v.isLoaded(index) {
		return r.NewStyle().Foreground(v.theme.Muted).Render("  ┄ loading…")
	}

	v.treeMu.Lock()
	var node *model.Node
	var depth int
	var branch, expanded bool
	if v.hydrated {
		if n, ok := v.tree.Node(index); ok {
			node = n
			depth = v.tree.Depth(n.ID)
			branch = v.tree.HasChildren(n.ID)
			expanded = v.tree.IsExpanded(n.ID)
		}
	} else if index < len(v.flat) {
		node = &v.flat[index]
	}
	v.treeMu.Unlock()
	if node == nil {
		return ""
	}

	indicator := "  "
	if branch {
		if expanded {
			indicator = "▾ "
		} else {
			indicator = "▸ "
		}
	}
	icon, iconColor := v.theme.KindIcon(node.Kind)

	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(r.NewStyle().Foreground(v.theme.Secondary).Render(indicator))
	b.WriteString(r.NewStyle().Foreground(iconColor).Render(icon))
	b.WriteString(" ")
	b.WriteString(node.Label)

	line := b.String()
	avail := v.width - 2
	if avail > 0 && lipgloss.Width(line) > avail {
		line = runewidth.Truncate(line, avail, "…")
	}
	if index == v.selected {
		return r.NewStyle().Background(v.theme.SelBg).Width(v.width).Render(" " + line)
	}
	return " " + line
}

func (v *TreeView) renderFooter() string {
	r := v.theme.Renderer
	st := v.ctrl.ScrollState()
	vr := v.ctrl.VisibleRange()

	dir := "·"
	switch st.Direction {
	case virt.DirectionUp:
		dir = "▲"
	case virt.DirectionDown:
		dir = "▼"
	}
	scroll := fmt.Sprintf(" %s %.0f rows/s ", dir, st.Velocity)
	rng := fmt.Sprintf(" %d–%d of %d ", vr.Start+1, vr.End+1, v.rowCount())

	keys := "j/k: move · enter: expand · y: yank · ?: help · q: quit"
	if v.status != "" {
		keys = v.status
	}

	scrollSection := r.NewStyle().Background(v.theme.Primary).Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1F2937"}).Bold(true).Render(scroll)
	rngSection := r.NewStyle().Foreground(v.theme.Secondary).Render(rng)
	keysSection := r.NewStyle().Foreground(v.theme.Subtext).Padding(0, 1).Render(keys)

	remaining := v.width - lipgloss.Width(scrollSection) - lipgloss.Width(rngSection) - lipgloss.Width(keysSection)
	if remaining < 0 {
		remaining = 0
	}
	filler := strings.Repeat(" ", remaining)
	return lipgloss.JoinHorizontal(lipgloss.Bottom, scrollSection, rngSection, filler, keysSection)
}

// Controller exposes the engine for metrics dumps and tests.
func (v *TreeView) Controller() *virt.Controller { return v.ctrl }
