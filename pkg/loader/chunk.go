package loader

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
	"github.com/Dicklesworthstone/virtualtree/pkg/virt"
)

// ChunkLoader bridges the engine's preload callbacks to a RowSource. It
// aligns requests to chunk boundaries, deduplicates chunks that are already
// loaded or in flight (preload zones overlap constantly by design), and runs
// the actual loads on a bounded worker group off the UI goroutine.
//
// Request implements virt.PreloadFunc and IsLoaded implements
// virt.LoadedFunc.
type ChunkLoader struct {
	source    RowSource
	chunkSize int

	mu       sync.Mutex
	count    int
	loaded   map[int]bool // chunk index -> fully loaded
	inflight map[int]bool

	group  *errgroup.Group
	gctx   context.Context
	cancel context.CancelFunc

	// onLoaded receives each successfully loaded chunk, on a worker
	// goroutine. nil disables delivery.
	onLoaded func(start, end int, nodes []model.Node)

	// onError receives load failures. Failed chunks are cleared from the
	// inflight set so a later request retries them; the loader itself never
	// retries. nil falls back to log output.
	onError func(err error)
}

// NewChunkLoader creates a loader over source. chunkSize <= 0 defaults to
// 50; concurrency <= 0 defaults to 4.
func NewChunkLoader(ctx context.Context, source RowSource, chunkSize, concurrency int,
	onLoaded func(start, end int, nodes []model.Node), onError func(err error)) (*ChunkLoader, error) {

	if chunkSize <= 0 {
		chunkSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	count, err := source.Count()
	if err != nil {
		return nil, err
	}

	// A plain group, not errgroup.WithContext: that variant kills its context
	// the first time Wait returns, and the loader must keep serving requests
	// across Wait calls. Cancellation comes only from the caller's ctx and
	// Close.
	gctx, cancel := context.WithCancel(ctx)
	group := &errgroup.Group{}
	group.SetLimit(concurrency)

	return &ChunkLoader{
		source:    source,
		chunkSize: chunkSize,
		count:     count,
		loaded:    make(map[int]bool),
		inflight:  make(map[int]bool),
		group:     group,
		gctx:      gctx,
		cancel:    cancel,
		onLoaded:  onLoaded,
		onError:   onError,
	}, nil
}

// Count returns the row count observed at construction.
func (l *ChunkLoader) Count() int { return l.count }

// Request asks for the inclusive range [start, end]. Already-loaded and
// in-flight chunks are skipped, so overlapping zones cost nothing extra.
// Priority is accepted for interface compatibility; ordering across workers
// is handled by the engine dispatching high-priority zones first.
func (l *ChunkLoader) Request(start, end int, _ virt.Priority) {
	if l.count == 0 {
		return
	}
	if start < 0 {
		start = 0
	}
	if end > l.count-1 {
		end = l.count - 1
	}
	if start > end {
		return
	}

	firstChunk := start / l.chunkSize
	lastChunk := end / l.chunkSize

	l.mu.Lock()
	var chunks []int
	for c := firstChunk; c <= lastChunk; c++ {
		if l.loaded[c] || l.inflight[c] {
			continue
		}
		l.inflight[c] = true
		chunks = append(chunks, c)
	}
	l.mu.Unlock()

	for _, c := range chunks {
		c := c
		l.group.Go(func() error {
			l.loadChunk(c)
			return nil
		})
	}
}

// IsLoaded reports whether the row at index has data.
func (l *ChunkLoader) IsLoaded(index int) bool {
	if index < 0 || index >= l.count {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[index/l.chunkSize]
}

// LoadedRows returns how many rows have been loaded so far.
func (l *ChunkLoader) LoadedRows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for c := range l.loaded {
		end := (c+1)*l.chunkSize - 1
		if end > l.count-1 {
			end = l.count - 1
		}
		n += end - c*l.chunkSize + 1
	}
	return n
}

// Wait blocks until all in-flight chunks complete. Mainly for tests and
// shutdown.
func (l *ChunkLoader) Wait() { _ = l.group.Wait() }

// Close cancels outstanding loads and waits for workers to finish.
func (l *ChunkLoader) Close() {
	l.cancel()
	_ = l.group.Wait()
}

func (l *ChunkLoader) loadChunk(chunk int) {
	start := chunk * l.chunkSize
	end := start + l.chunkSize - 1
	if end > l.count-1 {
		end = l.count - 1
	}

	nodes, err := l.source.LoadRange(l.gctx, start, end)

	l.mu.Lock()
	delete(l.inflight, chunk)
	if err == nil {
		l.loaded[chunk] = true
	}
	l.mu.Unlock()

	if err != nil {
		if l.gctx.Err() != nil {
			return // shutdown, not a real failure
		}
		lerr := &LoadError{Start: start, End: end, Cause: err}
		if l.onError != nil {
			l.onError(lerr)
		} else {
			log.Printf("warning: %v", lerr)
		}
		return
	}
	if l.onLoaded != nil {
		l.onLoaded(start, end, nodes)
	}
}
