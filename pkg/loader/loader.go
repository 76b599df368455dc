// Package loader implements the data-loading collaborator the virtualization
// engine preloads through: row sources (JSONL, SQLite) and a chunked
// asynchronous loader that fans preload requests out to bounded workers.
package loader

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

// RowSource supplies tree rows by index range. Implementations must treat
// overlapping ranges as idempotent: the chunk loader will happily ask for a
// range twice under races.
type RowSource interface {
	// Count returns the total number of rows available.
	Count() (int, error)

	// LoadRange returns the rows in the inclusive index interval
	// [start, end], in order. Ranges beyond Count are truncated, not errors.
	LoadRange(ctx context.Context, start, end int) ([]model.Node, error)
}

// LoadError wraps a range-load failure with its range context.
type LoadError struct {
	Start int
	End   int
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load rows [%d,%d]: %v", e.Start, e.End, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }
