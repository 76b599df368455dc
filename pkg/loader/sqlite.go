package loader

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

// SQLiteSource serves rows from a SQLite database with a `nodes` table:
//
//	CREATE TABLE nodes (
//	  idx       INTEGER PRIMARY KEY,  -- dense 0-based row index
//	  id        TEXT NOT NULL UNIQUE,
//	  label     TEXT NOT NULL,
//	  kind      TEXT NOT NULL,
//	  parent_id TEXT NOT NULL DEFAULT '',
//	  ord       INTEGER NOT NULL DEFAULT 0
//	);
//
// Range loads translate directly to an indexed BETWEEN query, so only the
// requested window is ever pulled off disk — the point of preload chunking.
type SQLiteSource struct {
	db *sql.DB
}

// OpenSQLite opens the database read-only and verifies the nodes table is
// reachable.
func OpenSQLite(path string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify nodes table in %s: %w", path, err)
	}
	return &SQLiteSource{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteSource) Close() error { return s.db.Close() }

// Count implements RowSource.
func (s *SQLiteSource) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// LoadRange implements RowSource.
func (s *SQLiteSource) LoadRange(ctx context.Context, start, end int) ([]model.Node, error) {
	if start < 0 {
		start = 0
	}
	if start > end {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, kind, parent_id, ord FROM nodes WHERE idx BETWEEN ? AND ? ORDER BY idx`,
		start, end)
	if err != nil {
		return nil, &LoadError{Start: start, End: end, Cause: err}
	}
	defer rows.Close()

	var out []model.Node
	for rows.Next() {
		var n model.Node
		var kind string
		if err := rows.Scan(&n.ID, &n.Label, &kind, &n.ParentID, &n.Order); err != nil {
			return nil, &LoadError{Start: start, End: end, Cause: err}
		}
		n.Kind = model.NodeKind(kind)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Start: start, End: end, Cause: err}
	}
	return out, nil
}
