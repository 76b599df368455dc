package model

import (
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// ExpandState is the persisted expand/collapse state of a tree, saved so the
// user's layout survives restarts.
//
// Only explicit deviations from the default (expanded for depth <
// autoExpandDepth) are stored; nodes absent from the map use the default.
// A corrupted or missing file silently falls back to defaults.
type ExpandState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// ExpandStateVersion is the current schema version.
const ExpandStateVersion = 1

// SaveExpandState writes the tree's explicit expansion deviations to path.
// Errors are logged and swallowed; persistence must never interrupt the UI.
func (t *Tree) SaveExpandState(path string) {
	state := ExpandState{
		Version:  ExpandStateVersion,
		Expanded: make(map[string]bool),
	}
	for id, exp := range t.expanded {
		if len(t.children[id]) == 0 {
			continue
		}
		if exp != (t.depth[id] < autoExpandDepth) {
			state.Expanded[id] = exp
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("warning: failed to create state directory: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", path, err)
	}
}

// LoadExpandState applies persisted expansion state from path. Unknown IDs
// are stale and silently ignored; a missing or invalid file leaves the
// defaults in place.
func (t *Tree) LoadExpandState(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // first run
	}
	var state ExpandState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return
	}
	changed := false
	for id, exp := range state.Expanded {
		if _, ok := t.nodes[id]; !ok {
			continue
		}
		if t.expanded[id] != exp {
			t.expanded[id] = exp
			changed = true
		}
	}
	if changed {
		t.reflatten()
	}
}
