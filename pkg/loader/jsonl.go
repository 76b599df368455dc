package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

// JSONLSource reads node records from a JSON-lines file, one node object per
// line. The whole file is parsed once at open; LoadRange then serves slices
// from memory. Good enough for datasets that fit in RAM, which is the common
// case for design-tool documents.
type JSONLSource struct {
	nodes []model.Node
}

// OpenJSONL parses the file at path. Blank lines are skipped; a malformed
// line aborts the load with its line number so the user can fix the file.
func OpenJSONL(path string) (*JSONLSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var nodes []model.Node
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var n model.Node
		if err := json.Unmarshal(line, &n); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		if n.ID == "" {
			return nil, fmt.Errorf("%s:%d: node without id", path, lineNo)
		}
		nodes = append(nodes, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &JSONLSource{nodes: nodes}, nil
}

// Count implements RowSource.
func (s *JSONLSource) Count() (int, error) { return len(s.nodes), nil }

// LoadRange implements RowSource.
func (s *JSONLSource) LoadRange(ctx context.Context, start, end int) ([]model.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end > len(s.nodes)-1 {
		end = len(s.nodes) - 1
	}
	if start > end {
		return nil, nil
	}
	out := make([]model.Node, end-start+1)
	copy(out, s.nodes[start:end+1])
	return out, nil
}
