package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeJSONL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodes.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenJSONLParsesRecords(t *testing.T) {
	path := writeJSONL(t, `{"id":"root","label":"Root","kind":"container"}

{"id":"child","label":"Child","kind":"widget","parent_id":"root","order":3}
`)
	s, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}
	if n, _ := s.Count(); n != 2 {
		t.Fatalf("count = %d, want 2 (blank line skipped)", n)
	}

	nodes, err := s.LoadRange(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("LoadRange: %v", err)
	}
	if len(nodes) != 2 || nodes[0].ID != "root" || nodes[1].ParentID != "root" {
		t.Errorf("nodes = %+v", nodes)
	}
	if nodes[1].Order != 3 {
		t.Errorf("order = %d, want 3", nodes[1].Order)
	}
}

func TestOpenJSONLMalformedLineReportsLineNumber(t *testing.T) {
	path := writeJSONL(t, `{"id":"a","label":"a","kind":"widget"}
{broken
`)
	_, err := OpenJSONL(path)
	if err == nil {
		t.Fatal("malformed line did not error")
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Errorf("error %q does not name line 2", err)
	}
}

func TestOpenJSONLRejectsMissingID(t *testing.T) {
	path := writeJSONL(t, `{"label":"anonymous","kind":"widget"}`)
	_, err := OpenJSONL(path)
	if err == nil || !strings.Contains(err.Error(), "without id") {
		t.Fatalf("err = %v, want missing-id error", err)
	}
}

func TestOpenJSONLMissingFile(t *testing.T) {
	if _, err := OpenJSONL(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatal("missing file did not error")
	}
}

func TestJSONLLoadRangeClamps(t *testing.T) {
	path := writeJSONL(t, `{"id":"a","label":"a","kind":"widget"}
{"id":"b","label":"b","kind":"widget"}
{"id":"c","label":"c","kind":"widget"}
`)
	s, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("OpenJSONL: %v", err)
	}

	nodes, err := s.LoadRange(context.Background(), -5, 100)
	if err != nil || len(nodes) != 3 {
		t.Errorf("clamped range: %d nodes, err %v; want 3, nil", len(nodes), err)
	}
	nodes, err = s.LoadRange(context.Background(), 2, 1)
	if err != nil || nodes != nil {
		t.Errorf("inverted range: %v, err %v; want nil, nil", nodes, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.LoadRange(ctx, 0, 2); err == nil {
		t.Error("cancelled context not honored")
	}
}
