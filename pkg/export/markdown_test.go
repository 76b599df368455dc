package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

func sampleNodes() []model.Node {
	return []model.Node{
		{ID: "app", Label: "app", Kind: model.KindContainer},
		{ID: "header", Label: "header | top", Kind: model.KindComponent, ParentID: "app"},
		{ID: "nav", Label: "nav", Kind: model.KindWidget, ParentID: "header"},
		{ID: "logo", Label: "logo", Kind: model.KindAsset, ParentID: "header"},
		{ID: "body", Label: "body", Kind: model.KindComponent, ParentID: "app"},
	}
}

func TestGenerateMarkdownReport(t *testing.T) {
	md, err := GenerateMarkdown(sampleNodes(), "Sample")
	if err != nil {
		t.Fatalf("GenerateMarkdown: %v", err)
	}

	for _, want := range []string{
		"# Sample",
		"**Total nodes**: 5",
		"**Roots**: 1",
		"**Rows fully expanded**: 5",
		"| container | 1 |",
		"| component | 2 |",
		"**Max depth**: 2",
		"## Largest Branches",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// app and header both have 2 children; app sorts first by ID.
	appIdx := strings.Index(md, "| app |")
	headerIdx := strings.Index(md, "| header |")
	if appIdx < 0 || headerIdx < 0 || appIdx > headerIdx {
		t.Errorf("branch ordering wrong: app at %d, header at %d", appIdx, headerIdx)
	}

	// Pipes in labels must not break the table.
	if !strings.Contains(md, `header \| top`) {
		t.Error("pipe in label not escaped")
	}
	if strings.Contains(md, "| header | top |") {
		t.Error("raw pipe leaked into a table row")
	}
}

func TestGenerateMarkdownEmptyDataset(t *testing.T) {
	md, err := GenerateMarkdown(nil, "Empty")
	if err != nil {
		t.Fatalf("GenerateMarkdown: %v", err)
	}
	if !strings.Contains(md, "**Total nodes**: 0") {
		t.Error("empty dataset summary missing")
	}
	if strings.Contains(md, "## Depth") || strings.Contains(md, "## Largest Branches") {
		t.Error("empty dataset rendered statistics sections")
	}
}

func TestSaveMarkdownToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	if err := SaveMarkdownToFile(sampleNodes(), path); err != nil {
		t.Fatalf("SaveMarkdownToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "# Dataset Report") {
		t.Error("report file missing title")
	}
}

func TestSanitizeCellTruncates(t *testing.T) {
	long := strings.Repeat("x", 60)
	got := sanitizeCell(long)
	if len(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("sanitizeCell(long) = %q (len %d), want 40 chars ending in ...", got, len(got))
	}
	if got := sanitizeCell("a\nb"); got != "a b" {
		t.Errorf("newline handling = %q, want %q", got, "a b")
	}
}
