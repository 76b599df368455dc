package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

// GenerateMarkdown creates a markdown report describing the shape of a node
// dataset: kind breakdown, depth statistics, and the heaviest containers.
func GenerateMarkdown(nodes []model.Node, title string) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	tree := model.NewTree()
	tree.Build(nodes)
	tree.ExpandAll()

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total nodes**: %d\n", len(nodes)))
	sb.WriteString(fmt.Sprintf("- **Roots**: %d\n", tree.RootCount()))
	sb.WriteString(fmt.Sprintf("- **Rows fully expanded**: %d\n\n", tree.RowCount()))

	// Kind breakdown
	kinds := map[model.NodeKind]int{}
	for _, n := range nodes {
		kinds[n.Kind]++
	}
	sb.WriteString("## Kinds\n\n")
	sb.WriteString("| Kind | Count |\n|---|---|\n")
	for _, k := range []model.NodeKind{model.KindContainer, model.KindComponent, model.KindWidget, model.KindAsset} {
		if kinds[k] > 0 {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", k, kinds[k]))
		}
	}
	sb.WriteString("\n")

	// Depth statistics over the fully expanded tree
	depths := make([]float64, 0, len(nodes))
	maxDepth := 0
	for _, n := range nodes {
		d := tree.Depth(n.ID)
		depths = append(depths, float64(d))
		if d > maxDepth {
			maxDepth = d
		}
	}
	if len(depths) > 0 {
		mean, std := stat.MeanStdDev(depths, nil)
		sb.WriteString("## Depth\n\n")
		sb.WriteString(fmt.Sprintf("- **Max depth**: %d\n", maxDepth))
		sb.WriteString(fmt.Sprintf("- **Mean depth**: %.2f\n", mean))
		if len(depths) > 1 {
			sb.WriteString(fmt.Sprintf("- **Std dev**: %.2f\n", std))
		}
		sb.WriteString("\n")
	}

	// Heaviest branches
	type branch struct {
		id       string
		label    string
		children int
	}
	var branches []branch
	for _, n := range nodes {
		if c := tree.ChildCount(n.ID); c > 0 {
			branches = append(branches, branch{id: n.ID, label: n.Label, children: c})
		}
	}
	sort.Slice(branches, func(i, j int) bool {
		if branches[i].children != branches[j].children {
			return branches[i].children > branches[j].children
		}
		return branches[i].id < branches[j].id
	})
	if len(branches) > 10 {
		branches = branches[:10]
	}
	if len(branches) > 0 {
		sb.WriteString("## Largest Branches\n\n")
		sb.WriteString("| ID | Label | Direct children |\n|---|---|---|\n")
		for _, b := range branches {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", b.id, sanitizeCell(b.label), b.children))
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// SaveMarkdownToFile generates the report and writes it to path.
func SaveMarkdownToFile(nodes []model.Node, path string) error {
	md, err := GenerateMarkdown(nodes, "Dataset Report")
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(md), 0644)
}

func sanitizeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}
