package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/Dicklesworthstone/virtualtree/pkg/config"
	"github.com/Dicklesworthstone/virtualtree/pkg/export"
	"github.com/Dicklesworthstone/virtualtree/pkg/loader"
	"github.com/Dicklesworthstone/virtualtree/pkg/model"
	"github.com/Dicklesworthstone/virtualtree/pkg/ui"
)

const version = "0.2.0"

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	dataPath := flag.String("data", "", "Load nodes from a JSONL file")
	dbPath := flag.String("db", "", "Load nodes lazily from a SQLite database")
	synthetic := flag.Int("synthetic", 0, "Generate a synthetic tree with N nodes")
	configPath := flag.String("config", "", "Tuning config file (.virtualtree/tuning.yaml)")
	watch := flag.Bool("watch", false, "Reload tuning when the config file changes")
	statePath := flag.String("state", "", "Expansion state file (default .virtualtree/state.json)")
	exportFile := flag.String("export-md", "", "Export a dataset report to a Markdown file (e.g., report.md)")
	dumpMetrics := flag.Bool("dump-metrics", false, "Print engine metrics as JSON on exit")
	flag.Parse()

	if *help {
		fmt.Println("Usage: vt [options]")
		fmt.Println("\nA virtualized tree viewer for large hierarchical datasets.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("vt %s\n", version)
		os.Exit(0)
	}

	tuning, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	opts := tuning.Options()

	state := *statePath
	if state == "" {
		state = filepath.Join(".virtualtree", "state.json")
	}

	cfg := ui.TreeViewConfig{
		Options:   opts,
		Theme:     ui.DefaultTheme(lipgloss.DefaultRenderer()),
		StatePath: state,
	}

	switch {
	case *dbPath != "":
		src, err := loader.OpenSQLite(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer src.Close()
		cfg.Source = src
	case *dataPath != "":
		src, err := loader.OpenJSONL(*dataPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading nodes: %v\n", err)
			os.Exit(1)
		}
		cfg.Source = src
	case *synthetic > 0:
		cfg.Nodes = syntheticNodes(*synthetic)
	default:
		fmt.Fprintln(os.Stderr, "Error: no dataset. Use --data, --db, or --synthetic N.")
		os.Exit(1)
	}

	if *exportFile != "" {
		nodes := cfg.Nodes
		if cfg.Source != nil {
			count, err := cfg.Source.Count()
			if err == nil && count > 0 {
				nodes, err = cfg.Source.LoadRange(context.Background(), 0, count-1)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading nodes for export: %v\n", err)
				os.Exit(1)
			}
		}
		if err := export.SaveMarkdownToFile(nodes, *exportFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d nodes to %s\n", len(nodes), *exportFile)
		os.Exit(0)
	}

	view, err := ui.NewTreeView(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing view: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if *watch && *configPath != "" {
		watcher, err := config.WatchTuning(*configPath, 200*time.Millisecond)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: config watch failed: %v\n", err)
		} else {
			defer watcher.Close()
			go func() {
				for t := range watcher.Updates() {
					p.Send(ui.TuningMsg{Options: t.Options()})
				}
			}()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}

	if *dumpMetrics {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(view.Controller().Metrics()); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding metrics: %v\n", err)
			os.Exit(1)
		}
	}
}

// syntheticNodes builds a three-level demo tree: containers holding
// components holding widgets, with a sprinkle of assets at the roots.
func syntheticNodes(n int) []model.Node {
	nodes := make([]model.Node, 0, n)
	var container, component string
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("node-%04d", i)
		switch {
		case i%40 == 0:
			container = id
			nodes = append(nodes, model.Node{
				ID: id, Label: fmt.Sprintf("Container %d", i/40), Kind: model.KindContainer, Order: i,
			})
		case i%8 == 0:
			component = id
			nodes = append(nodes, model.Node{
				ID: id, Label: fmt.Sprintf("Component %d", i), Kind: model.KindComponent, ParentID: container, Order: i,
			})
		case i%37 == 0:
			nodes = append(nodes, model.Node{
				ID: id, Label: fmt.Sprintf("Asset %d", i), Kind: model.KindAsset, ParentID: container, Order: i,
			})
		default:
			nodes = append(nodes, model.Node{
				ID: id, Label: fmt.Sprintf("Widget %d", i), Kind: model.KindWidget, ParentID: component, Order: i,
			})
		}
	}
	return nodes
}
