package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const helpMarkdown = `# virtualtree

Scroll through trees of any size; only the rows on screen are rendered.

## Navigation

| Key | Action |
|---|---|
| j / k | Move selection down / up |
| ctrl+d / ctrl+u | Half page down / up |
| g / G | Jump to top / bottom |
| mouse wheel | Scroll the viewport |

## Tree

| Key | Action |
|---|---|
| enter / space | Expand or collapse the selected node |
| E | Expand all |
| C | Collapse all |
| y | Copy node ID to clipboard |

## Other

| Key | Action |
|---|---|
| ? | Toggle this help |
| q / ctrl+c | Quit |

Expansion state is saved on quit and restored on the next run. While a large
dataset streams in, unloaded rows show as placeholders and fill in as their
chunks arrive.
`

// helpOverlay shows rendered markdown help in a scrollable viewport.
type helpOverlay struct {
	theme    Theme
	viewport viewport.Model
	rendered string
	width    int
	height   int
}

func newHelpOverlay(theme Theme) helpOverlay {
	return helpOverlay{theme: theme}
}

func (h *helpOverlay) resize(width, height int) {
	h.width = width
	h.height = height

	wrap := width - 8
	if wrap > 76 {
		wrap = 76
	}
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		if out, rerr := r.Render(helpMarkdown); rerr == nil {
			h.rendered = out
		}
	}
	if h.rendered == "" {
		h.rendered = helpMarkdown
	}

	h.viewport = viewport.New(width-6, height-4)
	h.viewport.SetContent(h.rendered)
}

func (h *helpOverlay) update(msg tea.KeyMsg) {
	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	_ = cmd
}

func (h *helpOverlay) view() string {
	r := h.theme.Renderer
	footer := r.NewStyle().Foreground(h.theme.Muted).Italic(true).
		Render("j/k to scroll · esc to close")

	body := h.viewport.View() + "\n" + footer
	frame := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(h.theme.Border).
		Padding(0, 2).
		Width(h.width - 4)

	out := frame.Render(body)
	// Center vertically so short terminals still see the top.
	pad := (h.height - lipgloss.Height(out)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", pad) + out
}
