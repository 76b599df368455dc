package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/virtualtree/pkg/model"
)

// Theme bundles the renderer and palette used by all views. Adaptive colors
// keep the tree readable on both light and dark terminals.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	SelBg     lipgloss.AdaptiveColor
}

// DefaultTheme builds the standard palette on top of r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
		Secondary: lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"},
		Highlight: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"},
		Muted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#4B5563"},
		Border:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"},
		SelBg:     lipgloss.AdaptiveColor{Light: "#E0E7FF", Dark: "#312E81"},
	}
}

// KindIcon returns the glyph and color for a node kind.
func (t Theme) KindIcon(kind model.NodeKind) (string, lipgloss.AdaptiveColor) {
	switch kind {
	case model.KindContainer:
		return "▣", t.Primary
	case model.KindComponent:
		return "◆", t.Secondary
	case model.KindWidget:
		return "▢", t.Highlight
	case model.KindAsset:
		return "●", t.Subtext
	default:
		return "•", t.Muted
	}
}
