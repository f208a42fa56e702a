// Package ui hosts the terminal front end: the scrollable tree view, the
// status bar fed by busy handles, and the dialog overlays the sync engine
// talks to.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/appscope/appscope/pkg/tree"
)

// Theme holds the adaptive colors and shared styles for the terminal view.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	Selected lipgloss.Style
}

// DefaultTheme returns the standard light/dark adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#005f87", Dark: "#8BE9FD"},
		Secondary: lipgloss.AdaptiveColor{Light: "#6c71c4", Dark: "#BD93F9"},
		Muted:     lipgloss.AdaptiveColor{Light: "#707070", Dark: "#6272A4"},
		Highlight: lipgloss.AdaptiveColor{Light: "#b58900", Dark: "#F1FA8C"},
		Warning:   lipgloss.AdaptiveColor{Light: "#f57c00", Dark: "#ffb74d"},
		Danger:    lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#e57373"},
	}
	t.Selected = r.NewStyle().
		Background(lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#2a2a2a"}).
		Bold(true)
	return t
}

// IconGlyph maps an engine icon to its glyph and color.
func (t Theme) IconGlyph(icon tree.Icon) (string, lipgloss.AdaptiveColor) {
	switch icon {
	case tree.IconApp:
		return "◆", t.Primary
	case tree.IconAppDeleted:
		return "◇", t.Muted
	case tree.IconCopy:
		return "⧉", t.Secondary
	case tree.IconFolder:
		return "▸", t.Muted
	case tree.IconOwner:
		return "●", t.Highlight
	case tree.IconURI:
		return "→", t.Secondary
	case tree.IconPassword:
		return "⚷", t.Highlight
	case tree.IconCertificate:
		return "§", t.Highlight
	case tree.IconScope:
		return "○", t.Secondary
	case tree.IconRole:
		return "◎", t.Secondary
	case tree.IconWarning:
		return "!", t.Warning
	case tree.IconError:
		return "✗", t.Danger
	case tree.IconSpinner:
		return "…", t.Muted
	case tree.IconSignIn:
		return "⚿", t.Warning
	case tree.IconEmpty:
		return "∅", t.Muted
	default:
		return "·", t.Muted
	}
}
