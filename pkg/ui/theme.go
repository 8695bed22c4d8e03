package ui

import (
	"os"

	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns hex on TrueColor terminals and NoColor elsewhere, so
// low-color terminals keep their own background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns hex on ANSI256+ terminals and ANSI white otherwise.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme is every style the pages draw with.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor

	Required    lipgloss.AdaptiveColor
	Recommended lipgloss.AdaptiveColor
	Alternative lipgloss.AdaptiveColor
	Anytime     lipgloss.AdaptiveColor
	Done        lipgloss.AdaptiveColor
	InProgress  lipgloss.AdaptiveColor
	Edge        lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Brand    lipgloss.Style
	NavItem  lipgloss.Style
	NavOn    lipgloss.Style
	Footer   lipgloss.Style
	Title    lipgloss.Style
	Panel    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Banner   lipgloss.Style
	Selected lipgloss.Style
	MutedTxt lipgloss.Style
	EdgeLine lipgloss.Style
}

// DefaultTheme returns the CareerSage palette.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"},
		Subtext: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Muted:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"},

		Required:    lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FDE68A"},
		Recommended: lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#DDD6FE"},
		Alternative: lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#E5E7EB"},
		Anytime:     lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#BFDBFE"},
		Done:        lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#BBF7D0"},
		InProgress:  lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#F97316"},
		Edge:        lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#2563EB"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#111111", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(t.Border)
	t.Brand = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.NavItem = r.NewStyle().Foreground(t.Subtext).Padding(0, 1)
	t.NavOn = r.NewStyle().Foreground(t.Primary).Bold(true).Underline(true).Padding(0, 1)
	t.Footer = r.NewStyle().Foreground(t.Muted)
	t.Title = r.NewStyle().Bold(true)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.Error = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"})
	t.Banner = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(t.InProgress).
		Padding(0, 1)
	t.Selected = r.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)
	t.MutedTxt = r.NewStyle().Foreground(t.Muted)
	t.EdgeLine = r.NewStyle().Foreground(ThemeFg("#2563EB"))
	return t
}

// CategoryColor is the box color of an incomplete node.
func (t Theme) CategoryColor(c model.Category) lipgloss.AdaptiveColor {
	switch c {
	case model.CategoryRecommended:
		return t.Recommended
	case model.CategoryAlternative:
		return t.Alternative
	case model.CategoryAnytime:
		return t.Anytime
	default:
		return t.Required
	}
}

// NodeStyle styles a node box border and label.
func (t Theme) NodeStyle(c model.Category, s progress.Status, selected bool) lipgloss.Style {
	st := t.Renderer.NewStyle().Foreground(t.CategoryColor(c))
	switch s {
	case progress.Done:
		st = st.Foreground(t.Done)
	case progress.InProgress:
		st = st.Foreground(t.InProgress).Bold(true)
	}
	if selected {
		st = st.Reverse(true)
	}
	return st
}

// StatusGlyph marks a node's completion in lists.
func StatusGlyph(s progress.Status) string {
	switch s {
	case progress.Done:
		return "✓"
	case progress.InProgress:
		return "▶"
	default:
		return "○"
	}
}
