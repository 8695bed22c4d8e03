package ui

import (
	"math"
	"strings"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/interact"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// A terminal cell stands in for this many canvas pixels.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

// cellToPoint maps a cell relative to the canvas origin to the screen pixel
// at its center.
func cellToPoint(col, row int) model.Point {
	return model.Point{X: (float64(col) + 0.5) * cellWidth, Y: (float64(row) + 0.5) * cellHeight}
}

func pointToCell(p model.Point) (col, row int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

type styleKey struct {
	edge     bool
	category model.Category
	status   progress.Status
	selected bool
}

// grid is a fixed size character buffer with one style per cell. A zero
// rune marks the second half of a wide character.
type grid struct {
	w, h   int
	runes  []rune
	styles []styleKey
	used   []bool
}

func newGrid(w, h int) *grid {
	n := w * h
	g := &grid{w: w, h: h, runes: make([]rune, n), styles: make([]styleKey, n), used: make([]bool, n)}
	for i := range g.runes {
		g.runes[i] = ' '
	}
	return g
}

func (g *grid) set(x, y int, r rune, st styleKey) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	i := y*g.w + x
	g.runes[i] = r
	g.styles[i] = st
	g.used[i] = true
}

// text writes s from (x, y), clipped to the grid, and returns the next free
// column.
func (g *grid) text(x, y int, s string, st styleKey) int {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		g.set(x, y, r, st)
		if rw == 2 {
			g.set(x+1, y, 0, st)
		}
		x += rw
	}
	return x
}

func (g *grid) render(theme Theme) string {
	cache := make(map[styleKey]lipgloss.Style)
	styleFor := func(k styleKey) lipgloss.Style {
		if st, ok := cache[k]; ok {
			return st
		}
		var st lipgloss.Style
		if k.edge {
			st = theme.EdgeLine
		} else {
			st = theme.NodeStyle(k.category, k.status, k.selected)
		}
		cache[k] = st
		return st
	}

	var out strings.Builder
	var run strings.Builder
	for y := 0; y < g.h; y++ {
		if y > 0 {
			out.WriteByte('\n')
		}
		var (
			cur    styleKey
			styled bool
		)
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if styled {
				out.WriteString(styleFor(cur).Render(run.String()))
			} else {
				out.WriteString(run.String())
			}
			run.Reset()
		}
		for x := 0; x < g.w; x++ {
			i := y*g.w + x
			r := g.runes[i]
			if r == 0 {
				continue
			}
			if g.used[i] != styled || (styled && g.styles[i] != cur) {
				flush()
				styled = g.used[i]
				cur = g.styles[i]
			}
			run.WriteRune(r)
		}
		flush()
	}
	return out.String()
}

// canvasScene is what the canvas needs from a roadmap view.
type canvasScene struct {
	ctrl     *interact.Controller
	status   func(id string) progress.Status
	selected string
}

// renderCanvas draws connectors and node boxes as seen through the
// controller's zoom and pan into a w by h block of text.
func renderCanvas(sc canvasScene, theme Theme, w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	defer metrics.Timer(metrics.UIRender)()

	g := newGrid(w, h)
	r := sc.ctrl.Roadmap()
	if r.IsEmpty() {
		return g.render(theme)
	}
	for _, p := range sc.ctrl.Paths() {
		drawPath(g, sc.ctrl, p)
	}

	geom := sc.ctrl.Geometry()
	scale := sc.ctrl.Zoom().Scale()
	bw := max(6, int(math.Round(geom.NodeWidth*scale/cellWidth)))
	bh := max(3, int(math.Round(geom.NodeHeight*scale/cellHeight)))
	for i := range r.Nodes {
		n := &r.Nodes[i]
		x, y := pointToCell(sc.ctrl.ToScreen(n.Position()))
		st := styleKey{category: n.Category, status: sc.status(n.ID), selected: n.ID == sc.selected}
		drawBox(g, x, y, bw, bh, n.Title, st)
	}
	return g.render(theme)
}

func drawBox(g *grid, x, y, w, h int, title string, st styleKey) {
	for i := 1; i < w-1; i++ {
		g.set(x+i, y, '─', st)
		g.set(x+i, y+h-1, '─', st)
	}
	for j := 1; j < h-1; j++ {
		g.set(x, y+j, '│', st)
		g.set(x+w-1, y+j, '│', st)
		for i := 1; i < w-1; i++ {
			g.set(x+i, y+j, ' ', st)
		}
	}
	g.set(x, y, '┌', st)
	g.set(x+w-1, y, '┐', st)
	g.set(x, y+h-1, '└', st)
	g.set(x+w-1, y+h-1, '┘', st)

	label := StatusGlyph(st.status) + " " + title
	inner := w - 2
	label = runewidth.Truncate(label, inner, "…")
	pad := (inner - runewidth.StringWidth(label)) / 2
	g.text(x+1+pad, y+(h-1)/2, label, st)
}

func drawPath(g *grid, ctrl *interact.Controller, p connector.Path) {
	pts := p.Sample(16)
	if len(pts) < 2 {
		return
	}
	st := styleKey{edge: true}
	px, py := pointToCell(ctrl.ToScreen(pts[0]))
	for _, wp := range pts[1:] {
		x, y := pointToCell(ctrl.ToScreen(wp))
		line(g, px, py, x, y, p.Style, st)
		px, py = x, y
	}

	from, to := p.Tail()
	a, b := ctrl.ToScreen(from), ctrl.ToScreen(to)
	ex, ey := pointToCell(b)
	switch {
	case math.Abs(b.X-a.X) > math.Abs(b.Y-a.Y) && b.X > a.X:
		g.set(ex-1, ey, '▶', st)
	case math.Abs(b.X-a.X) > math.Abs(b.Y-a.Y):
		g.set(ex+1, ey, '◀', st)
	case b.Y >= a.Y:
		g.set(ex, ey-1, '▼', st)
	default:
		g.set(ex, ey+1, '▲', st)
	}
}

// line steps from one cell to another. Axis-aligned runs use box drawing
// characters; diagonal steps of curves use dots.
func line(g *grid, x0, y0, x1, y1 int, style connector.Style, st styleKey) {
	dx, dy := x1-x0, y1-y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + int(math.Round(float64(dx*i)/float64(steps)))
		y := y0 + int(math.Round(float64(dy*i)/float64(steps)))
		ch := '·'
		switch {
		case dx == 0:
			ch = '│'
		case dy == 0:
			ch = '─'
		case style == connector.Curve && abs(dy) > abs(dx):
			ch = '│'
		}
		g.set(x, y, ch, st)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
