// Package layout assigns display coordinates to roadmap nodes.
//
// One Engine serves every page; the placement algorithm is chosen with a
// Strategy. Layout is deterministic: the same nodes and edges always produce
// the same coordinates. Coordinates are written into the roadmap's nodes in
// place and denote the top-left corner of each node box.
package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/vanderheijden86/sage/pkg/debug"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"
)

// Strategy selects the placement algorithm.
type Strategy string

const (
	// Serpentine places nodes in reading order on a fixed-column grid whose
	// rows alternate direction.
	Serpentine Strategy = "serpentine"
	// Hierarchical ranks nodes by longest path from a source and orders each
	// rank to reduce edge crossings. Cyclic input falls back to Serpentine.
	Hierarchical Strategy = "hierarchical"
)

// Strategies lists the available strategies in cycling order.
var Strategies = []Strategy{Hierarchical, Serpentine}

// ParseStrategy converts user input into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serpentine", "grid", "snake":
		return Serpentine, nil
	case "hierarchical", "tree", "dag", "":
		return Hierarchical, nil
	}
	return "", fmt.Errorf("unknown layout strategy %q (want serpentine or hierarchical)", s)
}

// Next returns the strategy after s in Strategies.
func (s Strategy) Next() Strategy {
	for i, st := range Strategies {
		if st == s {
			return Strategies[(i+1)%len(Strategies)]
		}
	}
	return Strategies[0]
}

// Geometry holds the fixed sizes both strategies place nodes with.
type Geometry struct {
	NodeWidth  float64 `yaml:"node_width,omitempty"`
	NodeHeight float64 `yaml:"node_height,omitempty"`

	// Serpentine grid.
	Columns     int     `yaml:"columns,omitempty"`
	ColumnWidth float64 `yaml:"column_width,omitempty"`
	RowHeight   float64 `yaml:"row_height,omitempty"`

	// Hierarchical ranks.
	RankGap float64 `yaml:"rank_gap,omitempty"`
	NodeGap float64 `yaml:"node_gap,omitempty"`

	Padding float64 `yaml:"padding,omitempty"`
}

// DefaultGeometry returns the sizes used by the roadmap pages.
func DefaultGeometry() Geometry {
	return Geometry{
		NodeWidth:   200,
		NodeHeight:  64,
		Columns:     3,
		ColumnWidth: 260,
		RowHeight:   140,
		RankGap:     140,
		NodeGap:     40,
		Padding:     40,
	}
}

// Normalized fills zero values from DefaultGeometry and widens grid cells
// that are smaller than a node, so placements can never overlap.
func (g Geometry) Normalized() Geometry {
	def := DefaultGeometry()
	if g.NodeWidth <= 0 {
		g.NodeWidth = def.NodeWidth
	}
	if g.NodeHeight <= 0 {
		g.NodeHeight = def.NodeHeight
	}
	if g.Columns <= 0 {
		g.Columns = def.Columns
	}
	if g.ColumnWidth < g.NodeWidth {
		g.ColumnWidth = math.Max(def.ColumnWidth, g.NodeWidth)
	}
	if g.RowHeight < g.NodeHeight {
		g.RowHeight = math.Max(def.RowHeight, g.NodeHeight)
	}
	if g.RankGap < g.NodeHeight {
		g.RankGap = math.Max(def.RankGap, g.NodeHeight)
	}
	if g.NodeGap < 0 {
		g.NodeGap = def.NodeGap
	}
	if g.Padding < 0 {
		g.Padding = 0
	}
	return g
}

// Result describes an applied layout.
type Result struct {
	// Strategy is the algorithm that actually ran.
	Strategy Strategy
	// FellBack is set when Hierarchical could not order the graph.
	FellBack bool
	// Rows is the number of grid rows or ranks used.
	Rows int
	// Width and Height bound every node including padding.
	Width  float64
	Height float64
}

// Engine lays out roadmaps with a configured strategy and geometry.
type Engine struct {
	strategy Strategy
	geom     Geometry
}

// New creates an Engine. An empty strategy selects Hierarchical.
func New(strategy Strategy, geom Geometry) *Engine {
	if strategy == "" {
		strategy = Hierarchical
	}
	return &Engine{strategy: strategy, geom: geom.Normalized()}
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// Geometry returns the normalized geometry.
func (e *Engine) Geometry() Geometry { return e.geom }

// WithStrategy returns a copy of e using s.
func (e *Engine) WithStrategy(s Strategy) *Engine {
	return New(s, e.geom)
}

// Apply positions every node of r. A nil or empty roadmap is a no-op.
func (e *Engine) Apply(r *model.Roadmap) Result {
	if r.IsEmpty() {
		return Result{Strategy: e.strategy}
	}
	defer metrics.Timer(metrics.LayoutCompute)()

	var res Result
	switch e.strategy {
	case Serpentine:
		res = serpentine(r, e.geom)
	default:
		var ok bool
		res, ok = hierarchical(r, e.geom)
		if !ok {
			res = serpentine(r, e.geom)
			res.FellBack = true
		}
	}
	debug.LogIf(res.FellBack, "layout: %q is not orderable, fell back to serpentine", r.Title)
	res.Width, res.Height = Bounds(r, e.geom)
	return res
}

// Bounds returns the canvas size needed to show every node of r with the
// geometry's padding on all sides.
func Bounds(r *model.Roadmap, g Geometry) (width, height float64) {
	g = g.Normalized()
	if r.IsEmpty() {
		return 2 * g.Padding, 2 * g.Padding
	}
	maxX, maxY := 0.0, 0.0
	for _, n := range r.Nodes {
		maxX = math.Max(maxX, n.X+g.NodeWidth)
		maxY = math.Max(maxY, n.Y+g.NodeHeight)
	}
	return maxX + g.Padding, maxY + g.Padding
}

// NodeAt returns the index of the topmost node whose box contains p, or -1.
// Later nodes are drawn over earlier ones, so the search runs backwards.
func NodeAt(r *model.Roadmap, g Geometry, p model.Point) int {
	if r == nil {
		return -1
	}
	g = g.Normalized()
	for i := len(r.Nodes) - 1; i >= 0; i-- {
		n := r.Nodes[i]
		if p.X >= n.X && p.X <= n.X+g.NodeWidth && p.Y >= n.Y && p.Y <= n.Y+g.NodeHeight {
			return i
		}
	}
	return -1
}
