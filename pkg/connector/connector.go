// Package connector routes the lines drawn between roadmap nodes.
//
// Paths leave the source's bottom-center and enter the target's top-center.
// Nodes sharing a layout row are joined side to side instead. Edges naming a
// node that does not exist are skipped.
package connector

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"
)

// Style selects how a path is drawn.
type Style string

const (
	// Pipe routes orthogonally: drop, jog, drop.
	Pipe Style = "pipe"
	// Curve draws a cubic Bezier with vertical tangents at both ends.
	Curve Style = "curve"
)

// Styles lists the available styles in cycling order.
var Styles = []Style{Pipe, Curve}

// ParseStyle converts user input into a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pipe", "orthogonal", "":
		return Pipe, nil
	case "curve", "bezier":
		return Curve, nil
	}
	return "", fmt.Errorf("unknown connector style %q (want pipe or curve)", s)
}

// Next returns the style after s in Styles.
func (s Style) Next() Style {
	if s == Pipe {
		return Curve
	}
	return Pipe
}

// Path is one routed edge.
type Path struct {
	From    string
	To      string
	Style   Style
	SameRow bool
	// Points holds polyline vertices for pipes and straight same-row
	// links, and start, control1, control2, end for curves.
	Points []model.Point
}

// Start returns the anchor on the source node.
func (p Path) Start() model.Point { return p.Points[0] }

// End returns the anchor on the target node.
func (p Path) End() model.Point { return p.Points[len(p.Points)-1] }

func (p Path) isCurve() bool {
	return p.Style == Curve && len(p.Points) == 4
}

// Tail returns the final direction of the path as a segment ending at End,
// for drawing arrow heads.
func (p Path) Tail() (from, to model.Point) {
	end := p.End()
	for i := len(p.Points) - 2; i >= 0; i-- {
		if p.Points[i] != end {
			return p.Points[i], end
		}
	}
	return end, end
}

// D returns SVG path data.
func (p Path) D() string {
	if len(p.Points) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("M ")
	writePoint(&b, p.Points[0])
	if p.isCurve() {
		b.WriteString(" C ")
		writePoint(&b, p.Points[1])
		b.WriteString(", ")
		writePoint(&b, p.Points[2])
		b.WriteString(", ")
		writePoint(&b, p.Points[3])
		return b.String()
	}
	for _, pt := range p.Points[1:] {
		b.WriteString(" L ")
		writePoint(&b, pt)
	}
	return b.String()
}

func writePoint(b *strings.Builder, pt model.Point) {
	b.WriteString(strconv.FormatFloat(pt.X, 'f', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(pt.Y, 'f', -1, 64))
}

// Sample approximates the path with a polyline. Pipes return their vertices;
// curves are evaluated at steps+1 evenly spaced parameters.
func (p Path) Sample(steps int) []model.Point {
	if !p.isCurve() {
		return append([]model.Point(nil), p.Points...)
	}
	if steps < 1 {
		steps = 1
	}
	p0, p1, p2, p3 := p.Points[0], p.Points[1], p.Points[2], p.Points[3]
	out := make([]model.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		out = append(out, model.Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return out
}

// Router computes paths for a roadmap's current node positions.
type Router struct {
	style Style
	geom  layout.Geometry
}

// NewRouter creates a Router. An empty style selects Pipe.
func NewRouter(style Style, geom layout.Geometry) *Router {
	if style == "" {
		style = Pipe
	}
	return &Router{style: style, geom: geom.Normalized()}
}

// Style returns the router's style.
func (rt *Router) Style() Style { return rt.style }

// WithStyle returns a copy of rt drawing with s.
func (rt *Router) WithStyle(s Style) *Router {
	return NewRouter(s, rt.geom)
}

// Route returns one path per edge whose endpoints both exist, in edge order.
// Self loops are not drawn.
func (rt *Router) Route(r *model.Roadmap) []Path {
	if r.IsEmpty() {
		return nil
	}
	defer metrics.Timer(metrics.ConnectorRoute)()

	idx := r.Index()
	paths := make([]Path, 0, len(r.Edges))
	for _, e := range r.Edges {
		fi, ok := idx[e.From]
		if !ok {
			continue
		}
		ti, ok := idx[e.To]
		if !ok || fi == ti {
			continue
		}
		paths = append(paths, rt.route(e, r.Nodes[fi], r.Nodes[ti]))
	}
	return paths
}

func (rt *Router) route(e model.Edge, from, to model.Node) Path {
	w, h := rt.geom.NodeWidth, rt.geom.NodeHeight
	p := Path{From: e.From, To: e.To, Style: rt.style}

	if math.Abs(from.Y-to.Y) < h/2 {
		p.SameRow = true
		y := (from.Y+to.Y)/2 + h/2
		if to.X >= from.X {
			p.Points = []model.Point{{X: from.X + w, Y: y}, {X: to.X, Y: y}}
		} else {
			p.Points = []model.Point{{X: from.X, Y: y}, {X: to.X + w, Y: y}}
		}
		return p
	}

	start := model.Point{X: from.X + w/2, Y: from.Y + h}
	end := model.Point{X: to.X + w/2, Y: to.Y}

	if rt.style == Curve {
		dy := (end.Y - start.Y) / 2
		p.Points = []model.Point{
			start,
			{X: start.X, Y: start.Y + dy},
			{X: end.X, Y: end.Y - dy},
			end,
		}
		return p
	}

	if start.X == end.X {
		p.Points = []model.Point{start, end}
		return p
	}
	midY := (start.Y + end.Y) / 2
	p.Points = []model.Point{
		start,
		{X: start.X, Y: midY},
		{X: end.X, Y: midY},
		end,
	}
	return p
}
