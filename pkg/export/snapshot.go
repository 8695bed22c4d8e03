// Package export renders laid-out roadmaps to files: SVG and PNG snapshots
// and a Markdown report.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/metrics"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// Formats.
const (
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatMarkdown = "md"
)

// StatusFunc reports a node's completion state.
type StatusFunc func(id string) progress.Status

// Options controls a snapshot.
type Options struct {
	Path   string // output path; format inferred from extension when Format is empty
	Format string // "svg", "png" or "md"

	// Roadmap must already be laid out.
	Roadmap  *model.Roadmap
	Geometry layout.Geometry
	// Paths are the routed connectors. Nil routes with pipe style.
	Paths []connector.Path
	// Status overrides completion state derived from Roadmap.Completed.
	Status StatusFunc
	// Subtitle is printed under the title, e.g. the layout strategy.
	Subtitle string
}

// FormatFor resolves the output format from an explicit format or the
// path's extension.
func FormatFor(path, format string) (string, error) {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png":
			format = FormatPNG
		case ".md", ".markdown":
			format = FormatMarkdown
		default:
			format = FormatSVG
		}
	}
	switch format {
	case FormatSVG, FormatPNG, FormatMarkdown:
		return format, nil
	}
	return "", fmt.Errorf("unsupported format %q (want svg, png or md)", format)
}

// Save renders opts to opts.Path.
func Save(opts Options) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	format, err := FormatFor(opts.Path, opts.Format)
	if err != nil {
		return err
	}
	if opts.Roadmap.IsEmpty() {
		return fmt.Errorf("roadmap has no nodes to export")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = RenderPNG(&buf, opts)
	case FormatMarkdown:
		err = RenderMarkdown(&buf, opts)
	default:
		err = RenderSVG(&buf, opts)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(opts.Path, buf.Bytes(), 0o644)
}

// --- scene -----------------------------------------------------------------

const (
	headerHeight = 120.0
	minWidth     = 640.0
	minHeight    = 480.0
	titleWidth   = 26 // node title characters per line
)

type sceneNode struct {
	model.Node
	Status progress.Status
}

type scene struct {
	Nodes  []sceneNode
	Paths  []connector.Path
	Geom   layout.Geometry
	Width  int
	Height int

	Title    string
	Subtitle string
	Done     int
	Total    int
	Percent  int
}

func buildScene(opts Options) scene {
	r := opts.Roadmap
	geom := opts.Geometry.Normalized()

	status := opts.Status
	if status == nil {
		t := progress.New(context.Background(), r, nil)
		defer t.Close()
		status = t.Status
	}

	paths := opts.Paths
	if paths == nil {
		paths = connector.NewRouter(connector.Pipe, geom).Route(r)
	}

	s := scene{Geom: geom, Paths: shiftPaths(paths, headerHeight), Title: r.Title, Subtitle: opts.Subtitle}
	for _, n := range r.Nodes {
		st := status(n.ID)
		if st == progress.Done {
			s.Done++
		}
		n.Y += headerHeight
		s.Nodes = append(s.Nodes, sceneNode{Node: n, Status: st})
	}
	s.Total = len(r.Nodes)
	if s.Total > 0 {
		s.Percent = int(math.Round(float64(s.Done) / float64(s.Total) * 100))
	}
	if strings.TrimSpace(s.Title) == "" {
		s.Title = "Roadmap"
	}

	w, h := layout.Bounds(r, geom)
	s.Width = int(math.Max(minWidth, w))
	s.Height = int(math.Max(minHeight, h+headerHeight))
	return s
}

func shiftPaths(in []connector.Path, dy float64) []connector.Path {
	out := make([]connector.Path, len(in))
	for i, p := range in {
		pts := make([]model.Point, len(p.Points))
		for j, pt := range p.Points {
			pts[j] = model.Point{X: pt.X, Y: pt.Y + dy}
		}
		p.Points = pts
		out[i] = p
	}
	return out
}

// --- palette ---------------------------------------------------------------

var (
	colorRequired    = color.RGBA{0xfd, 0xe6, 0x8a, 0xff}
	colorRecommended = color.RGBA{0xdd, 0xd6, 0xfe, 0xff}
	colorAlternative = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorAnytime     = color.RGBA{0xbf, 0xdb, 0xfe, 0xff}
	colorDone        = color.RGBA{0xbb, 0xf7, 0xd0, 0xff}
	colorInProg      = color.RGBA{0xf9, 0x73, 0x16, 0xff}
	colorStroke      = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge        = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorText        = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle      = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop    = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG    = color.RGBA{0xee, 0xee, 0xee, 0xff}
)

// CategoryColor is the fill of an incomplete node.
func CategoryColor(c model.Category) color.RGBA {
	switch c {
	case model.CategoryRecommended:
		return colorRecommended
	case model.CategoryAlternative:
		return colorAlternative
	case model.CategoryAnytime:
		return colorAnytime
	default:
		return colorRequired
	}
}

func fillFor(n sceneNode) color.RGBA {
	if n.Status == progress.Done {
		return colorDone
	}
	return CategoryColor(n.Category)
}

func strokeFor(n sceneNode) (color.RGBA, float64) {
	if n.Status == progress.InProgress {
		return colorInProg, 3
	}
	return colorStroke, 1.2
}

type legendRow struct {
	c     color.RGBA
	label string
}

var legend = []legendRow{
	{colorRequired, "Required"},
	{colorRecommended, "Recommended"},
	{colorAlternative, "Alternative"},
	{colorAnytime, "Learn anytime"},
	{colorDone, "Completed"},
}

// CSS formats c as a hex colour.
func CSS(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// --- svg -------------------------------------------------------------------

// RenderSVG writes an SVG snapshot. An empty roadmap writes nothing.
func RenderSVG(w io.Writer, opts Options) error {
	if opts.Roadmap.IsEmpty() {
		return nil
	}
	defer metrics.Timer(metrics.ExportRender)()

	s := buildScene(opts)
	canvas := svg.New(w)
	canvas.Start(s.Width, s.Height)
	canvas.Title(s.Title)
	canvas.Rect(0, 0, s.Width, s.Height, "fill:"+CSS(colorBackdrop))
	canvas.Roundrect(16, 16, s.Width-32, int(headerHeight-24), 10, 10, "fill:"+CSS(colorHeaderBG))

	drawSummarySVG(canvas, s)
	drawLegendSVG(canvas, s)

	edgeStyle := fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", CSS(colorEdge))
	for _, p := range s.Paths {
		canvas.Path(p.D(), edgeStyle)
		xs, ys := arrowHead(p)
		canvas.Polygon(xs, ys, "fill:"+CSS(colorEdge))
	}

	for _, n := range s.Nodes {
		x, y := int(n.X), int(n.Y)
		stroke, width := strokeFor(n)
		canvas.Gid(n.ID)
		canvas.Roundrect(x, y, int(s.Geom.NodeWidth), int(s.Geom.NodeHeight), 8, 8,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", CSS(fillFor(n)), CSS(stroke), width))
		for i, line := range wrap(n.Title, titleWidth, 2) {
			canvas.Text(x+12, y+24+i*18, line,
				fmt.Sprintf("fill:%s;font-size:14px;font-family:sans-serif;font-weight:bold", CSS(colorText)))
		}
		if n.Status == progress.Done {
			canvas.Text(x+int(s.Geom.NodeWidth)-22, y+22, "✓", fmt.Sprintf("fill:%s;font-size:16px", CSS(colorText)))
		}
		canvas.Gend()
	}

	canvas.End()
	return nil
}

func drawSummarySVG(canvas *svg.SVG, s scene) {
	canvas.Text(32, 46, s.Title, fmt.Sprintf("fill:%s;font-size:18px;font-family:sans-serif;font-weight:bold", CSS(colorText)))
	sub := fmt.Sprintf("fill:%s;font-size:13px;font-family:sans-serif", CSS(colorSubtle))
	canvas.Text(32, 70, fmt.Sprintf("%d/%d completed (%d%%)", s.Done, s.Total, s.Percent), sub)
	canvas.Text(32, 90, fmt.Sprintf("topics: %d  connections: %d", s.Total, len(s.Paths)), sub)
	if s.Subtitle != "" {
		canvas.Text(32, 110, s.Subtitle, sub)
	}
}

func drawLegendSVG(canvas *svg.SVG, s scene) {
	boxW, boxH := 170, 96
	x, y := s.Width-boxW-28, 20
	canvas.Roundrect(x, y, boxW, boxH, 10, 10, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", CSS(colorLegendBG), CSS(colorStroke)))
	for i, row := range legend {
		ry := y + 16 + i*16
		canvas.Roundrect(x+12, ry-9, 12, 12, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", CSS(row.c), CSS(colorStroke)))
		canvas.Text(x+32, ry+1, row.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", CSS(colorSubtle)))
	}
}

// arrowHead returns an 8px triangle pointing along the path's last segment.
func arrowHead(p connector.Path) (xs, ys []int) {
	pts := arrowPoints(p)
	for _, pt := range pts {
		xs = append(xs, int(math.Round(pt.X)))
		ys = append(ys, int(math.Round(pt.Y)))
	}
	return xs, ys
}

func arrowPoints(p connector.Path) []model.Point {
	from, to := p.Tail()
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy, length = 0, 1, 1
	}
	ux, uy := dx/length, dy/length
	const size, half = 8.0, 4.0
	bx, by := to.X-ux*size, to.Y-uy*size
	return []model.Point{
		to,
		{X: bx - uy*half, Y: by + ux*half},
		{X: bx + uy*half, Y: by - ux*half},
	}
}

// --- png -------------------------------------------------------------------

// RenderPNG writes a PNG snapshot. An empty roadmap writes nothing.
func RenderPNG(w io.Writer, opts Options) error {
	if opts.Roadmap.IsEmpty() {
		return nil
	}
	defer metrics.Timer(metrics.ExportRender)()

	s := buildScene(opts)
	dc := gg.NewContext(s.Width, s.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(s.Width)-32, headerHeight-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryPNG(dc, s)
	drawLegendPNG(dc, s)

	dc.SetLineWidth(2)
	for _, p := range s.Paths {
		dc.SetColor(colorEdge)
		pts := p.Sample(24)
		dc.NewSubPath()
		dc.MoveTo(pts[0].X, pts[0].Y)
		for _, pt := range pts[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.Stroke()

		head := arrowPoints(p)
		dc.NewSubPath()
		dc.MoveTo(head[0].X, head[0].Y)
		dc.LineTo(head[1].X, head[1].Y)
		dc.LineTo(head[2].X, head[2].Y)
		dc.ClosePath()
		dc.Fill()
	}

	for _, n := range s.Nodes {
		drawNodePNG(dc, s.Geom, n)
	}
	return dc.EncodePNG(w)
}

func drawNodePNG(dc *gg.Context, geom layout.Geometry, n sceneNode) {
	dc.SetColor(fillFor(n))
	dc.DrawRoundedRectangle(n.X, n.Y, geom.NodeWidth, geom.NodeHeight, 8)
	dc.Fill()
	stroke, width := strokeFor(n)
	dc.SetColor(stroke)
	dc.SetLineWidth(width)
	dc.DrawRoundedRectangle(n.X, n.Y, geom.NodeWidth, geom.NodeHeight, 8)
	dc.Stroke()

	dc.SetColor(colorText)
	for i, line := range wrap(n.Title, titleWidth, 2) {
		dc.DrawStringAnchored(line, n.X+12, n.Y+20+float64(i)*16, 0, 0.5)
	}
	if n.Status == progress.Done {
		dc.DrawStringAnchored("done", n.X+geom.NodeWidth-40, n.Y+geom.NodeHeight-12, 0, 0.5)
	}
}

func drawSummaryPNG(dc *gg.Context, s scene) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(s.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("%d/%d completed (%d%%)", s.Done, s.Total, s.Percent), 32, 66, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("topics: %d  connections: %d", s.Total, len(s.Paths)), 32, 86, 0, 0.5)
	if s.Subtitle != "" {
		dc.DrawStringAnchored(s.Subtitle, 32, 106, 0, 0.5)
	}
}

func drawLegendPNG(dc *gg.Context, s scene) {
	boxW, boxH := 170.0, 96.0
	x, y := float64(s.Width)-boxW-28, 20.0
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Fill()
	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x, y, boxW, boxH, 10)
	dc.Stroke()
	for i, row := range legend {
		ry := y + 16 + float64(i)*16
		dc.SetColor(row.c)
		dc.DrawRoundedRectangle(x+12, ry-7, 12, 12, 3)
		dc.Fill()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(row.label, x+32, ry, 0, 0.5)
	}
}

// --- helpers ---------------------------------------------------------------

// wrap splits s into at most lines lines of width runes, breaking on spaces
// where possible and ending a cut line with "...".
func wrap(s string, width, lines int) []string {
	words := strings.Fields(s)
	var out []string
	var cur []rune
	for i := 0; i < len(words); i++ {
		w := []rune(words[i])
		switch {
		case len(cur) == 0 && len(w) > width:
			cur = w[:width]
			words[i] = string(w[width:])
			i--
		case len(cur) == 0:
			cur = w
			continue
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
			continue
		default:
			i--
		}
		out = append(out, string(cur))
		cur = nil
		if len(out) == lines {
			last := []rune(out[lines-1])
			if len(last) > width-3 {
				last = last[:width-3]
			}
			out[lines-1] = string(last) + "..."
			return out
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
