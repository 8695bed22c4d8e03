package ui

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/generate"
	"github.com/vanderheijden86/sage/pkg/interact"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
)

const (
	sidebarWidth = 30
	panelWidth   = 48
)

// roadmapView is the state of one open roadmap page. It is created when a
// roadmap finishes loading and closed when the page is left, which cancels
// its pending progress writes.
type roadmapView struct {
	source   datasource.SourceType
	query    datasource.Query
	roadmap  *model.Roadmap
	engine   *layout.Engine
	ctrl     *interact.Controller
	tracker  *progress.Tracker
	result   layout.Result
	warnings []error

	cursor      int
	showSidebar bool
	showFAQ     bool

	panel    viewport.Model
	md       *glamour.TermRenderer
	mdWidth  int
	found    map[string][]model.Resource
	searched map[string]bool
	pending  string
}

func newRoadmapView(ctx context.Context, cfg config.Config, res *datasource.Resolved, q datasource.Query, onError func(key, nodeID string, err error)) *roadmapView {
	rm := res.Roadmap
	if rm == nil {
		rm = &model.Roadmap{}
	}
	engine := cfg.LayoutEngine()
	v := &roadmapView{
		source:      res.Source,
		query:       q,
		roadmap:     rm,
		engine:      engine,
		warnings:    res.Skipped,
		showSidebar: cfg.SidebarVisible(),
		found:       make(map[string][]model.Resource),
		searched:    make(map[string]bool),
		panel:       viewport.New(panelWidth-4, 10),
	}
	v.result = engine.Apply(rm)
	v.ctrl = interact.NewController(rm, cfg.ControllerOptions())
	v.tracker = progress.New(ctx, rm, res.Persister)
	key := v.tracker.Key()
	v.tracker.OnError(func(nodeID string, err error) { onError(key, nodeID, err) })
	return v
}

func (v *roadmapView) close() {
	if v != nil && v.tracker != nil {
		v.tracker.Close()
	}
}

func (v *roadmapView) status(id string) progress.Status { return v.tracker.Status(id) }

// cursorNode is the node highlighted in the topic list.
func (v *roadmapView) cursorNode() *model.Node {
	if v.cursor < 0 || v.cursor >= len(v.roadmap.Nodes) {
		return nil
	}
	return &v.roadmap.Nodes[v.cursor]
}

func (v *roadmapView) moveCursor(delta int) {
	n := len(v.roadmap.Nodes)
	if n == 0 {
		return
	}
	v.cursor = (v.cursor + delta + n) % n
}

// focusNode moves the topic list cursor onto id.
func (v *roadmapView) focusNode(id string) {
	if i, ok := v.roadmap.Index()[id]; ok {
		v.cursor = i
	}
}

func (v *roadmapView) cycleLayout() layout.Result {
	v.engine = v.engine.WithStrategy(v.engine.Strategy().Next())
	v.result = v.ctrl.Relayout(v.engine)
	return v.result
}

func (v *roadmapView) cycleConnector() connector.Style {
	rt := v.ctrl.Router()
	rt = rt.WithStyle(rt.Style().Next())
	v.ctrl.SetRouter(rt)
	return rt.Style()
}

func (v *roadmapView) summaryLine() string {
	done, total := v.tracker.Counts()
	return fmt.Sprintf("%d/%d completed (%d%%)", done, total, v.tracker.Percent())
}

// viewLine describes the display settings.
func (v *roadmapView) viewLine() string {
	strategy := string(v.result.Strategy)
	if v.result.FellBack {
		strategy += " (fallback)"
	}
	return fmt.Sprintf("zoom %d%% · %s · %s connectors",
		int(v.ctrl.Zoom().Scale()*100+0.5), strategy, v.ctrl.Router().Style())
}

// shareLink is the query string that reopens this roadmap.
func (v *roadmapView) shareLink() string {
	if v.query.IsZero() {
		return ""
	}
	return "?" + v.query.Values().Encode()
}

// resourceLink is the first resource of the selected node, or the share
// link when it has none.
func (v *roadmapView) resourceLink() string {
	if n := v.ctrl.SelectedNode(); n != nil {
		for _, r := range append(append([]model.Resource(nil), n.Resources...), v.found[n.ID]...) {
			if _, err := url.ParseRequestURI(r.URL); err == nil {
				return r.URL
			}
		}
	}
	return v.shareLink()
}

func (v *roadmapView) renderSidebar(theme Theme, height int) string {
	var sb strings.Builder
	sb.WriteString(theme.Title.Render("Topics"))
	sb.WriteString("\n")
	rows := height - 1
	start := 0
	if v.cursor >= rows {
		start = v.cursor - rows + 1
	}
	for i := start; i < len(v.roadmap.Nodes) && i < start+rows; i++ {
		n := v.roadmap.Nodes[i]
		st := v.status(n.ID)
		line := runewidth.Truncate(StatusGlyph(st)+" "+n.Title, sidebarWidth-3, "…")
		style := theme.NodeStyle(n.Category, st, false)
		if i == v.cursor {
			line = theme.Selected.Render(line)
		} else {
			line = " " + style.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// refreshPanel re-renders the detail panel for the selected node.
func (v *roadmapView) refreshPanel(width, height int) {
	n := v.ctrl.SelectedNode()
	if n == nil {
		return
	}
	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	v.panel.Width = inner
	v.panel.Height = max(height-2, 3)

	var md strings.Builder
	md.WriteString(export.NodeMarkdown(n, v.status(n.ID)))
	switch {
	case v.pending == n.ID:
		md.WriteString("_Searching for more resources..._\n")
	case len(v.found[n.ID]) > 0:
		md.WriteString("## More resources\n\n")
		md.WriteString(export.ResourcesMarkdown(v.found[n.ID]))
	case v.searched[n.ID]:
		md.WriteString("_No additional resources found._\n")
	default:
		md.WriteString("_Press s to search more resources._\n")
	}

	if v.md == nil || v.mdWidth != inner {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(inner))
		if err == nil {
			v.md, v.mdWidth = r, inner
		}
	}
	content := md.String()
	if v.md != nil {
		if out, err := v.md.Render(content); err == nil {
			content = strings.TrimRight(out, "\n ")
		}
	}
	v.panel.SetContent(content)
}

func (v *roadmapView) faqContent(width int) string {
	md := export.FAQMarkdown(v.roadmap)
	if md == "" {
		return "No frequently asked questions for this roadmap."
	}
	if v.md != nil {
		if out, err := v.md.Render(md); err == nil {
			return strings.TrimRight(out, "\n ")
		}
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}

// exportOptions snapshots the view for export.Save.
func (v *roadmapView) exportOptions(path string) export.Options {
	return export.Options{
		Path:     path,
		Roadmap:  v.roadmap.Clone(),
		Geometry: v.ctrl.Geometry(),
		Paths:    append([]connector.Path(nil), v.ctrl.Paths()...),
		Status:   v.tracker.Status,
		Subtitle: fmt.Sprintf("%s · %s", v.summaryLine(), v.result.Strategy),
	}
}

func (v *roadmapView) exportName() string {
	switch {
	case v.roadmap.Slug != "":
		return v.roadmap.Slug
	case v.roadmap.ID != "":
		return v.roadmap.ID
	}
	if s := generate.Slug(v.roadmap.Title); s != "" {
		return s
	}
	return "roadmap"
}

