package web

import (
	"fmt"
	"html/template"
	"net/url"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/export"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"
)

// Page view models. Templates only ever see these types, never domain
// structs, so a template cannot reach state the handler did not prepare.

type navLink struct {
	Label  string
	Href   string
	Active bool
}

type layoutData struct {
	Title  string
	Nav    []navLink
	User   string
	Banner string
	Error  string
}

type entryView struct {
	Title       string
	Description string
	Href        string
	Percent     int
	Saved       bool
}

type groupView struct {
	Title   string
	Entries []entryView
}

type browsePage struct {
	layoutData
	Categories []navLink
	Groups     []groupView
	Offline    bool
}

type minePage struct {
	layoutData
	LoggedIn  bool
	Saved     []entryView
	Generated []entryView
}

type resourceView struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Type    string `json:"type,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

type nodeView struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Category      string         `json:"category"`
	CategoryLabel string         `json:"category_label"`
	Status        string         `json:"status"`
	StatusLabel   string         `json:"status_label"`
	Done          bool           `json:"done"`
	EstimatedTime string         `json:"estimated_time,omitempty"`
	Description   string         `json:"description,omitempty"`
	Topics        []string       `json:"topics,omitempty"`
	Resources     []resourceView `json:"resources,omitempty"`
	X             float64        `json:"x"`
	Y             float64        `json:"y"`
	Href          string         `json:"-"`
}

type faqView struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// roadmapView is the roadmap page, and the body of /api/roadmap.
type roadmapView struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source"`
	Query       string     `json:"query"`
	Layout      string     `json:"layout"`
	FellBack    bool       `json:"fell_back,omitempty"`
	Connector   string     `json:"connector"`
	Done        int        `json:"done"`
	Total       int        `json:"total"`
	Percent     int        `json:"percent"`
	AIGenerated bool       `json:"ai_generated,omitempty"`
	NotFound    bool       `json:"not_found,omitempty"`
	Nodes       []nodeView `json:"nodes"`
	FAQs        []faqView  `json:"faqs,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

type roadmapPage struct {
	layoutData
	Roadmap        roadmapView
	SVG            template.HTML
	SVGHref        string
	PNGHref        string
	MarkdownHref   string
	NextLayout     string
	NextConnector  string
	LayoutHref     string
	ConnectorHref  string
	ProgressAction string
	Selected       *nodeView
}

type formPage struct {
	layoutData
	Values url.Values
	Levels []string
	Goals  []string
}

func resourceViews(rs []model.Resource) []resourceView {
	out := make([]resourceView, 0, len(rs))
	for _, r := range rs {
		out = append(out, resourceView{Title: r.Title, URL: r.URL, Type: string(r.Type), Snippet: r.Snippet})
	}
	return out
}

func newNodeView(n *model.Node, st progress.Status) nodeView {
	return nodeView{
		ID:            n.ID,
		Title:         n.Title,
		Category:      string(n.Category),
		CategoryLabel: export.CategoryLabel(n.Category),
		Status:        st.String(),
		StatusLabel:   export.StatusLabel(st),
		Done:          st == progress.Done,
		EstimatedTime: n.EstimatedTime,
		Description:   n.Description,
		Topics:        n.Topics,
		Resources:     resourceViews(n.Resources),
		X:             n.X,
		Y:             n.Y,
	}
}

// newRoadmapView builds the page model. base holds the query parameters that
// reproduce the current page, including layout and connector overrides.
func newRoadmapView(res *datasource.Resolved, base url.Values, result layout.Result, connector string, t *progress.Tracker) roadmapView {
	r := res.Roadmap
	done, total := t.Counts()
	v := roadmapView{
		Title:       r.Title,
		Description: r.Description,
		Source:      string(res.Source),
		Query:       base.Encode(),
		Layout:      string(result.Strategy),
		FellBack:    result.FellBack,
		Connector:   connector,
		Done:        done,
		Total:       total,
		Percent:     t.Percent(),
		AIGenerated: r.AIGenerated,
		NotFound:    res.NotFound(),
		Nodes:       make([]nodeView, 0, len(r.Nodes)),
	}
	for i := range r.Nodes {
		n := &r.Nodes[i]
		nv := newNodeView(n, t.Status(n.ID))
		nv.Href = withParam(base, "node", n.ID)
		v.Nodes = append(v.Nodes, nv)
	}
	for _, f := range r.FAQs {
		v.FAQs = append(v.FAQs, faqView{Question: f.Question, Answer: f.Answer})
	}
	for _, err := range res.Skipped {
		v.Warnings = append(v.Warnings, err.Error())
	}
	return v
}

func entryViews(entries []datasource.Entry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			Title:       e.Title,
			Description: e.Description,
			Href:        roadmapHref(e.Query),
			Percent:     e.Percent,
			Saved:       e.Query.Saved,
		})
	}
	return out
}

func roadmapHref(q datasource.Query) string {
	return "/roadmap?" + q.Values().Encode()
}

// withParam links to the roadmap page for base with one parameter replaced.
func withParam(base url.Values, key, value string) string {
	return withPath("/roadmap", base, key, value)
}

func withPath(path string, base url.Values, key, value string) string {
	v := make(url.Values, len(base)+1)
	for k, vs := range base {
		v[k] = append([]string(nil), vs...)
	}
	if key != "" {
		v.Set(key, value)
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func percentLabel(p int) string { return fmt.Sprintf("%d%%", p) }
