package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"
	"github.com/vanderheijden86/sage/pkg/testutil"
)

func laidOut(t *testing.T) Options {
	t.Helper()
	r := testutil.NewDefault().Diamond(2)
	r.Title = "Diamond <test>"
	r.Completed = []string{r.Nodes[0].ID}
	eng := layout.New(layout.Hierarchical, layout.DefaultGeometry())
	eng.Apply(r)
	return Options{
		Roadmap:  r,
		Geometry: eng.Geometry(),
		Paths:    connector.NewRouter(connector.Curve, eng.Geometry()).Route(r),
		Subtitle: "layout: hierarchical",
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path, format, want string
		wantErr            bool
	}{
		{"out.svg", "", FormatSVG, false},
		{"out.PNG", "", FormatPNG, false},
		{"notes.md", "", FormatMarkdown, false},
		{"noext", "", FormatSVG, false},
		{"x.svg", ".png", FormatPNG, false},
		{"x", "pdf", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path, tt.format)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FormatFor(%q, %q) = %q, %v", tt.path, tt.format, got, err)
		}
	}
}

func TestRenderSVGIsWellFormed(t *testing.T) {
	opts := laidOut(t)
	var buf bytes.Buffer
	if err := RenderSVG(&buf, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid XML: %v", err)
			}
			break
		}
	}
	if !strings.Contains(out, "Diamond &lt;test&gt;") {
		t.Error("title not escaped into output")
	}
	if strings.Count(out, "<path") != len(opts.Paths) {
		t.Errorf("got %d paths, want %d", strings.Count(out, "<path"), len(opts.Paths))
	}
	if !strings.Contains(out, CSS(colorDone)) {
		t.Error("completed node not filled with the done colour")
	}
	if !strings.Contains(out, "1/4 completed (25%)") {
		t.Error("progress summary missing")
	}
}

func TestRenderEmptyWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	for _, fn := range []func() error{
		func() error { return RenderSVG(&buf, Options{}) },
		func() error { return RenderPNG(&buf, Options{Roadmap: &model.Roadmap{}}) },
		func() error { return RenderMarkdown(&buf, Options{}) },
	} {
		if err := fn(); err != nil {
			t.Fatal(err)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes for empty roadmaps", buf.Len())
	}
}

func TestRenderPNG(t *testing.T) {
	opts := laidOut(t)
	var buf bytes.Buffer
	if err := RenderPNG(&buf, opts); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() < int(minWidth) || b.Dy() < int(minHeight) {
		t.Errorf("image %v smaller than minimum", b)
	}
}

func TestSave(t *testing.T) {
	opts := laidOut(t)
	dir := t.TempDir()
	for _, name := range []string{"a/out.svg", "b/out.png", "c/out.md"} {
		opts.Path = filepath.Join(dir, name)
		if err := Save(opts); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		info, err := os.Stat(opts.Path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if err := Save(Options{Path: filepath.Join(dir, "x.svg")}); err == nil {
		t.Error("Save accepted an empty roadmap")
	}
}

func TestStatusOverride(t *testing.T) {
	opts := laidOut(t)
	opts.Status = func(string) progress.Status { return progress.Done }
	s := buildScene(opts)
	if s.Done != s.Total || s.Percent != 100 {
		t.Errorf("Done=%d Total=%d Percent=%d", s.Done, s.Total, s.Percent)
	}
}

func TestMarkdownReport(t *testing.T) {
	opts := laidOut(t)
	opts.Roadmap.FAQs = []model.FAQ{{Question: "Why?", Answer: "Because."}}
	var buf bytes.Buffer
	if err := RenderMarkdown(&buf, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"```mermaid", "graph TD", "- [x]", "- [ ]", "**Why?**", "1/4 completed"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestMermaidSkipsDanglingAndDedupsIDs(t *testing.T) {
	r := &model.Roadmap{
		Nodes: []model.Node{{ID: "a.b", Title: "One"}, {ID: "ab", Title: `Two "quoted"`}},
		Edges: []model.Edge{{From: "a.b", To: "ab"}, {From: "ab", To: "ghost"}},
	}
	out := MermaidGraph(r, nil)
	if strings.Contains(out, "ghost") {
		t.Error("dangling edge rendered")
	}
	if !strings.Contains(out, "ab_") {
		t.Error("colliding id not disambiguated")
	}
	if strings.Contains(out, `"quoted"`) {
		t.Error("quotes not sanitized")
	}
}

func TestNodeMarkdown(t *testing.T) {
	n := &model.Node{
		Title: "CSS", Category: model.CategoryRecommended, EstimatedTime: "2 weeks",
		Topics:    []string{"Flexbox"},
		Resources: []model.Resource{{Title: "MDN", URL: "https://developer.mozilla.org", Type: model.ResourceDocs}},
	}
	out := NodeMarkdown(n, progress.InProgress)
	for _, want := range []string{"# CSS", "Recommended", "In progress", "2 weeks", "- Flexbox", "[MDN](https://developer.mozilla.org)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if NodeMarkdown(nil, progress.Pending) != "" {
		t.Error("nil node rendered")
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Version Control Systems", []string{"Version Control Systems"}},
		{"Fine grained reactivity in modern frameworks", []string{"Fine grained reactivity in", "modern frameworks"}},
		{"abcdefghijklmnopqrstuvwxyz0123", []string{"abcdefghijklmnopqrstuvwxyz", "0123"}},
		{"one two three four five six seven eight nine ten eleven", []string{"one two three four five", "six seven eight nine te..."}},
	}
	for _, tt := range tests {
		got := wrap(tt.in, titleWidth, 2)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrap(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
