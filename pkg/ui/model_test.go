package ui

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/sage/internal/datasource"
	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/config"
	"github.com/vanderheijden86/sage/pkg/generate"
	"github.com/vanderheijden86/sage/pkg/hooks"
	"github.com/vanderheijden86/sage/pkg/interact"
	"github.com/vanderheijden86/sage/pkg/model"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	hide := false
	cfg.UI.ShowSidebar = &hide
	m := New(Options{
		Config:    cfg,
		Resolver:  datasource.NewResolver(nil, nil, nil),
		ExportDir: t.TempDir(),
	})
	t.Cleanup(m.Close)
	return update(t, m, tea.WindowSizeMsg{Width: 140, Height: 45})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return out
}

func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return update(t, m, cmd())
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openTopic(t *testing.T, m Model, slug string) Model {
	t.Helper()
	cmd := m.openQuery(datasource.TopicQuery(slug))
	m = run(t, m, cmd)
	if m.view == nil {
		t.Fatalf("roadmap %q did not open", slug)
	}
	return m
}

// centerNode pans so that the node's center sits at screen pixel (100, 100)
// and returns the terminal cell over it.
func centerNode(m Model, id string) (x, y int) {
	v := m.view
	n := v.roadmap.Node(id)
	g := v.ctrl.Geometry()
	c := v.ctrl.ToScreen(model.Point{X: n.X + g.NodeWidth/2, Y: n.Y + g.NodeHeight/2})
	v.ctrl.PanBy(100-c.X, 100-c.Y)
	col, row := pointToCell(model.Point{X: 100, Y: 100})
	cx, cy, _, _ := m.canvasRect()
	return cx + col, cy + row
}

func TestOpenTopicShowsRoadmap(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "frontend-beginner")

	if m.page != pageRoadmap {
		t.Fatalf("page = %s, want roadmap", m.page)
	}
	if m.loading {
		t.Error("still loading after roadmap arrived")
	}
	if len(m.view.roadmap.Nodes) == 0 {
		t.Fatal("expected catalog nodes")
	}
	out := m.View()
	for _, want := range []string{brand, copyright, "0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestUnknownTopicShowsNotFound(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "no-such-roadmap")
	if m.view.source != datasource.SourceNotFound {
		t.Errorf("source = %s, want not found", m.view.source)
	}
	if !strings.Contains(m.View(), "Press 1") {
		t.Error("not found page should point back to browsing")
	}
}

func TestStaleRoadmapResultIsDropped(t *testing.T) {
	m := newTestModel(t)
	first := m.openQuery(datasource.TopicQuery("backend"))
	second := m.openQuery(datasource.TopicQuery("react"))

	m = update(t, m, first())
	if m.view != nil {
		t.Fatal("result for an abandoned navigation was applied")
	}
	m = update(t, m, second())
	if m.view == nil {
		t.Fatal("current result was not applied")
	}
	if got := m.view.query.Topic; got != "react" {
		t.Errorf("open topic = %q, want react", got)
	}
}

func TestSpaceTogglesCompletion(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "react")
	n := m.view.cursorNode()

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.view.tracker.IsDone(n.ID) {
		t.Fatalf("%s not marked done", n.ID)
	}
	if !strings.Contains(m.status, "Completed") {
		t.Errorf("status = %q", m.status)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.view.tracker.IsDone(n.ID) {
		t.Error("second toggle should clear completion")
	}
}

func TestProgressFailureKeepsOptimisticState(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "react")
	n := m.view.cursorNode()
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})

	m = update(t, m, progressFailedMsg{key: m.view.tracker.Key(), nodeID: n.ID, err: errors.New("boom")})
	if !m.statusErr || !strings.Contains(m.status, n.Title) {
		t.Errorf("status = %q (err %v)", m.status, m.statusErr)
	}
	if !m.view.tracker.IsDone(n.ID) {
		t.Error("failed save must not roll back the toggle")
	}

	// Failures for a roadmap that is no longer open are ignored.
	m.status = ""
	m = update(t, m, progressFailedMsg{key: "topic:other", nodeID: n.ID, err: errors.New("boom")})
	if m.status != "" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestClickOpensDetailPanel(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "python")
	id := m.view.roadmap.Nodes[0].ID
	x, y := centerNode(m, id)

	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := m.view.ctrl.Phase(id); got != interact.PotentialDrag {
		t.Fatalf("phase after press = %s", got)
	}
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease})
	if got := m.view.ctrl.Selected(); got != id {
		t.Fatalf("selected = %q, want %q", got, id)
	}

	// Esc closes the panel first, then leaves the page.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.view == nil || m.view.ctrl.Selected() != "" {
		t.Fatal("esc should close the panel and stay on the roadmap")
	}
	_ = update(t, m, tea.KeyMsg{Type: tea.KeyEscape})
}

func TestDragMovesNodeWithoutOpeningPanel(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "python")
	id := m.view.roadmap.Nodes[0].ID
	x, y := centerNode(m, id)
	before := m.view.roadmap.Node(id).Position()

	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: x + 2, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if got := m.view.ctrl.Phase(id); got != interact.Dragging {
		t.Fatalf("phase after move = %s", got)
	}
	m = update(t, m, tea.MouseMsg{X: x + 2, Y: y, Action: tea.MouseActionRelease})

	if m.view.ctrl.Selected() != "" {
		t.Error("drag must not open the panel")
	}
	after := m.view.roadmap.Node(id).Position()
	want := 2 * cellWidth / m.view.ctrl.Zoom().Scale()
	if d := after.X - before.X; d < want-0.001 || d > want+0.001 {
		t.Errorf("moved %.2f, want %.2f", d, want)
	}
}

func TestReleaseWithoutMotionStillDrags(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "python")
	id := m.view.roadmap.Nodes[0].ID
	x, y := centerNode(m, id)
	before := m.view.roadmap.Node(id).Position()

	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: x + 2, Y: y, Action: tea.MouseActionRelease})

	if m.view.ctrl.Selected() != "" {
		t.Error("release far from the press opened the panel")
	}
	if after := m.view.roadmap.Node(id).Position(); after.X <= before.X {
		t.Errorf("node did not move: %v -> %v", before, after)
	}
}

func TestZoomKeysClamp(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "javascript")
	for range 30 {
		m = update(t, m, runes("-"))
	}
	if got := m.view.ctrl.Zoom().Scale(); got != interact.DefaultMinZoom {
		t.Errorf("zoom = %v, want %v", got, interact.DefaultMinZoom)
	}
	for range 30 {
		m = update(t, m, runes("+"))
	}
	if got := m.view.ctrl.Zoom().Scale(); got != interact.DefaultMaxZoom {
		t.Errorf("zoom = %v, want %v", got, interact.DefaultMaxZoom)
	}
	m = update(t, m, runes("0"))
	if got := m.view.ctrl.Zoom().Scale(); got != 1 {
		t.Errorf("zoom after reset = %v", got)
	}
}

func TestLayoutAndConnectorCycle(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "devops-engineer")
	strategy := m.view.engine.Strategy()
	style := m.view.ctrl.Router().Style()

	m = update(t, m, runes("l"))
	if m.view.engine.Strategy() == strategy {
		t.Error("l should switch layout strategy")
	}
	m = update(t, m, runes("c"))
	if m.view.ctrl.Router().Style() == style {
		t.Error("c should switch connector style")
	}
	for _, p := range m.view.ctrl.Paths() {
		if p.Style == style {
			t.Fatalf("path %s->%s still drawn as %s", p.From, p.To, style)
		}
	}
}

func TestBrowseOpensSelectedEntry(t *testing.T) {
	m := newTestModel(t)
	m = run(t, m, m.goTo(pageBrowse))
	if len(m.list.Items()) == 0 {
		t.Fatal("browse list is empty")
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.page != pageRoadmap || !m.loading {
		t.Fatalf("enter should start loading a roadmap (page %s)", m.page)
	}
	m = run(t, m, cmd)
	if m.view == nil {
		t.Fatal("roadmap did not open")
	}
}

func TestCategoryTabFilters(t *testing.T) {
	m := newTestModel(t)
	m = run(t, m, m.goTo(pageBrowse))
	all := len(m.list.Items())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = run(t, next.(Model), cmd)
	if m.currentCategory() == "all" {
		t.Fatal("tab did not advance the category")
	}
	if got := len(m.list.Items()); got == 0 || got > all {
		t.Errorf("category has %d items, all has %d", got, all)
	}
}

func TestUnauthorizedShowsLogin(t *testing.T) {
	m := newTestModel(t)
	m.opts.Client = api.New("http://127.0.0.1:1")
	m.user = &model.User{Name: "Ada Lovelace"}
	m = openTopic(t, m, "react")

	m = update(t, m, unauthorizedMsg{})
	if m.user != nil {
		t.Error("user should be cleared")
	}
	if m.page != pageLogin || m.auth == nil {
		t.Fatalf("page = %s, want login", m.page)
	}
	if !strings.Contains(m.View(), expiredBanner) {
		t.Error("expiry banner not shown")
	}
	if m.view != nil {
		t.Error("leaving the roadmap should close its view")
	}
}

func TestLoginWithoutBackend(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, runes("L"))
	if m.page == pageLogin {
		t.Fatal("login page should not open without a backend")
	}
	if !m.statusErr {
		t.Error("expected an error status")
	}
}

func TestGenerateOfflineOpensRoadmap(t *testing.T) {
	m := newTestModel(t)
	m = update(t, m, runes("3"))
	if m.page != pageGenerate || m.genForm == nil {
		t.Fatalf("page = %s, want generate", m.page)
	}

	cmd := generateCmd(context.Background(), m.gen, nil, nil, generate.Request{Topic: "Go", Skills: []string{"syntax"}})
	m = run(t, m, cmd)
	if !m.statusErr || !strings.Contains(m.status, "offline") {
		t.Errorf("status = %q", m.status)
	}
	if m.view == nil || m.view.source != datasource.SourceAI {
		t.Fatal("generated roadmap not shown")
	}
	if len(m.view.roadmap.Nodes) == 0 {
		t.Error("generated roadmap has no nodes")
	}
}

func TestExportWritesSVG(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "react")
	_, cmd := m.Update(runes("e"))
	msg, ok := cmd().(exportedMsg)
	if !ok {
		t.Fatal("export did not produce a result")
	}
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	if !strings.HasSuffix(msg.path, "react.svg") {
		t.Errorf("path = %s", msg.path)
	}
}

func TestExportRunsHooks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("hook commands use sh syntax")
	}
	m := newTestModel(t)
	m.opts.Hooks = &hooks.Config{Hooks: hooks.ByPhase{
		PostExport: []hooks.Hook{{Name: "check", Command: `test -s "$SAGE_EXPORT_PATH"`, Timeout: 5 * time.Second, OnError: hooks.OnErrorFail}},
	}}
	m = openTopic(t, m, "react")
	_, cmd := m.Update(runes("e"))
	msg, ok := cmd().(exportedMsg)
	if !ok {
		t.Fatal("export did not produce a result")
	}
	if msg.err != nil {
		t.Fatalf("export: %v", msg.err)
	}
	if msg.summary != "hooks: 1 ok" {
		t.Errorf("summary = %q", msg.summary)
	}

	m.opts.Hooks.Hooks.PreExport = []hooks.Hook{{Name: "gate", Command: "exit 1", Timeout: 5 * time.Second, OnError: hooks.OnErrorFail}}
	_, cmd = m.Update(runes("e"))
	if msg := cmd().(exportedMsg); msg.err == nil || !strings.Contains(msg.err.Error(), "gate") {
		t.Errorf("pre-export failure should cancel the export, got %v", msg.err)
	}
}

func TestShareLink(t *testing.T) {
	m := newTestModel(t)
	m = openTopic(t, m, "react")
	if got := m.view.shareLink(); got != "?topic=react" {
		t.Errorf("share link = %q", got)
	}
}

func TestFileRoadmapShown(t *testing.T) {
	m := newTestModel(t)
	rm := &model.Roadmap{Title: "Local", Nodes: []model.Node{{ID: "a", Title: "A"}}}
	m = update(t, m, roadmapLoadedMsg{gen: m.gen, resolved: &datasource.Resolved{Source: datasource.SourceFile, Roadmap: rm}})
	if m.view == nil || m.view.roadmap.Title != "Local" {
		t.Fatal("file roadmap not shown")
	}
}
