package interact

import (
	"math"
	"testing"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/testutil"

	"pgregory.net/rapid"
)

func newTestController() *Controller {
	r := testutil.NewDefault().Chain(2)
	layout.New(layout.Hierarchical, layout.DefaultGeometry()).Apply(r)
	return NewController(r, Options{Geometry: layout.DefaultGeometry()})
}

func pt(x, y float64) model.Point { return model.Point{X: x, Y: y} }

func TestClickBelowThresholdOpensPanel(t *testing.T) {
	c := newTestController()

	if ev := c.PointerDown(pt(50, 50)); ev.Kind != EventPress || ev.NodeID != "n0" {
		t.Fatalf("press = %+v", ev)
	}
	if c.Phase("n0") != PotentialDrag {
		t.Fatalf("phase = %v, want potential-drag", c.Phase("n0"))
	}
	if ev := c.PointerMove(pt(53, 53)); ev.Kind != EventNone {
		t.Errorf("small move = %+v, want none", ev)
	}
	ev := c.PointerUp(pt(53, 53))
	if ev.Kind != EventClick || ev.NodeID != "n0" {
		t.Fatalf("release = %+v, want click on n0", ev)
	}
	if c.Selected() != "n0" || c.SelectedNode() == nil {
		t.Error("detail panel not opened")
	}
	if c.Phase("n0") != Idle {
		t.Errorf("phase after release = %v", c.Phase("n0"))
	}
	if got := c.Roadmap().Node("n0").Position(); got != pt(40, 40) {
		t.Errorf("click moved the node to %v", got)
	}

	if ev := c.ClosePanel(); ev.Kind != EventPanelClosed || c.Selected() != "" {
		t.Errorf("close = %+v, selected %q", ev, c.Selected())
	}
	if ev := c.ClosePanel(); ev.Kind != EventNone {
		t.Errorf("second close = %+v", ev)
	}
}

func TestDragMovesNodeAndReroutes(t *testing.T) {
	c := newTestController()
	before := c.Paths()[0].Start()

	c.PointerDown(pt(50, 50))
	if ev := c.PointerMove(pt(60, 50)); ev.Kind != EventDragStart {
		t.Fatalf("move past threshold = %+v, want drag start", ev)
	}
	if c.Phase("n0") != Dragging {
		t.Fatalf("phase = %v, want dragging", c.Phase("n0"))
	}
	if c.Phase("n1") != Idle {
		t.Errorf("other node phase = %v, want idle", c.Phase("n1"))
	}
	if got := c.Roadmap().Node("n0").X; got != 50 {
		t.Errorf("live x = %v, want 50", got)
	}
	if ev := c.PointerMove(pt(70, 55)); ev.Kind != EventDragMove {
		t.Errorf("second move = %+v, want drag move", ev)
	}

	ev := c.PointerUp(pt(100, 80))
	if ev.Kind != EventDragEnd {
		t.Fatalf("release = %+v, want drag end", ev)
	}
	if got := c.Roadmap().Node("n0").Position(); got != pt(90, 70) {
		t.Errorf("committed position = %v, want (90,70)", got)
	}
	if c.Selected() != "" {
		t.Error("drag must not open the detail panel")
	}
	if c.Paths()[0].Start() == before {
		t.Error("connectors not recomputed after drag")
	}
}

func TestReleaseFarFromPressIsDrag(t *testing.T) {
	c := newTestController()
	c.PointerDown(pt(50, 50))
	ev := c.PointerUp(pt(400, 50))
	if ev.Kind != EventDragEnd || ev.NodeID != "n0" {
		t.Fatalf("release = %+v, want drag end on n0", ev)
	}
	if c.Selected() != "" {
		t.Errorf("detail panel opened for %q", c.Selected())
	}
	if got := c.Roadmap().Node("n0").Position(); got != pt(390, 40) {
		t.Errorf("node at %v, want (390,40)", got)
	}
}

func TestDragDeltaDividedByZoom(t *testing.T) {
	c := newTestController()
	c.Zoom().Set(2)

	start := c.ToScreen(pt(50, 50))
	c.PointerDown(start)
	c.PointerMove(pt(start.X+20, start.Y))
	c.PointerUp(pt(start.X+20, start.Y+40))

	if got := c.Roadmap().Node("n0").Position(); got != pt(50, 60) {
		t.Errorf("position at zoom 2 = %v, want (50,60)", got)
	}
}

func TestBackgroundDragPans(t *testing.T) {
	c := newTestController()
	if ev := c.PointerDown(pt(500, 500)); ev.Kind != EventNone {
		t.Fatalf("background press = %+v", ev)
	}
	if ev := c.PointerMove(pt(520, 510)); ev.Kind != EventPan {
		t.Fatalf("background move = %+v", ev)
	}
	c.PointerUp(pt(520, 510))
	if c.Pan() != pt(20, 10) {
		t.Errorf("pan = %v, want (20,10)", c.Pan())
	}
	// Hit testing follows the pan.
	if ev := c.PointerDown(pt(70, 60)); ev.NodeID != "n0" {
		t.Errorf("press after pan = %+v, want n0", ev)
	}
}

func TestWheel(t *testing.T) {
	c := newTestController()
	if ev := c.Wheel(-1, true); ev.Kind != EventZoom || c.Zoom().Scale() != 1.1 {
		t.Errorf("modifier wheel = %+v scale %v", ev, c.Zoom().Scale())
	}
	if ev := c.Wheel(3, false); ev.Kind != EventPan || c.Pan().Y != -3 {
		t.Errorf("plain wheel = %+v pan %v", ev, c.Pan())
	}
	c.ZoomReset()
	if c.Zoom().Scale() != 1 {
		t.Errorf("reset scale = %v", c.Zoom().Scale())
	}
}

func TestZoomDoesNotMoveNodes(t *testing.T) {
	c := newTestController()
	before := c.Roadmap().Positions()
	c.ZoomIn()
	c.ZoomIn()
	c.ZoomOut()
	after := c.Roadmap().Positions()
	for id, p := range before {
		if after[id] != p {
			t.Errorf("zoom moved %s from %v to %v", id, p, after[id])
		}
	}
}

func TestRelayoutAndRouterSwitch(t *testing.T) {
	c := newTestController()
	c.PointerDown(pt(50, 50))
	c.PointerMove(pt(90, 90))

	res := c.Relayout(layout.New(layout.Serpentine, layout.DefaultGeometry()))
	if res.Strategy != layout.Serpentine {
		t.Errorf("strategy = %v", res.Strategy)
	}
	if c.Phase("n0") != Idle {
		t.Error("relayout should drop the drag")
	}
	if got := c.Roadmap().Node("n1").Position(); got != pt(300, 40) {
		t.Errorf("n1 after serpentine = %v", got)
	}

	c.SetRouter(connector.NewRouter(connector.Curve, layout.DefaultGeometry()))
	if c.Router().Style() != connector.Curve || c.Paths()[0].Style != connector.Curve {
		t.Error("router switch did not reroute")
	}
}

func TestOpenPanelIgnoresUnknown(t *testing.T) {
	c := newTestController()
	if ev := c.OpenPanel("ghost"); ev.Kind != EventNone || c.Selected() != "" {
		t.Errorf("OpenPanel(ghost) = %+v", ev)
	}
	if ev := c.OpenPanel("n1"); ev.Kind != EventClick || c.Selected() != "n1" {
		t.Errorf("OpenPanel(n1) = %+v", ev)
	}
}

func TestDragThresholdProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		dx := rapid.Float64Range(-30, 30).Draw(t, "dx")
		dy := rapid.Float64Range(-30, 30).Draw(t, "dy")
		scale := rapid.Float64Range(0.2, 2).Draw(t, "scale")
		withMove := rapid.Bool().Draw(t, "withMove")

		c := newTestController()
		c.Zoom().Set(scale)
		start := c.ToScreen(pt(60, 60))
		end := pt(start.X+dx, start.Y+dy)

		c.PointerDown(start)
		if withMove {
			c.PointerMove(end)
		}
		ev := c.PointerUp(end)

		if math.Hypot(dx, dy) <= DefaultDragThreshold {
			if ev.Kind != EventClick || c.Selected() != "n0" {
				t.Fatalf("short move (%.2f,%.2f) gave %+v", dx, dy, ev)
			}
			return
		}
		if ev.Kind != EventDragEnd || c.Selected() != "" {
			t.Fatalf("long move (%.2f,%.2f) gave %+v, selected %q", dx, dy, ev, c.Selected())
		}
	})
}
