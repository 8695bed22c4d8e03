// Package interact holds the roadmap page's interaction state: per-node drag
// state machines, the zoom scale, the pan offset and the open detail panel.
//
// Pointer positions are screen coordinates. Node positions are layout
// coordinates. screen = layout*zoom + pan.
package interact

import (
	"math"

	"github.com/vanderheijden86/sage/pkg/connector"
	"github.com/vanderheijden86/sage/pkg/layout"
	"github.com/vanderheijden86/sage/pkg/model"
)

// DefaultDragThreshold is how far, in screen pixels, the pointer must travel
// before a press becomes a drag.
const DefaultDragThreshold = 5.0

// Phase is a node's position in the drag state machine.
type Phase int

const (
	Idle Phase = iota
	PotentialDrag
	Dragging
)

func (p Phase) String() string {
	switch p {
	case PotentialDrag:
		return "potential-drag"
	case Dragging:
		return "dragging"
	default:
		return "idle"
	}
}

// EventKind describes what a pointer or control action did.
type EventKind int

const (
	EventNone EventKind = iota
	EventPress
	EventClick
	EventDragStart
	EventDragMove
	EventDragEnd
	EventPan
	EventZoom
	EventPanelClosed
)

// Event is returned by every Controller input so the view knows what to
// repaint.
type Event struct {
	Kind   EventKind
	NodeID string
}

type dragState struct {
	phase        Phase
	startPointer model.Point
	startNode    model.Point
}

// Options configures a Controller.
type Options struct {
	Geometry      layout.Geometry
	Router        *connector.Router
	Zoom          *Zoom
	DragThreshold float64
}

// Controller owns the interaction state of one roadmap view.
type Controller struct {
	roadmap   *model.Roadmap
	geom      layout.Geometry
	router    *connector.Router
	zoom      *Zoom
	threshold float64

	pan       model.Point
	panning   bool
	panStart  model.Point
	panOrigin model.Point

	drags    map[string]*dragState
	active   string
	selected string

	paths []connector.Path
}

// NewController wraps an already laid out roadmap.
func NewController(r *model.Roadmap, opts Options) *Controller {
	if r == nil {
		r = &model.Roadmap{}
	}
	geom := opts.Geometry.Normalized()
	if opts.Router == nil {
		opts.Router = connector.NewRouter(connector.Pipe, geom)
	}
	if opts.Zoom == nil {
		opts.Zoom = NewZoom(DefaultMinZoom, DefaultMaxZoom, DefaultZoomStep, 1)
	}
	if opts.DragThreshold <= 0 {
		opts.DragThreshold = DefaultDragThreshold
	}
	c := &Controller{
		roadmap:   r,
		geom:      geom,
		router:    opts.Router,
		zoom:      opts.Zoom,
		threshold: opts.DragThreshold,
		drags:     make(map[string]*dragState),
	}
	c.reroute()
	return c
}

// Roadmap returns the roadmap being manipulated.
func (c *Controller) Roadmap() *model.Roadmap { return c.roadmap }

// Geometry returns the node geometry used for hit testing.
func (c *Controller) Geometry() layout.Geometry { return c.geom }

// Paths returns connector paths for the current node positions.
func (c *Controller) Paths() []connector.Path { return c.paths }

// Zoom returns the zoom scale holder.
func (c *Controller) Zoom() *Zoom { return c.zoom }

// Pan returns the current pan offset in screen pixels.
func (c *Controller) Pan() model.Point { return c.pan }

// Phase returns the drag phase of a node.
func (c *Controller) Phase(id string) Phase {
	if st, ok := c.drags[id]; ok {
		return st.phase
	}
	return Idle
}

// Selected returns the id of the node whose detail panel is open.
func (c *Controller) Selected() string { return c.selected }

// SelectedNode returns the node whose detail panel is open, or nil.
func (c *Controller) SelectedNode() *model.Node {
	if c.selected == "" {
		return nil
	}
	return c.roadmap.Node(c.selected)
}

// ToWorld converts a screen point into layout coordinates.
func (c *Controller) ToWorld(p model.Point) model.Point {
	s := c.zoom.Scale()
	return model.Point{X: (p.X - c.pan.X) / s, Y: (p.Y - c.pan.Y) / s}
}

// ToScreen converts a layout point into screen coordinates.
func (c *Controller) ToScreen(p model.Point) model.Point {
	s := c.zoom.Scale()
	return model.Point{X: p.X*s + c.pan.X, Y: p.Y*s + c.pan.Y}
}

// PointerDown starts tracking a press. Pressing a node moves it to
// PotentialDrag; pressing the background starts panning.
func (c *Controller) PointerDown(p model.Point) Event {
	i := layout.NodeAt(c.roadmap, c.geom, c.ToWorld(p))
	if i < 0 {
		c.panning = true
		c.panStart = p
		c.panOrigin = c.pan
		return Event{Kind: EventNone}
	}
	n := &c.roadmap.Nodes[i]
	c.active = n.ID
	c.drags[n.ID] = &dragState{
		phase:        PotentialDrag,
		startPointer: p,
		startNode:    n.Position(),
	}
	return Event{Kind: EventPress, NodeID: n.ID}
}

// PointerMove advances a press. Travel beyond the threshold turns it into a
// drag; while dragging the node follows the pointer 1:1 on screen.
func (c *Controller) PointerMove(p model.Point) Event {
	if c.panning {
		c.pan = model.Point{X: c.panOrigin.X + p.X - c.panStart.X, Y: c.panOrigin.Y + p.Y - c.panStart.Y}
		return Event{Kind: EventPan}
	}
	st, ok := c.drags[c.active]
	if !ok {
		return Event{Kind: EventNone}
	}
	kind := EventDragMove
	if st.phase == PotentialDrag {
		if distance(st.startPointer, p) <= c.threshold {
			return Event{Kind: EventNone, NodeID: c.active}
		}
		st.phase = Dragging
		kind = EventDragStart
	}
	c.moveNode(c.active, st, p)
	return Event{Kind: kind, NodeID: c.active}
}

// PointerUp ends a press. A press released within the threshold of where it
// started is a click and opens the node's detail panel; anything farther is
// a drag, even without intervening moves, and commits the node's position.
func (c *Controller) PointerUp(p model.Point) Event {
	if c.panning {
		c.panning = false
		return Event{Kind: EventPan}
	}
	id := c.active
	st, ok := c.drags[id]
	c.active = ""
	if !ok {
		return Event{Kind: EventNone}
	}
	delete(c.drags, id)

	switch st.phase {
	case PotentialDrag:
		if distance(st.startPointer, p) > c.threshold {
			c.moveNode(id, st, p)
			return Event{Kind: EventDragEnd, NodeID: id}
		}
		c.selected = id
		return Event{Kind: EventClick, NodeID: id}
	case Dragging:
		c.moveNode(id, st, p)
		return Event{Kind: EventDragEnd, NodeID: id}
	}
	return Event{Kind: EventNone}
}

// Cancel abandons any press in progress, leaving nodes where they are.
func (c *Controller) Cancel() {
	c.panning = false
	c.active = ""
	for id := range c.drags {
		delete(c.drags, id)
	}
}

func (c *Controller) moveNode(id string, st *dragState, p model.Point) {
	n := c.roadmap.Node(id)
	if n == nil {
		return
	}
	s := c.zoom.Scale()
	n.MoveTo(model.Point{
		X: st.startNode.X + (p.X-st.startPointer.X)/s,
		Y: st.startNode.Y + (p.Y-st.startPointer.Y)/s,
	})
	c.reroute()
}

// OpenPanel opens the detail panel for id. Unknown ids are ignored.
func (c *Controller) OpenPanel(id string) Event {
	if !c.roadmap.HasNode(id) {
		return Event{Kind: EventNone}
	}
	c.selected = id
	return Event{Kind: EventClick, NodeID: id}
}

// ClosePanel closes the detail panel.
func (c *Controller) ClosePanel() Event {
	if c.selected == "" {
		return Event{Kind: EventNone}
	}
	id := c.selected
	c.selected = ""
	return Event{Kind: EventPanelClosed, NodeID: id}
}

// PanBy shifts the view by a screen offset.
func (c *Controller) PanBy(dx, dy float64) Event {
	c.pan.X += dx
	c.pan.Y += dy
	return Event{Kind: EventPan}
}

// ZoomIn, ZoomOut and ZoomReset change the display scale only.
func (c *Controller) ZoomIn() Event    { c.zoom.In(); return Event{Kind: EventZoom} }
func (c *Controller) ZoomOut() Event   { c.zoom.Out(); return Event{Kind: EventZoom} }
func (c *Controller) ZoomReset() Event { c.zoom.Reset(); return Event{Kind: EventZoom} }

// Wheel forwards a scroll to the zoom. Without the modifier the scroll pans
// vertically.
func (c *Controller) Wheel(deltaY float64, modifier bool) Event {
	if c.zoom.Wheel(deltaY, modifier) {
		return Event{Kind: EventZoom}
	}
	return c.PanBy(0, -deltaY)
}

// Relayout re-applies a layout engine, for example after switching strategy,
// and drops any press in progress.
func (c *Controller) Relayout(e *layout.Engine) layout.Result {
	c.Cancel()
	res := e.Apply(c.roadmap)
	c.geom = e.Geometry()
	c.reroute()
	return res
}

// SetRouter switches the connector style and reroutes.
func (c *Controller) SetRouter(rt *connector.Router) {
	c.router = rt
	c.reroute()
}

// Router returns the active connector router.
func (c *Controller) Router() *connector.Router { return c.router }

func (c *Controller) reroute() {
	c.paths = c.router.Route(c.roadmap)
}

func distance(a, b model.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
