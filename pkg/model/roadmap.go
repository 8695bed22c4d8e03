// Package model defines the roadmap graph shared by layout, connector routing,
// interaction and persistence.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies how essential a node is on its roadmap.
type Category string

const (
	CategoryRequired    Category = "required"
	CategoryRecommended Category = "recommended"
	CategoryAlternative Category = "alternative"
	CategoryAnytime     Category = "anytime"
)

// Categories lists every node category in legend order.
var Categories = []Category{CategoryRequired, CategoryRecommended, CategoryAlternative, CategoryAnytime}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRequired, CategoryRecommended, CategoryAlternative, CategoryAnytime:
		return true
	}
	return false
}

// ParseCategory maps loosely formatted input onto a Category. Unknown values
// are treated as required.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsValid() {
		return c
	}
	return CategoryRequired
}

// ResourceType classifies a learning resource link.
type ResourceType string

const (
	ResourceArticle ResourceType = "article"
	ResourceVideo   ResourceType = "video"
	ResourceDocs    ResourceType = "docs"
	ResourceCourse  ResourceType = "course"
	ResourceBook    ResourceType = "book"
)

// Resource is an external learning link attached to a node or returned by
// resource search.
type Resource struct {
	Title   string       `json:"title" yaml:"title"`
	URL     string       `json:"url" yaml:"url"`
	Type    ResourceType `json:"type,omitempty" yaml:"type,omitempty"`
	Snippet string       `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Point is a position in layout space (unscaled pixels).
type Point struct {
	X float64
	Y float64
}

// Node is a single topic on a roadmap. X and Y are display state assigned by
// the layout engine or by dragging; they carry no semantic meaning.
type Node struct {
	ID            string     `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	X             float64    `json:"x" yaml:"x,omitempty"`
	Y             float64    `json:"y" yaml:"y,omitempty"`
	Category      Category   `json:"type" yaml:"type"`
	Topics        []string   `json:"topics,omitempty" yaml:"topics,omitempty"`
	EstimatedTime string     `json:"estimated_time,omitempty" yaml:"estimated_time,omitempty"`
	Description   string     `json:"description,omitempty" yaml:"description,omitempty"`
	Resources     []Resource `json:"resources,omitempty" yaml:"resources,omitempty"`
}

// Position returns the node's current coordinates.
func (n *Node) Position() Point {
	return Point{X: n.X, Y: n.Y}
}

// MoveTo sets the node's coordinates.
func (n *Node) MoveTo(p Point) {
	n.X = p.X
	n.Y = p.Y
}

// Edge is a directed prerequisite relation between two nodes.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// FAQ is a question and answer pair shown below catalog roadmaps.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// GenerationParams records the inputs of an AI generated roadmap.
type GenerationParams struct {
	Topic           string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Skills          []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty" yaml:"experience_level,omitempty"`
	CareerGoal      string   `json:"career_goal,omitempty" yaml:"career_goal,omitempty"`
}

// Roadmap is a directed graph of learning topics. Node order is display order.
type Roadmap struct {
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Slug        string            `json:"slug,omitempty" yaml:"slug,omitempty"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	Nodes       []Node            `json:"nodes" yaml:"nodes"`
	Edges       []Edge            `json:"connections" yaml:"connections"`
	Completed   []string          `json:"completed_nodes,omitempty" yaml:"completed_nodes,omitempty"`
	Progress    int               `json:"progress,omitempty" yaml:"-"`
	FAQs        []FAQ             `json:"faqs,omitempty" yaml:"faqs,omitempty"`
	AIGenerated bool              `json:"is_ai_generated,omitempty" yaml:"is_ai_generated,omitempty"`
	Params      *GenerationParams `json:"generation_params,omitempty" yaml:"generation_params,omitempty"`
}

// Validation errors.
var (
	ErrEmptyNodeID     = errors.New("node id is empty")
	ErrDuplicateNodeID = errors.New("duplicate node id")
)

// Validate checks node identity. Dangling edges are not an error; consumers
// skip them.
func (r *Roadmap) Validate() error {
	seen := make(map[string]bool, len(r.Nodes))
	var errs []error
	for i, n := range r.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			errs = append(errs, fmt.Errorf("node %d: %w", i, ErrEmptyNodeID))
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID, ErrDuplicateNodeID))
			continue
		}
		seen[n.ID] = true
	}
	return errors.Join(errs...)
}

// Normalize fixes up loosely produced data: unknown categories become
// required, and the completed list is reduced to known, unique node ids.
func (r *Roadmap) Normalize() {
	for i := range r.Nodes {
		r.Nodes[i].Category = ParseCategory(string(r.Nodes[i].Category))
	}
	if len(r.Completed) == 0 {
		return
	}
	idx := r.Index()
	seen := make(map[string]bool, len(r.Completed))
	kept := r.Completed[:0]
	for _, id := range r.Completed {
		if _, ok := idx[id]; !ok || seen[id] {
			continue
		}
		seen[id] = true
		kept = append(kept, id)
	}
	r.Completed = kept
}

// Index maps node id to its position in Nodes.
func (r *Roadmap) Index() map[string]int {
	idx := make(map[string]int, len(r.Nodes))
	for i, n := range r.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Node returns a pointer to the node with the given id, or nil.
func (r *Roadmap) Node(id string) *Node {
	for i := range r.Nodes {
		if r.Nodes[i].ID == id {
			return &r.Nodes[i]
		}
	}
	return nil
}

// HasNode reports whether a node with the given id exists.
func (r *Roadmap) HasNode(id string) bool {
	return r.Node(id) != nil
}

// ValidEdges returns edges whose endpoints both exist, without duplicates,
// in their original order.
func (r *Roadmap) ValidEdges() []Edge {
	idx := r.Index()
	seen := make(map[Edge]bool, len(r.Edges))
	out := make([]Edge, 0, len(r.Edges))
	for _, e := range r.Edges {
		if _, ok := idx[e.From]; !ok {
			continue
		}
		if _, ok := idx[e.To]; !ok {
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// Positions snapshots every node's coordinates keyed by id.
func (r *Roadmap) Positions() map[string]Point {
	out := make(map[string]Point, len(r.Nodes))
	for _, n := range r.Nodes {
		out[n.ID] = Point{X: n.X, Y: n.Y}
	}
	return out
}

// IsEmpty reports whether the roadmap has nothing to draw.
func (r *Roadmap) IsEmpty() bool {
	return r == nil || len(r.Nodes) == 0
}

// Clone returns a deep copy, so catalog entries and cached data are never
// mutated by a page view.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	c := *r
	c.Nodes = make([]Node, len(r.Nodes))
	for i, n := range r.Nodes {
		n.Topics = append([]string(nil), n.Topics...)
		n.Resources = append([]Resource(nil), n.Resources...)
		c.Nodes[i] = n
	}
	c.Edges = append([]Edge(nil), r.Edges...)
	c.Completed = append([]string(nil), r.Completed...)
	c.FAQs = append([]FAQ(nil), r.FAQs...)
	if r.Params != nil {
		p := *r.Params
		p.Skills = append([]string(nil), r.Params.Skills...)
		c.Params = &p
	}
	return &c
}

// Summary is a browse listing entry.
type Summary struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Slug        string `json:"slug" yaml:"slug"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	ViewCount   int    `json:"view_count,omitempty" yaml:"-"`
}

// User is the authenticated account as returned by the backend.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// FirstName returns the first word of the user's name, or the email local
// part when the name is empty.
func (u User) FirstName() string {
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
