package model

import (
	"errors"
	"testing"
)

func sampleRoadmap() *Roadmap {
	return &Roadmap{
		Title: "Sample",
		Nodes: []Node{
			{ID: "a", Title: "A", Category: "required", Topics: []string{"t1"}},
			{ID: "b", Title: "B", Category: "Recommended"},
			{ID: "c", Title: "C", Category: "bogus"},
		},
		Edges: []Edge{
			{From: "a", To: "b"},
			{From: "b", To: "c"},
			{From: "a", To: "b"},
			{From: "c", To: "ghost"},
			{From: "ghost", To: "a"},
		},
		Completed: []string{"a", "ghost", "a", "c"},
	}
}

func TestValidate(t *testing.T) {
	r := sampleRoadmap()
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid roadmap, got %v", err)
	}

	r.Nodes = append(r.Nodes, Node{ID: "a"}, Node{ID: " "})
	err := r.Validate()
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}
	if !errors.Is(err, ErrEmptyNodeID) {
		t.Errorf("expected ErrEmptyNodeID, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	r := sampleRoadmap()
	r.Normalize()

	want := []Category{CategoryRequired, CategoryRecommended, CategoryRequired}
	for i, n := range r.Nodes {
		if n.Category != want[i] {
			t.Errorf("node %s category = %q, want %q", n.ID, n.Category, want[i])
		}
	}
	if len(r.Completed) != 2 || r.Completed[0] != "a" || r.Completed[1] != "c" {
		t.Errorf("completed = %v, want [a c]", r.Completed)
	}
}

func TestValidEdges(t *testing.T) {
	r := sampleRoadmap()
	edges := r.ValidEdges()
	if len(edges) != 2 {
		t.Fatalf("expected 2 valid edges, got %d: %v", len(edges), edges)
	}
	if edges[0] != (Edge{From: "a", To: "b"}) || edges[1] != (Edge{From: "b", To: "c"}) {
		t.Errorf("unexpected edges %v", edges)
	}
}

func TestClone_IsDeep(t *testing.T) {
	r := sampleRoadmap()
	r.Params = &GenerationParams{Skills: []string{"go"}}
	c := r.Clone()

	c.Nodes[0].X = 99
	c.Nodes[0].Topics[0] = "changed"
	c.Edges[0].To = "c"
	c.Params.Skills[0] = "rust"

	if r.Nodes[0].X != 0 || r.Nodes[0].Topics[0] != "t1" {
		t.Error("clone shares node storage with original")
	}
	if r.Edges[0].To != "b" {
		t.Error("clone shares edge storage with original")
	}
	if r.Params.Skills[0] != "go" {
		t.Error("clone shares generation params with original")
	}
	if (*Roadmap)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestNodeLookup(t *testing.T) {
	r := sampleRoadmap()
	n := r.Node("b")
	if n == nil {
		t.Fatal("expected node b")
	}
	n.MoveTo(Point{X: 10, Y: 20})
	if got := r.Positions()["b"]; got != (Point{X: 10, Y: 20}) {
		t.Errorf("position not written through pointer: %v", got)
	}
	if r.HasNode("ghost") {
		t.Error("ghost should not exist")
	}
}

func TestIsEmpty(t *testing.T) {
	var nilRoadmap *Roadmap
	if !nilRoadmap.IsEmpty() {
		t.Error("nil roadmap should be empty")
	}
	if !(&Roadmap{}).IsEmpty() {
		t.Error("roadmap without nodes should be empty")
	}
	if sampleRoadmap().IsEmpty() {
		t.Error("sample roadmap should not be empty")
	}
}

func TestUserFirstName(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{Name: "Ada Lovelace"}, "Ada"},
		{User{Email: "grace@example.com"}, "grace"},
		{User{Email: "plain"}, "plain"},
	}
	for _, tt := range tests {
		if got := tt.user.FirstName(); got != tt.want {
			t.Errorf("FirstName(%+v) = %q, want %q", tt.user, got, tt.want)
		}
	}
}
