package testutil

import (
	"github.com/vanderheijden86/sage/pkg/model"
)

// TB is the subset of testing.TB the assertions need. Both *testing.T and
// *rapid.T satisfy it.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// AssertNoOverlap fails if any two node boxes of size w x h intersect.
func AssertNoOverlap(t TB, r *model.Roadmap, w, h float64) {
	t.Helper()
	for i := 0; i < len(r.Nodes); i++ {
		for j := i + 1; j < len(r.Nodes); j++ {
			a, b := r.Nodes[i], r.Nodes[j]
			if a.X < b.X+w && b.X < a.X+w && a.Y < b.Y+h && b.Y < a.Y+h {
				t.Fatalf("nodes %s (%.1f,%.1f) and %s (%.1f,%.1f) overlap", a.ID, a.X, a.Y, b.ID, b.X, b.Y)
			}
		}
	}
}

// AssertDistinctPositions fails if two nodes share identical coordinates.
func AssertDistinctPositions(t TB, r *model.Roadmap) {
	t.Helper()
	seen := make(map[model.Point]string, len(r.Nodes))
	for _, n := range r.Nodes {
		p := n.Position()
		if other, ok := seen[p]; ok {
			t.Fatalf("nodes %s and %s both at (%.1f,%.1f)", other, n.ID, p.X, p.Y)
		}
		seen[p] = n.ID
	}
}

// AssertSamePositions fails if a and b place any node differently.
func AssertSamePositions(t TB, a, b *model.Roadmap) {
	t.Helper()
	if len(a.Nodes) != len(b.Nodes) {
		t.Fatalf("node count differs: %d vs %d", len(a.Nodes), len(b.Nodes))
	}
	for i := range a.Nodes {
		if a.Nodes[i].Position() != b.Nodes[i].Position() {
			t.Fatalf("node %s: %v vs %v", a.Nodes[i].ID, a.Nodes[i].Position(), b.Nodes[i].Position())
		}
	}
}

// AssertAbove fails unless node from sits strictly above node to.
func AssertAbove(t TB, r *model.Roadmap, from, to string) {
	t.Helper()
	a, b := r.Node(from), r.Node(to)
	if a == nil || b == nil {
		t.Fatalf("missing node %s or %s", from, to)
	}
	if a.Y >= b.Y {
		t.Errorf("expected %s (y=%.1f) above %s (y=%.1f)", from, a.Y, to, b.Y)
	}
}
