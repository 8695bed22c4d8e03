// Package testutil provides deterministic roadmap fixtures and geometric
// assertions for layout, routing and interaction tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/sage/pkg/model"
)

// Generator builds roadmaps with known topologies.
type Generator struct {
	prefix string
	rng    *rand.Rand
}

// New creates a Generator. Seed 0 is replaced by 42 so fixtures stay
// reproducible.
func New(seed int64, prefix string) *Generator {
	if seed == 0 {
		seed = 42
	}
	if prefix == "" {
		prefix = "n"
	}
	return &Generator{prefix: prefix, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault returns a Generator with seed 42 and prefix "n".
func NewDefault() *Generator {
	return New(42, "n")
}

func (g *Generator) id(i int) string {
	return fmt.Sprintf("%s%d", g.prefix, i)
}

func (g *Generator) nodes(n int) []model.Node {
	out := make([]model.Node, n)
	for i := range out {
		out[i] = model.Node{
			ID:       g.id(i),
			Title:    fmt.Sprintf("Topic %d", i),
			Category: model.Categories[i%len(model.Categories)],
			Topics:   []string{fmt.Sprintf("topic-%d-a", i), fmt.Sprintf("topic-%d-b", i)},
		}
	}
	return out
}

// Chain returns n nodes linked n0 -> n1 -> ... -> n(n-1).
func (g *Generator) Chain(n int) *model.Roadmap {
	r := &model.Roadmap{Title: fmt.Sprintf("chain-%d", n), Nodes: g.nodes(n)}
	for i := 1; i < n; i++ {
		r.Edges = append(r.Edges, model.Edge{From: g.id(i - 1), To: g.id(i)})
	}
	return r
}

// Tree returns a complete tree with the given branching factor and depth.
func (g *Generator) Tree(branching, depth int) *model.Roadmap {
	count := 1
	level := 1
	for d := 0; d < depth; d++ {
		level *= branching
		count += level
	}
	r := &model.Roadmap{Title: "tree", Nodes: g.nodes(count)}
	for i := 1; i < count; i++ {
		parent := (i - 1) / branching
		r.Edges = append(r.Edges, model.Edge{From: g.id(parent), To: g.id(i)})
	}
	return r
}

// Diamond returns a fan-out of width nodes from a root merging into a sink.
func (g *Generator) Diamond(width int) *model.Roadmap {
	r := &model.Roadmap{Title: "diamond", Nodes: g.nodes(width + 2)}
	sink := g.id(width + 1)
	for i := 1; i <= width; i++ {
		r.Edges = append(r.Edges,
			model.Edge{From: g.id(0), To: g.id(i)},
			model.Edge{From: g.id(i), To: sink},
		)
	}
	return r
}

// Cycle returns a ring n0 -> ... -> n(n-1) -> n0.
func (g *Generator) Cycle(n int) *model.Roadmap {
	r := g.Chain(n)
	r.Title = fmt.Sprintf("cycle-%d", n)
	if n > 1 {
		r.Edges = append(r.Edges, model.Edge{From: g.id(n - 1), To: g.id(0)})
	}
	return r
}

// Disconnected returns a chain of main nodes followed by isolated nodes.
func (g *Generator) Disconnected(main, isolated int) *model.Roadmap {
	r := g.Chain(main + isolated)
	r.Title = "disconnected"
	if main > 0 {
		r.Edges = r.Edges[:main-1]
	} else {
		r.Edges = nil
	}
	return r
}

// Random returns n nodes with roughly density*n forward edges, so the result
// is acyclic, plus the given number of edges to ids that do not exist.
func (g *Generator) Random(n int, density float64, dangling int) *model.Roadmap {
	r := &model.Roadmap{Title: "random", Nodes: g.nodes(n)}
	want := int(float64(n) * density)
	for k := 0; k < want && n > 1; k++ {
		a := g.rng.Intn(n - 1)
		b := a + 1 + g.rng.Intn(n-a-1)
		r.Edges = append(r.Edges, model.Edge{From: g.id(a), To: g.id(b)})
	}
	for k := 0; k < dangling; k++ {
		from := g.id(g.rng.Intn(max(n, 1)))
		r.Edges = append(r.Edges, model.Edge{From: from, To: fmt.Sprintf("missing-%d", k)})
	}
	return r
}
