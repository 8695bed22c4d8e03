package layout

import (
	"sort"

	"github.com/vanderheijden86/sage/pkg/model"
)

// graphIndex is the adjacency view both strategies work from: node indices
// instead of ids, dangling edges and self loops removed.
type graphIndex struct {
	n     int
	succ  [][]int
	pred  [][]int
	edges [][2]int
}

func buildIndex(r *model.Roadmap) graphIndex {
	idx := r.Index()
	gi := graphIndex{
		n:    len(r.Nodes),
		succ: make([][]int, len(r.Nodes)),
		pred: make([][]int, len(r.Nodes)),
	}
	for _, e := range r.ValidEdges() {
		from, to := idx[e.From], idx[e.To]
		if from == to {
			continue
		}
		gi.succ[from] = append(gi.succ[from], to)
		gi.pred[to] = append(gi.pred[to], from)
		gi.edges = append(gi.edges, [2]int{from, to})
	}
	return gi
}

// components splits the graph into weakly connected components. The
// component holding node 0 comes first; the rest follow in order of their
// lowest node index. Members are sorted by index.
func (gi graphIndex) components() [][]int {
	comp := make([]int, gi.n)
	for i := range comp {
		comp[i] = -1
	}
	var out [][]int
	for start := 0; start < gi.n; start++ {
		if comp[start] >= 0 {
			continue
		}
		id := len(out)
		members := []int{start}
		comp[start] = id
		for q := 0; q < len(members); q++ {
			v := members[q]
			for _, nb := range gi.succ[v] {
				if comp[nb] < 0 {
					comp[nb] = id
					members = append(members, nb)
				}
			}
			for _, nb := range gi.pred[v] {
				if comp[nb] < 0 {
					comp[nb] = id
					members = append(members, nb)
				}
			}
		}
		sort.Ints(members)
		out = append(out, members)
	}
	return out
}

// sequence is the display order: nodes reachable from the first node, then
// every other component in turn.
func (gi graphIndex) sequence() []int {
	seq := make([]int, 0, gi.n)
	for _, c := range gi.components() {
		seq = append(seq, c...)
	}
	return seq
}
