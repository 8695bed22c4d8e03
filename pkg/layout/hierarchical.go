package layout

import (
	"sort"

	"github.com/vanderheijden86/sage/pkg/model"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// crossingSweeps is the number of down/up barycenter passes per component.
const crossingSweeps = 2

// hierarchical ranks nodes by longest path from a source and stacks the
// components vertically, the one holding the first node on top. It reports
// false when the graph has a cycle.
func hierarchical(r *model.Roadmap, g Geometry) (Result, bool) {
	gi := buildIndex(r)

	dg := simple.NewDirectedGraph()
	for i := 0; i < gi.n; i++ {
		dg.AddNode(simple.Node(i))
	}
	for _, e := range gi.edges {
		dg.SetEdge(dg.NewEdge(simple.Node(e[0]), simple.Node(e[1])))
	}
	sorted, err := topo.Sort(dg)
	if err != nil {
		return Result{}, false
	}

	// Longest path rank. Any topological order yields the same ranks.
	rank := make([]int, gi.n)
	for _, node := range sorted {
		v := int(node.ID())
		for _, u := range gi.pred[v] {
			if rank[u]+1 > rank[v] {
				rank[v] = rank[u] + 1
			}
		}
	}

	var rows [][]int
	for _, comp := range gi.components() {
		depth := 0
		for _, v := range comp {
			if rank[v] > depth {
				depth = rank[v]
			}
		}
		compRows := make([][]int, depth+1)
		for _, v := range comp {
			compRows[rank[v]] = append(compRows[rank[v]], v)
		}
		reduceCrossings(compRows, gi)
		rows = append(rows, compRows...)
	}

	widest := 0
	for _, row := range rows {
		if len(row) > widest {
			widest = len(row)
		}
	}
	step := g.NodeWidth + g.NodeGap
	maxWidth := float64(widest)*step - g.NodeGap
	for ri, row := range rows {
		rowWidth := float64(len(row))*step - g.NodeGap
		x0 := g.Padding + (maxWidth-rowWidth)/2
		for k, v := range row {
			r.Nodes[v].X = x0 + float64(k)*step
			r.Nodes[v].Y = g.Padding + float64(ri)*g.RankGap
		}
	}
	return Result{Strategy: Hierarchical, Rows: len(rows)}, true
}

// reduceCrossings reorders each rank by the barycenter of its neighbours'
// positions, alternating downward (predecessors) and upward (successors)
// sweeps. Ties keep their current order, which starts as node index order.
func reduceCrossings(rows [][]int, gi graphIndex) {
	pos := make(map[int]float64, gi.n)
	record := func(row []int) {
		for k, v := range row {
			pos[v] = float64(k)
		}
	}
	for _, row := range rows {
		record(row)
	}

	reorder := func(row []int, neighbours [][]int) {
		bary := make(map[int]float64, len(row))
		for k, v := range row {
			sum, cnt := 0.0, 0
			for _, nb := range neighbours[v] {
				if p, ok := pos[nb]; ok {
					sum += p
					cnt++
				}
			}
			if cnt == 0 {
				bary[v] = float64(k)
				continue
			}
			bary[v] = sum / float64(cnt)
		}
		sort.SliceStable(row, func(i, j int) bool {
			return bary[row[i]] < bary[row[j]]
		})
		record(row)
	}

	for s := 0; s < crossingSweeps; s++ {
		for i := 1; i < len(rows); i++ {
			reorder(rows[i], gi.pred)
		}
		for i := len(rows) - 2; i >= 0; i-- {
			reorder(rows[i], gi.succ)
		}
	}
}
