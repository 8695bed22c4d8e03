package layout

import "github.com/vanderheijden86/sage/pkg/model"

// serpentine fills a fixed-column grid row by row. Odd rows run right to
// left so consecutive nodes stay adjacent and the path snakes down the page.
func serpentine(r *model.Roadmap, g Geometry) Result {
	seq := buildIndex(r).sequence()
	for i, idx := range seq {
		row := i / g.Columns
		col := i % g.Columns
		if row%2 == 1 {
			col = g.Columns - 1 - col
		}
		r.Nodes[idx].X = g.Padding + float64(col)*g.ColumnWidth
		r.Nodes[idx].Y = g.Padding + float64(row)*g.RowHeight
	}
	rows := (len(seq) + g.Columns - 1) / g.Columns
	return Result{Strategy: Serpentine, Rows: rows}
}
