// Package adjacency builds the symmetric "touching within tolerance" relation
// over a block list. It is recomputed per validation call and never stored on
// the blocks themselves.
package adjacency

import (
	"sort"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/logic/spatial"
)

const DefaultTolerance = 0.1

type Options struct {
	Tolerance float64
	// HashThreshold switches to the spatial grid once the block count exceeds
	// it. Zero always uses the grid.
	HashThreshold int
	// CellSize overrides the grid cell edge; zero derives it from block sizes.
	CellSize float64
}

type Method string

const (
	MethodPairwise Method = "pairwise"
	MethodGrid     Method = "grid"
)

type Graph struct {
	neighbors [][]int
	edges     int
	method    Method
}

// Touching reports whether two blocks' boxes touch or overlap within tol.
func Touching(a, b blocks.Block, tol float64) bool {
	return a.Box().Touches(b.Box(), tol)
}

func Build(bs []blocks.Block, opts Options) *Graph {
	if opts.Tolerance < 0 {
		opts.Tolerance = 0
	}
	g := &Graph{neighbors: make([][]int, len(bs))}
	if len(bs) > opts.HashThreshold {
		g.method = MethodGrid
		g.buildGrid(bs, opts)
	} else {
		g.method = MethodPairwise
		g.buildPairwise(bs, opts.Tolerance)
	}
	for i := range g.neighbors {
		sort.Ints(g.neighbors[i])
	}
	return g
}

func (g *Graph) link(i, j int) {
	g.neighbors[i] = append(g.neighbors[i], j)
	g.neighbors[j] = append(g.neighbors[j], i)
	g.edges++
}

func (g *Graph) buildPairwise(bs []blocks.Block, tol float64) {
	boxes := make([]blocks.AABB, len(bs))
	for i := range bs {
		boxes[i] = bs[i].Box()
	}
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if boxes[i].Touches(boxes[j], tol) {
				g.link(i, j)
			}
		}
	}
}

func (g *Graph) buildGrid(bs []blocks.Block, opts Options) {
	cell := opts.CellSize
	if cell <= 0 {
		cell = spatial.SuggestCellSize(bs, opts.Tolerance)
	}
	grid := spatial.NewGrid(cell)
	boxes := make([]blocks.AABB, len(bs))
	for i := range bs {
		boxes[i] = bs[i].Box()
		grid.InsertBox(i, boxes[i])
	}
	for i := range boxes {
		for _, j := range grid.QueryBox(boxes[i].Grow(opts.Tolerance)) {
			if j <= i {
				continue
			}
			if boxes[i].Touches(boxes[j], opts.Tolerance) {
				g.link(i, j)
			}
		}
	}
}

func (g *Graph) Len() int       { return len(g.neighbors) }
func (g *Graph) Edges() int     { return g.edges }
func (g *Graph) Method() Method { return g.method }

func (g *Graph) Neighbors(i int) []int {
	if i < 0 || i >= len(g.neighbors) {
		return nil
	}
	return g.neighbors[i]
}

func (g *Graph) Adjacent(i, j int) bool {
	ns := g.Neighbors(i)
	k := sort.SearchInts(ns, j)
	return k < len(ns) && ns[k] == j
}

// BFS walks from start and returns hop distances (-1 when unreachable), the
// parent of each visited vertex (-1 for start and unreachable) and the visit
// order.
func (g *Graph) BFS(start int) (dist []int, parent []int, order []int) {
	n := len(g.neighbors)
	dist = make([]int, n)
	parent = make([]int, n)
	for i := range dist {
		dist[i] = -1
		parent[i] = -1
	}
	if start < 0 || start >= n {
		return dist, parent, nil
	}
	order = make([]int, 0, n)
	queue := make([]int, 0, n)
	dist[start] = 0
	queue = append(queue, start)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, nb := range g.neighbors[cur] {
			if dist[nb] >= 0 {
				continue
			}
			dist[nb] = dist[cur] + 1
			parent[nb] = cur
			queue = append(queue, nb)
		}
	}
	return dist, parent, order
}

// Components labels connected components in order of their lowest index.
func (g *Graph) Components() (labels []int, count int) {
	n := len(g.neighbors)
	labels = make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	stack := make([]int, 0, 16)
	for i := 0; i < n; i++ {
		if labels[i] >= 0 {
			continue
		}
		labels[i] = count
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, nb := range g.neighbors[cur] {
				if labels[nb] < 0 {
					labels[nb] = count
					stack = append(stack, nb)
				}
			}
		}
		count++
	}
	return labels, count
}
