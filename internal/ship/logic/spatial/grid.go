// Package spatial is a uniform hash grid keyed by quantized position. It keeps
// neighbour lookups close to linear for station-sized structures.
package spatial

import (
	"math"
	"sort"

	"shipforge.ai/internal/ship/blocks"
)

type Cell struct {
	X, Y, Z int
}

// maxCellsPerBox caps how many cells a single huge box is spread across; beyond
// it the box lands in the overflow list and is returned by every query.
const maxCellsPerBox = 4096

type Grid struct {
	size     float64
	cells    map[Cell][]int
	overflow []int
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &Grid{size: cellSize, cells: map[Cell][]int{}}
}

func (g *Grid) CellSize() float64 { return g.size }

func (g *Grid) CellOf(p blocks.Vec3) Cell {
	return Cell{X: g.coord(p.X), Y: g.coord(p.Y), Z: g.coord(p.Z)}
}

func (g *Grid) coord(v float64) int {
	return int(math.Floor(v / g.size))
}

// InsertBox registers idx in every cell the box overlaps.
func (g *Grid) InsertBox(idx int, box blocks.AABB) {
	lo, hi := g.CellOf(box.Min), g.CellOf(box.Max)
	n := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)
	if n > maxCellsPerBox {
		g.overflow = append(g.overflow, idx)
		return
	}
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				c := Cell{X: x, Y: y, Z: z}
				g.cells[c] = append(g.cells[c], idx)
			}
		}
	}
}

func (g *Grid) InsertPoint(idx int, p blocks.Vec3) {
	c := g.CellOf(p)
	g.cells[c] = append(g.cells[c], idx)
}

// QueryBox returns every index registered in a cell the box overlaps, sorted
// and without duplicates. Callers still run an exact test on the candidates.
func (g *Grid) QueryBox(box blocks.AABB) []int {
	lo, hi := g.CellOf(box.Min), g.CellOf(box.Max)
	seen := map[int]struct{}{}
	out := make([]int, 0, 8)
	add := func(ids []int) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	n := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1) * (hi.Z - lo.Z + 1)
	if n > maxCellsPerBox {
		for _, ids := range g.cells {
			add(ids)
		}
	} else {
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for z := lo.Z; z <= hi.Z; z++ {
					add(g.cells[Cell{X: x, Y: y, Z: z}])
				}
			}
		}
	}
	add(g.overflow)
	sort.Ints(out)
	return out
}

// QueryPoint returns candidates within r of p (cell granularity).
func (g *Grid) QueryPoint(p blocks.Vec3, r float64) []int {
	d := blocks.Vec3{X: r, Y: r, Z: r}
	return g.QueryBox(blocks.AABB{Min: p.Sub(d), Max: p.Add(d)})
}

// SuggestCellSize picks a cell edge from the median of the largest block
// extents, so typical blocks span one or two cells.
func SuggestCellSize(bs []blocks.Block, tol float64) float64 {
	if len(bs) == 0 {
		return 1
	}
	ext := make([]float64, 0, len(bs))
	for _, b := range bs {
		ext = append(ext, b.Size.MaxComponent())
	}
	sort.Float64s(ext)
	m := ext[len(ext)/2] + tol
	if m <= 0 {
		return 1
	}
	return m
}
