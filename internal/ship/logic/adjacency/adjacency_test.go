package adjacency

import (
	"math/rand"
	"reflect"
	"testing"

	"shipforge.ai/internal/ship/blocks"
)

func cube(x, y, z float64) blocks.Block {
	return blocks.Block{Pos: blocks.V(x, y, z), Size: blocks.V(1, 1, 1)}
}

func TestBuild_LineIsAChain(t *testing.T) {
	bs := []blocks.Block{cube(0, 0, 0), cube(1, 0, 0), cube(2, 0, 0), cube(5, 0, 0)}
	g := Build(bs, Options{Tolerance: DefaultTolerance, HashThreshold: 100})
	if g.Method() != MethodPairwise {
		t.Fatalf("method=%s want pairwise", g.Method())
	}
	if g.Edges() != 2 {
		t.Fatalf("edges=%d want 2", g.Edges())
	}
	if !g.Adjacent(0, 1) || !g.Adjacent(1, 0) || !g.Adjacent(1, 2) {
		t.Fatalf("expected chain adjacency")
	}
	if g.Adjacent(0, 2) || len(g.Neighbors(3)) != 0 {
		t.Fatalf("unexpected adjacency: %v / %v", g.Neighbors(0), g.Neighbors(3))
	}

	dist, parent, order := g.BFS(0)
	if want := []int{0, 1, 2, -1}; !reflect.DeepEqual(dist, want) {
		t.Fatalf("dist=%v want %v", dist, want)
	}
	if parent[2] != 1 || parent[0] != -1 {
		t.Fatalf("parent=%v", parent)
	}
	if !reflect.DeepEqual(order, []int{0, 1, 2}) {
		t.Fatalf("order=%v", order)
	}

	labels, n := g.Components()
	if n != 2 || labels[0] != labels[2] || labels[3] == labels[0] {
		t.Fatalf("components labels=%v count=%d", labels, n)
	}
}

func TestBuild_ToleranceGap(t *testing.T) {
	bs := []blocks.Block{cube(0, 0, 0), cube(1.08, 0, 0)}
	if g := Build(bs, Options{Tolerance: 0.1, HashThreshold: 10}); g.Edges() != 1 {
		t.Fatalf("0.08 gap should be adjacent at tol 0.1")
	}
	if g := Build(bs, Options{Tolerance: 0.05, HashThreshold: 10}); g.Edges() != 0 {
		t.Fatalf("0.08 gap should not be adjacent at tol 0.05")
	}
}

func TestBuild_GridMatchesPairwise(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bs := make([]blocks.Block, 0, 600)
	for i := 0; i < 600; i++ {
		b := cube(float64(rng.Intn(20)), float64(rng.Intn(10)), float64(rng.Intn(6)))
		if i%17 == 0 {
			b.Size = blocks.V(4, 1, 1)
		}
		bs = append(bs, b)
	}
	pair := Build(bs, Options{Tolerance: 0.1, HashThreshold: len(bs)})
	grid := Build(bs, Options{Tolerance: 0.1, HashThreshold: 256})
	if pair.Method() != MethodPairwise || grid.Method() != MethodGrid {
		t.Fatalf("methods: %s / %s", pair.Method(), grid.Method())
	}
	if pair.Edges() != grid.Edges() {
		t.Fatalf("edge count differs: pairwise=%d grid=%d", pair.Edges(), grid.Edges())
	}
	for i := 0; i < len(bs); i++ {
		if !reflect.DeepEqual(pair.Neighbors(i), grid.Neighbors(i)) {
			t.Fatalf("neighbors of %d differ: %v vs %v", i, pair.Neighbors(i), grid.Neighbors(i))
		}
	}
}

func TestBFS_OutOfRangeStart(t *testing.T) {
	g := Build([]blocks.Block{cube(0, 0, 0)}, Options{})
	dist, _, order := g.BFS(5)
	if dist[0] != -1 || order != nil {
		t.Fatalf("expected nothing visited, dist=%v order=%v", dist, order)
	}
}
