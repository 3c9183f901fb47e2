package spatial

import (
	"reflect"
	"testing"

	"shipforge.ai/internal/ship/blocks"
)

func TestCellOf_FloorsNegativeCoordinates(t *testing.T) {
	g := NewGrid(2)
	cases := []struct {
		p    blocks.Vec3
		want Cell
	}{
		{p: blocks.V(0, 0, 0), want: Cell{0, 0, 0}},
		{p: blocks.V(1.9, 2, 3.99), want: Cell{0, 1, 1}},
		{p: blocks.V(-0.1, -2, -2.1), want: Cell{-1, -1, -2}},
	}
	for _, c := range cases {
		if got := g.CellOf(c.p); got != c.want {
			t.Fatalf("CellOf(%v)=%v want %v", c.p, got, c.want)
		}
	}
}

func TestQueryBox_ReturnsSortedUniqueCandidates(t *testing.T) {
	g := NewGrid(1)
	g.InsertBox(3, blocks.AABB{Min: blocks.V(0, 0, 0), Max: blocks.V(2, 0.5, 0.5)})
	g.InsertBox(1, blocks.AABB{Min: blocks.V(1, 0, 0), Max: blocks.V(1.5, 0.5, 0.5)})
	g.InsertBox(7, blocks.AABB{Min: blocks.V(10, 10, 10), Max: blocks.V(11, 11, 11)})

	got := g.QueryBox(blocks.AABB{Min: blocks.V(0.5, 0, 0), Max: blocks.V(1.5, 0.5, 0.5)})
	if want := []int{1, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("QueryBox=%v want %v", got, want)
	}
	if got := g.QueryPoint(blocks.V(10.5, 10.5, 10.5), 0.1); !reflect.DeepEqual(got, []int{7}) {
		t.Fatalf("QueryPoint=%v", got)
	}
}

func TestInsertBox_OverflowIsAlwaysReturned(t *testing.T) {
	g := NewGrid(0.01)
	g.InsertBox(0, blocks.AABB{Min: blocks.V(0, 0, 0), Max: blocks.V(100, 100, 100)})
	if got := g.QueryPoint(blocks.V(-50, -50, -50), 0.001); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected overflow box in every query, got %v", got)
	}
}

func TestSuggestCellSize(t *testing.T) {
	bs := []blocks.Block{
		{Size: blocks.V(1, 1, 1)},
		{Size: blocks.V(2, 1, 1)},
		{Size: blocks.V(9, 1, 1)},
	}
	if got := SuggestCellSize(bs, 0.1); got != 2.1 {
		t.Fatalf("SuggestCellSize=%v want 2.1", got)
	}
	if got := SuggestCellSize(nil, 0.1); got != 1 {
		t.Fatalf("empty SuggestCellSize=%v", got)
	}
}
