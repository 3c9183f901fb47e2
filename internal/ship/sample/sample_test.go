package sample

import (
	"testing"

	"shipforge.ai/internal/ship/blocks"
)

func TestCorvette_Layout(t *testing.T) {
	s := Corvette()
	if s.Len() != 17 {
		t.Fatalf("blocks=%d want 17", s.Len())
	}
	counts := map[blocks.Category]int{}
	seen := map[string]bool{}
	for _, b := range s.Blocks {
		counts[b.Category]++
		if seen[b.ID] {
			t.Fatalf("duplicate id %s", b.ID)
		}
		seen[b.ID] = true
	}
	if counts[blocks.Hull] != 10 || counts[blocks.Engine] != 2 || counts[blocks.Generator] != 1 ||
		counts[blocks.Thruster] != 2 || counts[blocks.HyperdriveCore] != 1 {
		t.Fatalf("counts=%v", counts)
	}
	if ax := s.Bounds().LongestAxis(); ax != blocks.AxisX {
		t.Fatalf("length axis=%s", ax)
	}
}

func TestStation_IsLargeEnoughForTheGrid(t *testing.T) {
	s := Station(24)
	if s.Len() <= 256 {
		t.Fatalf("station has %d blocks", s.Len())
	}
	if small := Station(1); small.ID != "station-4" {
		t.Fatalf("n below 4 should clamp, got %s", small.ID)
	}
}

func TestByName(t *testing.T) {
	for _, n := range Names() {
		if s, ok := ByName(n); !ok || s.Len() == 0 {
			t.Fatalf("ByName(%q) failed", n)
		}
	}
	if _, ok := ByName("dreadnought"); ok {
		t.Fatalf("unknown demo should not resolve")
	}
	b := Broken()
	if i := b.Index("engine-starboard"); i < 0 || b.Blocks[i].Pos != blocks.V(-3, -2, 0) {
		t.Fatalf("broken engine not displaced")
	}
}
