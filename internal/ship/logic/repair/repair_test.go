package repair

import (
	"testing"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/connectivity"
	"shipforge.ai/internal/ship/tuning"
)

func cube(id string, cat blocks.Category, x, y, z float64) blocks.Block {
	return blocks.Block{ID: id, Category: cat, Pos: blocks.V(x, y, z), Size: blocks.V(1, 1, 1), Material: "Titanium"}
}

func cluster() *blocks.Structure {
	return blocks.NewStructure("cluster",
		cube("core", blocks.HyperdriveCore, 0, 0, 0),
		cube("h1", blocks.Hull, 1, 0, 0),
		cube("h2", blocks.Hull, 2, 0, 0),
		cube("h3", blocks.Hull, 2, 1, 0),
	)
}

func check(t *testing.T, s *blocks.Structure) connectivity.Result {
	t.Helper()
	res, err := connectivity.New(tuning.Defaults()).Validate(s)
	if err != nil {
		t.Fatalf("connectivity: %v", err)
	}
	return res
}

func TestSuggest_ReconnectsIsolatedBlock(t *testing.T) {
	s := cluster()
	s.Append(cube("stray", blocks.Engine, 9, 4, 3))
	before := check(t, s)
	if len(before.Disconnected) != 1 {
		t.Fatalf("setup: disconnected=%v", before.Disconnected)
	}

	cands := Suggest(s, before, OptionsFrom(tuning.Defaults()))
	if len(cands) != 1 {
		t.Fatalf("candidates=%d want 1", len(cands))
	}
	if s.Len() != 5 {
		t.Fatalf("Suggest must not mutate the structure")
	}
	c := cands[0]
	if c.FromID != "stray" || c.ToID != "h3" {
		t.Fatalf("bridge %s -> %s, want stray -> h3", c.FromID, c.ToID)
	}
	if c.Block.Category != blocks.Hull || c.Block.Material != "Titanium" {
		t.Fatalf("filler=%+v", c.Block)
	}

	if n := Apply(s, cands); n != 1 || s.Len() != 6 {
		t.Fatalf("Apply added %d, len=%d", n, s.Len())
	}
	after := check(t, s)
	if len(after.Disconnected) != 0 || !after.Valid {
		t.Fatalf("still disconnected after repair: %v", after.Disconnected)
	}
}

func TestSuggest_BridgesEachComponentOnce(t *testing.T) {
	s := cluster()
	s.Append(
		cube("a1", blocks.Thruster, 0, 6, 0),
		cube("a2", blocks.Thruster, 0, 7, 0),
		cube("b1", blocks.Hull, -6, 0, 0),
	)
	cands := Suggest(s, check(t, s), OptionsFrom(tuning.Defaults()))
	if len(cands) != 2 {
		t.Fatalf("candidates=%d want 2", len(cands))
	}
	if cands[0].FromID != "a1" || cands[1].FromID != "b1" {
		t.Fatalf("from=%s,%s", cands[0].FromID, cands[1].FromID)
	}
	Apply(s, cands)
	if res := check(t, s); len(res.Disconnected) != 0 {
		t.Fatalf("disconnected after repair: %v", res.Disconnected)
	}
}

func TestSuggest_DeterministicIDs(t *testing.T) {
	s := cluster()
	s.Append(cube("stray", blocks.Engine, 0, -5, 0))
	res := check(t, s)
	a := Suggest(s, res, OptionsFrom(tuning.Defaults()))
	b := Suggest(s, res, OptionsFrom(tuning.Defaults()))
	if len(a) != 1 || a[0].Block.ID == "" || a[0].Block.ID != b[0].Block.ID {
		t.Fatalf("ids differ: %v vs %v", a, b)
	}
}

func TestSuggest_NothingToRepair(t *testing.T) {
	s := cluster()
	if got := Suggest(s, check(t, s), Options{}); got != nil {
		t.Fatalf("expected no candidates, got %v", got)
	}
	if got := Suggest(nil, connectivity.Result{CoreIndex: -1}, Options{}); got != nil {
		t.Fatalf("expected nil for empty structure")
	}
}

func TestBridgeBox(t *testing.T) {
	a := blocks.AABB{Min: blocks.V(0, 0, 0), Max: blocks.V(1, 1, 1)}
	b := blocks.AABB{Min: blocks.V(4, 0.5, 0), Max: blocks.V(5, 1.5, 1)}
	center, size := bridgeBox(a, b, 0.5)
	if center != blocks.V(2.5, 0.75, 0.5) {
		t.Fatalf("center=%v", center)
	}
	if size != blocks.V(3, 0.5, 0.5) {
		t.Fatalf("size=%v", size)
	}
	f := blocks.AABB{Min: center.Sub(size.Scale(0.5)), Max: center.Add(size.Scale(0.5))}
	if !f.Touches(a, 0) || !f.Touches(b, 0) {
		t.Fatalf("filler %v must touch both boxes", f)
	}
}

func TestIssues(t *testing.T) {
	cands := []Candidate{{Block: blocks.Block{ID: "f"}, FromID: "x"}}
	if got := Issues(cands, false); len(got) != 1 || got[0].Code != diag.CodeRepairProposed || got[0].Source != diag.SourceRepair {
		t.Fatalf("proposed issues=%v", got)
	}
	if got := Issues(cands, true); got[0].Code != diag.CodeRepairApplied {
		t.Fatalf("applied issues=%v", got)
	}
}
