// Package repair proposes filler blocks that reconnect stray parts of a
// structure to its core. Suggest never touches the structure; Apply is the
// explicit mutation step.
package repair

import (
	"math"
	"strconv"

	"github.com/google/uuid"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/adjacency"
	"shipforge.ai/internal/ship/logic/connectivity"
	"shipforge.ai/internal/ship/tuning"
)

var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://shipforge.ai/repair"))

type Options struct {
	// MinSize is the minimum filler extent on every axis.
	MinSize   float64
	Tolerance float64
}

func OptionsFrom(t tuning.Tuning) Options {
	return Options{MinSize: t.RepairMinSize, Tolerance: t.AdjacencyTolerance}
}

// Candidate is one proposed filler block bridging a disconnected block (From)
// to a connected one (To).
type Candidate struct {
	Block     blocks.Block `json:"block"`
	Component int          `json:"component"`
	FromIndex int          `json:"from_index"`
	FromID    string       `json:"from_id,omitempty"`
	ToIndex   int          `json:"to_index"`
	ToID      string       `json:"to_id,omitempty"`
	// Distance is the center distance between the bridged blocks.
	Distance float64 `json:"distance"`
}

// Suggest proposes one filler per disconnected component. Components are
// handled in order of their lowest block index; each one is bridged to the
// nearest block already connected (including components bridged before it).
// This is greedy and not globally minimal.
func Suggest(s *blocks.Structure, conn connectivity.Result, opts Options) []Candidate {
	if s.Len() == 0 || conn.CoreIndex < 0 || len(conn.Disconnected) == 0 {
		return nil
	}
	if opts.MinSize <= 0 {
		opts.MinSize = tuning.Defaults().RepairMinSize
	}
	g := conn.Graph
	if g == nil || g.Len() != s.Len() {
		g = adjacency.Build(s.Blocks, adjacency.Options{Tolerance: opts.Tolerance})
	}
	labels, _ := g.Components()

	groups := map[int][]int{}
	var order []int
	for _, i := range conn.Disconnected {
		l := labels[i]
		if _, ok := groups[l]; !ok {
			order = append(order, l)
		}
		groups[l] = append(groups[l], i)
	}

	connected := append([]int(nil), conn.Connected...)
	out := make([]Candidate, 0, len(order))
	for n, l := range order {
		members := groups[l]
		from, to, d := nearestPair(s.Blocks, members, connected)
		if from < 0 {
			continue
		}
		a, b := s.Blocks[from], s.Blocks[to]
		filler := blocks.Block{
			ID:       fillerID(s.ID, a, from, b, to),
			Category: blocks.Hull,
			Shape:    blocks.Cube,
			Material: b.Material,
			Color:    b.Color,
		}
		filler.Pos, filler.Size = bridgeBox(a.Box(), b.Box(), opts.MinSize)
		out = append(out, Candidate{
			Block:     filler,
			Component: n,
			FromIndex: from,
			FromID:    a.ID,
			ToIndex:   to,
			ToID:      b.ID,
			Distance:  d,
		})
		connected = append(connected, members...)
	}
	return out
}

// nearestPair returns the (member, connected) pair with the smallest center
// distance; ties keep the lowest indices.
func nearestPair(bs []blocks.Block, members, connected []int) (from, to int, dist float64) {
	from, to, dist = -1, -1, math.Inf(1)
	for _, i := range members {
		for _, j := range connected {
			if d := bs[i].Pos.Dist(bs[j].Pos); d < dist {
				from, to, dist = i, j, d
			}
		}
	}
	return from, to, dist
}

// bridgeBox spans the gap between two boxes axis by axis. On a separated axis
// the filler covers the whole gap; on an overlapping axis it sits on the
// middle of the overlap. Every extent is at least minSize, so the result
// touches both boxes.
func bridgeBox(a, b blocks.AABB, minSize float64) (center, size blocks.Vec3) {
	for _, ax := range []blocks.Axis{blocks.AxisX, blocks.AxisY, blocks.AxisZ} {
		lo := math.Max(a.Min.Axis(ax), b.Min.Axis(ax))
		hi := math.Min(a.Max.Axis(ax), b.Max.Axis(ax))
		c := (lo + hi) / 2
		ext := minSize
		if lo > hi {
			ext = math.Max(lo-hi, minSize)
		}
		center = center.WithAxis(ax, c)
		size = size.WithAxis(ax, ext)
	}
	return center, size
}

func fillerID(structureID string, a blocks.Block, ai int, b blocks.Block, bi int) string {
	key := structureID + "|" + ref(a, ai) + "|" + ref(b, bi)
	return uuid.NewSHA1(idSpace, []byte(key)).String()
}

func ref(b blocks.Block, idx int) string {
	if b.ID != "" {
		return b.ID
	}
	return "#" + strconv.Itoa(idx)
}

// Apply appends the candidate blocks to s and returns how many were added.
func Apply(s *blocks.Structure, cands []Candidate) int {
	if s == nil {
		return 0
	}
	for _, c := range cands {
		s.Append(c.Block)
	}
	return len(cands)
}

// Issues reports one repair diagnostic per candidate.
func Issues(cands []Candidate, applied bool) []diag.Issue {
	issues := diag.NewList(diag.SourceRepair)
	for _, c := range cands {
		p := c.Block.Pos
		if applied {
			issues.Warn(diag.CodeRepairApplied, c.Block.ID, "added filler at (%.2f, %.2f, %.2f) to reconnect block %s",
				p.X, p.Y, p.Z, ref(blocks.Block{ID: c.FromID}, c.FromIndex))
			continue
		}
		issues.Warn(diag.CodeRepairProposed, c.Block.ID, "filler at (%.2f, %.2f, %.2f) would reconnect block %s",
			p.X, p.Y, p.Z, ref(blocks.Block{ID: c.FromID}, c.FromIndex))
	}
	return issues.Warnings
}
