// Package connectivity checks that every block of a structure is reachable
// from its core block over the adjacency relation.
package connectivity

import (
	"math"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/adjacency"
	"shipforge.ai/internal/ship/tuning"
)

// CoreReason records which rule picked the core block.
type CoreReason string

const (
	CoreNone          CoreReason = ""
	CoreHyperdrive    CoreReason = "hyperdrive_core"
	CoreCrewQuarters  CoreReason = "crew_quarters"
	CorePodDocking    CoreReason = "pod_docking"
	CoreNearestCenter CoreReason = "nearest_center"
)

var corePriority = []struct {
	cat    blocks.Category
	reason CoreReason
}{
	{cat: blocks.HyperdriveCore, reason: CoreHyperdrive},
	{cat: blocks.CrewQuarters, reason: CoreCrewQuarters},
	{cat: blocks.PodDocking, reason: CorePodDocking},
}

type Result struct {
	Valid bool
	// Score is the integrity percentage (0-100).
	Score     float64
	Integrity float64

	CoreIndex  int
	CoreID     string
	CoreReason CoreReason

	Total        int
	Connected    []int
	Disconnected []int
	// Distances holds the hop count from the core per block, -1 when unreachable.
	Distances   []int
	MaxDistance int
	TooDistant  []int

	Warnings []diag.Issue
	Errors   []diag.Issue

	Graph *adjacency.Graph
}

// ConnectedCount is the number of blocks reachable from the core.
func (r Result) ConnectedCount() int { return len(r.Connected) }

type Analyzer struct {
	tune tuning.Tuning
}

func New(t tuning.Tuning) *Analyzer {
	return &Analyzer{tune: t}
}

// SelectCore picks the core block: the first HyperdriveCore, else the first
// CrewQuarters, else the first PodDocking, else the block whose center is
// nearest the bounding-box center. Ties resolve to the lowest insertion index.
func SelectCore(bs []blocks.Block) (int, CoreReason) {
	if len(bs) == 0 {
		return -1, CoreNone
	}
	for _, p := range corePriority {
		for i := range bs {
			if bs[i].Category == p.cat {
				return i, p.reason
			}
		}
	}
	s := blocks.Structure{Blocks: bs}
	center := s.Bounds().Center()
	best, bestD := -1, math.Inf(1)
	for i := range bs {
		if d := bs[i].Pos.Dist(center); d < bestD {
			best, bestD = i, d
		}
	}
	return best, CoreNearestCenter
}

func (a *Analyzer) GraphOptions() adjacency.Options {
	return adjacency.Options{
		Tolerance:     a.tune.AdjacencyTolerance,
		HashThreshold: a.tune.SpatialHashThreshold,
		CellSize:      a.tune.SpatialCellSize,
	}
}

// Validate builds a fresh adjacency graph and analyzes s. An empty (or nil)
// structure returns blocks.ErrEmptyStructure together with an invalid result.
func (a *Analyzer) Validate(s *blocks.Structure) (Result, error) {
	if s.Len() == 0 {
		return emptyResult(), blocks.ErrEmptyStructure
	}
	return a.Analyze(s, adjacency.Build(s.Blocks, a.GraphOptions()))
}

// Analyze reuses a graph built over s.Blocks.
func (a *Analyzer) Analyze(s *blocks.Structure, g *adjacency.Graph) (Result, error) {
	if s.Len() == 0 {
		return emptyResult(), blocks.ErrEmptyStructure
	}
	issues := diag.NewList(diag.SourceConnectivity)
	res := Result{Total: s.Len(), Graph: g}

	core, reason := SelectCore(s.Blocks)
	if core < 0 {
		issues.Error(diag.CodeNoCore, "", "no core block could be selected")
		res.CoreIndex = -1
		res.Errors = issues.Errors
		return res, nil
	}
	res.CoreIndex = core
	res.CoreID = s.Blocks[core].ID
	res.CoreReason = reason

	dist, _, _ := g.BFS(core)
	res.Distances = dist
	for i, d := range dist {
		if d < 0 {
			res.Disconnected = append(res.Disconnected, i)
			continue
		}
		res.Connected = append(res.Connected, i)
		if d > res.MaxDistance {
			res.MaxDistance = d
		}
	}
	res.Integrity = 100 * float64(len(res.Connected)) / float64(res.Total)
	res.Score = res.Integrity

	for _, i := range res.Disconnected {
		b := s.Blocks[i]
		issues.Warn(diag.CodeDisconnectedPart, b.ID, "block %s at (%.2f, %.2f, %.2f) is not connected to the core",
			blocks.BlockLabel(b, i), b.Pos.X, b.Pos.Y, b.Pos.Z)
	}
	if limit := a.tune.MaxCoreDistance; limit > 0 {
		for _, i := range res.Connected {
			if dist[i] > limit {
				res.TooDistant = append(res.TooDistant, i)
				b := s.Blocks[i]
				issues.Warn(diag.CodeCoreDistance, b.ID, "block %s is %d hops from the core (limit %d)",
					blocks.BlockLabel(b, i), dist[i], limit)
			}
		}
	}
	if n := len(res.Disconnected); n > 0 {
		issues.Error(diag.CodeDisconnected, "", "%d of %d blocks are disconnected from the core (integrity %.1f%%)",
			n, res.Total, res.Integrity)
	}

	res.Valid = len(issues.Errors) == 0
	res.Warnings = issues.Warnings
	res.Errors = issues.Errors
	return res, nil
}

func emptyResult() Result {
	issues := diag.NewList(diag.SourceConnectivity)
	issues.Error(diag.CodeEmptyStructure, "", "structure has no blocks")
	return Result{CoreIndex: -1, Errors: issues.Errors}
}
