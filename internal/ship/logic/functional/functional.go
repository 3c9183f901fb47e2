// Package functional checks that a structure can actually work as a ship:
// minimum component counts, power reachability, placement rules and power
// balance.
package functional

import (
	"math"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/adjacency"
	"shipforge.ai/internal/ship/tuning"
)

// lateralEps keeps blocks sitting exactly on the center plane from counting as
// either side.
const lateralEps = 1e-9

type Result struct {
	Valid bool
	// Score is the share of passed checks (0-100).
	Score float64

	Counts         map[blocks.Category]int
	EngineCount    int
	GeneratorCount int
	ThrusterCount  int
	ShieldCount    int
	GyroCount      int
	WeaponCount    int

	HasMinimumEngines       bool
	HasMinimumGenerators    bool
	HasRecommendedThrusters bool

	EnginesConnectedToPower   bool
	ThrustersConnectedToPower bool
	ShieldsConnectedToPower   bool
	WeaponsConnectedToPower   bool
	Unpowered                 []int

	LengthAxis           blocks.Axis
	EnginesAtRear        bool
	GeneratorsInternal   bool
	ThrustersDistributed bool

	TotalGeneration  float64
	TotalConsumption float64
	// PowerRatio is generation/consumption, +Inf when nothing consumes power.
	PowerRatio      float64
	PowerSufficient bool

	TotalThrust float64
	TotalShield float64
	TotalMass   float64

	Warnings []diag.Issue
	Errors   []diag.Issue
}

type Analyzer struct {
	cats *catalogs.Catalogs
	tune tuning.Tuning
}

// New returns an analyzer over the given catalogs; nil uses the built-in ones.
func New(cats *catalogs.Catalogs, t tuning.Tuning) *Analyzer {
	if cats == nil {
		cats = catalogs.Defaults()
	}
	return &Analyzer{cats: cats, tune: t}
}

func (a *Analyzer) Validate(s *blocks.Structure) (Result, error) {
	if s.Len() == 0 {
		return emptyResult(), blocks.ErrEmptyStructure
	}
	g := adjacency.Build(s.Blocks, adjacency.Options{
		Tolerance:     a.tune.AdjacencyTolerance,
		HashThreshold: a.tune.SpatialHashThreshold,
		CellSize:      a.tune.SpatialCellSize,
	})
	return a.Analyze(s, g)
}

// Analyze runs every functional check against a graph built over s.Blocks.
func (a *Analyzer) Analyze(s *blocks.Structure, g *adjacency.Graph) (Result, error) {
	if s.Len() == 0 {
		return emptyResult(), blocks.ErrEmptyStructure
	}
	issues := diag.NewList(diag.SourceFunctional)
	res := Result{Counts: make(map[blocks.Category]int)}

	a.count(s, &res)
	a.checkPresence(&res, issues)
	a.checkPower(s, g, &res, issues)
	a.checkPlacement(s, &res, issues)
	a.checkBalance(s, &res, issues)

	checks := []bool{
		res.HasMinimumEngines,
		res.HasMinimumGenerators,
		res.EnginesConnectedToPower,
		res.ThrustersConnectedToPower,
		res.ShieldsConnectedToPower,
		res.WeaponsConnectedToPower,
		res.EnginesAtRear,
		res.GeneratorsInternal,
		res.ThrustersDistributed,
		res.PowerSufficient,
	}
	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	res.Score = 100 * float64(passed) / float64(len(checks))
	res.Valid = len(issues.Errors) == 0
	res.Warnings = issues.Warnings
	res.Errors = issues.Errors
	return res, nil
}

func (a *Analyzer) count(s *blocks.Structure, res *Result) {
	for _, b := range s.Blocks {
		res.Counts[b.Category]++
	}
	res.EngineCount = res.Counts[blocks.Engine]
	res.GeneratorCount = res.Counts[blocks.Generator]
	res.ThrusterCount = res.Counts[blocks.Thruster]
	res.ShieldCount = res.Counts[blocks.ShieldGenerator]
	res.GyroCount = res.Counts[blocks.GyroArray]
	res.WeaponCount = res.Counts[blocks.TurretMount]
}

func (a *Analyzer) checkPresence(res *Result, issues *diag.List) {
	res.HasMinimumEngines = res.EngineCount >= a.tune.MinEngines && res.EngineCount > 0
	if !res.HasMinimumEngines {
		issues.Error(diag.CodeMissingEngine, "", "structure has %d engines, at least %d required",
			res.EngineCount, max(a.tune.MinEngines, 1))
	}
	res.HasMinimumGenerators = res.GeneratorCount >= a.tune.MinGenerators
	if !res.HasMinimumGenerators {
		issues.Error(diag.CodeMissingGenerator, "", "structure has %d generators, at least %d required",
			res.GeneratorCount, a.tune.MinGenerators)
	}
	res.HasRecommendedThrusters = res.ThrusterCount >= a.tune.RecommendedThrusters
	if !res.HasRecommendedThrusters {
		issues.Warn(diag.CodeFewThrusters, "", "structure has %d thrusters, %d recommended",
			res.ThrusterCount, a.tune.RecommendedThrusters)
	}
}

// checkPower marks a consumer as powered when its adjacency component holds a
// generator. The core block plays no part in this.
func (a *Analyzer) checkPower(s *blocks.Structure, g *adjacency.Graph, res *Result, issues *diag.List) {
	labels, _ := g.Components()
	powered := map[int]bool{}
	for i, b := range s.Blocks {
		if b.Category == blocks.Generator {
			powered[labels[i]] = true
		}
	}

	res.EnginesConnectedToPower = true
	res.ThrustersConnectedToPower = true
	res.ShieldsConnectedToPower = true
	res.WeaponsConnectedToPower = true
	for i, b := range s.Blocks {
		if !a.cats.IsPowerConsumer(b.Category) || powered[labels[i]] {
			continue
		}
		res.Unpowered = append(res.Unpowered, i)
		switch b.Category {
		case blocks.Engine:
			res.EnginesConnectedToPower = false
		case blocks.Thruster:
			res.ThrustersConnectedToPower = false
		case blocks.ShieldGenerator:
			res.ShieldsConnectedToPower = false
		case blocks.TurretMount:
			res.WeaponsConnectedToPower = false
		}
		issues.Error(diag.CodeUnpowered, b.ID, "%s has no path to a generator", blocks.BlockLabel(b, i))
	}
}

func (a *Analyzer) checkPlacement(s *blocks.Structure, res *Result, issues *diag.List) {
	box := s.Bounds()
	ax := box.LongestAxis()
	res.LengthAxis = ax
	lo, hi := box.Min.Axis(ax), box.Max.Axis(ax)
	length := hi - lo

	// 0 at the rear end, 1 at the front.
	along := func(b blocks.Block) float64 {
		if length <= 0 {
			return 0
		}
		return (b.Pos.Axis(ax) - lo) / length
	}

	res.EnginesAtRear = true
	res.GeneratorsInternal = true
	f := a.tune.GeneratorEdgeFraction
	var thrusters []blocks.Block
	for i, b := range s.Blocks {
		switch b.Category {
		case blocks.Engine:
			if p := along(b); p > a.tune.EngineRearFraction+lateralEps {
				res.EnginesAtRear = false
				issues.Error(diag.CodeEnginePlacement, b.ID, "%s sits at %.0f%% of the %s length, outside the rear %.0f%%",
					blocks.BlockLabel(b, i), 100*p, ax, 100*a.tune.EngineRearFraction)
			}
		case blocks.Generator:
			if p := along(b); p < f-lateralEps || p > 1-f+lateralEps {
				res.GeneratorsInternal = false
				issues.Error(diag.CodeGeneratorExposed, b.ID, "%s sits at %.0f%% of the %s length, inside the outer %.0f%% band",
					blocks.BlockLabel(b, i), 100*p, ax, 100*f)
			}
		case blocks.Thruster:
			thrusters = append(thrusters, b)
		}
	}

	res.ThrustersDistributed = thrustersDistributed(thrusters, box.Center(), ax)
	if !res.ThrustersDistributed {
		issues.Error(diag.CodeThrusterSpread, "", "%d thrusters are all on one side of the hull", len(thrusters))
	}
}

// thrustersDistributed reports whether, along some axis lateral to the length
// axis, thrusters sit on both sides of center. No thrusters passes; a single
// one cannot.
func thrustersDistributed(ts []blocks.Block, center blocks.Vec3, length blocks.Axis) bool {
	if len(ts) == 0 {
		return true
	}
	l1, l2 := length.Lateral()
	for _, ax := range []blocks.Axis{l1, l2} {
		c := center.Axis(ax)
		var neg, pos bool
		for _, t := range ts {
			d := t.Pos.Axis(ax) - c
			if d < -lateralEps {
				neg = true
			} else if d > lateralEps {
				pos = true
			}
		}
		if neg && pos {
			return true
		}
	}
	return false
}

func (a *Analyzer) checkBalance(s *blocks.Structure, res *Result, issues *diag.List) {
	for _, b := range s.Blocks {
		st := a.cats.Stats(b)
		res.TotalGeneration += st.Generation
		res.TotalConsumption += st.Consumption
		res.TotalThrust += st.Thrust
		res.TotalShield += st.Shield
		res.TotalMass += st.Mass
	}
	if res.TotalConsumption <= 0 {
		res.PowerRatio = math.Inf(1)
		res.PowerSufficient = true
		return
	}
	res.PowerRatio = res.TotalGeneration / res.TotalConsumption
	res.PowerSufficient = res.TotalGeneration >= a.tune.PowerMargin*res.TotalConsumption
	if !res.PowerSufficient {
		issues.Error(diag.CodePowerMargin, "", "generation %.1f is below %.2fx consumption %.1f (ratio %.2f)",
			res.TotalGeneration, a.tune.PowerMargin, res.TotalConsumption, res.PowerRatio)
	}
}

func emptyResult() Result {
	issues := diag.NewList(diag.SourceFunctional)
	issues.Error(diag.CodeEmptyStructure, "", "structure has no blocks")
	return Result{Counts: map[blocks.Category]int{}, Errors: issues.Errors}
}

// Suggestions maps failed checks to improvement hints, in check order.
func Suggestions(r Result) []string {
	var out []string
	if !r.HasMinimumEngines {
		out = append(out, "Add at least one engine at the rear of the ship")
	}
	if !r.HasMinimumGenerators {
		out = append(out, "Add a generator near the center of the ship")
	}
	if !r.HasRecommendedThrusters {
		out = append(out, "Add more thrusters for better maneuverability")
	}
	if !r.EnginesConnectedToPower || !r.ThrustersConnectedToPower ||
		!r.ShieldsConnectedToPower || !r.WeaponsConnectedToPower {
		out = append(out, "Connect every powered system to a generator through adjacent blocks")
	}
	if !r.EnginesAtRear {
		out = append(out, "Move engines toward the rear of the ship")
	}
	if !r.GeneratorsInternal {
		out = append(out, "Move generators inward so they are protected by the hull")
	}
	if !r.ThrustersDistributed {
		out = append(out, "Spread thrusters across both sides of the hull")
	}
	if !r.PowerSufficient {
		out = append(out, "Add generators or remove consumers to restore the power margin")
	}
	return out
}
