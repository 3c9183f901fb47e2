// Package sample builds demo structures for the CLI, the server smoke test and
// package tests.
package sample

import (
	"fmt"

	"shipforge.ai/internal/ship/blocks"
)

var (
	HullGrey      = blocks.RGB(127, 127, 127)
	ArmorGrey     = blocks.RGB(70, 70, 75)
	EngineOrange  = blocks.RGB(230, 120, 30)
	ThrusterBlue  = blocks.RGB(60, 140, 230)
	GeneratorGold = blocks.RGB(230, 200, 40)
	CorePurple    = blocks.RGB(150, 60, 200)
	ShieldTeal    = blocks.RGB(40, 200, 180)
	CrewWhite     = blocks.RGB(235, 235, 235)
)

var unit = blocks.V(1, 1, 1)

func block(id string, cat blocks.Category, x, y, z float64, col blocks.Color) blocks.Block {
	return blocks.Block{
		ID:       id,
		Pos:      blocks.V(x, y, z),
		Size:     unit,
		Category: cat,
		Shape:    blocks.Cube,
		Material: "Iron",
		Color:    col,
	}
}

// Corvette is a small ship laid out along +X: a ten-block hull spine, two
// engines at the rear, a generator amidships, a hyperdrive core on the spine,
// a keel plate and two thrusters on opposite sides. It is mirror symmetric
// across the XZ plane.
func Corvette() *blocks.Structure {
	s := blocks.NewStructure("corvette")
	for x := 0; x < 10; x++ {
		s.Append(block(fmt.Sprintf("hull-%d", x), blocks.Hull, float64(x), 0, 0, HullGrey))
	}
	s.Append(
		block("engine-port", blocks.Engine, -1, 0.5, 0, EngineOrange),
		block("engine-starboard", blocks.Engine, -1, -0.5, 0, EngineOrange),
		block("generator", blocks.Generator, 5, 0, 1, GeneratorGold),
		block("core", blocks.HyperdriveCore, 3, 0, 1, CorePurple),
		block("thruster-port", blocks.Thruster, 4, 1, 0, ThrusterBlue),
		block("thruster-starboard", blocks.Thruster, 4, -1, 0, ThrusterBlue),
		block("keel", blocks.Armor, 5, 0, -1, ArmorGrey),
	)
	return s
}

// Station is an n-by-n deck with a central tower, crew quarters as the core,
// twin generators, a shield and a rear engine pair. n below 4 is raised to 4.
// Large n exercises the spatial grid path.
func Station(n int) *blocks.Structure {
	if n < 4 {
		n = 4
	}
	s := blocks.NewStructure(fmt.Sprintf("station-%d", n))
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			s.Append(block(fmt.Sprintf("deck-%d-%d", x, y), blocks.Hull, float64(x), float64(y), 0, HullGrey))
		}
	}
	c := float64(n / 2)
	for z := 1; z <= n/2; z++ {
		s.Append(block(fmt.Sprintf("tower-%d", z), blocks.Hull, c, c, float64(z), HullGrey))
	}
	s.Append(
		block("crew", blocks.CrewQuarters, c, c+1, 1, CrewWhite),
		block("generator-a", blocks.Generator, c-1, c, 1, GeneratorGold),
		block("generator-b", blocks.Generator, c+1, c, 1, GeneratorGold),
		block("shield", blocks.ShieldGenerator, c, c-1, 1, ShieldTeal),
		block("engine-a", blocks.Engine, -1, 1, 0, EngineOrange),
		block("engine-b", blocks.Engine, -1, float64(n-2), 0, EngineOrange),
		block("thruster-a", blocks.Thruster, c, 0, 1, ThrusterBlue),
		block("thruster-b", blocks.Thruster, c, float64(n-1), 1, ThrusterBlue),
	)
	return s
}

// Broken returns the corvette with one engine detached and pushed away from
// the hull, for repair demos.
func Broken() *blocks.Structure {
	s := Corvette()
	s.ID = "corvette-broken"
	for i := range s.Blocks {
		if s.Blocks[i].ID == "engine-starboard" {
			s.Blocks[i].Pos = blocks.V(-3, -2, 0)
		}
	}
	return s
}

// ByName resolves a demo name used by the CLI.
func ByName(name string) (*blocks.Structure, bool) {
	switch name {
	case "corvette":
		return Corvette(), true
	case "broken":
		return Broken(), true
	case "station":
		return Station(24), true
	}
	return nil, false
}

// Names lists the demo names ByName accepts.
func Names() []string { return []string{"corvette", "broken", "station"} }
