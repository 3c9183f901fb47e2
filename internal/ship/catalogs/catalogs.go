package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"shipforge.ai/internal/ship/blocks"
)

// Catalogs is the read-only definition table handed to the validators. It is
// built once (from a config dir or Defaults) and never mutated afterwards.
type Catalogs struct {
	Blocks    BlockCatalog
	Materials MaterialCatalog
	Styles    StyleCatalog
}

type BlockCatalog struct {
	Defs   map[blocks.Category]BlockDef
	Digest string
}

// BlockDef values are per unit of block volume.
type BlockDef struct {
	Category         blocks.Category `json:"category"`
	PowerGeneration  float64         `json:"power_generation,omitempty"`
	PowerConsumption float64         `json:"power_consumption,omitempty"`
	Thrust           float64         `json:"thrust,omitempty"`
	Shield           float64         `json:"shield,omitempty"`
	MassMultiplier   float64         `json:"mass_multiplier,omitempty"`
	PowerConsumer    bool            `json:"power_consumer,omitempty"`
}

type MaterialCatalog struct {
	ByName   map[string]MaterialDef
	Fallback string
	Digest   string
}

type MaterialDef struct {
	Name             string       `json:"name"`
	Tier             int          `json:"tier"`
	MassMultiplier   float64      `json:"mass_multiplier"`
	EnergyEfficiency float64      `json:"energy_efficiency"`
	ShieldMultiplier float64      `json:"shield_multiplier"`
	Color            blocks.Color `json:"color"`
}

type StyleCatalog struct {
	ByID   map[string]StyleDef
	Digest string
}

// StyleDef is a faction style descriptor used for advisory compliance checks.
type StyleDef struct {
	ID                string     `json:"id"`
	TargetSymmetry    float64    `json:"target_symmetry"`
	SymmetryTolerance float64    `json:"symmetry_tolerance,omitempty"`
	Silhouette        Silhouette `json:"silhouette"`
}

// Stats are the derived functional numbers for one block.
type Stats struct {
	Generation  float64
	Consumption float64
	Thrust      float64
	Shield      float64
	Mass        float64
}

func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

// LoadFS reads blocks.json, materials.json and (optionally) styles.json from
// the root of fsys.
func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs
	if err := loadBlocks(fsys, "blocks.json", &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadMaterials(fsys, "materials.json", &c.Materials); err != nil {
		return nil, err
	}
	if err := loadStyles(fsys, "styles.json", &c.Styles); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(fsys fs.FS, path string, out *BlockCatalog) error {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = make(map[blocks.Category]BlockDef, len(defs))
	for _, d := range defs {
		if _, dup := out.Defs[d.Category]; dup {
			return fmt.Errorf("blocks.json: duplicate category %s", d.Category)
		}
		if d.MassMultiplier == 0 {
			d.MassMultiplier = 1
		}
		out.Defs[d.Category] = d
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func loadMaterials(fsys fs.FS, path string, out *MaterialCatalog) error {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return err
	}
	var defs []MaterialDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("materials.json: %w", err)
	}
	if len(defs) == 0 {
		return fmt.Errorf("materials.json: no materials")
	}
	out.ByName = make(map[string]MaterialDef, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("materials.json: empty name")
		}
		out.ByName[strings.ToLower(d.Name)] = d
	}
	// Lowest tier is the fallback for unknown materials.
	sorted := append([]MaterialDef(nil), defs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Tier < sorted[j].Tier })
	out.Fallback = strings.ToLower(sorted[0].Name)
	out.Digest = sha256Hex(raw)
	return nil
}

func loadStyles(fsys fs.FS, path string, out *StyleCatalog) error {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			out.ByID = map[string]StyleDef{}
			return nil
		}
		return err
	}
	var defs []StyleDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("styles.json: %w", err)
	}
	out.ByID = make(map[string]StyleDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("styles.json: empty id")
		}
		if d.TargetSymmetry < 0 || d.TargetSymmetry > 1 {
			return fmt.Errorf("styles.json: %s: target_symmetry out of [0,1]", d.ID)
		}
		out.ByID[d.ID] = d
	}
	out.Digest = sha256Hex(raw)
	return nil
}

// Material resolves a material by name, falling back to the lowest tier.
func (c *Catalogs) Material(name string) MaterialDef {
	if m, ok := c.Materials.ByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m
	}
	if m, ok := c.Materials.ByName[c.Materials.Fallback]; ok {
		return m
	}
	return MaterialDef{Name: "Iron", MassMultiplier: 1, EnergyEfficiency: 1, ShieldMultiplier: 1}
}

func (c *Catalogs) Def(cat blocks.Category) BlockDef {
	if d, ok := c.Blocks.Defs[cat]; ok {
		return d
	}
	return BlockDef{Category: cat, MassMultiplier: 1}
}

func (c *Catalogs) IsPowerConsumer(cat blocks.Category) bool {
	return c.Def(cat).PowerConsumer
}

func (c *Catalogs) Stats(b blocks.Block) Stats {
	def := c.Def(b.Category)
	mat := c.Material(b.Material)
	vol := b.Volume()
	return Stats{
		Generation:  def.PowerGeneration * vol * mat.EnergyEfficiency,
		Consumption: def.PowerConsumption * vol,
		Thrust:      def.Thrust * vol * mat.EnergyEfficiency,
		Shield:      def.Shield * vol * mat.ShieldMultiplier,
		Mass:        vol * mat.MassMultiplier * def.MassMultiplier,
	}
}

func (c *Catalogs) Style(id string) (StyleDef, bool) {
	s, ok := c.Styles.ByID[id]
	return s, ok
}

// TotalMass sums catalog mass across the structure.
func (c *Catalogs) TotalMass(s *blocks.Structure) float64 {
	if s == nil {
		return 0
	}
	var m float64
	for _, b := range s.Blocks {
		m += c.Stats(b).Mass
	}
	return m
}
