package tuning

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Adjacency.
	AdjacencyTolerance   float64 `yaml:"adjacency_tolerance" validate:"gte=0"`
	SpatialHashThreshold int     `yaml:"spatial_hash_threshold" validate:"gte=0"`
	SpatialCellSize      float64 `yaml:"spatial_cell_size" validate:"gte=0"`

	// Connectivity.
	MaxCoreDistance int `yaml:"max_core_distance" validate:"gte=0"`

	// Functional.
	MinEngines            int     `yaml:"min_engines" validate:"gte=0"`
	MinGenerators         int     `yaml:"min_generators" validate:"gte=0"`
	RecommendedThrusters  int     `yaml:"recommended_thrusters" validate:"gte=0"`
	PowerMargin           float64 `yaml:"power_margin" validate:"gte=0"`
	EngineRearFraction    float64 `yaml:"engine_rear_fraction" validate:"gt=0,lte=1"`
	GeneratorEdgeFraction float64 `yaml:"generator_edge_fraction" validate:"gte=0,lt=0.5"`

	// Aesthetic.
	MinAspect              float64 `yaml:"min_aspect" validate:"gt=0"`
	MaxAspect              float64 `yaml:"max_aspect" validate:"gtfield=MinAspect"`
	RadialOrders           []int   `yaml:"radial_orders" validate:"dive,gte=2,lte=12"`
	MaxColorsPerCategory   int     `yaml:"max_colors_per_category" validate:"gte=1"`
	SymmetrySizeTolerance  float64 `yaml:"symmetry_size_tolerance" validate:"gte=0"`
	StyleSymmetryTolerance float64 `yaml:"style_symmetry_tolerance" validate:"gte=0,lte=1"`
	BalanceWarnBelow       float64 `yaml:"balance_warn_below" validate:"gte=0,lte=1"`
	SymmetryWarnBelow      float64 `yaml:"symmetry_warn_below" validate:"gte=0,lte=1"`

	// Repair.
	RepairMinSize float64 `yaml:"repair_min_size" validate:"gt=0"`
	AutoRepair    bool    `yaml:"auto_repair"`
}

func Defaults() Tuning {
	return Tuning{
		AdjacencyTolerance:   0.1,
		SpatialHashThreshold: 256,
		MaxCoreDistance:      50,

		MinEngines:            1,
		MinGenerators:         1,
		RecommendedThrusters:  4,
		PowerMargin:           1.2,
		EngineRearFraction:    0.3,
		GeneratorEdgeFraction: 0.2,

		MinAspect:              0.2,
		MaxAspect:              5.0,
		RadialOrders:           []int{2, 3, 4, 6},
		MaxColorsPerCategory:   2,
		SymmetrySizeTolerance:  0.1,
		StyleSymmetryTolerance: 0.25,
		BalanceWarnBelow:       0.5,
		SymmetryWarnBelow:      0.5,

		RepairMinSize: 0.5,
	}
}

// Load reads a tuning.yaml on top of Defaults; keys absent from the file keep
// their default value.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	return validator.New().Struct(t)
}
