package blocks

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownCategory = errors.New("blocks: unknown category")
	ErrUnknownShape    = errors.New("blocks: unknown shape")
)

// Category is the functional role of a block.
type Category uint8

const (
	Hull Category = iota
	Armor
	Engine
	Thruster
	GyroArray
	Generator
	ShieldGenerator
	TurretMount
	HyperdriveCore
	Cargo
	CrewQuarters
	PodDocking
	Computer
	Battery
	IntegrityField

	numCategories
)

var categoryNames = [...]string{
	Hull:            "Hull",
	Armor:           "Armor",
	Engine:          "Engine",
	Thruster:        "Thruster",
	GyroArray:       "GyroArray",
	Generator:       "Generator",
	ShieldGenerator: "ShieldGenerator",
	TurretMount:     "TurretMount",
	HyperdriveCore:  "HyperdriveCore",
	Cargo:           "Cargo",
	CrewQuarters:    "CrewQuarters",
	PodDocking:      "PodDocking",
	Computer:        "Computer",
	Battery:         "Battery",
	IntegrityField:  "IntegrityField",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

func (c Category) Valid() bool { return c < numCategories }

// IsStructural reports whether the category only carries hull geometry.
func (c Category) IsStructural() bool { return c == Hull || c == Armor }

// ParseCategory accepts the canonical name case-insensitively, with or without
// separators ("shield_generator", "Shield Generator", "ShieldGenerator").
func ParseCategory(s string) (Category, error) {
	key := normalizeName(s)
	for c := Category(0); c < numCategories; c++ {
		if normalizeName(categoryNames[c]) == key {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Shape modifies the effective volume of a block.
type Shape uint8

const (
	Cube Shape = iota
	Wedge
	Corner
	InnerCorner
	Tetrahedron
	HalfBlock

	numShapes
)

var shapeNames = [...]string{
	Cube:        "Cube",
	Wedge:       "Wedge",
	Corner:      "Corner",
	InnerCorner: "InnerCorner",
	Tetrahedron: "Tetrahedron",
	HalfBlock:   "HalfBlock",
}

var shapeVolume = [...]float64{
	Cube:        1,
	Wedge:       0.5,
	Corner:      0.25,
	InnerCorner: 0.75,
	Tetrahedron: 0.25,
	HalfBlock:   0.5,
}

func (s Shape) String() string {
	if s < numShapes {
		return shapeNames[s]
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// VolumeFactor is the fraction of the bounding box the shape fills.
func (s Shape) VolumeFactor() float64 {
	if s < numShapes {
		return shapeVolume[s]
	}
	return 1
}

// ParseShape treats an empty string as Cube.
func ParseShape(s string) (Shape, error) {
	if strings.TrimSpace(s) == "" {
		return Cube, nil
	}
	key := normalizeName(s)
	for v := Shape(0); v < numShapes; v++ {
		if normalizeName(shapeNames[v]) == key {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s Shape) MarshalText() ([]byte, error) {
	if s >= numShapes {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShape, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
