package blocks

import (
	"errors"
	"math"
	"strconv"

	"github.com/google/uuid"
)

var ErrEmptyStructure = errors.New("blocks: empty structure")

// Block is one axis-aligned volumetric unit. Pos is the box center and Size the
// full extents along each axis.
type Block struct {
	ID       string   `json:"id"`
	Pos      Vec3     `json:"pos"`
	Size     Vec3     `json:"size"`
	Category Category `json:"category"`
	Shape    Shape    `json:"shape"`
	Material string   `json:"material"`
	Color    Color    `json:"color"`
}

// NewBlock returns a cube block with a fresh random id.
func NewBlock(cat Category, pos, size Vec3) Block {
	return Block{
		ID:       uuid.NewString(),
		Pos:      pos,
		Size:     size,
		Category: cat,
		Shape:    Cube,
		Material: "Iron",
	}
}

func (b Block) Half() Vec3 { return b.Size.Scale(0.5) }
func (b Block) Min() Vec3  { return b.Pos.Sub(b.Half()) }
func (b Block) Max() Vec3  { return b.Pos.Add(b.Half()) }
func (b Block) Box() AABB  { return AABB{Min: b.Min(), Max: b.Max()} }

func (b Block) Volume() float64 {
	return math.Abs(b.Size.X*b.Size.Y*b.Size.Z) * b.Shape.VolumeFactor()
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

func (a AABB) Dims() Vec3   { return a.Max.Sub(a.Min) }
func (a AABB) Center() Vec3 { return a.Min.Add(a.Max).Scale(0.5) }

func (a AABB) Extend(o AABB) AABB {
	return AABB{
		Min: Vec3{X: math.Min(a.Min.X, o.Min.X), Y: math.Min(a.Min.Y, o.Min.Y), Z: math.Min(a.Min.Z, o.Min.Z)},
		Max: Vec3{X: math.Max(a.Max.X, o.Max.X), Y: math.Max(a.Max.Y, o.Max.Y), Z: math.Max(a.Max.Z, o.Max.Z)},
	}
}

// Grow inflates the box by d on every side.
func (a AABB) Grow(d float64) AABB {
	g := Vec3{X: d, Y: d, Z: d}
	return AABB{Min: a.Min.Sub(g), Max: a.Max.Add(g)}
}

// LongestAxis picks the axis with the largest extent; ties go to the lower axis.
func (a AABB) LongestAxis() Axis {
	d := a.Dims()
	best := AxisX
	for _, ax := range []Axis{AxisY, AxisZ} {
		if d.Axis(ax) > d.Axis(best) {
			best = ax
		}
	}
	return best
}

// Touches reports whether the boxes overlap or are separated by at most tol on
// every axis.
func (a AABB) Touches(o AABB, tol float64) bool {
	return a.Min.X <= o.Max.X+tol && o.Min.X <= a.Max.X+tol &&
		a.Min.Y <= o.Max.Y+tol && o.Min.Y <= a.Max.Y+tol &&
		a.Min.Z <= o.Max.Z+tol && o.Min.Z <= a.Max.Z+tol
}

// Structure is an ordered block collection owned by the generator.
type Structure struct {
	ID        string            `json:"id"`
	Blocks    []Block           `json:"blocks"`
	TotalMass float64           `json:"total_mass,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func NewStructure(id string, bs ...Block) *Structure {
	return &Structure{ID: id, Blocks: bs}
}

func (s *Structure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Blocks)
}

// Bounds is the union of every block box. It returns the zero box for an empty
// structure.
func (s *Structure) Bounds() AABB {
	if s.Len() == 0 {
		return AABB{}
	}
	box := s.Blocks[0].Box()
	for _, b := range s.Blocks[1:] {
		box = box.Extend(b.Box())
	}
	return box
}

// Index returns the insertion index of the block with the given id, or -1.
func (s *Structure) Index(id string) int {
	if s == nil || id == "" {
		return -1
	}
	for i := range s.Blocks {
		if s.Blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Append adds blocks at the end. Validators never call it; the explicit repair
// apply step does.
func (s *Structure) Append(bs ...Block) {
	s.Blocks = append(s.Blocks, bs...)
}

func (s *Structure) SetMetadata(kv map[string]string) {
	if len(kv) == 0 {
		return
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]string, len(kv))
	}
	for k, v := range kv {
		s.Metadata[k] = v
	}
}

// BlockLabel renders a short, human readable block reference for diagnostics.
func BlockLabel(b Block, idx int) string {
	if b.ID != "" {
		return b.Category.String() + "#" + b.ID
	}
	return b.Category.String() + "@" + strconv.Itoa(idx)
}
