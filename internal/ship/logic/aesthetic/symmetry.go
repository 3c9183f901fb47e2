package aesthetic

import (
	"math"
	"strconv"
	"strings"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/logic/spatial"
)

// SymmetryType names a candidate symmetry. Radial types carry their order,
// e.g. "radial_4".
type SymmetryType string

const (
	SymmetryNone      SymmetryType = "none"
	SymmetryMirrorX   SymmetryType = "mirror_x"
	SymmetryMirrorY   SymmetryType = "mirror_y"
	SymmetryMirrorZ   SymmetryType = "mirror_z"
	SymmetryBilateral SymmetryType = "bilateral"
)

const radialPrefix = "radial_"

func Radial(n int) SymmetryType { return SymmetryType(radialPrefix + strconv.Itoa(n)) }

// RadialOrder returns n for a radial type and 0 otherwise.
func (t SymmetryType) RadialOrder() int {
	if !strings.HasPrefix(string(t), radialPrefix) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(string(t), radialPrefix))
	if err != nil {
		return 0
	}
	return n
}

type SymmetryScore struct {
	Type  SymmetryType `json:"type"`
	Score float64      `json:"score"`
}

// SymmetryDetected is the caller-side threshold check; the analyzer itself
// only reports scores.
func SymmetryDetected(score, threshold float64) bool { return score >= threshold }

// transform maps a block to its image under a candidate symmetry. sizeMatch
// reports whether a candidate's size agrees with the image's.
type transform struct {
	typ       SymmetryType
	apply     func(blocks.Vec3) blocks.Vec3
	sizeMatch func(orig, cand blocks.Vec3) bool
}

type symmetryScanner struct {
	bs      []blocks.Block
	grid    *spatial.Grid
	posTol  float64
	sizeTol float64
}

func newSymmetryScanner(bs []blocks.Block, posTol, sizeTol float64) *symmetryScanner {
	grid := spatial.NewGrid(spatial.SuggestCellSize(bs, posTol))
	for i := range bs {
		grid.InsertPoint(i, bs[i].Pos)
	}
	return &symmetryScanner{bs: bs, grid: grid, posTol: posTol, sizeTol: sizeTol}
}

// score is the fraction of blocks whose image lands on a block of the same
// category and matching size.
func (sc *symmetryScanner) score(tr transform) float64 {
	if len(sc.bs) == 0 {
		return 0
	}
	matched := 0
	for i := range sc.bs {
		if sc.hasImage(sc.bs[i], tr) {
			matched++
		}
	}
	return float64(matched) / float64(len(sc.bs))
}

func (sc *symmetryScanner) hasImage(b blocks.Block, tr transform) bool {
	p := tr.apply(b.Pos)
	for _, j := range sc.grid.QueryPoint(p, sc.posTol) {
		c := sc.bs[j]
		if c.Category != b.Category || c.Pos.Dist(p) > sc.posTol {
			continue
		}
		if tr.sizeMatch(b.Size, c.Size) {
			return true
		}
	}
	return false
}

func (sc *symmetryScanner) near(a, b float64) bool { return math.Abs(a-b) <= sc.sizeTol }

func (sc *symmetryScanner) sameSize(a, b blocks.Vec3) bool {
	return sc.near(a.X, b.X) && sc.near(a.Y, b.Y) && sc.near(a.Z, b.Z)
}

func mirror(center blocks.Vec3, ax blocks.Axis) func(blocks.Vec3) blocks.Vec3 {
	c := center.Axis(ax)
	return func(p blocks.Vec3) blocks.Vec3 {
		return p.WithAxis(ax, 2*c-p.Axis(ax))
	}
}

// transforms lists candidates in evaluation order: mirrors X, Y, Z, then
// bilateral, then each radial order about the length axis.
func (sc *symmetryScanner) transforms(center blocks.Vec3, length blocks.Axis, orders []int) []transform {
	out := []transform{
		{typ: SymmetryMirrorX, apply: mirror(center, blocks.AxisX), sizeMatch: sc.sameSize},
		{typ: SymmetryMirrorY, apply: mirror(center, blocks.AxisY), sizeMatch: sc.sameSize},
		{typ: SymmetryMirrorZ, apply: mirror(center, blocks.AxisZ), sizeMatch: sc.sameSize},
	}
	u, v := length.Lateral()
	mu, mv := mirror(center, u), mirror(center, v)
	out = append(out, transform{
		typ:       SymmetryBilateral,
		apply:     func(p blocks.Vec3) blocks.Vec3 { return mv(mu(p)) },
		sizeMatch: sc.sameSize,
	})
	for _, n := range orders {
		if n < 2 {
			continue
		}
		out = append(out, sc.radial(center, length, n))
	}
	return out
}

// radial rotates by 360/n degrees about the length axis through center. The
// lateral extents are compared as an unordered pair.
func (sc *symmetryScanner) radial(center blocks.Vec3, length blocks.Axis, n int) transform {
	u, v := length.Lateral()
	theta := 2 * math.Pi / float64(n)
	sin, cos := math.Sin(theta), math.Cos(theta)
	cu, cv := center.Axis(u), center.Axis(v)
	return transform{
		typ: Radial(n),
		apply: func(p blocks.Vec3) blocks.Vec3 {
			du, dv := p.Axis(u)-cu, p.Axis(v)-cv
			p = p.WithAxis(u, cu+du*cos-dv*sin)
			return p.WithAxis(v, cv+du*sin+dv*cos)
		},
		sizeMatch: func(a, b blocks.Vec3) bool {
			if !sc.near(a.Axis(length), b.Axis(length)) {
				return false
			}
			au, av := a.Axis(u), a.Axis(v)
			bu, bv := b.Axis(u), b.Axis(v)
			return (sc.near(au, bu) && sc.near(av, bv)) || (sc.near(au, bv) && sc.near(av, bu))
		},
	}
}

// detect scores every candidate and returns the best one. Earlier
// candidates win ties. A best score of zero reports SymmetryNone.
func (sc *symmetryScanner) detect(center blocks.Vec3, length blocks.Axis, orders []int) (SymmetryType, float64, []SymmetryScore) {
	trs := sc.transforms(center, length, orders)
	scores := make([]SymmetryScore, 0, len(trs))
	best, bestScore := SymmetryNone, 0.0
	for _, tr := range trs {
		s := sc.score(tr)
		scores = append(scores, SymmetryScore{Type: tr.typ, Score: s})
		if s > bestScore {
			best, bestScore = tr.typ, s
		}
	}
	return best, bestScore, scores
}
