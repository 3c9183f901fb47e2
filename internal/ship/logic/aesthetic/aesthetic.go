// Package aesthetic scores the look of a structure: balance, symmetry,
// proportions and color usage. Only degenerate proportions make a structure
// invalid; everything else is advisory.
package aesthetic

import (
	"math"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/tuning"
)

// minPosTol keeps float noise from defeating symmetry matches when the
// adjacency tolerance is configured as zero.
const minPosTol = 1e-6

// Composite score weights.
const (
	weightSymmetry   = 0.4
	weightBalance    = 0.3
	weightProportion = 0.2
	weightDesign     = 0.1
)

type Result struct {
	Valid bool
	// Score is a 0-1 composite of symmetry, balance, proportions and design
	// language.
	Score float64

	Bounds          blocks.AABB
	Dimensions      blocks.Vec3
	GeometricCenter blocks.Vec3
	CenterOfMass    blocks.Vec3
	Balance         float64

	SymmetryType   SymmetryType
	SymmetryScore  float64
	SymmetryScores []SymmetryScore

	LengthAxis       blocks.Axis
	Length           float64
	Width            float64
	Height           float64
	LengthToWidth    float64
	HeightToLength   float64
	WidthToHeight    float64
	ProportionsValid bool

	DominantColors              map[blocks.Category]blocks.Color
	ColorCounts                 map[blocks.Category]int
	Inconsistent                []blocks.Category
	Ambiguous                   [][2]blocks.Category
	FunctionalColorVariety      int
	HasConsistentDesignLanguage bool

	Style             string
	StyleSymmetryGap  float64
	SilhouetteMatches bool

	Warnings []diag.Issue
	Errors   []diag.Issue
}

type Analyzer struct {
	tune tuning.Tuning
}

func New(t tuning.Tuning) *Analyzer {
	return &Analyzer{tune: t}
}

// Validate analyzes s. style may be nil; when set, its symmetry target and
// silhouette produce advisory warnings only.
func (a *Analyzer) Validate(s *blocks.Structure, style *catalogs.StyleDef) (Result, error) {
	if s.Len() == 0 {
		issues := diag.NewList(diag.SourceAesthetic)
		issues.Error(diag.CodeEmptyStructure, "", "structure has no blocks")
		return Result{SymmetryType: SymmetryNone, Errors: issues.Errors}, blocks.ErrEmptyStructure
	}
	issues := diag.NewList(diag.SourceAesthetic)
	res := Result{}

	a.measure(s, &res, issues)
	a.symmetry(s, &res, issues)
	a.proportions(&res, issues)
	a.designLanguage(s, &res, issues)
	if style != nil {
		a.styleCompliance(style, &res, issues)
	}

	res.Score = weightSymmetry*res.SymmetryScore + weightBalance*res.Balance
	if res.ProportionsValid {
		res.Score += weightProportion
	}
	if res.HasConsistentDesignLanguage {
		res.Score += weightDesign
	}
	res.Valid = len(issues.Errors) == 0
	res.Warnings = issues.Warnings
	res.Errors = issues.Errors
	return res, nil
}

func (a *Analyzer) measure(s *blocks.Structure, res *Result, issues *diag.List) {
	res.Bounds = s.Bounds()
	res.Dimensions = res.Bounds.Dims()
	res.GeometricCenter = res.Bounds.Center()
	res.CenterOfMass = centerOfMass(s.Blocks, res.GeometricCenter)
	res.Balance = balance(res.CenterOfMass, res.GeometricCenter, res.Dimensions)
	if res.Balance < a.tune.BalanceWarnBelow {
		issues.Warn(diag.CodeBalance, "", "center of mass is off center (balance %.2f)", res.Balance)
	}
}

// centerOfMass weights block centers by volume. Zero-volume structures fall
// back to the plain average, then to fallback.
func centerOfMass(bs []blocks.Block, fallback blocks.Vec3) blocks.Vec3 {
	var sum blocks.Vec3
	var total float64
	for _, b := range bs {
		w := b.Volume()
		sum = sum.Add(b.Pos.Scale(w))
		total += w
	}
	if total > 0 {
		return sum.Scale(1 / total)
	}
	if len(bs) == 0 {
		return fallback
	}
	for _, b := range bs {
		sum = sum.Add(b.Pos)
	}
	return sum.Scale(1 / float64(len(bs)))
}

func balance(com, center, dims blocks.Vec3) float64 {
	half := 0.5 * dims.MaxComponent()
	if half <= 0 {
		return 1
	}
	return 1 - clamp01(com.Dist(center)/half)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func (a *Analyzer) symmetry(s *blocks.Structure, res *Result, issues *diag.List) {
	res.LengthAxis = res.Bounds.LongestAxis()
	sc := newSymmetryScanner(s.Blocks, math.Max(a.tune.AdjacencyTolerance, minPosTol), a.tune.SymmetrySizeTolerance)
	res.SymmetryType, res.SymmetryScore, res.SymmetryScores = sc.detect(res.GeometricCenter, res.LengthAxis, a.tune.RadialOrders)
	if res.SymmetryScore < a.tune.SymmetryWarnBelow {
		issues.Warn(diag.CodeLowSymmetry, "", "best symmetry %s only matches %.0f%% of blocks",
			res.SymmetryType, 100*res.SymmetryScore)
	}
}

// frame splits the bounding box into length, width and height. Lateral axes
// come back in ascending order, so height is the up extent whenever up is not
// the length axis.
func frame(dims blocks.Vec3, length blocks.Axis) (l, w, h float64) {
	u, v := length.Lateral()
	return dims.Axis(length), dims.Axis(u), dims.Axis(v)
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		if a <= 0 {
			return 1
		}
		return math.Inf(1)
	}
	return a / b
}

func (a *Analyzer) proportions(res *Result, issues *diag.List) {
	res.Length, res.Width, res.Height = frame(res.Dimensions, res.LengthAxis)
	res.LengthToWidth = ratio(res.Length, res.Width)
	res.HeightToLength = ratio(res.Height, res.Length)
	res.WidthToHeight = ratio(res.Width, res.Height)

	res.ProportionsValid = true
	for _, c := range []struct {
		name string
		v    float64
	}{
		{name: "length/width", v: res.LengthToWidth},
		{name: "height/length", v: res.HeightToLength},
		{name: "width/height", v: res.WidthToHeight},
	} {
		if c.v < a.tune.MinAspect || c.v > a.tune.MaxAspect {
			res.ProportionsValid = false
			issues.Error(diag.CodeProportion, "", "%s ratio %.2f is outside [%.2f, %.2f]",
				c.name, c.v, a.tune.MinAspect, a.tune.MaxAspect)
		}
	}
}

func (a *Analyzer) designLanguage(s *blocks.Structure, res *Result, issues *diag.List) {
	type tally struct {
		order  []blocks.Color
		counts map[blocks.Color]int
	}
	byCat := map[blocks.Category]*tally{}
	for _, b := range s.Blocks {
		t := byCat[b.Category]
		if t == nil {
			t = &tally{counts: map[blocks.Color]int{}}
			byCat[b.Category] = t
		}
		if t.counts[b.Color] == 0 {
			t.order = append(t.order, b.Color)
		}
		t.counts[b.Color]++
	}

	res.DominantColors = make(map[blocks.Category]blocks.Color, len(byCat))
	res.ColorCounts = make(map[blocks.Category]int, len(byCat))
	for _, cat := range blocks.Categories() {
		t := byCat[cat]
		if t == nil {
			continue
		}
		dom := t.order[0]
		for _, c := range t.order[1:] {
			if t.counts[c] > t.counts[dom] {
				dom = c
			}
		}
		res.DominantColors[cat] = dom
		res.ColorCounts[cat] = len(t.order)
		if len(t.order) > a.tune.MaxColorsPerCategory {
			res.Inconsistent = append(res.Inconsistent, cat)
			issues.Warn(diag.CodeColorInconsistent, "", "%s blocks use %d different colors (max %d)",
				cat, len(t.order), a.tune.MaxColorsPerCategory)
		}
	}

	// Hull against armor is the only pair allowed to share a dominant color.
	var present []blocks.Category
	for _, cat := range blocks.Categories() {
		if _, ok := res.DominantColors[cat]; ok {
			present = append(present, cat)
		}
	}
	distinct := map[blocks.Color]struct{}{}
	for i, ci := range present {
		if !ci.IsStructural() {
			distinct[res.DominantColors[ci]] = struct{}{}
		}
		for _, cj := range present[i+1:] {
			if ci.IsStructural() && cj.IsStructural() {
				continue
			}
			if res.DominantColors[ci] == res.DominantColors[cj] {
				res.Ambiguous = append(res.Ambiguous, [2]blocks.Category{ci, cj})
				col := res.DominantColors[ci]
				issues.Warn(diag.CodeColorAmbiguous, "", "%s and %s share the dominant color (%d, %d, %d)",
					ci, cj, col.R, col.G, col.B)
			}
		}
	}
	res.FunctionalColorVariety = len(distinct)
	res.HasConsistentDesignLanguage = len(res.Inconsistent) == 0 && len(res.Ambiguous) == 0
}

func (a *Analyzer) styleCompliance(style *catalogs.StyleDef, res *Result, issues *diag.List) {
	res.Style = style.ID
	tol := style.SymmetryTolerance
	if tol <= 0 {
		tol = a.tune.StyleSymmetryTolerance
	}
	res.StyleSymmetryGap = math.Abs(res.SymmetryScore - style.TargetSymmetry)
	if res.StyleSymmetryGap > tol {
		issues.Warn(diag.CodeStyleSymmetry, "", "symmetry %.2f differs from the %s target %.2f by more than %.2f",
			res.SymmetryScore, style.ID, style.TargetSymmetry, tol)
	}
	res.SilhouetteMatches = silhouetteMatches(style.Silhouette, res)
	if !res.SilhouetteMatches {
		issues.Warn(diag.CodeStyleSilhouette, "", "hull outline %.1fx%.1fx%.1f does not read as %s",
			res.Length, res.Width, res.Height, style.Silhouette)
	}
}

func silhouetteMatches(sil catalogs.Silhouette, r *Result) bool {
	switch sil {
	case catalogs.SilhouetteSleek:
		return r.Length >= 2*math.Max(r.Width, r.Height)
	case catalogs.SilhouetteBlocky:
		lo := math.Min(r.Length, math.Min(r.Width, r.Height))
		return lo > 0 && r.Length/lo <= 2
	case catalogs.SilhouetteWide:
		return r.Width >= r.Height && r.Width >= 0.5*r.Length
	case catalogs.SilhouetteTall:
		d := r.Dimensions
		up := d.Axis(blocks.Up)
		return up >= d.X && up >= d.Y
	default:
		return true
	}
}

// Suggestions maps advisory findings and failures to improvement hints.
func Suggestions(r Result, symmetryThreshold, balanceThreshold float64) []string {
	var out []string
	if !SymmetryDetected(r.SymmetryScore, symmetryThreshold) {
		out = append(out, "Mirror blocks across the center plane to improve symmetry")
	}
	if r.Balance < balanceThreshold {
		out = append(out, "Redistribute mass to bring the center of mass toward the geometric center")
	}
	if !r.ProportionsValid {
		out = append(out, "Adjust hull proportions to avoid needle or pancake shapes")
	}
	if len(r.Inconsistent) > 0 {
		out = append(out, "Limit each block category to one or two colors")
	}
	if len(r.Ambiguous) > 0 {
		out = append(out, "Give each functional system its own color")
	}
	if r.Style != "" && !r.SilhouetteMatches {
		out = append(out, "Reshape the hull to match the "+r.Style+" silhouette")
	}
	return out
}
