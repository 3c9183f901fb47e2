package protocol

import (
	"errors"
	"math"
	"sort"

	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/aesthetic"
	"shipforge.ai/internal/ship/logic/connectivity"
	"shipforge.ai/internal/ship/logic/functional"
	"shipforge.ai/internal/ship/tuning"
	"shipforge.ai/internal/ship/validation"
)

// NewWelcomeMsg advertises the catalogs and stages this server validates with.
func NewWelcomeMsg(sessionID string, cats *catalogs.Catalogs, tune tuning.Tuning, maxBlocks int) WelcomeMsg {
	if cats == nil {
		cats = catalogs.Defaults()
	}
	styles := make([]string, 0, len(cats.Styles.ByID))
	for id := range cats.Styles.ByID {
		styles = append(styles, id)
	}
	sort.Strings(styles)
	return WelcomeMsg{
		Type:            TypeWelcome,
		ProtocolVersion: Version,
		SessionID:       sessionID,
		ServerCapabilities: ServerCapabilities{
			AutoRepair: tune.AutoRepair,
			MaxBlocks:  maxBlocks,
		},
		Catalogs: CatalogDigests{
			BlocksDigest:    cats.Blocks.Digest,
			MaterialsDigest: cats.Materials.Digest,
			StylesDigest:    cats.Styles.Digest,
		},
		Styles: styles,
		Stages: []string{
			string(validation.StageHull),
			string(validation.StageSystems),
			string(validation.StageFinal),
		},
	}
}

// NewReportMsg flattens a validation report for the wire. Infinite ratios
// become null; the graph and per-block distance tables are left out.
func NewReportMsg(requestID string, rep validation.Report) ReportMsg {
	m := ReportMsg{
		Type:            TypeReport,
		ProtocolVersion: Version,
		RequestID:       requestID,
		StructureID:     rep.StructureID,
		Stage:           string(rep.Stage),
		Valid:           rep.Valid,
		Summary: SummaryDoc{
			StructuralIntegrity: rep.Summary.StructuralIntegrity,
			Symmetry:            rep.Summary.Symmetry,
			SymmetryType:        rep.Summary.SymmetryType,
			Balance:             rep.Summary.Balance,
			DesignLanguage:      rep.Summary.DesignLanguage,
		},
		Metadata:       rep.Summary.Metadata(),
		Connectivity:   connectivityDoc(rep.Connectivity),
		RepairsApplied: rep.RepairsApplied,
		Diagnostics:    rep.Diagnostics,
		Suggestions:    rep.Suggestions,
	}
	if rep.Functional != nil {
		m.Summary.PowerMargin = finite(rep.Summary.PowerMargin)
		m.Functional = functionalDoc(*rep.Functional)
	}
	if rep.Aesthetic != nil {
		m.Aesthetic = aestheticDoc(*rep.Aesthetic)
	}
	if rep.Initial != nil {
		v := rep.Initial.Integrity
		m.Connectivity.Initial = &v
	}
	for _, c := range rep.Repairs {
		m.Repairs = append(m.Repairs, RepairDoc{
			Block:    c.Block,
			FromID:   c.FromID,
			FromIdx:  c.FromIndex,
			ToID:     c.ToID,
			ToIdx:    c.ToIndex,
			Distance: c.Distance,
		})
	}
	if m.Diagnostics == nil {
		m.Diagnostics = []diag.Issue{}
	}
	return m
}

// NewValidationError maps a validation failure to an ERROR message.
func NewValidationError(requestID string, err error) ErrorMsg {
	code := CodeFor(err)
	switch {
	case errors.Is(err, validation.ErrUnknownStyle):
		code = ErrUnknownStyle
	case errors.Is(err, validation.ErrUnknownStage):
		code = ErrUnknownStage
	}
	return NewErrorMsg(requestID, code, err.Error())
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func connectivityDoc(r connectivity.Result) ConnectivityDoc {
	d := ConnectivityDoc{
		Valid:        r.Valid,
		Integrity:    r.Integrity,
		CoreID:       r.CoreID,
		CoreIndex:    r.CoreIndex,
		CoreReason:   string(r.CoreReason),
		Total:        r.Total,
		Connected:    len(r.Connected),
		Disconnected: r.Disconnected,
		MaxDistance:  r.MaxDistance,
		TooDistant:   r.TooDistant,
	}
	if r.Graph != nil {
		d.Method = string(r.Graph.Method())
		d.Edges = r.Graph.Edges()
	}
	return d
}

func functionalDoc(r functional.Result) *FunctionalDoc {
	counts := make(map[string]int, len(r.Counts))
	for cat, n := range r.Counts {
		counts[cat.String()] = n
	}
	return &FunctionalDoc{
		Valid:                     r.Valid,
		Score:                     r.Score,
		Counts:                    counts,
		EnginesConnectedToPower:   r.EnginesConnectedToPower,
		ThrustersConnectedToPower: r.ThrustersConnectedToPower,
		ShieldsConnectedToPower:   r.ShieldsConnectedToPower,
		WeaponsConnectedToPower:   r.WeaponsConnectedToPower,
		EnginesAtRear:             r.EnginesAtRear,
		GeneratorsInternal:        r.GeneratorsInternal,
		ThrustersDistributed:      r.ThrustersDistributed,
		PowerSufficient:           r.PowerSufficient,
		TotalGeneration:           r.TotalGeneration,
		TotalConsumption:          r.TotalConsumption,
		PowerRatio:                finite(r.PowerRatio),
		TotalThrust:               r.TotalThrust,
		TotalShield:               r.TotalShield,
		TotalMass:                 r.TotalMass,
		LengthAxis:                r.LengthAxis.String(),
	}
}

func aestheticDoc(r aesthetic.Result) *AestheticDoc {
	d := &AestheticDoc{
		Valid:                       r.Valid,
		Score:                       r.Score,
		Dimensions:                  vec(r.Dimensions.X, r.Dimensions.Y, r.Dimensions.Z),
		GeometricCenter:             vec(r.GeometricCenter.X, r.GeometricCenter.Y, r.GeometricCenter.Z),
		CenterOfMass:                vec(r.CenterOfMass.X, r.CenterOfMass.Y, r.CenterOfMass.Z),
		Balance:                     r.Balance,
		SymmetryType:                string(r.SymmetryType),
		SymmetryScore:               r.SymmetryScore,
		ProportionsValid:            r.ProportionsValid,
		Aspects:                     [3]*float64{finite(r.LengthToWidth), finite(r.HeightToLength), finite(r.WidthToHeight)},
		HasConsistentDesignLanguage: r.HasConsistentDesignLanguage,
		FunctionalColorVariety:      r.FunctionalColorVariety,
		Style:                       r.Style,
	}
	if r.Style != "" {
		ok := r.SilhouetteMatches
		d.SilhouetteMatches = &ok
	}
	d.SymmetryScores = make([]SymmetryDoc, 0, len(r.SymmetryScores))
	for _, s := range r.SymmetryScores {
		d.SymmetryScores = append(d.SymmetryScores, SymmetryDoc{Type: string(s.Type), Score: s.Score})
	}
	return d
}

func vec(x, y, z float64) [3]float64 { return [3]float64{x, y, z} }
