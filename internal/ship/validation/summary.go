package validation

import (
	"math"
	"strconv"
)

// Metadata keys written onto a finished structure.
const (
	KeyStructuralIntegrity = "StructuralIntegrity"
	KeyPowerMargin         = "PowerMargin"
	KeySymmetry            = "Symmetry"
	KeySymmetryType        = "SymmetryType"
	KeyBalance             = "Balance"
	KeyDesignLanguage      = "DesignLanguage"
)

// Summary is the scalar digest of a report. PowerMargin is +Inf when nothing
// consumes power; the aesthetic fields are zero when the stage skipped them.
type Summary struct {
	StructuralIntegrity float64 `json:"structural_integrity"`
	PowerMargin         float64 `json:"power_margin"`
	Symmetry            float64 `json:"symmetry"`
	SymmetryType        string  `json:"symmetry_type"`
	Balance             float64 `json:"balance"`
	DesignLanguage      bool    `json:"design_language"`
}

func summarize(r Report) Summary {
	s := Summary{StructuralIntegrity: r.Connectivity.Integrity}
	if r.Functional != nil {
		s.PowerMargin = r.Functional.PowerRatio
	}
	if r.Aesthetic != nil {
		s.Symmetry = r.Aesthetic.SymmetryScore
		s.SymmetryType = string(r.Aesthetic.SymmetryType)
		s.Balance = r.Aesthetic.Balance
		s.DesignLanguage = r.Aesthetic.HasConsistentDesignLanguage
	}
	return s
}

// Metadata renders the summary as the key/value pairs a generator stores on
// the structure. Integrity is a percentage, the other scores are plain ratios.
func (s Summary) Metadata() map[string]string {
	design := "inconsistent"
	if s.DesignLanguage {
		design = "consistent"
	}
	symType := s.SymmetryType
	if symType == "" {
		symType = "none"
	}
	return map[string]string{
		KeyStructuralIntegrity: strconv.FormatFloat(s.StructuralIntegrity, 'f', 1, 64) + "%",
		KeyPowerMargin:         formatRatio(s.PowerMargin),
		KeySymmetry:            strconv.FormatFloat(s.Symmetry, 'f', 2, 64),
		KeySymmetryType:        symType,
		KeyBalance:             strconv.FormatFloat(s.Balance, 'f', 2, 64),
		KeyDesignLanguage:      design,
	}
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}
