// Package diag holds the diagnostic record shared by every analyzer.
package diag

import "fmt"

type Source string

const (
	SourceConnectivity Source = "connectivity"
	SourceFunctional   Source = "functional"
	SourceAesthetic    Source = "aesthetic"
	SourceRepair       Source = "repair"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const (
	// Connectivity.
	CodeEmptyStructure   = "E_EMPTY_STRUCTURE"
	CodeNoCore           = "E_NO_CORE"
	CodeDisconnected     = "E_DISCONNECTED"
	CodeDisconnectedPart = "W_DISCONNECTED_BLOCK"
	CodeCoreDistance     = "W_CORE_DISTANCE"

	// Functional.
	CodeMissingEngine    = "E_MISSING_ENGINE"
	CodeMissingGenerator = "E_MISSING_GENERATOR"
	CodeFewThrusters     = "W_FEW_THRUSTERS"
	CodeUnpowered        = "E_UNPOWERED"
	CodePowerMargin      = "E_POWER_MARGIN"
	CodeEnginePlacement  = "E_ENGINE_PLACEMENT"
	CodeGeneratorExposed = "E_GENERATOR_EXPOSED"
	CodeThrusterSpread   = "E_THRUSTER_SPREAD"

	// Aesthetic.
	CodeProportion        = "E_PROPORTION"
	CodeLowSymmetry       = "W_LOW_SYMMETRY"
	CodeBalance           = "W_BALANCE"
	CodeColorInconsistent = "W_COLOR_INCONSISTENT"
	CodeColorAmbiguous    = "W_COLOR_AMBIGUOUS"
	CodeStyleSymmetry     = "W_STYLE_SYMMETRY"
	CodeStyleSilhouette   = "W_STYLE_SILHOUETTE"

	// Repair.
	CodeRepairApplied  = "W_REPAIR_APPLIED"
	CodeRepairProposed = "W_REPAIR_PROPOSED"
)

var knownCodes = map[string]struct{}{
	CodeEmptyStructure:    {},
	CodeNoCore:            {},
	CodeDisconnected:      {},
	CodeDisconnectedPart:  {},
	CodeCoreDistance:      {},
	CodeMissingEngine:     {},
	CodeMissingGenerator:  {},
	CodeFewThrusters:      {},
	CodeUnpowered:         {},
	CodePowerMargin:       {},
	CodeEnginePlacement:   {},
	CodeGeneratorExposed:  {},
	CodeThrusterSpread:    {},
	CodeProportion:        {},
	CodeLowSymmetry:       {},
	CodeBalance:           {},
	CodeColorInconsistent: {},
	CodeColorAmbiguous:    {},
	CodeStyleSymmetry:     {},
	CodeStyleSilhouette:   {},
	CodeRepairApplied:     {},
	CodeRepairProposed:    {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}

// Issue is one warning or error produced by an analyzer.
type Issue struct {
	Source   Source   `json:"source"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	BlockID  string   `json:"block_id,omitempty"`
}

func (i Issue) String() string {
	if i.BlockID != "" {
		return fmt.Sprintf("[%s/%s] %s: %s (block %s)", i.Source, i.Severity, i.Code, i.Message, i.BlockID)
	}
	return fmt.Sprintf("[%s/%s] %s: %s", i.Source, i.Severity, i.Code, i.Message)
}

// List accumulates issues for a single analyzer in the order they were found.
type List struct {
	src      Source
	Warnings []Issue
	Errors   []Issue
}

func NewList(src Source) *List { return &List{src: src} }

func (l *List) Warn(code, blockID, format string, args ...any) {
	l.Warnings = append(l.Warnings, Issue{
		Source:   l.src,
		Severity: SeverityWarning,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		BlockID:  blockID,
	})
}

func (l *List) Error(code, blockID, format string, args ...any) {
	l.Errors = append(l.Errors, Issue{
		Source:   l.src,
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		BlockID:  blockID,
	})
}

// Merge concatenates issue lists, preserving their order.
func Merge(lists ...[]Issue) []Issue {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]Issue, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Messages flattens issues to their message text.
func Messages(issues []Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Message)
	}
	return out
}
