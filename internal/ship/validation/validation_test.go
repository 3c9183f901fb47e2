package validation

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/aesthetic"
	"shipforge.ai/internal/ship/sample"
	"shipforge.ai/internal/ship/tuning"
)

func newValidator() *Validator {
	return New(catalogs.Defaults(), tuning.Defaults())
}

func hasCode(issues []diag.Issue, code string) bool {
	for _, i := range issues {
		if i.Code == code {
			return true
		}
	}
	return false
}

func TestRun_CorvetteEndToEnd(t *testing.T) {
	rep, err := newValidator().Run(sample.Corvette(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Stage != StageFinal || rep.StructureID != "corvette" {
		t.Fatalf("stage=%s id=%s", rep.Stage, rep.StructureID)
	}
	if !rep.Connectivity.Valid || rep.Connectivity.Integrity != 100 {
		t.Fatalf("connectivity: %+v", rep.Connectivity.Errors)
	}
	if rep.Connectivity.CoreID != "core" {
		t.Fatalf("core=%s", rep.Connectivity.CoreID)
	}
	fr := rep.Functional
	if fr == nil || !fr.Valid {
		t.Fatalf("functional invalid: %v", fr)
	}
	if fr.EngineCount < 1 || fr.GeneratorCount < 1 || !fr.ThrustersDistributed || !fr.EnginesAtRear || !fr.GeneratorsInternal {
		t.Fatalf("functional flags: %+v", fr)
	}
	ar := rep.Aesthetic
	if ar == nil || math.IsNaN(ar.Score) || ar.Score < 0 || ar.Score > 1 {
		t.Fatalf("aesthetic score not computable: %v", ar)
	}
	if ar.SymmetryType != aesthetic.SymmetryMirrorY || ar.SymmetryScore != 1 {
		t.Fatalf("symmetry=%s %v", ar.SymmetryType, ar.SymmetryScore)
	}
	if !rep.Valid {
		t.Fatalf("corvette should pass every analyzer: %v", rep.Errors())
	}
	if len(rep.Repairs) != 0 || rep.RepairsApplied {
		t.Fatalf("nothing to repair")
	}
	if !hasCode(rep.Warnings(), diag.CodeFewThrusters) {
		t.Fatalf("expected few-thruster warning, got %v", rep.Diagnostics)
	}
}

func TestRun_SummaryMetadata(t *testing.T) {
	s := sample.Corvette()
	rep, err := newValidator().Run(s, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	s.SetMetadata(rep.Summary.Metadata())
	want := map[string]string{
		KeyStructuralIntegrity: "100.0%",
		KeyPowerMargin:         "1.43",
		KeySymmetry:            "1.00",
		KeySymmetryType:        "mirror_y",
		KeyDesignLanguage:      "consistent",
	}
	for k, v := range want {
		if s.Metadata[k] != v {
			t.Fatalf("metadata[%s]=%q want %q", k, s.Metadata[k], v)
		}
	}
	if _, ok := s.Metadata[KeyBalance]; !ok {
		t.Fatalf("missing balance key")
	}
	if got := (Summary{PowerMargin: math.Inf(1)}).Metadata(); got[KeyPowerMargin] != "inf" || got[KeySymmetryType] != "none" {
		t.Fatalf("metadata=%v", got)
	}
}

func TestRun_BrokenWithoutAutoRepair(t *testing.T) {
	s := sample.Broken()
	n := s.Len()
	rep, err := newValidator().Run(s, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Valid || rep.Connectivity.Valid {
		t.Fatalf("broken corvette must be invalid")
	}
	if s.Len() != n || rep.RepairsApplied || rep.Initial != nil {
		t.Fatalf("validation must not mutate without auto repair")
	}
	if len(rep.Repairs) != 1 || rep.Repairs[0].FromID != "engine-starboard" {
		t.Fatalf("repairs=%+v", rep.Repairs)
	}
	for _, code := range []string{diag.CodeDisconnected, diag.CodeUnpowered} {
		if !hasCode(rep.Errors(), code) {
			t.Fatalf("missing %s in %v", code, rep.Errors())
		}
	}
	if !hasCode(rep.Warnings(), diag.CodeRepairProposed) {
		t.Fatalf("missing repair proposal in %v", rep.Warnings())
	}
	if len(rep.Suggestions) == 0 {
		t.Fatalf("expected suggestions")
	}
}

func TestRun_BrokenWithAutoRepair(t *testing.T) {
	s := sample.Broken()
	n := s.Len()
	rep, err := newValidator().Run(s, RunOptions{AutoRepair: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !rep.RepairsApplied || rep.Initial == nil || rep.Initial.Valid {
		t.Fatalf("expected an applied repair with the failing initial result")
	}
	if s.Len() != n+1 {
		t.Fatalf("len=%d want %d", s.Len(), n+1)
	}
	if !rep.Connectivity.Valid || len(rep.Connectivity.Disconnected) != 0 {
		t.Fatalf("still disconnected: %v", rep.Connectivity.Disconnected)
	}
	if rep.Functional == nil || !rep.Functional.Valid {
		t.Fatalf("functional after repair: %v", rep.Functional.Errors)
	}
	if !hasCode(rep.Warnings(), diag.CodeRepairApplied) {
		t.Fatalf("missing repair note: %v", rep.Diagnostics)
	}

	tune := tuning.Defaults()
	tune.AutoRepair = true
	again := sample.Broken()
	rep, _ = New(nil, tune).Run(again, RunOptions{})
	if !rep.RepairsApplied {
		t.Fatalf("auto_repair in tuning should apply repairs")
	}
}

func TestRun_EmptyStructure(t *testing.T) {
	for _, s := range []*blocks.Structure{nil, blocks.NewStructure("void")} {
		rep, err := newValidator().Run(s, RunOptions{})
		if !errors.Is(err, blocks.ErrEmptyStructure) {
			t.Fatalf("err=%v", err)
		}
		if rep.Valid || !hasCode(rep.Diagnostics, diag.CodeEmptyStructure) {
			t.Fatalf("empty report: %+v", rep)
		}
		if rep.Functional != nil || rep.Aesthetic != nil {
			t.Fatalf("analyzers must not run on an empty structure")
		}
	}
}

func TestRun_Stages(t *testing.T) {
	v := newValidator()
	rep, err := v.Run(sample.Corvette(), RunOptions{Stage: StageHull})
	if err != nil {
		t.Fatalf("hull: %v", err)
	}
	if rep.Functional != nil || rep.Aesthetic == nil {
		t.Fatalf("hull stage runs connectivity and aesthetics only")
	}
	if rep.Summary.PowerMargin != 0 {
		t.Fatalf("power margin should be unset at hull stage")
	}

	rep, err = v.Run(sample.Corvette(), RunOptions{Stage: StageSystems})
	if err != nil {
		t.Fatalf("systems: %v", err)
	}
	if rep.Functional == nil || rep.Aesthetic != nil {
		t.Fatalf("systems stage skips aesthetics")
	}

	if _, err := v.Run(sample.Corvette(), RunOptions{Stage: "paint"}); !errors.Is(err, ErrUnknownStage) {
		t.Fatalf("err=%v", err)
	}
	if st, err := ParseStage(" Final "); err != nil || st != StageFinal {
		t.Fatalf("ParseStage=%s %v", st, err)
	}
}

func TestRun_Style(t *testing.T) {
	v := newValidator()
	if _, err := v.Run(sample.Corvette(), RunOptions{StyleID: "ghost"}); !errors.Is(err, ErrUnknownStyle) {
		t.Fatalf("err=%v", err)
	}
	rep, err := v.Run(sample.Corvette(), RunOptions{StyleID: "trader"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Aesthetic.Style != "trader" {
		t.Fatalf("style=%q", rep.Aesthetic.Style)
	}
	for _, w := range rep.Warnings() {
		if w.Code == diag.CodeStyleSymmetry && w.Severity != diag.SeverityWarning {
			t.Fatalf("style findings are warnings")
		}
	}
}

func TestRun_DiagnosticsKeepAnalyzerOrder(t *testing.T) {
	rep, _ := newValidator().Run(sample.Broken(), RunOptions{})
	rank := map[diag.Source]int{
		diag.SourceConnectivity: 0,
		diag.SourceRepair:       1,
		diag.SourceFunctional:   2,
		diag.SourceAesthetic:    3,
	}
	last := -1
	for _, d := range rep.Diagnostics {
		r := rank[d.Source]
		if r < last {
			t.Fatalf("diagnostics out of order: %v", rep.Diagnostics)
		}
		last = r
		if !diag.IsKnownCode(d.Code) {
			t.Fatalf("unknown code %s", d.Code)
		}
	}
}

func TestRun_Logs(t *testing.T) {
	var buf bytes.Buffer
	v := New(nil, tuning.Defaults(), WithLogger(log.New(&buf, "[validate] ", 0)))
	if _, err := v.Run(sample.Corvette(), RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "validate id=corvette stage=final") {
		t.Fatalf("log=%q", out)
	}
}

func TestValidateFleet(t *testing.T) {
	ships := []*blocks.Structure{sample.Corvette(), blocks.NewStructure("void"), sample.Station(24)}
	res, err := newValidator().ValidateFleet(context.Background(), ships, RunOptions{}, 2)
	if err != nil {
		t.Fatalf("ValidateFleet: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("results=%d", len(res))
	}
	if res[0].Err != nil || !res[0].Report.Valid {
		t.Fatalf("corvette: %v %v", res[0].Err, res[0].Report.Errors())
	}
	if !errors.Is(res[1].Err, blocks.ErrEmptyStructure) || res[1].Index != 1 {
		t.Fatalf("void: %+v", res[1])
	}
	st := res[2].Report
	if res[2].Err != nil || !st.Connectivity.Valid || st.Functional == nil || !st.Functional.Valid {
		t.Fatalf("station: %v %v", res[2].Err, st.Errors())
	}
	if st.Connectivity.Graph.Method() != "grid" {
		t.Fatalf("station should use the grid, got %s", st.Connectivity.Graph.Method())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newValidator().ValidateFleet(ctx, ships, RunOptions{}, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled fleet err=%v", err)
	}
}
