package diag

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		CodeEmptyStructure,
		CodeDisconnected,
		CodeDisconnectedPart,
		CodeMissingEngine,
		CodeUnpowered,
		CodePowerMargin,
		CodeProportion,
		CodeLowSymmetry,
		CodeRepairApplied,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestList_TagsSourceAndSeverity(t *testing.T) {
	l := NewList(SourceFunctional)
	l.Error(CodeMissingEngine, "", "no engines (have %d, need %d)", 0, 1)
	l.Warn(CodeFewThrusters, "t1", "only %d thrusters", 2)

	if len(l.Errors) != 1 || len(l.Warnings) != 1 {
		t.Fatalf("got %d errors %d warnings", len(l.Errors), len(l.Warnings))
	}
	e := l.Errors[0]
	if e.Source != SourceFunctional || e.Severity != SeverityError || e.Message != "no engines (have 0, need 1)" {
		t.Fatalf("unexpected error issue: %+v", e)
	}
	w := l.Warnings[0]
	if w.BlockID != "t1" || w.Severity != SeverityWarning {
		t.Fatalf("unexpected warning issue: %+v", w)
	}

	all := Merge(l.Errors, l.Warnings)
	if len(all) != 2 || all[0].Code != CodeMissingEngine || all[1].Code != CodeFewThrusters {
		t.Fatalf("merge order wrong: %+v", all)
	}
}
