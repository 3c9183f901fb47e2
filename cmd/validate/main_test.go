package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shipforge.ai/internal/persistence/structfile"
	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/sample"
	"shipforge.ai/internal/ship/validation"
)

func TestRun_DemoCorvette(t *testing.T) {
	dir := t.TempDir()
	var out, errs bytes.Buffer
	code := run([]string{
		"-demo", "corvette",
		"-configs", dir,
		"-out", filepath.Join(dir, "report.json"),
		"-write", filepath.Join(dir, "corvette.json.zst"),
		"-data", dir,
		"-index", filepath.Join(dir, "index.db"),
	}, &out, &errs)
	if code != 0 {
		t.Fatalf("exit=%d out=%s err=%s", code, out.String(), errs.String())
	}
	if !strings.Contains(out.String(), "corvette [final] VALID") {
		t.Fatalf("out=%s", out.String())
	}

	raw, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := protocol.ValidateJSON(protocol.SchemaReport, raw); err != nil {
		t.Fatalf("report schema: %v", err)
	}

	s, err := structfile.Read(filepath.Join(dir, "corvette.json.zst"))
	if err != nil {
		t.Fatalf("read structure: %v", err)
	}
	if s.Metadata[validation.KeyStructuralIntegrity] != "100.0%" {
		t.Fatalf("metadata=%v", s.Metadata)
	}
}

func TestRun_BrokenFileFailsUnlessRepaired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	if err := structfile.Write(path, sample.Broken()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var out, errs bytes.Buffer
	if code := run([]string{"-configs", dir, path}, &out, &errs); code != 1 {
		t.Fatalf("exit=%d want 1\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "E_DISCONNECTED") {
		t.Fatalf("out=%s", out.String())
	}

	out.Reset()
	fixed := filepath.Join(dir, "fixed.json")
	if code := run([]string{"-configs", dir, "-auto_repair", "-write", fixed, path}, &out, &errs); code != 0 {
		t.Fatalf("exit=%d\n%s", code, out.String())
	}
	s, err := structfile.Read(fixed)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Len() != sample.Broken().Len()+1 {
		t.Fatalf("repaired structure has %d blocks", s.Len())
	}
}

func TestRun_FleetOutput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.json")
	b := filepath.Join(dir, "b.json")
	_ = structfile.Write(a, sample.Corvette())
	_ = structfile.Write(b, sample.Station(8))
	outPath := filepath.Join(dir, "fleet.json")
	var out, errs bytes.Buffer
	run([]string{"-configs", dir, "-stage", "hull", "-out", outPath, a, b}, &out, &errs)

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msgs []protocol.ReportMsg
	if err := json.Unmarshal(raw, &msgs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(msgs) != 2 || msgs[0].StructureID != "corvette" || msgs[1].StructureID != "station-8" {
		t.Fatalf("msgs=%d", len(msgs))
	}
	for _, m := range msgs {
		if m.Stage != "hull" || m.Functional != nil {
			t.Fatalf("hull stage report=%+v", m)
		}
	}
}

func TestRun_BadFlags(t *testing.T) {
	var out, errs bytes.Buffer
	cases := [][]string{
		{},
		{"-demo", "dreadnought"},
		{"-demo", "corvette", "-stage", "paint"},
		{"-demo", "corvette", "-write", "x.json", "other.json"},
	}
	for _, args := range cases {
		if code := run(args, &out, &errs); code != 2 {
			t.Fatalf("args=%v exit=%d", args, code)
		}
	}
}
