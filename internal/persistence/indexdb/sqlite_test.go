package indexdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/sample"
	"shipforge.ai/internal/ship/tuning"
	"shipforge.ai/internal/ship/validation"
)

func run(t *testing.T, demo string, opts validation.RunOptions) protocol.ReportMsg {
	t.Helper()
	s, ok := sample.ByName(demo)
	if !ok {
		t.Fatalf("no demo %s", demo)
	}
	rep, err := validation.New(nil, tuning.Defaults()).Run(s, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return protocol.NewReportMsg("", rep)
}

func TestSQLiteIndex_RecordReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordReport("run-ok", time.Time{}, run(t, "corvette", validation.RunOptions{}))
	broken := run(t, "broken", validation.RunOptions{})
	idx.RecordReport("run-broken", time.Time{}, broken)
	hull := run(t, "corvette", validation.RunOptions{Stage: validation.StageHull})
	idx.RecordReport("run-hull", time.Time{}, hull)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st := idx.Stats(); st.WrittenTotal != 3 || st.DropTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var (
		structureID string
		valid       bool
		integrity   float64
		margin      sql.NullFloat64
		fnValid     sql.NullBool
	)
	row := db.QueryRow(`SELECT structure_id,valid,integrity,power_margin,functional_valid FROM runs WHERE run_id='run-ok'`)
	if err := row.Scan(&structureID, &valid, &integrity, &margin, &fnValid); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if structureID != "corvette" || !valid || integrity != 100 || !margin.Valid || !fnValid.Valid || !fnValid.Bool {
		t.Fatalf("row mismatch: id=%s valid=%v integrity=%v margin=%v fn=%v", structureID, valid, integrity, margin, fnValid)
	}

	row = db.QueryRow(`SELECT power_margin,functional_valid FROM runs WHERE run_id='run-hull'`)
	if err := row.Scan(&margin, &fnValid); err != nil {
		t.Fatalf("Scan hull: %v", err)
	}
	if margin.Valid || fnValid.Valid {
		t.Fatalf("hull stage should leave functional columns null")
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM diagnostics WHERE run_id='run-broken'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(broken.Diagnostics) {
		t.Fatalf("diagnostics=%d want %d", n, len(broken.Diagnostics))
	}
	var v string
	if err := db.QueryRow(`SELECT value FROM run_metadata WHERE run_id='run-ok' AND key=?`, validation.KeyStructuralIntegrity).Scan(&v); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if v != "100.0%" {
		t.Fatalf("integrity metadata=%q", v)
	}
}

func TestSQLiteIndex_Queries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	idx.RecordReport("a", time.Time{}, run(t, "broken", validation.RunOptions{}))
	idx.RecordReport("b", time.Time{}, run(t, "corvette", validation.RunOptions{}))
	idx.RecordReport("c", time.Time{}, run(t, "corvette", validation.RunOptions{}))
	idx.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	ctx := context.Background()
	runs, err := reopened.Runs(ctx, "corvette", 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs=%d", len(runs))
	}
	for _, r := range runs {
		if r.StructureID != "corvette" || !r.Valid || r.Errors != 0 || r.Warnings == 0 {
			t.Fatalf("run=%+v", r)
		}
	}
	all, err := reopened.Runs(ctx, "", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all runs=%d err=%v", len(all), err)
	}

	counts, err := reopened.CodeCounts(ctx)
	if err != nil {
		t.Fatalf("CodeCounts: %v", err)
	}
	if counts[diag.CodeDisconnected] != 1 || counts[diag.CodeFewThrusters] < 2 {
		t.Fatalf("counts=%v", counts)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	cats := catalogs.Defaults()
	if err := idx.UpsertCatalogs(cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	idx.Close()

	db, _ := sql.Open("sqlite", path)
	defer db.Close()
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='blocks'`).Scan(&digest); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if digest != cats.Blocks.Digest {
		t.Fatalf("digest=%s want %s", digest, cats.Blocks.Digest)
	}
	var n int
	_ = db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n)
	if n != 4 {
		t.Fatalf("catalog rows=%d", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{}

	s.RecordReport("x", time.Time{}, protocol.ReportMsg{})
	s.RecordReport("y", time.Time{}, protocol.ReportMsg{})

	st := s.Stats()
	if st.DropTotal != 2 {
		t.Fatalf("DropTotal=%d want=2", st.DropTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}

	var nilIdx *SQLiteIndex
	nilIdx.RecordReport("z", time.Time{}, protocol.ReportMsg{})
	if nilIdx.Stats() != (Stats{}) {
		t.Fatalf("nil stats")
	}
}

func TestSQLiteIndex_RecordDuringClose(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	m := run(t, "corvette", validation.RunOptions{})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				idx.RecordReport("run", time.Time{}, m)
			}
		}()
	}
	close(start)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wg.Wait()

	before := idx.Stats()
	idx.RecordReport("late", time.Time{}, m)
	if after := idx.Stats(); after != before {
		t.Fatalf("record after close changed stats: %+v -> %+v", before, after)
	}
	if before.WrittenTotal+before.DropTotal > 8*200 {
		t.Fatalf("stats=%+v", before)
	}
}
