package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/tuning"
)

// SQLiteIndex is a queryable secondary index of validation runs. Writes go
// through a buffered channel to one writer goroutine; when the writer falls
// behind, records are dropped and counted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the send on ch against Close closing it.
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	written atomic.Uint64
}

// Stats reports queue health for metrics.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	WrittenTotal  uint64
}

type req struct {
	run runRow
}

type runRow struct {
	RunID          string
	StructureID    string
	Stage          string
	Valid          bool
	Blocks         int
	Integrity      float64
	FunctionalOK   sql.NullBool
	FunctionalPct  sql.NullFloat64
	AestheticScore sql.NullFloat64
	PowerMargin    sql.NullFloat64
	SymmetryType   string
	Repairs        int
	RepairsApplied bool
	RecordedAt     string

	Diagnostics []diag.Issue
	Metadata    map[string]string
}

const queueSize = 4096

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, queueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			structure_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			valid INTEGER NOT NULL,
			blocks INTEGER NOT NULL,
			integrity REAL NOT NULL,
			functional_valid INTEGER,
			functional_score REAL,
			aesthetic_score REAL,
			power_margin REAL,
			symmetry_type TEXT NOT NULL,
			repairs INTEGER NOT NULL,
			repairs_applied INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_structure ON runs(structure_id, recorded_at);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			severity TEXT NOT NULL,
			code TEXT NOT NULL,
			block_id TEXT,
			message TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_diagnostics_code ON diagnostics(code);`,
		`CREATE TABLE IF NOT EXISTS run_metadata (
			run_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (run_id, key)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropped.Load(),
		WrittenTotal:  s.written.Load(),
	}
}

// RecordReport queues one run. It never blocks. A zero recordedAt means now.
func (s *SQLiteIndex) RecordReport(runID string, recordedAt time.Time, m protocol.ReportMsg) {
	if s == nil {
		return
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	r := runRow{
		RunID:          runID,
		StructureID:    m.StructureID,
		Stage:          m.Stage,
		Valid:          m.Valid,
		Blocks:         m.Connectivity.Total,
		Integrity:      m.Connectivity.Integrity,
		SymmetryType:   m.Summary.SymmetryType,
		Repairs:        len(m.Repairs),
		RepairsApplied: m.RepairsApplied,
		RecordedAt:     recordedAt.UTC().Format(time.RFC3339Nano),
		Diagnostics:    m.Diagnostics,
		Metadata:       m.Metadata,
	}
	if fd := m.Functional; fd != nil {
		r.FunctionalOK = sql.NullBool{Bool: fd.Valid, Valid: true}
		r.FunctionalPct = sql.NullFloat64{Float64: fd.Score, Valid: true}
		if fd.PowerRatio != nil {
			r.PowerMargin = sql.NullFloat64{Float64: *fd.PowerRatio, Valid: true}
		}
	}
	if ad := m.Aesthetic; ad != nil {
		r.AestheticScore = sql.NullFloat64{Float64: ad.Score, Valid: true}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{run: r}:
	default:
		// Drop if the indexer falls behind; the JSONL report log remains the source of truth.
		s.dropped.Add(1)
	}
}

// UpsertCatalogs stores the catalogs and tuning a server validates with, so
// indexed runs can be traced back to their inputs.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	if cats == nil {
		cats = catalogs.Defaults()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	{
		defs := make([]catalogs.BlockDef, 0, len(cats.Blocks.Defs))
		for _, d := range cats.Blocks.Defs {
			defs = append(defs, d)
		}
		sort.Slice(defs, func(i, j int) bool { return defs[i].Category < defs[j].Category })
		if b, _ := json.Marshal(defs); len(b) > 0 {
			rows = append(rows, kv{name: "blocks", digest: cats.Blocks.Digest, json: b})
		}
	}
	{
		mats := make([]catalogs.MaterialDef, 0, len(cats.Materials.ByName))
		for _, m := range cats.Materials.ByName {
			mats = append(mats, m)
		}
		sort.Slice(mats, func(i, j int) bool { return mats[i].Name < mats[j].Name })
		if b, _ := json.Marshal(mats); len(b) > 0 {
			rows = append(rows, kv{name: "materials", digest: cats.Materials.Digest, json: b})
		}
	}
	{
		styles := make([]catalogs.StyleDef, 0, len(cats.Styles.ByID))
		for _, st := range cats.Styles.ByID {
			styles = append(styles, st)
		}
		sort.Slice(styles, func(i, j int) bool { return styles[i].ID < styles[j].ID })
		if b, _ := json.Marshal(styles); len(b) > 0 {
			rows = append(rows, kv{name: "styles", digest: cats.Styles.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,structure_id,stage,valid,blocks,integrity,functional_valid,functional_score,aesthetic_score,power_margin,symmetry_type,repairs,repairs_applied,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertDiag, _ := s.db.Prepare(`INSERT OR REPLACE INTO diagnostics(run_id,seq,source,severity,code,block_id,message) VALUES(?,?,?,?,?,?,?)`)
	insertMeta, _ := s.db.Prepare(`INSERT OR REPLACE INTO run_metadata(run_id,key,value) VALUES(?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertDiag, insertMeta} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if insertRun == nil || insertDiag == nil || insertMeta == nil {
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		if err := writeRun(tx, insertRun, insertDiag, insertMeta, r.run); err != nil {
			rollback()
			continue
		}
		opCount += 1 + len(r.run.Diagnostics) + len(r.run.Metadata)
		s.written.Add(1)
		flushIfNeeded()
	}

	commit()
}

func writeRun(tx *sql.Tx, insertRun, insertDiag, insertMeta *sql.Stmt, r runRow) error {
	if _, err := tx.Stmt(insertRun).Exec(
		r.RunID,
		r.StructureID,
		r.Stage,
		r.Valid,
		r.Blocks,
		r.Integrity,
		r.FunctionalOK,
		r.FunctionalPct,
		r.AestheticScore,
		r.PowerMargin,
		r.SymmetryType,
		r.Repairs,
		r.RepairsApplied,
		r.RecordedAt,
	); err != nil {
		return err
	}
	for i, d := range r.Diagnostics {
		if _, err := tx.Stmt(insertDiag).Exec(r.RunID, i, string(d.Source), string(d.Severity), d.Code, d.BlockID, d.Message); err != nil {
			return err
		}
	}
	for k, v := range r.Metadata {
		if _, err := tx.Stmt(insertMeta).Exec(r.RunID, k, v); err != nil {
			return err
		}
	}
	return nil
}
