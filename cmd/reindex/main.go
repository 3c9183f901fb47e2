// Command reindex replays the zstd JSONL report log: it re-checks every
// entry against the report schema and, with -index, rebuilds the sqlite run
// index from it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"shipforge.ai/internal/persistence/indexdb"
	persistlog "shipforge.ai/internal/persistence/log"
	"shipforge.ai/internal/protocol"
)

func main() {
	var (
		dataDir   = flag.String("data", "./data", "runtime data directory containing reports/")
		indexPath = flag.String("index", "", "sqlite index to (re)build (optional)")
		strict    = flag.Bool("strict", true, "fail on the first entry that does not match the report schema")
	)
	flag.Parse()

	files, err := persistlog.ListFiles(filepath.Join(*dataDir, "reports"), "reports")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list reports:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no report files found in", filepath.Join(*dataDir, "reports"))
		os.Exit(1)
	}

	var idx *indexdb.SQLiteIndex
	if *indexPath != "" {
		if idx, err = indexdb.OpenSQLite(*indexPath); err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
	}

	st := stats{byStructure: map[string]*tally{}}
	for _, path := range files {
		if err := persistlog.ReadReports(path, func(e persistlog.ReportEntry) error {
			return st.add(e, idx, *strict)
		}); err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			if idx != nil {
				_ = idx.Close()
			}
			os.Exit(1)
		}
	}
	if idx != nil {
		if err := idx.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close index:", err)
			os.Exit(1)
		}
		if ist := idx.Stats(); ist.DropTotal > 0 {
			fmt.Fprintf(os.Stderr, "index dropped %d runs; rerun to fill the gaps\n", ist.DropTotal)
		}
	}
	st.print()
}

type tally struct {
	runs, valid int
	last        string
}

type stats struct {
	entries, schemaErrors int
	byStructure           map[string]*tally
}

func (s *stats) add(e persistlog.ReportEntry, idx *indexdb.SQLiteIndex, strict bool) error {
	s.entries++
	raw, err := json.Marshal(e.Report)
	if err != nil {
		return err
	}
	if err := protocol.ValidateJSON(protocol.SchemaReport, raw); err != nil {
		s.schemaErrors++
		if strict {
			return fmt.Errorf("run %s: %w", e.RunID, err)
		}
		return nil
	}
	t := s.byStructure[e.Report.StructureID]
	if t == nil {
		t = &tally{}
		s.byStructure[e.Report.StructureID] = t
	}
	t.runs++
	if e.Report.Valid {
		t.valid++
	}
	t.last = e.RecordedAt

	at, _ := time.Parse(time.RFC3339Nano, e.RecordedAt)
	idx.RecordReport(e.RunID, at, e.Report)
	return nil
}

func (s *stats) print() {
	ids := make([]string, 0, len(s.byStructure))
	for id := range s.byStructure {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		t := s.byStructure[id]
		fmt.Printf("%-24s runs=%d valid=%d last=%s\n", id, t.runs, t.valid, t.last)
	}
	fmt.Printf("replay ok: entries=%d structures=%d schema_errors=%d\n", s.entries, len(ids), s.schemaErrors)
}
