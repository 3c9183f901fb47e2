// Command validate checks structure files (or a built-in demo) and prints
// the findings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shipforge.ai/internal/persistence/indexdb"
	persistlog "shipforge.ai/internal/persistence/log"
	"shipforge.ai/internal/persistence/structfile"
	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/sample"
	"shipforge.ai/internal/ship/tuning"
	"shipforge.ai/internal/ship/validation"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	demo       string
	stage      string
	style      string
	autoRepair bool
	configDir  string
	tuningPath string
	outPath    string
	writePath  string
	dataDir    string
	indexPath  string
	parallel   int
	history    bool
	verbose    bool
	files      []string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.demo, "demo", "", "validate a built-in structure: "+strings.Join(sample.Names(), ", "))
	fs.StringVar(&o.stage, "stage", "final", "generation stage: hull, systems or final")
	fs.StringVar(&o.style, "style", "", "faction style id for advisory compliance checks")
	fs.BoolVar(&o.autoRepair, "auto_repair", false, "apply repair fillers before the functional pass")
	fs.StringVar(&o.configDir, "configs", "./configs", "config directory (missing files fall back to built-in catalogs)")
	fs.StringVar(&o.tuningPath, "tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	fs.StringVar(&o.outPath, "out", "", "write REPORT json here (one file; a fleet writes a json array)")
	fs.StringVar(&o.writePath, "write", "", "write the (repaired) structure with summary metadata here; .zst compresses")
	fs.StringVar(&o.dataDir, "data", "", "append reports to <data>/reports/*.jsonl.zst")
	fs.StringVar(&o.indexPath, "index", "", "record runs in this sqlite index")
	fs.IntVar(&o.parallel, "parallel", 4, "structures validated concurrently")
	fs.BoolVar(&o.history, "history", false, "print earlier indexed runs of each structure (needs -index)")
	fs.BoolVar(&o.verbose, "v", false, "log analyzer progress")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	o.files = fs.Args()
	if o.demo == "" && len(o.files) == 0 {
		return o, errors.New("need structure files or -demo")
	}
	if o.writePath != "" && len(o.files)+boolInt(o.demo != "") > 1 {
		return o, errors.New("-write takes a single structure")
	}
	return o, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "validate: %v\n", err)
		}
		return 2
	}
	logger := log.New(stderr, "[validate] ", log.LstdFlags|log.Lmicroseconds)

	cats, tune, err := loadConfig(o.configDir, o.tuningPath, logger)
	if err != nil {
		logger.Printf("config: %v", err)
		return 2
	}
	stage, err := validation.ParseStage(o.stage)
	if err != nil {
		logger.Printf("%v", err)
		return 2
	}

	var ships []*blocks.Structure
	if o.demo != "" {
		s, ok := sample.ByName(o.demo)
		if !ok {
			logger.Printf("unknown demo %q (have %s)", o.demo, strings.Join(sample.Names(), ", "))
			return 2
		}
		ships = append(ships, s)
	}
	for _, p := range o.files {
		s, err := structfile.Read(p)
		if err != nil {
			logger.Printf("read %s: %v", p, err)
			return 2
		}
		ships = append(ships, s)
	}

	var vopts []validation.Option
	if o.verbose {
		vopts = append(vopts, validation.WithLogger(logger))
	}
	v := validation.New(cats, tune, vopts...)
	results, err := v.ValidateFleet(context.Background(), ships, validation.RunOptions{
		Stage:      stage,
		StyleID:    o.style,
		AutoRepair: o.autoRepair,
	}, o.parallel)
	if err != nil {
		logger.Printf("validate: %v", err)
		return 1
	}

	var idx *indexdb.SQLiteIndex
	if o.indexPath != "" {
		if idx, err = indexdb.OpenSQLite(o.indexPath); err != nil {
			logger.Printf("open index: %v", err)
			return 1
		}
		defer idx.Close()
	}
	var reports *persistlog.ReportLogger
	if o.dataDir != "" {
		reports = persistlog.NewReportLogger(o.dataDir, 0)
		defer reports.Close()
	}

	exit := 0
	msgs := make([]protocol.ReportMsg, 0, len(results))
	for _, res := range results {
		s := ships[res.Index]
		if res.Err != nil && !errors.Is(res.Err, blocks.ErrEmptyStructure) {
			fmt.Fprintf(stdout, "%s: %v\n", s.ID, res.Err)
			exit = 1
			continue
		}
		rep := res.Report
		if !rep.Valid {
			exit = 1
		}
		if idx != nil && o.history {
			printHistory(stdout, idx, rep.StructureID)
		}
		printReport(stdout, rep)

		runID := uuid.NewString()
		m := protocol.NewReportMsg(runID, rep)
		msgs = append(msgs, m)
		if err := reports.WriteReport(runID, m); err != nil {
			logger.Printf("report log: %v", err)
		}
		idx.RecordReport(runID, time.Now(), m)

		if o.writePath != "" && res.Err == nil {
			s.SetMetadata(rep.Summary.Metadata())
			if err := structfile.Write(o.writePath, s); err != nil {
				logger.Printf("write %s: %v", o.writePath, err)
				exit = 1
			}
		}
	}

	if o.outPath != "" {
		var doc any = msgs
		if len(msgs) == 1 {
			doc = msgs[0]
		}
		if err := writeJSON(o.outPath, doc); err != nil {
			logger.Printf("write %s: %v", o.outPath, err)
			exit = 1
		}
	}
	return exit
}

func loadConfig(configDir, tuningPath string, logger *log.Logger) (*catalogs.Catalogs, tuning.Tuning, error) {
	cats := catalogs.Defaults()
	if _, err := os.Stat(filepath.Join(configDir, "blocks.json")); err == nil {
		c, err := catalogs.Load(configDir)
		if err != nil {
			return nil, tuning.Tuning{}, err
		}
		cats = c
	}
	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, tuning.Tuning{}, err
		}
		if tuningPath != "" {
			logger.Printf("tuning not found (%s); using defaults", tp)
		}
		tune = tuning.Defaults()
	}
	return cats, tune, nil
}

func printReport(w io.Writer, rep validation.Report) {
	status := "VALID"
	if !rep.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(w, "%s [%s] %s\n", rep.StructureID, rep.Stage, status)
	for _, k := range []string{
		validation.KeyStructuralIntegrity,
		validation.KeyPowerMargin,
		validation.KeySymmetry,
		validation.KeySymmetryType,
		validation.KeyBalance,
		validation.KeyDesignLanguage,
	} {
		fmt.Fprintf(w, "  %-20s %s\n", k, rep.Summary.Metadata()[k])
	}
	for _, d := range rep.Diagnostics {
		where := ""
		if d.BlockID != "" {
			where = " (" + d.BlockID + ")"
		}
		fmt.Fprintf(w, "  %-7s %-13s %s%s: %s\n", d.Severity, d.Source, d.Code, where, d.Message)
	}
	if rep.RepairsApplied {
		fmt.Fprintf(w, "  applied %d repair fillers\n", len(rep.Repairs))
	}
	for _, sug := range rep.Suggestions {
		fmt.Fprintf(w, "  - %s\n", sug)
	}
}

func printHistory(w io.Writer, idx *indexdb.SQLiteIndex, structureID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	runs, err := idx.Runs(ctx, structureID, 5)
	if err != nil || len(runs) == 0 {
		return
	}
	fmt.Fprintf(w, "%s: %d earlier runs\n", structureID, len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s %-7s valid=%v integrity=%.1f errors=%d warnings=%d\n",
			r.RecordedAt, r.Stage, r.Valid, r.Integrity, r.Errors, r.Warnings)
	}
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
