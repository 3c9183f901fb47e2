// Package validation sequences the analyzers over one structure and folds
// their results into a single report.
package validation

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"shipforge.ai/internal/ship/blocks"
	"shipforge.ai/internal/ship/catalogs"
	"shipforge.ai/internal/ship/diag"
	"shipforge.ai/internal/ship/logic/aesthetic"
	"shipforge.ai/internal/ship/logic/connectivity"
	"shipforge.ai/internal/ship/logic/functional"
	"shipforge.ai/internal/ship/logic/repair"
	"shipforge.ai/internal/ship/tuning"
)

var (
	ErrUnknownStyle = errors.New("validation: unknown style")
	ErrUnknownStage = errors.New("validation: unknown stage")
)

// Stage tags the generation step that asked for validation. Hull skips the
// functional pass (systems are not placed yet) and Systems skips aesthetics.
type Stage string

const (
	StageHull    Stage = "hull"
	StageSystems Stage = "systems"
	StageFinal   Stage = "final"
)

func ParseStage(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return StageFinal, nil
	case StageHull, StageSystems, StageFinal:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

func (s Stage) runsFunctional() bool { return s != StageHull }
func (s Stage) runsAesthetic() bool  { return s != StageSystems }

type RunOptions struct {
	Stage Stage
	// Style takes precedence over StyleID.
	Style   *catalogs.StyleDef
	StyleID string
	// AutoRepair applies repair candidates before the functional pass. The
	// tuning's auto_repair turns it on for every run.
	AutoRepair bool
}

type Report struct {
	StructureID string
	Stage       Stage

	Connectivity connectivity.Result
	// Initial is the pre-repair connectivity result, set only when repairs
	// were applied.
	Initial *connectivity.Result
	// Functional and Aesthetic are nil when the stage skips them.
	Functional *functional.Result
	Aesthetic  *aesthetic.Result

	Repairs        []repair.Candidate
	RepairsApplied bool

	// Diagnostics lists every finding in analyzer order.
	Diagnostics []diag.Issue
	Suggestions []string
	Summary     Summary
	Valid       bool
}

func (r Report) Errors() []diag.Issue   { return filter(r.Diagnostics, diag.SeverityError) }
func (r Report) Warnings() []diag.Issue { return filter(r.Diagnostics, diag.SeverityWarning) }

func filter(issues []diag.Issue, sev diag.Severity) []diag.Issue {
	var out []diag.Issue
	for _, i := range issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

type Validator struct {
	cats   *catalogs.Catalogs
	tune   tuning.Tuning
	conn   *connectivity.Analyzer
	fn     *functional.Analyzer
	aes    *aesthetic.Analyzer
	logger *log.Logger
}

type Option func(*Validator)

func WithLogger(l *log.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New wires the analyzers. A nil cats uses the built-in catalogs.
func New(cats *catalogs.Catalogs, tune tuning.Tuning, opts ...Option) *Validator {
	if cats == nil {
		cats = catalogs.Defaults()
	}
	v := &Validator{
		cats: cats,
		tune: tune,
		conn: connectivity.New(tune),
		fn:   functional.New(cats, tune),
		aes:  aesthetic.New(tune),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Validator) Tuning() tuning.Tuning       { return v.tune }
func (v *Validator) Catalogs() *catalogs.Catalogs { return v.cats }

func (v *Validator) printf(format string, args ...any) {
	if v.logger != nil {
		v.logger.Printf(format, args...)
	}
}

func (v *Validator) style(opts RunOptions) (*catalogs.StyleDef, error) {
	if opts.Style != nil {
		return opts.Style, nil
	}
	if opts.StyleID == "" {
		return nil, nil
	}
	st, ok := v.cats.Style(opts.StyleID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, opts.StyleID)
	}
	return &st, nil
}

// Run validates s: connectivity, then (optionally) repair, then functional and
// aesthetic. Only the repair step mutates s, and only when auto repair is on.
// An empty structure yields an invalid report and blocks.ErrEmptyStructure.
func (v *Validator) Run(s *blocks.Structure, opts RunOptions) (Report, error) {
	stage, err := ParseStage(string(opts.Stage))
	if err != nil {
		return Report{}, err
	}
	opts.Stage = stage
	style, err := v.style(opts)
	if err != nil {
		return Report{}, err
	}
	rep := Report{Stage: opts.Stage}
	if s != nil {
		rep.StructureID = s.ID
	}

	conn, err := v.conn.Validate(s)
	rep.Connectivity = conn
	if err != nil {
		rep.Diagnostics = diag.Merge(conn.Errors, conn.Warnings)
		rep.Summary = summarize(rep)
		v.printf("validate id=%s stage=%s err=%v", rep.StructureID, rep.Stage, err)
		return rep, err
	}

	rep.Repairs = repair.Suggest(s, conn, repair.OptionsFrom(v.tune))
	if len(rep.Repairs) > 0 && (opts.AutoRepair || v.tune.AutoRepair) {
		initial := conn
		repair.Apply(s, rep.Repairs)
		rep.RepairsApplied = true
		rep.Initial = &initial
		if conn, err = v.conn.Validate(s); err != nil {
			return rep, err
		}
		rep.Connectivity = conn
		v.printf("validate id=%s repairs_applied=%d integrity_before=%.1f integrity_after=%.1f",
			rep.StructureID, len(rep.Repairs), initial.Integrity, conn.Integrity)
	}
	repairIssues := repair.Issues(rep.Repairs, rep.RepairsApplied)

	lists := [][]diag.Issue{conn.Errors, conn.Warnings, repairIssues}
	rep.Valid = conn.Valid
	if len(conn.Disconnected) > 0 {
		rep.Suggestions = append(rep.Suggestions,
			fmt.Sprintf("Connect %d stray blocks to the hull (repair can propose fillers)", len(conn.Disconnected)))
	}

	if opts.Stage.runsFunctional() {
		fr, err := v.fn.Analyze(s, conn.Graph)
		if err != nil {
			return rep, err
		}
		rep.Functional = &fr
		rep.Valid = rep.Valid && fr.Valid
		lists = append(lists, fr.Errors, fr.Warnings)
		rep.Suggestions = append(rep.Suggestions, functional.Suggestions(fr)...)
	}
	if opts.Stage.runsAesthetic() {
		ar, err := v.aes.Validate(s, style)
		if err != nil {
			return rep, err
		}
		rep.Aesthetic = &ar
		rep.Valid = rep.Valid && ar.Valid
		lists = append(lists, ar.Errors, ar.Warnings)
		rep.Suggestions = append(rep.Suggestions,
			aesthetic.Suggestions(ar, v.tune.SymmetryWarnBelow, v.tune.BalanceWarnBelow)...)
	}

	rep.Diagnostics = diag.Merge(lists...)
	rep.Summary = summarize(rep)
	v.printf("validate id=%s stage=%s blocks=%d valid=%v errors=%d warnings=%d integrity=%.1f",
		rep.StructureID, rep.Stage, s.Len(), rep.Valid, len(rep.Errors()), len(rep.Warnings()), conn.Integrity)
	return rep, nil
}
