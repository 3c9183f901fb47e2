package indexdb

import (
	"context"
	"database/sql"
)

// RunRecord is one indexed run as read back from the runs table.
type RunRecord struct {
	RunID        string
	StructureID  string
	Stage        string
	Valid        bool
	Integrity    float64
	PowerMargin  sql.NullFloat64
	SymmetryType string
	RecordedAt   string
	Errors       int
	Warnings     int
}

// Runs lists the latest runs for a structure, newest first. An empty
// structureID lists every structure.
func (s *SQLiteIndex) Runs(ctx context.Context, structureID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.structure_id, r.stage, r.valid, r.integrity, r.power_margin, r.symmetry_type, r.recorded_at,
			(SELECT COUNT(*) FROM diagnostics d WHERE d.run_id = r.run_id AND d.severity = 'error'),
			(SELECT COUNT(*) FROM diagnostics d WHERE d.run_id = r.run_id AND d.severity = 'warning')
		FROM runs r
		WHERE ? = '' OR r.structure_id = ?
		ORDER BY r.recorded_at DESC, r.run_id
		LIMIT ?`, structureID, structureID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.StructureID, &r.Stage, &r.Valid, &r.Integrity, &r.PowerMargin,
			&r.SymmetryType, &r.RecordedAt, &r.Errors, &r.Warnings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CodeCounts tallies diagnostic codes across every indexed run.
func (s *SQLiteIndex) CodeCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, COUNT(*) FROM diagnostics GROUP BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, err
		}
		out[code] = n
	}
	return out, rows.Err()
}
