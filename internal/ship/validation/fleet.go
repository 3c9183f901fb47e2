package validation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"shipforge.ai/internal/ship/blocks"
)

// FleetResult pairs one structure's report with its own error. A bad member
// never fails the rest of the fleet.
type FleetResult struct {
	Index  int
	Report Report
	Err    error
}

// ValidateFleet runs Run over independent structures with at most parallel
// workers (GOMAXPROCS when <= 0). Structures must not share blocks; the
// validator itself keeps no mutable state. Only context cancellation aborts
// the batch.
func (v *Validator) ValidateFleet(ctx context.Context, ss []*blocks.Structure, opts RunOptions, parallel int) ([]FleetResult, error) {
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}
	out := make([]FleetResult, len(ss))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, s := range ss {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := v.Run(s, opts)
			out[i] = FleetResult{Index: i, Report: rep, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}
