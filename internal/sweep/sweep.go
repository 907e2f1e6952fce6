// internal/sweep/sweep.go

// Package sweep fans a plan's runs across a bounded worker pool.
package sweep

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"trts/internal/collect"
	"trts/internal/runner"
	"trts/internal/runspec"
)

// Run executes every run in the plan with at most plan.Workers in flight and
// returns results in plan order. Each worker writes only its own slot, so no
// further synchronization is needed. Cancellation does not abandon slots:
// runs that start after the context is done record its error as their result.
func Run(ctx context.Context, plan runspec.Plan, attach func(runID string) collect.Collector, log *zap.Logger) []runner.Result {
	if log == nil {
		log = zap.NewNop()
	}
	workers := plan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log.Info("sweep starting",
		zap.Int("runs", len(plan.Runs)),
		zap.Int("workers", workers),
	)

	results := make([]runner.Result, len(plan.Runs))
	p := pool.New().WithMaxGoroutines(workers)
	for i, spec := range plan.Runs {
		i, spec := i, spec
		p.Go(func() {
			results[i] = runner.Run(ctx, spec, attach, log)
		})
	}
	p.Wait()

	log.Info("sweep complete",
		zap.Int("runs", len(results)),
		zap.Int("failed", Failed(results)),
	)
	return results
}

// Failed counts results that ended with an error.
func Failed(results []runner.Result) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
