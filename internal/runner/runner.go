// internal/runner/runner.go

// Package runner executes a single configured run from seed to summary.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trts-core/engine"
	"trts/internal/analysis"
	"trts/internal/collect"
	"trts/internal/runspec"
)

// Result is everything one run produced. Err is set when the engine rejected
// the configuration, a register operation failed mid-run, or the context was
// cancelled; the fields below it still describe whatever completed.
type Result struct {
	ID   string
	Name string
	Spec runspec.RunSpec

	Final     engine.Snapshot
	Snapshots []engine.Snapshot
	Emissions []engine.Snapshot
	Summary   analysis.Summary

	Started  time.Time
	Duration time.Duration
	Err      error
}

// Failed reports whether the run ended with an error.
func (r Result) Failed() bool { return r.Err != nil }

// Run executes spec to completion. attach, when non-nil, is asked for an
// extra collector keyed by the fresh run ID; its snapshots mirror the
// in-memory record. A nil log is replaced with a no-op logger.
func Run(ctx context.Context, spec runspec.RunSpec, attach func(runID string) collect.Collector, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	res := Result{
		ID:      uuid.NewString(),
		Name:    spec.Name,
		Spec:    spec,
		Started: time.Now(),
	}
	log.Info("run starting",
		zap.String("run", spec.Name),
		zap.String("run_id", res.ID),
		zap.Int("steps", spec.Steps),
		zap.String("upsilon", spec.Upsilon.String()),
		zap.String("beta", spec.Beta.String()),
		zap.Stringer("koppa_mode", spec.KoppaMode),
		zap.Stringer("transform", spec.Transform),
		zap.Stringer("propagation", spec.Propagation),
	)

	eng, err := engine.New(spec.EngineConfig())
	if err != nil {
		res.Err = err
		res.Duration = time.Since(res.Started)
		log.Error("run rejected",
			zap.String("run", spec.Name),
			zap.String("run_id", res.ID),
			zap.Error(err),
		)
		return res
	}

	mem := &collect.Memory{}
	var sink collect.Collector = mem
	if attach != nil {
		if extra := attach(res.ID); extra != nil {
			sink = collect.Tee{mem, extra}
		}
	}

	res.Err = eng.Run(ctx, spec.Steps, sink.Collect)
	if cerr := sink.Close(); cerr != nil && res.Err == nil {
		res.Err = cerr
	}

	res.Final = eng.Snapshot()
	res.Snapshots = mem.Snapshots()
	res.Emissions = eng.Emissions()
	res.Summary = analysis.Summarize(res.Snapshots, res.Emissions, spec.Target)
	res.Duration = time.Since(res.Started)

	if res.Err != nil {
		log.Error("run failed",
			zap.String("run", spec.Name),
			zap.String("run_id", res.ID),
			zap.Int("completed_steps", res.Summary.Steps),
			zap.Duration("took", res.Duration),
			zap.Error(res.Err),
		)
		return res
	}
	log.Info("run complete",
		zap.String("run", spec.Name),
		zap.String("run_id", res.ID),
		zap.Int("steps", res.Summary.Steps),
		zap.Int("emissions", res.Summary.EmissionCount),
		zap.Bool("converged", res.Summary.Converged),
		zap.Duration("took", res.Duration),
	)
	return res
}
