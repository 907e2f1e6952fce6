// internal/app/app.go

// Package app wires a sweep end to end: load the plan, execute it, persist
// whatever outputs the plan configured, and map the outcome to an exit code.
package app

import (
	"context"
	"os"

	"go.uber.org/zap"

	"trts/internal/archive"
	"trts/internal/collect"
	"trts/internal/report"
	"trts/internal/runner"
	"trts/internal/runspec"
	"trts/internal/sweep"
	"trts/internal/version"
)

// Exit codes. An interrupted sweep still persists the results it completed
// before returning ExitInterrupted.
const (
	ExitOK          = 0
	ExitConfig      = 2
	ExitRuntime     = 3
	ExitInterrupted = 130
)

// EnvSpec names the environment variable holding the sweep file path.
const EnvSpec = "TRTS_SWEEP"

// DefaultSpecPath applies when EnvSpec is unset.
const DefaultSpecPath = "trts.yaml"

// RunContext is the whole daemon behind the exit code. getenv and log may be
// nil (os.Getenv and a no-op logger are used).
func RunContext(ctx context.Context, getenv func(string) string, log *zap.Logger) int {
	if getenv == nil {
		getenv = os.Getenv
	}
	if log == nil {
		log = zap.NewNop()
	}

	path := getenv(EnvSpec)
	if path == "" {
		path = DefaultSpecPath
	}
	log.Info("trtsd starting",
		zap.String("version", version.Version),
		zap.String("spec", path),
	)

	plan, err := runspec.Load(path)
	if err != nil {
		log.Error("sweep spec rejected", zap.Error(err))
		return ExitConfig
	}

	// The snapshot stream is shared by every run; open it before the sweep
	// so a bad path fails fast.
	var attach func(runID string) collect.Collector
	var stream *collect.JSONL
	var streamFile *os.File
	if plan.Snapshots != "" {
		streamFile, err = os.Create(plan.Snapshots)
		if err != nil {
			log.Error("snapshot stream", zap.Error(err))
			return ExitRuntime
		}
		stream = collect.NewJSONL(streamFile)
		attach = stream.Bind
	}

	results := sweep.Run(ctx, plan, attach, log)

	persistFailed := false
	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Error("snapshot stream flush", zap.Error(err))
			persistFailed = true
		}
		if err := streamFile.Close(); err != nil {
			log.Error("snapshot stream close", zap.Error(err))
			persistFailed = true
		}
	}
	if plan.Archive != "" {
		if err := saveArchive(plan.Archive, results); err != nil {
			log.Error("archive", zap.String("path", plan.Archive), zap.Error(err))
			persistFailed = true
		} else {
			log.Info("archive written",
				zap.String("path", plan.Archive),
				zap.Int("runs", len(results)),
			)
		}
	}
	if plan.Report != "" {
		if err := report.Write(plan.Report, results); err != nil {
			log.Error("report", zap.String("path", plan.Report), zap.Error(err))
			persistFailed = true
		} else {
			log.Info("report written", zap.String("path", plan.Report))
		}
	}

	converged := 0
	for _, r := range results {
		if r.Summary.Converged {
			converged++
		}
	}
	failed := sweep.Failed(results)
	log.Info("sweep finished",
		zap.Int("runs", len(results)),
		zap.Int("failed", failed),
		zap.Int("converged", converged),
	)

	switch {
	case ctx.Err() != nil:
		return ExitInterrupted
	case failed > 0 || persistFailed:
		return ExitRuntime
	default:
		return ExitOK
	}
}

func saveArchive(path string, results []runner.Result) error {
	st, err := archive.Open(path)
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := st.SaveResult(res); err != nil {
			st.Close()
			return err
		}
	}
	return st.Close()
}
