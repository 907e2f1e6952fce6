// internal/analysis/analysis.go

// Package analysis computes reporting statistics over a recorded run. All
// inputs are explicit arguments; nothing reads ambient state.
package analysis

import (
	"math"

	"trts-core/engine"
)

// ConvergedTolerance bounds |ratio - target| for a snapshot to count as on
// target.
const ConvergedTolerance = 1e-6

// tailWindow is how many trailing snapshots must all sit inside the tolerance
// before a trajectory is called converged.
const tailWindow = 10

// Summary condenses one run's snapshot series and emission history. Floats
// are reporting approximations; the exact values live in the snapshots.
type Summary struct {
	Steps         int
	FinalUpsilon  float64
	FinalBeta     float64
	FinalKoppa    float64
	FinalRatio    float64 // FinalUpsilon / FinalBeta
	Target        float64 // 0 disables convergence checks
	FinalError    float64 // |FinalRatio - Target|; 0 when Target is 0
	MinUpsilon    float64
	MaxUpsilon    float64
	MeanUpsilon   float64
	EmissionCount int
	EmissionRate  float64     // emissions per step
	TicksFired    map[int]int // emission microtick -> fired count
	Converged     bool
}

// Summarize reduces a snapshot series and its emission history against an
// optional convergence target.
func Summarize(snaps, emissions []engine.Snapshot, target float64) Summary {
	sum := Summary{
		Target:        target,
		Steps:         len(snaps),
		EmissionCount: len(emissions),
		TicksFired:    map[int]int{},
	}
	for _, em := range emissions {
		sum.TicksFired[em.Microtick]++
	}
	if len(snaps) == 0 {
		return sum
	}
	sum.EmissionRate = float64(len(emissions)) / float64(len(snaps))

	total := 0.0
	sum.MinUpsilon = math.Inf(1)
	sum.MaxUpsilon = math.Inf(-1)
	for _, s := range snaps {
		u := s.Upsilon.Float64()
		total += u
		sum.MinUpsilon = math.Min(sum.MinUpsilon, u)
		sum.MaxUpsilon = math.Max(sum.MaxUpsilon, u)
	}
	sum.MeanUpsilon = total / float64(len(snaps))

	last := snaps[len(snaps)-1]
	sum.FinalUpsilon = last.Upsilon.Float64()
	sum.FinalBeta = last.Beta.Float64()
	sum.FinalKoppa = last.Koppa.Float64()
	sum.FinalRatio = ratio(last)
	if target != 0 {
		sum.FinalError = math.Abs(sum.FinalRatio - target)
		sum.Converged = tailConverged(snaps, target)
	}
	return sum
}

// tailConverged reports whether the last tailWindow snapshots (or all of a
// shorter series) stay within tolerance of the target.
func tailConverged(snaps []engine.Snapshot, target float64) bool {
	start := len(snaps) - tailWindow
	if start < 0 {
		start = 0
	}
	for _, s := range snaps[start:] {
		if math.Abs(ratio(s)-target) > ConvergedTolerance {
			return false
		}
	}
	return true
}

func ratio(s engine.Snapshot) float64 {
	b := s.Beta.Float64()
	if b == 0 {
		return math.Inf(sign(s.Upsilon.Float64()))
	}
	return s.Upsilon.Float64() / b
}

func sign(f float64) int {
	if f < 0 {
		return -1
	}
	return 1
}
