// internal/collect/collect.go

// Package collect receives step-boundary snapshots from running engines.
//
// Design:
//   - Collectors own all presentation knowledge (in-memory series, JSONL).
//   - Engine stays domain-only; runner stays orchestration-only.
//   - JSONL goes through pkg/api (v1) for a stable wire format.
package collect

import (
	"trts-core/engine"

	"trts/pkg/api"
)

// Collector consumes an ordered sequence of step-boundary snapshots from one
// run. Collect is called from the run's own goroutine; implementations shared
// across runs must synchronize internally.
type Collector interface {
	Collect(s engine.Snapshot) error
	Close() error
}

// Memory keeps the snapshot series in order. Not safe for sharing across
// runs; give each run its own.
type Memory struct {
	snaps []engine.Snapshot
}

func (m *Memory) Collect(s engine.Snapshot) error {
	m.snaps = append(m.snaps, s)
	return nil
}

func (m *Memory) Close() error { return nil }

// Snapshots returns the collected series in arrival order.
func (m *Memory) Snapshots() []engine.Snapshot {
	out := make([]engine.Snapshot, len(m.snaps))
	copy(out, m.snaps)
	return out
}

// Tee fans each snapshot out to several collectors, stopping on the first
// error. Close closes every member and reports the first failure.
type Tee []Collector

func (t Tee) Collect(s engine.Snapshot) error {
	for _, c := range t {
		if err := c.Collect(s); err != nil {
			return err
		}
	}
	return nil
}

func (t Tee) Close() error {
	var first error
	for _, c := range t {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ToAPISnapshot converts to the stable v1 wire shape.
func ToAPISnapshot(runID string, s engine.Snapshot) api.SnapshotV1 {
	uf, bf := s.Upsilon.Float64(), s.Beta.Float64()
	ratio := 0.0
	if bf != 0 {
		ratio = uf / bf
	}
	return api.SnapshotV1{
		RunID:      runID,
		Step:       s.Step,
		Microtick:  s.Microtick,
		UpsilonNum: s.Upsilon.NumString(),
		UpsilonDen: s.Upsilon.DenString(),
		BetaNum:    s.Beta.NumString(),
		BetaDen:    s.Beta.DenString(),
		KoppaNum:   s.Koppa.NumString(),
		KoppaDen:   s.Koppa.DenString(),
		Rho:        s.Rho,
		Upsilon:    uf,
		Beta:       bf,
		Ratio:      ratio,
	}
}

// ToAPIEmission converts a trigger-history record to the v1 wire shape.
func ToAPIEmission(runID string, s engine.Snapshot) api.EmissionV1 {
	return api.EmissionV1{
		RunID:      runID,
		Step:       s.Step,
		Microtick:  s.Microtick,
		UpsilonNum: s.Upsilon.NumString(),
		UpsilonDen: s.Upsilon.DenString(),
		BetaNum:    s.Beta.NumString(),
		BetaDen:    s.Beta.DenString(),
		KoppaNum:   s.Koppa.NumString(),
		KoppaDen:   s.Koppa.DenString(),
		Rho:        s.Rho,
	}
}
