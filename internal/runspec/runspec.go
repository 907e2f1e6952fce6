// internal/runspec/runspec.go

// Package runspec loads and validates the YAML sweep specification that
// drives trtsd. A spec names one or more runs; per-run fields override the
// sweep defaults, and zero values inherit.
package runspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trts-core/engine"
	"trts-core/primes"
	"trts-core/rational"
)

// DefaultSteps applies when neither the run nor the defaults give a count.
// Unreduced register magnitudes grow a few hundredfold per step, and the
// trigger oracle tests those raw numerators, so default runs stay short;
// longer horizons are an explicit per-run choice.
const DefaultSteps = 8

type fileSpec struct {
	Defaults  fileRun   `yaml:"defaults"`
	Runs      []fileRun `yaml:"runs"`
	Archive   string    `yaml:"archive"`
	Report    string    `yaml:"report"`
	Snapshots string    `yaml:"snapshots"`
	Workers   int       `yaml:"workers"`
}

// fileRun doubles as the defaults block and a run entry. Seed fields are only
// meaningful on runs: a run is identified by its seeds, so those never
// inherit.
type fileRun struct {
	Name        string   `yaml:"name"`
	Upsilon     string   `yaml:"upsilon"`
	Beta        string   `yaml:"beta"`
	UpsilonSet  []string `yaml:"upsilon_set"`
	BetaSet     []string `yaml:"beta_set"`
	Koppa       string   `yaml:"koppa"`
	Steps       int      `yaml:"steps"`
	KoppaMode   string   `yaml:"koppa_mode"`
	Transform   string   `yaml:"transform"`
	Propagation string   `yaml:"propagation"`
	TriggerMap  string   `yaml:"trigger_map"`
	Oracle      string   `yaml:"oracle"`
	Target      float64  `yaml:"target"`
}

// RunSpec is one fully materialized run.
type RunSpec struct {
	Name   string
	Steps  int
	Target float64

	Upsilon rational.Rational
	Beta    rational.Rational
	Koppa   rational.Rational // zero value lets the engine seed 0/1

	KoppaMode   engine.KoppaMode
	Transform   engine.TransformMode
	Propagation engine.PropagationMode
	TriggerMap  engine.TriggerMap

	Oracle     primes.Oracle
	OracleName string
}

// EngineConfig materializes the engine configuration for this run.
func (r RunSpec) EngineConfig() engine.Config {
	return engine.Config{
		Upsilon:     r.Upsilon,
		Beta:        r.Beta,
		Koppa:       r.Koppa,
		KoppaMode:   r.KoppaMode,
		Transform:   r.Transform,
		Propagation: r.Propagation,
		TriggerMap:  r.TriggerMap,
		Oracle:      r.Oracle,
	}
}

// Plan is the validated sweep: expanded runs plus output destinations.
type Plan struct {
	Runs      []RunSpec
	Archive   string // SQLite path; empty disables
	Report    string // XLSX path; empty disables
	Snapshots string // JSONL path; empty disables
	Workers   int    // <= 0 means one per CPU
}

// Load reads, validates, and expands a sweep file.
func Load(path string) (Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("runspec: read %s: %w", path, err)
	}
	var fs fileSpec
	if err := yaml.Unmarshal(raw, &fs); err != nil {
		return Plan{}, fmt.Errorf("runspec: parse %s: %w", path, err)
	}
	return build(fs)
}

func build(fs fileSpec) (Plan, error) {
	if len(fs.Runs) == 0 {
		return Plan{}, fmt.Errorf("runspec: no runs: %w", engine.ErrInvalidConfiguration)
	}
	plan := Plan{
		Archive:   fs.Archive,
		Report:    fs.Report,
		Snapshots: fs.Snapshots,
		Workers:   fs.Workers,
	}
	seen := make(map[string]bool)
	for _, fr := range fs.Runs {
		if fr.Name == "" {
			return Plan{}, fmt.Errorf("runspec: unnamed run: %w", engine.ErrInvalidConfiguration)
		}
		expanded, err := materialize(fr, fs.Defaults)
		if err != nil {
			return Plan{}, fmt.Errorf("runspec: run %q: %w", fr.Name, err)
		}
		for _, rs := range expanded {
			if seen[rs.Name] {
				return Plan{}, fmt.Errorf("runspec: duplicate run name %q: %w", rs.Name, engine.ErrInvalidConfiguration)
			}
			seen[rs.Name] = true
			plan.Runs = append(plan.Runs, rs)
		}
	}
	return plan, nil
}

// materialize merges one run entry with the defaults and expands seed sets
// into their cross product, in declaration order.
func materialize(fr, def fileRun) ([]RunSpec, error) {
	base := RunSpec{Name: fr.Name}

	base.Steps = fr.Steps
	if base.Steps == 0 {
		base.Steps = def.Steps
	}
	if base.Steps == 0 {
		base.Steps = DefaultSteps
	}
	if base.Steps < 0 {
		return nil, fmt.Errorf("steps %d: %w", base.Steps, engine.ErrInvalidConfiguration)
	}

	base.Target = fr.Target
	if base.Target == 0 {
		base.Target = def.Target
	}

	var err error
	if base.KoppaMode, err = engine.ParseKoppaMode(pick(fr.KoppaMode, def.KoppaMode)); err != nil {
		return nil, err
	}
	if base.Transform, err = engine.ParseTransformMode(pick(fr.Transform, def.Transform)); err != nil {
		return nil, err
	}
	if base.Propagation, err = engine.ParsePropagationMode(pick(fr.Propagation, def.Propagation)); err != nil {
		return nil, err
	}
	if base.TriggerMap, err = engine.ParseTriggerMap(pick(fr.TriggerMap, def.TriggerMap)); err != nil {
		return nil, err
	}
	if base.Oracle, base.OracleName, err = parseOracle(pick(fr.Oracle, def.Oracle)); err != nil {
		return nil, err
	}

	if k := pick(fr.Koppa, def.Koppa); k != "" {
		if base.Koppa, err = rational.Parse(k); err != nil {
			return nil, fmt.Errorf("koppa: %w", err)
		}
	}

	us, err := seedList("upsilon", fr.Upsilon, fr.UpsilonSet)
	if err != nil {
		return nil, err
	}
	bs, err := seedList("beta", fr.Beta, fr.BetaSet)
	if err != nil {
		return nil, err
	}

	if len(us) == 1 && len(bs) == 1 {
		base.Upsilon, base.Beta = us[0], bs[0]
		return []RunSpec{base}, nil
	}
	out := make([]RunSpec, 0, len(us)*len(bs))
	for _, u := range us {
		for _, b := range bs {
			rs := base
			rs.Name = fmt.Sprintf("%s/%d", fr.Name, len(out))
			rs.Upsilon, rs.Beta = u, b
			out = append(out, rs)
		}
	}
	return out, nil
}

// pick returns the run-level value unless it is unset.
func pick(run, def string) string {
	if run != "" {
		return run
	}
	return def
}

func seedList(field, scalar string, set []string) ([]rational.Rational, error) {
	if scalar != "" && len(set) > 0 {
		return nil, fmt.Errorf("%s and %s_set are mutually exclusive: %w", field, field, engine.ErrInvalidConfiguration)
	}
	texts := set
	if scalar != "" {
		texts = []string{scalar}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s seed missing: %w", field, engine.ErrInvalidConfiguration)
	}
	out := make([]rational.Rational, 0, len(texts))
	for _, tx := range texts {
		r, err := rational.Parse(tx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// parseOracle memoizes the probabilistic oracle: several microticks of one
// step probe the same numerator, and on wide registers each probe is the
// expensive part of the step. Table lookups are already cheap.
func parseOracle(s string) (primes.Oracle, string, error) {
	switch s {
	case "", "miller_rabin":
		return primes.NewCached(primes.Default(), 0), "miller_rabin", nil
	case "table":
		return primes.FibonacciPrimes(), "table", nil
	}
	return nil, "", fmt.Errorf("oracle %q: %w", s, engine.ErrInvalidConfiguration)
}
