// core/engine/engine.go
package engine

import (
	"context"
	"fmt"

	"trts-core/primes"
	"trts-core/rational"
)

// TicksPerStep is the number of microtick transitions in one full step.
const TicksPerStep = 11

// Snapshot is a read-only copy of the observable engine state. Step carries
// the 1-based step number used by every recorded form; the engine's internal
// counter is 0-based and increments lazily on wraparound. Register values are
// immutable, so holding a snapshot is always safe.
type Snapshot struct {
	Step      int
	Microtick int
	Upsilon   rational.Rational
	Beta      rational.Rational
	Koppa     rational.Rational
	Rho       int
}

// Config seeds and parameterizes an engine. Upsilon and Beta are required;
// everything else has a canonical default.
type Config struct {
	Upsilon rational.Rational // required seed
	Beta    rational.Rational // required seed
	Koppa   rational.Rational // optional seed; unset means 0/1

	KoppaMode   KoppaMode
	Transform   TransformMode
	Propagation PropagationMode
	TriggerMap  TriggerMap

	Oracle primes.Oracle // nil means primes.Default()
}

// Engine advances three unreduced-rational registers through repeating
// 11-microtick steps. Microticks 1, 4, 7 and 10 test a register's numerator
// for primality; a hit ("emission") drives the koppa rule and is recorded in
// an append-only history. Microtick 11 closes the step with the psi transform
// followed by propagation of the upsilon-beta imbalance.
//
// An engine owns its registers and history exclusively and is not safe for
// concurrent use; parallel exploration runs one engine per goroutine.
type Engine struct {
	cfg    Config
	oracle primes.Oracle

	upsilon   rational.Rational
	beta      rational.Rational
	koppa     rational.Rational
	microtick int // 0..11; 0 only before the first transition
	step      int // 0-based index of the current step
	rho       int

	emissions []Snapshot
}

// eleven divides the step imbalance across the 11 microticks of a step.
var eleven, _ = rational.FromInt64(11, 1)

// New validates the configuration and seeds an engine at microtick 0, step 0.
func New(cfg Config) (*Engine, error) {
	if !cfg.Upsilon.Valid() {
		return nil, fmt.Errorf("upsilon seed missing: %w", ErrInvalidConfiguration)
	}
	if !cfg.Beta.Valid() {
		return nil, fmt.Errorf("beta seed missing: %w", ErrInvalidConfiguration)
	}
	if cfg.KoppaMode > KoppaDump {
		return nil, fmt.Errorf("koppa mode %d: %w", cfg.KoppaMode, ErrInvalidConfiguration)
	}
	if cfg.Transform > TransformOnTrigger {
		return nil, fmt.Errorf("transform mode %d: %w", cfg.Transform, ErrInvalidConfiguration)
	}
	if cfg.Propagation > PropRotational {
		return nil, fmt.Errorf("propagation mode %d: %w", cfg.Propagation, ErrInvalidConfiguration)
	}
	if cfg.TriggerMap > TriggerUpsilonOnly {
		return nil, fmt.Errorf("trigger map %d: %w", cfg.TriggerMap, ErrInvalidConfiguration)
	}
	oracle := cfg.Oracle
	if oracle == nil {
		oracle = primes.Default()
	}
	koppa := cfg.Koppa
	if !koppa.Valid() {
		koppa = rational.Zero()
	}
	return &Engine{
		cfg:     cfg,
		oracle:  oracle,
		upsilon: cfg.Upsilon,
		beta:    cfg.Beta,
		koppa:   koppa,
	}, nil
}

// Advance performs exactly one microtick transition. A non-nil error is fatal
// for the run: exact arithmetic cannot continue past a division by zero, and
// the engine must not be advanced further.
func (e *Engine) Advance() error {
	e.microtick++
	if e.microtick > TicksPerStep {
		e.microtick = 1
		e.step++
	}

	if reg, ok := e.triggerRegister(); ok {
		n := reg.Num()
		if e.oracle.IsPrimeForTrigger(n.Abs(n)) {
			e.rho = 1
			if err := e.updateKoppa(); err != nil {
				return e.opErr("koppa update", err)
			}
			e.emissions = append(e.emissions, e.Snapshot())
			if e.cfg.Transform == TransformOnTrigger {
				if err := e.transform(); err != nil {
					return e.opErr("psi transform", err)
				}
			}
		} else {
			e.rho = 0
		}
	}

	if e.microtick == TicksPerStep {
		if err := e.transform(); err != nil {
			return e.opErr("psi transform", err)
		}
		if err := e.propagate(); err != nil {
			return e.opErr("propagation", err)
		}
	}
	return nil
}

// Run advances n complete steps, calling visit with the snapshot after each
// step-closing microtick-11 transition. From a step-aligned engine this is
// exactly 11*n transitions. The context is checked between steps; a step is
// never left half-run. visit may be nil.
func (e *Engine) Run(ctx context.Context, n int, visit func(Snapshot) error) error {
	for s := 0; s < n; s++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.stepOnce(); err != nil {
			return err
		}
		if visit != nil {
			if err := visit(e.Snapshot()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot returns the observable state with the 1-based step number.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Step:      e.step + 1,
		Microtick: e.microtick,
		Upsilon:   e.upsilon,
		Beta:      e.beta,
		Koppa:     e.koppa,
		Rho:       e.rho,
	}
}

// Emissions returns a copy of the append-only trigger history.
func (e *Engine) Emissions() []Snapshot {
	out := make([]Snapshot, len(e.emissions))
	copy(out, e.emissions)
	return out
}

// Step returns the internal 0-based step counter.
func (e *Engine) Step() int { return e.step }

// Microtick returns the current microtick (0 before the first transition).
func (e *Engine) Microtick() int { return e.microtick }

// ---------- transition phases ----------

// stepOnce advances to the next microtick-11 boundary.
func (e *Engine) stepOnce() error {
	if err := e.Advance(); err != nil {
		return err
	}
	for e.microtick != TicksPerStep {
		if err := e.Advance(); err != nil {
			return err
		}
	}
	return nil
}

// triggerRegister selects the register tested at the current microtick, per
// the configured map. ok is false off the emission microticks.
func (e *Engine) triggerRegister() (rational.Rational, bool) {
	switch e.microtick {
	case 1, 7:
		return e.upsilon, true
	case 4, 10:
		if e.cfg.TriggerMap == TriggerUpsilonOnly {
			return e.upsilon, true
		}
		return e.beta, true
	}
	return rational.Rational{}, false
}

func (e *Engine) updateKoppa() error {
	switch e.cfg.KoppaMode {
	case KoppaAccumulate:
		e.koppa = e.koppa.Add(e.upsilon.Sub(e.beta))
	case KoppaFeed:
		if e.koppa.IsZero() {
			e.koppa = rational.One()
		}
		ratio, err := e.upsilon.Div(e.beta)
		if err != nil {
			return err
		}
		e.koppa = e.koppa.Mul(ratio)
	case KoppaDump:
		ratio, err := e.upsilon.Div(e.beta)
		if err != nil {
			return err
		}
		e.koppa = ratio
	}
	return nil
}

// transform applies the psi rule: when koppa is nonzero, swap upsilon and
// beta, then replace each with its reciprocal. State is written only after
// both reciprocals exist.
func (e *Engine) transform() error {
	if e.koppa.IsZero() {
		return nil
	}
	u, err := rational.One().Div(e.beta)
	if err != nil {
		return err
	}
	b, err := rational.One().Div(e.upsilon)
	if err != nil {
		return err
	}
	e.upsilon, e.beta = u, b
	return nil
}

// propagate redistributes the step imbalance. diff and delta are computed
// once, before either register is written.
func (e *Engine) propagate() error {
	diff := e.upsilon.Sub(e.beta)
	switch e.cfg.Propagation {
	case PropQuietAdditive:
		delta, err := diff.Div(eleven)
		if err != nil {
			return err
		}
		e.upsilon = e.upsilon.Add(delta)
		e.beta = e.beta.Sub(delta)
	case PropAdditive:
		e.upsilon = e.upsilon.Add(diff)
		e.beta = e.beta.Sub(diff)
	case PropMultiplicative:
		delta, err := diff.Div(eleven)
		if err != nil {
			return err
		}
		du := e.upsilon.Mul(delta)
		db := e.beta.Mul(delta)
		e.upsilon = e.upsilon.Add(du)
		e.beta = e.beta.Sub(db)
	case PropRotational:
		e.upsilon, e.beta = e.beta, e.upsilon
	}
	return nil
}

func (e *Engine) opErr(op string, err error) error {
	return fmt.Errorf("step %d microtick %d %s: %w", e.step+1, e.microtick, op, err)
}
