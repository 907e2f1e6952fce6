package engine

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"trts-core/primes"
	"trts-core/rational"
)

func mustRat(t *testing.T, s string) rational.Rational {
	t.Helper()
	r, err := rational.Parse(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return r
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// countingOracle wraps an oracle and counts trigger evaluations.
type countingOracle struct {
	inner primes.Oracle
	calls int
}

func (c *countingOracle) IsPrimeForTrigger(n *big.Int) bool {
	c.calls++
	return c.inner.IsPrimeForTrigger(n)
}

// Missing seeds and out-of-range selectors fail construction, never mid-run.
func TestInvalidConfiguration(t *testing.T) {
	u, b := mustRat(t, "2/1"), mustRat(t, "3/1")
	cases := []Config{
		{},
		{Upsilon: u},
		{Upsilon: u, Beta: b, KoppaMode: KoppaMode(9)},
		{Upsilon: u, Beta: b, Transform: TransformMode(9)},
		{Upsilon: u, Beta: b, Propagation: PropagationMode(9)},
		{Upsilon: u, Beta: b, TriggerMap: TriggerMap(9)},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("case %d: want ErrInvalidConfiguration, got %v", i, err)
		}
	}
	if _, err := New(Config{Upsilon: u, Beta: b}); err != nil {
		t.Fatalf("minimal config rejected: %v", err)
	}
}

// A fresh engine sits at microtick 0, step 0, with koppa seeded 0/1 unless a
// seed is given.
func TestInitialState(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "13/7"), Beta: mustRat(t, "3/11")})
	s := e.Snapshot()
	if s.Microtick != 0 || s.Step != 1 || s.Rho != 0 {
		t.Fatalf("fresh snapshot: %+v", s)
	}
	if s.Koppa.String() != "0/1" {
		t.Fatalf("default koppa = %s, want 0/1", s.Koppa)
	}
	seeded := newEngine(t, Config{
		Upsilon: mustRat(t, "13/7"),
		Beta:    mustRat(t, "3/11"),
		Koppa:   mustRat(t, "1/1"),
	})
	if got := seeded.Snapshot().Koppa.String(); got != "1/1" {
		t.Fatalf("koppa seed = %s, want 1/1", got)
	}
}

// Seed 13/7 and 3/11 with the canonical modes: after exactly one step the
// recorded snapshot reads microtick 11, step 1, and the 12th transition wraps
// the internal counters.
func TestOneStepBoundary(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "13/7"), Beta: mustRat(t, "3/11")})
	for i := 0; i < TicksPerStep; i++ {
		if err := e.Advance(); err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
	}
	s := e.Snapshot()
	if s.Microtick != 11 || s.Step != 1 {
		t.Fatalf("after 1 step: microtick %d step %d, want 11/1", s.Microtick, s.Step)
	}
	if e.Step() != 0 {
		t.Fatalf("internal step = %d, want 0 until wraparound", e.Step())
	}
	// 13 and 3 are prime, so all four emission microticks fired.
	if got := len(e.Emissions()); got != 4 {
		t.Fatalf("emissions = %d, want 4", got)
	}
	if s.Rho != 1 {
		t.Fatalf("rho = %d, want 1 persisted from microtick 10", s.Rho)
	}
	// Transform swaps and reciprocates (upsilon 11/3, beta 7/13), then
	// quiet-additive propagation moves delta = (11/3 - 7/13)/11 across.
	if s.Upsilon.String() != "5085/1287" || s.Beta.String() != "1417/5577" {
		t.Fatalf("step-1 registers: upsilon %s beta %s", s.Upsilon, s.Beta)
	}

	if err := e.Advance(); err != nil {
		t.Fatalf("12th advance: %v", err)
	}
	if e.Microtick() != 1 || e.Step() != 1 {
		t.Fatalf("12th transition: microtick %d step %d, want 1/1", e.Microtick(), e.Step())
	}
	if got := e.Snapshot().Step; got != 2 {
		t.Fatalf("recorded step after wraparound = %d, want 2", got)
	}
}

// Run performs exactly 11 transitions per step, ends every step on microtick
// 11, and evaluates the trigger on exactly 4 of every 11 microticks.
func TestRunTransitionCount(t *testing.T) {
	oracle := &countingOracle{inner: primes.Default()}
	e := newEngine(t, Config{
		Upsilon: mustRat(t, "2/1"),
		Beta:    mustRat(t, "3/1"),
		Oracle:  oracle,
	})
	var visited []Snapshot
	err := e.Run(context.Background(), 5, func(s Snapshot) error {
		visited = append(visited, s)
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(visited) != 5 {
		t.Fatalf("visits = %d, want 5", len(visited))
	}
	for i, s := range visited {
		if s.Microtick != 11 || s.Step != i+1 {
			t.Fatalf("visit %d: microtick %d step %d", i, s.Microtick, s.Step)
		}
	}
	if oracle.calls != 4*5 {
		t.Fatalf("oracle calls = %d, want 20 (4 per step)", oracle.calls)
	}
	if e.Microtick() != 11 || e.Step() != 4 {
		t.Fatalf("end state: microtick %d internal step %d", e.Microtick(), e.Step())
	}
}

// Hand-checked quiet-additive walk for seeds 2/1 and 3/1: koppa accumulates
// -1/1 per fired trigger, the step-end transform yields 1/3 and 1/2, and
// propagation lands on the unreduced 63/198 and 68/132.
func TestQuietAdditiveStep(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "2/1"), Beta: mustRat(t, "3/1")})
	if err := e.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := e.Snapshot()
	if s.Upsilon.String() != "63/198" || s.Beta.String() != "68/132" {
		t.Fatalf("registers: upsilon %s beta %s", s.Upsilon, s.Beta)
	}
	if s.Koppa.String() != "-4/1" {
		t.Fatalf("koppa = %s, want -4/1", s.Koppa)
	}
	ems := e.Emissions()
	if len(ems) != 4 {
		t.Fatalf("emissions = %d, want 4", len(ems))
	}
	wantTicks := []int{1, 4, 7, 10}
	wantKoppa := []string{"-1/1", "-2/1", "-3/1", "-4/1"}
	for i, em := range ems {
		if em.Step != 1 || em.Microtick != wantTicks[i] || em.Rho != 1 {
			t.Errorf("emission %d: %+v", i, em)
		}
		if em.Koppa.String() != wantKoppa[i] {
			t.Errorf("emission %d koppa = %s, want %s", i, em.Koppa, wantKoppa[i])
		}
	}
}

// With no trigger hits koppa stays zero, the transform is a no-op, and
// propagation alone closes the step.
func TestPropagationWithoutTransform(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon:    mustRat(t, "4/1"),
		Beta:       mustRat(t, "3/1"),
		TriggerMap: TriggerUpsilonOnly, // 4 is composite: no trigger ever fires
	})
	if err := e.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	s := e.Snapshot()
	if len(e.Emissions()) != 0 {
		t.Fatalf("emissions = %d, want 0", len(e.Emissions()))
	}
	if s.Koppa.String() != "0/1" {
		t.Fatalf("koppa = %s, want 0/1", s.Koppa)
	}
	// delta = (4/1 - 3/1)/11 = 1/11; no swap happened first.
	if s.Upsilon.String() != "45/11" || s.Beta.String() != "32/11" {
		t.Fatalf("registers: upsilon %s beta %s", s.Upsilon, s.Beta)
	}
}

// Each propagation policy redistributes the same step imbalance differently.
// Seeds 4/1 and 3/1 with no reachable triggers keep the walk to one phase.
func TestPropagationModes(t *testing.T) {
	cases := []struct {
		mode                  PropagationMode
		wantUpsilon, wantBeta string
	}{
		{PropQuietAdditive, "45/11", "32/11"},
		{PropAdditive, "5/1", "2/1"},
		{PropMultiplicative, "48/11", "30/11"},
		{PropRotational, "3/1", "4/1"},
	}
	for _, c := range cases {
		e := newEngine(t, Config{
			Upsilon:     mustRat(t, "4/1"),
			Beta:        mustRat(t, "3/1"),
			TriggerMap:  TriggerUpsilonOnly, // 4 is composite: nothing fires
			Propagation: c.mode,
		})
		if err := e.Run(context.Background(), 1, nil); err != nil {
			t.Fatalf("%s: run: %v", c.mode, err)
		}
		s := e.Snapshot()
		if s.Upsilon.String() != c.wantUpsilon || s.Beta.String() != c.wantBeta {
			t.Errorf("%s: upsilon %s beta %s, want %s %s",
				c.mode, s.Upsilon, s.Beta, c.wantUpsilon, c.wantBeta)
		}
	}
}

// The trigger map decides which register each emission microtick reads.
func TestTriggerMap(t *testing.T) {
	alternating := newEngine(t, Config{Upsilon: mustRat(t, "4/1"), Beta: mustRat(t, "3/1")})
	if err := alternating.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	ems := alternating.Emissions()
	if len(ems) != 2 || ems[0].Microtick != 4 || ems[1].Microtick != 10 {
		t.Fatalf("alternating emissions: %+v", ems)
	}

	upsOnly := newEngine(t, Config{
		Upsilon:    mustRat(t, "4/1"),
		Beta:       mustRat(t, "3/1"),
		TriggerMap: TriggerUpsilonOnly,
	})
	if err := upsOnly.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := len(upsOnly.Emissions()); got != 0 {
		t.Fatalf("upsilon-only emissions = %d, want 0", got)
	}
}

// FEED bootstraps a zero koppa to 1/1 before multiplying, so the first trigger
// leaves the ratio and the second leaves the squared ratio, not an overwrite.
func TestFeedBootstrap(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon:   mustRat(t, "13/7"),
		Beta:      mustRat(t, "3/11"),
		KoppaMode: KoppaFeed,
	})
	if err := e.Advance(); err != nil { // microtick 1 fires on 13
		t.Fatalf("advance: %v", err)
	}
	if got := e.Snapshot().Koppa; got.IsZero() || got.String() != "143/21" {
		t.Fatalf("koppa after bootstrap = %s, want 143/21", got)
	}
	for i := 0; i < 3; i++ { // through microtick 4, which fires on 3
		if err := e.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := e.Snapshot().Koppa.String(); got != "20449/441" {
		t.Fatalf("koppa after second feed = %s, want 20449/441 (multiplied, not overwritten)", got)
	}
}

// DUMP overwrites koppa with upsilon/beta on every fired trigger.
func TestKoppaDump(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon:   mustRat(t, "13/7"),
		Beta:      mustRat(t, "3/11"),
		KoppaMode: KoppaDump,
	})
	for i := 0; i < 4; i++ { // through microtick 4
		if err := e.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := e.Snapshot().Koppa.String(); got != "143/21" {
		t.Fatalf("koppa after dump = %s, want 143/21", got)
	}
}

// The on-trigger transform fires inside the trigger phase; the emission record
// is captured before the swap, and the step-end transform still runs.
func TestOnTriggerTransform(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon:   mustRat(t, "2/1"),
		Beta:      mustRat(t, "3/1"),
		Transform: TransformOnTrigger,
	})
	if err := e.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	ems := e.Emissions()
	if len(ems) != 1 {
		t.Fatalf("emissions = %d, want 1 (registers hold 1-numerators after the first swap)", len(ems))
	}
	if ems[0].Microtick != 1 || ems[0].Upsilon.String() != "2/1" || ems[0].Koppa.String() != "-1/1" {
		t.Fatalf("emission: %+v (record must predate the transform)", ems[0])
	}
	s := e.Snapshot()
	if s.Upsilon.String() != "21/11" || s.Beta.String() != "34/11" {
		t.Fatalf("registers: upsilon %s beta %s", s.Upsilon, s.Beta)
	}
	if s.Rho != 0 {
		t.Fatalf("rho = %d, want 0 from microtick 10", s.Rho)
	}
}

// rho keeps its last evaluated value through non-emission microticks.
func TestRhoPersistence(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "2/1"), Beta: mustRat(t, "9/1")})
	if err := e.Advance(); err != nil { // microtick 1 fires on 2
		t.Fatalf("advance: %v", err)
	}
	if e.Snapshot().Rho != 1 {
		t.Fatal("rho not set at microtick 1")
	}
	if err := e.Advance(); err != nil { // microtick 2 evaluates nothing
		t.Fatalf("advance: %v", err)
	}
	if e.Snapshot().Rho != 1 {
		t.Fatal("rho must persist through microtick 2")
	}
	for i := 0; i < 9; i++ { // through microtick 11
		if err := e.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	// Microtick 10 evaluated beta = 9/1: composite, so the step-end
	// snapshot carries rho 0.
	if got := e.Snapshot().Rho; got != 0 {
		t.Fatalf("rho at step end = %d, want 0", got)
	}
}

// Reciprocating a zero-numerator register fails the run with DivisionByZero.
func TestTransformDivisionByZero(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon: mustRat(t, "0/1"),
		Beta:    mustRat(t, "3/1"),
		Koppa:   mustRat(t, "1/1"), // arms the transform
	})
	err := e.Run(context.Background(), 1, nil)
	if !errors.Is(err, rational.ErrDivisionByZero) {
		t.Fatalf("want ErrDivisionByZero, got %v", err)
	}
}

// FEED and DUMP divide by beta; a zero-numerator beta fails the run.
func TestKoppaDivisionByZero(t *testing.T) {
	for _, mode := range []KoppaMode{KoppaFeed, KoppaDump} {
		e := newEngine(t, Config{
			Upsilon:   mustRat(t, "13/7"),
			Beta:      mustRat(t, "0/1"),
			KoppaMode: mode,
		})
		err := e.Advance() // microtick 1 fires on 13
		if !errors.Is(err, rational.ErrDivisionByZero) {
			t.Fatalf("%s: want ErrDivisionByZero, got %v", mode, err)
		}
	}
}

// Cancelling the context stops the loop between steps.
func TestRunCancellation(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "2/1"), Beta: mustRat(t, "3/1")})
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	err := e.Run(ctx, 1000, func(Snapshot) error {
		steps++
		if steps == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if steps != 3 {
		t.Fatalf("steps visited = %d, want 3", steps)
	}
	if e.Microtick() != 11 {
		t.Fatalf("cancelled mid-step: microtick %d", e.Microtick())
	}
}

// Two engines with the same seeds and modes replay identical snapshot and
// emission sequences, digit for digit. Unreduced register digit counts
// roughly triple per step, so seven steps already compare registers
// thousands of digits wide.
func TestReplayDeterminism(t *testing.T) {
	trace := func() (snaps, ems []string) {
		e := newEngine(t, Config{Upsilon: mustRat(t, "2/1"), Beta: mustRat(t, "3/1")})
		err := e.Run(context.Background(), 7, func(s Snapshot) error {
			snaps = append(snaps, s.Upsilon.String()+" "+s.Beta.String()+" "+s.Koppa.String())
			return nil
		})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		for _, em := range e.Emissions() {
			ems = append(ems, em.Upsilon.String()+" "+em.Beta.String())
		}
		return snaps, ems
	}
	s1, e1 := trace()
	s2, e2 := trace()
	if len(s1) != 7 || len(s1) != len(s2) {
		t.Fatalf("snapshot counts: %d vs %d", len(s1), len(s2))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("snapshot %d diverged:\n%s\n%s", i, s1[i], s2[i])
		}
	}
	if len(e1) != len(e2) {
		t.Fatalf("emission counts: %d vs %d", len(e1), len(e2))
	}
	for i := range e1 {
		if e1[i] != e2[i] {
			t.Fatalf("emission %d diverged", i)
		}
	}
}

// Emissions hands out a copy; the engine's history cannot be rewritten.
func TestEmissionsCopy(t *testing.T) {
	e := newEngine(t, Config{Upsilon: mustRat(t, "2/1"), Beta: mustRat(t, "3/1")})
	if err := e.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	ems := e.Emissions()
	if len(ems) == 0 {
		t.Fatal("expected emissions")
	}
	ems[0].Rho = 99
	if got := e.Emissions()[0].Rho; got != 1 {
		t.Fatalf("history mutated through copy: rho %d", got)
	}
}

// A table oracle restricts triggers to its members.
func TestTableOracleTriggers(t *testing.T) {
	e := newEngine(t, Config{
		Upsilon: mustRat(t, "7/2"), // 7 is prime but not a Fibonacci prime
		Beta:    mustRat(t, "13/2"),
		Oracle:  primes.FibonacciPrimes(),
	})
	if err := e.Run(context.Background(), 1, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	ems := e.Emissions()
	if len(ems) != 2 || ems[0].Microtick != 4 || ems[1].Microtick != 10 {
		t.Fatalf("table-oracle emissions: %+v", ems)
	}
}
