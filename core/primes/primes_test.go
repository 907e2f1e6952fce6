package primes

import (
	"math/big"
	"testing"
)

// MillerRabin agrees with known primes and composites, including values far
// beyond int64.
func TestMillerRabin(t *testing.T) {
	o := MillerRabin{Rounds: 10}
	primes := []string{
		"2", "3", "5", "13", "89", "233", "1597", "28657", "514229",
		"618970019642690137449562111", // 2^89 - 1
	}
	for _, s := range primes {
		n, _ := new(big.Int).SetString(s, 10)
		if !o.IsPrimeForTrigger(n) {
			t.Errorf("%s: want prime", s)
		}
	}
	composites := []string{
		"0", "1", "4", "21", "143", "20449",
		"147573952589676412927", // 2^67 - 1 = 193707721 * 761838257287
	}
	for _, s := range composites {
		n, _ := new(big.Int).SetString(s, 10)
		if o.IsPrimeForTrigger(n) {
			t.Errorf("%s: want composite", s)
		}
	}
}

// Negative inputs are judged by absolute value.
func TestAbsoluteValue(t *testing.T) {
	o := Default()
	if !o.IsPrimeForTrigger(big.NewInt(-13)) {
		t.Fatal("-13: want prime via abs")
	}
	if o.IsPrimeForTrigger(big.NewInt(-1)) {
		t.Fatal("-1: want composite")
	}
	tbl := FibonacciPrimes()
	if !tbl.IsPrimeForTrigger(big.NewInt(-89)) {
		t.Fatal("table: -89 want member via abs")
	}
}

// A zero Rounds value falls back to DefaultRounds rather than panicking.
func TestRoundsDefault(t *testing.T) {
	o := MillerRabin{}
	if !o.IsPrimeForTrigger(big.NewInt(97)) {
		t.Fatal("97: want prime with default rounds")
	}
}

// The table oracle is pure membership: primes outside the set do not count.
func TestTable(t *testing.T) {
	tbl := FibonacciPrimes()
	if !tbl.IsPrimeForTrigger(big.NewInt(514229)) {
		t.Fatal("514229: want member")
	}
	if tbl.IsPrimeForTrigger(big.NewInt(7)) {
		t.Fatal("7 is prime but not a member")
	}
	if tbl.IsPrimeForTrigger(big.NewInt(8)) {
		t.Fatal("8: want non-member")
	}
	var zero Table
	if zero.IsPrimeForTrigger(big.NewInt(2)) {
		t.Fatal("zero-value table must match nothing")
	}
}
