// core/primes/primes.go
package primes

import (
	"math/big"
	"strconv"
)

// Oracle answers the primality question asked at emission microticks.
// Implementations judge the absolute value of n; values below 2 are never
// prime.
type Oracle interface {
	IsPrimeForTrigger(n *big.Int) bool
}

// DefaultRounds is the Miller-Rabin round count used when none is configured.
const DefaultRounds = 10

// Default returns the oracle used when a configuration names none.
func Default() Oracle { return MillerRabin{Rounds: DefaultRounds} }

var two = big.NewInt(2)

// MillerRabin answers via math/big's ProbablyPrime: Rounds Miller-Rabin
// iterations plus a Baillie-PSW pass. Exact for inputs below 2^64.
type MillerRabin struct {
	Rounds int // <= 0 means DefaultRounds
}

func (m MillerRabin) IsPrimeForTrigger(n *big.Int) bool {
	a := new(big.Int).Abs(n)
	if a.Cmp(two) < 0 {
		return false
	}
	rounds := m.Rounds
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	return a.ProbablyPrime(rounds)
}

// Table answers by membership in a fixed set. The zero value matches nothing.
type Table struct {
	members map[string]struct{}
}

// NewTable builds a membership oracle over the absolute values given.
func NewTable(values ...int64) Table {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v < 0 {
			v = -v
		}
		m[strconv.FormatInt(v, 10)] = struct{}{}
	}
	return Table{members: m}
}

func (t Table) IsPrimeForTrigger(n *big.Int) bool {
	if t.members == nil {
		return false
	}
	_, ok := t.members[new(big.Int).Abs(n).String()]
	return ok
}

// FibonacciPrimes returns the prime-Fibonacci trigger set used by the
// fixed-table experiments.
func FibonacciPrimes() Table {
	return NewTable(2, 3, 5, 13, 89, 233, 1597, 28657, 514229)
}
