// core/rational/rational.go
package rational

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrDivisionByZero is returned when a rational is constructed with a zero
// denominator or divided by a rational whose numerator is zero.
var ErrDivisionByZero = errors.New("rational: division by zero")

// Rational is an exact fraction of arbitrary-precision integers that is never
// reduced to lowest terms: 6/4 stays 6/4 through every operation, so the digit
// strings of numerator and denominator carry the full arithmetic history of a
// value. Digit counts compound geometrically as operations chain, and that
// growth is load-bearing for callers that inspect raw numerators. All
// operations return new values; operands are never mutated.
//
// The zero value behaves as 0/1 but reports false from Valid, so callers that
// require an explicit input can tell it apart from a constructed 0/1.
type Rational struct {
	num, den *big.Int
}

// Defaults backing the zero value. Used as operands only, never as receivers.
var (
	zeroNum = big.NewInt(0)
	oneDen  = big.NewInt(1)
)

func (r Rational) rawNum() *big.Int {
	if r.num == nil {
		return zeroNum
	}
	return r.num
}

func (r Rational) rawDen() *big.Int {
	if r.den == nil {
		return oneDen
	}
	return r.den
}

// New returns num/den without reducing. Both arguments are copied.
func New(num, den *big.Int) (Rational, error) {
	if den == nil || den.Sign() == 0 {
		return Rational{}, fmt.Errorf("construct %v/%v: %w", num, den, ErrDivisionByZero)
	}
	if num == nil {
		num = zeroNum
	}
	return Rational{num: new(big.Int).Set(num), den: new(big.Int).Set(den)}, nil
}

// FromInt64 returns num/den for machine-sized parts.
func FromInt64(num, den int64) (Rational, error) {
	return New(big.NewInt(num), big.NewInt(den))
}

// Parse reads "13/7", "-3/11", or a bare integer "42" (denominator 1).
// Digit strings of any length are accepted.
func Parse(s string) (Rational, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Rational{}, fmt.Errorf("rational: parse %q: empty", s)
	}
	numS, denS, ok := strings.Cut(t, "/")
	if !ok {
		denS = "1"
	}
	num, okN := new(big.Int).SetString(strings.TrimSpace(numS), 10)
	if !okN {
		return Rational{}, fmt.Errorf("rational: parse %q: bad numerator", s)
	}
	den, okD := new(big.Int).SetString(strings.TrimSpace(denS), 10)
	if !okD {
		return Rational{}, fmt.Errorf("rational: parse %q: bad denominator", s)
	}
	return New(num, den)
}

// Zero returns a constructed 0/1.
func Zero() Rational { return Rational{num: big.NewInt(0), den: big.NewInt(1)} }

// One returns 1/1.
func One() Rational { return Rational{num: big.NewInt(1), den: big.NewInt(1)} }

// Valid reports whether r came from a constructor. The zero value is usable
// (it behaves as 0/1) but not Valid.
func (r Rational) Valid() bool { return r.den != nil }

// ---------- arithmetic ----------

// Add returns (a*d + c*b) / (b*d) for r=a/b, x=c/d.
func (r Rational) Add(x Rational) Rational {
	num := new(big.Int).Mul(r.rawNum(), x.rawDen())
	num.Add(num, new(big.Int).Mul(x.rawNum(), r.rawDen()))
	return Rational{num: num, den: new(big.Int).Mul(r.rawDen(), x.rawDen())}
}

// Sub returns (a*d - c*b) / (b*d).
func (r Rational) Sub(x Rational) Rational {
	num := new(big.Int).Mul(r.rawNum(), x.rawDen())
	num.Sub(num, new(big.Int).Mul(x.rawNum(), r.rawDen()))
	return Rational{num: num, den: new(big.Int).Mul(r.rawDen(), x.rawDen())}
}

// Mul returns (a*c) / (b*d).
func (r Rational) Mul(x Rational) Rational {
	return Rational{
		num: new(big.Int).Mul(r.rawNum(), x.rawNum()),
		den: new(big.Int).Mul(r.rawDen(), x.rawDen()),
	}
}

// Div returns (a*d) / (b*c). Dividing by a rational whose numerator is zero
// fails with ErrDivisionByZero; the unbounded value must not be fabricated.
func (r Rational) Div(x Rational) (Rational, error) {
	if x.rawNum().Sign() == 0 {
		return Rational{}, fmt.Errorf("divide %s by %s: %w", r, x, ErrDivisionByZero)
	}
	return Rational{
		num: new(big.Int).Mul(r.rawNum(), x.rawDen()),
		den: new(big.Int).Mul(r.rawDen(), x.rawNum()),
	}, nil
}

// Equals compares by cross-multiplication (a*d == c*b), so values agree even
// when their unreduced representations differ: 6/4 equals 3/2.
func (r Rational) Equals(x Rational) bool {
	l := new(big.Int).Mul(r.rawNum(), x.rawDen())
	m := new(big.Int).Mul(x.rawNum(), r.rawDen())
	return l.Cmp(m) == 0
}

// IsZero reports whether the numerator is zero.
func (r Rational) IsZero() bool { return r.rawNum().Sign() == 0 }

// Sign returns -1, 0, or +1 for the value, accounting for a negative
// denominator.
func (r Rational) Sign() int { return r.rawNum().Sign() * r.rawDen().Sign() }

// ---------- reporting ----------

// Float64 approximates the value for reporting and convergence comparison.
// It never feeds back into exact arithmetic.
func (r Rational) Float64() float64 {
	q := new(big.Float).Quo(
		new(big.Float).SetInt(r.rawNum()),
		new(big.Float).SetInt(r.rawDen()),
	)
	f, _ := q.Float64()
	return f
}

// Num returns a copy of the numerator.
func (r Rational) Num() *big.Int { return new(big.Int).Set(r.rawNum()) }

// Den returns a copy of the denominator.
func (r Rational) Den() *big.Int { return new(big.Int).Set(r.rawDen()) }

// NumString returns the exact decimal numerator text. Decimal text is the
// interchange form for persistence: magnitudes outgrow int64 within tens of
// operations.
func (r Rational) NumString() string { return r.rawNum().String() }

// DenString returns the exact decimal denominator text.
func (r Rational) DenString() string { return r.rawDen().String() }

// String renders "num/den".
func (r Rational) String() string { return r.rawNum().String() + "/" + r.rawDen().String() }
