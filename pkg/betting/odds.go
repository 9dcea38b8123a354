package betting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Odds is a decimal payout multiplier kept as a reduced fraction.
// A stake s placed at n/d returns s*n/d when it wins, so every real
// odds value is strictly greater than one.
//
// The zero value is the "absent" sentinel.
type Odds struct {
	numerator   int16
	denominator int16
}

var (
	// MinOdds is the lowest price a bet may be placed at
	MinOdds = mustOdds(1001, 1000)
	// MaxOdds is the counter-side of MinOdds
	MaxOdds = MinOdds.Inverted()
)

// NewOdds builds reduced odds from a fraction whose terms fit in int16
func NewOdds(numerator, denominator int64) (Odds, error) {
	if numerator <= 0 || denominator <= 0 {
		return Odds{}, fmt.Errorf("%w: %d/%d must be positive", ErrInvalidOdds, numerator, denominator)
	}
	if numerator > math.MaxInt16 || denominator > math.MaxInt16 {
		return Odds{}, fmt.Errorf("%w: %d/%d", ErrOddsOverflow, numerator, denominator)
	}
	if numerator <= denominator {
		return Odds{}, fmt.Errorf("%w: %d/%d must be greater than one", ErrInvalidOdds, numerator, denominator)
	}

	g := gcd(numerator, denominator)
	n, d := numerator/g, denominator/g

	return Odds{numerator: int16(n), denominator: int16(d)}, nil
}

func mustOdds(numerator, denominator int64) Odds {
	o, err := NewOdds(numerator, denominator)
	if err != nil {
		panic(err)
	}
	return o
}

// ParseOdds reads odds in "n/d" form
func ParseOdds(s string) (Odds, error) {
	s = strings.TrimSpace(s)
	ns, ds, ok := strings.Cut(s, "/")
	if !ok {
		return Odds{}, fmt.Errorf("%w: %q is not a fraction", ErrInvalidOdds, s)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(ns), 10, 64)
	if err != nil {
		return Odds{}, fmt.Errorf("%w: numerator %q: %v", ErrInvalidOdds, ns, err)
	}
	d, err := strconv.ParseInt(strings.TrimSpace(ds), 10, 64)
	if err != nil {
		return Odds{}, fmt.Errorf("%w: denominator %q: %v", ErrInvalidOdds, ds, err)
	}
	return NewOdds(n, d)
}

func (o Odds) Numerator() int16   { return o.numerator }
func (o Odds) Denominator() int16 { return o.denominator }

// IsZero reports whether o is the absent sentinel
func (o Odds) IsZero() bool {
	return o.numerator == 0 && o.denominator == 0
}

// Inverted returns the price the opposite side has to take so that both
// wagers pay each other exactly: n/d -> n/(n-d).
func (o Odds) Inverted() Odds {
	if o.IsZero() {
		return o
	}
	// gcd(n, n-d) == gcd(n, d) == 1, the result is already reduced
	return Odds{numerator: o.numerator, denominator: o.numerator - o.denominator}
}

// Less orders odds by value
func (o Odds) Less(other Odds) bool {
	return int32(o.numerator)*int32(other.denominator) < int32(other.numerator)*int32(o.denominator)
}

func (o Odds) String() string {
	return fmt.Sprintf("%d/%d", o.numerator, o.denominator)
}

func (o Odds) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Odds) UnmarshalText(text []byte) error {
	parsed, err := ParseOdds(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
