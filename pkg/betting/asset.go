package betting

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var maxAsset = decimal.NewFromInt(math.MaxInt64)

const (
	// AssetPrecision is the number of fractional digits of the chain currency
	AssetPrecision = 9
	// AssetSymbol is the ticker of the chain currency
	AssetSymbol = "SCR"
)

// Asset is an amount of the chain currency in its smallest unit
type Asset int64

// Decimal returns the amount in whole currency units
func (a Asset) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AssetPrecision)
}

func (a Asset) String() string {
	return a.Decimal().StringFixed(AssetPrecision) + " " + AssetSymbol
}

// MulOdds returns floor(a * odds), the full return of a winning stake
func (a Asset) MulOdds(o Odds) (Asset, error) {
	return mulDiv(a, int64(o.numerator), int64(o.denominator))
}

// CalculateGain returns the profit a winning stake makes over itself:
// floor(stake * (n - d) / d).
func CalculateGain(stake Asset, o Odds) (Asset, error) {
	if o.IsZero() {
		return 0, fmt.Errorf("%w: absent odds", ErrInvalidOdds)
	}
	return mulDiv(stake, int64(o.numerator)-int64(o.denominator), int64(o.denominator))
}

// mulDiv computes floor(a*m/d) for non-negative a and positive m, d.
// The product is exact, so only the final quotient has to fit in an Asset.
func mulDiv(a Asset, m, d int64) (Asset, error) {
	if a < 0 {
		return 0, fmt.Errorf("%w: negative amount %d", ErrInvalidStake, a)
	}
	if m < 0 || d <= 0 {
		return 0, fmt.Errorf("%w: bad factor %d/%d", ErrInvalidOdds, m, d)
	}

	product := decimal.NewFromInt(int64(a)).Mul(decimal.NewFromInt(m))
	quo, _ := product.QuoRem(decimal.NewFromInt(d), 0)
	if quo.GreaterThan(maxAsset) {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrStakeOverflow, a, m, d)
	}

	return Asset(quo.IntPart()), nil
}
