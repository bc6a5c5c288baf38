package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Cents is a currency amount expressed in integer cents. All amounts in the
// application round to cents; fractional results from interest or percentage
// growth are rounded half away from zero.
type Cents int64

// ErrNotFinite is returned when a percentage or rate input is NaN or infinite.
var ErrNotFinite = errors.New("amount is not a finite number")

var oneHundred = decimal.NewFromInt(100)

// FromDecimal rounds a decimal currency value to cents.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(oneHundred).Round(0).IntPart())
}

// Decimal returns the amount as a decimal number of currency units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(c)).Div(oneHundred)
}

func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// MonthlyInterest computes one month of simple interest on a balance:
// balance * annualRatePercent / 1200, rounded to cents.
func MonthlyInterest(balance Cents, annualRatePercent float64) (Cents, error) {
	if math.IsNaN(annualRatePercent) || math.IsInf(annualRatePercent, 0) {
		return 0, fmt.Errorf("interest rate %f: %w", annualRatePercent, ErrNotFinite)
	}
	if balance <= 0 || annualRatePercent == 0 {
		return 0, nil
	}
	rate := decimal.NewFromFloat(annualRatePercent).Div(decimal.NewFromInt(1200))
	interest := decimal.NewFromInt(int64(balance)).Mul(rate).Round(0)
	return Cents(interest.IntPart()), nil
}

// Compound grows a base amount by percent per occurrence, compounded over
// n occurrences: base * (1 + percent/100)^n, rounded to cents.
func Compound(base Cents, percent float64, n int) (Cents, error) {
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, fmt.Errorf("growth percentage %f: %w", percent, ErrNotFinite)
	}
	if n <= 0 || percent == 0 {
		return base, nil
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(percent).Div(oneHundred))
	grown := decimal.NewFromInt(int64(base)).Mul(factor.Pow(decimal.NewFromInt(int64(n)))).Round(0)
	if grown.IntPart() < 0 {
		return 0, nil
	}
	return Cents(grown.IntPart()), nil
}

// ClampNonNegative floors an amount at zero.
func ClampNonNegative(c Cents) Cents {
	if c < 0 {
		return 0
	}
	return c
}
