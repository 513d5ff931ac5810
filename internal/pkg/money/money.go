// Package money holds monetary amounts as int64 minor units (two decimal places).
package money

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places carried by an Amount.
const Scale = 2

var ErrInvalidAmount = errors.New("invalid monetary amount")

// Amount is a monetary value in minor units (1 = 0.01).
type Amount int64

const Zero Amount = 0

// FromDecimal rounds d half-up to two decimals and converts it to minor units.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Round(Scale).Shift(Scale).IntPart())
}

// FromMajor builds an Amount from whole currency units.
func FromMajor(units int64) Amount {
	return Amount(units * 100)
}

// Parse reads a decimal string such as "1500.25". More than two decimals is rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !d.Equal(d.Round(Scale)) {
		return 0, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, Scale)
	}
	return FromDecimal(d), nil
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// MulRate multiplies by a fractional rate, rounding half-up to two decimals.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return FromDecimal(a.Decimal().Mul(rate))
}

func (a Amount) MulInt(n int64) Amount {
	return a * Amount(n)
}

func (a Amount) IsPositive() bool {
	return a > 0
}

func (a Amount) IsNegative() bool {
	return a < 0
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*a = 0
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, v := range amounts {
		total += v
	}
	return total
}
