package domain

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer minor-currency units (cents).
type Money int64

var moneyPattern = regexp.MustCompile(`^-?[0-9]+\.[0-9]{2}$`)

// ParseMoney parses a decimal string with exactly two fractional digits.
func ParseMoney(s string) (Money, error) {
	if !moneyPattern.MatchString(s) {
		return 0, NewValidationError("money", fmt.Sprintf("%q must have exactly two fractional digits", s))
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, NewValidationError("money", err.Error())
	}

	cents := d.Shift(2).BigInt()
	if !cents.IsInt64() {
		return 0, NewValidationError("money", fmt.Sprintf("%q is out of range", s))
	}

	return Money(cents.Int64()), nil
}

// MustParseMoney is ParseMoney for constants and tests.
func MustParseMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Cents returns the raw minor-unit value.
func (m Money) Cents() int64 {
	return int64(m)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount with two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }
func (m Money) IsZero() bool     { return m == 0 }

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return -m
}

// Add returns m+o, failing with an integrity error when the sum overflows.
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, NewIntegrityError(fmt.Sprintf("sum of %s and %s overflows", m, o))
	}
	return sum, nil
}

// MinMoney returns the smallest of the given amounts.
func MinMoney(first Money, rest ...Money) Money {
	lowest := first
	for _, m := range rest {
		if m < lowest {
			lowest = m
		}
	}
	return lowest
}

// MarshalJSON encodes the amount as a two-decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts only the two-decimal string form.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return NewValidationError("money", "amount must be a decimal string")
	}

	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
