// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals; the JSON form is a bare number so stored
// collections keep the shape of plain JSON arrays of flat objects.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in rupees. Recorded amounts are non-negative;
// derived figures such as the available balance may go below zero.
type Amount struct {
	value decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{}

// NewAmount returns an amount of whole rupees.
func NewAmount(rupees int64) Amount {
	return Amount{value: decimal.NewFromInt(rupees)}
}

// AmountOf wraps an existing decimal.
func AmountOf(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// ParseAmount converts user input to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is
// allowed; negative values, empty strings and anything that is not a number
// are rejected with a ValidationError.
//
// Examples:
//
//	ParseAmount("500")    -> 500
//	ParseAmount("12,50")  -> 12.5
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (Amount, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, invalid("amount", raw, ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, invalid("amount", raw, ErrInvalidAmount)
	}
	if d.IsNegative() {
		return Zero, invalid("amount", raw, ErrNegativeAmount)
	}
	return Amount{value: d}, nil
}

func (a Amount) Decimal() decimal.Decimal { return a.value }
func (a Amount) Add(b Amount) Amount      { return Amount{value: a.value.Add(b.value)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{value: a.value.Sub(b.value)} }
func (a Amount) Equal(b Amount) bool      { return a.value.Equal(b.value) }
func (a Amount) Cmp(b Amount) int         { return a.value.Cmp(b.value) }
func (a Amount) IsZero() bool             { return a.value.IsZero() }
func (a Amount) IsNegative() bool         { return a.value.IsNegative() }

// String returns the shortest exact decimal form, e.g. "500" or "12.5".
func (a Amount) String() string { return a.value.String() }

// Float returns the value as a float64 for display purposes such as chart
// scaling. Use the decimal form for arithmetic.
func (a Amount) Float() float64 {
	f, _ := a.value.Float64()
	return f
}

func (a Amount) validate(field string) error {
	if a.value.IsNegative() {
		return invalid(field, a.String(), ErrNegativeAmount)
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.value.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings; null decodes to zero.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return invalid("amount", string(data), ErrInvalidAmount)
	}
	a.value = d
	return nil
}

// Sum adds up the amounts produced by f for each item.
func Sum[T any](items []T, f func(T) Amount) Amount {
	total := Zero
	for _, it := range items {
		total = total.Add(f(it))
	}
	return total
}
