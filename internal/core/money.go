// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals end to end. Stored and displayed values carry
// two fractional digits; intermediate divisions keep more and are rounded only
// when a value is persisted or shown.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of fractional digits kept for stored amounts.
	MoneyScale = 2
	// divisionScale is the precision used for intermediate divisions.
	divisionScale = 10
)

var (
	// BalanceTolerance is the threshold under which a remainder counts as zero.
	BalanceTolerance = decimal.New(1, -2)
	// SyncTolerance is the threshold used when comparing provider amounts.
	SyncTolerance = decimal.New(1, -3)
)

// ParseAmount converts a decimal string into an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional sign. Grouping separators are not supported.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, NewValidationError("amount", "invalid amount "+s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "invalid amount "+s)
	}
	return d, nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(s string) (decimal.Decimal, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "amount must be greater than zero")
	}
	return d, nil
}

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// DivideMoney divides an amount by n without rounding to MoneyScale.
func DivideMoney(d decimal.Decimal, n int64) decimal.Decimal {
	return d.DivRound(decimal.NewFromInt(n), divisionScale)
}

// IsBalanced reports whether d is within one cent of zero.
func IsBalanced(d decimal.Decimal) bool {
	return d.Abs().LessThan(BalanceTolerance)
}

// AmountsDiffer reports whether a and b differ by more than tol.
func AmountsDiffer(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(tol)
}

// SumMoney adds up amounts.
func SumMoney(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FormatMoney renders d with two fractional digits and the given symbol prefix.
func FormatMoney(d decimal.Decimal, symbol string) string {
	r := RoundMoney(d)
	if r.IsNegative() {
		return "-" + symbol + r.Abs().StringFixed(MoneyScale)
	}
	return symbol + r.StringFixed(MoneyScale)
}
