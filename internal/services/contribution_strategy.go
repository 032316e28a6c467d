// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring payment contributions.
// Each frequency has a strategy that converts the payment amount into the
// amount to set aside every month.
package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"zerobudget/internal/core"
)

// ContributionStrategy converts a recurring amount into a monthly contribution.
type ContributionStrategy interface {
	// Monthly returns the amount to budget each month. The result is not
	// rounded; callers round when they persist or display it.
	Monthly(amount decimal.Decimal) decimal.Decimal
	// IsMonthly reports whether one cycle equals one calendar month.
	IsMonthly() bool
}

// SpreadOverMonths spreads a payment due every Months months.
type SpreadOverMonths struct {
	Months int64
}

// Monthly divides the amount by the cycle length in months.
func (s SpreadOverMonths) Monthly(amount decimal.Decimal) decimal.Decimal {
	return core.DivideMoney(amount, s.Months)
}

func (s SpreadOverMonths) IsMonthly() bool { return s.Months == 1 }

// TimesPerMonth multiplies a payment that occurs Times times a month.
type TimesPerMonth struct {
	Times int64
}

// Monthly multiplies the amount by the approximate occurrences per month.
func (s TimesPerMonth) Monthly(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(s.Times))
}

func (TimesPerMonth) IsMonthly() bool { return false }

// contributionStrategies maps frequencies to their contribution rule.
// Weekly and bi-weekly use 4 and 2 occurrences per month.
var contributionStrategies = map[core.Frequency]ContributionStrategy{
	core.Weekly:       TimesPerMonth{Times: 4},
	core.BiWeekly:     TimesPerMonth{Times: 2},
	core.Monthly:      SpreadOverMonths{Months: 1},
	core.Quarterly:    SpreadOverMonths{Months: 3},
	core.SemiAnnually: SpreadOverMonths{Months: 6},
	core.Annually:     SpreadOverMonths{Months: 12},
}

// GetContributionStrategy returns the strategy for a frequency.
// Returns an error if the frequency is not supported.
func GetContributionStrategy(frequency core.Frequency) (ContributionStrategy, error) {
	strategy, ok := contributionStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency %q: %w", frequency, core.ErrValidation)
	}
	return strategy, nil
}

// MonthlyContribution returns the unrounded monthly set-aside for a payment.
func MonthlyContribution(p core.RecurringPayment) (decimal.Decimal, error) {
	strategy, err := GetContributionStrategy(p.Frequency)
	if err != nil {
		return decimal.Zero, err
	}
	return strategy.Monthly(p.Amount), nil
}

// DisplayTarget is the amount a payment's funding progress is measured against:
// the monthly equivalent for income and monthly expenses, the full amount otherwise.
func DisplayTarget(p core.RecurringPayment) (decimal.Decimal, error) {
	strategy, err := GetContributionStrategy(p.Frequency)
	if err != nil {
		return decimal.Zero, err
	}
	if p.IsIncome() || strategy.IsMonthly() {
		return strategy.Monthly(p.Amount), nil
	}
	return p.Amount, nil
}

// fundsPerPeriod reports whether funding is counted only in the current period
// (income and monthly payments) rather than accumulated across periods.
func fundsPerPeriod(p core.RecurringPayment) bool {
	if p.IsIncome() {
		return true
	}
	strategy, err := GetContributionStrategy(p.Frequency)
	return err == nil && strategy.IsMonthly()
}

// PercentFunded returns funded/target as a percentage capped at 100, rounded to 2 places.
func PercentFunded(funded, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	pct := funded.Mul(decimal.NewFromInt(100)).DivRound(target, 10)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		pct = decimal.NewFromInt(100)
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2)
}
