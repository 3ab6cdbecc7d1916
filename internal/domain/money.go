package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places kept for every monetary value.
const MoneyPlaces = 2

// VarianceTolerance is the smallest register variance worth annotating.
var VarianceTolerance = decimal.RequireFromString("0.01")

// RoundMoney rounds to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// FormatBRL renders an amount the way it appears in register notes.
func FormatBRL(d decimal.Decimal) string {
	return fmt.Sprintf("R$ %s", d.Abs().StringFixed(MoneyPlaces))
}

// ValidatePositive rejects amounts that are not positive once rounded to cents.
func ValidatePositive(field string, d decimal.Decimal) error {
	if !RoundMoney(d).IsPositive() {
		return NewValidationError("%s must be greater than zero", field)
	}
	return nil
}

// ValidateNonNegative rejects negative amounts.
func ValidateNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return NewValidationError("%s cannot be negative", field)
	}
	return nil
}
