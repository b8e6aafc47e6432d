// Package moneyfmt renders monetary amounts for validation messages and API
// responses.
package moneyfmt

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Fixed returns the amount with exactly two decimal places (e.g. "250.00").
func Fixed(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// WithCurrency returns the amount with two decimal places followed by the
// currency code (e.g. "250.00 USD").
func WithCurrency(amount float64, code string) string {
	return Fixed(amount) + " " + code
}

// Symbol returns the display symbol for a currency code, or the code itself
// when the currency is unknown.
func Symbol(code string) string {
	currency := money.GetCurrency(code)
	if currency == nil {
		return code
	}
	return currency.Grapheme
}

// IsKnownCurrency reports whether the code exists in the currency registry.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
