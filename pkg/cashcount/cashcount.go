// Package cashcount reconciles cash denomination breakdowns against the
// declared amount of a transaction.
//
// Validation problems are returned as message lists rather than errors so
// the form layer can show every issue at once.
package cashcount

import (
	"fmt"

	"github.com/google/uuid"

	"finanzas-core/pkg/constants"
	"finanzas-core/pkg/mathutil"
	"finanzas-core/pkg/moneyfmt"
)

// Denomination is one banknote/coin face value and how many notes of that
// value compose the payment. Count is a float64 because it arrives from
// free-form input; a fractional count is a structural error, not a parse
// failure.
type Denomination struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
	Count float64 `json:"count"`
}

// NewDenomination builds a denomination with a fresh id.
func NewDenomination(value, count float64) Denomination {
	return Denomination{ID: uuid.NewString(), Value: value, Count: count}
}

// IsActive reports whether the denomination contributes to the breakdown.
// A value with no count, or a count with no value, is not active.
func (d Denomination) IsActive() bool {
	return d.Value > 0 && d.Count > 0
}

// isPartial reports whether exactly one of value/count is set.
func (d Denomination) isPartial() bool {
	return (d.Value > 0 && d.Count <= 0) || (d.Count > 0 && d.Value <= 0)
}

// Result is the outcome of reconciling a breakdown against the declared
// amount.
type Result struct {
	IsValid          bool     `json:"isValid"`
	Errors           []string `json:"errors"`
	CalculatedAmount float64  `json:"calculatedAmount"`
	ExpectedAmount   float64  `json:"expectedAmount"`
}

// DefaultEligibleCurrencies returns the currencies that settle in physical
// cash and therefore require a denomination breakdown.
func DefaultEligibleCurrencies() []string {
	return []string{constants.CurrencyUSD, constants.CurrencyEUR}
}

// ValidateCashDenominations reconciles the breakdown against expectedAmount.
// Non-cash payment methods and currencies outside the eligible set pass
// trivially with the calculated amount taken to be the declared one.
func ValidateCashDenominations(denominations []Denomination, expectedAmount float64, currency, paymentMethod string, eligibleCurrencies []string) Result {
	if paymentMethod != constants.PaymentMethodCash || !currencyEligible(currency, eligibleCurrencies) {
		return Result{
			IsValid:          true,
			CalculatedAmount: expectedAmount,
			ExpectedAmount:   expectedAmount,
		}
	}

	var errors []string

	// Every entry contributes its product; inactive and partial entries
	// contribute zero.
	calculated := 0.0
	activeCount := 0
	partial := false
	for _, denomination := range denominations {
		calculated += denomination.Value * denomination.Count
		if denomination.IsActive() {
			activeCount++
		}
		if denomination.isPartial() {
			partial = true
		}
	}

	if activeCount == 0 {
		errors = append(errors, "Debe especificar al menos una denominación")
	}
	if partial {
		errors = append(errors, "Las denominaciones deben tener valor y cantidad mayores a cero")
	}
	if !mathutil.WithinTolerance(calculated, expectedAmount, constants.CurrencyTolerance) {
		errors = append(errors, fmt.Sprintf(
			"El monto declarado (%s) no coincide con el desglose de efectivo (%s)",
			moneyfmt.WithCurrency(expectedAmount, currency),
			moneyfmt.WithCurrency(calculated, currency)))
	}
	if expectedAmount <= 0 {
		errors = append(errors, "El monto debe ser mayor a cero")
	}

	return Result{
		IsValid:          len(errors) == 0,
		Errors:           errors,
		CalculatedAmount: calculated,
		ExpectedAmount:   expectedAmount,
	}
}

// ValidateDenominationFields performs per-entry structural checks
// independent of any declared total, for live field-level validation. Each
// problem is reported as its own message.
func ValidateDenominationFields(denominations []Denomination) []string {
	var errors []string

	for i, denomination := range denominations {
		position := i + 1
		if denomination.Value > 0 && denomination.Count <= 0 {
			errors = append(errors, fmt.Sprintf(
				"La denominación %d (%s) tiene valor pero no cantidad", position, moneyfmt.Fixed(denomination.Value)))
		}
		if denomination.Count > 0 && denomination.Value <= 0 {
			errors = append(errors, fmt.Sprintf(
				"La denominación %d tiene cantidad pero no valor", position))
		}
		if !mathutil.IsWholeNumber(denomination.Count) {
			errors = append(errors, fmt.Sprintf(
				"La cantidad de la denominación %d debe ser un número entero", position))
		}
		if denomination.Value < 0 {
			errors = append(errors, fmt.Sprintf(
				"El valor de la denominación %d no puede ser negativo", position))
		}
		if denomination.Count < 0 {
			errors = append(errors, fmt.Sprintf(
				"La cantidad de la denominación %d no puede ser negativa", position))
		}
	}

	return errors
}

func currencyEligible(currency string, eligible []string) bool {
	for _, code := range eligible {
		if code == currency {
			return true
		}
	}
	return false
}
