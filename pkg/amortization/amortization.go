// Package amortization implements fixed-rate installment loan calculations:
// the standard amortized monthly payment, derived profitability metrics, and
// a numeric search for the minimum rate meeting the business's return floor.
package amortization

import (
	"errors"
	"fmt"
	"math"

	"finanzas-core/pkg/constants"
	"finanzas-core/pkg/moneyfmt"
)

// ErrInvalidArgument indicates the caller passed a non-positive principal, a
// negative rate, or a non-positive installment count. These are programmer
// errors; the form layer is expected to keep them from reaching here.
var ErrInvalidArgument = errors.New("argumento inválido")

// Terms is the immutable input to an amortization calculation.
type Terms struct {
	Principal         float64
	AnnualRatePercent float64
	Installments      int
}

// Result holds the values derived from one amortization calculation. It is
// recomputed from Terms on every call and never cached.
type Result struct {
	Principal               float64 `json:"principal"`
	InterestRate            float64 `json:"interestRate"`
	Installments            int     `json:"installments"`
	TotalAmount             float64 `json:"totalAmount"`
	TotalInterest           float64 `json:"totalInterest"`
	MonthlyPayment          float64 `json:"monthlyPayment"`
	EffectiveAnnualRate     float64 `json:"effectiveAnnualRate"`
	ProfitabilityPercentage float64 `json:"profitabilityPercentage"`
	IsMinimumProfitable     bool    `json:"isMinimumProfitable"`
	WarningMessage          string  `json:"warningMessage,omitempty"`
}

// CalculateInterest computes the monthly payment, total interest, effective
// annual rate, and profitability for a fixed-rate installment loan, using
// the business's default minimum-profitability threshold.
//
// No rounding is applied to intermediate values; presentation formatting is
// the caller's concern.
func CalculateInterest(principal, annualRatePercent float64, installments int) (Result, error) {
	return CalculateInterestAt(principal, annualRatePercent, installments, constants.MinimumProfitabilityPercent)
}

// CalculateInterestAt is CalculateInterest with an explicit
// minimum-profitability threshold, for deployments that configure their own
// return floor.
func CalculateInterestAt(principal, annualRatePercent float64, installments int, minProfitabilityPercent float64) (Result, error) {
	if principal <= 0 {
		return Result{}, fmt.Errorf("%w: el monto principal debe ser mayor a cero, recibido %s",
			ErrInvalidArgument, moneyfmt.Fixed(principal))
	}
	if annualRatePercent < 0 {
		return Result{}, fmt.Errorf("%w: la tasa de interés no puede ser negativa, recibida %.2f",
			ErrInvalidArgument, annualRatePercent)
	}
	if installments < 1 {
		return Result{}, fmt.Errorf("%w: el número de cuotas debe ser al menos 1, recibido %d",
			ErrInvalidArgument, installments)
	}

	monthlyRate := annualRatePercent / (constants.PercentageMultiplier * constants.MonthsPerYear)

	var monthlyPayment, totalAmount float64
	if monthlyRate == 0 {
		// Interest-free loan: split the principal evenly.
		monthlyPayment = principal / float64(installments)
		totalAmount = principal
	} else {
		power := math.Pow(1.00+monthlyRate, float64(installments))
		monthlyPayment = principal * monthlyRate * power / (power - 1.00)
		totalAmount = monthlyPayment * float64(installments)
	}

	totalInterest := totalAmount - principal

	// Linear extrapolation of the per-cycle return, not a compounded IRR.
	// Kept for behavioral compatibility with the historical records this
	// metric was computed for.
	effectiveAnnualRate := (totalAmount/principal - 1) *
		(constants.MonthsPerYear / float64(installments)) * constants.PercentageMultiplier

	profitability := totalInterest / principal * constants.PercentageMultiplier

	result := Result{
		Principal:               principal,
		InterestRate:            annualRatePercent,
		Installments:            installments,
		TotalAmount:             totalAmount,
		TotalInterest:           totalInterest,
		MonthlyPayment:          monthlyPayment,
		EffectiveAnnualRate:     effectiveAnnualRate,
		ProfitabilityPercentage: profitability,
		IsMinimumProfitable:     profitability >= minProfitabilityPercent,
	}

	if !result.IsMinimumProfitable {
		result.WarningMessage = fmt.Sprintf(
			"La rentabilidad es de %.2f%%, por debajo del mínimo de %.2f%% (faltan %.2f puntos)",
			profitability, minProfitabilityPercent, minProfitabilityPercent-profitability)
	}

	return result, nil
}

// MinimumInterestRate finds the smallest annual rate whose total repayment
// reaches principal plus the default minimum profitability, for the given
// installment count.
func MinimumInterestRate(principal float64, installments int) (float64, error) {
	return MinimumInterestRateAt(principal, installments, constants.MinimumProfitabilityPercent)
}

// MinimumInterestRateAt runs a binary search over [RateSearchLow,
// RateSearchHigh] for the smallest rate meeting the given profitability
// floor. The search is well-posed because the total repayment is
// monotonically non-decreasing in the rate. Iterations are capped so the
// loop terminates even if floating point keeps the bracket above tolerance.
func MinimumInterestRateAt(principal float64, installments int, minProfitabilityPercent float64) (float64, error) {
	if principal <= 0 {
		return 0, fmt.Errorf("%w: el monto principal debe ser mayor a cero, recibido %s",
			ErrInvalidArgument, moneyfmt.Fixed(principal))
	}
	if installments < 1 {
		return 0, fmt.Errorf("%w: el número de cuotas debe ser al menos 1, recibido %d",
			ErrInvalidArgument, installments)
	}

	targetTotal := principal * (1 + minProfitabilityPercent/constants.PercentageMultiplier)

	low := constants.RateSearchLow
	high := constants.RateSearchHigh

	for i := 0; i < constants.RateSearchMaxIterations && high-low > constants.RateSearchTolerance; i++ {
		mid := (low + high) / 2
		result, err := CalculateInterestAt(principal, mid, installments, minProfitabilityPercent)
		if err != nil {
			return 0, err
		}
		if result.TotalAmount < targetTotal {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2, nil
}
