package amortization

import (
	"errors"
	"math"
	"testing"

	"finanzas-core/pkg/testutil"
)

func TestCalculateInterest(t *testing.T) {
	tests := []struct {
		name                  string
		principal             float64
		annualRatePercent     float64
		installments          int
		expectedMonthly       float64
		expectedTotal         float64
		expectedInterest      float64
		expectedProfitability float64
		expectMinProfitable   bool
	}{
		{
			name:                  "Reference loan 1000 at 12 percent over 12 months",
			principal:             1000,
			annualRatePercent:     12,
			installments:          12,
			expectedMonthly:       88.85,
			expectedTotal:         1066.19,
			expectedInterest:      66.19,
			expectedProfitability: 6.62,
			expectMinProfitable:   false,
		},
		{
			name:                  "Zero interest loan",
			principal:             1200,
			annualRatePercent:     0,
			installments:          12,
			expectedMonthly:       100,
			expectedTotal:         1200,
			expectedInterest:      0,
			expectedProfitability: 0,
			expectMinProfitable:   false,
		},
		{
			name:                  "Single installment degenerates to one-period interest",
			principal:             1000,
			annualRatePercent:     12,
			installments:          1,
			expectedMonthly:       1010,
			expectedTotal:         1010,
			expectedInterest:      10,
			expectedProfitability: 1,
			expectMinProfitable:   false,
		},
		{
			name:                  "High rate clears the profitability floor",
			principal:             1000,
			annualRatePercent:     24,
			installments:          12,
			expectedMonthly:       94.56,
			expectedTotal:         1134.72,
			expectedInterest:      134.72,
			expectedProfitability: 13.47,
			expectMinProfitable:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CalculateInterest(tt.principal, tt.annualRatePercent, tt.installments)
			if err != nil {
				t.Fatalf("CalculateInterest() error = %v", err)
			}

			if math.Abs(result.MonthlyPayment-tt.expectedMonthly) > 0.01 {
				t.Errorf("MonthlyPayment = %.2f, expected %.2f", result.MonthlyPayment, tt.expectedMonthly)
			}
			if math.Abs(result.TotalAmount-tt.expectedTotal) > 0.01 {
				t.Errorf("TotalAmount = %.2f, expected %.2f", result.TotalAmount, tt.expectedTotal)
			}
			if math.Abs(result.TotalInterest-tt.expectedInterest) > 0.01 {
				t.Errorf("TotalInterest = %.2f, expected %.2f", result.TotalInterest, tt.expectedInterest)
			}
			if math.Abs(result.ProfitabilityPercentage-tt.expectedProfitability) > 0.01 {
				t.Errorf("ProfitabilityPercentage = %.2f, expected %.2f",
					result.ProfitabilityPercentage, tt.expectedProfitability)
			}
			if result.IsMinimumProfitable != tt.expectMinProfitable {
				t.Errorf("IsMinimumProfitable = %v, expected %v",
					result.IsMinimumProfitable, tt.expectMinProfitable)
			}
			if tt.expectMinProfitable && result.WarningMessage != "" {
				t.Errorf("unexpected warning message: %q", result.WarningMessage)
			}
			if !tt.expectMinProfitable && result.WarningMessage == "" {
				t.Error("expected a warning message for a loan below the profitability floor")
			}
		})
	}
}

func TestCalculateInterestInvariants(t *testing.T) {
	// Total repayment never drops below principal and the interest identity
	// holds exactly, across a spread of inputs.
	principals := []float64{1, 500, 1000, 25000}
	rates := []float64{0, 0.5, 6, 12, 48, 100}
	terms := []int{1, 3, 12, 36, 60}

	for _, principal := range principals {
		for _, rate := range rates {
			for _, installments := range terms {
				result, err := CalculateInterest(principal, rate, installments)
				if err != nil {
					t.Fatalf("CalculateInterest(%v, %v, %v) error = %v", principal, rate, installments, err)
				}
				if result.TotalAmount < principal-1e-9 {
					t.Errorf("TotalAmount %.6f < principal %.6f for rate %.2f over %d months",
						result.TotalAmount, principal, rate, installments)
				}
				if diff := result.TotalInterest - (result.TotalAmount - result.Principal); math.Abs(diff) > 1e-9 {
					t.Errorf("TotalInterest identity broken by %.12f for rate %.2f over %d months",
						diff, rate, installments)
				}
			}
		}
	}
}

func TestCalculateInterestMonotonicInRate(t *testing.T) {
	// The minimum-rate binary search relies on this.
	previous := 0.0
	for rate := 0.0; rate <= 100.0; rate += 0.25 {
		result, err := CalculateInterest(1000, rate, 12)
		if err != nil {
			t.Fatalf("CalculateInterest error = %v", err)
		}
		if result.TotalAmount < previous {
			t.Fatalf("TotalAmount decreased from %.6f to %.6f at rate %.2f",
				previous, result.TotalAmount, rate)
		}
		previous = result.TotalAmount
	}
}

func TestCalculateInterestInvalidArguments(t *testing.T) {
	tests := []struct {
		name         string
		principal    float64
		rate         float64
		installments int
	}{
		{name: "Zero principal", principal: 0, rate: 12, installments: 12},
		{name: "Negative principal", principal: -100, rate: 12, installments: 12},
		{name: "Negative rate", principal: 1000, rate: -1, installments: 12},
		{name: "Zero installments", principal: 1000, rate: 12, installments: 0},
		{name: "Negative installments", principal: 1000, rate: 12, installments: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CalculateInterest(tt.principal, tt.rate, tt.installments)
			if err == nil {
				t.Fatal("expected an error, got nil")
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("error = %v, expected ErrInvalidArgument", err)
			}
		})
	}
}

func TestMinimumInterestRate(t *testing.T) {
	tests := []struct {
		name         string
		principal    float64
		installments int
	}{
		{name: "One year term", principal: 1000, installments: 12},
		{name: "Six month term", principal: 500, installments: 6},
		{name: "Three year term", principal: 20000, installments: 36},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := MinimumInterestRate(tt.principal, tt.installments)
			if err != nil {
				t.Fatalf("MinimumInterestRate() error = %v", err)
			}

			result, err := CalculateInterest(tt.principal, rate, tt.installments)
			if err != nil {
				t.Fatalf("CalculateInterest() error = %v", err)
			}

			// The returned rate should land the profitability within a
			// bracket-tolerance of the 10% floor.
			testutil.AssertClose(t, "profitability at minimum rate", result.ProfitabilityPercentage, 10.0, 0.1)
		})
	}
}

func TestMinimumInterestRateSingleInstallmentCapsAtBracket(t *testing.T) {
	// A single installment would need a 120% annual rate to reach 10%
	// profitability, beyond the search's upper bound. The search must still
	// terminate and return the top of the bracket.
	rate, err := MinimumInterestRate(1000, 1)
	if err != nil {
		t.Fatalf("MinimumInterestRate() error = %v", err)
	}
	if rate < 99.9 || rate > 100.0 {
		t.Errorf("rate = %.4f, expected the top of the search bracket", rate)
	}
}

func TestMinimumInterestRateInvalidArguments(t *testing.T) {
	if _, err := MinimumInterestRate(0, 12); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error for zero principal = %v, expected ErrInvalidArgument", err)
	}
	if _, err := MinimumInterestRate(1000, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error for zero installments = %v, expected ErrInvalidArgument", err)
	}
}

func TestEffectiveAnnualRateIsLinearExtrapolation(t *testing.T) {
	result, err := CalculateInterest(1000, 12, 12)
	if err != nil {
		t.Fatalf("CalculateInterest() error = %v", err)
	}

	expected := (result.TotalAmount/1000 - 1) * (12.0 / 12.0) * 100
	if math.Abs(result.EffectiveAnnualRate-expected) > 1e-9 {
		t.Errorf("EffectiveAnnualRate = %.6f, expected %.6f", result.EffectiveAnnualRate, expected)
	}
}
