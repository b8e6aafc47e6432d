// Package constants provides shared constants for the finanzas-core application.
package constants

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Amortization constants
const (
	// MinimumProfitabilityPercent is the minimum acceptable return on a
	// receivable, as total interest over principal
	MinimumProfitabilityPercent = 10.0

	// RateSearchLow is the lower bound for the minimum-rate search
	RateSearchLow = 0.0

	// RateSearchHigh is the upper bound for the minimum-rate search
	RateSearchHigh = 100.0

	// RateSearchTolerance is the bracket width, in percentage points, at
	// which the minimum-rate search stops
	RateSearchTolerance = 0.01

	// RateSearchMaxIterations caps the minimum-rate search so it terminates
	// even when floating point keeps the bracket above tolerance
	RateSearchMaxIterations = 64
)

// Exchange rate constants
const (
	// DefaultParallelRate is the VES-per-USD rate used when no fetch has
	// ever succeeded
	DefaultParallelRate = 36.5

	// StaleRateLabel marks a conversion resolved with the default rate
	StaleRateLabel = "sin datos recientes"
)

// Currency codes handled by the application
const (
	CurrencyUSD = "USD"
	CurrencyVES = "VES"
	CurrencyEUR = "EUR"
)

// Payment method constants
const (
	// PaymentMethodCash is the payment method that requires a denomination
	// breakdown
	PaymentMethodCash = "cash"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"
)
