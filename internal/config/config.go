// Package config defines the data structures related to configuration and
// includes functions for loading and validating the config.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"finanzas-core/pkg/constants"
	"finanzas-core/pkg/moneyfmt"
)

// Configuration holds all configuration for finanzas-core.
type Configuration struct {
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
	Rates        RatesConfig        `yaml:"rates,omitempty"`
	Currencies   CurrenciesConfig   `yaml:"currencies,omitempty"`
	Amortization AmortizationConfig `yaml:"amortization,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// RatesConfig holds exchange-rate source configuration.
type RatesConfig struct {
	// SourceURL is the endpoint returning {"rate": n, "lastUpdatedISO": s}.
	SourceURL string `yaml:"sourceUrl,omitempty"`
	// RequestTimeoutSeconds bounds each fetch.
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds,omitempty"`
	// DefaultParallelRate is used when no fetch has ever succeeded.
	DefaultParallelRate float64 `yaml:"defaultParallelRate,omitempty"`
	// RedisAddress, when set, backs historical-rate lookups with Redis
	// instead of the in-process store.
	RedisAddress string `yaml:"redisAddress,omitempty"`
}

// CurrenciesConfig holds the currency allow-lists.
type CurrenciesConfig struct {
	// CashEligible are the currencies that settle in physical cash and
	// require a denomination breakdown.
	CashEligible []string `yaml:"cashEligible,omitempty"`
	// ConversionBase and ConversionQuote form the convertible pair.
	ConversionBase  string `yaml:"conversionBase,omitempty"`
	ConversionQuote string `yaml:"conversionQuote,omitempty"`
}

// AmortizationConfig holds loan calculation thresholds.
type AmortizationConfig struct {
	// MinimumProfitabilityPercent is the return floor for receivables.
	MinimumProfitabilityPercent float64 `yaml:"minimumProfitabilityPercent,omitempty"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset fields with the application defaults.
func (c *Configuration) ApplyDefaults() {
	if c.Rates.DefaultParallelRate == 0 {
		c.Rates.DefaultParallelRate = constants.DefaultParallelRate
	}
	if c.Rates.RequestTimeoutSeconds == 0 {
		c.Rates.RequestTimeoutSeconds = 10
	}
	if len(c.Currencies.CashEligible) == 0 {
		c.Currencies.CashEligible = []string{constants.CurrencyUSD, constants.CurrencyEUR}
	}
	if c.Currencies.ConversionBase == "" {
		c.Currencies.ConversionBase = constants.CurrencyUSD
	}
	if c.Currencies.ConversionQuote == "" {
		c.Currencies.ConversionQuote = constants.CurrencyVES
	}
	if c.Amortization.MinimumProfitabilityPercent == 0 {
		c.Amortization.MinimumProfitabilityPercent = constants.MinimumProfitabilityPercent
	}
}

// ValidateConfiguration performs general validation of the configuration
// and returns warnings.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	for _, code := range c.Currencies.CashEligible {
		if !moneyfmt.IsKnownCurrency(code) {
			warnings = append(warnings, fmt.Sprintf("Cash-eligible currency '%s' is not a known currency code", code))
		}
	}
	if !moneyfmt.IsKnownCurrency(c.Currencies.ConversionBase) {
		warnings = append(warnings, fmt.Sprintf("Conversion base currency '%s' is not a known currency code", c.Currencies.ConversionBase))
	}
	if !moneyfmt.IsKnownCurrency(c.Currencies.ConversionQuote) {
		warnings = append(warnings, fmt.Sprintf("Conversion quote currency '%s' is not a known currency code", c.Currencies.ConversionQuote))
	}
	if c.Currencies.ConversionBase == c.Currencies.ConversionQuote {
		warnings = append(warnings, "Conversion base and quote currencies are the same")
	}

	if c.Rates.DefaultParallelRate <= 0 {
		warnings = append(warnings, fmt.Sprintf("Default parallel rate %.4f is not positive; conversions will fail without a fetched rate", c.Rates.DefaultParallelRate))
	}
	if c.Rates.SourceURL == "" {
		warnings = append(warnings, "No rate source URL configured; only the default parallel rate will be available")
	}

	if c.Amortization.MinimumProfitabilityPercent < 0 || c.Amortization.MinimumProfitabilityPercent > 100 {
		warnings = append(warnings, fmt.Sprintf("Minimum profitability of %.2f%% is outside the expected 0-100 range", c.Amortization.MinimumProfitabilityPercent))
	}

	return warnings
}
