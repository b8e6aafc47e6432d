// Package rates resolves USD/VES conversions against the best-available
// exchange rate: a transaction's historical rate, a user-supplied custom
// rate, the last-fetched parallel market rate, or a hardcoded default, in
// that order of precedence.
//
// All rate state lives in an explicit Context value built per form/session;
// there is no package-level mutable state, so independent contexts never
// contaminate each other.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finanzas-core/pkg/constants"
)

// ErrInvalidRate indicates a rate at or below zero, which would corrupt a
// conversion or divide by zero.
var ErrInvalidRate = errors.New("tasa de cambio inválida")

// ErrRateUnavailable indicates the external rate source could not be
// reached; previously loaded values are retained.
var ErrRateUnavailable = errors.New("tasa de cambio no disponible")

// Direction is the orientation of a conversion between USD and VES.
type Direction int

const (
	USDToVES Direction = iota
	VESToUSD
)

// RateOrigin identifies which precedence level resolved a conversion.
type RateOrigin string

const (
	OriginHistorical RateOrigin = "historical"
	OriginCustom     RateOrigin = "custom"
	OriginMarket     RateOrigin = "market"
	OriginDefault    RateOrigin = "default"
)

// Quote is one fetched market rate with the source's last-update timestamp.
type Quote struct {
	Rate        float64
	LastUpdated time.Time
}

// Source fetches the current parallel market rate from an external
// provider.
type Source interface {
	FetchRate(ctx context.Context) (Quote, error)
}

// HistoryStore looks up the exchange rate that was in effect when a past
// transaction was recorded. The second return is false when no rate is
// stored for the transaction.
type HistoryStore interface {
	HistoricalRate(ctx context.Context, transactionID string) (float64, bool, error)
}

// Resolution describes the rate a conversion actually used.
type Resolution struct {
	Rate        float64    `json:"rate"`
	Origin      RateOrigin `json:"origin"`
	LastUpdated time.Time  `json:"lastUpdated,omitempty"`
	Label       string     `json:"label,omitempty"`
}

// Context holds one session's rate state: the last-fetched market rate, the
// custom-rate toggle, and the memoized historical lookups.
type Context struct {
	logger  *zap.Logger
	source  Source
	history HistoryStore

	defaultRate float64

	mu            sync.RWMutex
	marketRate    float64
	lastUpdated   time.Time
	fetched       bool
	customEnabled bool
	customRate    float64
	memo          map[string]memoEntry

	flight singleflight.Group
}

type memoEntry struct {
	rate  float64
	found bool
}

// NewContext builds a session context. source and history may be nil for
// callers that only convert with custom or default rates; logger may be nil.
func NewContext(source Source, history HistoryStore, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		logger:      logger,
		source:      source,
		history:     history,
		defaultRate: constants.DefaultParallelRate,
		memo:        make(map[string]memoEntry),
	}
}

// SetDefaultRate overrides the constant fallback rate, for deployments that
// configure their own.
func (c *Context) SetDefaultRate(rate float64) {
	if rate > 0 {
		c.defaultRate = rate
	}
}

// SetCustomRate enables custom-rate mode from raw form input. Input that is
// empty, unparsable, or not positive counts as "no custom rate" and
// disables the mode.
func (c *Context) SetCustomRate(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || rate <= 0 {
		c.customEnabled = false
		c.customRate = 0
		return
	}
	c.customEnabled = true
	c.customRate = rate
}

// DisableCustomRate turns custom-rate mode off.
func (c *Context) DisableCustomRate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.customEnabled = false
	c.customRate = 0
}

// Refresh fetches a new market rate. On failure the previously loaded rate
// is retained untouched and the error is returned for user-facing display;
// conversions already resolved are unaffected.
func (c *Context) Refresh(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("%w: sin fuente de tasas configurada", ErrRateUnavailable)
	}

	quote, err := c.source.FetchRate(ctx)
	if err != nil {
		c.logger.Warn("rate refresh failed, retaining previous rate",
			zap.String("op", "rates.Refresh"),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	if quote.Rate <= 0 {
		return fmt.Errorf("%w: la fuente devolvió %.4f", ErrInvalidRate, quote.Rate)
	}

	c.mu.Lock()
	c.marketRate = quote.Rate
	c.lastUpdated = quote.LastUpdated
	c.fetched = true
	c.mu.Unlock()

	c.logger.Debug("market rate refreshed",
		zap.String("op", "rates.Refresh"),
		zap.Float64("rate", quote.Rate),
		zap.Time("lastUpdated", quote.LastUpdated),
	)
	return nil
}

// Current returns the resolution a plain conversion would use right now.
func (c *Context) Current() Resolution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveLocked(c.customEnabled)
}

// Convert converts an amount using the session's effective rate.
func (c *Context) Convert(amount float64, direction Direction) (float64, Resolution) {
	return c.ConvertUsing(amount, direction, c.customRateEnabled())
}

// ConvertUsing converts with an explicit per-call override of the
// custom-rate toggle.
func (c *Context) ConvertUsing(amount float64, direction Direction, useCustomRate bool) (float64, Resolution) {
	c.mu.RLock()
	resolution := c.resolveLocked(useCustomRate)
	c.mu.RUnlock()

	converted, err := ConvertAt(amount, resolution.Rate, direction)
	if err != nil {
		// Unusable rate; the default constant is always positive.
		resolution = Resolution{Rate: c.defaultRate, Origin: OriginDefault, Label: constants.StaleRateLabel}
		converted, _ = ConvertAt(amount, resolution.Rate, direction)
	}
	return converted, resolution
}

// ConvertForTransaction converts preferring the historical rate stored for
// the transaction, so past records are not distorted when the market rate
// moves. With no stored rate (or no history store) it falls back to the
// session's effective rate.
func (c *Context) ConvertForTransaction(ctx context.Context, transactionID string, amount float64, direction Direction) (float64, Resolution) {
	rate, found := c.historicalRate(ctx, transactionID)
	if found && rate > 0 {
		converted, err := ConvertAt(amount, rate, direction)
		if err == nil {
			return converted, Resolution{Rate: rate, Origin: OriginHistorical}
		}
	}
	return c.Convert(amount, direction)
}

// ForgetTransaction drops the memoized historical rate for a transaction so
// the next lookup goes back to the store.
func (c *Context) ForgetTransaction(transactionID string) {
	c.mu.Lock()
	delete(c.memo, transactionID)
	c.mu.Unlock()
}

// ConvertAt converts an amount at an explicit rate. A rate at or below zero
// is unusable and returns ErrInvalidRate.
func ConvertAt(amount, rate float64, direction Direction) (float64, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("%w: %.4f", ErrInvalidRate, rate)
	}
	if direction == USDToVES {
		return amount * rate, nil
	}
	return amount / rate, nil
}

// resolveLocked applies the custom > market > default precedence. Callers
// hold at least a read lock.
func (c *Context) resolveLocked(useCustomRate bool) Resolution {
	if useCustomRate && c.customEnabled && c.customRate > 0 {
		return Resolution{Rate: c.customRate, Origin: OriginCustom}
	}
	if c.fetched && c.marketRate > 0 {
		return Resolution{Rate: c.marketRate, Origin: OriginMarket, LastUpdated: c.lastUpdated}
	}
	return Resolution{Rate: c.defaultRate, Origin: OriginDefault, Label: constants.StaleRateLabel}
}

func (c *Context) customRateEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.customEnabled
}

// historicalRate memoizes per-transaction lookups for the session,
// including confirmed absences. Concurrent lookups for the same id collapse
// into a single store call. Store failures are not memoized; the conversion
// falls through to the effective rate.
func (c *Context) historicalRate(ctx context.Context, transactionID string) (float64, bool) {
	if c.history == nil || transactionID == "" {
		return 0, false
	}

	c.mu.RLock()
	entry, ok := c.memo[transactionID]
	c.mu.RUnlock()
	if ok {
		return entry.rate, entry.found
	}

	value, err, _ := c.flight.Do(transactionID, func() (interface{}, error) {
		// A lookup that raced this one may have resolved the id already.
		c.mu.RLock()
		entry, ok := c.memo[transactionID]
		c.mu.RUnlock()
		if ok {
			return entry, nil
		}

		rate, found, err := c.history.HistoricalRate(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		resolved := memoEntry{rate: rate, found: found}
		c.mu.Lock()
		c.memo[transactionID] = resolved
		c.mu.Unlock()
		return resolved, nil
	})
	if err != nil {
		c.logger.Warn("historical rate lookup failed",
			zap.String("op", "rates.historicalRate"),
			zap.String("transactionId", transactionID),
			zap.Error(err),
		)
		return 0, false
	}

	resolved := value.(memoEntry)
	return resolved.rate, resolved.found
}
