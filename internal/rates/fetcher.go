package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// HTTPSource fetches the parallel market rate from a JSON endpoint shaped
// like {"rate": 36.5, "lastUpdatedISO": "2026-08-29T12:00:00Z"}. Requests
// run behind a circuit breaker so a flapping provider fails fast instead of
// piling up timeouts.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

type rateResponse struct {
	Rate           float64 `json:"rate"`
	LastUpdatedISO string  `json:"lastUpdatedISO"`
}

// NewHTTPSource builds a rate source for the given endpoint. timeout bounds
// each request; logger may be nil.
func NewHTTPSource(url string, timeout time.Duration, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name: "rate-source",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("rate source circuit breaker state changed",
				zap.String("op", "rates.HTTPSource"),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPSource{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// FetchRate requests the current rate and its last-update timestamp.
func (s *HTTPSource) FetchRate(ctx context.Context) (Quote, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return Quote{}, err
	}
	return result.(Quote), nil
}

func (s *HTTPSource) fetch(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Quote{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("cannot GET %s: %s", s.url, resp.Status)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("failed to decode rate response: %w", err)
	}

	quote := Quote{Rate: payload.Rate}
	if payload.LastUpdatedISO != "" {
		lastUpdated, err := time.Parse(time.RFC3339, payload.LastUpdatedISO)
		if err != nil {
			s.logger.Warn("rate source returned an unparsable timestamp",
				zap.String("op", "rates.HTTPSource.fetch"),
				zap.String("lastUpdatedISO", payload.LastUpdatedISO),
			)
		} else {
			quote.LastUpdated = lastUpdated
		}
	}

	return quote, nil
}
