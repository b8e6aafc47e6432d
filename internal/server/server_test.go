package server

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas-core/internal/rates"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	history := rates.NewMemoryHistoryStore()
	history.SetRate("tx-1", 40)
	ratesCtx := rates.NewContext(nil, history, nil)
	ratesCtx.SetCustomRate("45")

	return NewHandler(nil, Options{
		Rates:   ratesCtx,
		Version: "test",
	})
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleInterest(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/interest",
		`{"principal": 1000, "annualRatePercent": 12, "installments": 12}`)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		MonthlyPayment          float64 `json:"monthlyPayment"`
		TotalAmount             float64 `json:"totalAmount"`
		ProfitabilityPercentage float64 `json:"profitabilityPercentage"`
		IsMinimumProfitable     bool    `json:"isMinimumProfitable"`
		WarningMessage          string  `json:"warningMessage"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if math.Abs(result.MonthlyPayment-88.85) > 0.01 {
		t.Errorf("monthlyPayment = %.2f, expected ~88.85", result.MonthlyPayment)
	}
	if math.Abs(result.TotalAmount-1066.19) > 0.01 {
		t.Errorf("totalAmount = %.2f, expected ~1066.19", result.TotalAmount)
	}
	if result.IsMinimumProfitable {
		t.Error("expected the loan to be below the profitability floor")
	}
	if result.WarningMessage == "" {
		t.Error("expected a warning message")
	}
}

func TestHandleInterestInvalidArgument(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/interest",
		`{"principal": -5, "annualRatePercent": 12, "installments": 12}`)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", recorder.Code)
	}
}

func TestHandleInterestRejectsUnknownFields(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/interest", `{"principal": 1000, "bogus": true}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400 for unknown fields", recorder.Code)
	}
}

func TestHandleMinimumRate(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/minimum-rate", `{"principal": 1000, "installments": 12}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		Rate float64 `json:"rate"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Rate <= 0 || result.Rate >= 100 {
		t.Errorf("rate = %.4f, expected a rate inside the search bracket", result.Rate)
	}
}

func TestHandleConvertPrecedence(t *testing.T) {
	h := newTestHandler(t)

	// A transaction with a stored historical rate must use it, not the
	// enabled custom rate.
	recorder := postJSON(t, h, "/api/convert",
		`{"amount": 10, "direction": "usd-ves", "transactionId": "tx-1"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		Converted  float64 `json:"converted"`
		Resolution struct {
			Rate   float64 `json:"rate"`
			Origin string  `json:"origin"`
		} `json:"resolution"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Resolution.Origin != "historical" || result.Resolution.Rate != 40 {
		t.Errorf("resolution = %+v, expected historical rate 40", result.Resolution)
	}
	if math.Abs(result.Converted-400) > 1e-9 {
		t.Errorf("converted = %v, expected 400", result.Converted)
	}

	// Without a transaction id the custom rate applies.
	recorder = postJSON(t, h, "/api/convert", `{"amount": 10, "direction": "usd-ves"}`)
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Resolution.Origin != "custom" || result.Resolution.Rate != 45 {
		t.Errorf("resolution = %+v, expected custom rate 45", result.Resolution)
	}
}

func TestHandleConvertUnknownDirection(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/convert", `{"amount": 10, "direction": "usd-eur"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", recorder.Code)
	}
}

func TestHandleCashValidate(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/cash/validate", `{
		"denominations": [
			{"id": "d1", "value": 100, "count": 2},
			{"id": "d2", "value": 50, "count": 1}
		],
		"expectedAmount": 300,
		"currency": "USD",
		"paymentMethod": "cash"
	}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		IsValid          bool     `json:"isValid"`
		Errors           []string `json:"errors"`
		CalculatedAmount float64  `json:"calculatedAmount"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.IsValid {
		t.Error("expected an invalid reconciliation")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "250.00") {
		t.Errorf("errors = %v, expected one mismatch citing 250.00", result.Errors)
	}
	if result.CalculatedAmount != 250 {
		t.Errorf("calculatedAmount = %.2f, expected 250", result.CalculatedAmount)
	}
}

func TestHandleCashFields(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/cash/fields", `{
		"denominations": [{"id": "d1", "value": 20, "count": 1.5}]
	}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, expected one fractional-count error", result.Errors)
	}
}

func TestHandleTransfersValidate(t *testing.T) {
	h := newTestHandler(t)

	recorder := postJSON(t, h, "/api/transfers/validate", `{
		"totalAmount": 300,
		"currency": "USD",
		"entries": [
			{"id": "e1", "destinationAccountId": "a1", "amount": 100},
			{"id": "e2", "destinationAccountId": "a2", "amount": 150}
		]
	}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}

	var result struct {
		CurrentSum float64 `json:"currentSum"`
		Difference float64 `json:"difference"`
		IsValid    bool    `json:"isValid"`
		Label      string  `json:"label"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.IsValid || result.Difference != 50 {
		t.Errorf("balance = %+v, expected a 50 shortfall", result)
	}
	if !strings.Contains(result.Label, "falta asignar") {
		t.Errorf("label = %q, expected a shortfall label", result.Label)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/interest", nil)
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, expected 405", recorder.Code)
	}
}

func TestHandleVersionAndHealth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK || !strings.Contains(recorder.Body.String(), "test") {
		t.Errorf("version response = %d %s", recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder = httptest.NewRecorder()
	h.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("health status = %d, expected 200", recorder.Code)
	}
}
