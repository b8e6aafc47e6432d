// Package server exposes the calculation engine over a JSON HTTP API,
// consumed by the web front end's form components.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"finanzas-core/internal/rates"
	"finanzas-core/pkg/amortization"
	"finanzas-core/pkg/cashcount"
	"finanzas-core/pkg/transfers"
)

type handler struct {
	logger           *zap.Logger
	rates            *rates.Context
	minProfitability float64
	cashEligible     []string
	forwardDirection string
	reverseDirection string
	version          string
}

// Options carries the application settings the handlers need.
type Options struct {
	Rates            *rates.Context
	MinProfitability float64
	CashEligible     []string
	// ConversionBase and ConversionQuote name the convertible pair;
	// they default to USD and VES.
	ConversionBase  string
	ConversionQuote string
	Version         string
}

// NewHandler constructs the HTTP handler serving the calculation API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	h := &handler{
		logger:           logger,
		rates:            opts.Rates,
		minProfitability: opts.MinProfitability,
		cashEligible:     opts.CashEligible,
		version:          version,
	}
	if h.minProfitability <= 0 {
		h.minProfitability = 10
	}
	if len(h.cashEligible) == 0 {
		h.cashEligible = cashcount.DefaultEligibleCurrencies()
	}

	base := strings.ToLower(strings.TrimSpace(opts.ConversionBase))
	if base == "" {
		base = "usd"
	}
	quote := strings.ToLower(strings.TrimSpace(opts.ConversionQuote))
	if quote == "" {
		quote = "ves"
	}
	h.forwardDirection = base + "-" + quote
	h.reverseDirection = quote + "-" + base

	router := mux.NewRouter()
	router.HandleFunc("/api/interest", h.handleInterest).Methods(http.MethodPost)
	router.HandleFunc("/api/minimum-rate", h.handleMinimumRate).Methods(http.MethodPost)
	router.HandleFunc("/api/convert", h.handleConvert).Methods(http.MethodPost)
	router.HandleFunc("/api/rate", h.handleCurrentRate).Methods(http.MethodGet)
	router.HandleFunc("/api/rate/refresh", h.handleRefreshRate).Methods(http.MethodPost)
	router.HandleFunc("/api/cash/validate", h.handleCashValidate).Methods(http.MethodPost)
	router.HandleFunc("/api/cash/fields", h.handleCashFields).Methods(http.MethodPost)
	router.HandleFunc("/api/transfers/validate", h.handleTransfersValidate).Methods(http.MethodPost)
	router.HandleFunc("/api/version", h.handleVersion).Methods(http.MethodGet)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	return router
}

type interestRequest struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annualRatePercent"`
	Installments      int     `json:"installments"`
}

func (h *handler) handleInterest(w http.ResponseWriter, r *http.Request) {
	var req interestRequest
	if !h.decode(w, r, &req, "server.handleInterest") {
		return
	}

	result, err := amortization.CalculateInterestAt(req.Principal, req.AnnualRatePercent, req.Installments, h.minProfitability)
	if err != nil {
		if errors.Is(err, amortization.ErrInvalidArgument) {
			h.respondError(w, http.StatusBadRequest, err.Error(), "server.handleInterest")
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), "server.handleInterest")
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type minimumRateRequest struct {
	Principal    float64 `json:"principal"`
	Installments int     `json:"installments"`
}

func (h *handler) handleMinimumRate(w http.ResponseWriter, r *http.Request) {
	var req minimumRateRequest
	if !h.decode(w, r, &req, "server.handleMinimumRate") {
		return
	}

	rate, err := amortization.MinimumInterestRateAt(req.Principal, req.Installments, h.minProfitability)
	if err != nil {
		if errors.Is(err, amortization.ErrInvalidArgument) {
			h.respondError(w, http.StatusBadRequest, err.Error(), "server.handleMinimumRate")
			return
		}
		h.respondError(w, http.StatusInternalServerError, err.Error(), "server.handleMinimumRate")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]float64{"rate": rate})
}

type convertRequest struct {
	Amount        float64 `json:"amount"`
	Direction     string  `json:"direction"` // "usd-ves" or "ves-usd"
	TransactionID string  `json:"transactionId,omitempty"`
	UseCustomRate *bool   `json:"useCustomRate,omitempty"`
}

type convertResponse struct {
	Converted  float64          `json:"converted"`
	Resolution rates.Resolution `json:"resolution"`
}

func (h *handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !h.decode(w, r, &req, "server.handleConvert") {
		return
	}
	if h.rates == nil {
		h.respondError(w, http.StatusServiceUnavailable, "conversión no disponible", "server.handleConvert")
		return
	}

	var direction rates.Direction
	switch strings.ToLower(req.Direction) {
	case h.forwardDirection:
		direction = rates.USDToVES
	case h.reverseDirection:
		direction = rates.VESToUSD
	default:
		h.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("dirección de conversión desconocida: %q", req.Direction), "server.handleConvert")
		return
	}

	var converted float64
	var resolution rates.Resolution
	switch {
	case req.TransactionID != "":
		converted, resolution = h.rates.ConvertForTransaction(r.Context(), req.TransactionID, req.Amount, direction)
	case req.UseCustomRate != nil:
		converted, resolution = h.rates.ConvertUsing(req.Amount, direction, *req.UseCustomRate)
	default:
		converted, resolution = h.rates.Convert(req.Amount, direction)
	}

	h.writeJSON(w, http.StatusOK, convertResponse{Converted: converted, Resolution: resolution})
}

func (h *handler) handleCurrentRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		h.respondError(w, http.StatusServiceUnavailable, "conversión no disponible", "server.handleCurrentRate")
		return
	}
	h.writeJSON(w, http.StatusOK, h.rates.Current())
}

func (h *handler) handleRefreshRate(w http.ResponseWriter, r *http.Request) {
	if h.rates == nil {
		h.respondError(w, http.StatusServiceUnavailable, "conversión no disponible", "server.handleRefreshRate")
		return
	}

	if err := h.rates.Refresh(r.Context()); err != nil {
		// The previous rate is retained; report the failure alongside what
		// conversions will keep using.
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":      err.Error(),
			"resolution": h.rates.Current(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, h.rates.Current())
}

type cashValidateRequest struct {
	Denominations  []cashcount.Denomination `json:"denominations"`
	ExpectedAmount float64                  `json:"expectedAmount"`
	Currency       string                   `json:"currency"`
	PaymentMethod  string                   `json:"paymentMethod"`
}

func (h *handler) handleCashValidate(w http.ResponseWriter, r *http.Request) {
	var req cashValidateRequest
	if !h.decode(w, r, &req, "server.handleCashValidate") {
		return
	}

	result := cashcount.ValidateCashDenominations(
		req.Denominations, req.ExpectedAmount, req.Currency, req.PaymentMethod, h.cashEligible)
	h.writeJSON(w, http.StatusOK, result)
}

type cashFieldsRequest struct {
	Denominations []cashcount.Denomination `json:"denominations"`
}

func (h *handler) handleCashFields(w http.ResponseWriter, r *http.Request) {
	var req cashFieldsRequest
	if !h.decode(w, r, &req, "server.handleCashFields") {
		return
	}

	errs := cashcount.ValidateDenominationFields(req.Denominations)
	if errs == nil {
		errs = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"errors": errs})
}

type transfersValidateRequest struct {
	TotalAmount float64           `json:"totalAmount"`
	Currency    string            `json:"currency"`
	Entries     []transfers.Entry `json:"entries"`
}

func (h *handler) handleTransfersValidate(w http.ResponseWriter, r *http.Request) {
	var req transfersValidateRequest
	if !h.decode(w, r, &req, "server.handleTransfersValidate") {
		return
	}

	h.writeJSON(w, http.StatusOK, transfers.BalanceFor(req.Entries, req.TotalAmount))
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, into interface{}, op string) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("cuerpo de solicitud inválido: %v", err), op)
		return false
	}
	return true
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
