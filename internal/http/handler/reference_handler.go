package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type ReferenceHandler struct {
	refs   *service.ReferenceService
	logger *zap.Logger
}

func NewReferenceHandler(refs *service.ReferenceService, logger *zap.Logger) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, logger: logger}
}

// UpsertCountry creates or updates a country
func (h *ReferenceHandler) UpsertCountry(w http.ResponseWriter, r *http.Request) {
	c := domain.Country{IsActive: true}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.refs.UpsertCountry(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save country")
		return
	}
	respondUpsert(w, result, c)
}

func (h *ReferenceHandler) ListCountries(w http.ResponseWriter, r *http.Request) {
	list, err := h.refs.ListCountries(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "Failed to list countries")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// UpsertCurrency creates or updates a currency
func (h *ReferenceHandler) UpsertCurrency(w http.ResponseWriter, r *http.Request) {
	c := domain.Currency{IsActive: true, DecimalPlaces: 2}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.refs.UpsertCurrency(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save currency")
		return
	}
	respondUpsert(w, result, c)
}

func (h *ReferenceHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := h.refs.ListCurrencies(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "Failed to list currencies")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// UpsertPort creates or updates a sea port or airport
func (h *ReferenceHandler) UpsertPort(w http.ResponseWriter, r *http.Request) {
	p := domain.Port{IsActive: true}
	if !decodeJSON(w, r, &p) {
		return
	}
	result, err := h.refs.UpsertPort(r.Context(), &p)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save port")
		return
	}
	respondUpsert(w, result, p)
}

// ListPorts lists ports
func (h *ReferenceHandler) ListPorts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.refs.ListPorts(r.Context(), strings.ToUpper(q.Get("type")), q.Get("activeOnly") == "true")
	if err != nil {
		respondError(w, h.logger, err, "Failed to list ports")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *ReferenceHandler) GetPort(w http.ResponseWriter, r *http.Request) {
	p, err := h.refs.GetPort(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get port")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// DeactivatePort deactivates a port
func (h *ReferenceHandler) DeactivatePort(w http.ResponseWriter, r *http.Request) {
	if err := h.refs.DeactivatePort(r.Context(), chi.URLParam(r, "code")); err != nil {
		respondError(w, h.logger, err, "Failed to deactivate port")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReferenceHandler) UpsertCommonCode(w http.ResponseWriter, r *http.Request) {
	c := domain.CommonCode{IsActive: true}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.refs.UpsertCommonCode(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save common code")
		return
	}
	respondUpsert(w, result, c)
}

func (h *ReferenceHandler) ListCommonCodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.refs.ListCommonCodes(r.Context(), chi.URLParam(r, "group"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list common codes")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *ReferenceHandler) UpsertHSCode(w http.ResponseWriter, r *http.Request) {
	c := domain.HSCode{IsActive: true}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.refs.UpsertHSCode(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save HS code")
		return
	}
	respondUpsert(w, result, c)
}

// SetExchangeRate records a daily exchange rate
func (h *ReferenceHandler) SetExchangeRate(w http.ResponseWriter, r *http.Request) {
	var rate domain.ExchangeRate
	if !decodeJSON(w, r, &rate) {
		return
	}
	if rate.Source == "" {
		rate.Source = "MANUAL"
	}
	result, err := h.refs.SetExchangeRate(r.Context(), &rate)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save exchange rate")
		return
	}
	respondUpsert(w, result, rate)
}

type rateLookupResponse struct {
	Base   string          `json:"base"`
	Target string          `json:"target"`
	Date   string          `json:"date"`
	Rate   decimal.Decimal `json:"rate"`
}

// LookupExchangeRate resolves the rate effective on a date
func (h *ReferenceHandler) LookupExchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base, target := strings.ToUpper(q.Get("base")), strings.ToUpper(q.Get("target"))
	if base == "" || target == "" {
		respondWithError(w, http.StatusBadRequest, "base and target are required")
		return
	}
	date, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	day := time.Now().UTC()
	if date != nil {
		day = *date
	}
	rate, err := h.refs.LookupExchangeRate(r.Context(), base, target, day)
	if err != nil {
		respondError(w, h.logger, err, "Failed to look up exchange rate")
		return
	}
	respondJSON(w, http.StatusOK, rateLookupResponse{Base: base, Target: target, Date: day.Format("2006-01-02"), Rate: rate})
}

func (h *ReferenceHandler) ListExchangeRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.refs.ListExchangeRates(r.Context(), strings.ToUpper(q.Get("base")), strings.ToUpper(q.Get("target")), queryInt(r, "limit", 30))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list exchange rates")
		return
	}
	respondJSON(w, http.StatusOK, list)
}
