package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type BillingHandler struct {
	billing *service.BillingService
	logger  *zap.Logger
}

func NewBillingHandler(billing *service.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: logger}
}

// sideParam reads the AR/AP side from the query, defaulting to AR
func sideParam(w http.ResponseWriter, r *http.Request) (domain.BillingSide, bool) {
	raw := r.URL.Query().Get("side")
	if raw == "" {
		return domain.SideAR, true
	}
	side := domain.BillingSide(strings.ToUpper(raw))
	if !side.Valid() {
		respondWithError(w, http.StatusBadRequest, "Invalid side: must be AR or AP")
		return "", false
	}
	return side, true
}

// CreateTariff adds a tariff line
func (h *BillingHandler) CreateTariff(w http.ResponseWriter, r *http.Request) {
	var t domain.Tariff
	if !decodeJSON(w, r, &t) {
		return
	}
	if err := h.billing.CreateTariff(r.Context(), &t); err != nil {
		respondError(w, h.logger, err, "Failed to create tariff")
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// PostCharge posts a charge against a shipment
func (h *BillingHandler) PostCharge(w http.ResponseWriter, r *http.Request) {
	var req domain.PostChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.billing.PostCharge(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to post charge")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// RateCharge prices a charge from the tariff table and posts it
func (h *BillingHandler) RateCharge(w http.ResponseWriter, r *http.Request) {
	var req domain.RateChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.billing.RateCharge(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to rate charge")
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (h *BillingHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	side, ok := sideParam(w, r)
	if !ok {
		return
	}
	list, err := h.billing.ListCharges(r.Context(), id, side)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list charges")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// IssueInvoice invoices a set of posted charges
func (h *BillingHandler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.billing.IssueInvoice(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to issue invoice")
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

func (h *BillingHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get invoice", h.billing.GetInvoice)
}

// ListInvoices lists invoices
func (h *BillingHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	side, ok := sideParam(w, r)
	if !ok {
		return
	}
	page, pageSize := pageParams(r)
	result, err := h.billing.ListInvoices(r.Context(), strings.ToUpper(r.URL.Query().Get("customer")), side, page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list invoices")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *BillingHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.billing.CancelInvoice(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel invoice")
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// ApplyPayment records a payment and applies it to open invoices
func (h *BillingHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.billing.ApplyPayment(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to apply payment")
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *BillingHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get payment", h.billing.GetPayment)
}

func (h *BillingHandler) ListGainLoss(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list exchange differences", h.billing.ListGainLoss)
}

// CheckCredit runs an advisory credit check
func (h *BillingHandler) CheckCredit(w http.ResponseWriter, r *http.Request) {
	var req domain.CreditCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.billing.CheckCredit(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to check credit")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *BillingHandler) ListCreditChecks(w http.ResponseWriter, r *http.Request) {
	customer := strings.ToUpper(r.URL.Query().Get("customer"))
	if customer == "" {
		respondWithError(w, http.StatusBadRequest, "customer is required")
		return
	}
	list, err := h.billing.ListCreditChecks(r.Context(), customer, queryInt(r, "limit", 20))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list credit checks")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// agingParams reads side and date, the date defaulting to today
func agingParams(w http.ResponseWriter, r *http.Request) (domain.BillingSide, time.Time, bool) {
	side, ok := sideParam(w, r)
	if !ok {
		return "", time.Time{}, false
	}
	date, ok := queryDate(w, r, "date")
	if !ok {
		return "", time.Time{}, false
	}
	if date == nil {
		return side, time.Now().UTC(), true
	}
	return side, *date, true
}

// Aging returns stored aging snapshot rows for a day
func (h *BillingHandler) Aging(w http.ResponseWriter, r *http.Request) {
	side, day, ok := agingParams(w, r)
	if !ok {
		return
	}
	rows, err := h.billing.ListAging(r.Context(), side, day)
	if err != nil {
		respondError(w, h.logger, err, "Failed to load aging")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// SnapshotAging computes and stores the aging snapshot now
func (h *BillingHandler) SnapshotAging(w http.ResponseWriter, r *http.Request) {
	side, day, ok := agingParams(w, r)
	if !ok {
		return
	}
	rows, err := h.billing.SnapshotAging(r.Context(), side, day)
	if err != nil {
		respondError(w, h.logger, err, "Failed to snapshot aging")
		return
	}
	respondJSON(w, http.StatusCreated, rows)
}

func (h *BillingHandler) Profit(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to load profit analysis", h.billing.LatestProfit)
}

// SnapshotProfit recomputes a shipment's profitability
func (h *BillingHandler) SnapshotProfit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	analysis, err := h.billing.SnapshotProfit(r.Context(), id, time.Now().UTC())
	if err != nil {
		respondError(w, h.logger, err, "Failed to snapshot profit")
		return
	}
	respondJSON(w, http.StatusCreated, analysis)
}
