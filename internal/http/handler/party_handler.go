package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type PartyHandler struct {
	parties *service.PartyService
	logger  *zap.Logger
}

func NewPartyHandler(parties *service.PartyService, logger *zap.Logger) *PartyHandler {
	return &PartyHandler{parties: parties, logger: logger}
}

// UpsertCustomer creates or updates a customer
func (h *PartyHandler) UpsertCustomer(w http.ResponseWriter, r *http.Request) {
	c := domain.Customer{IsActive: true, PaymentTermDays: 30}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.parties.UpsertCustomer(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save customer")
		return
	}
	respondUpsert(w, result, c)
}

// ListCustomers lists customers
func (h *PartyHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	filters := &repository.PartyFilters{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("activeOnly") == "true",
	}
	result, err := h.parties.ListCustomers(r.Context(), page, pageSize, filters)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list customers")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *PartyHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.parties.GetCustomerByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get customer")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *PartyHandler) DeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.parties.DeactivateCustomer(r.Context(), chi.URLParam(r, "code")); err != nil {
		respondError(w, h.logger, err, "Failed to deactivate customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PartyHandler) UpsertCarrier(w http.ResponseWriter, r *http.Request) {
	c := domain.Carrier{IsActive: true}
	if !decodeJSON(w, r, &c) {
		return
	}
	result, err := h.parties.UpsertCarrier(r.Context(), &c)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save carrier")
		return
	}
	respondUpsert(w, result, c)
}

// ListCarriers lists carriers
func (h *PartyHandler) ListCarriers(w http.ResponseWriter, r *http.Request) {
	list, err := h.parties.ListCarriers(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list carriers")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *PartyHandler) GetCarrier(w http.ResponseWriter, r *http.Request) {
	c, err := h.parties.GetCarrierByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get carrier")
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (h *PartyHandler) DeactivateCarrier(w http.ResponseWriter, r *http.Request) {
	if err := h.parties.DeactivateCarrier(r.Context(), chi.URLParam(r, "code")); err != nil {
		respondError(w, h.logger, err, "Failed to deactivate carrier")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PartyHandler) UpsertPartner(w http.ResponseWriter, r *http.Request) {
	p := domain.Partner{IsActive: true}
	if !decodeJSON(w, r, &p) {
		return
	}
	result, err := h.parties.UpsertPartner(r.Context(), &p)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save partner")
		return
	}
	respondUpsert(w, result, p)
}

func (h *PartyHandler) GetPartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.parties.GetPartnerByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get partner")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *PartyHandler) UpsertTrucker(w http.ResponseWriter, r *http.Request) {
	t := domain.Trucker{IsActive: true}
	if !decodeJSON(w, r, &t) {
		return
	}
	result, err := h.parties.UpsertTrucker(r.Context(), &t)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save trucker")
		return
	}
	respondUpsert(w, result, t)
}

func (h *PartyHandler) UpsertBroker(w http.ResponseWriter, r *http.Request) {
	b := domain.CustomsBroker{IsActive: true}
	if !decodeJSON(w, r, &b) {
		return
	}
	result, err := h.parties.UpsertBroker(r.Context(), &b)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save customs broker")
		return
	}
	respondUpsert(w, result, b)
}

// UpsertUser creates or updates an operator account
func (h *PartyHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	u := domain.User{IsActive: true}
	if !decodeJSON(w, r, &u) {
		return
	}
	result, err := h.parties.UpsertUser(r.Context(), &u)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save user")
		return
	}
	respondUpsert(w, result, u)
}
