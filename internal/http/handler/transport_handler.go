package handler

import (
	"net/http"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type TransportHandler struct {
	transport *service.TransportService
	logger    *zap.Logger
}

func NewTransportHandler(transport *service.TransportService, logger *zap.Logger) *TransportHandler {
	return &TransportHandler{transport: transport, logger: logger}
}

// CreateOrder books a trucker for a shipment leg
func (h *TransportHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.TransportOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.transport.CreateTransportOrder(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create transport order")
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *TransportHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to dispatch transport order", h.transport.Dispatch)
}

func (h *TransportHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to deliver transport order", h.transport.Deliver)
}

func (h *TransportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	o, err := h.transport.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel transport order")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *TransportHandler) ListByShipment(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list transport orders", h.transport.ListByShipment)
}

// CalculateDemurrage records demurrage for a container
func (h *TransportHandler) CalculateDemurrage(w http.ResponseWriter, r *http.Request) {
	var req domain.DemurrageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.transport.CalculateDemurrage(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to calculate demurrage")
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *TransportHandler) ListDemurrage(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list demurrage", h.transport.ListDemurrage)
}
