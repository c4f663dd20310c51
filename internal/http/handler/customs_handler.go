package handler

import (
	"net/http"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type CustomsHandler struct {
	customs *service.CustomsService
	logger  *zap.Logger
}

func NewCustomsHandler(customs *service.CustomsService, logger *zap.Logger) *CustomsHandler {
	return &CustomsHandler{customs: customs, logger: logger}
}

// Create opens a customs declaration for a shipment
func (h *CustomsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDeclarationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.customs.CreateDeclaration(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create declaration")
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

func (h *CustomsHandler) Get(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get declaration", h.customs.Get)
}

// AddItem adds a tariff line to a draft declaration
func (h *CustomsHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.DeclarationItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.customs.AddItem(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to add declaration item")
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// Submit submits a declaration to the customs gateway
func (h *CustomsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to submit declaration", h.customs.Submit)
}

func (h *CustomsHandler) StartInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.InspectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.customs.StartInspection(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to start inspection")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *CustomsHandler) RecordInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.InspectionResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	insp, err := h.customs.RecordInspection(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to record inspection")
		return
	}
	respondJSON(w, http.StatusOK, insp)
}

func (h *CustomsHandler) ListInspections(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list inspections", h.customs.ListInspections)
}

func (h *CustomsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to clear declaration", h.customs.Clear)
}

func (h *CustomsHandler) Release(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to release declaration", h.customs.Release)
}

func (h *CustomsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to reopen declaration", h.customs.Reopen)
}

func (h *CustomsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.customs.Reject(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to reject declaration")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GatewayResponse records the customs gateway's answer to a submission
func (h *CustomsHandler) GatewayResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CustomsResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.customs.RecordGatewayResponse(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to record gateway response")
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *CustomsHandler) ListEDILogs(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list EDI log", h.customs.ListEDILogs)
}

func (h *CustomsHandler) ListByShipment(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list declarations", h.customs.ListByShipment)
}
