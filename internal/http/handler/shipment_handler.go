package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type ShipmentHandler struct {
	shipments *service.ShipmentService
	tracking  *service.TrackingService
	warnings  *service.WarningService
	logger    *zap.Logger
}

func NewShipmentHandler(
	shipments *service.ShipmentService,
	tracking *service.TrackingService,
	warnings *service.WarningService,
	logger *zap.Logger,
) *ShipmentHandler {
	return &ShipmentHandler{
		shipments: shipments,
		tracking:  tracking,
		warnings:  warnings,
		logger:    logger,
	}
}

// Create opens a DRAFT shipment
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.ShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shipment, err := h.shipments.CreateShipment(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create shipment")
		return
	}
	respondJSON(w, http.StatusCreated, shipment)
}

// List lists shipments
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	q := r.URL.Query()

	filters := &repository.ShipmentFilters{
		Search:       q.Get("search"),
		CustomerCode: strings.ToUpper(q.Get("customer")),
	}
	if v := q.Get("mode"); v != "" {
		mode := domain.TransportMode(strings.ToUpper(v))
		if !mode.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid mode: must be SEA or AIR")
			return
		}
		filters.TransportMode = &mode
	}
	if v := q.Get("trade"); v != "" {
		trade := domain.TradeType(strings.ToUpper(v))
		if !trade.Valid() {
			respondWithError(w, http.StatusBadRequest, "Invalid trade: must be EXPORT or IMPORT")
			return
		}
		filters.TradeType = &trade
	}
	if v := q.Get("status"); v != "" {
		status, ok := domain.ParseShipmentStatus(v)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid status: "+v)
			return
		}
		filters.Status = &status
	}
	var ok bool
	if filters.ETDFrom, ok = queryDate(w, r, "etdFrom"); !ok {
		return
	}
	if filters.ETDTo, ok = queryDate(w, r, "etdTo"); !ok {
		return
	}

	sort := repository.DefaultSortConfig()
	if v := q.Get("sortBy"); v != "" {
		sort.Field = v
	}
	sort.Order = repository.ParseSortOrder(q.Get("sortOrder"))

	result, err := h.shipments.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list shipments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	shipment, err := h.shipments.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get shipment")
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

func (h *ShipmentHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.shipments.GetByNumber(r.Context(), chi.URLParam(r, "shipmentNo"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get shipment")
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

// UpdateDraft edits a shipment that is still DRAFT
func (h *ShipmentHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shipment, err := h.shipments.UpdateDraft(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to update shipment")
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

func (h *ShipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.shipments.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "Failed to delete shipment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transition moves a shipment to its next status
func (h *ShipmentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.TransitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shipment, err := h.shipments.Transition(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to change shipment status")
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

// Cancel cancels a shipment and releases its space
func (h *ShipmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	shipment, err := h.shipments.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel shipment")
		return
	}
	respondJSON(w, http.StatusOK, shipment)
}

// History returns the tracking history, newest first
func (h *ShipmentHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	events, err := h.tracking.ListEvents(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to load tracking history")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// RecordEvent records a milestone that does not change the status
func (h *ShipmentHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.RecordEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.tracking.RecordEvent(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to record event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// EventsByCode finds milestone events by code across shipments
func (h *ShipmentHandler) EventsByCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "code is required")
		return
	}
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	end := time.Now().UTC()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -7)
	if from != nil {
		start = *from
	}
	events, err := h.tracking.ListByCode(r.Context(), code, start, end)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// Warnings lists reconciliation warnings raised against a shipment
func (h *ShipmentHandler) Warnings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.warnings.ListByShipment(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list warnings")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// WarningsByRule lists recent reconciliation warnings for one rule
func (h *ShipmentHandler) WarningsByRule(w http.ResponseWriter, r *http.Request) {
	rule := r.URL.Query().Get("rule")
	if rule == "" {
		respondWithError(w, http.StatusBadRequest, "rule is required")
		return
	}
	list, err := h.warnings.ListByRule(r.Context(), strings.ToUpper(rule), queryInt(r, "limit", 100))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list warnings")
		return
	}
	respondJSON(w, http.StatusOK, list)
}
