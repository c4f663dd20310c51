package handler

import (
	"net/http"
	"strings"

	"github.com/straye-as/fms-api/internal/auth"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders *service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// Create captures a customer order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, warnings, err := h.orders.CreateOrder(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create order")
		return
	}
	respondWithWarnings(w, http.StatusCreated, order, warnings)
}

// Confirm confirms an order and opens its shipment
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ConfirmOrderRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if p, _ := auth.FromContext(r.Context()); req.OverrideReason != "" && (p == nil || !p.HasAnyRole(auth.RoleAccounting)) {
		respondWithError(w, http.StatusForbidden, "credit overrides require the ACCOUNTING role")
		return
	}
	result, err := h.orders.ConfirmOrder(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to confirm order")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// List lists orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	q := r.URL.Query()
	var status *domain.OrderStatus
	if s := q.Get("status"); s != "" {
		st := domain.OrderStatus(strings.ToUpper(s))
		status = &st
	}
	result, err := h.orders.ListOrders(r.Context(), strings.ToUpper(q.Get("customer")), status, page, pageSize)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
