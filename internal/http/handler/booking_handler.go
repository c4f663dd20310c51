package handler

import (
	"net/http"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings *service.BookingService
	logger   *zap.Logger
}

func NewBookingHandler(bookings *service.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, logger: logger}
}

// RequestOcean requests container space on a voyage
func (h *BookingHandler) RequestOcean(w http.ResponseWriter, r *http.Request) {
	var req domain.OceanBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.bookings.RequestOceanBooking(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to request ocean booking")
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) ConfirmOcean(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.ConfirmOceanBooking(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to confirm ocean booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) CancelOcean(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.bookings.CancelOceanBooking(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel ocean booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) GetOcean(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.GetOceanBooking(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get ocean booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// RequestAir requests cargo weight on a flight
func (h *BookingHandler) RequestAir(w http.ResponseWriter, r *http.Request) {
	var req domain.AirBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.bookings.RequestAirBooking(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to request air booking")
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) ConfirmAir(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.ConfirmAirBooking(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to confirm air booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) CancelAir(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.bookings.CancelAirBooking(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, h.logger, err, "Failed to cancel air booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *BookingHandler) GetAir(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.GetAirBooking(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get air booking")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

type shipmentBookings struct {
	Ocean []domain.OceanBooking `json:"ocean"`
	Air   []domain.AirBooking   `json:"air"`
}

// ListByShipment returns the ocean and air bookings of a shipment
func (h *BookingHandler) ListByShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ocean, err := h.bookings.ListOceanByShipment(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list bookings")
		return
	}
	air, err := h.bookings.ListAirByShipment(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list bookings")
		return
	}
	respondJSON(w, http.StatusOK, shipmentBookings{Ocean: ocean, Air: air})
}
