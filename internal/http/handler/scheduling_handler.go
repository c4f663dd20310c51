package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type SchedulingHandler struct {
	schedules *service.SchedulingService
	logger    *zap.Logger
}

func NewSchedulingHandler(schedules *service.SchedulingService, logger *zap.Logger) *SchedulingHandler {
	return &SchedulingHandler{schedules: schedules, logger: logger}
}

type scheduleStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=SCHEDULED DEPARTED ARRIVED CANCELLED"`
}

// CreateOceanSchedule publishes a vessel voyage with its container space
func (h *SchedulingHandler) CreateOceanSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOceanScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.schedules.CreateOceanSchedule(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create ocean schedule")
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// SearchOceanSchedules searches ocean schedules
func (h *SchedulingHandler) SearchOceanSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	f := repository.ScheduleFilters{
		CarrierCode: strings.ToUpper(q.Get("carrier")),
		POLCode:     strings.ToUpper(q.Get("pol")),
		PODCode:     strings.ToUpper(q.Get("pod")),
		From:        from,
		To:          to,
	}
	if s := q.Get("status"); s != "" {
		status := domain.ScheduleStatus(strings.ToUpper(s))
		f.Status = &status
	}
	list, err := h.schedules.SearchOceanSchedules(r.Context(), f)
	if err != nil {
		respondError(w, h.logger, err, "Failed to search ocean schedules")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *SchedulingHandler) GetOceanSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.schedules.GetOceanSchedule(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get ocean schedule")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *SchedulingHandler) UpdateOceanScheduleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req scheduleStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.schedules.UpdateOceanScheduleStatus(r.Context(), id, domain.ScheduleStatus(req.Status)); err != nil {
		respondError(w, h.logger, err, "Failed to update ocean schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddOceanSpace adds a container type's space to a voyage
func (h *SchedulingHandler) AddOceanSpace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.OceanSpaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	space, err := h.schedules.AddOceanSpace(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to add space")
		return
	}
	respondJSON(w, http.StatusCreated, space)
}

// AllocateSpace reserves part of a voyage's space for one customer
func (h *SchedulingHandler) AllocateSpace(w http.ResponseWriter, r *http.Request) {
	var req domain.AllocateSpaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.schedules.AllocateSpace(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to allocate space")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (h *SchedulingHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "spaceId")
	if !ok {
		return
	}
	list, err := h.schedules.ListAllocations(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list allocations")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *SchedulingHandler) CreateAirSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAirScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.schedules.CreateAirSchedule(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create air schedule")
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// SearchAirSchedules searches flights between two airports
func (h *SchedulingHandler) SearchAirSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := queryDate(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryDate(w, r, "to")
	if !ok {
		return
	}
	start := time.Now().UTC().Truncate(24 * time.Hour)
	if from != nil {
		start = *from
	}
	end := start.AddDate(0, 0, 30)
	if to != nil {
		end = *to
	}
	list, err := h.schedules.SearchAirSchedules(r.Context(), strings.ToUpper(q.Get("origin")), strings.ToUpper(q.Get("dest")), start, end)
	if err != nil {
		respondError(w, h.logger, err, "Failed to search air schedules")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *SchedulingHandler) GetAirSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s, err := h.schedules.GetAirSchedule(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get air schedule")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *SchedulingHandler) UpdateAirScheduleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req scheduleStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.schedules.UpdateAirScheduleStatus(r.Context(), id, domain.ScheduleStatus(req.Status)); err != nil {
		respondError(w, h.logger, err, "Failed to update air schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterMAWBStock registers a block of airline MAWB serials
func (h *SchedulingHandler) RegisterMAWBStock(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterMAWBStockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	stock, err := h.schedules.RegisterMAWBStock(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to register MAWB stock")
		return
	}
	respondJSON(w, http.StatusCreated, stock)
}

func (h *SchedulingHandler) ListStocks(w http.ResponseWriter, r *http.Request) {
	list, err := h.schedules.ListStocks(r.Context(), strings.ToUpper(r.URL.Query().Get("carrier")))
	if err != nil {
		respondError(w, h.logger, err, "Failed to list MAWB stocks")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *SchedulingHandler) StockSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	summary, err := h.schedules.StockSummary(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to summarise MAWB stock")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
