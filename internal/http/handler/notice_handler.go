package handler

import (
	"net/http"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type NoticeHandler struct {
	notices *service.NoticeService
	logger  *zap.Logger
}

func NewNoticeHandler(notices *service.NoticeService, logger *zap.Logger) *NoticeHandler {
	return &NoticeHandler{notices: notices, logger: logger}
}

// CreateSetting configures pre-alerts for a customer or partner
func (h *NoticeHandler) CreateSetting(w http.ResponseWriter, r *http.Request) {
	var req domain.PreAlertSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.notices.CreateSetting(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to save pre-alert setting")
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

func (h *NoticeHandler) ListPreAlerts(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list pre-alerts", h.notices.ListPreAlerts)
}

// IssueArrivalNotice issues an arrival notice for an arrived import shipment
func (h *NoticeHandler) IssueArrivalNotice(w http.ResponseWriter, r *http.Request) {
	var req domain.ArrivalNoticeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.notices.IssueArrivalNotice(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to issue arrival notice")
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

func (h *NoticeHandler) ListArrivalNotices(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list arrival notices", h.notices.ListArrivalNotices)
}
