package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

type AttachmentHandler struct {
	attachments *service.AttachmentService
	maxUploadMB int64
	logger      *zap.Logger
}

func NewAttachmentHandler(attachments *service.AttachmentService, maxUploadMB int64, logger *zap.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, maxUploadMB: maxUploadMB, logger: logger}
}

// Upload attaches a file to an entity
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	refID, ok := pathID(w, r, "refId")
	if !ok {
		return
	}
	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: file field is required")
		return
	}
	defer file.Close()

	a, err := h.attachments.Upload(r.Context(), chi.URLParam(r, "refType"), refID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(w, h.logger, err, "Failed to upload file")
		return
	}
	respondJSON(w, http.StatusCreated, a)
}

// List lists an entity's attachments
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	refID, ok := pathID(w, r, "refId")
	if !ok {
		return
	}
	list, err := h.attachments.List(r.Context(), chi.URLParam(r, "refType"), refID)
	if err != nil {
		respondError(w, h.logger, err, "Failed to list attachments")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// Download downloads an attachment
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, body, err := h.attachments.Download(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to download file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}))
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("attachment download interrupted", zap.String("id", id.String()), zap.Error(err))
	}
}

// Delete deletes an attachment
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.attachments.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "Failed to delete attachment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
