package handler

import (
	"net/http"

	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/service"
	"go.uber.org/zap"
)

// DocumentHandler serves bills of lading, air waybills, containers and irregularities.
// Creates that pass with reconciliation warnings return them next to the record.
type DocumentHandler struct {
	documents *service.DocumentService
	logger    *zap.Logger
}

func NewDocumentHandler(documents *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// CreateMasterBL drafts a carrier master bill of lading
func (h *DocumentHandler) CreateMasterBL(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMasterBLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mbl, err := h.documents.CreateMasterBL(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create master BL")
		return
	}
	respondJSON(w, http.StatusCreated, mbl)
}

func (h *DocumentHandler) GetMasterBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get master BL", h.documents.GetMasterBL)
}

// IssueMasterBL issues a master BL
func (h *DocumentHandler) IssueMasterBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to issue master BL", h.documents.IssueMasterBL)
}

func (h *DocumentHandler) SurrenderMasterBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to surrender master BL", h.documents.SurrenderMasterBL)
}

func (h *DocumentHandler) ReleaseMasterBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to release master BL", h.documents.ReleaseMasterBL)
}

func (h *DocumentHandler) ListHouseBLsByMaster(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list house BLs", h.documents.ListHouseBLs)
}

func (h *DocumentHandler) ListContainers(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list containers", h.documents.ListContainers)
}

// CreateHouseBL drafts a house bill of lading under a master
func (h *DocumentHandler) CreateHouseBL(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateHouseBLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	hbl, warnings, err := h.documents.CreateHouseBL(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create house BL")
		return
	}
	respondWithWarnings(w, http.StatusCreated, hbl, warnings)
}

func (h *DocumentHandler) GetHouseBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get house BL", h.documents.GetHouseBL)
}

func (h *DocumentHandler) IssueHouseBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to issue house BL", h.documents.IssueHouseBL)
}

func (h *DocumentHandler) SurrenderHouseBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to surrender house BL", h.documents.SurrenderHouseBL)
}

func (h *DocumentHandler) ReleaseHouseBL(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to release house BL", h.documents.ReleaseHouseBL)
}

// AddContainer loads a container under a master BL
func (h *DocumentHandler) AddContainer(w http.ResponseWriter, r *http.Request) {
	var req domain.AddContainerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, warnings, err := h.documents.AddContainer(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to add container")
		return
	}
	respondWithWarnings(w, http.StatusCreated, c, warnings)
}

// CreateMasterAWB drafts a master air waybill on an allocated stock serial
func (h *DocumentHandler) CreateMasterAWB(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMasterAWBRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mawb, err := h.documents.CreateMasterAWB(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create master AWB")
		return
	}
	respondJSON(w, http.StatusCreated, mawb)
}

func (h *DocumentHandler) GetMasterAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get master AWB", h.documents.GetMasterAWB)
}

func (h *DocumentHandler) IssueMasterAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to issue master AWB", h.documents.IssueMasterAWB)
}

func (h *DocumentHandler) ReleaseMasterAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to release master AWB", h.documents.ReleaseMasterAWB)
}

func (h *DocumentHandler) ListHouseAWBsByMaster(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to list house AWBs", h.documents.ListHouseAWBs)
}

func (h *DocumentHandler) CreateHouseAWB(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateHouseAWBRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	hawb, warnings, err := h.documents.CreateHouseAWB(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to create house AWB")
		return
	}
	respondWithWarnings(w, http.StatusCreated, hawb, warnings)
}

func (h *DocumentHandler) GetHouseAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to get house AWB", h.documents.GetHouseAWB)
}

func (h *DocumentHandler) IssueHouseAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to issue house AWB", h.documents.IssueHouseAWB)
}

func (h *DocumentHandler) ReleaseHouseAWB(w http.ResponseWriter, r *http.Request) {
	idAction(w, r, h.logger, "Failed to release house AWB", h.documents.ReleaseHouseAWB)
}

// ReportIrregularity reports damage, shortage or overage against a document
func (h *DocumentHandler) ReportIrregularity(w http.ResponseWriter, r *http.Request) {
	var req domain.ReportIrregularityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	irr, warnings, err := h.documents.ReportIrregularity(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "Failed to report irregularity")
		return
	}
	respondWithWarnings(w, http.StatusCreated, irr, warnings)
}

type resolveRequest struct {
	Resolution string `json:"resolution" validate:"required,max=1000"`
}

func (h *DocumentHandler) ResolveIrregularity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	irr, err := h.documents.ResolveIrregularity(r.Context(), id, req.Resolution)
	if err != nil {
		respondError(w, h.logger, err, "Failed to resolve irregularity")
		return
	}
	respondJSON(w, http.StatusOK, irr)
}

type shipmentDocuments struct {
	MasterBLs      []domain.MasterBL     `json:"masterBls"`
	HouseBLs       []domain.HouseBL      `json:"houseBls"`
	MasterAWBs     []domain.MasterAWB    `json:"masterAwbs"`
	Irregularities []domain.Irregularity `json:"irregularities"`
}

// ListByShipment returns all transport documents of a shipment
func (h *DocumentHandler) ListByShipment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	var docs shipmentDocuments
	var err error
	if docs.MasterBLs, err = h.documents.ListMasterBLs(ctx, id); err != nil {
		respondError(w, h.logger, err, "Failed to list documents")
		return
	}
	if docs.HouseBLs, err = h.documents.ListShipmentHouseBLs(ctx, id); err != nil {
		respondError(w, h.logger, err, "Failed to list documents")
		return
	}
	if docs.MasterAWBs, err = h.documents.ListMasterAWBs(ctx, id); err != nil {
		respondError(w, h.logger, err, "Failed to list documents")
		return
	}
	if docs.Irregularities, err = h.documents.ListIrregularities(ctx, id); err != nil {
		respondError(w, h.logger, err, "Failed to list documents")
		return
	}
	respondJSON(w, http.StatusOK, docs)
}
